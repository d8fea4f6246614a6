package port

import "context"

// Retriever defines the interface for searching the corpus.
type Retriever interface {
	// Search returns up to topK context strings relevant to the query,
	// most relevant first. Results whose distance exceeds threshold are
	// dropped. When nothing survives, it returns
	// domain.ErrNoRelevantContext.
	Search(ctx context.Context, query string, topK int, threshold float64) ([]string, error)
}
