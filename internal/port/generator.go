package port

import "context"

// Generator turns a query plus retrieved context into a natural-language
// answer. Implementations call an external completion service and must
// honor the context deadline.
type Generator interface {
	// Generate produces an answer for the query given the ordered context
	// chunks. An empty context slice is legal: the generator answers from
	// the query alone.
	Generate(ctx context.Context, query string, contexts []string) (string, error)

	// ModelName returns the name of the generation model.
	ModelName() string
}
