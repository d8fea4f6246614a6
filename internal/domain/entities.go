package domain

import (
	"errors"
	"time"
)

// Chunk is a retrievable unit of corpus text. Chunks have no identity
// beyond their position in the sequence produced by one chunking pass;
// re-chunking invalidates all prior positions.
type Chunk struct {
	Index int
	Text  string
}

// ScoredChunk pairs a chunk with its distance to the query vector.
// Lower distance means more relevant.
type ScoredChunk struct {
	Chunk    Chunk
	Distance float64
}

// Snapshot is the persisted state of one index build: the ordered chunk
// list and the corpus fingerprint it was derived from. The vector index
// blob is stored alongside it; chunk i must correspond to vector i.
type Snapshot struct {
	Fingerprint string
	Chunks      []string
	Count       int
}

// Answer is the result of processing one user query end to end.
type Answer struct {
	Status    string   `json:"status"`
	Response  string   `json:"response"`
	Reasoning string   `json:"reasoning,omitempty"`
	Context   []string `json:"context,omitempty"`
}

// Answer statuses.
const (
	StatusSuccess             = "success"
	StatusClarificationNeeded = "clarification_needed"
	StatusError               = "error"
)

// Message is a single turn in a logged conversation.
type Message struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
}

// Conversation is a logged exchange between a user and the assistant.
type Conversation struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}

var (
	// ErrNoRelevantContext signals that retrieval produced nothing usable:
	// either nothing matched, or everything that matched was filtered out.
	// Callers must treat this as "answer without context", not as a fault.
	ErrNoRelevantContext = errors.New("no relevant context found")

	// ErrSnapshotNotFound signals that no persisted index snapshot exists
	// at the configured location. Callers treat it as "rebuild required".
	ErrSnapshotNotFound = errors.New("index snapshot not found")

	// ErrIntegrity signals a corrupt or mismatched persisted snapshot
	// (chunk list and vector index out of sync). Rebuild required.
	ErrIntegrity = errors.New("snapshot integrity violation")
)
