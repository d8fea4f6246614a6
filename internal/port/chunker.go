package port

import "corpusqa/internal/domain"

type Chunker interface {
	Chunk(raw string) []domain.Chunk
}
