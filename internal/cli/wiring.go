package cli

import (
	"fmt"
	"path/filepath"

	"corpusqa/config"
	"corpusqa/internal/adapter/chunker"
	"corpusqa/internal/adapter/convstore"
	"corpusqa/internal/adapter/corpus"
	"corpusqa/internal/adapter/embedding"
	"corpusqa/internal/adapter/generator"
	"corpusqa/internal/adapter/retriever"
	"corpusqa/internal/adapter/store"
	"corpusqa/internal/port"
	"corpusqa/internal/usecase"
)

// resolvePath makes config-relative paths absolute against the root
// directory so commands behave the same regardless of the working
// directory they run from.
func resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(GetRootDir(), path)
}

// newRetrieveUseCase wires the retrieval stack from config. The caller
// owns the returned snapshot store and must close it.
func newRetrieveUseCase(cfg *config.Config) (*usecase.RetrieveUseCase, *store.SnapshotStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if err := ensureDataDir(cfg); err != nil {
		return nil, nil, err
	}

	source := corpus.NewSource(resolvePath(cfg.Corpus.Path))
	chk := chunker.NewParagraphChunker(cfg.Corpus.MinChunkChars)

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, nil, err
	}

	snapshots, err := store.NewSnapshotStore(resolvePath(cfg.SnapshotDBPath()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	var keyword *retriever.KeywordMatcher
	if cfg.Retrieve.KeywordFallback {
		keyword = retriever.NewKeywordMatcher()
	}

	uc := usecase.NewRetrieveUseCase(source, chk, embedder, snapshots, keyword, log)
	return uc, snapshots, nil
}

func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return embedding.NewOpenAIEmbedder(cfg.Embedding)
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

// newAnswerUseCase wires the full question answering stack. The returned
// conversation store may be nil when conversation logging is disabled;
// when non-nil the caller must close it.
func newAnswerUseCase(cfg *config.Config, retrieveUC *usecase.RetrieveUseCase) (*usecase.AnswerUseCase, *convstore.BoltStore, error) {
	gen, err := generator.NewOpenAIGenerator(cfg.Generate)
	if err != nil {
		return nil, nil, err
	}

	var conversations *convstore.BoltStore
	if cfg.Conversations.Enabled {
		conversations, err = convstore.NewBoltStore(resolvePath(cfg.ConversationDBPath()))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open conversation store: %w", err)
		}
	}

	var convPort port.ConversationStore
	if conversations != nil {
		convPort = conversations
	}

	uc := usecase.NewAnswerUseCase(retrieveUC, gen, convPort, cfg.Retrieve.TopK, cfg.Retrieve.RelevanceThreshold, log)
	return uc, conversations, nil
}

func ensureDataDir(cfg *config.Config) error {
	resolved := *cfg
	resolved.Corpus.DataDir = resolvePath(cfg.Corpus.DataDir)
	return resolved.EnsureDataDir()
}
