package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"corpusqa/internal/adapter/corpus"
	"corpusqa/internal/adapter/index"
	"corpusqa/internal/adapter/retriever"
	"corpusqa/internal/adapter/store"
	"corpusqa/internal/domain"
	"corpusqa/internal/port"
)

// State of the retrieval index.
type State string

const (
	StateEmpty    State = "empty"
	StateBuilding State = "building"
	StateReady    State = "ready"
)

// embedBatchSize bounds one embedding call during rebuild so progress can
// be reported between batches.
const embedBatchSize = 64

// RetrieveUseCase owns the in-memory vector index and chunk cache for its
// process lifetime and keeps them consistent with the corpus file. A
// changed corpus always triggers a full rebuild: chunk positions and
// vector positions can never drift out of sync because they are only ever
// replaced together.
type RetrieveUseCase struct {
	source    *corpus.Source
	chunker   port.Chunker
	embedder  port.Embedder
	snapshots *store.SnapshotStore
	keyword   *retriever.KeywordMatcher
	log       logrus.FieldLogger

	// buildMu serializes rebuilds: when two callers detect staleness, one
	// rebuilds and the other observes the swapped result.
	buildMu sync.Mutex

	// mu guards the served triple below. Readers see the fully-old or
	// fully-new triple, never a mix.
	mu          sync.RWMutex
	state       State
	idx         *index.Flat
	chunks      []string
	fingerprint string

	progress func(done, total int)
}

// NewRetrieveUseCase creates the retrieval orchestrator. keyword may be
// nil to disable the lexical fallback.
func NewRetrieveUseCase(
	source *corpus.Source,
	chunker port.Chunker,
	embedder port.Embedder,
	snapshots *store.SnapshotStore,
	keyword *retriever.KeywordMatcher,
	log logrus.FieldLogger,
) *RetrieveUseCase {
	return &RetrieveUseCase{
		source:    source,
		chunker:   chunker,
		embedder:  embedder,
		snapshots: snapshots,
		keyword:   keyword,
		log:       log,
		state:     StateEmpty,
	}
}

// SetProgress installs a rebuild progress callback, called after each
// embedding batch with (chunks embedded, total chunks).
func (u *RetrieveUseCase) SetProgress(fn func(done, total int)) {
	u.progress = fn
}

// State returns the current index state.
func (u *RetrieveUseCase) State() State {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.state
}

// ChunkCount returns the number of chunks currently served.
func (u *RetrieveUseCase) ChunkCount() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.chunks)
}

// EnsureFresh brings the served index in sync with the corpus. It is a
// cheap fingerprint comparison when nothing changed; otherwise it runs a
// full rebuild (re-chunk, re-embed, re-index), persists the new snapshot,
// and atomically swaps the in-memory state. The old index remains
// servable until the swap; a failed build leaves the previous state
// untouched.
func (u *RetrieveUseCase) EnsureFresh(ctx context.Context) error {
	fresh, err := u.source.Fingerprint()
	if err != nil {
		return fmt.Errorf("change detection failed: %w", err)
	}

	if u.isCurrent(fresh) {
		return nil
	}

	u.buildMu.Lock()
	defer u.buildMu.Unlock()

	// Another caller may have finished the same rebuild while we waited.
	if u.isCurrent(fresh) {
		return nil
	}

	// A persisted snapshot for this exact content spares us the
	// re-embedding; this is the cache's whole purpose.
	if snap, idx, err := u.snapshots.Load(); err == nil && snap.Fingerprint == fresh {
		u.swap(idx, snap.Chunks, snap.Fingerprint)
		u.log.WithField("chunks", len(snap.Chunks)).Info("loaded index snapshot")
		return nil
	} else if err != nil && !store.IsRebuildRequired(err) {
		u.log.WithError(err).Warn("failed to load index snapshot")
	}

	return u.rebuild(ctx, fresh)
}

func (u *RetrieveUseCase) isCurrent(fingerprint string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.state == StateReady && u.fingerprint == fingerprint
}

// rebuild runs under buildMu. It builds the complete new (index, chunks)
// pair aside, persists it, and only then swaps it in.
func (u *RetrieveUseCase) rebuild(ctx context.Context, fingerprint string) error {
	u.setState(StateBuilding)

	restore := func() {
		u.mu.Lock()
		if u.idx != nil {
			u.state = StateReady
		} else {
			u.state = StateEmpty
		}
		u.mu.Unlock()
	}

	raw, err := u.source.Read()
	if err != nil {
		restore()
		return fmt.Errorf("rebuild failed: %w", err)
	}

	domainChunks := u.chunker.Chunk(raw)
	texts := make([]string, len(domainChunks))
	for i, ch := range domainChunks {
		texts[i] = ch.Text
	}

	vectors, err := u.embedAll(ctx, texts)
	if err != nil {
		restore()
		return fmt.Errorf("rebuild failed: %w", err)
	}

	idx, err := index.Build(vectors)
	if err != nil {
		restore()
		return fmt.Errorf("rebuild failed: %w", err)
	}

	snap := domain.Snapshot{
		Fingerprint: fingerprint,
		Chunks:      texts,
		Count:       idx.Count(),
	}
	if err := u.snapshots.Save(snap, idx); err != nil {
		restore()
		return fmt.Errorf("rebuild failed to persist snapshot: %w", err)
	}

	u.swap(idx, texts, fingerprint)
	u.log.WithFields(logrus.Fields{
		"chunks":      idx.Count(),
		"fingerprint": fingerprint,
	}).Info("index rebuilt")
	return nil
}

func (u *RetrieveUseCase) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += embedBatchSize {
		end := i + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := u.embedder.Embed(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("embedding chunks %d-%d: %w", i, end-1, err)
		}
		if len(batch) != end-i {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(batch), end-i)
		}
		vectors = append(vectors, batch...)

		if u.progress != nil {
			u.progress(end, len(texts))
		}
	}
	return vectors, nil
}

func (u *RetrieveUseCase) setState(s State) {
	u.mu.Lock()
	u.state = s
	u.mu.Unlock()
}

func (u *RetrieveUseCase) swap(idx *index.Flat, chunks []string, fingerprint string) {
	u.mu.Lock()
	u.idx = idx
	u.chunks = chunks
	u.fingerprint = fingerprint
	u.state = StateReady
	u.mu.Unlock()
}

// served returns the current (index, chunks) pair as one consistent read.
func (u *RetrieveUseCase) served() (*index.Flat, []string) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.idx, u.chunks
}

// Search retrieves up to topK deduplicated context strings for the query.
// Failures in freshness checking, query embedding, or vector search
// degrade to the keyword fallback and finally to
// domain.ErrNoRelevantContext; they never propagate as hard errors.
func (u *RetrieveUseCase) Search(ctx context.Context, query string, topK int, threshold float64) ([]string, error) {
	if topK < 1 {
		return nil, fmt.Errorf("top_k must be >= 1, got %d", topK)
	}
	if threshold <= 0 {
		return nil, fmt.Errorf("relevance threshold must be > 0, got %f", threshold)
	}

	if err := u.EnsureFresh(ctx); err != nil {
		u.log.WithError(err).Warn("index refresh failed, degrading")
		return u.searchKeyword(query, topK)
	}

	queryVecs, err := u.embedder.Embed(ctx, []string{query})
	if err != nil || len(queryVecs) != 1 {
		u.log.WithError(err).Warn("query embedding failed, degrading")
		return u.searchKeyword(query, topK)
	}

	idx, chunks := u.served()
	if idx == nil {
		return u.searchKeyword(query, topK)
	}

	hits, err := idx.Search(queryVecs[0], topK)
	if err != nil {
		u.log.WithError(err).Warn("vector search failed, degrading")
		return u.searchKeyword(query, topK)
	}

	var texts []string
	for _, hit := range hits {
		if hit.Distance > threshold {
			continue
		}
		if hit.Index < len(chunks) {
			texts = append(texts, chunks[hit.Index])
		}
	}

	results := dedupeSentences(texts)
	if len(results) == 0 {
		return nil, domain.ErrNoRelevantContext
	}
	return results, nil
}

// searchKeyword is the capability-checked fallback: it serves lexical
// matches from the cached chunks when vector search is unavailable.
func (u *RetrieveUseCase) searchKeyword(query string, topK int) ([]string, error) {
	if u.keyword == nil {
		return nil, domain.ErrNoRelevantContext
	}

	_, chunks := u.served()
	if len(chunks) == 0 {
		return nil, domain.ErrNoRelevantContext
	}

	matches := u.keyword.Rank(query, chunks, topK)
	var texts []string
	for _, m := range matches {
		texts = append(texts, chunks[m.Index])
	}

	results := dedupeSentences(texts)
	if len(results) == 0 {
		return nil, domain.ErrNoRelevantContext
	}
	u.log.WithField("results", len(results)).Info("served keyword fallback results")
	return results, nil
}

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]*`)

// dedupeSentences drops sentences already emitted by an earlier chunk,
// comparing lower-cased whitespace-collapsed signatures. Chunks that lose
// every sentence are dropped entirely.
func dedupeSentences(chunks []string) []string {
	seen := make(map[string]struct{})

	var out []string
	for _, chunk := range chunks {
		var kept []string
		for _, sentence := range sentencePattern.FindAllString(chunk, -1) {
			sentence = strings.TrimSpace(sentence)
			if sentence == "" {
				continue
			}
			sig := strings.Join(strings.Fields(strings.ToLower(sentence)), " ")
			if _, dup := seen[sig]; dup {
				continue
			}
			seen[sig] = struct{}{}
			kept = append(kept, sentence)
		}
		if len(kept) > 0 {
			out = append(out, strings.Join(kept, " "))
		}
	}
	return out
}
