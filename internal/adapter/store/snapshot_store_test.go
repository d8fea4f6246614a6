package store

import (
	"errors"
	"path/filepath"
	"testing"

	"go.etcd.io/bbolt"

	"corpusqa/internal/adapter/index"
	"corpusqa/internal/domain"
)

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	st, err := NewSnapshotStore(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func buildIndex(t *testing.T, vectors [][]float32) *index.Flat {
	t.Helper()
	idx, err := index.Build(vectors)
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := newTestStore(t)

	idx := buildIndex(t, [][]float32{{1, 0}, {0, 1}})
	snap := domain.Snapshot{
		Fingerprint: "abc123",
		Chunks:      []string{"first chunk", "second chunk"},
		Count:       2,
	}

	if err := st.Save(snap, idx); err != nil {
		t.Fatal(err)
	}

	loaded, loadedIdx, err := st.Load()
	if err != nil {
		t.Fatal(err)
	}

	if loaded.Fingerprint != "abc123" {
		t.Errorf("fingerprint mismatch: %s", loaded.Fingerprint)
	}
	if len(loaded.Chunks) != 2 || loaded.Chunks[0] != "first chunk" {
		t.Errorf("chunks mismatch: %v", loaded.Chunks)
	}
	if loadedIdx.Count() != 2 {
		t.Errorf("index count mismatch: %d", loadedIdx.Count())
	}

	// Positional invariant: vector 0 must retrieve chunk 0.
	hits, err := loadedIdx.Search([]float32{1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Chunks[hits[0].Index] != "first chunk" {
		t.Errorf("positional invariant violated: got %q", loaded.Chunks[hits[0].Index])
	}
}

func TestLoadEmptyStore(t *testing.T) {
	st := newTestStore(t)

	_, _, err := st.Load()
	if !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Errorf("expected ErrSnapshotNotFound, got %v", err)
	}
	if !IsRebuildRequired(err) {
		t.Error("missing snapshot must require rebuild")
	}
	if st.Exists() {
		t.Error("empty store must not report an existing snapshot")
	}
}

func TestSaveRejectsMismatchedPair(t *testing.T) {
	st := newTestStore(t)

	idx := buildIndex(t, [][]float32{{1, 0}, {0, 1}})
	snap := domain.Snapshot{
		Fingerprint: "abc",
		Chunks:      []string{"only one chunk"},
		Count:       1,
	}

	err := st.Save(snap, idx)
	if !errors.Is(err, domain.ErrIntegrity) {
		t.Errorf("expected ErrIntegrity for mismatched pair, got %v", err)
	}
}

func TestLoadDetectsCorruptCacheDoc(t *testing.T) {
	st := newTestStore(t)

	idx := buildIndex(t, [][]float32{{1}})
	snap := domain.Snapshot{Fingerprint: "f", Chunks: []string{"a chunk"}, Count: 1}
	if err := st.Save(snap, idx); err != nil {
		t.Fatal(err)
	}

	// Corrupt the cache document behind the store's back.
	err := st.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCache).Put(keyCacheDoc, []byte("{not json"))
	})
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = st.Load()
	if !errors.Is(err, domain.ErrIntegrity) {
		t.Errorf("expected ErrIntegrity for corrupt cache doc, got %v", err)
	}
	if !IsRebuildRequired(err) {
		t.Error("corrupt snapshot must require rebuild")
	}
}

func TestLoadDetectsHalfMissingSnapshot(t *testing.T) {
	st := newTestStore(t)

	idx := buildIndex(t, [][]float32{{1}})
	snap := domain.Snapshot{Fingerprint: "f", Chunks: []string{"a chunk"}, Count: 1}
	if err := st.Save(snap, idx); err != nil {
		t.Fatal(err)
	}

	err := st.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketIndex).Delete(keyIndexBlob)
	})
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = st.Load()
	if !errors.Is(err, domain.ErrIntegrity) {
		t.Errorf("expected ErrIntegrity for half-missing snapshot, got %v", err)
	}
}

func TestSaveOverwritesPreviousSnapshot(t *testing.T) {
	st := newTestStore(t)

	first := domain.Snapshot{Fingerprint: "v1", Chunks: []string{"old chunk text"}, Count: 1}
	if err := st.Save(first, buildIndex(t, [][]float32{{1}})); err != nil {
		t.Fatal(err)
	}

	second := domain.Snapshot{Fingerprint: "v2", Chunks: []string{"new chunk one", "new chunk two"}, Count: 2}
	if err := st.Save(second, buildIndex(t, [][]float32{{1}, {2}})); err != nil {
		t.Fatal(err)
	}

	loaded, idx, err := st.Load()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Fingerprint != "v2" || idx.Count() != 2 {
		t.Errorf("expected second snapshot, got fingerprint=%s count=%d", loaded.Fingerprint, idx.Count())
	}
}

func TestSaveEmptySnapshot(t *testing.T) {
	st := newTestStore(t)

	snap := domain.Snapshot{Fingerprint: "empty", Chunks: nil, Count: 0}
	if err := st.Save(snap, buildIndex(t, nil)); err != nil {
		t.Fatal(err)
	}

	loaded, idx, err := st.Load()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Fingerprint != "empty" || idx.Count() != 0 {
		t.Errorf("expected empty snapshot round trip, got %v / %d", loaded, idx.Count())
	}
}
