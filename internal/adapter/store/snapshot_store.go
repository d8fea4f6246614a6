package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"corpusqa/internal/adapter/index"
	"corpusqa/internal/domain"
)

var (
	bucketIndex = []byte("index")
	bucketCache = []byte("cache")

	keyIndexBlob = []byte("flat")
	keyCacheDoc  = []byte("snapshot")
)

// SnapshotStore persists index snapshots: the serialized vector index and
// the cache document {fingerprint, chunk list, count}. Both live in one
// bbolt file and are written in a single transaction, so a reader never
// observes one updated without the other.
type SnapshotStore struct {
	db *bbolt.DB
}

type cacheDoc struct {
	Fingerprint string   `json:"fingerprint"`
	Chunks      []string `json:"chunks"`
	Count       int      `json:"count"`
}

func NewSnapshotStore(path string) (*SnapshotStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketIndex, bucketCache} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SnapshotStore{db: db}, nil
}

// Save writes the index blob and the cache document atomically. The chunk
// list and the index must already agree positionally; Save refuses
// mismatched pairs rather than persisting a broken snapshot.
func (s *SnapshotStore) Save(snap domain.Snapshot, idx *index.Flat) error {
	if len(snap.Chunks) != idx.Count() || snap.Count != idx.Count() {
		return fmt.Errorf("%w: %d chunks vs %d vectors", domain.ErrIntegrity, len(snap.Chunks), idx.Count())
	}

	blob, err := idx.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to serialize index: %w", err)
	}

	doc := cacheDoc{
		Fingerprint: snap.Fingerprint,
		Chunks:      snap.Chunks,
		Count:       snap.Count,
	}
	docData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize cache document: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketIndex).Put(keyIndexBlob, blob); err != nil {
			return err
		}
		return tx.Bucket(bucketCache).Put(keyCacheDoc, docData)
	})
}

// Load restores the persisted snapshot. It returns
// domain.ErrSnapshotNotFound when nothing has been persisted yet, and
// domain.ErrIntegrity when the cache document and the index disagree or
// either half fails to decode. Both cases mean "rebuild required", never
// "zero results".
func (s *SnapshotStore) Load() (domain.Snapshot, *index.Flat, error) {
	var blob, docData []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketIndex).Get(keyIndexBlob); b != nil {
			blob = append([]byte(nil), b...)
		}
		if d := tx.Bucket(bucketCache).Get(keyCacheDoc); d != nil {
			docData = append([]byte(nil), d...)
		}
		return nil
	})
	if err != nil {
		return domain.Snapshot{}, nil, err
	}

	if blob == nil && docData == nil {
		return domain.Snapshot{}, nil, domain.ErrSnapshotNotFound
	}
	if blob == nil || docData == nil {
		return domain.Snapshot{}, nil, fmt.Errorf("%w: snapshot half missing", domain.ErrIntegrity)
	}

	var doc cacheDoc
	if err := json.Unmarshal(docData, &doc); err != nil {
		return domain.Snapshot{}, nil, fmt.Errorf("%w: corrupt cache document: %v", domain.ErrIntegrity, err)
	}

	idx := &index.Flat{}
	if err := idx.UnmarshalBinary(blob); err != nil {
		return domain.Snapshot{}, nil, fmt.Errorf("%w: corrupt index blob: %v", domain.ErrIntegrity, err)
	}

	if doc.Count != idx.Count() || len(doc.Chunks) != idx.Count() {
		return domain.Snapshot{}, nil, fmt.Errorf("%w: %d chunks vs %d vectors", domain.ErrIntegrity, len(doc.Chunks), idx.Count())
	}

	snap := domain.Snapshot{
		Fingerprint: doc.Fingerprint,
		Chunks:      doc.Chunks,
		Count:       doc.Count,
	}
	return snap, idx, nil
}

// Exists reports whether a complete snapshot has been persisted.
func (s *SnapshotStore) Exists() bool {
	_, _, err := s.Load()
	return err == nil
}

func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// IsRebuildRequired reports whether an error from Load means the caller
// should rebuild rather than fail.
func IsRebuildRequired(err error) bool {
	return errors.Is(err, domain.ErrSnapshotNotFound) || errors.Is(err, domain.ErrIntegrity)
}
