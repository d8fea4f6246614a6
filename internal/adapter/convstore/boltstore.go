// Package convstore persists conversation logs in bbolt, one JSON value
// per conversation.
package convstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"corpusqa/internal/domain"
)

var bucketConversations = []byte("conversations")

type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketConversations)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Create starts a new conversation and returns its ID.
func (s *BoltStore) Create() (string, error) {
	conv := domain.Conversation{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.put(conv); err != nil {
		return "", err
	}
	return conv.ID, nil
}

// AddMessage appends a message to an existing conversation.
func (s *BoltStore) AddMessage(convID, role, content string) error {
	conv, err := s.Get(convID)
	if err != nil {
		return err
	}

	conv.Messages = append(conv.Messages, domain.Message{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Role:      role,
		Content:   content,
	})

	return s.put(conv)
}

// Get returns a conversation by ID.
func (s *BoltStore) Get(convID string) (domain.Conversation, error) {
	var conv domain.Conversation
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketConversations).Get([]byte(convID))
		if data == nil {
			return fmt.Errorf("conversation not found: %s", convID)
		}
		return json.Unmarshal(data, &conv)
	})
	return conv, err
}

// History returns the most recent messages of a conversation, oldest
// first, capped at limit.
func (s *BoltStore) History(convID string, limit int) ([]domain.Message, error) {
	conv, err := s.Get(convID)
	if err != nil {
		return nil, err
	}

	msgs := conv.Messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (s *BoltStore) put(conv domain.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketConversations).Put([]byte(conv.ID), data)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
