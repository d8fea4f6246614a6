package port

import "corpusqa/internal/domain"

// ConversationStore persists conversation logs.
type ConversationStore interface {
	Create() (string, error)

	AddMessage(convID, role, content string) error

	Get(convID string) (domain.Conversation, error)

	History(convID string, limit int) ([]domain.Message, error)

	Close() error
}
