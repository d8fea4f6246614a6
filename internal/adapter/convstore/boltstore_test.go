package convstore

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	st, err := NewBoltStore(filepath.Join(t.TempDir(), "conversations.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestCreateAndAddMessages(t *testing.T) {
	st := newTestStore(t)

	id, err := st.Create()
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("expected non-empty conversation ID")
	}

	if err := st.AddMessage(id, "user", "How many beds are free?"); err != nil {
		t.Fatal(err)
	}
	if err := st.AddMessage(id, "assistant", "The Emergency Ward has 40 free beds."); err != nil {
		t.Fatal(err)
	}

	conv, err := st.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(conv.Messages))
	}
	if conv.Messages[0].Role != "user" || conv.Messages[1].Role != "assistant" {
		t.Error("messages out of order")
	}
	if conv.Messages[0].ID == conv.Messages[1].ID {
		t.Error("messages must have distinct IDs")
	}
}

func TestHistoryLimit(t *testing.T) {
	st := newTestStore(t)

	id, err := st.Create()
	if err != nil {
		t.Fatal(err)
	}

	for _, msg := range []string{"one", "two", "three", "four"} {
		if err := st.AddMessage(id, "user", msg); err != nil {
			t.Fatal(err)
		}
	}

	history, err := st.History(id, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Content != "three" || history[1].Content != "four" {
		t.Errorf("expected the most recent messages, got %q, %q", history[0].Content, history[1].Content)
	}
}

func TestAddMessageUnknownConversation(t *testing.T) {
	st := newTestStore(t)

	if err := st.AddMessage("no-such-id", "user", "hello"); err == nil {
		t.Error("expected error for unknown conversation")
	}
}

func TestConversationsAreIsolated(t *testing.T) {
	st := newTestStore(t)

	a, _ := st.Create()
	b, _ := st.Create()
	if a == b {
		t.Fatal("expected distinct conversation IDs")
	}

	if err := st.AddMessage(a, "user", "only in a"); err != nil {
		t.Fatal(err)
	}

	convB, err := st.Get(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(convB.Messages) != 0 {
		t.Errorf("conversation b should be empty, has %d messages", len(convB.Messages))
	}
}
