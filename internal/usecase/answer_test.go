package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"corpusqa/internal/domain"
)

type stubRetriever struct {
	contexts []string
	err      error
}

func (s *stubRetriever) Search(context.Context, string, int, float64) ([]string, error) {
	return s.contexts, s.err
}

type stubGenerator struct {
	response string
	err      error
	called   bool
}

func (s *stubGenerator) Generate(_ context.Context, _ string, _ []string) (string, error) {
	s.called = true
	return s.response, s.err
}

func (s *stubGenerator) ModelName() string { return "stub" }

type memConvStore struct {
	nextID   int
	messages map[string][]domain.Message
	failAdd  bool
}

func newMemConvStore() *memConvStore {
	return &memConvStore{messages: make(map[string][]domain.Message)}
}

func (s *memConvStore) Create() (string, error) {
	s.nextID++
	id := strings.Repeat("c", s.nextID)
	s.messages[id] = nil
	return id, nil
}

func (s *memConvStore) AddMessage(convID, role, content string) error {
	if s.failAdd {
		return errors.New("store unavailable")
	}
	if _, ok := s.messages[convID]; !ok {
		return errors.New("conversation not found")
	}
	s.messages[convID] = append(s.messages[convID], domain.Message{Role: role, Content: content})
	return nil
}

func (s *memConvStore) Get(convID string) (domain.Conversation, error) {
	msgs, ok := s.messages[convID]
	if !ok {
		return domain.Conversation{}, errors.New("conversation not found")
	}
	return domain.Conversation{ID: convID, Messages: msgs}, nil
}

func (s *memConvStore) History(convID string, limit int) ([]domain.Message, error) {
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

func (s *memConvStore) Close() error { return nil }

func TestAnswerSuccess(t *testing.T) {
	ret := &stubRetriever{contexts: []string{"Emergency Ward: 50 beds, 10 occupied."}}
	gen := &stubGenerator{response: "The Emergency Ward has 40 free beds."}
	conv := newMemConvStore()

	uc := NewAnswerUseCase(ret, gen, conv, 5, 1.0, testLogger())

	answer, convID := uc.Answer(context.Background(), "How many beds are free in the Emergency Ward?", "")

	if answer.Status != domain.StatusSuccess {
		t.Fatalf("expected success, got %s", answer.Status)
	}
	if answer.Response != "The Emergency Ward has 40 free beds." {
		t.Errorf("unexpected response: %q", answer.Response)
	}
	if len(answer.Context) != 1 {
		t.Errorf("expected retrieved context in answer, got %v", answer.Context)
	}

	msgs, err := conv.History(convID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected logged user+assistant messages, got %d", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Error("messages logged in wrong order")
	}
}

func TestAnswerNoContext(t *testing.T) {
	ret := &stubRetriever{err: domain.ErrNoRelevantContext}
	gen := &stubGenerator{response: "should not be called"}

	uc := NewAnswerUseCase(ret, gen, nil, 5, 1.0, testLogger())

	answer, _ := uc.Answer(context.Background(), "What is the meaning of life here?", "")

	if answer.Status != domain.StatusClarificationNeeded {
		t.Fatalf("expected clarification_needed, got %s", answer.Status)
	}
	if gen.called {
		t.Error("generator must not run without context")
	}
	if !strings.Contains(answer.Response, "rephrase") {
		t.Errorf("expected a polite clarification message, got %q", answer.Response)
	}
}

func TestAnswerGeneratorFailure(t *testing.T) {
	ret := &stubRetriever{contexts: []string{"some context"}}
	gen := &stubGenerator{err: errors.New("completion timeout")}

	uc := NewAnswerUseCase(ret, gen, nil, 5, 1.0, testLogger())

	answer, _ := uc.Answer(context.Background(), "How many beds are free today?", "")

	if answer.Status != domain.StatusError {
		t.Fatalf("expected error status, got %s", answer.Status)
	}
	if strings.Contains(answer.Response, "timeout") {
		t.Error("raw error text must not leak to the user")
	}
}

func TestAnswerAmbiguousQuery(t *testing.T) {
	ret := &stubRetriever{contexts: []string{"context"}}
	gen := &stubGenerator{}

	uc := NewAnswerUseCase(ret, gen, nil, 5, 1.0, testLogger())

	for _, query := range []string{"beds", "tell me something", ""} {
		answer, _ := uc.Answer(context.Background(), query, "")
		if answer.Status != domain.StatusClarificationNeeded {
			t.Errorf("query %q: expected clarification_needed, got %s", query, answer.Status)
		}
	}
	if gen.called {
		t.Error("ambiguous queries must not reach the generator")
	}
}

func TestAnswerReusesConversation(t *testing.T) {
	ret := &stubRetriever{contexts: []string{"context"}}
	gen := &stubGenerator{response: "answer"}
	conv := newMemConvStore()

	uc := NewAnswerUseCase(ret, gen, conv, 5, 1.0, testLogger())

	_, first := uc.Answer(context.Background(), "How many beds are free?", "")
	_, second := uc.Answer(context.Background(), "And how many in the ICU?", first)

	if first != second {
		t.Errorf("expected the same conversation ID, got %q and %q", first, second)
	}

	msgs, err := conv.History(first, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 4 {
		t.Errorf("expected 4 logged messages, got %d", len(msgs))
	}
}

func TestAnswerLoggingFailureDoesNotFailRequest(t *testing.T) {
	ret := &stubRetriever{contexts: []string{"context"}}
	gen := &stubGenerator{response: "answer"}
	conv := newMemConvStore()
	conv.failAdd = true

	uc := NewAnswerUseCase(ret, gen, conv, 5, 1.0, testLogger())

	answer, _ := uc.Answer(context.Background(), "How many beds are free?", "")
	if answer.Status != domain.StatusSuccess {
		t.Errorf("logging failure must not fail the request, got %s", answer.Status)
	}
}
