package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"corpusqa/internal/domain"
	"corpusqa/internal/port"
)

const (
	clarificationResponse = "I apologize, but I couldn't find a precise answer to your query. " +
		"Could you please rephrase or provide more specific details? " +
		"I'm here to help you with information from the reference document."

	errorResponse = "I'm sorry, but I encountered an unexpected error while processing your query."

	ambiguousResponse = "Could you provide more details about what you're looking for?"
)

// AnswerUseCase turns a user query into a natural-language answer:
// retrieve context, generate a response, log the exchange. Downstream
// failures never crash the request path; they map to polite fallback
// answers.
type AnswerUseCase struct {
	retriever     port.Retriever
	generator     port.Generator
	conversations port.ConversationStore
	topK          int
	threshold     float64
	log           logrus.FieldLogger
}

// NewAnswerUseCase creates the answer orchestrator. conversations may be
// nil to disable logging of exchanges.
func NewAnswerUseCase(
	retriever port.Retriever,
	generator port.Generator,
	conversations port.ConversationStore,
	topK int,
	threshold float64,
	log logrus.FieldLogger,
) *AnswerUseCase {
	return &AnswerUseCase{
		retriever:     retriever,
		generator:     generator,
		conversations: conversations,
		topK:          topK,
		threshold:     threshold,
		log:           log,
	}
}

// Answer processes one query. convID may be empty; when conversation
// logging is enabled, a new conversation is created on demand and its ID
// returned.
func (u *AnswerUseCase) Answer(ctx context.Context, query, convID string) (domain.Answer, string) {
	answer := u.answer(ctx, query)

	convID = u.logExchange(convID, query, answer)
	return answer, convID
}

func (u *AnswerUseCase) answer(ctx context.Context, query string) domain.Answer {
	query = strings.TrimSpace(query)

	if isAmbiguous(query) {
		return domain.Answer{
			Status:    domain.StatusClarificationNeeded,
			Response:  ambiguousResponse,
			Reasoning: "Query too vague to retrieve against",
		}
	}

	contexts, err := u.retriever.Search(ctx, query, u.topK, u.threshold)
	if err != nil {
		if !errors.Is(err, domain.ErrNoRelevantContext) {
			// The retriever converts everything else internally; anything
			// different is an argument error and still answerable politely.
			u.log.WithError(err).Warn("retrieval returned unexpected error")
		}
		return domain.Answer{
			Status:    domain.StatusClarificationNeeded,
			Response:  clarificationResponse,
			Reasoning: "No semantic match found",
		}
	}

	response, err := u.generator.Generate(ctx, query, contexts)
	if err != nil {
		u.log.WithError(err).Error("answer generation failed")
		return domain.Answer{
			Status:    domain.StatusError,
			Response:  errorResponse,
			Reasoning: "Generation failed",
			Context:   contexts,
		}
	}

	return domain.Answer{
		Status:    domain.StatusSuccess,
		Response:  response,
		Reasoning: "Answered from retrieved context",
		Context:   contexts,
	}
}

// logExchange records the query/answer pair. Logging failures are
// reported but never fail the request.
func (u *AnswerUseCase) logExchange(convID, query string, answer domain.Answer) string {
	if u.conversations == nil {
		return convID
	}

	if convID == "" {
		id, err := u.conversations.Create()
		if err != nil {
			u.log.WithError(err).Warn("failed to create conversation")
			return ""
		}
		convID = id
	}

	if err := u.conversations.AddMessage(convID, "user", query); err != nil {
		u.log.WithError(err).Warn("failed to log user message")
		return convID
	}
	if err := u.conversations.AddMessage(convID, "assistant", answer.Response); err != nil {
		u.log.WithError(err).Warn("failed to log assistant message")
	}
	return convID
}

// isAmbiguous flags queries too vague to retrieve against: very short
// ones, or ones asking for "something"/"anything".
func isAmbiguous(query string) bool {
	words := strings.Fields(strings.ToLower(query))
	if len(words) < 3 {
		return true
	}
	for _, w := range words {
		switch w {
		case "something", "anything", "whatever":
			return true
		}
	}
	return false
}
