// Package generator answers queries from retrieved context using a chat
// completion model. Retrieval works without it; generation failures are
// absorbed by the answer use case, never surfaced to end users raw.
package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"corpusqa/config"
)

const systemPrompt = "You are an assistant answering questions about a reference document. " +
	"Analyze the given context and query carefully. " +
	"Provide a precise, informative, and contextually relevant response. " +
	"If the query cannot be answered from the context, say so and suggest how to get the information."

type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

func NewOpenAIGenerator(cfg config.GenerateConfig) (*OpenAIGenerator, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", cfg.APIKeyEnv)
	}

	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIGenerator{
		client:      openai.NewClient(key),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
	}, nil
}

// Generate produces an answer for the query from the ordered context
// chunks. The call is bounded by the configured timeout on top of any
// deadline already on ctx.
func (g *OpenAIGenerator) Generate(ctx context.Context, query string, contexts []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	userPrompt := buildUserPrompt(query, contexts)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (g *OpenAIGenerator) ModelName() string {
	return g.model
}

func buildUserPrompt(query string, contexts []string) string {
	var sb strings.Builder
	sb.WriteString("Original Query: ")
	sb.WriteString(query)
	sb.WriteString("\n\n")
	if len(contexts) > 0 {
		sb.WriteString("Context: ")
		sb.WriteString(strings.Join(contexts, " "))
		sb.WriteString("\n\n")
	}
	sb.WriteString("Based on the context and query, provide a comprehensive and accurate answer.")
	return sb.String()
}
