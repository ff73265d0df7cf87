// Package assistant generates chat replies and document summaries by
// composing the conversation store with an OpenAI-style completion client.
package assistant

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agenteb/agente-b/internal/config"
	"github.com/agenteb/agente-b/internal/conversation"
	"github.com/agenteb/agente-b/internal/extract"
	"github.com/agenteb/agente-b/internal/messages"
)

const (
	summaryMaxOutputTokens = 600
	summaryTemperature     = 0.25
)

// CompletionClient is the slice of the OpenAI client the assistant needs.
// *openai.Client satisfies it; tests substitute a fake.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Assistant produces replies from a client's windowed conversation history.
type Assistant struct {
	client CompletionClient // nil when no API key is configured
	store  *conversation.Store
	msgs   messages.Catalog

	model           string
	maxOutputTokens int
	temperature     float32
	windowTurns     int
	summaryLimit    int
}

// New creates an assistant. A nil client is valid and degrades every
// AI-dependent operation to a fixed explanatory reply.
func New(client CompletionClient, store *conversation.Store, msgs messages.Catalog, cfg config.Config) *Assistant {
	return &Assistant{
		client: client,
		store:  store,
		msgs:   msgs,

		model:           cfg.ChatModel,
		maxOutputTokens: cfg.MaxOutputTokens,
		temperature:     cfg.Temperature,
		windowTurns:     cfg.WindowTurns,
		summaryLimit:    cfg.SummaryInputLimit,
	}
}

// Reply generates the next assistant reply from the client's recent history.
// An empty history short-circuits with a fixed clarification instead of
// spending a call on the provider. The returned error is non-nil only for
// provider failures; degraded replies come back as (text, nil).
func (a *Assistant) Reply(ctx context.Context, clientID string) (string, error) {
	window := a.store.Window(clientID, a.windowTurns)
	if len(window) == 0 {
		return a.msgs.NoMessageYet, nil
	}
	if a.client == nil {
		return a.msgs.ChatNotReady, nil
	}

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(window)+1)
	chatMessages = append(chatMessages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: a.msgs.PersonaPrompt,
	})
	for _, turn := range window {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}

	ctx, span := otel.Tracer("assistant").Start(ctx, "assistant.Reply")
	span.SetAttributes(
		attribute.String("gen_ai.request.model", a.model),
		attribute.Int("conversation.window_turns", len(window)),
	)
	defer span.End()

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    chatMessages,
		MaxTokens:   a.maxOutputTokens,
		Temperature: a.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Summarize produces a summary of document text. Only the first
// SummaryInputLimit characters are submitted; document content beyond the cap
// does not reach the provider.
func (a *Assistant) Summarize(ctx context.Context, text string) (string, error) {
	if a.client == nil {
		return a.msgs.SummaryNotReady, nil
	}

	excerpt := extract.Truncate(text, a.summaryLimit)

	ctx, span := otel.Tracer("assistant").Start(ctx, "assistant.Summarize")
	span.SetAttributes(
		attribute.String("gen_ai.request.model", a.model),
		attribute.Int("document.excerpt_chars", len(excerpt)),
	)
	defer span.End()

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: a.msgs.SummarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: a.msgs.SummaryPrompt(excerpt)},
		},
		MaxTokens:   summaryMaxOutputTokens,
		Temperature: summaryTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("summarization failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summarization returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
