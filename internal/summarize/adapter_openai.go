package summarize

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// Config holds summarization adapter configuration.
type Config struct {
	APIKey string
	Model  string
}

// OpenAIAdapter implements CompletionAdapter using OpenAI's chat
// completions API.
type OpenAIAdapter struct {
	client *openai.Client
	config Config
}

func NewOpenAIAdapter(config Config) *OpenAIAdapter {
	return &OpenAIAdapter{
		client: openai.NewClient(config.APIKey),
		config: config,
	}
}

func (a *OpenAIAdapter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	model := a.config.Model
	if model == "" {
		model = openai.GPT4o
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		log.Warn().Err(err).Dur("took", duration).Msg("openai chat completion failed")
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: no response choices")
	}

	log.Debug().Dur("took", duration).Str("model", model).Msg("summarization completed")
	return resp.Choices[0].Message.Content, nil
}
