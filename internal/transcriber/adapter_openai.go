package transcriber

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// OpenAIAdapter implements SegmentAdapter using OpenAI's Whisper API.
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

func (a *OpenAIAdapter) TranscribeSegment(ctx context.Context, path string) (string, string, error) {
	model := a.config.Model
	if model == "" {
		model = openai.Whisper1
	}

	// verbose_json carries the detected language alongside the text
	req := openai.AudioRequest{
		Model:    model,
		FilePath: path,
		Language: a.config.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}

	start := time.Now()
	resp, err := a.client.CreateTranscription(ctx, req)
	duration := time.Since(start)

	if err != nil {
		log.Warn().Err(err).Dur("took", duration).Msg("openai transcription failed")
		return "", "", fmt.Errorf("openai transcription: %w", err)
	}

	lang := resp.Language
	if lang == "" {
		lang = a.config.Language
	}
	return resp.Text, lang, nil
}
