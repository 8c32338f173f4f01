package transcriber

import (
	"context"
	"fmt"
	"os"

	"github.com/recmeet/recmeet/internal/media"
)

// SegmentAdapter is the interface for speech-to-text backends. It
// transcribes one standalone audio segment and reports the detected
// language tag.
type SegmentAdapter interface {
	TranscribeSegment(ctx context.Context, path string) (text, languageTag string, err error)
}

// Config selects and configures the transcription backend.
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	ModelPath string
	Language  string
	Threads   int
}

func DefaultConfig() Config {
	return Config{
		Provider: "openai",
		Model:    "whisper-1",
	}
}

// Engine transcribes a recording chunk by chunk. It is constructed once at
// process start and passed by reference into the pipeline; constructor
// failure surfaces as ErrUnavailable.
type Engine struct {
	adapter SegmentAdapter
	source  media.Source
}

func NewEngine(config Config, source media.Source) (*Engine, error) {
	var adapter SegmentAdapter

	switch config.Provider {
	case "openai":
		apiKey := config.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("%w: OpenAI API key required", ErrUnavailable)
		}
		config.APIKey = apiKey
		adapter = NewOpenAIAdapter(config)

	case "whisper.cpp":
		if config.ModelPath == "" {
			return nil, fmt.Errorf("%w: whisper.cpp model path required", ErrUnavailable)
		}
		if _, err := os.Stat(config.ModelPath); err != nil {
			return nil, fmt.Errorf("%w: model file %s: %v", ErrUnavailable, config.ModelPath, err)
		}
		adapter = NewWhisperCppAdapter(config)

	default:
		return nil, fmt.Errorf("%w: unsupported provider %q", ErrUnavailable, config.Provider)
	}

	return NewEngineWithAdapter(adapter, source), nil
}

// NewEngineWithAdapter wires an explicit adapter, bypassing the provider
// switch. Tests use it with fakes.
func NewEngineWithAdapter(adapter SegmentAdapter, source media.Source) *Engine {
	return &Engine{adapter: adapter, source: source}
}
