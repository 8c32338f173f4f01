package transcriber

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/recmeet/recmeet/internal/chunk"
)

type segmentResult struct {
	text string
	lang string
	err  error
}

// fakeSource writes real temp files so the engine's cleanup can be observed.
type fakeSource struct {
	dir      string
	created  []string
	failFrom int // extraction fails from this call index on, -1 to disable
}

func newFakeSource(t *testing.T) *fakeSource {
	t.Helper()
	return &fakeSource{dir: t.TempDir(), failFrom: -1}
}

func (s *fakeSource) ProbeDuration(ctx context.Context, path string) (float64, error) {
	return 0, errors.New("not used")
}

func (s *fakeSource) ExtractRange(ctx context.Context, path string, start, end float64) (string, error) {
	call := len(s.created)
	if s.failFrom >= 0 && call >= s.failFrom {
		return "", fmt.Errorf("bad input at %.0f", start)
	}
	out := filepath.Join(s.dir, fmt.Sprintf("segment-%d.wav", call))
	if err := os.WriteFile(out, []byte("wav"), 0o600); err != nil {
		return "", err
	}
	s.created = append(s.created, out)
	return out, nil
}

type fakeAdapter struct {
	results []segmentResult
	calls   int
}

func (a *fakeAdapter) TranscribeSegment(ctx context.Context, path string) (string, string, error) {
	if a.calls >= len(a.results) {
		return "", "", fmt.Errorf("unexpected call %d", a.calls)
	}
	r := a.results[a.calls]
	a.calls++
	return r.text, r.lang, r.err
}

func mustPlan(t *testing.T, total, max float64) []chunk.Chunk {
	t.Helper()
	plan, err := chunk.Plan(total, max)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	return plan
}

func TestTranscribeAggregatesInIndexOrder(t *testing.T) {
	source := newFakeSource(t)
	adapter := &fakeAdapter{results: []segmentResult{
		{text: "hello ", lang: "en"},
		{text: "world ", lang: "en"},
		{text: "!", lang: "en"},
	}}
	engine := NewEngineWithAdapter(adapter, source)

	transcript, lang, err := engine.Transcribe(context.Background(), "meeting.m4a", mustPlan(t, 500, 240))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if transcript != "hello  world  !" {
		t.Errorf("transcript = %q, want %q", transcript, "hello  world  !")
	}
	if lang != "en" {
		t.Errorf("language = %q, want en", lang)
	}
	if adapter.calls != 3 {
		t.Errorf("adapter called %d times, want 3", adapter.calls)
	}
}

// The record's language comes from the first chunk only; later chunks never
// override it.
func TestTranscribeLanguageFromFirstChunk(t *testing.T) {
	source := newFakeSource(t)
	adapter := &fakeAdapter{results: []segmentResult{
		{text: "bonjour", lang: "fr"},
		{text: "hello", lang: "en"},
		{text: "hola", lang: "es"},
	}}
	engine := NewEngineWithAdapter(adapter, source)

	_, lang, err := engine.Transcribe(context.Background(), "meeting.m4a", mustPlan(t, 180, 60))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if lang != "fr" {
		t.Errorf("language = %q, want fr (first chunk)", lang)
	}
}

func TestTranscribeRemovesSegmentsOnSuccessAndFailure(t *testing.T) {
	source := newFakeSource(t)
	adapter := &fakeAdapter{results: []segmentResult{
		{text: "one", lang: "en"},
		{err: errors.New("engine hiccup")},
	}}
	engine := NewEngineWithAdapter(adapter, source)

	_, _, err := engine.Transcribe(context.Background(), "meeting.m4a", mustPlan(t, 120, 60))
	if err == nil {
		t.Fatal("expected transcription failure")
	}

	if len(source.created) != 2 {
		t.Fatalf("expected 2 extracted segments, got %d", len(source.created))
	}
	for _, path := range source.created {
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			t.Errorf("segment %s was not removed", path)
		}
	}
}

func TestTranscribeExtractionFailureCarriesIndex(t *testing.T) {
	source := newFakeSource(t)
	source.failFrom = 1
	adapter := &fakeAdapter{results: []segmentResult{{text: "one", lang: "en"}}}
	engine := NewEngineWithAdapter(adapter, source)

	transcript, _, err := engine.Transcribe(context.Background(), "meeting.m4a", mustPlan(t, 180, 60))
	if transcript != "" {
		t.Errorf("partial transcript returned: %q", transcript)
	}

	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if extractErr.Index != 1 {
		t.Errorf("failed chunk index = %d, want 1", extractErr.Index)
	}
}

func TestTranscribeTranscriptionFailureCarriesIndex(t *testing.T) {
	source := newFakeSource(t)
	adapter := &fakeAdapter{results: []segmentResult{
		{text: "one", lang: "en"},
		{text: "two", lang: "en"},
		{err: errors.New("quota exceeded")},
	}}
	engine := NewEngineWithAdapter(adapter, source)

	_, _, err := engine.Transcribe(context.Background(), "meeting.m4a", mustPlan(t, 180, 60))

	var transcribeErr *TranscriptionError
	if !errors.As(err, &transcribeErr) {
		t.Fatalf("expected TranscriptionError, got %v", err)
	}
	if transcribeErr.Index != 2 {
		t.Errorf("failed chunk index = %d, want 2", transcribeErr.Index)
	}
}

func TestNewEngineFailsFast(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	tests := []struct {
		name   string
		config Config
	}{
		{"unknown provider", Config{Provider: "made-up"}},
		{"openai without key", Config{Provider: "openai"}},
		{"whisper.cpp without model", Config{Provider: "whisper.cpp"}},
		{"whisper.cpp missing model file", Config{Provider: "whisper.cpp", ModelPath: "/nonexistent/model.bin"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewEngine(tc.config, newFakeSource(t)); !errors.Is(err, ErrUnavailable) {
				t.Errorf("NewEngine = %v, want ErrUnavailable", err)
			}
		})
	}
}

func TestNewEngineOpenAI(t *testing.T) {
	engine, err := NewEngine(Config{Provider: "openai", APIKey: "sk-test"}, newFakeSource(t))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if _, ok := engine.adapter.(*OpenAIAdapter); !ok {
		t.Error("expected OpenAIAdapter")
	}
}

func TestDetectedLanguage(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   string
	}{
		{"plain", "whisper_full: auto-detected language: it (p = 0.97)\n", "it"},
		{"end of output", "auto-detected language: pt", "pt"},
		{"absent", "whisper_init_from_file: loading model\n", "en"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectedLanguage(tc.stderr); got != tc.want {
				t.Errorf("detectedLanguage = %q, want %q", got, tc.want)
			}
		})
	}
}
