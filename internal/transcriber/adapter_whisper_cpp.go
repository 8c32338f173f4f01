package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// WhisperCppAdapter implements SegmentAdapter via local whisper.cpp
// transcription through the whisper-cli binary.
type WhisperCppAdapter struct {
	modelPath string
	language  string
	threads   int
}

func NewWhisperCppAdapter(config Config) *WhisperCppAdapter {
	return &WhisperCppAdapter{
		modelPath: config.ModelPath,
		language:  config.Language,
		threads:   config.Threads,
	}
}

func (a *WhisperCppAdapter) TranscribeSegment(ctx context.Context, path string) (string, string, error) {
	whisperPath, err := exec.LookPath("whisper-cli")
	if err != nil {
		return "", "", fmt.Errorf("whisper-cli not found: install whisper.cpp first")
	}

	lang := a.language
	if lang == "" {
		lang = "auto"
	}

	args := []string{
		"-m", a.modelPath,
		"-l", lang,
		"-nt", // no timestamps
		"-np", // no progress
		"-f", path,
	}
	if a.threads > 0 {
		args = append(args, "-t", fmt.Sprintf("%d", a.threads))
	}

	cmd := exec.CommandContext(ctx, whisperPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		log.Warn().Err(err).Dur("took", duration).Str("stderr", stderr.String()).Msg("whisper-cli failed")
		return "", "", fmt.Errorf("whisper-cli failed: %w", err)
	}

	text := strings.TrimSpace(stdout.String())
	detected := a.language
	if detected == "" {
		detected = detectedLanguage(stderr.String())
	}
	return text, detected, nil
}

// detectedLanguage parses whisper.cpp's "auto-detected language: xx" line
// from stderr. Falls back to "en" when auto-detection output is absent.
func detectedLanguage(stderr string) string {
	const marker = "auto-detected language: "
	idx := strings.Index(stderr, marker)
	if idx < 0 {
		return "en"
	}
	rest := stderr[idx+len(marker):]
	if cut := strings.IndexAny(rest, " \n("); cut >= 0 {
		rest = rest[:cut]
	}
	if rest = strings.TrimSpace(rest); rest != "" {
		return rest
	}
	return "en"
}
