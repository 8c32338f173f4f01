package transcriber

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/recmeet/recmeet/internal/chunk"
)

// Transcribe runs every planned chunk in index order and aggregates the
// results: texts joined with a single space, language tag taken from the
// first chunk only and never re-evaluated. Chunks are sequential so peak
// memory stays bounded regardless of recording length.
func (e *Engine) Transcribe(ctx context.Context, audioPath string, plan []chunk.Chunk) (string, string, error) {
	texts := make([]string, 0, len(plan))
	languageTag := ""

	for _, c := range plan {
		text, lang, err := e.transcribeChunk(ctx, audioPath, c)
		if err != nil {
			return "", "", err
		}
		texts = append(texts, text)
		if c.Index == 0 {
			languageTag = lang
		}
	}

	return strings.Join(texts, " "), languageTag, nil
}

func (e *Engine) transcribeChunk(ctx context.Context, audioPath string, c chunk.Chunk) (string, string, error) {
	segment, err := e.source.ExtractRange(ctx, audioPath, c.Start, c.End)
	if err != nil {
		return "", "", &ExtractionError{Index: c.Index, Err: err}
	}
	defer os.Remove(segment)

	start := time.Now()
	text, lang, err := e.adapter.TranscribeSegment(ctx, segment)
	if err != nil {
		return "", "", &TranscriptionError{Index: c.Index, Err: err}
	}

	log.Debug().
		Int("chunk", c.Index).
		Float64("start", c.Start).
		Float64("end", c.End).
		Str("language", lang).
		Dur("took", time.Since(start)).
		Msg("chunk transcribed")
	return text, lang, nil
}
