package summarize

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrSummarization marks summarization engine failures (timeout, quota,
// malformed response). The job aborts; no partial record is written.
var ErrSummarization = errors.New("summarization failed")

// CompletionAdapter is the interface for text-summarization engines. One
// call per job, no streaming.
type CompletionAdapter interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Composer turns a raw transcript into a cleaned transcript and a
// structured summary document.
type Composer struct {
	adapter CompletionAdapter
}

func NewComposer(adapter CompletionAdapter) *Composer {
	return &Composer{adapter: adapter}
}

// Compose sends one summarization request and splits the response into the
// cleaned transcript and the structured summary. The instruction set is
// selected by the detected language tag(s).
func (c *Composer) Compose(ctx context.Context, transcript, languages string) (string, string, error) {
	target := targetLanguage(languages)
	headers := headersFor(target)

	doc, err := c.adapter.Complete(ctx, buildSystemPrompt(target), buildUserPrompt(transcript, headers))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrSummarization, err)
	}

	cleaned, summary := splitDocument(strings.TrimSpace(doc), headers.Summary)
	return cleaned, summary, nil
}

var transcriptMarker = regexp.MustCompile(`(?i)\*\*Transcript\*\*\s*`)

// splitDocument locates the transcript marker and the localized summary
// marker. Text between them is the cleaned transcript, text from the
// summary marker onward is the summary. When either marker is missing the
// whole document is treated as the summary; when the summary marker comes
// first the transcript is empty and the summary still starts at its marker.
func splitDocument(doc, summaryHeader string) (string, string) {
	summaryMarker := regexp.MustCompile(`(?i)\*\*` + regexp.QuoteMeta(summaryHeader) + `\*\*`)

	tLoc := transcriptMarker.FindStringIndex(doc)
	sLoc := summaryMarker.FindStringIndex(doc)
	if tLoc == nil || sLoc == nil {
		return "", doc
	}

	cleaned := ""
	if sLoc[0] > tLoc[1] {
		cleaned = strings.TrimSpace(doc[tLoc[1]:sLoc[0]])
	}
	summary := strings.TrimSpace(doc[sLoc[0]:])
	return cleaned, summary
}
