package transcriber

import (
	"errors"
	"fmt"
)

// ErrUnavailable means the speech-to-text engine could not be constructed.
// Every call fails fast with it instead of attempting per-call recovery.
var ErrUnavailable = errors.New("transcription engine unavailable")

// ExtractionError marks a failed segment extraction. The whole job fails;
// partial transcripts are discarded.
type ExtractionError struct {
	Index int
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract chunk %d: %v", e.Index, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// TranscriptionError marks a failed speech-to-text call for one chunk.
type TranscriptionError struct {
	Index int
	Err   error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcribe chunk %d: %v", e.Index, e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
