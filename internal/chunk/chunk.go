package chunk

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned when a plan is requested with non-positive
// duration or chunk length.
var ErrInvalidInput = errors.New("invalid chunk input")

// Chunk is a planned time range [Start, End) in seconds. Index is the
// processing order.
type Chunk struct {
	Index int
	Start float64
	End   float64
}

func (c Chunk) Duration() float64 {
	return c.End - c.Start
}

// Plan splits [0, totalSeconds) into consecutive ranges of at most
// maxSeconds each, with no gaps or overlaps. The final chunk absorbs the
// remainder and may be shorter than maxSeconds.
func Plan(totalSeconds, maxSeconds float64) ([]Chunk, error) {
	if totalSeconds <= 0 {
		return nil, fmt.Errorf("%w: total duration %.3fs", ErrInvalidInput, totalSeconds)
	}
	if maxSeconds <= 0 {
		return nil, fmt.Errorf("%w: max chunk length %.3fs", ErrInvalidInput, maxSeconds)
	}

	count := int(math.Ceil(totalSeconds / maxSeconds))
	chunks := make([]Chunk, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * maxSeconds
		end := start + maxSeconds
		if end > totalSeconds {
			end = totalSeconds
		}
		chunks = append(chunks, Chunk{Index: i, Start: start, End: end})
	}
	return chunks, nil
}
