package job

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/recmeet/recmeet/internal/queue"
)

// Intake accepts an uploaded audio reference and hands it off to the task
// queue. It never transcribes anything itself; the caller gets a job handle
// back immediately and polls for status.
type Intake struct {
	jobs      *Store
	publisher queue.Publisher
	stat      func(string) (os.FileInfo, error)
	now       func() time.Time
}

func NewIntake(jobs *Store, publisher queue.Publisher) *Intake {
	return &Intake{
		jobs:      jobs,
		publisher: publisher,
		stat:      os.Stat,
		now:       time.Now,
	}
}

// Enqueue validates that the audio reference exists, records a queued job
// and publishes the processing message. Re-processing the same audioRef is
// safe: every run produces a new record under a new timestamp key.
func (i *Intake) Enqueue(ctx context.Context, audioRef, originalFilename string) (Job, error) {
	if _, err := i.stat(audioRef); err != nil {
		return Job{}, fmt.Errorf("audio reference %s: %w", audioRef, err)
	}

	now := i.now()
	j := Job{
		ID:               uuid.NewString(),
		AudioRef:         audioRef,
		OriginalFilename: originalFilename,
		Status:           StatusQueued,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	i.jobs.Add(j)

	msg := queue.Message{
		JobID:            j.ID,
		AudioRef:         audioRef,
		OriginalFilename: originalFilename,
	}
	if err := i.publisher.Publish(ctx, msg); err != nil {
		i.jobs.MarkFailed(j.ID, err.Error())
		return Job{}, fmt.Errorf("publish job %s: %w", j.ID, err)
	}

	log.Info().Str("job_id", j.ID).Str("audio_ref", audioRef).Str("filename", originalFilename).Msg("job queued")
	return j, nil
}
