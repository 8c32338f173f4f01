package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/recmeet/recmeet/internal/chunk"
	"github.com/recmeet/recmeet/internal/job"
	"github.com/recmeet/recmeet/internal/media"
	"github.com/recmeet/recmeet/internal/notify"
	"github.com/recmeet/recmeet/internal/queue"
	"github.com/recmeet/recmeet/internal/store"
	"github.com/recmeet/recmeet/internal/summarize"
	"github.com/recmeet/recmeet/internal/transcriber"
)

// Processor runs one job end-to-end: plan, transcribe chunk by chunk,
// compose, persist, verify, notify. Everything is sequential within a job;
// concurrency comes from running multiple jobs on separate workers. The
// chunk bound is read per job so config reloads apply to the next one.
type Processor struct {
	source          media.Source
	engine          *transcriber.Engine
	composer        *summarize.Composer
	persister       *store.Persister
	jobs            *job.Store
	fanout          *notify.Fanout
	maxChunkSeconds func() float64
	now             func() time.Time
}

func NewProcessor(
	source media.Source,
	engine *transcriber.Engine,
	composer *summarize.Composer,
	persister *store.Persister,
	jobs *job.Store,
	fanout *notify.Fanout,
	maxChunkSeconds func() float64,
) *Processor {
	return &Processor{
		source:          source,
		engine:          engine,
		composer:        composer,
		persister:       persister,
		jobs:            jobs,
		fanout:          fanout,
		maxChunkSeconds: maxChunkSeconds,
		now:             time.Now,
	}
}

// Process implements queue.Handler. A delivered message runs to completion
// or failure; redelivery of the same message simply produces another record
// under a fresh timestamp key.
func (p *Processor) Process(ctx context.Context, msg queue.Message) error {
	logger := log.With().Str("job_id", msg.JobID).Str("audio_ref", msg.AudioRef).Logger()

	// a redelivered message may reference a job this instance never saw
	if err := p.jobs.SetStatus(msg.JobID, job.StatusProcessing); err != nil {
		logger.Debug().Err(err).Msg("job not tracked locally")
	}

	key, err := p.run(ctx, msg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("job failed")
		if markErr := p.jobs.MarkFailed(msg.JobID, err.Error()); markErr != nil {
			logger.Debug().Err(markErr).Msg("could not record failure")
		}
		return err
	}

	if markErr := p.jobs.MarkDone(msg.JobID, key); markErr != nil {
		logger.Debug().Err(markErr).Msg("could not record completion")
	}
	logger.Info().Str("result_key", key).Msg("job done")
	return nil
}

func (p *Processor) run(ctx context.Context, msg queue.Message, logger zerolog.Logger) (string, error) {
	start := time.Now()

	total, err := p.source.ProbeDuration(ctx, msg.AudioRef)
	if err != nil {
		return "", fmt.Errorf("probe duration: %w", err)
	}

	plan, err := chunk.Plan(total, p.maxChunkSeconds())
	if err != nil {
		return "", err
	}
	logger.Info().Float64("duration_s", total).Int("chunks", len(plan)).Msg("processing recording")

	transcript, languageTag, err := p.engine.Transcribe(ctx, msg.AudioRef, plan)
	if err != nil {
		return "", err
	}

	cleaned, summary, err := p.composer.Compose(ctx, transcript, languageTag)
	if err != nil {
		return "", err
	}

	rec := &store.MeetingRecord{
		Languages:  languageTag,
		Transcript: cleaned,
		Summary:    summary,
		CreatedAt:  p.now(),
	}
	key, err := p.persister.Persist(ctx, rec)
	if err != nil {
		return "", err
	}

	// verification exhaustion is downgraded inside Verify; the job proceeds
	p.persister.Verify(ctx, key)

	p.fanout.NotifyAll(ctx, notify.Event{ResultKey: key})

	logger.Info().Dur("took", time.Since(start)).Msg("pipeline completed")
	return key, nil
}
