package queue

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Memory is an in-process queue: a buffered channel drained by worker
// goroutines. Used in local mode and tests; unlike the hosted queue it does
// not redeliver failed messages.
type Memory struct {
	messages chan Message
	handler  Handler
	workers  int
	wg       sync.WaitGroup
}

func NewMemory(workers int, handler Handler) *Memory {
	if workers < 1 {
		workers = 1
	}
	return &Memory{
		messages: make(chan Message, 100),
		handler:  handler,
		workers:  workers,
	}
}

func (q *Memory) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

func (q *Memory) Publish(ctx context.Context, msg Message) error {
	select {
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Memory) worker(id int) {
	defer q.wg.Done()
	log.Debug().Int("worker", id).Msg("queue worker started")

	for msg := range q.messages {
		if err := q.handler.Process(context.Background(), msg); err != nil {
			log.Error().Err(err).Str("job_id", msg.JobID).Msg("message processing failed")
		}
	}
}

// Shutdown stops accepting messages and waits for in-flight jobs.
func (q *Memory) Shutdown() {
	close(q.messages)
	q.wg.Wait()
}
