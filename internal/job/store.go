package job

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrNotFound = errors.New("job not found")

// Store is the in-memory job registry backing status lookups.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

func (s *Store) Add(j Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := j
	s.jobs[j.ID] = &copied
}

func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *j, nil
}

func (s *Store) All() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, *j)
	}
	return jobs
}

// SetStatus applies a lifecycle transition. Invalid transitions (including
// any regression) are rejected.
func (s *Store) SetStatus(id string, status Status) error {
	return s.update(id, status, func(j *Job) {})
}

// MarkDone finalizes a job with its result key.
func (s *Store) MarkDone(id, resultKey string) error {
	return s.update(id, StatusDone, func(j *Job) {
		j.ResultKey = resultKey
	})
}

// MarkFailed finalizes a job with its failure reason.
func (s *Store) MarkFailed(id, reason string) error {
	return s.update(id, StatusFailed, func(j *Job) {
		j.Error = reason
	})
}

func (s *Store) update(id string, status Status, apply func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !validTransition(j.Status, status) {
		return fmt.Errorf("invalid transition: %s -> %s", j.Status, status)
	}

	j.Status = status
	j.UpdatedAt = time.Now()
	apply(j)
	return nil
}
