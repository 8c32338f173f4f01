package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrPersistence marks a failed record write. The job aborts; no
// notification is sent for an unpersisted result.
var ErrPersistence = errors.New("persistence failed")

// ObjectStore is the durable object store collaborator. Eventual
// consistency is acceptable; a successful Put is not guaranteed to be
// immediately visible to Exists or Get.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// VerifyConfig bounds the post-write visibility poll. Tests use zero-delay
// variants.
type VerifyConfig struct {
	Attempts int
	Interval time.Duration
}

func DefaultVerifyConfig() VerifyConfig {
	return VerifyConfig{Attempts: 5, Interval: 2 * time.Second}
}

// Persister writes meeting records and confirms their visibility. The
// verify bounds are read per call so config reloads apply to the next job.
type Persister struct {
	objects ObjectStore
	verify  func() VerifyConfig
	now     func() time.Time
}

func NewPersister(objects ObjectStore, verify func() VerifyConfig) *Persister {
	return &Persister{objects: objects, verify: verify, now: time.Now}
}

// Persist writes the record as one atomic object write and returns its key.
func (p *Persister) Persist(ctx context.Context, rec *MeetingRecord) (string, error) {
	created := rec.CreatedAt
	if created.IsZero() {
		created = p.now()
	}
	key := KeyFor(created)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: encode record: %v", ErrPersistence, err)
	}
	if err := p.objects.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("%w: put %s: %v", ErrPersistence, key, err)
	}

	log.Info().Str("key", key).Msg("meeting record persisted")
	return key, nil
}

// Verify polls until the written object is readable or attempts run out.
// Exhaustion is downgraded to a warning: the store will converge, listings
// may just transiently miss the record.
func (p *Persister) Verify(ctx context.Context, key string) bool {
	verify := p.verify()
	for attempt := 1; attempt <= verify.Attempts; attempt++ {
		ok, err := p.objects.Exists(ctx, key)
		if err == nil && ok {
			return true
		}
		if err != nil {
			log.Debug().Err(err).Str("key", key).Int("attempt", attempt).Msg("visibility check errored")
		}

		if attempt == verify.Attempts {
			break
		}
		select {
		case <-time.After(verify.Interval):
		case <-ctx.Done():
			log.Warn().Str("key", key).Msg("visibility poll cancelled")
			return false
		}
	}

	log.Warn().Str("key", key).Int("attempts", verify.Attempts).Msg("record not yet visible after write; store should converge")
	return false
}
