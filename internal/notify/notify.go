package notify

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Event is the lightweight completion payload pushed to subscribers.
type Event struct {
	ResultKey string `json:"resultKey"`
}

// Subscriber is a registered push destination. Token is the unique key.
type Subscriber struct {
	Token        string    `json:"token"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Registry holds the subscriber set. Membership is all that matters;
// iteration order is unspecified. Unregistering an absent token is a no-op,
// so concurrent pruning is safe.
type Registry interface {
	Register(sub Subscriber)
	Unregister(token string)
	All() []Subscriber
}

// Pusher sends one completion event to one token.
type Pusher interface {
	Send(ctx context.Context, token string, event Event) error
}

// PermanentError marks a push failure that will never succeed for this
// token; the fanout prunes the subscriber.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	if e == nil || e.Err == nil {
		return "permanently invalid token"
	}
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}

// Fanout broadcasts completion events to every current subscriber.
type Fanout struct {
	registry Registry
	pusher   Pusher
}

func NewFanout(registry Registry, pusher Pusher) *Fanout {
	return &Fanout{registry: registry, pusher: pusher}
}

// NotifyAll sends the event to every registered token. Sends are
// independent: one token's failure never aborts the rest. Permanently
// invalid tokens are pruned; transient failures are logged and the token
// kept, so the next completed job retries delivery naturally.
func (f *Fanout) NotifyAll(ctx context.Context, event Event) {
	subs := f.registry.All()
	if len(subs) == 0 {
		return
	}

	pruned := 0
	for _, sub := range subs {
		err := f.pusher.Send(ctx, sub.Token, event)
		if err == nil {
			continue
		}
		if IsPermanent(err) {
			f.registry.Unregister(sub.Token)
			pruned++
			log.Info().Str("token", sub.Token).Msg("pruned permanently invalid subscriber")
			continue
		}
		log.Warn().Err(err).Str("token", sub.Token).Msg("push failed; keeping subscriber")
	}

	log.Info().Str("result_key", event.ResultKey).Int("subscribers", len(subs)).Int("pruned", pruned).Msg("completion fanout finished")
}

// Nop is a Pusher that does absolutely nothing. Useful when push
// notifications are disabled or in tests.
type Nop struct{}

func (Nop) Send(ctx context.Context, token string, event Event) error { return nil }
