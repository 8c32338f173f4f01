package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

// fakePusher returns a scripted error per token. Delivery order is
// unspecified, so assertions compare sets.
type fakePusher struct {
	mu        sync.Mutex
	errs      map[string]error
	attempted []string
}

func (p *fakePusher) Send(ctx context.Context, token string, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempted = append(p.attempted, token)
	return p.errs[token]
}

func (p *fakePusher) attemptedSet() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := append([]string(nil), p.attempted...)
	sort.Strings(out)
	return out
}

func register(r Registry, tokens ...string) {
	for _, tok := range tokens {
		r.Register(Subscriber{Token: tok, RegisteredAt: time.Now()})
	}
}

func tokensOf(subs []Subscriber) []string {
	out := make([]string, 0, len(subs))
	for _, s := range subs {
		out = append(out, s.Token)
	}
	sort.Strings(out)
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNotifyAllReachesEverySubscriber(t *testing.T) {
	registry := NewMemoryRegistry()
	register(registry, "t1", "t2", "t3")
	pusher := &fakePusher{errs: map[string]error{}}

	NewFanout(registry, pusher).NotifyAll(context.Background(), Event{ResultKey: "meetings/meeting_2025-01-01_00-00-00.json"})

	if got := pusher.attemptedSet(); !equal(got, []string{"t1", "t2", "t3"}) {
		t.Errorf("attempted = %v", got)
	}
	if got := tokensOf(registry.All()); !equal(got, []string{"t1", "t2", "t3"}) {
		t.Errorf("registry after fanout = %v", got)
	}
}

// One permanently invalid token: all other sends still happen and only that
// token is removed afterward.
func TestNotifyAllPrunesOnlyPermanentlyInvalidToken(t *testing.T) {
	registry := NewMemoryRegistry()
	register(registry, "t1", "t2", "t3", "t4")
	pusher := &fakePusher{errs: map[string]error{
		"t2": &PermanentError{Err: errors.New("unregistered")},
	}}

	NewFanout(registry, pusher).NotifyAll(context.Background(), Event{ResultKey: "k"})

	if got := pusher.attemptedSet(); !equal(got, []string{"t1", "t2", "t3", "t4"}) {
		t.Errorf("attempted = %v, want all four", got)
	}
	if got := tokensOf(registry.All()); !equal(got, []string{"t1", "t3", "t4"}) {
		t.Errorf("registry after fanout = %v, want t2 pruned", got)
	}
}

func TestNotifyAllKeepsSubscriberOnTransientError(t *testing.T) {
	registry := NewMemoryRegistry()
	register(registry, "t1", "t2")
	pusher := &fakePusher{errs: map[string]error{
		"t1": errors.New("push service timeout"),
	}}

	NewFanout(registry, pusher).NotifyAll(context.Background(), Event{ResultKey: "k"})

	if got := tokensOf(registry.All()); !equal(got, []string{"t1", "t2"}) {
		t.Errorf("registry after fanout = %v, transient failures must not prune", got)
	}
}

func TestNotifyAllEmptySetIsNoOp(t *testing.T) {
	pusher := &fakePusher{}
	NewFanout(NewMemoryRegistry(), pusher).NotifyAll(context.Background(), Event{ResultKey: "k"})

	if len(pusher.attemptedSet()) != 0 {
		t.Errorf("attempted = %v, want none", pusher.attempted)
	}
}

func TestRegistrySetSemantics(t *testing.T) {
	registry := NewMemoryRegistry()
	register(registry, "t1", "t1", "t1")

	if got := registry.All(); len(got) != 1 {
		t.Errorf("registry holds %d subscribers, want 1", len(got))
	}

	// deleting an absent token is a no-op
	registry.Unregister("t1")
	registry.Unregister("t1")
	if got := registry.All(); len(got) != 0 {
		t.Errorf("registry holds %d subscribers, want 0", len(got))
	}
}

func TestIsPermanent(t *testing.T) {
	cause := errors.New("token gone")
	wrapped := &PermanentError{Err: cause}

	if !IsPermanent(wrapped) {
		t.Error("PermanentError should classify as permanent")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("PermanentError should unwrap to its cause")
	}
	if IsPermanent(errors.New("timeout")) {
		t.Error("plain errors are not permanent")
	}
}
