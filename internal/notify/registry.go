package notify

import "sync"

// MemoryRegistry is a mutex-guarded in-process subscriber set.
type MemoryRegistry struct {
	mu   sync.Mutex
	subs map[string]Subscriber
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{subs: make(map[string]Subscriber)}
}

func (r *MemoryRegistry) Register(sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.Token] = sub
}

func (r *MemoryRegistry) Unregister(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, token)
}

func (r *MemoryRegistry) All() []Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := make([]Subscriber, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	return subs
}
