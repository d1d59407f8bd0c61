package rng

import "sync"

// Registry hands out one stream per caller-chosen identifier, all rooted at the
// same seed. Distinct identifiers ("dropout", "init", "data") never share draws.
type Registry struct {
	seed    uint64
	mu      sync.Mutex
	streams map[string]*Stream
}

// NewRegistry creates an empty registry for seed.
func NewRegistry(seed uint64) *Registry {
	return &Registry{
		seed:    seed,
		streams: make(map[string]*Stream),
	}
}

// Seed returns the registry seed.
func (r *Registry) Seed() uint64 {
	return r.seed
}

// Stream returns the stream registered under id, creating it on first use.
// Repeated calls return the same *Stream, so its fork counter keeps advancing.
func (r *Registry) Stream(id string) *Stream {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.streams[id]; ok {
		return s
	}
	s := New(r.seed, id)
	r.streams[id] = s
	return s
}

// IDs returns the identifiers created so far, in no particular order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.streams))
	for id := range r.streams {
		ids = append(ids, id)
	}
	return ids
}
