package replicated

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for development and tests. It honors
// the same contract as the JetStream backend: subscribers receive the
// current value on subscribe, then every write in order. A single dispatch
// goroutine serializes deliveries so per-key ordering holds across
// concurrent writers.
type MemoryStore struct {
	mu      sync.Mutex
	values  map[string][]byte
	subs    map[string]map[int]func([]byte)
	nextSub int

	deliveries chan delivery
	done       chan struct{}
	closeOnce  sync.Once
}

type delivery struct {
	fns   []func([]byte)
	value []byte
}

// Verify that MemoryStore implements the Store interface
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a memory store and starts its dispatcher.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		values:     make(map[string][]byte),
		subs:       make(map[string]map[int]func([]byte)),
		deliveries: make(chan delivery, 256),
		done:       make(chan struct{}),
	}
	go s.dispatch()
	return s
}

func (s *MemoryStore) dispatch() {
	for {
		select {
		case <-s.done:
			return
		case d := <-s.deliveries:
			for _, fn := range d.fns {
				fn(d.value)
			}
		}
	}
}

// Write stores a copy of the value and fans it out to subscribers of key.
func (s *MemoryStore) Write(ctx context.Context, key string, value []byte) error {
	stored := append([]byte(nil), value...)

	s.mu.Lock()
	s.values[key] = stored
	var fns []func([]byte)
	for _, fn := range s.subs[key] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	if len(fns) > 0 {
		select {
		case s.deliveries <- delivery{fns: fns, value: stored}:
		case <-s.done:
		}
	}
	return nil
}

// ReadOnce returns the current value for key.
func (s *MemoryStore) ReadOnce(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Remove deletes the key. Subscribers are not notified of removals,
// matching the put-only subscription of the KV backend.
func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Subscribe registers onChange for key, delivering the current value first.
func (s *MemoryStore) Subscribe(ctx context.Context, key string, onChange func(value []byte)) (func(), error) {
	s.mu.Lock()
	if s.subs[key] == nil {
		s.subs[key] = make(map[int]func([]byte))
	}
	id := s.nextSub
	s.nextSub++
	s.subs[key][id] = onChange
	current, exists := s.values[key]
	s.mu.Unlock()

	if exists {
		onChange(append([]byte(nil), current...))
	}

	stop := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[key], id)
	}
	return stop, nil
}

// Close stops the dispatcher.
func (s *MemoryStore) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
