package replicated

import "context"

// Store is the replicated key-value collaborator the synchronization core
// consumes. Implementations must deliver every write to every subscriber of
// a key in the order the store received them, and writes are atomic at
// whole-value granularity (no torn values visible to subscribers).
type Store interface {
	// Write replaces the whole value under key. Best effort; the value is
	// eventually visible to all subscribers of key.
	Write(ctx context.Context, key string, value []byte) error

	// Subscribe delivers the current value immediately (when one exists),
	// then every subsequent write, until the returned stop function is
	// called or ctx is cancelled.
	Subscribe(ctx context.Context, key string, onChange func(value []byte)) (stop func(), err error)

	// ReadOnce fetches the current value. The second return is false when
	// the key is absent.
	ReadOnce(ctx context.Context, key string) ([]byte, bool, error)

	// Remove deletes the key.
	Remove(ctx context.Context, key string) error
}
