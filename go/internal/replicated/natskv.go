package replicated

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// KVConfig holds connection settings for the JetStream key-value backend.
type KVConfig struct {
	URL           string
	Bucket        string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultKVConfig returns the default JetStream KV configuration.
func DefaultKVConfig() KVConfig {
	return KVConfig{
		URL:           nats.DefaultURL,
		Bucket:        "HACKATHON_SESSIONS",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// KVStore implements Store on top of a NATS JetStream key-value bucket.
// JetStream guarantees per-key ordering and whole-value atomicity, which is
// exactly the contract the synchronization core assumes.
type KVStore struct {
	nc *nats.Conn
	kv jetstream.KeyValue
}

// Verify that KVStore implements the Store interface
var _ Store = (*KVStore)(nil)

// NewKVStore connects to NATS and creates or binds the session bucket.
func NewKVStore(ctx context.Context, config KVConfig) (*KVStore, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      config.Bucket,
		Description: "Hackathon session documents",
		History:     1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create KV bucket: %w", err)
	}

	return &KVStore{nc: nc, kv: kv}, nil
}

// Write replaces the whole value under key.
func (s *KVStore) Write(ctx context.Context, key string, value []byte) error {
	if _, err := s.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// ReadOnce fetches the current value for key.
func (s *KVStore) ReadOnce(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return entry.Value(), true, nil
}

// Remove deletes the key.
func (s *KVStore) Remove(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Subscribe watches the key: the current value is delivered first (when the
// key exists), then every subsequent put in server order.
func (s *KVStore) Subscribe(ctx context.Context, key string, onChange func(value []byte)) (func(), error) {
	watcher, err := s.kv.Watch(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", key, err)
	}

	go func() {
		for entry := range watcher.Updates() {
			if entry == nil {
				// End-of-initial-data marker.
				continue
			}
			if entry.Operation() != jetstream.KeyValuePut {
				continue
			}
			onChange(entry.Value())
		}
	}()

	stop := func() {
		if err := watcher.Stop(); err != nil {
			log.Error().Err(err).Str("key", key).Msg("failed to stop watcher")
		}
	}
	return stop, nil
}

// Close tears down the NATS connection.
func (s *KVStore) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}
