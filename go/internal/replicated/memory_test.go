package replicated

import (
	"context"
	"sync"
	"testing"
	"time"
)

func collect(t *testing.T, ch <-chan []byte, n int) [][]byte {
	t.Helper()
	var out [][]byte
	for i := 0; i < n; i++ {
		select {
		case v := <-ch:
			out = append(out, v)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d deliveries", i, n)
		}
	}
	return out
}

func TestMemoryStoreReadOnce(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	_, ok, err := s.ReadOnce(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("ReadOnce(missing) = ok %v err %v, want absent", ok, err)
	}

	if err := s.Write(ctx, "k", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	value, ok, err := s.ReadOnce(ctx, "k")
	if err != nil || !ok || string(value) != "v1" {
		t.Fatalf("ReadOnce = %q ok %v err %v", value, ok, err)
	}
}

func TestMemoryStoreSubscribeDeliversCurrentThenWrites(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	if err := s.Write(ctx, "k", []byte("initial")); err != nil {
		t.Fatal(err)
	}

	ch := make(chan []byte, 16)
	stop, err := s.Subscribe(ctx, "k", func(v []byte) { ch <- v })
	if err != nil {
		t.Fatal(err)
	}
	defer stop()

	s.Write(ctx, "k", []byte("second"))
	s.Write(ctx, "k", []byte("third"))

	got := collect(t, ch, 3)
	want := []string{"initial", "second", "third"}
	for i, w := range want {
		if string(got[i]) != w {
			t.Errorf("delivery %d = %q, want %q", i, got[i], w)
		}
	}
}

func TestMemoryStoreOrderingUnderConcurrentWrites(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	ch := make(chan []byte, 128)
	stop, err := s.Subscribe(ctx, "k", func(v []byte) { ch <- v })
	if err != nil {
		t.Fatal(err)
	}
	defer stop()

	const writes = 50
	var wg sync.WaitGroup
	wg.Add(writes)
	for i := 0; i < writes; i++ {
		go func(i int) {
			defer wg.Done()
			s.Write(ctx, "k", []byte{byte(i)})
		}(i)
	}
	wg.Wait()

	// Order across concurrent writers is unspecified; the contract is that
	// every write is delivered exactly once.
	got := collect(t, ch, writes)
	seen := make(map[byte]int, writes)
	for _, v := range got {
		seen[v[0]]++
	}
	for i := 0; i < writes; i++ {
		if seen[byte(i)] != 1 {
			t.Errorf("write %d delivered %d times, want exactly once", i, seen[byte(i)])
		}
	}
	select {
	case v := <-ch:
		t.Errorf("unexpected extra delivery %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryStoreKeyIsolation(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	ch := make(chan []byte, 16)
	stop, err := s.Subscribe(ctx, "a", func(v []byte) { ch <- v })
	if err != nil {
		t.Fatal(err)
	}
	defer stop()

	s.Write(ctx, "b", []byte("other"))
	s.Write(ctx, "a", []byte("mine"))

	got := collect(t, ch, 1)
	if string(got[0]) != "mine" {
		t.Errorf("got %q, want only writes to the subscribed key", got[0])
	}
	select {
	case v := <-ch:
		t.Errorf("unexpected extra delivery %q", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryStoreStopUnsubscribes(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	ch := make(chan []byte, 16)
	stop, err := s.Subscribe(ctx, "k", func(v []byte) { ch <- v })
	if err != nil {
		t.Fatal(err)
	}
	stop()

	s.Write(ctx, "k", []byte("after stop"))
	select {
	case v := <-ch:
		t.Errorf("delivery after stop: %q", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryStoreRemove(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	s.Write(ctx, "k", []byte("v"))
	if err := s.Remove(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	_, ok, err := s.ReadOnce(ctx, "k")
	if err != nil || ok {
		t.Fatalf("ReadOnce after remove = ok %v err %v, want absent", ok, err)
	}
}

func TestMemoryStoreValueIsolation(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	original := []byte("value")
	s.Write(ctx, "k", original)
	original[0] = 'X'

	stored, _, _ := s.ReadOnce(ctx, "k")
	if string(stored) != "value" {
		t.Errorf("stored value mutated through caller's slice: %q", stored)
	}
}
