package link

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/encodeous/dvsim/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestGetEmptyDoesNotBlock(t *testing.T) {
	i := NewInterface("RA", 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		frame, ok := i.Get(In)
		assert.False(t, ok)
		assert.Nil(t, frame)
		_, ok = i.Get(Out)
		assert.False(t, ok)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Get blocked on an empty queue")
	}
}

func TestPutFullNonBlocking(t *testing.T) {
	i := NewInterface("RA", 1)
	ctx := context.Background()
	require.NoError(t, i.Put(ctx, Out, []byte("a"), false))
	err := i.Put(ctx, Out, []byte("b"), false)
	assert.ErrorIs(t, err, state.ErrQueueFull)
	assert.Equal(t, 1, i.Len(Out))

	// the other direction is independent
	require.NoError(t, i.Put(ctx, In, []byte("c"), false))
}

func TestFifo(t *testing.T) {
	i := NewInterface("RA", 0)
	ctx := context.Background()
	for _, f := range []string{"1", "2", "3"} {
		require.NoError(t, i.Put(ctx, In, []byte(f), false))
	}
	for _, f := range []string{"1", "2", "3"} {
		frame, ok := i.Get(In)
		require.True(t, ok)
		assert.Equal(t, f, string(frame))
	}
	_, ok := i.Get(In)
	assert.False(t, ok)
}

func TestUnboundedNeverFull(t *testing.T) {
	i := NewInterface("H1", 0)
	ctx := context.Background()
	for n := 0; n < 10000; n++ {
		require.NoError(t, i.Put(ctx, Out, []byte{byte(n)}, false))
	}
	assert.Equal(t, 10000, i.Len(Out))
	assert.Equal(t, 0, i.Capacity())
}

func TestBlockingPutWaitsForSpace(t *testing.T) {
	defer goleak.VerifyNone(t)
	i := NewInterface("RA", 1)
	ctx := context.Background()
	require.NoError(t, i.Put(ctx, Out, []byte("a"), false))

	done := make(chan error)
	go func() {
		done <- i.Put(ctx, Out, []byte("b"), true)
	}()

	select {
	case <-done:
		t.Fatal("blocking Put returned while the queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	frame, ok := i.Get(Out)
	require.True(t, ok)
	assert.Equal(t, "a", string(frame))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("blocking Put did not resume")
	}
	frame, ok = i.Get(Out)
	require.True(t, ok)
	assert.Equal(t, "b", string(frame))
}

func TestBlockingPutCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)
	i := NewInterface("RA", 1)
	require.NoError(t, i.Put(context.Background(), Out, []byte("a"), false))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := i.Put(ctx, Out, []byte("b"), true)
	assert.ErrorIs(t, err, state.ErrQueueFull)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, i.Len(Out))
}

func TestConcurrentProducersConsumer(t *testing.T) {
	defer goleak.VerifyNone(t)
	i := NewInterface("RA", 4)
	ctx := context.Background()
	const producers = 4
	const perProducer = 500

	wg := sync.WaitGroup{}
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < perProducer; n++ {
				assert.NoError(t, i.Put(ctx, In, []byte{byte(p)}, true))
			}
		}()
	}

	received := 0
	deadline := time.After(10 * time.Second)
	for received < producers*perProducer {
		if _, ok := i.Get(In); ok {
			received++
			continue
		}
		select {
		case <-deadline:
			t.Fatalf("only received %d frames", received)
		default:
		}
	}
	wg.Wait()
	assert.Equal(t, 0, i.Len(In))
}
