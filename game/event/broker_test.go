package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishWithoutReceiver(t *testing.T) {
	b := NewBroker(nil)
	err := b.Publish(context.Background(), &Message{Event: "nobody-listens"})
	assert.ErrorIs(t, err, ErrNoMatchingReceiver)
}

func TestPublishInvokesEveryReceiverOnce(t *testing.T) {
	b := NewBroker(nil)
	var calls [3]atomic.Int32
	for i := range calls {
		b.AddReceiver(func(ctx context.Context, msg *Message) error {
			calls[i].Add(1)
			return nil
		}, "ping")
	}

	require.NoError(t, b.Publish(context.Background(), &Message{Event: "ping"}))
	for i := range calls {
		assert.Equal(t, int32(1), calls[i].Load(), "receiver %d", i)
	}
}

func TestPublishRunsReceiversConcurrently(t *testing.T) {
	b := NewBroker(nil)
	var started sync.WaitGroup
	started.Add(2)
	release := make(chan struct{})
	for i := 0; i < 2; i++ {
		b.AddReceiver(func(ctx context.Context, msg *Message) error {
			started.Done()
			<-release
			return nil
		}, "ping")
	}

	go func() {
		started.Wait()
		close(release)
	}()

	done := make(chan error, 1)
	go func() { done <- b.Publish(context.Background(), &Message{Event: "ping"}) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("receivers did not run concurrently")
	}
}

func TestPublishWaitsForReceivers(t *testing.T) {
	b := NewBroker(nil)
	var finished atomic.Bool
	b.AddReceiver(func(ctx context.Context, msg *Message) error {
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return nil
	}, "ping")

	require.NoError(t, b.Publish(context.Background(), &Message{Event: "ping"}))
	assert.True(t, finished.Load())
}

func TestPublishSurfacesReceiverError(t *testing.T) {
	b := NewBroker(nil)
	boom := errors.New("boom")
	var other atomic.Bool
	b.AddReceiver(func(ctx context.Context, msg *Message) error { return boom }, "ping")
	b.AddReceiver(func(ctx context.Context, msg *Message) error {
		other.Store(true)
		return nil
	}, "ping")

	err := b.Publish(context.Background(), &Message{Event: "ping"})
	assert.ErrorIs(t, err, boom)
	assert.True(t, other.Load())
}

func TestPublishRecoversPanic(t *testing.T) {
	b := NewBroker(nil)
	b.AddReceiver(func(ctx context.Context, msg *Message) error { panic("bad receiver") }, "ping")

	err := b.Publish(context.Background(), &Message{Event: "ping"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad receiver")
}

func TestReceiverOnSeveralEvents(t *testing.T) {
	b := NewBroker(nil)
	var seen []string
	var mu sync.Mutex
	r := b.AddReceiver(func(ctx context.Context, msg *Message) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, msg.Event)
		return nil
	}, "a", "b")
	b.AddReceiver(func(ctx context.Context, msg *Message) error { return nil }, "b")

	require.NoError(t, b.Publish(context.Background(), &Message{Event: "a"}))
	require.NoError(t, b.Publish(context.Background(), &Message{Event: "b"}))
	assert.Equal(t, []string{"a", "b"}, seen)

	assert.True(t, b.RemoveReceiver(r))
	assert.False(t, b.RemoveReceiver(r))
	assert.Equal(t, 0, b.Receivers("a"))
	assert.Equal(t, 1, b.Receivers("b"))
	assert.ErrorIs(t, b.Publish(context.Background(), &Message{Event: "a"}), ErrNoMatchingReceiver)
	require.NoError(t, b.Publish(context.Background(), &Message{Event: "b"}))
	assert.Len(t, seen, 2)
}

func TestRegisterTable(t *testing.T) {
	b := NewBroker(nil)
	noop := func(ctx context.Context, msg *Message) error { return nil }
	receivers := b.Register(map[string]ReceiverFunc{Moving: noop, Pointing: noop})
	assert.Len(t, receivers, 2)
	assert.Equal(t, 1, b.Receivers(Moving))
	assert.Equal(t, 1, b.Receivers(Pointing))
}

func TestClose(t *testing.T) {
	b := NewBroker(nil)
	b.AddReceiver(func(ctx context.Context, msg *Message) error { return nil }, "ping")
	b.Close()
	assert.ErrorIs(t, b.Publish(context.Background(), &Message{Event: "ping"}), ErrBrokerClosed)
}

func TestNestedPublish(t *testing.T) {
	b := NewBroker(nil)
	var got atomic.Value
	b.AddReceiver(func(ctx context.Context, msg *Message) error {
		return b.Publish(ctx, &Message{Event: "second", Payload: msg.Payload})
	}, "first")
	b.AddReceiver(func(ctx context.Context, msg *Message) error {
		got.Store(msg.Payload)
		return nil
	}, "second")

	require.NoError(t, b.Publish(context.Background(), &Message{Event: "first", Payload: "hello"}))
	assert.Equal(t, "hello", got.Load())
}
