package event

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBusDeliversToEverySubscriber(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	first, unsubFirst := bus.Subscribe()
	second, unsubSecond := bus.Subscribe()
	defer unsubFirst()
	defer unsubSecond()

	bus.Publish(New(TypeSessionStarted, "7", nil))

	for _, ch := range []<-chan Event{first, second} {
		select {
		case e := <-ch:
			require.Equal(t, TypeSessionStarted, e.Type)
			require.Equal(t, "7", e.ActorID)
			require.NotEmpty(t, e.ID)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestBusUnsubscribeClosesChannelOnce(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	ch, unsubscribe := bus.Subscribe()
	unsubscribe()
	unsubscribe()

	_, open := <-ch
	require.False(t, open)

	bus.Publish(New(TypeSessionEnded, "", nil))
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	_, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for i := 0; i < 100; i++ {
		bus.Publish(New(TypeOrderUpdated, "", i))
	}
}

func TestJournalLogsEvents(t *testing.T) {
	t.Parallel()

	var buf syncBuffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	bus := NewBus()

	ctx, cancel := context.WithCancel(context.Background())
	done := NewJournal(bus, logger).Run(ctx)

	bus.Publish(New(TypeSessionExpired, "42", nil))

	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "type=session.expired")
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
	require.Contains(t, buf.String(), "actor_id=42")
}

type bufferedBus struct {
	events chan Event
}

func (b *bufferedBus) Publish(e Event) { b.events <- e }

func (b *bufferedBus) Subscribe() (<-chan Event, func()) { return b.events, func() {} }

func TestJournalDrainsBufferedEventsOnStop(t *testing.T) {
	t.Parallel()

	var buf syncBuffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	bus := &bufferedBus{events: make(chan Event, 3)}
	bus.Publish(New(TypeSessionStarted, "1", nil))
	bus.Publish(New(TypeOrderUpdated, "1", nil))
	bus.Publish(New(TypeSessionEnded, "1", nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	<-NewJournal(bus, logger).Run(ctx)

	out := buf.String()
	require.Contains(t, out, "type=session.started")
	require.Contains(t, out, "type=order.updated")
	require.Contains(t, out, "type=session.ended")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
