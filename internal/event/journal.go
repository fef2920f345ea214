package event

import (
	"context"
	"log/slog"
)

// Journal writes every published event to the structured log.
type Journal struct {
	bus    Bus
	logger *slog.Logger
}

func NewJournal(bus Bus, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{bus: bus, logger: logger}
}

// Run consumes events until ctx is cancelled, then logs whatever is still
// buffered. The returned channel is closed once the journal has unsubscribed.
func (j *Journal) Run(ctx context.Context) <-chan struct{} {
	events, unsubscribe := j.bus.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				j.drain(events)
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				j.write(e)
			}
		}
	}()

	return done
}

// drain logs events already buffered when the journal is stopped.
func (j *Journal) drain(events <-chan Event) {
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			j.write(e)
		default:
			return
		}
	}
}

func (j *Journal) write(e Event) {
	j.logger.Info("event",
		"event_id", e.ID,
		"type", string(e.Type),
		"actor_id", e.ActorID,
		"at", e.Timestamp,
	)
}
