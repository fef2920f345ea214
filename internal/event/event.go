package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeSessionStarted Type = "session.started"
	TypeSessionEnded   Type = "session.ended"
	TypeSessionExpired Type = "session.expired"
	TypeOrderUpdated   Type = "order.updated"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload,omitempty"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actor_id,omitempty"` // staff id, when known
}

func New(t Type, actorID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		ActorID:   actorID,
	}
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // channel and unsubscribe function
}
