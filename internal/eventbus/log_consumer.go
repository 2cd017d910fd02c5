package eventbus

import (
	"context"
	"log"

	"github.com/datasmith/datasmith/internal/event"
)

// LogConsumer logs all domain events for observability.
type LogConsumer struct{}

func NewLogConsumer() *LogConsumer { return &LogConsumer{} }

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	sid := evt.SessionID
	if len(sid) > 8 {
		sid = sid[:8]
	}
	log.Printf("event: %s [%s/%s] session=%s %s",
		evt.EventType, evt.Mode, evt.Provider, sid, evt.Summary)
	return nil
}
