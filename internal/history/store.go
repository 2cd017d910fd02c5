// Package history keeps a bounded in-memory log of studio domain
// events, fed from the event bus. Intended for the activity view and
// debugging — nothing here survives a restart.
package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/datasmith/datasmith/internal/event"
)

// DefaultCapacity bounds the log when the caller passes no limit.
const DefaultCapacity = 1000

// Store is an append-only event log with a fixed capacity. The oldest
// events are discarded once the capacity is reached.
type Store struct {
	mu     sync.RWMutex
	events []event.DomainEvent
	cap    int
}

// NewStore creates an empty store holding at most capacity events.
func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Store{cap: capacity}
}

// HandleEvent appends a bus event to the log. Implements the bus's
// Handler interface so the store can be subscribed directly.
func (s *Store) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	if len(s.events) > s.cap {
		s.events = s.events[len(s.events)-s.cap:]
	}
	return nil
}

// QueryOptions filter and bound a Query call.
type QueryOptions struct {
	SessionID string
	EventType string
	Since     *time.Time
	Limit     int
}

// Query returns matching events newest-first plus the total match count
// before the limit was applied.
func (s *Store) Query(opts QueryOptions) ([]event.DomainEvent, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []event.DomainEvent
	for _, e := range s.events {
		if opts.SessionID != "" && e.SessionID != opts.SessionID {
			continue
		}
		if opts.EventType != "" && e.EventType != opts.EventType {
			continue
		}
		if opts.Since != nil && e.OccurredAt.Before(*opts.Since) {
			continue
		}
		matched = append(matched, e)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	total := len(matched)
	limit := opts.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total
}
