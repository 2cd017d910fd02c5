// Package event defines the domain events the studio publishes across a
// generation lifecycle. Events are observability only; no business logic
// hangs off them.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DomainEvent carries the canonical shape of every studio event.
type DomainEvent struct {
	ID         string          `json:"id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	SessionID  string          `json:"session_id"`
	Mode       string          `json:"mode,omitempty"`
	Provider   string          `json:"provider,omitempty"`
	Summary    string          `json:"summary"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// GenerationRequestedPayload describes a dispatched generation request.
type GenerationRequestedPayload struct {
	Operation string `json:"operation"`
	Fields    int    `json:"fields,omitempty"`
	Tables    int    `json:"tables,omitempty"`
}

func NewGenerationRequested(sessionID, mode, provider, operation string, fields, tables int) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  "generation_requested",
		OccurredAt: time.Now(),
		SessionID:  sessionID,
		Mode:       mode,
		Provider:   provider,
		Summary:    fmt.Sprintf("dispatched %s", operation),
		Payload:    mustJSON(GenerationRequestedPayload{Operation: operation, Fields: fields, Tables: tables}),
	}
}

// GenerationCompletedPayload describes a successful generation.
type GenerationCompletedPayload struct {
	Operation string `json:"operation"`
	Records   int    `json:"records"`
	Elapsed   string `json:"elapsed"`
}

func NewGenerationCompleted(sessionID, mode, provider, operation string, records int, elapsed time.Duration) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  "generation_completed",
		OccurredAt: time.Now(),
		SessionID:  sessionID,
		Mode:       mode,
		Provider:   provider,
		Summary:    fmt.Sprintf("%s produced %d records in %s", operation, records, elapsed.Round(time.Millisecond)),
		Payload:    mustJSON(GenerationCompletedPayload{Operation: operation, Records: records, Elapsed: elapsed.String()}),
	}
}

// GenerationFailedPayload describes a failed generation.
type GenerationFailedPayload struct {
	Operation string `json:"operation"`
	Reason    string `json:"reason"`
}

func NewGenerationFailed(sessionID, mode, provider, operation, reason string) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  "generation_failed",
		OccurredAt: time.Now(),
		SessionID:  sessionID,
		Mode:       mode,
		Provider:   provider,
		Summary:    fmt.Sprintf("%s failed: %s", operation, reason),
		Payload:    mustJSON(GenerationFailedPayload{Operation: operation, Reason: reason}),
	}
}

// ScriptParsedPayload describes a successful parse-only call.
type ScriptParsedPayload struct {
	Fields int `json:"fields"`
}

func NewScriptParsed(sessionID, provider string, fields int) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  "script_parsed",
		OccurredAt: time.Now(),
		SessionID:  sessionID,
		Mode:       "script",
		Provider:   provider,
		Summary:    fmt.Sprintf("parser extracted %d candidate fields", fields),
		Payload:    mustJSON(ScriptParsedPayload{Fields: fields}),
	}
}

// ScriptParseFailedPayload describes a parse that yielded no schema.
type ScriptParseFailedPayload struct {
	Reason string `json:"reason"`
}

func NewScriptParseFailed(sessionID, provider, reason string) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  "script_parse_failed",
		OccurredAt: time.Now(),
		SessionID:  sessionID,
		Mode:       "script",
		Provider:   provider,
		Summary:    fmt.Sprintf("parse failed: %s", reason),
		Payload:    mustJSON(ScriptParseFailedPayload{Reason: reason}),
	}
}

// SchemaConfirmedPayload describes a reviewed candidate being promoted.
type SchemaConfirmedPayload struct {
	Fields int `json:"fields"`
}

func NewSchemaConfirmed(sessionID, provider string, fields int) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  "schema_confirmed",
		OccurredAt: time.Now(),
		SessionID:  sessionID,
		Mode:       "script",
		Provider:   provider,
		Summary:    fmt.Sprintf("confirmed %d reviewed fields", fields),
		Payload:    mustJSON(SchemaConfirmedPayload{Fields: fields}),
	}
}
