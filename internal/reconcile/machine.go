// Package reconcile governs the lifecycle of an externally-parsed schema
// candidate: request a parse, review and edit the staged fields, then
// confirm them into a generation request. One machine exists per studio
// session; it is driven from the session's message loop, so there is a
// single writer and no locking.
package reconcile

import (
	"fmt"

	"github.com/datasmith/datasmith/internal/catalog"
	"github.com/datasmith/datasmith/internal/schema"
)

// State is the machine's current phase.
type State string

const (
	// Idle: no candidate schema and no parse in flight.
	Idle State = "idle"
	// Parsing: a parse request has been dispatched.
	Parsing State = "parsing"
	// Reviewing: candidate fields are present and user-editable.
	Reviewing State = "reviewing"
	// Failed: the last parse returned no usable schema. Prior staged
	// fields, if any, are deliberately retained rather than wiped.
	Failed State = "failed"
)

// Staging is the mutable holding area for a parsed schema candidate. It
// carries its own generation counts, scoped to this candidate.
type Staging struct {
	Fields  []schema.Field   `json:"fields"`
	Source  []map[string]any `json:"source,omitempty"`
	Total   int              `json:"num_records"`
	Correct int              `json:"correct_num_records"`
	Wrong   int              `json:"wrong_num_records"`
	Rules   string           `json:"rules"`
}

// Machine is the reconciliation state machine. Single-consumer,
// single-writer: one parse/review cycle at a time, and a new parse while
// reviewing discards the unconfirmed candidate (last-writer-wins).
type Machine struct {
	state   State
	staging *Staging
	lastErr string
}

// NewMachine returns a machine in the Idle state with no staging.
func NewMachine() *Machine {
	return &Machine{state: Idle}
}

// State returns the current phase.
func (m *Machine) State() State { return m.state }

// Staging returns the current candidate, or nil when none exists.
func (m *Machine) Staging() *Staging { return m.staging }

// LastError returns the user-visible message from the last failure.
func (m *Machine) LastError() string { return m.lastErr }

// Begin guards and enters the Parsing state. An empty script is rejected
// without leaving the current state. Any prior candidate stays in place
// until a successful parse overwrites it.
func (m *Machine) Begin(rawScript string) error {
	if rawScript == "" {
		return schema.Validation("please provide a script to parse")
	}
	m.state = Parsing
	m.lastErr = ""
	return nil
}

// HandleResult consumes a parse response. A non-empty record list enters
// Reviewing with freshly normalized staging and default counts. An empty
// list enters Failed, surfacing parseErr verbatim when present.
func (m *Machine) HandleResult(raw []map[string]any, parseErr string) {
	if len(raw) == 0 {
		if parseErr == "" {
			parseErr = "parser returned no schema"
		}
		m.state = Failed
		m.lastErr = parseErr
		return
	}
	m.staging = &Staging{
		Fields:  schema.Normalize(raw),
		Source:  raw,
		Total:   schema.DefaultTotal,
		Correct: schema.DefaultCorrect,
		Wrong:   schema.DefaultWrong,
	}
	m.state = Reviewing
	m.lastErr = ""
}

// HandleTransportError consumes a failed parse request.
func (m *Machine) HandleTransportError(err error) {
	m.state = Failed
	m.lastErr = err.Error()
}

// EditField mutates one attribute of one staged field in place. An
// out-of-range index is a programming error in the caller and fails
// loudly rather than being silently ignored.
func (m *Machine) EditField(index int, attr, value string) error {
	s := m.mustStaging()
	if index < 0 || index >= len(s.Fields) {
		return fmt.Errorf("reconcile: field index %d out of range [0,%d)", index, len(s.Fields))
	}
	f := &s.Fields[index]
	switch attr {
	case "name":
		f.Name = value
	case "type":
		f.Type = value
	case "rules":
		f.Rule = value
	case "example":
		f.Example = value
	default:
		return fmt.Errorf("reconcile: unknown field attribute %q", attr)
	}
	return nil
}

// ApplyType applies a catalog entry onto one staged field.
func (m *Machine) ApplyType(index int, entry catalog.Entry) error {
	s := m.mustStaging()
	if index < 0 || index >= len(s.Fields) {
		return fmt.Errorf("reconcile: field index %d out of range [0,%d)", index, len(s.Fields))
	}
	s.Fields[index] = catalog.Apply(s.Fields[index], entry)
	return nil
}

// AddField appends a blank field to the staging.
func (m *Machine) AddField() {
	s := m.mustStaging()
	s.Fields = append(s.Fields, schema.BlankField())
}

// RemoveField removes one staged field. Removal of the last remaining
// field is rejected so the review surface always has an editable row.
func (m *Machine) RemoveField(index int) error {
	s := m.mustStaging()
	if len(s.Fields) <= 1 {
		return schema.Validation("at least one field is required")
	}
	if index < 0 || index >= len(s.Fields) {
		return fmt.Errorf("reconcile: field index %d out of range [0,%d)", index, len(s.Fields))
	}
	s.Fields = append(s.Fields[:index], s.Fields[index+1:]...)
	return nil
}

// SetCounts updates the staging's generation counts and rule text.
func (m *Machine) SetCounts(total, correct, wrong int, rules string) {
	s := m.mustStaging()
	s.Total = total
	s.Correct = correct
	s.Wrong = wrong
	s.Rules = rules
}

// Confirm validates the candidate and hands it over for generation: the
// named staged fields plus the staging counts. On success all staging
// state clears back to Idle immediately — optimistically, regardless of
// whether the generation request itself later succeeds.
func (m *Machine) Confirm() (*Staging, error) {
	s := m.staging
	if s == nil {
		return nil, schema.Validation("no parsed schema to confirm")
	}
	named := schema.NamedFields(s.Fields)
	if len(named) == 0 {
		return nil, schema.Validation("no named fields to generate from")
	}
	confirmed := &Staging{
		Fields:  named,
		Total:   s.Total,
		Correct: s.Correct,
		Wrong:   s.Wrong,
		Rules:   s.Rules,
	}
	m.staging = nil
	m.state = Idle
	m.lastErr = ""
	return confirmed, nil
}

// mustStaging panics when no candidate exists. Edit operations are only
// reachable from the review surface, which cannot exist without staging.
func (m *Machine) mustStaging() *Staging {
	if m.staging == nil {
		panic("reconcile: edit operation with no staging")
	}
	return m.staging
}
