// Package session manages per-connection studio state: the generation
// mode, provider selection, the editable schema models for each mode, and
// the reconciliation machine for script review. A session is owned by one
// WebSocket message loop; sequencing comes from that single reader, not
// from locks. The Manager is the only concurrent structure here.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/datasmith/datasmith/internal/catalog"
	"github.com/datasmith/datasmith/internal/reconcile"
	"github.com/datasmith/datasmith/internal/schema"
)

// Mode selects which request shape Generate compiles.
type Mode string

const (
	ModeSingle   Mode = "single"
	ModeText     Mode = "natural_language"
	ModeScript   Mode = "script"
	ModeDatabase Mode = "database"
)

// DefaultProvider is the model provider used until the user picks one.
// The value is an opaque passthrough; the backend validates it. A
// deployment can override it at startup via DEFAULT_PROVIDER.
var DefaultProvider = "ollama"

// SingleState is the single-table form: fields plus generation counts.
type SingleState struct {
	Fields  []schema.Field `json:"fields"`
	Total   int            `json:"num_records"`
	Correct int            `json:"correct_num_records"`
	Wrong   int            `json:"wrong_num_records"`
	Rules   string         `json:"rules"`
}

// ScriptState is the script form: the pasted script and the counts used
// by the direct (non-reviewed) generation path.
type ScriptState struct {
	Script  string `json:"script"`
	Total   int    `json:"num_records"`
	Correct int    `json:"correct_num_records"`
	Wrong   int    `json:"wrong_num_records"`
	Rules   string `json:"rules"`
}

// Session holds one connection's studio state.
type Session struct {
	ID       string `json:"id"`
	Mode     Mode   `json:"mode"`
	Provider string `json:"provider"`

	Single SingleState     `json:"single"`
	Text   string          `json:"text"`
	Script ScriptState     `json:"script_state"`
	DB     schema.Database `json:"database"`

	// Recon reviews externally-parsed schema candidates for the script
	// mode's confirmed path.
	Recon *reconcile.Machine `json:"-"`

	// Busy gates the confirm/submit affordances while a network-bound
	// operation is in flight. It does not enforce mutual exclusion at
	// the data layer; the message loop is the only writer.
	Busy bool `json:"busy"`

	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// New creates a session in single mode with one blank field everywhere a
// form needs an editable row.
func New() *Session {
	now := time.Now()
	return &Session{
		ID:       uuid.New().String(),
		Mode:     ModeSingle,
		Provider: DefaultProvider,
		Single: SingleState{
			Fields:  []schema.Field{schema.BlankField()},
			Total:   schema.DefaultTotal,
			Correct: schema.DefaultCorrect,
			Wrong:   schema.DefaultWrong,
		},
		Script: ScriptState{
			Total:   schema.DefaultTotal,
			Correct: schema.DefaultCorrect,
			Wrong:   schema.DefaultWrong,
		},
		DB:           schema.NewDatabase(),
		Recon:        reconcile.NewMachine(),
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() { s.LastActiveAt = time.Now() }

// IsExpired reports whether the session exceeded the given max age.
func (s *Session) IsExpired(maxAge time.Duration) bool {
	return time.Since(s.CreatedAt) > maxAge
}

// IsIdle reports whether the session has been idle past the timeout.
func (s *Session) IsIdle(timeout time.Duration) bool {
	return time.Since(s.LastActiveAt) > timeout
}

// SetMode switches the active form. Model state for the other modes is
// kept, so switching back loses nothing.
func (s *Session) SetMode(m Mode) error {
	switch m {
	case ModeSingle, ModeText, ModeScript, ModeDatabase:
		s.Mode = m
		return nil
	default:
		return schema.Validation(fmt.Sprintf("unknown mode %q", m))
	}
}

// SetProvider records the model provider. The value is passed through to
// the backend unvalidated.
func (s *Session) SetProvider(p string) {
	if p == "" {
		p = DefaultProvider
	}
	s.Provider = p
}

// ── Single-table form ───────────────────────────────────────────────────

// SetSingleCounts updates counts and rule text. Total is floored at 1;
// correct and wrong at 0. correct+wrong ≤ total is a presentation hint,
// not enforced here.
func (s *Session) SetSingleCounts(total, correct, wrong int, rules string) {
	s.Single.Total, s.Single.Correct, s.Single.Wrong = clampCounts(total, correct, wrong)
	s.Single.Rules = rules
}

// SingleAddField appends a blank field row.
func (s *Session) SingleAddField() {
	s.Single.Fields = append(s.Single.Fields, schema.BlankField())
}

// SingleRemoveField removes one field row.
func (s *Session) SingleRemoveField(index int) error {
	fields, err := removeField(s.Single.Fields, index)
	if err != nil {
		return err
	}
	s.Single.Fields = fields
	return nil
}

// SingleUpdateField mutates one attribute of one field row.
func (s *Session) SingleUpdateField(index int, attr, value string) error {
	return updateField(s.Single.Fields, index, attr, value)
}

// SingleApplyType applies a catalog entry onto one field row.
func (s *Session) SingleApplyType(index int, entry catalog.Entry) error {
	if index < 0 || index >= len(s.Single.Fields) {
		return outOfRange(index, len(s.Single.Fields))
	}
	s.Single.Fields[index] = catalog.Apply(s.Single.Fields[index], entry)
	return nil
}

// ── Natural-language form ───────────────────────────────────────────────

// SetText records the free-text description.
func (s *Session) SetText(text string) { s.Text = text }

// ── Script form ─────────────────────────────────────────────────────────

// SetScript records the pasted script.
func (s *Session) SetScript(script string) { s.Script.Script = script }

// SetScriptCounts updates the direct path's counts and rule text.
func (s *Session) SetScriptCounts(total, correct, wrong int, rules string) {
	s.Script.Total, s.Script.Correct, s.Script.Wrong = clampCounts(total, correct, wrong)
	s.Script.Rules = rules
}

// ── Database form ───────────────────────────────────────────────────────

// SetDatabase updates the database name and generation mode. Toggling to
// automatic keeps any references already set; they are stripped at
// compile time instead.
func (s *Session) SetDatabase(name string, automatic bool) {
	s.DB.Name = name
	s.DB.Automatic = automatic
}

// AddTable appends a table with one blank field.
func (s *Session) AddTable() {
	s.DB.Tables = append(s.DB.Tables, schema.NewTable(""))
}

// RemoveTable removes one table. Sibling tables' foreign-key references
// pointing at it are left as-is; dangling target names are a documented
// limitation, not silently repaired.
func (s *Session) RemoveTable(index int) error {
	if index < 0 || index >= len(s.DB.Tables) {
		return outOfRange(index, len(s.DB.Tables))
	}
	s.DB.Tables = append(s.DB.Tables[:index], s.DB.Tables[index+1:]...)
	return nil
}

// UpdateTable sets a table's name, counts, and context.
func (s *Session) UpdateTable(index int, name string, total, correct, wrong int, context string) error {
	t, err := s.table(index)
	if err != nil {
		return err
	}
	t.Name = name
	t.Total, t.Correct, t.Wrong = clampCounts(total, correct, wrong)
	t.Context = context
	return nil
}

// TableAddField appends a blank field to a table.
func (s *Session) TableAddField(table int) error {
	t, err := s.table(table)
	if err != nil {
		return err
	}
	t.Fields = append(t.Fields, schema.BlankField())
	return nil
}

// TableRemoveField removes one field from a table.
func (s *Session) TableRemoveField(table, index int) error {
	t, err := s.table(table)
	if err != nil {
		return err
	}
	fields, err := removeField(t.Fields, index)
	if err != nil {
		return err
	}
	t.Fields = fields
	return nil
}

// TableUpdateField mutates one attribute of one field in a table.
func (s *Session) TableUpdateField(table, index int, attr, value string) error {
	t, err := s.table(table)
	if err != nil {
		return err
	}
	return updateField(t.Fields, index, attr, value)
}

// TableApplyType applies a catalog entry onto one field in a table.
func (s *Session) TableApplyType(table, index int, entry catalog.Entry) error {
	t, err := s.table(table)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(t.Fields) {
		return outOfRange(index, len(t.Fields))
	}
	t.Fields[index] = catalog.Apply(t.Fields[index], entry)
	return nil
}

// ToggleReference turns a field's foreign-key reference on or off.
// Turning it on creates a half-formed reference (empty target table,
// target field "id") which stays out of payloads until completed.
func (s *Session) ToggleReference(table, index int, on bool) error {
	t, err := s.table(table)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(t.Fields) {
		return outOfRange(index, len(t.Fields))
	}
	if on {
		if t.Fields[index].Reference == nil {
			t.Fields[index].Reference = schema.NewForeignKeyRef()
		}
		return nil
	}
	t.Fields[index].Reference = nil
	return nil
}

// SetReference points a field's reference at a target table and field.
// An empty target field falls back to "id".
func (s *Session) SetReference(table, index int, targetTable, targetField string) error {
	t, err := s.table(table)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(t.Fields) {
		return outOfRange(index, len(t.Fields))
	}
	if targetField == "" {
		targetField = schema.DefaultTargetField
	}
	t.Fields[index].Reference = &schema.ForeignKeyRef{Table: targetTable, Field: targetField}
	return nil
}

func (s *Session) table(index int) (*schema.Table, error) {
	if index < 0 || index >= len(s.DB.Tables) {
		return nil, outOfRange(index, len(s.DB.Tables))
	}
	return &s.DB.Tables[index], nil
}

// ── shared field helpers ────────────────────────────────────────────────

func updateField(fields []schema.Field, index int, attr, value string) error {
	if index < 0 || index >= len(fields) {
		return outOfRange(index, len(fields))
	}
	f := &fields[index]
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
		return schema.Validation(fmt.Sprintf("unknown field attribute %q", attr))
	}
	return nil
}

func removeField(fields []schema.Field, index int) ([]schema.Field, error) {
	if index < 0 || index >= len(fields) {
		return nil, outOfRange(index, len(fields))
	}
	return append(fields[:index], fields[index+1:]...), nil
}

func clampCounts(total, correct, wrong int) (int, int, int) {
	if total < 1 {
		total = 1
	}
	if correct < 0 {
		correct = 0
	}
	if wrong < 0 {
		wrong = 0
	}
	return total, correct, wrong
}

func outOfRange(index, length int) error {
	return fmt.Errorf("session: index %d out of range [0,%d)", index, length)
}

// ── Manager ─────────────────────────────────────────────────────────────

// Manager handles session creation, lookup, and expiry cleanup.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxAge      time.Duration
	idleTimeout time.Duration
}

// NewManager creates a session manager with the given timeouts.
func NewManager(maxAge, idleTimeout time.Duration) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
	}
}

// Create registers and returns a new session.
func (m *Manager) Create() *Session {
	s := New()
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get retrieves a session by ID. Returns nil if not found or expired.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
		m.Remove(id)
		return nil
	}
	return s
}

// Remove deletes a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Cleanup removes all expired and idle sessions. Called periodically.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
			delete(m.sessions, id)
		}
	}
}
