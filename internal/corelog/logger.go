// Package corelog implements the structured logger contract every
// other core component writes to (spec §4.H). It is deliberately an
// orthogonal sink: nothing in internal/plan, internal/config,
// internal/registry, or internal/deploy depends on *how* a record is
// rendered, only on the Logger type below.
package corelog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

type Level int

const (
	TRACE Level = iota
	DEBUG
	INFO
	WARNING
	ERROR
	CRITICAL
)

func (l Level) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case CRITICAL:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Record is one structured log entry. Payload is a free-form bag,
// mirroring the teacher's audit.Entry{Kind, Extra map[string]any}
// shape rather than a fixed schema per event.
type Record struct {
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Level     Level          `json:"level"`
	Event     string         `json:"event"`
	Message   string         `json:"message,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// MarshalJSON renders Level as its name so JSON-mode output is
// human-greppable instead of a bare integer. The record is built as a
// map so its top-level keys come out sorted (encoding/json sorts map
// keys); message and payload are omitted when empty.
func (r Record) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"timestamp": r.Timestamp,
		"run_id":    r.RunID,
		"level":     r.Level.String(),
		"event":     r.Event,
	}
	if r.Message != "" {
		m["message"] = r.Message
	}
	if len(r.Payload) > 0 {
		m["payload"] = r.Payload
	}
	return json.Marshal(m)
}

// Mode selects the sink a Logger writes records to.
type Mode int

const (
	ModeSilent Mode = iota
	ModeHuman
	ModeJSON
)

// Logger emits Records. Silent mode builds records but does not write
// them anywhere except the in-memory Records() slice, which lets
// tests inspect exactly what would have been logged.
type Logger struct {
	mode  Mode
	runID string
	out   io.Writer

	mu      sync.Mutex
	records []Record
}

// New creates a Logger. out is ignored in ModeSilent. A fresh run_id
// (google/uuid v4) is generated unless runID is non-empty, which lets
// tests and the driver pin a deterministic id.
func New(mode Mode, out io.Writer, runID string) *Logger {
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Logger{mode: mode, runID: runID, out: out}
}

func (l *Logger) RunID() string { return l.runID }

// Records returns every record built so far, redacted or not
// depending on mode: silent mode keeps the raw record so tests can
// assert on Redact directly; human/json modes redact before storing.
func (l *Logger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

func (l *Logger) Log(level Level, event, message string, payload map[string]any) {
	rec := Record{
		Timestamp: time.Now().UTC(),
		RunID:     l.runID,
		Level:     level,
		Event:     event,
		Message:   message,
		Payload:   payload,
	}

	switch l.mode {
	case ModeSilent:
		l.mu.Lock()
		l.records = append(l.records, rec)
		l.mu.Unlock()
		return
	case ModeHuman:
		rec.Payload = Redact(rec.Payload).(map[string]any)
		l.mu.Lock()
		l.records = append(l.records, rec)
		l.mu.Unlock()
		l.writeHuman(rec)
	case ModeJSON:
		rec.Payload = Redact(rec.Payload).(map[string]any)
		l.mu.Lock()
		l.records = append(l.records, rec)
		l.mu.Unlock()
		l.writeJSON(rec)
	}
}

func (l *Logger) Trace(event, msg string, payload map[string]any)    { l.Log(TRACE, event, msg, payload) }
func (l *Logger) Debug(event, msg string, payload map[string]any)    { l.Log(DEBUG, event, msg, payload) }
func (l *Logger) Info(event, msg string, payload map[string]any)     { l.Log(INFO, event, msg, payload) }
func (l *Logger) Warning(event, msg string, payload map[string]any)  { l.Log(WARNING, event, msg, payload) }
func (l *Logger) Error(event, msg string, payload map[string]any)    { l.Log(ERROR, event, msg, payload) }
func (l *Logger) Critical(event, msg string, payload map[string]any) { l.Log(CRITICAL, event, msg, payload) }

var levelStyle = map[Level]lipgloss.Style{
	TRACE:    lipgloss.NewStyle().Faint(true),
	DEBUG:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	INFO:     lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	WARNING:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	ERROR:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	CRITICAL: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
}

func (l *Logger) writeHuman(rec Record) {
	if l.out == nil {
		return
	}
	style, ok := levelStyle[rec.Level]
	if !ok {
		style = lipgloss.NewStyle()
	}
	line := style.Render(fmt.Sprintf("[%s] %s", rec.Level, rec.Event))
	if rec.Message != "" {
		line += " " + rec.Message
	}
	if len(rec.Payload) > 0 {
		b, _ := json.Marshal(sortedPayload(rec.Payload))
		line += " " + string(b)
	}
	fmt.Fprintln(l.out, line)
}

func (l *Logger) writeJSON(rec Record) {
	if l.out == nil {
		return
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(rec)
	l.out.Write(buf.Bytes())
}

// sortedPayload returns payload with keys in sorted order via a
// map whose JSON marshaling falls back to Go's own sorted-key map
// encoding (encoding/json always sorts map[string]any keys).
func sortedPayload(payload map[string]any) map[string]any {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return payload
}
