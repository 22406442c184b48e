package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventRun        EventType = "run"
	EventRead       EventType = "read"
	EventReject     EventType = "reject"
	EventDuplicate  EventType = "duplicate"
	EventUnresolved EventType = "unresolved"
	EventUnlinked   EventType = "unlinked"
	EventLoad       EventType = "load"
	EventError      EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// ParseLevel parses a configured level name, defaulting to info
func ParseLevel(s string) EventLevel {
	switch EventLevel(s) {
	case LevelDebug, LevelInfo, LevelWarning, LevelError:
		return EventLevel(s)
	case "warn":
		return LevelWarning
	}
	return LevelInfo
}

// Event is one line of the JSONL event log
type Event struct {
	Timestamp  time.Time         `json:"ts"`
	Level      EventLevel        `json:"level"`
	Event      EventType         `json:"event"`
	RunID      string            `json:"run_id,omitempty"`
	Kind       string            `json:"kind,omitempty"`
	Line       int               `json:"line,omitempty"`
	Key        string            `json:"key,omitempty"`
	Field      string            `json:"field,omitempty"`
	Reference  string            `json:"reference,omitempty"`
	WinnerLine int               `json:"winner_line,omitempty"`
	Count      int               `json:"count,omitempty"`
	Duration   int64             `json:"duration_ms,omitempty"`
	Error      string            `json:"error,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
	runID    string
}

// NewEventLogger creates a new event logger with a minimum log level
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	path := filepath.Join(outputDir, fmt.Sprintf("events-%s.jsonl", timestamp))

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// SetRunID stamps every following event with runID
func (l *EventLogger) SetRunID(runID string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runID = runID
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RunID == "" {
		event.RunID = l.runID
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogRead logs the number of raw rows read for one entity type
func (l *EventLogger) LogRead(kind string, count int) error {
	return l.Log(&Event{
		Level: LevelInfo,
		Event: EventRead,
		Kind:  kind,
		Count: count,
	})
}

// LogReject logs a row dropped for a missing required field
func (l *EventLogger) LogReject(kind string, line int, field string) error {
	return l.Log(&Event{
		Level: LevelDebug,
		Event: EventReject,
		Kind:  kind,
		Line:  line,
		Field: field,
	})
}

// LogDuplicate logs a row that lost a dedup tie-break
func (l *EventLogger) LogDuplicate(kind string, line int, key string, winnerLine int) error {
	return l.Log(&Event{
		Level:      LevelDebug,
		Event:      EventDuplicate,
		Kind:       kind,
		Line:       line,
		Key:        key,
		WinnerLine: winnerLine,
	})
}

// LogUnresolved logs a row dropped because a required reference dangles
func (l *EventLogger) LogUnresolved(kind string, line int, key, reference string) error {
	return l.Log(&Event{
		Level:     LevelWarning,
		Event:     EventUnresolved,
		Kind:      kind,
		Line:      line,
		Key:       key,
		Reference: reference,
	})
}

// LogUnlinked logs an optional reference that matched nothing and was nulled
func (l *EventLogger) LogUnlinked(kind string, line int, key, reference string) error {
	return l.Log(&Event{
		Level:     LevelInfo,
		Event:     EventUnlinked,
		Kind:      kind,
		Line:      line,
		Key:       key,
		Reference: reference,
	})
}

// LogLoad logs a committed table
func (l *EventLogger) LogLoad(kind string, count int, duration time.Duration) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventLoad,
		Kind:     kind,
		Count:    count,
		Duration: duration.Milliseconds(),
	})
}

// LogRun logs the start or end of a run
func (l *EventLogger) LogRun(status string, duration time.Duration, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:    level,
		Event:    EventRun,
		Duration: duration.Milliseconds(),
		Error:    errMsg,
		Extra: map[string]string{
			"status": status,
		},
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
