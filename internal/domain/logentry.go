package domain

import (
	"time"

	"github.com/google/uuid"
)

// LogType classifies a log entry.
type LogType string

// Log types.
const (
	LogInfo  LogType = "INFO"
	LogFatal LogType = "FATAL"
)

// LogEntry is an application log record produced by the pipeline.
type LogEntry struct {
	ID         string  `json:"id"`
	Type       LogType `json:"type"`
	Payload    string  `json:"payload"`
	OccurredOn int64   `json:"occurred_on"` // microseconds since epoch
}

// NewLogEntry creates an entry with a fresh uuid.
func NewLogEntry(logType LogType, payload string, at time.Time) LogEntry {
	return LogEntry{
		ID:         uuid.NewString(),
		Type:       logType,
		Payload:    payload,
		OccurredOn: MicroEpoch(at),
	}
}
