package domain

import "encoding/json"

// LogEntry is the record accepted by POST /logs.
type LogEntry struct {
	Timestamp string          `json:"timestamp"`
	Level     string          `json:"level"`
	Component string          `json:"component"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
}
