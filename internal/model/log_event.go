package model

import (
	"strconv"
	"time"
)

// LogEvent represents a single log entry read from a log group.
type LogEvent struct {
	ID            string
	Timestamp     int64 // epoch milliseconds
	IngestionTime int64
	LogGroup      string
	LogStream     string
	Message       string
}

// Time returns the event timestamp as a time.Time.
func (e LogEvent) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Key identifies the event for de-duplication. Backends that do not assign
// event ids fall back to stream, timestamp and message.
func (e LogEvent) Key() string {
	if e.ID != "" {
		return e.ID
	}
	return e.LogStream + "/" + strconv.FormatInt(e.Timestamp, 10) + "/" + e.Message
}
