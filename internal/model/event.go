// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventPrinterAdded       EventType = "PRINTER_ADDED"
	EventPrinterUpdated     EventType = "PRINTER_UPDATED"
	EventJobPrinted         EventType = "JOB_PRINTED"
	EventJobRejected        EventType = "JOB_REJECTED"
	EventJobFailed          EventType = "JOB_FAILED"
	EventSessionState       EventType = "SESSION_STATE"
	EventDiscoveryCompleted EventType = "DISCOVERY_COMPLETED"
)

// Severity levels
const (
	SeverityInfo    = "INFO"
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
)

// Event represents an event in the system
type Event struct {
	ID        uuid.UUID  `json:"id"`
	EventType EventType  `json:"event_type"`
	PrinterID string     `json:"printer_id,omitempty"`
	Data      JSONObject `json:"data"`
	Timestamp time.Time  `json:"timestamp"`
	Source    string     `json:"source"`
	Severity  string     `json:"severity"`
}

// NewEvent creates a timestamped event
func NewEvent(eventType EventType, printerID, source string, data JSONObject) Event {
	severity := SeverityInfo
	switch eventType {
	case EventJobRejected:
		severity = SeverityWarning
	case EventJobFailed:
		severity = SeverityError
	}

	return Event{
		ID:        uuid.New(),
		EventType: eventType,
		PrinterID: printerID,
		Data:      data,
		Timestamp: time.Now(),
		Source:    source,
		Severity:  severity,
	}
}
