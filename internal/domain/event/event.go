package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys used by the lifecycle events
const (
	KeyApplicantID  = "applicant_id"
	KeyAssigneeID   = "assignee_id"
	KeyAssigneeName = "assignee_name"
	KeyApproverName = "approver_name"
	KeyTitle        = "title"
	KeyComment      = "comment"
)

// Event represents a domain event emitted after a lifecycle transaction commits
type Event struct {
	ID        string                 `json:"id"`
	Type      Type                   `json:"type"`
	AppID     int64                  `json:"app_id"`
	AppNo     string                 `json:"app_no"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEvent creates a new domain event with auto-generated ID and timestamp
func NewEvent(eventType Type, appID int64, appNo string, payload map[string]interface{}) *Event {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		AppID:     appID,
		AppNo:     appNo,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// WithPayload returns a copy of the event with key set (immutable operation)
func (e *Event) WithPayload(key string, value interface{}) *Event {
	payload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	payload[key] = value

	copied := *e
	copied.Payload = payload
	return &copied
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if str, ok := e.Payload[key].(string); ok {
		return str
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	switch v := e.Payload[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}
