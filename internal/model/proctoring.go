package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProctoringEventType enumerates browser-observed integrity signals.
type ProctoringEventType string

const (
	EventTabSwitch       ProctoringEventType = "tab_switch"
	EventFaceNotDetected ProctoringEventType = "face_not_detected"
	EventMultipleFaces   ProctoringEventType = "multiple_faces"
	EventCopyPaste       ProctoringEventType = "copy_paste"
	EventRightClick      ProctoringEventType = "right_click"
)

// ProctoringEventTypes lists every known event type.
var ProctoringEventTypes = []ProctoringEventType{
	EventTabSwitch,
	EventFaceNotDetected,
	EventMultipleFaces,
	EventCopyPaste,
	EventRightClick,
}

// Valid reports whether t is a known event type.
func (t ProctoringEventType) Valid() bool {
	for _, v := range ProctoringEventTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ProctoringEvent is one entry of a session's append-only event log.
type ProctoringEvent struct {
	SessionID  uuid.UUID           `json:"session_id"`
	Type       ProctoringEventType `json:"event_type"`
	Confidence float64             `json:"confidence"`
	Timestamp  time.Time           `json:"timestamp"`
	Details    json.RawMessage     `json:"details,omitempty"`
	ReceivedAt time.Time           `json:"received_at"`
}

// Validate reports why an event is malformed, or nil.
func (e *ProctoringEvent) Validate() error {
	if e.SessionID == uuid.Nil {
		return errors.New("session id is required")
	}
	if !e.Type.Valid() {
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", e.Confidence)
	}
	if e.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}
	if len(e.Details) > 0 && !json.Valid(e.Details) {
		return errors.New("details is not valid JSON")
	}
	return nil
}

// RiskLevel is the integrity verdict of a session.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ProctoringReport is derived from the event log on every request and never stored.
type ProctoringReport struct {
	IntegrityScore  float64                     `json:"integrity_score"`
	RiskLevel       RiskLevel                   `json:"risk_level"`
	EventCounts     map[ProctoringEventType]int `json:"event_counts"`
	TotalEvents     int                         `json:"total_events"`
	Recommendations []string                    `json:"recommendations"`
	RecentEvents    []ProctoringEvent           `json:"recent_events"`
	FirstEventAt    *time.Time                  `json:"first_event_at,omitempty"`
	LastEventAt     *time.Time                  `json:"last_event_at,omitempty"`
}

// LogProctoringEventRequest is the payload of a single proctoring event.
type LogProctoringEventRequest struct {
	EventType  string          `json:"event_type" binding:"required,event_type"`
	Confidence *float64        `json:"confidence" binding:"required,min=0,max=1"`
	Timestamp  time.Time       `json:"timestamp" binding:"required"`
	Details    json.RawMessage `json:"details" binding:"omitempty,max=4096"`
}

// ToEvent converts a validated request into a log entry.
func (r *LogProctoringEventRequest) ToEvent(sessionID uuid.UUID, receivedAt time.Time) ProctoringEvent {
	ev := ProctoringEvent{
		SessionID:  sessionID,
		Type:       ProctoringEventType(r.EventType),
		Timestamp:  r.Timestamp,
		Details:    r.Details,
		ReceivedAt: receivedAt,
	}
	if r.Confidence != nil {
		ev.Confidence = *r.Confidence
	}
	return ev
}

// ProctorLoginRequest is the payload for proctor authentication.
type ProctorLoginRequest struct {
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required,min=6,max=200"`
}
