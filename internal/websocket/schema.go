package websocket

import (
	"github.com/stemsi/exstem-adaptive/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionEvent Action = "event"
	ActionPing  Action = "ping"
)

// EventRequest carries one proctoring event. The event fields sit next to
// the action so clients send a flat object.
type EventRequest struct {
	Action Action `json:"action"`
	model.LogProctoringEventRequest
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventAck   Event = "ack"
	EventPong  Event = "pong"
	EventError Event = "error"
)

// AckResponse acknowledges an event message. Accepted is false when the
// event was malformed and dropped.
type AckResponse struct {
	Event    Event `json:"event"`
	Accepted bool  `json:"accepted"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
