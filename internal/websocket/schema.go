package websocket

import "github.com/prepsio/testline-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionEvent    Action = "event"
	ActionFinalize Action = "finalize"
	ActionPing     Action = "ping"
)

// Request is the single client message shape. Event fields are only read
// when Action is "event".
type Request struct {
	Action     Action                 `json:"action"`
	Event      model.SessionEventType `json:"event,omitempty"`
	Question   *int                   `json:"question,omitempty"`
	Option     string                 `json:"option,omitempty"`
	Confidence string                 `json:"confidence,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState     Event = "state"
	EventTick      Event = "tick"
	EventExpired   Event = "expired"
	EventSubmitted Event = "submitted"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// StateResponse carries the full session state after a transition or on
// connect.
type StateResponse struct {
	Event   Event               `json:"event"`
	Session *model.SessionState `json:"session"`
}

// TickResponse is the server-side countdown push. Clients render it
// directly; they never run their own clock.
type TickResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

// SubmittedResponse announces the accepted submission, whether user- or
// timer-triggered.
type SubmittedResponse struct {
	Event      Event               `json:"event"`
	Submission *model.SubmitResult `json:"submission"`
}

// ExpiredResponse tells the client the timer hit zero; a SubmittedResponse
// follows once the auto-finalize lands.
type ExpiredResponse struct {
	Event Event `json:"event"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
