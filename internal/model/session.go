package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionPhase enumerates the test session state machine phases.
type SessionPhase string

const (
	PhaseInstructions  SessionPhase = "INSTRUCTIONS"
	PhaseInProgress    SessionPhase = "IN_PROGRESS"
	PhaseReviewPending SessionPhase = "REVIEW_PENDING"
	// PhaseSubmitting locks the machine while finalize is outstanding so a
	// repeated click or a racing timer tick cannot trigger a second submit.
	PhaseSubmitting SessionPhase = "SUBMITTING"
	PhaseSubmitted  SessionPhase = "SUBMITTED"
)

// TestSession is the durable record of a user's attempt-in-progress.
// StartedAt is fixed the first time the session is opened and never
// overwritten; the remaining time is always recomputed from it.
type TestSession struct {
	ID            uuid.UUID    `json:"id"`
	UserID        int          `json:"user_id"`
	TestID        uuid.UUID    `json:"test_id"`
	StartedAt     time.Time    `json:"started_at"`
	Phase         SessionPhase `json:"phase"`
	AutoSubmitted bool         `json:"auto_submitted"`
}

// SessionState is the full reload-safe state returned to the client: the
// machine snapshot plus the server-computed remaining seconds.
type SessionState struct {
	TestID           uuid.UUID               `json:"test_id"`
	UserID           int                     `json:"user_id"`
	Phase            SessionPhase            `json:"phase"`
	CurrentQuestion  int                     `json:"current_question"`
	Answers          map[int]string          `json:"answers"`
	ReviewStatus     map[int]bool            `json:"review_status"`
	ConfidenceLevels map[int]ConfidenceLevel `json:"confidence_levels"`
	AutoSubmitted    bool                    `json:"auto_submitted"`
	RemainingSeconds int                     `json:"remaining_seconds"`
}

// SessionEventType enumerates client-initiated state machine transitions.
type SessionEventType string

const (
	EventBegin             SessionEventType = "begin"
	EventSelectOption      SessionEventType = "select_option"
	EventClear             SessionEventType = "clear"
	EventToggleReview      SessionEventType = "toggle_review"
	EventNext              SessionEventType = "next"
	EventPrev              SessionEventType = "prev"
	EventGoto              SessionEventType = "goto"
	EventRequestSummary    SessionEventType = "request_summary"
	EventResumeAnswering   SessionEventType = "resume_answering"
	EventConfirmConfidence SessionEventType = "confirm_confidence"
)

// SessionEventRequest is one transition applied to an open session.
type SessionEventRequest struct {
	Event      SessionEventType `json:"event" binding:"required"`
	Question   *int             `json:"question" binding:"omitempty,min=0"`
	Option     string           `json:"option" binding:"omitempty,max=500"`
	Confidence string           `json:"confidence" binding:"omitempty,max=30"`
}
