package model

import (
	"time"

	"github.com/google/uuid"
)

// Test represents a scheduled, timed multiple-choice test.
//
// StartTime and EndTime are stored as full timestamps, but only their
// time-of-day is meaningful: the active window is built by overlaying that
// time-of-day onto TestDate's calendar date in the reference timezone.
type Test struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Instructions    []string  `json:"instructions,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	MaxMarks        float64   `json:"max_marks"`
	TestDate        time.Time `json:"test_date"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	QuestionCount   int       `json:"question_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Window returns the test's active window on its scheduled date, in loc.
// The date component of StartTime/EndTime is discarded and replaced by
// TestDate's calendar date.
func (t *Test) Window(loc *time.Location) (start, end time.Time) {
	y, m, d := t.TestDate.In(loc).Date()

	st := t.StartTime.In(loc)
	et := t.EndTime.In(loc)

	start = time.Date(y, m, d, st.Hour(), st.Minute(), st.Second(), 0, loc)
	end = time.Date(y, m, d, et.Hour(), et.Minute(), et.Second(), 0, loc)
	return start, end
}

// CreateTestRequest is the authoring payload for creating a test.
type CreateTestRequest struct {
	Title           string    `json:"title" binding:"required,min=3,max=255"`
	Description     string    `json:"description" binding:"omitempty,max=2000"`
	Instructions    []string  `json:"instructions" binding:"omitempty,dive,max=500"`
	DurationMinutes int       `json:"duration_minutes" binding:"required,min=1,max=480"`
	MaxMarks        float64   `json:"max_marks" binding:"required,gte=0"`
	TestDate        time.Time `json:"test_date" binding:"required"`
	StartTime       time.Time `json:"start_time" binding:"required"`
	EndTime         time.Time `json:"end_time" binding:"required"`
}

// UpdateTestRequest is the authoring payload for editing a test.
type UpdateTestRequest struct {
	Title           string     `json:"title" binding:"omitempty,min=3,max=255"`
	Description     *string    `json:"description" binding:"omitempty,max=2000"`
	Instructions    []string   `json:"instructions" binding:"omitempty,dive,max=500"`
	DurationMinutes int        `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	MaxMarks        *float64   `json:"max_marks" binding:"omitempty,gte=0"`
	TestDate        *time.Time `json:"test_date" binding:"omitempty"`
	StartTime       *time.Time `json:"start_time" binding:"omitempty"`
	EndTime         *time.Time `json:"end_time" binding:"omitempty"`
}

// TestPaper is the Redis-cached payload served to examinees. Correct answers
// are stripped before caching so they never reach the client.
type TestPaper struct {
	TestID          uuid.UUID         `json:"test_id"`
	Title           string            `json:"title"`
	Instructions    []string          `json:"instructions,omitempty"`
	DurationMinutes int               `json:"duration_minutes"`
	MaxMarks        float64           `json:"max_marks"`
	Questions       []PaperQuestion   `json:"questions"`
}

// PaperQuestion is a question as shown while taking a test: no correct
// answer, no marks breakdown.
type PaperQuestion struct {
	ID           uuid.UUID `json:"id"`
	QuestionText string    `json:"question_text"`
	Options      []string  `json:"options"`
	Subject      string    `json:"subject"`
	OrderNum     int       `json:"order_num"`
}
