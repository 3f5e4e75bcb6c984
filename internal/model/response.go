package model

import (
	"time"

	"github.com/google/uuid"
)

// ConfidenceLevel is the self-reported certainty for an answered question.
type ConfidenceLevel string

const (
	ConfidenceSure    ConfidenceLevel = "100% Sure"
	ConfidencePartial ConfidenceLevel = "Partially Sure"
	ConfidenceRandom  ConfidenceLevel = "Randomly Selected"
)

// ConfidenceLevels lists all levels in display order.
var ConfidenceLevels = []ConfidenceLevel{ConfidenceSure, ConfidencePartial, ConfidenceRandom}

// Valid reports whether l is one of the known confidence levels.
func (l ConfidenceLevel) Valid() bool {
	switch l {
	case ConfidenceSure, ConfidencePartial, ConfidenceRandom:
		return true
	}
	return false
}

// Response is one scored answer row, keyed by (user, test, question).
// Rows are created once by the Submission Service and never mutated; every
// aggregate downstream depends on that immutability. Marks, subject and
// topics are snapshots of the question at submission time.
type Response struct {
	ID                uuid.UUID        `json:"id"`
	UserID            int              `json:"user_id"`
	TestID            uuid.UUID        `json:"test_id"`
	QuestionID        uuid.UUID        `json:"question_id"`
	SelectedOption    *string          `json:"selected_option"`
	ConfidenceLevel   *ConfidenceLevel `json:"confidence_level"`
	IsMarkedForReview bool             `json:"is_marked_for_review"`
	IsCorrect         bool             `json:"is_correct"`
	PositiveMarks     float64          `json:"positive_marks"`
	NegativeMarks     float64          `json:"negative_marks"`
	Subject           string           `json:"subject"`
	Topics            []string         `json:"topics"`
	SubmittedAt       time.Time        `json:"submitted_at"`
}

// Attempted reports whether the question was answered at all. Questions the
// examinee never visited and questions visited but left blank are identical.
func (r *Response) Attempted() bool {
	return r.SelectedOption != nil
}

// ResponseInput is one incoming per-question answer in a submission.
type ResponseInput struct {
	QuestionID        string           `json:"question_id" binding:"required"`
	SelectedOption    *string          `json:"selected_option"`
	ConfidenceLevel   *ConfidenceLevel `json:"confidence_level"`
	IsMarkedForReview bool             `json:"is_marked_for_review"`
}

// SubmitRequest is the full submission payload for one (user, test) pair.
type SubmitRequest struct {
	TestID    string          `json:"test_id" binding:"required"`
	Responses []ResponseInput `json:"responses" binding:"required"`
}

// Submission is the at-most-once marker row for a (user, test) pair. Its
// existence — not the count of Response rows — is what "attempted" means,
// so a submission with zero scorable answers still consumes the attempt.
type Submission struct {
	UserID             int       `json:"user_id"`
	TestID             uuid.UUID `json:"test_id"`
	SubmittedQuestions int       `json:"submitted_questions"`
	SubmittedAt        time.Time `json:"submitted_at"`
}

// SubmitResult is returned to the client after a successful submission.
type SubmitResult struct {
	TestID             uuid.UUID `json:"test_id"`
	UserID             int       `json:"user_id"`
	SubmittedQuestions int       `json:"submitted_questions"`
}

// ReportRow is a Response joined with the question metadata the report UI
// needs (question text, options and the correct answer are safe to expose
// once the test is submitted).
type ReportRow struct {
	Response
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Difficulty    string   `json:"difficulty"`
}
