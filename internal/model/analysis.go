package model

import (
	"time"

	"github.com/google/uuid"
)

// ErrorType is the closed post-hoc taxonomy for why a question was missed.
// Only incorrect or skipped questions may carry one.
type ErrorType string

const (
	ErrorSillyMistake      ErrorType = "Silly Mistake"
	ErrorConceptual        ErrorType = "Conceptual Error"
	ErrorCalculation       ErrorType = "Calculation Error"
	ErrorMisinterpretation ErrorType = "Misinterpretation"
	ErrorMissedReading     ErrorType = "Missed/Skipped Reading"
	ErrorTimePressure      ErrorType = "Time Pressure"
	ErrorGuessing          ErrorType = "Guessing"
	ErrorDidNotReviseTopic ErrorType = "Did Not Revise Topic"
	ErrorMarkedWrongOption ErrorType = "Marked Wrong Option"
	ErrorLackOfPractice    ErrorType = "Lack of Practice"
	ErrorLeftBlank         ErrorType = "Left Blank Intentionally"
	ErrorTrickedByOptions  ErrorType = "Tricked by Options"
	ErrorApplication       ErrorType = "Application Error"
)

// ErrorTypes lists every taxonomy value.
var ErrorTypes = []ErrorType{
	ErrorSillyMistake, ErrorConceptual, ErrorCalculation, ErrorMisinterpretation,
	ErrorMissedReading, ErrorTimePressure, ErrorGuessing, ErrorDidNotReviseTopic,
	ErrorMarkedWrongOption, ErrorLackOfPractice, ErrorLeftBlank,
	ErrorTrickedByOptions, ErrorApplication,
}

// Valid reports whether t is one of the known error types.
func (t ErrorType) Valid() bool {
	for _, known := range ErrorTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Analysis is the examinee's post-test self-review of a single question.
// Unlike Response it is explicitly mutable: writes are idempotent upserts
// keyed by (user, test, question), last write wins.
type Analysis struct {
	ID             uuid.UUID  `json:"id"`
	UserID         int        `json:"user_id"`
	TestID         uuid.UUID  `json:"test_id"`
	QuestionID     uuid.UUID  `json:"question_id"`
	IsAttempted    bool       `json:"is_attempted"`
	SelectedOption *string    `json:"selected_option"`
	IsCorrect      *bool      `json:"is_correct"`
	ErrorType      *ErrorType `json:"error_type"`
	Notes          string     `json:"notes"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// SaveAnalysisRequest is the upsert payload for one question's analysis.
type SaveAnalysisRequest struct {
	TestID         string  `json:"test_id" binding:"required"`
	QuestionID     string  `json:"question_id" binding:"required"`
	IsAttempted    bool    `json:"is_attempted"`
	SelectedOption *string `json:"selected_option"`
	IsCorrect      *bool   `json:"is_correct"`
	ErrorType      *string `json:"error_type"`
	Notes          string  `json:"notes" binding:"omitempty,max=2000"`
}
