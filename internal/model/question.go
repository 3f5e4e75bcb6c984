package model

import (
	"time"

	"github.com/google/uuid"
)

// Difficulty enumerates question difficulty levels.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question represents a multiple-choice question. A question may belong to
// any number of tests (association via test_questions). Immutable while a
// test session is in progress; the Submission Service snapshots the fields
// it needs so later edits never change historical scores.
type Question struct {
	ID            uuid.UUID  `json:"id"`
	QuestionText  string     `json:"question_text"`
	Options       []string   `json:"options"`
	CorrectAnswer string     `json:"correct_answer,omitempty"`
	PositiveMarks float64    `json:"positive_marks"`
	NegativeMarks float64    `json:"negative_marks"`
	Subject       string     `json:"subject"`
	Topics        []string   `json:"topics"`
	Difficulty    Difficulty `json:"difficulty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// AddQuestionRequest is the authoring payload for creating a question and
// attaching it to a test. The handler enforces the option invariants
// (at least 3 distinct options, correct answer among them) before the
// question ever reaches storage.
type AddQuestionRequest struct {
	QuestionText  string   `json:"question_text" binding:"required,min=1,max=2000"`
	Options       []string `json:"options" binding:"required,min=3,dive,min=1,max=500"`
	CorrectAnswer string   `json:"correct_answer" binding:"required,max=500"`
	PositiveMarks *float64 `json:"positive_marks" binding:"omitempty,gte=0"`
	NegativeMarks *float64 `json:"negative_marks" binding:"omitempty,gte=0"`
	Subject       string   `json:"subject" binding:"required,min=1,max=100"`
	Topics        []string `json:"topics" binding:"omitempty,dive,min=1,max=100"`
	Difficulty    string   `json:"difficulty" binding:"required,oneof=easy medium hard"`
}
