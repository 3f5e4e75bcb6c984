package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prepsio/testline-backend/internal/model"
	"github.com/prepsio/testline-backend/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleQuestion() *model.Question {
	return &model.Question{
		ID:            uuid.New(),
		QuestionText:  "Speed of light in vacuum?",
		Options:       []string{"3x10^8 m/s", "3x10^6 m/s", "3x10^5 m/s"},
		CorrectAnswer: "3x10^8 m/s",
		PositiveMarks: 4,
		NegativeMarks: 1,
		Subject:       "Physics",
		Topics:        []string{"Optics", "Constants"},
	}
}

func TestScoreResponse(t *testing.T) {
	testID := uuid.New()
	q := sampleQuestion()

	testCases := []struct {
		name        string
		selected    *string
		wantCorrect bool
	}{
		{"correct answer", strPtr("3x10^8 m/s"), true},
		{"wrong answer", strPtr("3x10^6 m/s"), false},
		{"answer not among options", strPtr("nonsense"), false},
		{"unattempted", nil, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := &model.ResponseInput{
				QuestionID:     q.ID.String(),
				SelectedOption: tc.selected,
			}
			if tc.selected != nil {
				in.ConfidenceLevel = confPtr(model.ConfidenceSure)
			}

			resp := ScoreResponse(9, testID, q, in)

			assert.Equal(t, tc.wantCorrect, resp.IsCorrect)
			assert.Equal(t, q.ID, resp.QuestionID)
			assert.Equal(t, 9, resp.UserID)
			assert.Equal(t, testID, resp.TestID)

			// The row snapshots the question's marks and tags so later
			// question edits never rewrite history.
			assert.Equal(t, 4.0, resp.PositiveMarks)
			assert.Equal(t, 1.0, resp.NegativeMarks)
			assert.Equal(t, "Physics", resp.Subject)
			assert.Equal(t, []string{"Optics", "Constants"}, resp.Topics)
		})
	}
}

func TestScoreResponseExactMatchOnly(t *testing.T) {
	q := sampleQuestion()

	// Case and whitespace matter: grading is an exact string comparison.
	resp := ScoreResponse(1, uuid.New(), q, &model.ResponseInput{
		QuestionID:      q.ID.String(),
		SelectedOption:  strPtr("3X10^8 M/S"),
		ConfidenceLevel: confPtr(model.ConfidenceSure),
	})
	assert.False(t, resp.IsCorrect)
}

func TestGradeSubmission(t *testing.T) {
	testID := uuid.New()
	q := sampleQuestion()
	questions := []model.Question{*q}

	t.Run("unknown and duplicate questions are skipped", func(t *testing.T) {
		inputs := []model.ResponseInput{
			{QuestionID: q.ID.String(), SelectedOption: strPtr("3x10^8 m/s"), ConfidenceLevel: confPtr(model.ConfidenceSure)},
			{QuestionID: q.ID.String(), SelectedOption: strPtr("3x10^6 m/s"), ConfidenceLevel: confPtr(model.ConfidenceSure)},
			{QuestionID: uuid.New().String(), SelectedOption: strPtr("whatever"), ConfidenceLevel: confPtr(model.ConfidenceSure)},
			{QuestionID: "not-a-uuid"},
		}

		responses, err := GradeSubmission(1, testID, questions, inputs, false)
		require.NoError(t, err)
		require.Len(t, responses, 1)
		assert.True(t, responses[0].IsCorrect)
	})

	t.Run("attempted answer without confidence fails", func(t *testing.T) {
		inputs := []model.ResponseInput{
			{QuestionID: q.ID.String(), SelectedOption: strPtr("3x10^8 m/s")},
		}

		_, err := GradeSubmission(1, testID, questions, inputs, false)
		assert.ErrorIs(t, err, ErrConfidenceRequired)
	})

	t.Run("invalid confidence fails", func(t *testing.T) {
		bad := model.ConfidenceLevel("Quite Sure")
		inputs := []model.ResponseInput{
			{QuestionID: q.ID.String(), SelectedOption: strPtr("3x10^8 m/s"), ConfidenceLevel: &bad},
		}

		_, err := GradeSubmission(1, testID, questions, inputs, false)
		assert.ErrorIs(t, err, ErrInvalidConfidence)
	})
}

func TestExpiredSessionStillGrades(t *testing.T) {
	// A session opened half an hour before the window closes keeps its full
	// 60-minute timer; by expiry the window is long shut. The payload built
	// from that session must still grade — the window gates opening, never
	// acceptance.
	start := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	testID := uuid.New()
	q := sampleQuestion()

	m := session.New(7, testID, 1, 60, start)
	require.NoError(t, m.Begin())
	require.NoError(t, m.SelectOption(0, "3x10^8 m/s"))

	expiredAt := start.Add(60 * time.Minute)
	require.Equal(t, 0, m.Remaining(expiredAt))
	m.TimerExpired()
	require.NoError(t, m.BeginAutoFinalize())

	inputs := m.BuildResponses([]uuid.UUID{q.ID})
	responses, err := GradeSubmission(7, testID, []model.Question{*q}, inputs, true)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.True(t, responses[0].IsCorrect)
	// No confirmation screen was reached, so confidence stays null.
	assert.Nil(t, responses[0].ConfidenceLevel)
}

func TestCheckOptions(t *testing.T) {
	testCases := []struct {
		name    string
		options []string
		correct string
		wantErr error
	}{
		{"valid", []string{"A", "B", "C"}, "B", nil},
		{"too few options", []string{"A", "B"}, "A", ErrOptionCount},
		{"duplicate options", []string{"A", "B", "A"}, "B", ErrDuplicateOptions},
		{"correct answer missing", []string{"A", "B", "C"}, "D", ErrCorrectAnswerNotOption},
		{"correct answer case mismatch", []string{"A", "B", "C"}, "a", ErrCorrectAnswerNotOption},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := checkOptions(tc.options, tc.correct)
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}
