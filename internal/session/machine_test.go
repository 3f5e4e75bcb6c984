package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prepsio/testline-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMachine(t *testing.T, questions int) *Machine {
	t.Helper()
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return New(7, uuid.New(), questions, 60, start)
}

func TestBeginIsIdempotent(t *testing.T) {
	m := newTestMachine(t, 3)
	assert.Equal(t, model.PhaseInstructions, m.Phase)

	require.NoError(t, m.Begin())
	assert.Equal(t, model.PhaseInProgress, m.Phase)

	// A reload re-sends begin; it must not disturb anything.
	require.NoError(t, m.Begin())
	assert.Equal(t, model.PhaseInProgress, m.Phase)
}

func TestSelectOptionOverwritesAndDropsConfidence(t *testing.T) {
	m := newTestMachine(t, 3)
	require.NoError(t, m.Begin())

	require.NoError(t, m.SelectOption(0, "A"))
	require.NoError(t, m.RequestSummary())
	require.NoError(t, m.ConfirmConfidence(0, model.ConfidenceSure))
	require.NoError(t, m.ResumeAnswering())

	// Changing the answer invalidates the earlier confirmation.
	require.NoError(t, m.SelectOption(0, "B"))
	assert.Equal(t, "B", m.Answers[0])
	_, ok := m.Confidence[0]
	assert.False(t, ok)
}

func TestClearMakesQuestionUnattempted(t *testing.T) {
	m := newTestMachine(t, 3)
	require.NoError(t, m.Begin())

	require.NoError(t, m.SelectOption(1, "C"))
	require.NoError(t, m.Clear(1))

	_, ok := m.Answers[1]
	assert.False(t, ok)
}

func TestNavigationBounds(t *testing.T) {
	m := newTestMachine(t, 3)
	require.NoError(t, m.Begin())

	// Prev at the first question stays put.
	require.NoError(t, m.Prev())
	assert.Equal(t, 0, m.Current)

	require.NoError(t, m.Next())
	require.NoError(t, m.Next())
	assert.Equal(t, 2, m.Current)

	// Next past the last question moves to the review summary.
	require.NoError(t, m.Next())
	assert.Equal(t, model.PhaseReviewPending, m.Phase)
}

func TestGotoOutOfRange(t *testing.T) {
	m := newTestMachine(t, 3)
	require.NoError(t, m.Begin())

	assert.ErrorIs(t, m.Goto(3), ErrQuestionOutOfRange)
	assert.ErrorIs(t, m.Goto(-1), ErrQuestionOutOfRange)
	assert.ErrorIs(t, m.SelectOption(5, "A"), ErrQuestionOutOfRange)
}

func TestConfidenceOnlyForAttempted(t *testing.T) {
	m := newTestMachine(t, 3)
	require.NoError(t, m.Begin())
	require.NoError(t, m.SelectOption(0, "A"))
	require.NoError(t, m.RequestSummary())

	assert.ErrorIs(t, m.ConfirmConfidence(1, model.ConfidenceSure), ErrNotAttempted)
	assert.ErrorIs(t, m.ConfirmConfidence(0, model.ConfidenceLevel("Very Sure")), ErrInvalidConfidence)
	require.NoError(t, m.ConfirmConfidence(0, model.ConfidencePartial))
}

func TestFinalizeRequiresConfidenceForEveryAnswer(t *testing.T) {
	m := newTestMachine(t, 3)
	require.NoError(t, m.Begin())
	require.NoError(t, m.SelectOption(0, "A"))
	require.NoError(t, m.SelectOption(2, "B"))
	require.NoError(t, m.RequestSummary())

	assert.ErrorIs(t, m.BeginFinalize(), ErrConfidenceMissing)

	require.NoError(t, m.ConfirmConfidence(0, model.ConfidenceSure))
	require.NoError(t, m.ConfirmConfidence(2, model.ConfidenceRandom))
	require.NoError(t, m.BeginFinalize())
	assert.Equal(t, model.PhaseSubmitting, m.Phase)
}

func TestSubmittingLocksOutEverything(t *testing.T) {
	m := newTestMachine(t, 2)
	require.NoError(t, m.Begin())
	require.NoError(t, m.SelectOption(0, "A"))
	require.NoError(t, m.RequestSummary())
	require.NoError(t, m.ConfirmConfidence(0, model.ConfidenceSure))
	require.NoError(t, m.BeginFinalize())

	assert.ErrorIs(t, m.SelectOption(1, "B"), ErrSubmitting)
	assert.ErrorIs(t, m.Begin(), ErrSubmitting)
	assert.ErrorIs(t, m.BeginFinalize(), ErrSubmitting)

	// A failed submit releases the lock with answers intact.
	m.FinalizeFailed()
	assert.Equal(t, model.PhaseReviewPending, m.Phase)
	assert.Equal(t, "A", m.Answers[0])
	require.NoError(t, m.BeginFinalize())

	m.FinalizeSucceeded()
	assert.Equal(t, model.PhaseSubmitted, m.Phase)
	assert.ErrorIs(t, m.BeginFinalize(), ErrAlreadySubmitted)
}

func TestTimerExpiredForcesReview(t *testing.T) {
	m := newTestMachine(t, 3)
	require.NoError(t, m.Begin())
	require.NoError(t, m.SelectOption(0, "A"))

	m.TimerExpired()
	assert.Equal(t, model.PhaseReviewPending, m.Phase)
	assert.True(t, m.AutoSubmitted)

	// No going back after expiry.
	assert.ErrorIs(t, m.ResumeAnswering(), ErrNotInProgress)

	// A late tick is a no-op.
	m.TimerExpired()
	assert.Equal(t, model.PhaseReviewPending, m.Phase)
}

func TestTimerExpiredDoesNotDisturbSubmission(t *testing.T) {
	m := newTestMachine(t, 1)
	require.NoError(t, m.Begin())
	require.NoError(t, m.SelectOption(0, "A"))
	require.NoError(t, m.RequestSummary())
	require.NoError(t, m.ConfirmConfidence(0, model.ConfidenceSure))
	require.NoError(t, m.BeginFinalize())

	m.TimerExpired()
	assert.Equal(t, model.PhaseSubmitting, m.Phase)
	assert.False(t, m.AutoSubmitted)

	m.FinalizeSucceeded()
	m.TimerExpired()
	assert.Equal(t, model.PhaseSubmitted, m.Phase)
}

func TestBeginAutoFinalizeSkipsConfidenceCheck(t *testing.T) {
	m := newTestMachine(t, 2)
	require.NoError(t, m.Begin())
	require.NoError(t, m.SelectOption(0, "A"))

	m.TimerExpired()
	require.NoError(t, m.BeginAutoFinalize())
	assert.Equal(t, model.PhaseSubmitting, m.Phase)
	assert.True(t, m.AutoSubmitted)
}

func TestBuildResponsesCoversEveryQuestion(t *testing.T) {
	m := newTestMachine(t, 3)
	require.NoError(t, m.Begin())
	require.NoError(t, m.SelectOption(0, "A"))
	require.NoError(t, m.ToggleReview(1))
	require.NoError(t, m.RequestSummary())
	require.NoError(t, m.ConfirmConfidence(0, model.ConfidenceSure))

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	inputs := m.BuildResponses(ids)
	require.Len(t, inputs, 3)

	require.NotNil(t, inputs[0].SelectedOption)
	assert.Equal(t, "A", *inputs[0].SelectedOption)
	require.NotNil(t, inputs[0].ConfidenceLevel)
	assert.Equal(t, model.ConfidenceSure, *inputs[0].ConfidenceLevel)

	assert.Nil(t, inputs[1].SelectedOption)
	assert.Nil(t, inputs[1].ConfidenceLevel)
	assert.True(t, inputs[1].IsMarkedForReview)

	assert.Nil(t, inputs[2].SelectedOption)
	assert.Equal(t, ids[2].String(), inputs[2].QuestionID)
}

func TestSnapshotRoundTrip(t *testing.T) {
	m := newTestMachine(t, 4)
	require.NoError(t, m.Begin())
	require.NoError(t, m.SelectOption(0, "A"))
	require.NoError(t, m.SelectOption(2, "C"))
	require.NoError(t, m.ToggleReview(3))
	require.NoError(t, m.Goto(2))

	data, err := m.Snapshot().Marshal()
	require.NoError(t, err)

	snap, err := Unmarshal(data)
	require.NoError(t, err)
	restored := Restore(snap)

	assert.Equal(t, m.Phase, restored.Phase)
	assert.Equal(t, m.Current, restored.Current)
	assert.Equal(t, m.Answers, restored.Answers)
	assert.Equal(t, m.Review, restored.Review)
	assert.Equal(t, m.StartedAt.Unix(), restored.StartedAt.Unix())
}

func TestRestoreDropsMalformedEntries(t *testing.T) {
	m := newTestMachine(t, 2)
	snap := m.Snapshot()
	snap.Answers = map[string]string{
		"0":  "A",
		"7":  "B", // out of range
		"x":  "C", // not an ordinal
		"-1": "D",
		"1 ": "E",
	}
	snap.Current = 99

	restored := Restore(snap)
	assert.Equal(t, map[int]string{0: "A"}, restored.Answers)
	assert.Equal(t, 0, restored.Current)
}
