package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prepsio/testline-backend/internal/model"
)

// Transition errors returned by Machine methods.
var (
	ErrNotInProgress      = errors.New("session is not in progress")
	ErrNotReviewPending   = errors.New("session is not awaiting review")
	ErrAlreadySubmitted   = errors.New("session is already submitted")
	ErrSubmitting         = errors.New("a submission is already in flight")
	ErrQuestionOutOfRange = errors.New("question index out of range")
	ErrNotAttempted       = errors.New("question was not attempted")
	ErrInvalidConfidence  = errors.New("unknown confidence level")
	ErrConfidenceMissing  = errors.New("confidence level missing for an attempted question")
)

// Machine is the test session state machine for one (user, test) pair.
//
// It is deliberately storage-agnostic: callers restore it from a Snapshot,
// apply transitions, and persist the new Snapshot. All transitions are
// synchronous; only finalize involves I/O, and the SUBMITTING phase locks
// the machine while that call is outstanding.
type Machine struct {
	UserID          int
	TestID          uuid.UUID
	QuestionCount   int
	DurationMinutes int
	StartedAt       time.Time

	Phase         model.SessionPhase
	Current       int
	Answers       map[int]string
	Review        map[int]bool
	Confidence    map[int]model.ConfidenceLevel
	AutoSubmitted bool
}

// New creates a machine in the INSTRUCTIONS phase. startedAt must be the
// once-established session start; the machine never sets it itself.
func New(userID int, testID uuid.UUID, questionCount, durationMinutes int, startedAt time.Time) *Machine {
	return &Machine{
		UserID:          userID,
		TestID:          testID,
		QuestionCount:   questionCount,
		DurationMinutes: durationMinutes,
		StartedAt:       startedAt,
		Phase:           model.PhaseInstructions,
		Answers:         make(map[int]string),
		Review:          make(map[int]bool),
		Confidence:      make(map[int]model.ConfidenceLevel),
	}
}

// Remaining returns the seconds left at now.
func (m *Machine) Remaining(now time.Time) int {
	return Remaining(m.DurationMinutes, m.StartedAt, now)
}

// Begin moves from INSTRUCTIONS to IN_PROGRESS. Re-entering an already
// running session is a no-op so reloads are harmless.
func (m *Machine) Begin() error {
	switch m.Phase {
	case model.PhaseInstructions:
		m.Phase = model.PhaseInProgress
		return nil
	case model.PhaseInProgress:
		return nil
	case model.PhaseSubmitting:
		return ErrSubmitting
	case model.PhaseSubmitted:
		return ErrAlreadySubmitted
	default:
		return ErrNotInProgress
	}
}

// SelectOption records an answer for question i. Re-selecting the same
// option is observably a no-op; a different option overwrites.
func (m *Machine) SelectOption(i int, option string) error {
	if err := m.requireInProgress(); err != nil {
		return err
	}
	if err := m.checkIndex(i); err != nil {
		return err
	}
	m.Answers[i] = option
	// An overwritten answer invalidates any confidence confirmed earlier.
	delete(m.Confidence, i)
	return nil
}

// Clear removes the answer for question i. A cleared question is
// indistinguishable from one never visited.
func (m *Machine) Clear(i int) error {
	if err := m.requireInProgress(); err != nil {
		return err
	}
	if err := m.checkIndex(i); err != nil {
		return err
	}
	delete(m.Answers, i)
	delete(m.Confidence, i)
	return nil
}

// ToggleReview flips the review flag for question i. Review flags are
// display-only and never affect scoring.
func (m *Machine) ToggleReview(i int) error {
	if err := m.requireInProgress(); err != nil {
		return err
	}
	if err := m.checkIndex(i); err != nil {
		return err
	}
	if m.Review[i] {
		delete(m.Review, i)
	} else {
		m.Review[i] = true
	}
	return nil
}

// Next advances the question pointer. Moving past the last question
// transitions to REVIEW_PENDING.
func (m *Machine) Next() error {
	if err := m.requireInProgress(); err != nil {
		return err
	}
	if m.Current+1 >= m.QuestionCount {
		m.Phase = model.PhaseReviewPending
		return nil
	}
	m.Current++
	return nil
}

// Prev moves the question pointer back, stopping at zero.
func (m *Machine) Prev() error {
	if err := m.requireInProgress(); err != nil {
		return err
	}
	if m.Current > 0 {
		m.Current--
	}
	return nil
}

// Goto jumps the pointer to question i.
func (m *Machine) Goto(i int) error {
	if err := m.requireInProgress(); err != nil {
		return err
	}
	if err := m.checkIndex(i); err != nil {
		return err
	}
	m.Current = i
	return nil
}

// RequestSummary moves to REVIEW_PENDING explicitly.
func (m *Machine) RequestSummary() error {
	if err := m.requireInProgress(); err != nil {
		return err
	}
	m.Phase = model.PhaseReviewPending
	return nil
}

// ResumeAnswering returns from REVIEW_PENDING to IN_PROGRESS, unless the
// review was forced by timer expiry.
func (m *Machine) ResumeAnswering() error {
	if m.Phase != model.PhaseReviewPending {
		return ErrNotReviewPending
	}
	if m.AutoSubmitted {
		return ErrNotInProgress
	}
	m.Phase = model.PhaseInProgress
	return nil
}

// TimerExpired forces the session into REVIEW_PENDING with the
// auto-submitted flag set, regardless of the current pointer. Firing on a
// session already past answering is a no-op, so a late tick cannot disturb
// an in-flight or completed submission.
func (m *Machine) TimerExpired() {
	switch m.Phase {
	case model.PhaseInstructions, model.PhaseInProgress:
		m.Phase = model.PhaseReviewPending
		m.AutoSubmitted = true
	}
}

// ConfirmConfidence records the confidence level for an attempted question.
// Only valid in REVIEW_PENDING, and only for questions with an answer.
func (m *Machine) ConfirmConfidence(i int, level model.ConfidenceLevel) error {
	if m.Phase != model.PhaseReviewPending {
		return ErrNotReviewPending
	}
	if err := m.checkIndex(i); err != nil {
		return err
	}
	if _, ok := m.Answers[i]; !ok {
		return ErrNotAttempted
	}
	if !level.Valid() {
		return ErrInvalidConfidence
	}
	m.Confidence[i] = level
	return nil
}

// ReadyToFinalize checks that every attempted question has a confirmed
// confidence level.
func (m *Machine) ReadyToFinalize() error {
	if m.Phase != model.PhaseReviewPending {
		return ErrNotReviewPending
	}
	for i := range m.Answers {
		if _, ok := m.Confidence[i]; !ok {
			return ErrConfidenceMissing
		}
	}
	return nil
}

// BeginFinalize locks the machine into SUBMITTING. Every finalize trigger —
// user click, retried click, timer callback — must pass through here, so at
// most one can proceed at a time.
func (m *Machine) BeginFinalize() error {
	switch m.Phase {
	case model.PhaseSubmitting:
		return ErrSubmitting
	case model.PhaseSubmitted:
		return ErrAlreadySubmitted
	}
	if err := m.ReadyToFinalize(); err != nil {
		return err
	}
	m.Phase = model.PhaseSubmitting
	return nil
}

// BeginAutoFinalize locks the machine into SUBMITTING without the
// confidence check. Timer-driven finalize submits whatever is there;
// questions left without a confirmed confidence level go in as answered
// but unconfirmed.
func (m *Machine) BeginAutoFinalize() error {
	switch m.Phase {
	case model.PhaseSubmitting:
		return ErrSubmitting
	case model.PhaseSubmitted:
		return ErrAlreadySubmitted
	}
	m.AutoSubmitted = true
	m.Phase = model.PhaseSubmitting
	return nil
}

// FinalizeFailed returns to REVIEW_PENDING after a failed submission,
// keeping all answers and confidence levels intact for a retry.
func (m *Machine) FinalizeFailed() {
	if m.Phase == model.PhaseSubmitting {
		m.Phase = model.PhaseReviewPending
	}
}

// FinalizeSucceeded moves to the terminal SUBMITTED phase.
func (m *Machine) FinalizeSucceeded() {
	m.Phase = model.PhaseSubmitted
}

// BuildResponses packages the ordinal answer maps into submission payloads.
// Every question appears exactly once: unattempted ordinals yield a null
// selected option and null confidence, so the Submission Service records
// them too.
func (m *Machine) BuildResponses(questionIDs []uuid.UUID) []model.ResponseInput {
	inputs := make([]model.ResponseInput, 0, len(questionIDs))
	for i, qid := range questionIDs {
		input := model.ResponseInput{
			QuestionID:        qid.String(),
			IsMarkedForReview: m.Review[i],
		}
		if opt, ok := m.Answers[i]; ok {
			o := opt
			input.SelectedOption = &o
			if level, ok := m.Confidence[i]; ok {
				l := level
				input.ConfidenceLevel = &l
			}
		}
		inputs = append(inputs, input)
	}
	return inputs
}

// State renders the machine plus the derived remaining time.
func (m *Machine) State(now time.Time) *model.SessionState {
	return &model.SessionState{
		TestID:           m.TestID,
		UserID:           m.UserID,
		Phase:            m.Phase,
		CurrentQuestion:  m.Current,
		Answers:          m.Answers,
		ReviewStatus:     m.Review,
		ConfidenceLevels: m.Confidence,
		AutoSubmitted:    m.AutoSubmitted,
		RemainingSeconds: m.Remaining(now),
	}
}

func (m *Machine) requireInProgress() error {
	switch m.Phase {
	case model.PhaseInProgress:
		return nil
	case model.PhaseSubmitting:
		return ErrSubmitting
	case model.PhaseSubmitted:
		return ErrAlreadySubmitted
	default:
		return ErrNotInProgress
	}
}

func (m *Machine) checkIndex(i int) error {
	if i < 0 || i >= m.QuestionCount {
		return ErrQuestionOutOfRange
	}
	return nil
}
