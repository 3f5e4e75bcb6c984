package handler

import (
	"errors"

	"github.com/prepsio/testline-backend/internal/session"
)

// isMachineErr reports whether err is one of the state machine's transition
// sentinels. They all map to the same "not allowed right now" response.
func isMachineErr(err error) bool {
	for _, sentinel := range []error{
		session.ErrNotInProgress,
		session.ErrNotReviewPending,
		session.ErrAlreadySubmitted,
		session.ErrSubmitting,
		session.ErrQuestionOutOfRange,
		session.ErrNotAttempted,
		session.ErrInvalidConfidence,
		session.ErrConfidenceMissing,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
