// Package session implements the test-taking session state machine and its
// countdown timer. The timer is derived, never stored: remaining time is
// always recomputed from the persisted start timestamp, which is what makes
// a session survive reloads and reconnects without drift.
package session

import "time"

// Remaining returns the whole seconds left in a session that started at
// startedAt with the given duration, evaluated at now. Elapsed time is
// floored to whole seconds; the result never goes below zero.
func Remaining(durationMinutes int, startedAt, now time.Time) int {
	total := durationMinutes * 60
	elapsed := int(now.Sub(startedAt) / time.Second)
	remaining := total - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether the session's time is up at now.
func Expired(durationMinutes int, startedAt, now time.Time) bool {
	return Remaining(durationMinutes, startedAt, now) == 0
}
