package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRemaining(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		duration int
		now      time.Time
		want     int
	}{
		{"at start", 60, start, 3600},
		{"mid session", 60, start.Add(25 * time.Minute), 2100},
		{"sub-second elapsed floors down", 60, start.Add(10*time.Second + 900*time.Millisecond), 3590},
		{"exactly at deadline", 60, start.Add(60 * time.Minute), 0},
		{"past deadline clamps to zero", 60, start.Add(2 * time.Hour), 0},
		{"one second left", 1, start.Add(59 * time.Second), 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Remaining(tc.duration, start, tc.now))
		})
	}
}

// A reload must observe the same remaining time as the original tab, because
// both derive it from the same persisted start instant.
func TestRemainingReloadInvariance(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	now := start.Add(17*time.Minute + 42*time.Second)

	first := Remaining(90, start, now)
	reloaded := Remaining(90, start, now)

	assert.Equal(t, first, reloaded)
	assert.Equal(t, 90*60-(17*60+42), first)
}

func TestExpired(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.False(t, Expired(30, start, start.Add(29*time.Minute)))
	assert.True(t, Expired(30, start, start.Add(30*time.Minute)))
	assert.True(t, Expired(30, start, start.Add(31*time.Minute)))
}
