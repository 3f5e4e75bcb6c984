package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prepsio/testline-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scheduledTest builds a test dated on date with a window of startHour to
// endHour in date's zone, the way the authoring layer stores them.
func scheduledTest(date time.Time, startHour, endHour int) *model.Test {
	return &model.Test{
		ID:              uuid.New(),
		Title:           "Weekly Mock",
		DurationMinutes: 60,
		MaxMarks:        40,
		TestDate:        date,
		// Only the time-of-day of these two matters; the date portion is
		// deliberately unrelated to TestDate.
		StartTime: time.Date(2000, 1, 1, startHour, 0, 0, 0, date.Location()),
		EndTime:   time.Date(2000, 1, 1, endHour, 0, 0, 0, date.Location()),
	}
}

func TestClassifyTest(t *testing.T) {
	loc := time.UTC
	testDate := time.Date(2024, 3, 1, 0, 0, 0, 0, loc)
	joined := time.Date(2024, 1, 15, 0, 0, 0, 0, loc)
	tt := scheduledTest(testDate, 10, 13)

	testCases := []struct {
		name      string
		attempted bool
		now       time.Time
		want      TestStatus
	}{
		{"before window on test day", false, time.Date(2024, 3, 1, 8, 0, 0, 0, loc), StatusUpcoming},
		{"day before", false, time.Date(2024, 2, 29, 12, 0, 0, 0, loc), StatusUpcoming},
		{"at window start", false, time.Date(2024, 3, 1, 10, 0, 0, 0, loc), StatusActive},
		{"inside window", false, time.Date(2024, 3, 1, 11, 30, 0, 0, loc), StatusActive},
		{"just before end", false, time.Date(2024, 3, 1, 12, 59, 59, 0, loc), StatusActive},
		{"at window end", false, time.Date(2024, 3, 1, 13, 0, 0, 0, loc), StatusActive},
		{"just after end", false, time.Date(2024, 3, 1, 13, 0, 1, 0, loc), StatusMissed},
		{"day after", false, time.Date(2024, 3, 2, 9, 0, 0, 0, loc), StatusMissed},
		{"attempted during window", true, time.Date(2024, 3, 1, 11, 0, 0, 0, loc), StatusAttempted},
		{"attempted after window", true, time.Date(2024, 3, 5, 11, 0, 0, 0, loc), StatusAttempted},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyTest(tt, tc.attempted, joined, tc.now, loc)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyTestJoiningDateGate(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, loc)

	before := scheduledTest(time.Date(2024, 2, 20, 0, 0, 0, 0, loc), 10, 13)
	sameDay := scheduledTest(time.Date(2024, 3, 1, 0, 0, 0, 0, loc), 10, 13)
	after := scheduledTest(time.Date(2024, 3, 5, 0, 0, 0, 0, loc), 10, 13)

	joined := time.Date(2024, 3, 1, 14, 30, 0, 0, loc)

	// Dated strictly before the joining day: invisible, even if attempted
	// somehow.
	assert.Equal(t, StatusHidden, ClassifyTest(before, false, joined, now, loc))

	// The joining day itself is visible: the comparison is by calendar day,
	// not instant, so joining at 14:30 still shows that morning's test.
	assert.Equal(t, StatusMissed, ClassifyTest(sameDay, false, joined, now, loc))
	assert.Equal(t, StatusMissed, ClassifyTest(after, false, joined, now, loc))
}

func TestClassifyTestEachVisibleTestInExactlyOneBucket(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	joined := time.Date(2024, 1, 1, 0, 0, 0, 0, loc)
	now := time.Date(2024, 3, 1, 11, 0, 0, 0, loc)

	tests := []*model.Test{
		scheduledTest(time.Date(2024, 2, 23, 0, 0, 0, 0, loc), 10, 13), // past, unattempted
		scheduledTest(time.Date(2024, 3, 1, 0, 0, 0, 0, loc), 10, 13),  // open now
		scheduledTest(time.Date(2024, 3, 1, 0, 0, 0, 0, loc), 15, 18),  // later today
		scheduledTest(time.Date(2024, 3, 8, 0, 0, 0, 0, loc), 10, 13),  // next week
	}

	want := []TestStatus{StatusMissed, StatusActive, StatusUpcoming, StatusUpcoming}
	for i, tt := range tests {
		got := ClassifyTest(tt, false, joined, now, loc)
		assert.Equalf(t, want[i], got, "test %d", i)
	}
}

func TestWindowOverlaysTimeOfDayOntoTestDate(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	tt := scheduledTest(time.Date(2024, 3, 1, 0, 0, 0, 0, loc), 10, 13)
	start, end := tt.Window(loc)

	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2024, 3, 1, 13, 0, 0, 0, loc), end)
}
