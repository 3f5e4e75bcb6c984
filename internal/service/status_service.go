package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prepsio/testline-backend/internal/clock"
	"github.com/prepsio/testline-backend/internal/model"
	"github.com/prepsio/testline-backend/internal/repository"
)

// TestStatus is one of the four classifier buckets.
type TestStatus string

const (
	StatusAttempted TestStatus = "attempted"
	StatusActive    TestStatus = "active"
	StatusUpcoming  TestStatus = "upcoming"
	StatusMissed    TestStatus = "missed"
	// StatusHidden marks tests outside the user's visibility (scheduled
	// before their joining date). Hidden tests appear in no bucket.
	StatusHidden TestStatus = "hidden"
)

// ClassifyTest places one test in exactly one bucket for a user.
//
// A submission always wins: an attempted test stays attempted even while its
// window is still open. Otherwise the bucket follows the window — active
// inside it, upcoming before it, missed after it. Tests dated before the
// user's joining date are hidden entirely. All date comparisons happen in
// loc, the reference timezone.
func ClassifyTest(t *model.Test, attempted bool, joiningDate, now time.Time, loc *time.Location) TestStatus {
	jy, jm, jd := joiningDate.In(loc).Date()
	ty, tm, td := t.TestDate.In(loc).Date()
	joinDay := time.Date(jy, jm, jd, 0, 0, 0, 0, loc)
	testDay := time.Date(ty, tm, td, 0, 0, 0, 0, loc)
	if testDay.Before(joinDay) {
		return StatusHidden
	}

	if attempted {
		return StatusAttempted
	}

	// The window is closed on both ends: the end instant itself is still
	// active, missed starts strictly after it.
	start, end := t.Window(loc)
	switch {
	case now.Before(start):
		return StatusUpcoming
	case !now.After(end):
		return StatusActive
	default:
		return StatusMissed
	}
}

// StatusService produces the per-user test status report.
type StatusService struct {
	testRepo     *repository.TestRepository
	userRepo     *repository.UserRepository
	responseRepo *repository.ResponseRepository
	clk          clock.Clock
}

// NewStatusService creates a new StatusService.
func NewStatusService(
	testRepo *repository.TestRepository,
	userRepo *repository.UserRepository,
	responseRepo *repository.ResponseRepository,
	clk clock.Clock,
) *StatusService {
	return &StatusService{
		testRepo:     testRepo,
		userRepo:     userRepo,
		responseRepo: responseRepo,
		clk:          clk,
	}
}

// GetStatusReport partitions every test visible to the user into the four
// buckets. Each visible test lands in exactly one.
func (s *StatusService) GetStatusReport(ctx context.Context, userID int) (*model.TestStatusReport, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	tests, err := s.testRepo.ListOnOrAfter(ctx, user.JoiningDate)
	if err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}

	attempted, err := s.responseRepo.AttemptedTestIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list attempted: %w", err)
	}

	report := &model.TestStatusReport{
		Attempted: []model.Test{},
		Active:    []model.Test{},
		Upcoming:  []model.Test{},
		Missed:    []model.Test{},
	}

	now := s.clk.Now()
	loc := s.clk.Location()
	for i := range tests {
		t := &tests[i]
		switch ClassifyTest(t, attempted[t.ID], user.JoiningDate, now, loc) {
		case StatusAttempted:
			report.Attempted = append(report.Attempted, *t)
		case StatusActive:
			report.Active = append(report.Active, *t)
		case StatusUpcoming:
			report.Upcoming = append(report.Upcoming, *t)
		case StatusMissed:
			report.Missed = append(report.Missed, *t)
		}
	}

	return report, nil
}

// IsActive reports whether the test's window is open right now. Sessions can
// only be opened, and submissions accepted, while this holds.
func (s *StatusService) IsActive(t *model.Test) bool {
	now := s.clk.Now()
	start, end := t.Window(s.clk.Location())
	return !now.Before(start) && !now.After(end)
}
