package model

import (
	"time"

	"github.com/google/uuid"
)

// Scorecard is the per-(user, test) summary computed from Response rows.
// Percentage is floored at zero; NetScore is reported signed — both are
// surfaced, consistently, everywhere.
type Scorecard struct {
	TotalQuestions      int     `json:"total_questions"`
	Attempted           int     `json:"attempted"`
	Unattempted         int     `json:"unattempted"`
	Correct             int     `json:"correct"`
	Incorrect           int     `json:"incorrect"`
	PositiveMarksEarned float64 `json:"positive_marks_earned"`
	NegativeMarksLost   float64 `json:"negative_marks_lost"`
	NetScore            float64 `json:"net_score"`
	MaxMarks            float64 `json:"max_marks"`
	Percentage          float64 `json:"percentage"`
	Accuracy            float64 `json:"accuracy"`
}

// ConfidenceBucket is the calibration split for one confidence level.
// Accuracy is "N/A" when no attempted response carried the level.
type ConfidenceBucket struct {
	Level     ConfidenceLevel `json:"level"`
	Correct   int             `json:"correct"`
	Incorrect int             `json:"incorrect"`
	Accuracy  string          `json:"accuracy"`
}

// GroupScorecard is a Scorecard restricted to one subject or topic.
type GroupScorecard struct {
	Name       string             `json:"name"`
	Scorecard  Scorecard          `json:"scorecard"`
	Confidence []ConfidenceBucket `json:"confidence"`
}

// TestStatusReport partitions a user's visible tests into the four status
// buckets. Every test on or after the user's joining date lands in exactly
// one bucket.
type TestStatusReport struct {
	Attempted []Test `json:"attempted"`
	Active    []Test `json:"active"`
	Upcoming  []Test `json:"upcoming"`
	Missed    []Test `json:"missed"`
}

// TestScoreSummary is one attempted test's contribution to the trend report.
type TestScoreSummary struct {
	TestID     uuid.UUID `json:"test_id"`
	Title      string    `json:"title"`
	TestDate   time.Time `json:"test_date"`
	NetScore   float64   `json:"net_score"`
	MaxMarks   float64   `json:"max_marks"`
	Percentage float64   `json:"percentage"`
}

// OverallStats is the cross-test trend report for one user. AvgScore and
// AvgAccuracy are fixed-point strings ("0.00" when there is no data);
// Highest/Lowest are nil when the user has no attempted tests.
type OverallStats struct {
	TotalTests       int                `json:"total_tests"`
	TotalAttempted   int                `json:"total_attempted"`
	TotalCorrect     int                `json:"total_correct"`
	TotalIncorrect   int                `json:"total_incorrect"`
	TotalUnattempted int                `json:"total_unattempted"`
	AvgScore         string             `json:"avg_score"`
	AvgAccuracy      string             `json:"avg_accuracy"`
	Highest          *TestScoreSummary  `json:"highest_scoring_test"`
	Lowest           *TestScoreSummary  `json:"lowest_scoring_test"`
	PerformanceGraph []TestScoreSummary `json:"performance_graph"`
}

// ErrorTypeCount is one cell of the error taxonomy report.
type ErrorTypeCount struct {
	ErrorType ErrorType      `json:"error_type"`
	Total     int            `json:"total"`
	Subjects  map[string]int `json:"subjects"`
	Topics    map[string]int `json:"topics"`
}
