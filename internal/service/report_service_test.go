package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prepsio/testline-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func confPtr(l model.ConfidenceLevel) *model.ConfidenceLevel { return &l }

// response builds one scored row the way the submission path produces them.
func response(testID uuid.UUID, opt *string, conf *model.ConfidenceLevel, correct bool, pos, neg float64, subject string, topics ...string) model.Response {
	return model.Response{
		ID:              uuid.New(),
		UserID:          1,
		TestID:          testID,
		QuestionID:      uuid.New(),
		SelectedOption:  opt,
		ConfidenceLevel: conf,
		IsCorrect:       correct,
		PositiveMarks:   pos,
		NegativeMarks:   neg,
		Subject:         subject,
		Topics:          topics,
	}
}

func TestComputeScorecard(t *testing.T) {
	testID := uuid.New()
	// 3 questions, +4/-1 each: one correct, one wrong, one skipped.
	responses := []model.Response{
		response(testID, strPtr("A"), confPtr(model.ConfidenceSure), true, 4, 1, "Physics", "Optics"),
		response(testID, strPtr("B"), confPtr(model.ConfidenceRandom), false, 4, 1, "Physics", "Waves"),
		response(testID, nil, nil, false, 4, 1, "Maths", "Algebra"),
	}

	sc := ComputeScorecard(responses, 12, 3)

	assert.Equal(t, 3, sc.TotalQuestions)
	assert.Equal(t, 2, sc.Attempted)
	assert.Equal(t, 1, sc.Unattempted)
	assert.Equal(t, 1, sc.Correct)
	assert.Equal(t, 1, sc.Incorrect)
	assert.Equal(t, 4.0, sc.PositiveMarksEarned)
	assert.Equal(t, 1.0, sc.NegativeMarksLost)
	assert.Equal(t, 3.0, sc.NetScore)
	assert.Equal(t, 25.0, sc.Percentage) // 3/12
	assert.Equal(t, 50.0, sc.Accuracy)   // 1/2
}

func TestComputeScorecardNegativeNetFloorsPercentage(t *testing.T) {
	testID := uuid.New()
	responses := []model.Response{
		response(testID, strPtr("B"), confPtr(model.ConfidenceSure), false, 4, 2, "Physics"),
		response(testID, strPtr("C"), confPtr(model.ConfidenceSure), false, 4, 2, "Physics"),
	}

	sc := ComputeScorecard(responses, 8, 2)

	// The net score stays signed; only the percentage is floored.
	assert.Equal(t, -4.0, sc.NetScore)
	assert.Equal(t, 0.0, sc.Percentage)
	assert.Equal(t, 0.0, sc.Accuracy)
}

func TestComputeScorecardEmpty(t *testing.T) {
	sc := ComputeScorecard(nil, 40, 10)

	assert.Equal(t, 10, sc.TotalQuestions)
	assert.Equal(t, 10, sc.Unattempted)
	assert.Equal(t, 0.0, sc.NetScore)
	assert.Equal(t, 0.0, sc.Percentage)
	assert.Equal(t, 0.0, sc.Accuracy)
}

func TestComputeScorecardRounding(t *testing.T) {
	testID := uuid.New()
	// 3 questions at +2/-1: one correct, one wrong, one skipped.
	responses := []model.Response{
		response(testID, strPtr("A"), confPtr(model.ConfidenceSure), true, 2, 1, "Maths"),
		response(testID, strPtr("B"), confPtr(model.ConfidenceRandom), false, 2, 1, "Maths"),
		response(testID, nil, nil, false, 2, 1, "Maths"),
	}

	sc := ComputeScorecard(responses, 6, 3)

	assert.Equal(t, 1.0, sc.NetScore)
	// 1/6 = 16.666... rounds to 16.67.
	assert.Equal(t, 16.67, sc.Percentage)
	assert.Equal(t, 50.0, sc.Accuracy)
}

func TestComputeConfidence(t *testing.T) {
	testID := uuid.New()
	responses := []model.Response{
		response(testID, strPtr("A"), confPtr(model.ConfidenceSure), true, 4, 1, "Physics"),
		response(testID, strPtr("B"), confPtr(model.ConfidenceSure), false, 4, 1, "Physics"),
		response(testID, strPtr("C"), confPtr(model.ConfidenceSure), true, 4, 1, "Physics"),
		response(testID, strPtr("D"), confPtr(model.ConfidenceRandom), false, 4, 1, "Physics"),
		response(testID, nil, nil, false, 4, 1, "Physics"),
	}

	buckets := ComputeConfidence(responses)
	require.Len(t, buckets, 3)

	sure := buckets[0]
	assert.Equal(t, model.ConfidenceSure, sure.Level)
	assert.Equal(t, 2, sure.Correct)
	assert.Equal(t, 1, sure.Incorrect)
	assert.Equal(t, "66.67", sure.Accuracy)

	partial := buckets[1]
	assert.Equal(t, model.ConfidencePartial, partial.Level)
	assert.Equal(t, "N/A", partial.Accuracy)

	random := buckets[2]
	assert.Equal(t, model.ConfidenceRandom, random.Level)
	assert.Equal(t, "0.00", random.Accuracy)
}

// questionsFor mirrors a full response set back into the question list it
// was graded against.
func questionsFor(responses []model.Response) []model.Question {
	qs := make([]model.Question, 0, len(responses))
	for i := range responses {
		r := &responses[i]
		qs = append(qs, model.Question{
			ID:            r.QuestionID,
			PositiveMarks: r.PositiveMarks,
			NegativeMarks: r.NegativeMarks,
			Subject:       r.Subject,
			Topics:        r.Topics,
		})
	}
	return qs
}

func TestBySubjectAndTopic(t *testing.T) {
	testID := uuid.New()
	responses := []model.Response{
		response(testID, strPtr("A"), confPtr(model.ConfidenceSure), true, 4, 1, "Physics", "Optics", "Light"),
		response(testID, strPtr("B"), confPtr(model.ConfidenceSure), false, 4, 1, "Physics", "Optics"),
		response(testID, strPtr("C"), confPtr(model.ConfidenceSure), true, 4, 1, "Maths", "Algebra"),
	}
	questions := questionsFor(responses)

	subjects := BySubject(questions, responses)
	require.Len(t, subjects, 2)
	assert.Equal(t, "Maths", subjects[0].Name)
	assert.Equal(t, "Physics", subjects[1].Name)
	assert.Equal(t, 2, subjects[1].Scorecard.Attempted)
	assert.Equal(t, 8.0, subjects[1].Scorecard.MaxMarks)
	assert.Equal(t, 3.0, subjects[1].Scorecard.NetScore)

	topics := ByTopic(questions, responses)
	require.Len(t, topics, 3)
	// A multi-topic question counts toward every one of its topics.
	var optics *model.GroupScorecard
	for i := range topics {
		if topics[i].Name == "Optics" {
			optics = &topics[i]
		}
	}
	require.NotNil(t, optics)
	assert.Equal(t, 2, optics.Scorecard.TotalQuestions)
}

func TestBySubjectCountsQuestionsWithoutRows(t *testing.T) {
	testID := uuid.New()
	// A direct submission carrying a single Physics answer against a test
	// with two Physics questions and one Maths question. The rows alone
	// would undercount every denominator.
	answered := response(testID, strPtr("A"), confPtr(model.ConfidenceSure), true, 4, 1, "Physics", "Optics")
	questions := []model.Question{
		{ID: answered.QuestionID, PositiveMarks: 4, NegativeMarks: 1, Subject: "Physics", Topics: []string{"Optics"}},
		{ID: uuid.New(), PositiveMarks: 4, NegativeMarks: 1, Subject: "Physics", Topics: []string{"Waves"}},
		{ID: uuid.New(), PositiveMarks: 2, NegativeMarks: 0, Subject: "Maths", Topics: []string{"Algebra"}},
	}

	subjects := BySubject(questions, []model.Response{answered})
	require.Len(t, subjects, 2)

	maths := subjects[0]
	assert.Equal(t, "Maths", maths.Name)
	assert.Equal(t, 1, maths.Scorecard.TotalQuestions)
	assert.Equal(t, 1, maths.Scorecard.Unattempted)

	physics := subjects[1]
	assert.Equal(t, "Physics", physics.Name)
	assert.Equal(t, 2, physics.Scorecard.TotalQuestions)
	assert.Equal(t, 1, physics.Scorecard.Attempted)
	assert.Equal(t, 1, physics.Scorecard.Unattempted)
	assert.Equal(t, 8.0, physics.Scorecard.MaxMarks)

	topics := ByTopic(questions, []model.Response{answered})
	require.Len(t, topics, 3)
	assert.Equal(t, "Algebra", topics[0].Name)
	assert.Equal(t, "Optics", topics[1].Name)
	assert.Equal(t, "Waves", topics[2].Name)
	assert.Equal(t, 1, topics[2].Scorecard.Unattempted)
}

func TestComputeOverallStats(t *testing.T) {
	t1 := model.Test{ID: uuid.New(), Title: "Mock 1", TestDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), MaxMarks: 8, QuestionCount: 2}
	t2 := model.Test{ID: uuid.New(), Title: "Mock 2", TestDate: time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), MaxMarks: 8, QuestionCount: 2}

	responses := []model.Response{
		// Mock 1: both correct → 8/8.
		response(t1.ID, strPtr("A"), confPtr(model.ConfidenceSure), true, 4, 1, "Physics"),
		response(t1.ID, strPtr("B"), confPtr(model.ConfidenceSure), true, 4, 1, "Physics"),
		// Mock 2: one wrong, one skipped → -1/8 → 0%.
		response(t2.ID, strPtr("C"), confPtr(model.ConfidenceRandom), false, 4, 1, "Maths"),
		response(t2.ID, nil, nil, false, 4, 1, "Maths"),
	}

	stats := ComputeOverallStats([]model.Test{t1, t2}, responses)

	assert.Equal(t, 2, stats.TotalTests)
	assert.Equal(t, 3, stats.TotalAttempted)
	assert.Equal(t, 2, stats.TotalCorrect)
	assert.Equal(t, 1, stats.TotalIncorrect)
	assert.Equal(t, 1, stats.TotalUnattempted)
	assert.Equal(t, "3.50", stats.AvgScore)     // mean net score: (8 + -1) / 2
	assert.Equal(t, "66.67", stats.AvgAccuracy) // 2 correct of 3 attempted

	require.NotNil(t, stats.Highest)
	assert.Equal(t, t1.ID, stats.Highest.TestID)
	require.NotNil(t, stats.Lowest)
	assert.Equal(t, t2.ID, stats.Lowest.TestID)
	assert.Equal(t, -1.0, stats.Lowest.NetScore)
	require.Len(t, stats.PerformanceGraph, 2)
	assert.Equal(t, "Mock 1", stats.PerformanceGraph[0].Title)
}

func TestComputeOverallStatsEmpty(t *testing.T) {
	stats := ComputeOverallStats(nil, nil)

	assert.Equal(t, 0, stats.TotalTests)
	assert.Equal(t, "0.00", stats.AvgScore)
	assert.Equal(t, "0.00", stats.AvgAccuracy)
	assert.Nil(t, stats.Highest)
	assert.Nil(t, stats.Lowest)
	assert.Empty(t, stats.PerformanceGraph)
}

func TestComputeErrorTaxonomy(t *testing.T) {
	testID := uuid.New()
	r1 := response(testID, strPtr("B"), confPtr(model.ConfidenceSure), false, 4, 1, "Physics", "Optics")
	r2 := response(testID, strPtr("C"), confPtr(model.ConfidenceRandom), false, 4, 1, "Maths", "Algebra", "Equations")

	silly := model.ErrorSillyMistake
	guessing := model.ErrorGuessing
	analyses := []model.Analysis{
		{UserID: 1, TestID: testID, QuestionID: r1.QuestionID, ErrorType: &silly},
		{UserID: 1, TestID: testID, QuestionID: r2.QuestionID, ErrorType: &guessing},
		{UserID: 1, TestID: testID, QuestionID: uuid.New()}, // notes only, no error type
	}

	counts := ComputeErrorTaxonomy(analyses, []model.Response{r1, r2})
	require.Len(t, counts, 2)

	// Taxonomy order is stable, not insertion order.
	assert.Equal(t, model.ErrorSillyMistake, counts[0].ErrorType)
	assert.Equal(t, 1, counts[0].Total)
	assert.Equal(t, map[string]int{"Physics": 1}, counts[0].Subjects)
	assert.Equal(t, map[string]int{"Optics": 1}, counts[0].Topics)

	assert.Equal(t, model.ErrorGuessing, counts[1].ErrorType)
	assert.Equal(t, map[string]int{"Algebra": 1, "Equations": 1}, counts[1].Topics)
}
