package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/prepsio/testline-backend/internal/config"
	"github.com/prepsio/testline-backend/internal/model"
	"github.com/prepsio/testline-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNotSubmitted guards every report: nothing is computed before the
// submission exists.
var ErrNotSubmitted = errors.New("no submission for this test")

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeScorecard aggregates one submission's responses. totalQuestions is
// the test's question count; percentage is floored at zero while NetScore
// stays signed.
func ComputeScorecard(responses []model.Response, maxMarks float64, totalQuestions int) model.Scorecard {
	sc := model.Scorecard{
		TotalQuestions: totalQuestions,
		MaxMarks:       maxMarks,
	}

	for i := range responses {
		r := &responses[i]
		if !r.Attempted() {
			continue
		}
		sc.Attempted++
		if r.IsCorrect {
			sc.Correct++
			sc.PositiveMarksEarned += r.PositiveMarks
		} else {
			sc.Incorrect++
			sc.NegativeMarksLost += r.NegativeMarks
		}
	}

	sc.Unattempted = totalQuestions - sc.Attempted
	sc.NetScore = round2(sc.PositiveMarksEarned - sc.NegativeMarksLost)

	if maxMarks > 0 {
		pct := sc.NetScore / maxMarks * 100
		if pct < 0 {
			pct = 0
		}
		sc.Percentage = round2(pct)
	}
	if sc.Attempted > 0 {
		sc.Accuracy = round2(float64(sc.Correct) / float64(sc.Attempted) * 100)
	}

	return sc
}

// ComputeConfidence splits attempted responses by confidence level and
// reports per-level accuracy. Levels nobody used get "N/A", never a
// divide-by-zero zero that would read as 0% accurate.
func ComputeConfidence(responses []model.Response) []model.ConfidenceBucket {
	buckets := make([]model.ConfidenceBucket, 0, len(model.ConfidenceLevels))
	for _, level := range model.ConfidenceLevels {
		bucket := model.ConfidenceBucket{Level: level, Accuracy: "N/A"}
		for i := range responses {
			r := &responses[i]
			if !r.Attempted() || r.ConfidenceLevel == nil || *r.ConfidenceLevel != level {
				continue
			}
			if r.IsCorrect {
				bucket.Correct++
			} else {
				bucket.Incorrect++
			}
		}
		if total := bucket.Correct + bucket.Incorrect; total > 0 {
			bucket.Accuracy = fmt.Sprintf("%.2f", float64(bucket.Correct)/float64(total)*100)
		}
		buckets = append(buckets, bucket)
	}
	return buckets
}

// groupScorecards buckets a submission into drill-down scorecards. An entry
// may land in several buckets (topics) or exactly one (subject).
//
// Denominators come from the whole test, not just the persisted rows: a
// response row counts toward the groups its snapshot names, and every test
// question without a row counts toward the groups its current tags name.
// Direct submissions may omit questions entirely, and those still belong in
// the group's unattempted tally.
func groupScorecards(
	questions []model.Question,
	responses []model.Response,
	qKeys func(*model.Question) []string,
	rKeys func(*model.Response) []string,
) []model.GroupScorecard {
	type groupAgg struct {
		total int
		max   float64
		rs    []model.Response
	}
	grouped := make(map[string]*groupAgg)
	get := func(key string) *groupAgg {
		g, ok := grouped[key]
		if !ok {
			g = &groupAgg{}
			grouped[key] = g
		}
		return g
	}

	answered := make(map[uuid.UUID]bool, len(responses))
	for i := range responses {
		r := &responses[i]
		answered[r.QuestionID] = true
		for _, key := range rKeys(r) {
			if key == "" {
				continue
			}
			g := get(key)
			g.total++
			// Group max marks is the sum of positive marks available within
			// the group, so group percentages are self-relative.
			g.max += r.PositiveMarks
			g.rs = append(g.rs, *r)
		}
	}
	for i := range questions {
		q := &questions[i]
		if answered[q.ID] {
			// The row's snapshot already placed this question; the snapshot
			// wins over later question edits.
			continue
		}
		for _, key := range qKeys(q) {
			if key == "" {
				continue
			}
			g := get(key)
			g.total++
			g.max += q.PositiveMarks
		}
	}

	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)

	cards := make([]model.GroupScorecard, 0, len(names))
	for _, name := range names {
		g := grouped[name]
		cards = append(cards, model.GroupScorecard{
			Name:       name,
			Scorecard:  ComputeScorecard(g.rs, g.max, g.total),
			Confidence: ComputeConfidence(g.rs),
		})
	}
	return cards
}

// BySubject produces a drill-down scorecard per subject.
func BySubject(questions []model.Question, responses []model.Response) []model.GroupScorecard {
	return groupScorecards(questions, responses,
		func(q *model.Question) []string { return []string{q.Subject} },
		func(r *model.Response) []string { return []string{r.Subject} })
}

// ByTopic produces a drill-down scorecard per topic. A question tagged with
// several topics contributes to each of them.
func ByTopic(questions []model.Question, responses []model.Response) []model.GroupScorecard {
	return groupScorecards(questions, responses,
		func(q *model.Question) []string { return q.Topics },
		func(r *model.Response) []string { return r.Topics })
}

// ComputeOverallStats builds the cross-test trend report. tests must be the
// user's attempted tests oldest-first; responses span all of them.
func ComputeOverallStats(tests []model.Test, responses []model.Response) *model.OverallStats {
	byTest := make(map[uuid.UUID][]model.Response)
	for i := range responses {
		byTest[responses[i].TestID] = append(byTest[responses[i].TestID], responses[i])
	}

	stats := &model.OverallStats{
		TotalTests:       len(tests),
		AvgScore:         "0.00",
		AvgAccuracy:      "0.00",
		PerformanceGraph: []model.TestScoreSummary{},
	}

	var netSum float64
	for i := range tests {
		t := &tests[i]
		sc := ComputeScorecard(byTest[t.ID], t.MaxMarks, t.QuestionCount)

		stats.TotalAttempted += sc.Attempted
		stats.TotalCorrect += sc.Correct
		stats.TotalIncorrect += sc.Incorrect
		stats.TotalUnattempted += sc.Unattempted
		netSum += sc.NetScore

		summary := model.TestScoreSummary{
			TestID:     t.ID,
			Title:      t.Title,
			TestDate:   t.TestDate,
			NetScore:   sc.NetScore,
			MaxMarks:   t.MaxMarks,
			Percentage: sc.Percentage,
		}
		stats.PerformanceGraph = append(stats.PerformanceGraph, summary)

		// Strict comparison: ties go to the earliest test in the stable
		// oldest-first iteration.
		if stats.Highest == nil || summary.NetScore > stats.Highest.NetScore {
			s := summary
			stats.Highest = &s
		}
		if stats.Lowest == nil || summary.NetScore < stats.Lowest.NetScore {
			s := summary
			stats.Lowest = &s
		}
	}

	if len(tests) > 0 {
		stats.AvgScore = fmt.Sprintf("%.2f", netSum/float64(len(tests)))
	}
	// Average accuracy over summed counts, not averaged per-test ratios:
	// a 2-question test must not weigh as much as a 100-question one.
	if stats.TotalAttempted > 0 {
		stats.AvgAccuracy = fmt.Sprintf("%.2f", float64(stats.TotalCorrect)/float64(stats.TotalAttempted)*100)
	}

	return stats
}

// ComputeErrorTaxonomy counts analysis rows per error type, with subject and
// topic breakdowns taken from the matching response snapshots.
func ComputeErrorTaxonomy(analyses []model.Analysis, responses []model.Response) []model.ErrorTypeCount {
	type respKey struct {
		testID     uuid.UUID
		questionID uuid.UUID
	}
	byQuestion := make(map[respKey]*model.Response, len(responses))
	for i := range responses {
		byQuestion[respKey{responses[i].TestID, responses[i].QuestionID}] = &responses[i]
	}

	counts := make(map[model.ErrorType]*model.ErrorTypeCount)
	for i := range analyses {
		a := &analyses[i]
		if a.ErrorType == nil {
			continue
		}
		entry, ok := counts[*a.ErrorType]
		if !ok {
			entry = &model.ErrorTypeCount{
				ErrorType: *a.ErrorType,
				Subjects:  make(map[string]int),
				Topics:    make(map[string]int),
			}
			counts[*a.ErrorType] = entry
		}
		entry.Total++

		if r, ok := byQuestion[respKey{a.TestID, a.QuestionID}]; ok {
			if r.Subject != "" {
				entry.Subjects[r.Subject]++
			}
			for _, topic := range r.Topics {
				entry.Topics[topic]++
			}
		}
	}

	result := make([]model.ErrorTypeCount, 0, len(counts))
	for _, t := range model.ErrorTypes {
		if entry, ok := counts[t]; ok {
			result = append(result, *entry)
		}
	}
	return result
}

// ReportService serves all post-submission analytics.
type ReportService struct {
	responseRepo *repository.ResponseRepository
	analysisRepo *repository.AnalysisRepository
	testRepo     *repository.TestRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(
	responseRepo *repository.ResponseRepository,
	analysisRepo *repository.AnalysisRepository,
	testRepo *repository.TestRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ReportService {
	return &ReportService{
		responseRepo: responseRepo,
		analysisRepo: analysisRepo,
		testRepo:     testRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log,
	}
}

// requireSubmission loads a submission's responses, failing when the marker
// is absent.
func (s *ReportService) requireSubmission(ctx context.Context, userID int, testID uuid.UUID) ([]model.Response, error) {
	exists, err := s.responseRepo.SubmissionExists(ctx, userID, testID)
	if err != nil {
		return nil, fmt.Errorf("check submission: %w", err)
	}
	if !exists {
		return nil, ErrNotSubmitted
	}
	return s.responseRepo.ListByUserAndTest(ctx, userID, testID)
}

// ScorecardReport is the headline view for one submitted test.
type ScorecardReport struct {
	Scorecard  model.Scorecard          `json:"scorecard"`
	Confidence []model.ConfidenceBucket `json:"confidence"`
}

// GetScorecard computes the headline scorecard plus confidence calibration.
func (s *ReportService) GetScorecard(ctx context.Context, userID int, testID uuid.UUID) (*ScorecardReport, error) {
	responses, err := s.requireSubmission(ctx, userID, testID)
	if err != nil {
		return nil, err
	}
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	return &ScorecardReport{
		Scorecard:  ComputeScorecard(responses, test.MaxMarks, test.QuestionCount),
		Confidence: ComputeConfidence(responses),
	}, nil
}

// GetSubjectBreakdown computes per-subject drill-downs for one test.
func (s *ReportService) GetSubjectBreakdown(ctx context.Context, userID int, testID uuid.UUID) ([]model.GroupScorecard, error) {
	responses, err := s.requireSubmission(ctx, userID, testID)
	if err != nil {
		return nil, err
	}
	questions, err := s.questionRepo.ListByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return BySubject(questions, responses), nil
}

// GetTopicBreakdown computes per-topic drill-downs for one test, optionally
// restricted to a subject.
func (s *ReportService) GetTopicBreakdown(ctx context.Context, userID int, testID uuid.UUID, subject string) ([]model.GroupScorecard, error) {
	responses, err := s.requireSubmission(ctx, userID, testID)
	if err != nil {
		return nil, err
	}
	questions, err := s.questionRepo.ListByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if subject != "" {
		fr := responses[:0]
		for i := range responses {
			if responses[i].Subject == subject {
				fr = append(fr, responses[i])
			}
		}
		responses = fr
		fq := questions[:0]
		for i := range questions {
			if questions[i].Subject == subject {
				fq = append(fq, questions[i])
			}
		}
		questions = fq
	}
	return ByTopic(questions, responses), nil
}

// GetReview returns the full question-by-question review of one submission.
func (s *ReportService) GetReview(ctx context.Context, userID int, testID uuid.UUID) ([]model.ReportRow, error) {
	exists, err := s.responseRepo.SubmissionExists(ctx, userID, testID)
	if err != nil {
		return nil, fmt.Errorf("check submission: %w", err)
	}
	if !exists {
		return nil, ErrNotSubmitted
	}
	return s.responseRepo.ListReport(ctx, userID, testID)
}

// GetOverallStats returns the cached cross-test trend report, recomputing on
// a cache miss. The stats worker refreshes the cache after every accepted
// submission.
func (s *ReportService) GetOverallStats(ctx context.Context, userID int) (*model.OverallStats, error) {
	statsKey := config.CacheKey.OverallStatsKey(userID)

	cached, err := s.rdb.Get(ctx, statsKey).Result()
	if err == nil {
		stats := &model.OverallStats{}
		if jsonErr := json.Unmarshal([]byte(cached), stats); jsonErr == nil {
			return stats, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get cached stats: %w", err)
	}

	return s.RefreshOverallStats(ctx, userID)
}

// RefreshOverallStats recomputes the trend report from storage and rewrites
// the cache.
func (s *ReportService) RefreshOverallStats(ctx context.Context, userID int) (*model.OverallStats, error) {
	tests, err := s.responseRepo.ListAttemptedTests(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list attempted tests: %w", err)
	}
	responses, err := s.responseRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}

	stats := ComputeOverallStats(tests, responses)

	if data, err := json.Marshal(stats); err == nil {
		if err := s.rdb.Set(ctx, config.CacheKey.OverallStatsKey(userID), data, 0).Err(); err != nil {
			s.log.Warn().Err(err).Int("user_id", userID).Msg("Failed to cache overall stats")
		}
	}

	return stats, nil
}

// GetErrorTaxonomy aggregates the user's self-tagged mistakes, across all
// tests or one test.
func (s *ReportService) GetErrorTaxonomy(ctx context.Context, userID int, testID *uuid.UUID) ([]model.ErrorTypeCount, error) {
	var (
		analyses  []model.Analysis
		responses []model.Response
		err       error
	)
	if testID != nil {
		analyses, err = s.analysisRepo.ListByUserAndTest(ctx, userID, *testID)
		if err != nil {
			return nil, err
		}
		responses, err = s.responseRepo.ListByUserAndTest(ctx, userID, *testID)
	} else {
		analyses, err = s.analysisRepo.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		responses, err = s.responseRepo.ListByUser(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return ComputeErrorTaxonomy(analyses, responses), nil
}
