package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prepsio/testline-backend/internal/clock"
	"github.com/prepsio/testline-backend/internal/config"
	"github.com/prepsio/testline-backend/internal/model"
	"github.com/prepsio/testline-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Authoring invariant errors.
var (
	ErrTestWindowInvalid      = errors.New("test start time must be before end time")
	ErrOptionCount            = errors.New("a question needs at least three options")
	ErrDuplicateOptions       = errors.New("question options must be distinct")
	ErrCorrectAnswerNotOption = errors.New("correct answer must match one of the options")
)

// TestService handles test and question authoring plus the examinee-facing
// test paper, which is cached in Redis with correct answers stripped.
type TestService struct {
	testRepo     *repository.TestRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	clk          clock.Clock
	log          zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(
	testRepo *repository.TestRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	clk clock.Clock,
	log zerolog.Logger,
) *TestService {
	return &TestService{
		testRepo:     testRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		clk:          clk,
		log:          log,
	}
}

// CreateTest validates the schedule window and inserts the test.
func (s *TestService) CreateTest(ctx context.Context, req *model.CreateTestRequest) (*model.Test, error) {
	t := &model.Test{
		Title:           req.Title,
		Description:     req.Description,
		Instructions:    req.Instructions,
		DurationMinutes: req.DurationMinutes,
		MaxMarks:        req.MaxMarks,
		TestDate:        req.TestDate,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
	}
	if err := s.checkWindow(t); err != nil {
		return nil, err
	}
	if err := s.testRepo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create test: %w", err)
	}
	return t, nil
}

// UpdateTest applies a partial edit and invalidates the paper cache.
func (s *TestService) UpdateTest(ctx context.Context, id uuid.UUID, req *model.UpdateTestRequest) (*model.Test, error) {
	t, err := s.testRepo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if err := s.checkWindow(t); err != nil {
		return nil, err
	}
	s.invalidatePaper(ctx, id)
	return t, nil
}

// DeleteTest removes a test and its cached paper.
func (s *TestService) DeleteTest(ctx context.Context, id uuid.UUID) error {
	if err := s.testRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidatePaper(ctx, id)
	return nil
}

// GetTest retrieves one test's metadata.
func (s *TestService) GetTest(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return s.testRepo.GetByID(ctx, id)
}

// ListTests retrieves tests with pagination.
func (s *TestService) ListTests(ctx context.Context, page, perPage int) ([]model.Test, int, error) {
	return s.testRepo.List(ctx, perPage, (page-1)*perPage)
}

// AddQuestion validates the option invariants and attaches a new question to
// the test.
func (s *TestService) AddQuestion(ctx context.Context, testID uuid.UUID, req *model.AddQuestionRequest) (*model.Question, error) {
	if err := checkOptions(req.Options, req.CorrectAnswer); err != nil {
		return nil, err
	}
	if _, err := s.testRepo.GetByID(ctx, testID); err != nil {
		return nil, err
	}

	q := &model.Question{
		QuestionText:  req.QuestionText,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		PositiveMarks: 4,
		NegativeMarks: 1,
		Subject:       req.Subject,
		Topics:        req.Topics,
		Difficulty:    model.Difficulty(req.Difficulty),
	}
	if req.PositiveMarks != nil {
		q.PositiveMarks = *req.PositiveMarks
	}
	if req.NegativeMarks != nil {
		q.NegativeMarks = *req.NegativeMarks
	}

	if err := s.questionRepo.CreateForTest(ctx, testID, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	s.invalidatePaper(ctx, testID)
	return q, nil
}

// UpdateQuestion rewrites a question. Historical responses keep their own
// snapshots, so edits only affect future submissions.
func (s *TestService) UpdateQuestion(ctx context.Context, questionID uuid.UUID, req *model.AddQuestionRequest) (*model.Question, error) {
	if err := checkOptions(req.Options, req.CorrectAnswer); err != nil {
		return nil, err
	}

	q, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		return nil, err
	}

	q.QuestionText = req.QuestionText
	q.Options = req.Options
	q.CorrectAnswer = req.CorrectAnswer
	q.Subject = req.Subject
	q.Topics = req.Topics
	q.Difficulty = model.Difficulty(req.Difficulty)
	if req.PositiveMarks != nil {
		q.PositiveMarks = *req.PositiveMarks
	}
	if req.NegativeMarks != nil {
		q.NegativeMarks = *req.NegativeMarks
	}

	if err := s.questionRepo.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// RemoveQuestion detaches a question from a test and invalidates the paper.
func (s *TestService) RemoveQuestion(ctx context.Context, testID, questionID uuid.UUID) error {
	if err := s.questionRepo.DetachFromTest(ctx, testID, questionID); err != nil {
		return err
	}
	s.invalidatePaper(ctx, testID)
	return nil
}

// ListQuestions retrieves a test's questions with correct answers, for the
// authoring UI only.
func (s *TestService) ListQuestions(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	return s.questionRepo.ListByTest(ctx, testID)
}

// GetPaper returns the examinee-facing paper: questions in order with the
// correct answers stripped. Served from Redis when possible; a cache miss
// rebuilds from PostgreSQL and self-heals the cache.
func (s *TestService) GetPaper(ctx context.Context, testID uuid.UUID) (*model.TestPaper, error) {
	paperKey := config.CacheKey.TestPaperKey(testID.String())

	cached, err := s.rdb.Get(ctx, paperKey).Result()
	if err == nil {
		paper := &model.TestPaper{}
		if jsonErr := json.Unmarshal([]byte(cached), paper); jsonErr == nil {
			return paper, nil
		}
		// Corrupt cache entry: fall through and rebuild.
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get cached paper: %w", err)
	}

	return s.buildAndCachePaper(ctx, testID)
}

// PrewarmPaperCaches rebuilds the paper and duration caches for every test
// active today. Called on startup so the first examinee of the day does not
// pay the rebuild cost.
func (s *TestService) PrewarmPaperCaches(ctx context.Context) {
	tests, err := s.testRepo.ListOnOrAfter(ctx, s.clk.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("Prewarm: failed to list tests")
		return
	}

	today := s.clk.Now().In(s.clk.Location())
	for i := range tests {
		t := &tests[i]
		ty, tm, td := t.TestDate.In(s.clk.Location()).Date()
		ny, nm, nd := today.Date()
		if ty != ny || tm != nm || td != nd {
			continue
		}
		if _, err := s.buildAndCachePaper(ctx, t.ID); err != nil {
			s.log.Error().Err(err).Str("test_id", t.ID.String()).Msg("Prewarm: failed to cache paper")
		}
	}
}

// GetDuration returns a test's duration in minutes, cached in Redis.
func (s *TestService) GetDuration(ctx context.Context, testID uuid.UUID) (int, error) {
	durationKey := config.CacheKey.TestDurationKey(testID.String())

	val, err := s.rdb.Get(ctx, durationKey).Int()
	if err == nil {
		return val, nil
	}
	if !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("get cached duration: %w", err)
	}

	t, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return 0, err
	}
	_ = s.rdb.Set(ctx, durationKey, t.DurationMinutes, 0).Err()
	return t.DurationMinutes, nil
}

func (s *TestService) buildAndCachePaper(ctx context.Context, testID uuid.UUID) (*model.TestPaper, error) {
	t, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	questions, err := s.questionRepo.ListByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	paper := &model.TestPaper{
		TestID:          t.ID,
		Title:           t.Title,
		Instructions:    t.Instructions,
		DurationMinutes: t.DurationMinutes,
		MaxMarks:        t.MaxMarks,
		Questions:       make([]model.PaperQuestion, 0, len(questions)),
	}
	for i, q := range questions {
		paper.Questions = append(paper.Questions, model.PaperQuestion{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Options:      q.Options,
			Subject:      q.Subject,
			OrderNum:     i + 1,
		})
	}

	data, err := json.Marshal(paper)
	if err != nil {
		return nil, fmt.Errorf("marshal paper: %w", err)
	}

	// Papers expire at end of day; windows never span midnight.
	if err := s.rdb.Set(ctx, config.CacheKey.TestPaperKey(testID.String()), data, 24*time.Hour).Err(); err != nil {
		s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Failed to cache paper")
	}
	_ = s.rdb.Set(ctx, config.CacheKey.TestDurationKey(testID.String()), t.DurationMinutes, 24*time.Hour).Err()

	return paper, nil
}

func (s *TestService) invalidatePaper(ctx context.Context, testID uuid.UUID) {
	keys := []string{
		config.CacheKey.TestPaperKey(testID.String()),
		config.CacheKey.TestDurationKey(testID.String()),
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Failed to invalidate paper cache")
	}
}

func (s *TestService) checkWindow(t *model.Test) error {
	start, end := t.Window(s.clk.Location())
	if !start.Before(end) {
		return ErrTestWindowInvalid
	}
	return nil
}

func checkOptions(options []string, correctAnswer string) error {
	if len(options) < 3 {
		return ErrOptionCount
	}
	seen := make(map[string]bool, len(options))
	found := false
	for _, opt := range options {
		if seen[opt] {
			return ErrDuplicateOptions
		}
		seen[opt] = true
		if opt == correctAnswer {
			found = true
		}
	}
	if !found {
		return ErrCorrectAnswerNotOption
	}
	return nil
}
