package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prepsio/testline-backend/internal/config"
	"github.com/prepsio/testline-backend/internal/model"
	"github.com/prepsio/testline-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Submission errors.
var (
	ErrDuplicateSubmission = repository.ErrDuplicateSubmission
	ErrConfidenceRequired  = errors.New("confidence level required for attempted answers")
	ErrInvalidConfidence   = errors.New("unknown confidence level")
)

// StatsRefreshJob is the payload queued for the stats worker after an
// accepted submission.
type StatsRefreshJob struct {
	UserID int    `json:"user_id"`
	TestID string `json:"test_id"`
}

// SubmissionService accepts at most one scored submission per (user, test).
//
// It deliberately carries no clock: the test window gates session opening
// only, never acceptance. A session opened near the window's end runs its
// full duration past it, and the finalize of that session must land.
type SubmissionService struct {
	responseRepo *repository.ResponseRepository
	testRepo     *repository.TestRepository
	questionRepo *repository.QuestionRepository
	sessionRepo  *repository.SessionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	responseRepo *repository.ResponseRepository,
	testRepo *repository.TestRepository,
	questionRepo *repository.QuestionRepository,
	sessionRepo *repository.SessionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *SubmissionService {
	return &SubmissionService{
		responseRepo: responseRepo,
		testRepo:     testRepo,
		questionRepo: questionRepo,
		sessionRepo:  sessionRepo,
		rdb:          rdb,
		log:          log,
	}
}

// ScoreResponse grades one answer against its question and snapshots the
// fields every later aggregate needs. Correctness is an exact string match
// against the question's correct answer.
func ScoreResponse(userID int, testID uuid.UUID, q *model.Question, in *model.ResponseInput) model.Response {
	resp := model.Response{
		UserID:            userID,
		TestID:            testID,
		QuestionID:        q.ID,
		SelectedOption:    in.SelectedOption,
		ConfidenceLevel:   in.ConfidenceLevel,
		IsMarkedForReview: in.IsMarkedForReview,
		PositiveMarks:     q.PositiveMarks,
		NegativeMarks:     q.NegativeMarks,
		Subject:           q.Subject,
		Topics:            q.Topics,
	}
	if in.SelectedOption != nil && *in.SelectedOption == q.CorrectAnswer {
		resp.IsCorrect = true
	}
	return resp
}

// GradeSubmission resolves and scores a submission payload against the
// test's question list. Inputs referencing questions not on the test are
// skipped, not rejected — a stale client must not lose the whole submission
// over one removed question.
//
// autoTriggered marks submissions fired by timer expiry; the examinee never
// got to the confirmation screen, so missing confidence stays null instead
// of failing the batch.
func GradeSubmission(userID int, testID uuid.UUID, questions []model.Question, inputs []model.ResponseInput, autoTriggered bool) ([]model.Response, error) {
	byID := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	responses := make([]model.Response, 0, len(inputs))
	seen := make(map[uuid.UUID]bool, len(inputs))
	for i := range inputs {
		in := &inputs[i]

		qid, err := uuid.Parse(in.QuestionID)
		if err != nil {
			continue
		}
		q, ok := byID[qid]
		if !ok || seen[qid] {
			continue
		}
		seen[qid] = true

		if in.SelectedOption != nil {
			if in.ConfidenceLevel == nil && !autoTriggered {
				return nil, ErrConfidenceRequired
			}
			if in.ConfidenceLevel != nil && !in.ConfidenceLevel.Valid() {
				return nil, ErrInvalidConfidence
			}
		} else {
			// Unattempted rows never carry a confidence level.
			in.ConfidenceLevel = nil
		}

		responses = append(responses, ScoreResponse(userID, testID, q, in))
	}
	return responses, nil
}

// Submit validates, scores and atomically stores a submission. Acceptance is
// never gated on the test window: a malformed payload, a duplicate, or a
// storage failure are the only ways to lose a submission.
func (s *SubmissionService) Submit(ctx context.Context, userID int, testID uuid.UUID, inputs []model.ResponseInput, autoTriggered bool) (*model.SubmitResult, error) {
	if _, err := s.testRepo.GetByID(ctx, testID); err != nil {
		return nil, err
	}

	// Fast path: reject the obvious duplicate before doing any scoring work.
	// The transactional marker insert below remains the real arbiter.
	exists, err := s.responseRepo.SubmissionExists(ctx, userID, testID)
	if err != nil {
		return nil, fmt.Errorf("check submission: %w", err)
	}
	if exists {
		return nil, ErrDuplicateSubmission
	}

	questions, err := s.questionRepo.ListByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	responses, err := GradeSubmission(userID, testID, questions, inputs, autoTriggered)
	if err != nil {
		return nil, err
	}

	sub := &model.Submission{
		UserID:             userID,
		TestID:             testID,
		SubmittedQuestions: len(responses),
	}
	if err := s.responseRepo.CreateSubmission(ctx, sub, responses); err != nil {
		return nil, err
	}

	if err := s.sessionRepo.MarkSubmitted(ctx, userID, testID, autoTriggered); err != nil {
		s.log.Warn().Err(err).Int("user_id", userID).Str("test_id", testID.String()).
			Msg("Failed to mark session submitted")
	}

	s.cleanupSessionCache(ctx, userID, testID)
	s.queueStatsRefresh(ctx, userID, testID)

	s.log.Info().
		Int("user_id", userID).
		Str("test_id", testID.String()).
		Int("questions", len(responses)).
		Bool("auto", autoTriggered).
		Msg("Submission accepted")

	return &model.SubmitResult{
		TestID:             testID,
		UserID:             userID,
		SubmittedQuestions: len(responses),
	}, nil
}

func (s *SubmissionService) cleanupSessionCache(ctx context.Context, userID int, testID uuid.UUID) {
	keys := []string{
		config.CacheKey.SessionStateKey(userID, testID.String()),
		config.CacheKey.SessionStartKey(userID, testID.String()),
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		s.log.Warn().Err(err).Int("user_id", userID).Msg("Failed to clean session cache")
	}
}

func (s *SubmissionService) queueStatsRefresh(ctx context.Context, userID int, testID uuid.UUID) {
	job := StatsRefreshJob{UserID: userID, TestID: testID.String()}
	payload, err := json.Marshal(job)
	if err != nil {
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.RefreshStatsQueue, payload).Err(); err != nil {
		s.log.Warn().Err(err).Int("user_id", userID).Msg("Failed to queue stats refresh")
	}
}
