package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prepsio/testline-backend/internal/model"
	"github.com/prepsio/testline-backend/internal/repository"
)

// Analysis errors.
var (
	ErrInvalidErrorType   = errors.New("unknown error type")
	ErrAnalysisNotAllowed = errors.New("correct answers cannot carry an error type")
	ErrQuestionNotInTest  = errors.New("question is not part of this submission")
)

// AnalysisService handles the post-test self-review. Writes are idempotent
// upserts; the stored response is authoritative for correctness, whatever
// the client claims.
type AnalysisService struct {
	analysisRepo *repository.AnalysisRepository
	responseRepo *repository.ResponseRepository
}

// NewAnalysisService creates a new AnalysisService.
func NewAnalysisService(analysisRepo *repository.AnalysisRepository, responseRepo *repository.ResponseRepository) *AnalysisService {
	return &AnalysisService{analysisRepo: analysisRepo, responseRepo: responseRepo}
}

// Save upserts one question's analysis. The submission must exist, the
// question must be in it, and only incorrect or skipped questions may carry
// an error type.
func (s *AnalysisService) Save(ctx context.Context, userID int, testID, questionID uuid.UUID, req *model.SaveAnalysisRequest) (*model.Analysis, error) {
	responses, err := s.responseRepo.ListByUserAndTest(ctx, userID, testID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	if len(responses) == 0 {
		return nil, ErrNotSubmitted
	}

	var resp *model.Response
	for i := range responses {
		if responses[i].QuestionID == questionID {
			resp = &responses[i]
			break
		}
	}
	if resp == nil {
		return nil, ErrQuestionNotInTest
	}

	a := &model.Analysis{
		UserID:         userID,
		TestID:         testID,
		QuestionID:     questionID,
		IsAttempted:    resp.Attempted(),
		SelectedOption: resp.SelectedOption,
		Notes:          req.Notes,
	}
	correct := resp.IsCorrect
	a.IsCorrect = &correct

	if req.ErrorType != nil {
		et := model.ErrorType(*req.ErrorType)
		if !et.Valid() {
			return nil, ErrInvalidErrorType
		}
		if resp.IsCorrect {
			return nil, ErrAnalysisNotAllowed
		}
		a.ErrorType = &et
	}

	if err := s.analysisRepo.Upsert(ctx, a); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}
	return a, nil
}

// List retrieves the user's analysis rows for one test.
func (s *AnalysisService) List(ctx context.Context, userID int, testID uuid.UUID) ([]model.Analysis, error) {
	return s.analysisRepo.ListByUserAndTest(ctx, userID, testID)
}
