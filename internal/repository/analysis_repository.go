package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepsio/testline-backend/internal/model"
)

// AnalysisRepository handles post-test self-review data access. All writes
// are upserts keyed by (user, test, question); last write wins.
type AnalysisRepository struct {
	pool *pgxpool.Pool
}

// NewAnalysisRepository creates a new AnalysisRepository.
func NewAnalysisRepository(pool *pgxpool.Pool) *AnalysisRepository {
	return &AnalysisRepository{pool: pool}
}

// Upsert creates or replaces the analysis row for one question.
func (r *AnalysisRepository) Upsert(ctx context.Context, a *model.Analysis) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO analysis (user_id, test_id, question_id, is_attempted, selected_option, is_correct, error_type, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id, test_id, question_id) DO UPDATE
		 SET is_attempted = EXCLUDED.is_attempted,
		     selected_option = EXCLUDED.selected_option,
		     is_correct = EXCLUDED.is_correct,
		     error_type = EXCLUDED.error_type,
		     notes = EXCLUDED.notes,
		     updated_at = NOW()
		 RETURNING id, updated_at`,
		a.UserID, a.TestID, a.QuestionID, a.IsAttempted, a.SelectedOption, a.IsCorrect, a.ErrorType, a.Notes,
	).Scan(&a.ID, &a.UpdatedAt)
}

const analysisColumns = `id, user_id, test_id, question_id, is_attempted, selected_option,
	 is_correct, error_type, notes, updated_at`

// ListByUserAndTest retrieves the user's analysis rows for one test.
func (r *AnalysisRepository) ListByUserAndTest(ctx context.Context, userID int, testID uuid.UUID) ([]model.Analysis, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+analysisColumns+` FROM analysis
		 WHERE user_id = $1 AND test_id = $2
		 ORDER BY updated_at ASC`, userID, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAnalysis(rows)
}

// ListByUser retrieves every analysis row the user has saved, across tests.
// The error taxonomy report aggregates over this set.
func (r *AnalysisRepository) ListByUser(ctx context.Context, userID int) ([]model.Analysis, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+analysisColumns+` FROM analysis
		 WHERE user_id = $1
		 ORDER BY updated_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAnalysis(rows)
}

func collectAnalysis(rows pgx.Rows) ([]model.Analysis, error) {
	var items []model.Analysis
	for rows.Next() {
		var a model.Analysis
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.TestID, &a.QuestionID, &a.IsAttempted, &a.SelectedOption,
			&a.IsCorrect, &a.ErrorType, &a.Notes, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
