package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepsio/testline-backend/internal/model"
)

// TestRepository handles test metadata data access. Question association
// lives in QuestionRepository; the question_count column here is maintained
// by triggers on test_questions.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

const testColumns = `id, title, description, instructions, duration_minutes, max_marks,
	 test_date, start_time, end_time, question_count, created_at, updated_at`

func scanTest(row interface{ Scan(...any) error }) (*model.Test, error) {
	t := &model.Test{}
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Instructions, &t.DurationMinutes, &t.MaxMarks,
		&t.TestDate, &t.StartTime, &t.EndTime, &t.QuestionCount, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetByID retrieves a test by ID.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return scanTest(r.pool.QueryRow(ctx,
		`SELECT `+testColumns+` FROM tests WHERE id = $1`, id))
}

// Create inserts a new test.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO tests (title, description, instructions, duration_minutes, max_marks, test_date, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		t.Title, t.Description, t.Instructions, t.DurationMinutes, t.MaxMarks,
		t.TestDate, t.StartTime, t.EndTime,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// Update applies a partial update. Only non-nil / non-zero fields change.
func (r *TestRepository) Update(ctx context.Context, id uuid.UUID, req *model.UpdateTestRequest) (*model.Test, error) {
	sets := ""
	args := []any{id}

	add := func(col string, val any) {
		args = append(args, val)
		if sets != "" {
			sets += ", "
		}
		sets += fmt.Sprintf("%s = $%d", col, len(args))
	}

	if req.Title != "" {
		add("title", req.Title)
	}
	if req.Description != nil {
		add("description", *req.Description)
	}
	if req.Instructions != nil {
		add("instructions", req.Instructions)
	}
	if req.DurationMinutes != 0 {
		add("duration_minutes", req.DurationMinutes)
	}
	if req.MaxMarks != nil {
		add("max_marks", *req.MaxMarks)
	}
	if req.TestDate != nil {
		add("test_date", *req.TestDate)
	}
	if req.StartTime != nil {
		add("start_time", *req.StartTime)
	}
	if req.EndTime != nil {
		add("end_time", *req.EndTime)
	}

	if sets == "" {
		return r.GetByID(ctx, id)
	}
	add("updated_at", time.Now())

	return scanTest(r.pool.QueryRow(ctx,
		`UPDATE tests SET `+sets+` WHERE id = $1 RETURNING `+testColumns))
}

// Delete removes a test and, via cascade, its question associations and
// sessions. Submitted responses survive: they reference questions, not the
// test row, through their own snapshot columns.
func (r *TestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	return err
}

// List retrieves tests with pagination, newest scheduled first.
func (r *TestRepository) List(ctx context.Context, limit, offset int) ([]model.Test, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tests`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+testColumns+` FROM tests
		 ORDER BY test_date DESC, created_at DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, 0, err
		}
		tests = append(tests, *t)
	}
	return tests, total, rows.Err()
}

// ListOnOrAfter retrieves every test scheduled on or after the given date,
// oldest first. This is the classifier's working set: tests dated before a
// user's joining date are invisible to them.
func (r *TestRepository) ListOnOrAfter(ctx context.Context, date time.Time) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+testColumns+` FROM tests
		 WHERE test_date >= date_trunc('day', $1::timestamptz)
		 ORDER BY test_date ASC, created_at ASC`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		tests = append(tests, *t)
	}
	return tests, rows.Err()
}
