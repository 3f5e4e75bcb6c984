package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepsio/testline-backend/internal/model"
)

// ErrDuplicateSubmission means the (user, test) pair already holds an
// accepted submission. The conflict arbiter on the submissions table is the
// only authority on this; callers must not pre-check and then insert.
var ErrDuplicateSubmission = errors.New("submission already accepted for this test")

// TestResult is one user's aggregate on a test, for the admin results view.
type TestResult struct {
	UserID      int       `json:"user_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	NetScore    float64   `json:"net_score"`
	Correct     int       `json:"correct"`
	Incorrect   int       `json:"incorrect"`
	Attempted   int       `json:"attempted"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ResponseRepository handles submission markers and scored response rows.
type ResponseRepository struct {
	pool *pgxpool.Pool
}

// NewResponseRepository creates a new ResponseRepository.
func NewResponseRepository(pool *pgxpool.Pool) *ResponseRepository {
	return &ResponseRepository{pool: pool}
}

// CreateSubmission atomically records a submission: the marker row and all
// scored responses commit together or not at all. The marker insert uses
// ON CONFLICT DO NOTHING as the at-most-once arbiter — when two finalize
// attempts race, exactly one sees its row inserted and the loser gets
// ErrDuplicateSubmission with nothing written.
func (r *ResponseRepository) CreateSubmission(ctx context.Context, sub *model.Submission, responses []model.Response) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO submissions (user_id, test_id, submitted_questions)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, test_id) DO NOTHING`,
		sub.UserID, sub.TestID, sub.SubmittedQuestions)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateSubmission
	}

	if len(responses) > 0 {
		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"responses"},
			[]string{
				"user_id", "test_id", "question_id", "selected_option", "confidence_level",
				"is_marked_for_review", "is_correct", "positive_marks", "negative_marks",
				"subject", "topics",
			},
			pgx.CopyFromSlice(len(responses), func(i int) ([]any, error) {
				resp := responses[i]
				return []any{
					resp.UserID, resp.TestID, resp.QuestionID, resp.SelectedOption, resp.ConfidenceLevel,
					resp.IsMarkedForReview, resp.IsCorrect, resp.PositiveMarks, resp.NegativeMarks,
					resp.Subject, resp.Topics,
				}, nil
			}),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetSubmission retrieves the marker row for (user, test).
func (r *ResponseRepository) GetSubmission(ctx context.Context, userID int, testID uuid.UUID) (*model.Submission, error) {
	s := &model.Submission{}
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, test_id, submitted_questions, submitted_at
		 FROM submissions
		 WHERE user_id = $1 AND test_id = $2`, userID, testID,
	).Scan(&s.UserID, &s.TestID, &s.SubmittedQuestions, &s.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SubmissionExists reports whether the marker row is present.
func (r *ResponseRepository) SubmissionExists(ctx context.Context, userID int, testID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM submissions WHERE user_id = $1 AND test_id = $2)`,
		userID, testID,
	).Scan(&exists)
	return exists, err
}

// AttemptedTestIDs returns the set of tests the user has submitted.
// "Attempted" means the marker exists — a zero-answer submission counts.
func (r *ResponseRepository) AttemptedTestIDs(ctx context.Context, userID int) (map[uuid.UUID]bool, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT test_id FROM submissions WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempted := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		attempted[id] = true
	}
	return attempted, rows.Err()
}

const responseColumns = `id, user_id, test_id, question_id, selected_option, confidence_level,
	 is_marked_for_review, is_correct, positive_marks, negative_marks, subject, topics, submitted_at`

// ListByUserAndTest retrieves every response of one submission.
func (r *ResponseRepository) ListByUserAndTest(ctx context.Context, userID int, testID uuid.UUID) ([]model.Response, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+responseColumns+` FROM responses
		 WHERE user_id = $1 AND test_id = $2`, userID, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResponses(rows)
}

// ListByUser retrieves all of a user's responses across every submitted test.
func (r *ResponseRepository) ListByUser(ctx context.Context, userID int) ([]model.Response, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+responseColumns+` FROM responses
		 WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResponses(rows)
}

func collectResponses(rows pgx.Rows) ([]model.Response, error) {
	var responses []model.Response
	for rows.Next() {
		var resp model.Response
		if err := rows.Scan(
			&resp.ID, &resp.UserID, &resp.TestID, &resp.QuestionID, &resp.SelectedOption, &resp.ConfidenceLevel,
			&resp.IsMarkedForReview, &resp.IsCorrect, &resp.PositiveMarks, &resp.NegativeMarks,
			&resp.Subject, &resp.Topics, &resp.SubmittedAt,
		); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

// ListReport retrieves one submission's responses joined with the question
// text, options and correct answer for the post-test review screen.
func (r *ResponseRepository) ListReport(ctx context.Context, userID int, testID uuid.UUID) ([]model.ReportRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.user_id, r.test_id, r.question_id, r.selected_option, r.confidence_level,
		        r.is_marked_for_review, r.is_correct, r.positive_marks, r.negative_marks,
		        r.subject, r.topics, r.submitted_at,
		        q.question_text, q.options, q.correct_answer, q.difficulty
		 FROM responses r
		 JOIN questions q ON q.id = r.question_id
		 LEFT JOIN test_questions tq ON tq.test_id = r.test_id AND tq.question_id = r.question_id
		 WHERE r.user_id = $1 AND r.test_id = $2
		 ORDER BY COALESCE(tq.order_num, 2147483647), q.created_at`, userID, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var report []model.ReportRow
	for rows.Next() {
		var row model.ReportRow
		if err := rows.Scan(
			&row.ID, &row.UserID, &row.TestID, &row.QuestionID, &row.SelectedOption, &row.ConfidenceLevel,
			&row.IsMarkedForReview, &row.IsCorrect, &row.PositiveMarks, &row.NegativeMarks,
			&row.Subject, &row.Topics, &row.SubmittedAt,
			&row.QuestionText, &row.Options, &row.CorrectAnswer, &row.Difficulty,
		); err != nil {
			return nil, err
		}
		report = append(report, row)
	}
	return report, rows.Err()
}

// ListAttemptedTests retrieves the tests a user has submitted, oldest first.
func (r *ResponseRepository) ListAttemptedTests(ctx context.Context, userID int) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.title, t.description, t.instructions, t.duration_minutes, t.max_marks,
		        t.test_date, t.start_time, t.end_time, t.question_count, t.created_at, t.updated_at
		 FROM submissions s
		 JOIN tests t ON t.id = s.test_id
		 WHERE s.user_id = $1
		 ORDER BY t.test_date ASC, s.submitted_at ASC`, userID)
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

// ListResultsByTest retrieves per-user aggregates for one test, for the
// admin results view, with pagination.
func (r *ResponseRepository) ListResultsByTest(ctx context.Context, testID uuid.UUID, limit, offset int) ([]TestResult, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE test_id = $1`, testID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.name, u.email,
		        COALESCE(SUM(CASE
		            WHEN r.is_correct THEN r.positive_marks
		            WHEN r.selected_option IS NOT NULL THEN -r.negative_marks
		            ELSE 0
		        END), 0) AS net_score,
		        COUNT(*) FILTER (WHERE r.is_correct) AS correct,
		        COUNT(*) FILTER (WHERE NOT r.is_correct AND r.selected_option IS NOT NULL) AS incorrect,
		        COUNT(*) FILTER (WHERE r.selected_option IS NOT NULL) AS attempted,
		        s.submitted_at
		 FROM submissions s
		 JOIN users u ON u.id = s.user_id
		 LEFT JOIN responses r ON r.user_id = s.user_id AND r.test_id = s.test_id
		 WHERE s.test_id = $1
		 GROUP BY u.id, u.name, u.email, s.submitted_at
		 ORDER BY net_score DESC, u.name ASC
		 LIMIT $2 OFFSET $3`, testID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []TestResult
	for rows.Next() {
		var res TestResult
		if err := rows.Scan(
			&res.UserID, &res.Name, &res.Email, &res.NetScore,
			&res.Correct, &res.Incorrect, &res.Attempted, &res.SubmittedAt,
		); err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}
