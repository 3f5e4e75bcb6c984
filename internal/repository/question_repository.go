package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepsio/testline-backend/internal/model"
)

// QuestionRepository handles question data access and the question-to-test
// association (test_questions).
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `id, question_text, options, correct_answer, positive_marks, negative_marks,
	 subject, topics, difficulty, created_at, updated_at`

func scanQuestion(row interface{ Scan(...any) error }) (*model.Question, error) {
	q := &model.Question{}
	err := row.Scan(
		&q.ID, &q.QuestionText, &q.Options, &q.CorrectAnswer, &q.PositiveMarks, &q.NegativeMarks,
		&q.Subject, &q.Topics, &q.Difficulty, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// GetByID retrieves a question by ID.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
}

// CreateForTest inserts a question and attaches it to a test in one
// transaction, appending it at the end of the test's ordering.
func (r *QuestionRepository) CreateForTest(ctx context.Context, testID uuid.UUID, q *model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO questions (question_text, options, correct_answer, positive_marks, negative_marks, subject, topics, difficulty)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		q.QuestionText, q.Options, q.CorrectAnswer, q.PositiveMarks, q.NegativeMarks,
		q.Subject, q.Topics, q.Difficulty,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO test_questions (test_id, question_id, order_num)
		 VALUES ($1, $2, COALESCE((SELECT MAX(order_num) + 1 FROM test_questions WHERE test_id = $1), 1))`,
		testID, q.ID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListByTest retrieves a test's questions in display order.
func (r *QuestionRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.question_text, q.options, q.correct_answer, q.positive_marks, q.negative_marks,
		        q.subject, q.topics, q.difficulty, q.created_at, q.updated_at
		 FROM questions q
		 JOIN test_questions tq ON tq.question_id = q.id
		 WHERE tq.test_id = $1
		 ORDER BY tq.order_num ASC`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// Update rewrites a question's editable fields.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	q.UpdatedAt = time.Now()
	_, err := r.pool.Exec(ctx,
		`UPDATE questions
		 SET question_text = $1, options = $2, correct_answer = $3, positive_marks = $4,
		     negative_marks = $5, subject = $6, topics = $7, difficulty = $8, updated_at = $9
		 WHERE id = $10`,
		q.QuestionText, q.Options, q.CorrectAnswer, q.PositiveMarks,
		q.NegativeMarks, q.Subject, q.Topics, q.Difficulty, q.UpdatedAt, q.ID)
	return err
}

// DetachFromTest removes a question from a test without deleting the
// question itself. Existing responses keep their snapshots.
func (r *QuestionRepository) DetachFromTest(ctx context.Context, testID, questionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM test_questions WHERE test_id = $1 AND question_id = $2`,
		testID, questionID)
	return err
}

// Delete removes a question entirely, cascading out of every test.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}
