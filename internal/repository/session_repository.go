package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepsio/testline-backend/internal/model"
)

// SessionRepository handles durable test session data access. PostgreSQL is
// the source of truth for started_at; Redis only caches it.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Open establishes the session row for (user, test). The first call inserts
// and fixes started_at; every later call is absorbed by the conflict clause
// and returns the original row, so reloads can never reset the clock.
// The second return reports whether this call created the row.
func (r *SessionRepository) Open(ctx context.Context, userID int, testID uuid.UUID) (*model.TestSession, bool, error) {
	s := &model.TestSession{UserID: userID, TestID: testID, Phase: model.PhaseInstructions}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO test_sessions (user_id, test_id, phase)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, test_id) DO NOTHING
		 RETURNING id, started_at`,
		userID, testID, model.PhaseInstructions,
	).Scan(&s.ID, &s.StartedAt)
	if err == nil {
		return s, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	existing, err := r.GetByUserAndTest(ctx, userID, testID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetByUserAndTest retrieves the session row for (user, test).
func (r *SessionRepository) GetByUserAndTest(ctx context.Context, userID int, testID uuid.UUID) (*model.TestSession, error) {
	s := &model.TestSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, test_id, started_at, phase, auto_submitted
		 FROM test_sessions
		 WHERE user_id = $1 AND test_id = $2`, userID, testID,
	).Scan(&s.ID, &s.UserID, &s.TestID, &s.StartedAt, &s.Phase, &s.AutoSubmitted)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SaveSnapshot mirrors the machine snapshot into the session row. Called by
// the snapshot worker, not the request path.
func (r *SessionRepository) SaveSnapshot(ctx context.Context, userID int, testID uuid.UUID, phase model.SessionPhase, autoSubmitted bool, snapshot []byte) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE test_sessions
		 SET phase = $1, auto_submitted = $2, snapshot = $3, updated_at = NOW()
		 WHERE user_id = $4 AND test_id = $5`,
		phase, autoSubmitted, snapshot, userID, testID)
	return err
}

// GetSnapshot returns the last mirrored machine snapshot, or nil when none
// was ever written.
func (r *SessionRepository) GetSnapshot(ctx context.Context, userID int, testID uuid.UUID) ([]byte, error) {
	var snapshot []byte
	err := r.pool.QueryRow(ctx,
		`SELECT snapshot FROM test_sessions WHERE user_id = $1 AND test_id = $2`,
		userID, testID,
	).Scan(&snapshot)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// MarkSubmitted moves the session row into its terminal phase.
func (r *SessionRepository) MarkSubmitted(ctx context.Context, userID int, testID uuid.UUID, autoSubmitted bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE test_sessions
		 SET phase = $1, auto_submitted = $2, updated_at = NOW()
		 WHERE user_id = $3 AND test_id = $4`,
		model.PhaseSubmitted, autoSubmitted, userID, testID)
	return err
}
