package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prepsio/testline-backend/internal/clock"
	"github.com/prepsio/testline-backend/internal/config"
	"github.com/prepsio/testline-backend/internal/model"
	"github.com/prepsio/testline-backend/internal/repository"
	"github.com/prepsio/testline-backend/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Session errors.
var (
	ErrNoSession        = errors.New("no open session for this test")
	ErrSessionSubmitted = errors.New("session is already submitted")
	ErrFinalizeInFlight = errors.New("a finalize attempt is already in progress")
	// ErrTestNotActive gates session opening only. Once a session exists its
	// own timer is the sole deadline; finalize is accepted past the window.
	ErrTestNotActive = errors.New("test window is not open")
)

// finalizeLockTTL bounds how long a crashed finalize attempt can block the
// next one.
const finalizeLockTTL = 2 * time.Minute

// SessionService orchestrates the test session state machine around its two
// stores: Redis holds the hot machine snapshot and start epoch, PostgreSQL
// holds the durable session row that the timer is always recoverable from.
type SessionService struct {
	sessionRepo  *repository.SessionRepository
	responseRepo *repository.ResponseRepository
	testSvc      *TestService
	statusSvc    *StatusService
	submissions  *SubmissionService
	rdb          *redis.Client
	clk          clock.Clock
	log          zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	sessionRepo *repository.SessionRepository,
	responseRepo *repository.ResponseRepository,
	testSvc *TestService,
	statusSvc *StatusService,
	submissions *SubmissionService,
	rdb *redis.Client,
	clk clock.Clock,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessionRepo:  sessionRepo,
		responseRepo: responseRepo,
		testSvc:      testSvc,
		statusSvc:    statusSvc,
		submissions:  submissions,
		rdb:          rdb,
		clk:          clk,
		log:          log,
	}
}

// Open establishes (or re-joins) the session for (user, test). The first
// call fixes the start timestamp; every later call — reload, second tab,
// reconnect — returns the same session with the clock still running.
func (s *SessionService) Open(ctx context.Context, userID int, testID uuid.UUID) (*model.SessionState, error) {
	test, err := s.testSvc.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	submitted, err := s.responseRepo.SubmissionExists(ctx, userID, testID)
	if err != nil {
		return nil, fmt.Errorf("check submission: %w", err)
	}
	if submitted {
		return nil, ErrSessionSubmitted
	}

	if !s.statusSvc.IsActive(test) {
		return nil, ErrTestNotActive
	}

	row, created, err := s.sessionRepo.Open(ctx, userID, testID)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	// Cache the start epoch so state reads don't touch PostgreSQL. DB and
	// cache hold the identical instant; the timer is derived from it alone.
	startKey := config.CacheKey.SessionStartKey(userID, testID.String())
	if err := s.rdb.Set(ctx, startKey, row.StartedAt.Unix(), 0).Err(); err != nil {
		s.log.Warn().Err(err).Int("user_id", userID).Msg("Failed to cache session start")
	}

	m, err := s.loadMachine(ctx, userID, testID, row)
	if err != nil {
		return nil, err
	}

	if created {
		s.log.Info().Int("user_id", userID).Str("test_id", testID.String()).
			Time("started_at", row.StartedAt).Msg("Session opened")
	}

	return s.settle(ctx, userID, testID, m)
}

// GetState returns the full reload-safe state. Remaining time is recomputed
// from the persisted start; an expired timer is applied before rendering.
func (s *SessionService) GetState(ctx context.Context, userID int, testID uuid.UUID) (*model.SessionState, error) {
	m, err := s.loadMachine(ctx, userID, testID, nil)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, userID, testID, m)
}

// ApplyEvent runs one client-initiated transition and persists the result.
func (s *SessionService) ApplyEvent(ctx context.Context, userID int, testID uuid.UUID, req *model.SessionEventRequest) (*model.SessionState, error) {
	m, err := s.loadMachine(ctx, userID, testID, nil)
	if err != nil {
		return nil, err
	}

	// The clock outranks the client: an event that arrives after expiry is
	// applied to an already-expired machine and will fail accordingly.
	if m.Remaining(s.clk.Now()) == 0 {
		m.TimerExpired()
	}

	if err := s.applyEvent(m, req); err != nil {
		// Persist timer-expiry side effects even when the event itself
		// was rejected.
		s.persist(ctx, userID, testID, m)
		return nil, err
	}

	s.persist(ctx, userID, testID, m)
	return m.State(s.clk.Now()), nil
}

// Finalize turns the open session into an accepted submission.
// Exactly-once across instances is enforced in layers: the Redis lock
// serializes concurrent attempts cheaply, the SUBMITTING phase stops
// repeated clicks, and the submissions-table conflict arbiter is the final
// authority if everything else races.
func (s *SessionService) Finalize(ctx context.Context, userID int, testID uuid.UUID, autoTriggered bool) (*model.SubmitResult, error) {
	lockKey := config.CacheKey.FinalizeLockKey(userID, testID.String())
	locked, err := s.rdb.SetNX(ctx, lockKey, s.clk.Now().Unix(), finalizeLockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire finalize lock: %w", err)
	}
	if !locked {
		return nil, ErrFinalizeInFlight
	}
	defer s.rdb.Del(ctx, lockKey)

	m, err := s.loadMachine(ctx, userID, testID, nil)
	if err != nil {
		return nil, err
	}

	if m.Remaining(s.clk.Now()) == 0 {
		m.TimerExpired()
		autoTriggered = true
	}

	if autoTriggered {
		err = m.BeginAutoFinalize()
	} else {
		err = m.BeginFinalize()
	}
	if err != nil {
		s.persist(ctx, userID, testID, m)
		return nil, mapMachineErr(err)
	}
	s.persist(ctx, userID, testID, m)

	paper, err := s.testSvc.GetPaper(ctx, testID)
	if err != nil {
		m.FinalizeFailed()
		s.persist(ctx, userID, testID, m)
		return nil, err
	}
	questionIDs := make([]uuid.UUID, 0, len(paper.Questions))
	for _, q := range paper.Questions {
		questionIDs = append(questionIDs, q.ID)
	}

	result, err := s.submissions.Submit(ctx, userID, testID, m.BuildResponses(questionIDs), autoTriggered)
	if err != nil {
		if errors.Is(err, ErrDuplicateSubmission) {
			// Someone else won the race. The session is submitted either way.
			m.FinalizeSucceeded()
			s.persist(ctx, userID, testID, m)
			return nil, err
		}
		m.FinalizeFailed()
		s.persist(ctx, userID, testID, m)
		return nil, err
	}

	m.FinalizeSucceeded()
	// Submit already dropped the cache keys; nothing left to persist there.
	s.queueSnapshot(ctx, userID, testID, m)

	return result, nil
}

// Remaining returns just the countdown value, for timer ticks.
func (s *SessionService) Remaining(ctx context.Context, userID int, testID uuid.UUID) (int, error) {
	startedAt, err := s.startedAt(ctx, userID, testID)
	if err != nil {
		return 0, err
	}
	duration, err := s.testSvc.GetDuration(ctx, testID)
	if err != nil {
		return 0, err
	}
	return session.Remaining(duration, startedAt, s.clk.Now()), nil
}

// settle applies timer expiry, persists any change, and renders the state.
func (s *SessionService) settle(ctx context.Context, userID int, testID uuid.UUID, m *session.Machine) (*model.SessionState, error) {
	if m.Phase != model.PhaseSubmitted && m.Remaining(s.clk.Now()) == 0 {
		m.TimerExpired()
		s.persist(ctx, userID, testID, m)
	}
	return m.State(s.clk.Now()), nil
}

// startedAt resolves the session start: Redis first, PostgreSQL on a miss,
// with the cache self-healed so the next read is fast again.
func (s *SessionService) startedAt(ctx context.Context, userID int, testID uuid.UUID) (time.Time, error) {
	startKey := config.CacheKey.SessionStartKey(userID, testID.String())

	val, err := s.rdb.Get(ctx, startKey).Result()
	if err == nil {
		epoch, parseErr := strconv.ParseInt(val, 10, 64)
		if parseErr == nil {
			return time.Unix(epoch, 0), nil
		}
		// Corrupt entry: fall through to the source of truth.
	} else if !errors.Is(err, redis.Nil) {
		return time.Time{}, fmt.Errorf("get session start: %w", err)
	}

	row, err := s.sessionRepo.GetByUserAndTest(ctx, userID, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, ErrNoSession
		}
		return time.Time{}, fmt.Errorf("get session: %w", err)
	}

	_ = s.rdb.Set(ctx, startKey, row.StartedAt.Unix(), 0).Err()
	return row.StartedAt, nil
}

// loadMachine restores the state machine: Redis snapshot first, the
// PostgreSQL mirror second, and a fresh machine from the durable session row
// as the last resort. row may be pre-fetched by the caller; nil means load
// on demand.
func (s *SessionService) loadMachine(ctx context.Context, userID int, testID uuid.UUID, row *model.TestSession) (*session.Machine, error) {
	stateKey := config.CacheKey.SessionStateKey(userID, testID.String())

	data, err := s.rdb.Get(ctx, stateKey).Bytes()
	if err == nil {
		snap, unmarshalErr := session.Unmarshal(data)
		if unmarshalErr == nil {
			return session.Restore(snap), nil
		}
		s.log.Warn().Err(unmarshalErr).Int("user_id", userID).Msg("Corrupt session state in cache, rebuilding")
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get session state: %w", err)
	}

	if row == nil {
		row, err = s.sessionRepo.GetByUserAndTest(ctx, userID, testID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrNoSession
			}
			return nil, fmt.Errorf("get session: %w", err)
		}
	}

	if row.Phase == model.PhaseSubmitted {
		return nil, ErrSessionSubmitted
	}

	// Try the durable snapshot mirror before giving up on answers.
	if mirrored, err := s.sessionRepo.GetSnapshot(ctx, userID, testID); err == nil && len(mirrored) > 0 {
		if snap, unmarshalErr := session.Unmarshal(mirrored); unmarshalErr == nil {
			m := session.Restore(snap)
			s.persist(ctx, userID, testID, m)
			return m, nil
		}
	}

	paper, err := s.testSvc.GetPaper(ctx, testID)
	if err != nil {
		return nil, err
	}

	m := session.New(userID, testID, len(paper.Questions), paper.DurationMinutes, row.StartedAt)
	m.Phase = row.Phase
	m.AutoSubmitted = row.AutoSubmitted
	s.persist(ctx, userID, testID, m)
	return m, nil
}

// persist writes the machine snapshot to Redis and queues the PostgreSQL
// mirror. Cache write failures are logged, not fatal: the mirror and the
// session row keep the state recoverable.
func (s *SessionService) persist(ctx context.Context, userID int, testID uuid.UUID, m *session.Machine) {
	data, err := m.Snapshot().Marshal()
	if err != nil {
		s.log.Error().Err(err).Int("user_id", userID).Msg("Failed to marshal session state")
		return
	}

	stateKey := config.CacheKey.SessionStateKey(userID, testID.String())
	if err := s.rdb.Set(ctx, stateKey, data, 0).Err(); err != nil {
		s.log.Warn().Err(err).Int("user_id", userID).Msg("Failed to cache session state")
	}

	s.queueSnapshot(ctx, userID, testID, m)
}

func (s *SessionService) queueSnapshot(ctx context.Context, userID int, testID uuid.UUID, m *session.Machine) {
	data, err := m.Snapshot().Marshal()
	if err != nil {
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.SessionSnapshotQueue, data).Err(); err != nil {
		s.log.Warn().Err(err).Int("user_id", userID).Msg("Failed to queue session snapshot")
	}
}

func (s *SessionService) applyEvent(m *session.Machine, req *model.SessionEventRequest) error {
	q := 0
	if req.Question != nil {
		q = *req.Question
	}

	var err error
	switch req.Event {
	case model.EventBegin:
		err = m.Begin()
	case model.EventSelectOption:
		err = m.SelectOption(q, req.Option)
	case model.EventClear:
		err = m.Clear(q)
	case model.EventToggleReview:
		err = m.ToggleReview(q)
	case model.EventNext:
		err = m.Next()
	case model.EventPrev:
		err = m.Prev()
	case model.EventGoto:
		err = m.Goto(q)
	case model.EventRequestSummary:
		err = m.RequestSummary()
	case model.EventResumeAnswering:
		err = m.ResumeAnswering()
	case model.EventConfirmConfidence:
		err = m.ConfirmConfidence(q, model.ConfidenceLevel(req.Confidence))
	default:
		err = fmt.Errorf("unknown event: %s", req.Event)
	}
	return mapMachineErr(err)
}

// mapMachineErr translates machine sentinels into service-level errors where
// the distinction matters to callers.
func mapMachineErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrAlreadySubmitted):
		return ErrSessionSubmitted
	case errors.Is(err, session.ErrSubmitting):
		return ErrFinalizeInFlight
	case errors.Is(err, session.ErrConfidenceMissing):
		return ErrConfidenceRequired
	case errors.Is(err, session.ErrInvalidConfidence):
		return ErrInvalidConfidence
	default:
		return err
	}
}
