package session

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prepsio/testline-backend/internal/model"
)

// Snapshot is the serialized form of a Machine, stored in Redis under the
// (user, test) session-state key and mirrored to PostgreSQL by the snapshot
// worker. Maps use string keys because JSON objects require them.
type Snapshot struct {
	UserID          int                              `json:"user_id"`
	TestID          uuid.UUID                        `json:"test_id"`
	QuestionCount   int                              `json:"question_count"`
	DurationMinutes int                              `json:"duration_minutes"`
	StartedAt       time.Time                        `json:"started_at"`
	Phase           model.SessionPhase               `json:"phase"`
	Current         int                              `json:"current"`
	Answers         map[string]string                `json:"answers"`
	Review          map[string]bool                  `json:"review"`
	Confidence      map[string]model.ConfidenceLevel `json:"confidence"`
	AutoSubmitted   bool                             `json:"auto_submitted"`
}

// Snapshot captures the machine's current state for persistence.
func (m *Machine) Snapshot() *Snapshot {
	s := &Snapshot{
		UserID:          m.UserID,
		TestID:          m.TestID,
		QuestionCount:   m.QuestionCount,
		DurationMinutes: m.DurationMinutes,
		StartedAt:       m.StartedAt,
		Phase:           m.Phase,
		Current:         m.Current,
		Answers:         make(map[string]string, len(m.Answers)),
		Review:          make(map[string]bool, len(m.Review)),
		Confidence:      make(map[string]model.ConfidenceLevel, len(m.Confidence)),
		AutoSubmitted:   m.AutoSubmitted,
	}
	for i, v := range m.Answers {
		s.Answers[itoa(i)] = v
	}
	for i, v := range m.Review {
		s.Review[itoa(i)] = v
	}
	for i, v := range m.Confidence {
		s.Confidence[itoa(i)] = v
	}
	return s
}

// Restore rebuilds a Machine from a snapshot. Entries with malformed or
// out-of-range ordinals are dropped rather than failing the whole restore.
func Restore(s *Snapshot) *Machine {
	m := New(s.UserID, s.TestID, s.QuestionCount, s.DurationMinutes, s.StartedAt)
	m.Phase = s.Phase
	m.Current = s.Current
	m.AutoSubmitted = s.AutoSubmitted
	if m.Current < 0 || m.Current >= maxInt(s.QuestionCount, 1) {
		m.Current = 0
	}
	for k, v := range s.Answers {
		if i, ok := atoiOrdinal(k, s.QuestionCount); ok {
			m.Answers[i] = v
		}
	}
	for k, v := range s.Review {
		if i, ok := atoiOrdinal(k, s.QuestionCount); ok && v {
			m.Review[i] = true
		}
	}
	for k, v := range s.Confidence {
		if i, ok := atoiOrdinal(k, s.QuestionCount); ok && v.Valid() {
			m.Confidence[i] = v
		}
	}
	return m
}

// Marshal encodes the snapshot as JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal decodes a snapshot from JSON.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

func atoiOrdinal(s string, count int) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n >= count {
		return 0, false
	}
	return n, true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
