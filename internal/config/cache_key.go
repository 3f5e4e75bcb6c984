package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserLoginKey returns the cache key for a user's login session (JTI).
func (r *CacheKeyStruct) UserLoginKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// SessionStartKey returns the cache key for a user's test session start epoch.
func (r *CacheKeyStruct) SessionStartKey(userID int, testID string) string {
	return fmt.Sprintf("user:%d:test:%s:session_start", userID, testID)
}

// SessionStateKey returns the cache key holding the serialized session
// state machine for a (user, test) pair.
func (r *CacheKeyStruct) SessionStateKey(userID int, testID string) string {
	return fmt.Sprintf("user:%d:test:%s:session_state", userID, testID)
}

// FinalizeLockKey returns the key used to serialize finalize attempts for a
// (user, test) pair. SETNX on this key is the in-flight guard.
func (r *CacheKeyStruct) FinalizeLockKey(userID int, testID string) string {
	return fmt.Sprintf("user:%d:test:%s:finalizing", userID, testID)
}

// TestPaperKey returns the cache key for a test's examinee-facing paper.
func (r *CacheKeyStruct) TestPaperKey(testID string) string {
	return fmt.Sprintf("test:%s:paper", testID)
}

// TestDurationKey returns the cache key for a test's duration in minutes.
func (r *CacheKeyStruct) TestDurationKey(testID string) string {
	return fmt.Sprintf("test:%s:duration", testID)
}

// OverallStatsKey returns the cache key for a user's precomputed trend stats.
func (r *CacheKeyStruct) OverallStatsKey(userID int) string {
	return fmt.Sprintf("user:%d:overall_stats", userID)
}

var CacheKey = NewCacheKeyStruct()
