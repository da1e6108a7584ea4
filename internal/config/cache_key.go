package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AssessmentSettingsKey returns the cache key for the assessment settings snapshot
func (r *CacheKeyStruct) AssessmentSettingsKey() string {
	return "settings:assessment"
}

// AttemptLockKey returns the key of the per-attempt proctoring lock
func (r *CacheKeyStruct) AttemptLockKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:lock", attemptID)
}

// AttemptProctorChannel returns the Redis PubSub channel name for an attempt's proctoring events
func (r *CacheKeyStruct) AttemptProctorChannel(attemptID string) string {
	return fmt.Sprintf("attempt:%s:proctor", attemptID)
}

// RateLimitKey returns the fixed-window counter key of subject within scope
func (r *CacheKeyStruct) RateLimitKey(scope, subject string) string {
	return fmt.Sprintf("ratelimit:%s:%s", scope, subject)
}

var CacheKey = NewCacheKeyStruct()
