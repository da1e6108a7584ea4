package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseOrigins(t *testing.T) {
	assert.Nil(t, parseOrigins(""))
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, parseOrigins(" http://a.test , ,http://b.test"))
}

func TestGetEnvIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("LEAVE_TEST_INT", "abc")
	assert.Equal(t, 7, getEnvInt("LEAVE_TEST_INT", 7))

	t.Setenv("LEAVE_TEST_INT", "42")
	assert.Equal(t, 42, getEnvInt("LEAVE_TEST_INT", 7))
}

func TestLoadDurations(t *testing.T) {
	t.Setenv("JUDGE_TIMEOUT_SECONDS", "3")
	t.Setenv("ATTEMPT_LOCK_TTL_SECONDS", "2")

	cfg := Load()
	assert.Equal(t, 3*time.Second, cfg.JudgeTimeout)
	assert.Equal(t, 2*time.Second, cfg.AttemptLockTTL)
	assert.Equal(t, "settings:assessment", CacheKey.AssessmentSettingsKey())
	assert.Equal(t, "attempt:abc:proctor", CacheKey.AttemptProctorChannel("abc"))
}
