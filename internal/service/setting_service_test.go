package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stemsi/leave-assessment/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSettingStore struct {
	rows  map[string]string
	reads int
	err   error
}

func (s *memSettingStore) GetAll(context.Context) ([]model.AppSetting, error) {
	s.reads++
	if s.err != nil {
		return nil, s.err
	}
	var out []model.AppSetting
	for k, v := range s.rows {
		out = append(out, model.AppSetting{Key: k, Value: v})
	}
	return out, nil
}

func (s *memSettingStore) UpsertMany(_ context.Context, kv map[string]string) error {
	if s.rows == nil {
		s.rows = map[string]string{}
	}
	for k, v := range kv {
		s.rows[k] = v
	}
	return nil
}

type memSettingsCache struct {
	value       *model.Settings
	invalidated int
	getErr      error
}

func (c *memSettingsCache) Get(context.Context) (model.Settings, bool, error) {
	if c.getErr != nil {
		return model.Settings{}, false, c.getErr
	}
	if c.value == nil {
		return model.Settings{}, false, nil
	}
	return *c.value, true, nil
}

func (c *memSettingsCache) Set(_ context.Context, s model.Settings) error {
	c.value = &s
	return nil
}

func (c *memSettingsCache) Invalidate(context.Context) error {
	c.value = nil
	c.invalidated++
	return nil
}

func TestCurrentFallsBackToDefaults(t *testing.T) {
	svc := NewSettingService(&memSettingStore{}, nil, memTx{}, nopLog)

	got, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), got)
}

func TestCurrentOverlaysStoredRows(t *testing.T) {
	store := &memSettingStore{rows: map[string]string{
		model.SettingMCQCount:              "6",
		model.SettingPassingPercentage:     "82.5",
		model.SettingAutoSubmitOnViolation: "false",
		model.SettingMaxViolations:         "many",
		model.SettingCodingCount:           "-2",
		"theme":                            "dark",
	}}
	svc := NewSettingService(store, nil, memTx{}, nopLog)

	got, err := svc.Current(context.Background())
	require.NoError(t, err)

	want := model.DefaultSettings()
	want.MCQCount = 6
	want.PassingPercentage = 82.5
	want.AutoSubmitOnViolation = false
	assert.Equal(t, want, got)
}

func TestCurrentUsesCache(t *testing.T) {
	store := &memSettingStore{}
	cache := &memSettingsCache{}
	svc := NewSettingService(store, cache, memTx{}, nopLog)
	ctx := context.Background()

	_, err := svc.Current(ctx)
	require.NoError(t, err)
	_, err = svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.reads)

	cache.getErr = errors.New("redis down")
	_, err = svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, store.reads)
}

func TestCurrentPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("db down")
	svc := NewSettingService(&memSettingStore{err: boom}, nil, memTx{}, nopLog)
	_, err := svc.Current(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestUpdateSettings(t *testing.T) {
	store := &memSettingStore{}
	cache := &memSettingsCache{}
	svc := NewSettingService(store, cache, memTx{}, nopLog)
	ctx := context.Background()

	mcqCount := 4
	pct := 55.0
	got, err := svc.Update(ctx, model.UpdateSettingsRequest{MCQCount: &mcqCount, PassingPercentage: &pct})
	require.NoError(t, err)
	assert.Equal(t, 4, got.MCQCount)
	assert.Equal(t, 55.0, got.PassingPercentage)
	assert.Equal(t, 2, got.CodingCount)

	assert.Equal(t, "4", store.rows[model.SettingMCQCount])
	assert.Equal(t, "55", store.rows[model.SettingPassingPercentage])
	assert.Equal(t, 1, cache.invalidated)

	current, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, got, current)
}

func TestUpdateSettingsRejectsZeroMaxViolations(t *testing.T) {
	svc := NewSettingService(&memSettingStore{}, nil, memTx{}, nopLog)
	zero := 0
	_, err := svc.Update(context.Background(), model.UpdateSettingsRequest{MaxViolations: &zero})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
