package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/leave-assessment/internal/config"
	"github.com/stemsi/leave-assessment/internal/model"
)

// SettingStore persists the app_settings rows.
type SettingStore interface {
	GetAll(ctx context.Context) ([]model.AppSetting, error)
	UpsertMany(ctx context.Context, kv map[string]string) error
}

// SettingsCache holds the decoded settings snapshot. Get reports false on
// a miss.
type SettingsCache interface {
	Get(ctx context.Context) (model.Settings, bool, error)
	Set(ctx context.Context, s model.Settings) error
	Invalidate(ctx context.Context) error
}

// SettingService serves the assessment settings. Stored rows are overlaid
// on DefaultSettings so missing or malformed keys keep their default.
type SettingService struct {
	store SettingStore
	cache SettingsCache
	tx    Transactor
	log   zerolog.Logger
}

// NewSettingService creates a SettingService. cache may be nil.
func NewSettingService(store SettingStore, cache SettingsCache, tx Transactor, log zerolog.Logger) *SettingService {
	return &SettingService{
		store: store,
		cache: cache,
		tx:    tx,
		log:   log.With().Str("component", "setting_service").Logger(),
	}
}

// Current returns the settings snapshot, from cache when possible. Cache
// failures fall through to the database.
func (s *SettingService) Current(ctx context.Context) (model.Settings, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("Settings cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	rows, err := s.store.GetAll(ctx)
	if err != nil {
		return model.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	kv := make(map[string]string, len(rows))
	for _, row := range rows {
		kv[row.Key] = row.Value
	}

	settings := model.DefaultSettings()
	settings.ApplyKeyValues(kv)

	if s.cache != nil {
		if err := s.cache.Set(ctx, settings); err != nil {
			s.log.Warn().Err(err).Msg("Settings cache write failed")
		}
	}
	return settings, nil
}

// Update applies the non-nil fields of req and stores the full snapshot.
func (s *SettingService) Update(ctx context.Context, req model.UpdateSettingsRequest) (model.Settings, error) {
	settings, err := s.Current(ctx)
	if err != nil {
		return model.Settings{}, err
	}
	req.Apply(&settings)

	if settings.MaxViolations < 1 {
		return model.Settings{}, newValidationError("max_violations", "max_violations must be at least 1")
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.store.UpsertMany(ctx, settings.KeyValues())
	})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to update settings")
		return model.Settings{}, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Settings cache invalidation failed")
		}
	}

	s.log.Info().Interface("settings", settings).Msg("Assessment settings updated")
	return settings, nil
}

// RedisSettingsCache keeps the settings snapshot as JSON in Redis.
type RedisSettingsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSettingsCache creates a RedisSettingsCache.
func NewRedisSettingsCache(rdb *redis.Client, ttl time.Duration) *RedisSettingsCache {
	return &RedisSettingsCache{rdb: rdb, ttl: ttl}
}

func (c *RedisSettingsCache) Get(ctx context.Context) (model.Settings, bool, error) {
	data, err := c.rdb.Get(ctx, config.CacheKey.AssessmentSettingsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Settings{}, false, nil
		}
		return model.Settings{}, false, fmt.Errorf("get settings: %w", err)
	}

	var s model.Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return model.Settings{}, false, fmt.Errorf("unmarshal settings: %w", err)
	}
	return s, true, nil
}

func (c *RedisSettingsCache) Set(ctx context.Context, s model.Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return c.rdb.Set(ctx, config.CacheKey.AssessmentSettingsKey(), data, c.ttl).Err()
}

func (c *RedisSettingsCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, config.CacheKey.AssessmentSettingsKey()).Err()
}
