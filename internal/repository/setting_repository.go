package repository

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/leave-assessment/internal/database"
	"github.com/stemsi/leave-assessment/internal/model"
)

// SettingRepository stores the app_settings key/value rows.
type SettingRepository struct {
	pool *pgxpool.Pool
}

func NewSettingRepository(pool *pgxpool.Pool) *SettingRepository {
	return &SettingRepository{pool: pool}
}

// GetAll returns every stored setting ordered by key.
func (r *SettingRepository) GetAll(ctx context.Context) ([]model.AppSetting, error) {
	rows, err := database.Conn(ctx, r.pool).Query(ctx, `SELECT key, value, updated_at FROM app_settings ORDER BY key ASC`)
	if err != nil {
		return nil, mapErr("list settings", err)
	}
	defer rows.Close()

	var settings []model.AppSetting
	for rows.Next() {
		var s model.AppSetting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, mapErr("scan setting", err)
		}
		settings = append(settings, s)
	}
	return settings, mapErr("iterate settings", rows.Err())
}

const upsertSettingSQL = `
	INSERT INTO app_settings (key, value, updated_at) VALUES ($1, $2, NOW())
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

// UpsertMany writes every key/value pair in one round trip. Keys are sent in
// sorted order so concurrent writers lock rows in the same sequence.
func (r *SettingRepository) UpsertMany(ctx context.Context, kv map[string]string) error {
	if len(kv) == 0 {
		return nil
	}

	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	batch := &pgx.Batch{}
	for _, k := range keys {
		batch.Queue(upsertSettingSQL, k, kv[k])
	}
	return mapErr("upsert settings", database.Conn(ctx, r.pool).SendBatch(ctx, batch).Close())
}
