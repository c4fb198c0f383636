package store

import (
	"context"
	"database/sql"
	"errors"
	"sealevel/internal/logger"
	"time"
)

const selectionKey = "selected_region"

// Postgres：设置表保存选择，历史表记录每次数据集请求；表结构见 migrate.EnsureSchema
type Postgres struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) DB() *sql.DB { return p.db }

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) LoadSelection(ctx context.Context) (string, error) {
	var v string
	err := p.db.QueryRowContext(ctx, "SELECT value FROM sealevel_settings WHERE key=$1", selectionKey).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && v == "") {
		return "", ErrNoSelection
	}
	return v, err
}

func (p *Postgres) SaveSelection(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO sealevel_settings(key, value, updated_at) VALUES($1, $2, now())
        ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()`, selectionKey, id)
	return err
}

func (p *Postgres) RecordSync(ctx context.Context, r SyncRecord) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO sealevel_sync_history(region, outcome, error, started_at, duration_ms)
        VALUES($1,$2,$3,$4,$5)`, r.Region, r.Outcome, r.Error, r.StartedAt, r.DurationMs)
	if err == nil {
		logger.L().Debug("sync_history_recorded", "region", r.Region, "outcome", r.Outcome)
	}
	return err
}

// 文档注释：读取最近的同步历史
// 参数：limit <= 0 时默认 50。
func (p *Postgres) RecentSyncs(ctx context.Context, limit int) ([]SyncRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `SELECT region, outcome, error, started_at, duration_ms
        FROM sealevel_sync_history ORDER BY started_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SyncRecord
	for rows.Next() {
		var r SyncRecord
		var started time.Time
		if err := rows.Scan(&r.Region, &r.Outcome, &r.Error, &started, &r.DurationMs); err != nil {
			return nil, err
		}
		r.StartedAt = started
		out = append(out, r)
	}
	return out, rows.Err()
}
