// 包 store：区域选择的持久化与同步历史（文件 / Redis / PostgreSQL）
package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoSelection：尚未保存过区域选择
var ErrNoSelection = errors.New("store: no saved selection")

// SelectionStore：保存与读取用户最近一次成功就绪的区域
type SelectionStore interface {
	LoadSelection(ctx context.Context) (string, error)
	SaveSelection(ctx context.Context, id string) error
}

// SyncRecord：一次数据集请求的结果
type SyncRecord struct {
	Region     string    `json:"region"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}

// History：同步历史，目前仅 PostgreSQL 后端提供
type History interface {
	RecordSync(ctx context.Context, r SyncRecord) error
	RecentSyncs(ctx context.Context, limit int) ([]SyncRecord, error)
}

// Memory：进程内实现，用于测试与无持久化运行
type Memory struct {
	mu      sync.Mutex
	id      string
	history []SyncRecord
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) LoadSelection(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.id == "" {
		return "", ErrNoSelection
	}
	return m.id, nil
}

func (m *Memory) SaveSelection(_ context.Context, id string) error {
	m.mu.Lock()
	m.id = id
	m.mu.Unlock()
	return nil
}

func (m *Memory) RecordSync(_ context.Context, r SyncRecord) error {
	m.mu.Lock()
	m.history = append(m.history, r)
	m.mu.Unlock()
	return nil
}

// RecentSyncs：按时间倒序返回
func (m *Memory) RecentSyncs(_ context.Context, limit int) ([]SyncRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SyncRecord, 0, len(m.history))
	for i := len(m.history) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, m.history[i])
	}
	return out, nil
}
