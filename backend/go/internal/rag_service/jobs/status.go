package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Outreach/backend/go/internal/models"

	"github.com/go-redis/redis/v8"
)

// ErrJobNotFound 表示状态存储中没有该任务 (可能已过期)。
var ErrJobNotFound = errors.New("job not found")

// StatusStore 保存任务状态快照。
type StatusStore interface {
	Set(ctx context.Context, state *models.JobState) error
	Get(ctx context.Context, jobID string) (*models.JobState, error)
}

// StatusTracker 把任务状态以 JSON 形式写入 Redis，并设置过期时间。
type StatusTracker struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStatusTracker 创建一个新的 StatusTracker。ttl <= 0 表示不过期。
func NewStatusTracker(rdb *redis.Client, ttl time.Duration) *StatusTracker {
	if ttl < 0 {
		ttl = 0
	}
	return &StatusTracker{rdb: rdb, ttl: ttl}
}

func statusKey(jobID string) string {
	return "rag:ingest_job:" + jobID
}

func (t *StatusTracker) Set(ctx context.Context, state *models.JobState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("序列化任务状态失败: %w", err)
	}
	if err := t.rdb.Set(ctx, statusKey(state.JobID), data, t.ttl).Err(); err != nil {
		return fmt.Errorf("写入任务状态失败: %w", err)
	}
	return nil
}

func (t *StatusTracker) Get(ctx context.Context, jobID string) (*models.JobState, error) {
	data, err := t.rdb.Get(ctx, statusKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取任务状态失败: %w", err)
	}

	var state models.JobState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("解析任务状态失败: %w", err)
	}
	return &state, nil
}

var _ StatusStore = (*StatusTracker)(nil)
