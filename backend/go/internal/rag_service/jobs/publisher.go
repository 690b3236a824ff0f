package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Outreach/backend/go/internal/models"
	"Outreach/backend/go/internal/rag_service/service"
	"Outreach/backend/go/pkg/logger"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// MessageWriter 是 *kafka.Writer 中 Publisher 用到的部分。
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher 负责提交异步摄取任务。
type Publisher struct {
	objects ObjectStore
	writer  MessageWriter
	status  StatusStore
	logger  *logger.Logger
	now     func() time.Time
}

// NewPublisher 创建一个新的 Publisher。
func NewPublisher(objects ObjectStore, writer MessageWriter, status StatusStore, log *logger.Logger) *Publisher {
	return &Publisher{
		objects: objects,
		writer:  writer,
		status:  status,
		logger:  log,
		now:     time.Now,
	}
}

// Submit 暂存上传内容，发布任务消息，并把任务记为 queued。
// 发布失败时会删除已暂存的对象。
func (p *Publisher) Submit(ctx context.Context, buf []byte, fileName, contentType string, opts service.IngestOptions) (*models.JobState, error) {
	jobID := uuid.NewString()
	job := models.IngestJob{
		JobID:      jobID,
		ObjectKey:  objectKey(jobID, fileName),
		FileName:   fileName,
		FileSize:   int64(len(buf)),
		Category:   opts.Category,
		UploadedBy: opts.UploadedBy,
		CreatedAt:  p.now().UTC(),
	}

	if err := p.objects.Put(ctx, job.ObjectKey, buf, contentType); err != nil {
		return nil, err
	}

	value, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("序列化任务失败: %w", err)
	}

	state := &models.JobState{
		JobID:     jobID,
		Status:    models.JobStatusQueued,
		FileName:  fileName,
		UpdatedAt: job.CreatedAt,
	}
	// 先写状态，避免 worker 比 queued 更早写入 running。
	if err := p.status.Set(ctx, state); err != nil {
		_ = p.objects.Remove(ctx, job.ObjectKey)
		return nil, err
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(fileName), Value: value}); err != nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithField("job_id", jobID).Error("Failed to write ingest job to Kafka")
		if rmErr := p.objects.Remove(ctx, job.ObjectKey); rmErr != nil {
			p.logger.WithError(models.ErrorInfo{Message: rmErr.Error()}).Warn("Failed to remove staged upload")
		}
		state.Status = models.JobStatusFailed
		state.Error = err.Error()
		state.UpdatedAt = p.now().UTC()
		_ = p.status.Set(ctx, state)
		return nil, fmt.Errorf("发布摄取任务失败: %w", err)
	}

	p.logger.WithPayload(map[string]interface{}{
		"job_id":    jobID,
		"file_name": fileName,
		"size":      job.FileSize,
	}).Info("Ingest job queued")
	return state, nil
}

// Status 返回任务的当前状态。
func (p *Publisher) Status(ctx context.Context, jobID string) (*models.JobState, error) {
	return p.status.Get(ctx, jobID)
}
