package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Outreach/backend/go/internal/models"
	"Outreach/backend/go/internal/rag_service/service"
	"Outreach/backend/go/pkg/logger"

	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

// MessageReader 是 *kafka.Reader 中 Worker 用到的部分。
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Ingester 执行实际的文档摄取，通常是 *service.RagService。
type Ingester interface {
	Ingest(ctx context.Context, buf []byte, fileName string, opts service.IngestOptions) (*service.IngestResult, error)
}

// Worker 从 Kafka 消费摄取任务并调用 Ingester。
type Worker struct {
	reader   MessageReader
	objects  ObjectStore
	status   StatusStore
	ingester Ingester
	logger   *logger.Logger
	workers  int
	now      func() time.Time
}

// NewWorker 创建一个新的 Worker。workers 为并发消费的 goroutine 数量。
func NewWorker(reader MessageReader, objects ObjectStore, status StatusStore, ingester Ingester, workers int, log *logger.Logger) *Worker {
	if workers <= 0 {
		workers = 1
	}
	return &Worker{
		reader:   reader,
		objects:  objects,
		status:   status,
		ingester: ingester,
		logger:   log,
		workers:  workers,
		now:      time.Now,
	}
}

// Run 阻塞消费，直到 ctx 被取消。
func (w *Worker) Run(ctx context.Context) error {
	w.logger.WithField("workers", w.workers).Info("Ingest worker started")
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.workers; i++ {
		g.Go(func() error {
			w.loop(ctx)
			return nil
		})
	}
	err := g.Wait()
	w.logger.Info("Stopping ingest worker...")
	return err
}

func (w *Worker) loop(ctx context.Context) {
	for {
		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error fetching message from Kafka")
			continue
		}

		if err := w.Handle(ctx, msg); err != nil {
			w.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{
				"topic":     msg.Topic,
				"partition": msg.Partition,
				"offset":    msg.Offset,
			}).Error("Error handling ingest job")
		}

		// 失败的任务同样提交偏移量，不做重试。
		if err := w.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			w.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to commit Kafka message")
		}
	}
}

// Handle 处理单条任务消息，并把结果写入状态存储。
func (w *Worker) Handle(ctx context.Context, msg kafka.Message) error {
	var job models.IngestJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return fmt.Errorf("无法解析任务消息: %w", err)
	}

	state := &models.JobState{JobID: job.JobID, FileName: job.FileName}
	w.setStatus(ctx, state, models.JobStatusRunning)

	buf, err := w.objects.Get(ctx, job.ObjectKey)
	if err != nil {
		state.Error = err.Error()
		w.setStatus(ctx, state, models.JobStatusFailed)
		return err
	}
	// 内容已在内存中，暂存对象不再需要。
	if err := w.objects.Remove(ctx, job.ObjectKey); err != nil {
		w.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithField("job_id", job.JobID).Warn("Failed to remove staged upload")
	}

	res, err := w.ingester.Ingest(ctx, buf, job.FileName, service.IngestOptions{
		Category:   job.Category,
		UploadedBy: job.UploadedBy,
	})
	if err != nil {
		state.Error = err.Error()
		w.setStatus(ctx, state, models.JobStatusFailed)
		return err
	}

	state.DocumentID = res.DocumentID
	w.setStatus(ctx, state, models.JobStatusSucceeded)
	w.logger.WithPayload(map[string]interface{}{
		"job_id":      job.JobID,
		"document_id": res.DocumentID,
		"chunks":      res.ChunkCount,
	}).Info("Ingest job finished")
	return nil
}

func (w *Worker) setStatus(ctx context.Context, state *models.JobState, status models.JobStatus) {
	state.Status = status
	state.UpdatedAt = w.now().UTC()
	if err := w.status.Set(ctx, state); err != nil {
		w.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithField("job_id", state.JobID).Warn("Failed to update job status")
	}
}
