// Package jobs 实现异步摄取：上传内容暂存到 MinIO，任务经 Kafka 分发，
// 任务状态记录在 Redis 中。
package jobs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
)

// ObjectStore 是暂存上传内容所需的最小对象存储接口。
type ObjectStore interface {
	Put(ctx context.Context, key string, buf []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
}

// Stager 把上传的原始字节暂存在 MinIO 桶中，直到 worker 取走。
type Stager struct {
	client *minio.Client
	bucket string
}

// NewStager 创建一个新的 Stager。桶需要事先存在。
func NewStager(client *minio.Client, bucket string) *Stager {
	return &Stager{client: client, bucket: bucket}
}

func (s *Stager) Put(ctx context.Context, key string, buf []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(buf), int64(len(buf)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("暂存对象 '%s' 失败: %w", key, err)
	}
	return nil
}

func (s *Stager) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 '%s' 失败: %w", key, err)
	}
	defer obj.Close()

	buf, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 '%s' 失败: %w", key, err)
	}
	return buf, nil
}

func (s *Stager) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除对象 '%s' 失败: %w", key, err)
	}
	return nil
}

// objectKey 生成暂存对象的键，例如 "uploads/<jobID>/report.pdf"。
func objectKey(jobID, fileName string) string {
	return path.Join("uploads", jobID, path.Base(fileName))
}

var _ ObjectStore = (*Stager)(nil)
