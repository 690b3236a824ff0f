package models

import "time"

// JobStatus 表示异步摄取任务的状态。
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// IngestJob 是通过 Kafka 传递给后台 worker 的摄取任务。
// 上传内容暂存在对象存储中，ObjectKey 指向它；任务完成后对象会被删除。
type IngestJob struct {
	JobID      string    `json:"jobID"`
	ObjectKey  string    `json:"objectKey"`
	FileName   string    `json:"fileName"`
	FileSize   int64     `json:"fileSize"`
	Category   string    `json:"category,omitempty"`
	UploadedBy string    `json:"uploadedBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// JobState 是任务在状态存储中的快照。
type JobState struct {
	JobID      string    `json:"jobID"`
	Status     JobStatus `json:"status"`
	FileName   string    `json:"fileName"`
	DocumentID string    `json:"documentID,omitempty"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
