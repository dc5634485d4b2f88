package reconcile

import (
	"time"
)

// JobStatus 对账任务状态
type JobStatus string

// 任务状态常量
const (
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// IsTerminal 是否为终态
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Counters 任务计数器
// 任务生命周期内单调不减，允许状态轮询方并发读取
type Counters struct {
	TotalFiles     int `json:"total_files"`
	ProcessedFiles int `json:"processed_files"`
	AddedFiles     int `json:"added_files"`
	UpdatedFiles   int `json:"updated_files"`
	RemovedFiles   int `json:"removed_files"`
	Errors         int `json:"errors"`
}

// Job 文件系统对账任务
// created 即 running；恰好进入一个终态后不再重开
type Job struct {
	ID             string     `json:"id"`
	Status         JobStatus  `json:"status"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	Counters       Counters   `json:"counters"`
	ErrorDetails   []string   `json:"error_details,omitempty"`
	CollectionName string     `json:"collection_name"`
	DeleteMissing  bool       `json:"delete_missing"`
	BatchSize      int        `json:"batch_size"`
}

// NewJob 创建处于 running 状态的任务
func NewJob(id, collectionName string, deleteMissing bool, batchSize int) *Job {
	return &Job{
		ID:             id,
		Status:         StatusRunning,
		StartTime:      time.Now(),
		CollectionName: collectionName,
		DeleteMissing:  deleteMissing,
		BatchSize:      batchSize,
	}
}

// Complete 标记任务完成
func (j *Job) Complete() {
	j.finish(StatusCompleted)
}

// Fail 标记任务失败并追加错误详情
func (j *Job) Fail(detail string) {
	if detail != "" {
		j.ErrorDetails = append(j.ErrorDetails, detail)
	}
	j.finish(StatusFailed)
}

// MarkCancelled 标记任务已取消
func (j *Job) MarkCancelled() {
	j.finish(StatusCancelled)
}

// finish 进入终态，只允许从 running 转换一次
func (j *Job) finish(status JobStatus) {
	if j.Status.IsTerminal() {
		return
	}
	j.Status = status
	now := time.Now()
	j.EndTime = &now
}

// Clone 任务快照，供运行中的任务安全地对外暴露
func (j *Job) Clone() *Job {
	clone := *j
	clone.ErrorDetails = append([]string(nil), j.ErrorDetails...)
	if j.EndTime != nil {
		end := *j.EndTime
		clone.EndTime = &end
	}
	return &clone
}

// Duration 任务耗时，未结束时按当前时间计算
func (j *Job) Duration() time.Duration {
	if j.EndTime != nil {
		return j.EndTime.Sub(j.StartTime)
	}
	return time.Since(j.StartTime)
}

// Options 任务启动选项
type Options struct {
	CollectionName string `json:"collection_name"`
	DeleteMissing  bool   `json:"delete_missing"`
	BatchSize      int    `json:"batch_size"`
}

// FileInfo 文件系统扫描得到的单个文件信息
type FileInfo struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	ModifiedTime time.Time `json:"modified_time"`
	Hash         string    `json:"hash"`
}
