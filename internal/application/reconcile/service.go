package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docbridge/backend/internal/domain/document"
	"github.com/docbridge/backend/internal/domain/reconcile"
	"github.com/docbridge/backend/internal/infrastructure/config"
	"github.com/docbridge/backend/internal/infrastructure/log"
	"github.com/docbridge/backend/internal/infrastructure/websocket"
)

// 任务进度事件类型
const (
	eventJobStarted  = "reconciliation.started"
	eventJobProgress = "reconciliation.progress"
	eventJobFinished = "reconciliation.finished"
)

// Service 文件系统对账服务
// 启动的任务在后台 goroutine 中运行，调用方立即拿到任务 ID 后轮询状态。
// 同一集合上的任务串行化：已有任务在运行时启动请求直接拒绝
type Service struct {
	jobs     reconcile.JobRepository
	settings reconcile.SettingsStore
	ingestor Ingestor
	vectors  document.VectorStore
	hub      *websocket.Hub
	cfg      *config.Config
	logger   *slog.Logger

	mu      sync.Mutex
	running map[string]*runningJob // collection -> 运行中的任务
}

// runningJob 运行中任务的内存句柄
type runningJob struct {
	jobID      string
	cancel     chan struct{}
	cancelOnce sync.Once
}

func (r *runningJob) requestCancel() {
	r.cancelOnce.Do(func() { close(r.cancel) })
}

// NewService 创建对账服务
func NewService(
	jobs reconcile.JobRepository,
	settings reconcile.SettingsStore,
	ingestor Ingestor,
	vectors document.VectorStore,
	hub *websocket.Hub,
	cfg *config.Config,
) *Service {
	return &Service{
		jobs:     jobs,
		settings: settings,
		ingestor: ingestor,
		vectors:  vectors,
		hub:      hub,
		cfg:      cfg,
		logger:   log.NewModuleLogger("reconcile", "service"),
		running:  make(map[string]*runningJob),
	}
}

// CheckEntry 待核对文件：文件系统与向量库中都存在的路径
type CheckEntry struct {
	File       reconcile.FileInfo
	DocumentID string
}

// RemoveEntry 待移除记录：只存在于向量库中的路径
type RemoveEntry struct {
	Path       string
	DocumentID string
}

// Partition 按集合差把文件系统快照与向量库路径集切分为三组
// 纯函数：to_add ∪ to_check 覆盖全部文件且两两不重叠，
// to_remove 覆盖向量库中文件系统已不存在的路径
func Partition(files []reconcile.FileInfo, vectorPaths map[string]string) (toAdd []reconcile.FileInfo, toCheck []CheckEntry, toRemove []RemoveEntry) {
	filePaths := make(map[string]bool, len(files))
	for _, file := range files {
		filePaths[file.Path] = true
		if documentID, ok := vectorPaths[file.Path]; ok {
			toCheck = append(toCheck, CheckEntry{File: file, DocumentID: documentID})
		} else {
			toAdd = append(toAdd, file)
		}
	}
	for path, documentID := range vectorPaths {
		if !filePaths[path] {
			toRemove = append(toRemove, RemoveEntry{Path: path, DocumentID: documentID})
		}
	}
	return toAdd, toCheck, toRemove
}

// MonitoredDirs 读取持久化的监控目录列表
func (s *Service) MonitoredDirs() ([]string, error) {
	raw, err := s.settings.Get(reconcile.SettingMonitoredDirs, "[]")
	if err != nil {
		return nil, fmt.Errorf("failed to read monitored directories: %w", err)
	}
	var dirs []string
	if err := json.Unmarshal([]byte(raw), &dirs); err != nil {
		return nil, fmt.Errorf("invalid monitored directories setting: %w", err)
	}
	return dirs, nil
}

// SetMonitoredDirs 持久化监控目录列表
func (s *Service) SetMonitoredDirs(dirs []string) error {
	raw, err := json.Marshal(dirs)
	if err != nil {
		return err
	}
	return s.settings.Set(reconcile.SettingMonitoredDirs, string(raw))
}

// StartReconciliation 启动对账任务
// 同步校验集合占用后立即返回 running 状态任务的快照，
// 扫描和入库在后台进行；没有监控目录按任务级失败落库
func (s *Service) StartReconciliation(ctx context.Context, opts reconcile.Options) (*reconcile.Job, error) {
	dirs, err := s.MonitoredDirs()
	if err != nil {
		return nil, err
	}

	collection := opts.CollectionName
	if collection == "" {
		collection = s.cfg.Vector.CollectionName
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = s.cfg.Reconcile.DefaultBatchSize
	}

	job := reconcile.NewJob(uuid.NewString(), collection, opts.DeleteMissing, batchSize)

	if len(dirs) == 0 {
		job.Fail(reconcile.ErrNoMonitoredDirs.Error())
		if err := s.jobs.Save(job); err != nil {
			return nil, fmt.Errorf("failed to save reconciliation job: %w", err)
		}
		s.logger.Warn("Reconciliation job failed", "job_id", job.ID, "reason", reconcile.ErrNoMonitoredDirs)
		s.broadcast(eventJobFinished, job)
		return job, nil
	}

	handle := &runningJob{jobID: job.ID, cancel: make(chan struct{})}

	s.mu.Lock()
	if _, busy := s.running[collection]; busy {
		s.mu.Unlock()
		return nil, reconcile.ErrCollectionBusy
	}
	s.running[collection] = handle
	s.mu.Unlock()

	if err := s.jobs.Save(job); err != nil {
		s.releaseCollection(collection)
		return nil, fmt.Errorf("failed to save reconciliation job: %w", err)
	}

	s.logger.Info("Reconciliation job started",
		"job_id", job.ID,
		"collection", collection,
		"delete_missing", job.DeleteMissing,
		"batch_size", batchSize,
	)
	s.broadcast(eventJobStarted, job)

	// 后台协程持续更新 job，调用方只拿到启动时刻的快照
	snapshot := job.Clone()
	go s.run(job, dirs, handle)

	return snapshot, nil
}

// run 执行对账任务主流程
func (s *Service) run(job *reconcile.Job, dirs []string, handle *runningJob) {
	// 任务寿命独立于发起它的请求
	ctx := context.Background()
	defer s.releaseCollection(job.CollectionName)

	// 阶段一：扫描文件系统。目录不可读属于任务级致命错误
	files, skipped, err := Scan(dirs)
	if err != nil {
		s.failJob(job, fmt.Sprintf("filesystem scan failed: %v", err))
		return
	}
	for _, detail := range skipped {
		job.Counters.Errors++
		job.ErrorDetails = append(job.ErrorDetails, detail)
	}

	job.Counters.TotalFiles = len(files)
	s.persist(job)
	s.broadcast(eventJobProgress, job)

	// 阶段二：读取向量库当前记录的 source_path 集合
	vectorPaths, err := s.vectors.ListSourcePaths(ctx)
	if err != nil {
		s.failJob(job, fmt.Sprintf("failed to list vector store paths: %v", err))
		return
	}

	toAdd, toCheck, toRemove := Partition(files, vectorPaths)
	s.logger.Info("Reconciliation partition computed",
		"job_id", job.ID,
		"to_add", len(toAdd),
		"to_check", len(toCheck),
		"to_remove", len(toRemove),
	)

	// 阶段三：分批处理。单文件失败只计数，取消在批次之间生效
	if s.processAdds(ctx, job, toAdd, handle) {
		return
	}
	if s.processChecks(ctx, job, toCheck, handle) {
		return
	}
	if job.DeleteMissing {
		if s.processRemovals(ctx, job, toRemove, handle) {
			return
		}
	}

	job.Complete()
	s.persist(job)
	s.broadcast(eventJobFinished, job)
	s.recordRunStats(ctx, job)

	s.logger.Info("Reconciliation job completed",
		"job_id", job.ID,
		"added", job.Counters.AddedFiles,
		"updated", job.Counters.UpdatedFiles,
		"removed", job.Counters.RemovedFiles,
		"errors", job.Counters.Errors,
		"duration", job.Duration().String(),
	)
}

// processAdds 处理新增文件，返回任务是否被取消
func (s *Service) processAdds(ctx context.Context, job *reconcile.Job, toAdd []reconcile.FileInfo, handle *runningJob) bool {
	for start := 0; start < len(toAdd); start += job.BatchSize {
		if s.cancelRequested(job, handle) {
			return true
		}
		for _, file := range toAdd[start:min(start+job.BatchSize, len(toAdd))] {
			if _, err := s.ingestor.Ingest(ctx, file); err != nil {
				job.Counters.Errors++
				job.ErrorDetails = append(job.ErrorDetails, err.Error())
			} else {
				job.Counters.AddedFiles++
			}
			job.Counters.ProcessedFiles++
		}
		s.persist(job)
		s.broadcast(eventJobProgress, job)
	}
	return false
}

// processChecks 核对双方都存在的文件，哈希不一致才重新入库
func (s *Service) processChecks(ctx context.Context, job *reconcile.Job, toCheck []CheckEntry, handle *runningJob) bool {
	for start := 0; start < len(toCheck); start += job.BatchSize {
		if s.cancelRequested(job, handle) {
			return true
		}
		for _, entry := range toCheck[start:min(start+job.BatchSize, len(toCheck))] {
			if err := s.checkOne(ctx, job, entry); err != nil {
				job.Counters.Errors++
				job.ErrorDetails = append(job.ErrorDetails, err.Error())
			}
			job.Counters.ProcessedFiles++
		}
		s.persist(job)
		s.broadcast(eventJobProgress, job)
	}
	return false
}

// checkOne 核对单个文件
func (s *Service) checkOne(ctx context.Context, job *reconcile.Job, entry CheckEntry) error {
	recorded, err := s.ingestor.RecordedHash(ctx, entry.DocumentID)
	if err != nil {
		return fmt.Errorf("check %s: %w", entry.File.Path, err)
	}
	if recorded == entry.File.Hash {
		return nil
	}
	if err := s.ingestor.Reingest(ctx, entry.DocumentID, entry.File); err != nil {
		return fmt.Errorf("reingest %s: %w", entry.File.Path, err)
	}
	job.Counters.UpdatedFiles++
	return nil
}

// processRemovals 删除文件系统中已不存在的文档
func (s *Service) processRemovals(ctx context.Context, job *reconcile.Job, toRemove []RemoveEntry, handle *runningJob) bool {
	for start := 0; start < len(toRemove); start += job.BatchSize {
		if s.cancelRequested(job, handle) {
			return true
		}
		for _, entry := range toRemove[start:min(start+job.BatchSize, len(toRemove))] {
			if err := s.ingestor.Remove(ctx, entry.DocumentID); err != nil {
				job.Counters.Errors++
				job.ErrorDetails = append(job.ErrorDetails, fmt.Sprintf("remove %s: %v", entry.Path, err))
			} else {
				job.Counters.RemovedFiles++
			}
		}
		s.persist(job)
		s.broadcast(eventJobProgress, job)
	}
	return false
}

// cancelRequested 在批次边界检查取消请求并落终态
func (s *Service) cancelRequested(job *reconcile.Job, handle *runningJob) bool {
	select {
	case <-handle.cancel:
	default:
		return false
	}

	job.MarkCancelled()
	s.persist(job)
	s.broadcast(eventJobFinished, job)
	s.logger.Info("Reconciliation job cancelled", "job_id", job.ID)
	return true
}

// failJob 任务级致命错误：落 failed 终态并记录详情
func (s *Service) failJob(job *reconcile.Job, detail string) {
	job.Fail(detail)
	s.persist(job)
	s.broadcast(eventJobFinished, job)
	s.logger.Error("Reconciliation job failed", "job_id", job.ID, "detail", detail)
}

// recordRunStats 完成后持久化本次运行统计
func (s *Service) recordRunStats(ctx context.Context, job *reconcile.Job) {
	stats := map[string]string{
		reconcile.StatLastRun:         job.EndTime.Format(time.RFC3339),
		reconcile.StatLastRunDuration: job.Duration().String(),
		reconcile.StatLastRunFiles:    strconv.Itoa(job.Counters.TotalFiles),
	}
	if count, err := s.ingestor.DocumentCount(ctx); err == nil {
		stats[reconcile.StatTotalDocuments] = strconv.Itoa(count)
	}
	for key, value := range stats {
		if err := s.settings.Set(key, value); err != nil {
			s.logger.Warn("Failed to record run stat", "key", key, "error", err)
		}
	}
}

// persist 保存任务状态，失败只记日志
func (s *Service) persist(job *reconcile.Job) {
	if err := s.jobs.Save(job); err != nil {
		s.logger.Warn("Failed to persist job state", "job_id", job.ID, "error", err)
	}
}

// broadcast 向任务订阅方推送进度
func (s *Service) broadcast(eventType string, job *reconcile.Job) {
	if s.hub == nil {
		return
	}
	if err := s.hub.Broadcast(websocket.TopicJobs, eventType, job); err != nil {
		s.logger.Warn("Failed to broadcast job event", "job_id", job.ID, "error", err)
	}
}

// releaseCollection 释放集合占用
func (s *Service) releaseCollection(collection string) {
	s.mu.Lock()
	delete(s.running, collection)
	s.mu.Unlock()
}

// GetJob 查询任务
func (s *Service) GetJob(id string) (*reconcile.Job, error) {
	job, err := s.jobs.Get(id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, reconcile.ErrJobNotFound
	}
	return job, nil
}

// ListJobs 按开始时间倒序列出任务
func (s *Service) ListJobs(limit int) ([]*reconcile.Job, error) {
	return s.jobs.List(limit)
}

// Cancel 请求取消任务
// 协作式取消：只在批次之间生效，已结束的任务拒绝取消
func (s *Service) Cancel(id string) error {
	s.mu.Lock()
	for _, handle := range s.running {
		if handle.jobID == id {
			handle.requestCancel()
			s.mu.Unlock()
			return nil
		}
	}
	s.mu.Unlock()

	job, err := s.jobs.Get(id)
	if err != nil {
		return err
	}
	if job == nil {
		return reconcile.ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return reconcile.ErrJobAlreadyFinished
	}

	// 重启前遗留的 running 记录，直接落取消终态
	job.MarkCancelled()
	return s.jobs.Save(job)
}

// RecoverInterrupted 启动时把崩溃遗留的 running 任务标记为 failed
func (s *Service) RecoverInterrupted() (int, error) {
	return s.jobs.MarkInterrupted("interrupted by restart")
}
