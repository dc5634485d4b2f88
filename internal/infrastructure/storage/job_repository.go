package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/docbridge/backend/internal/domain/reconcile"
)

// jobRepository 对账任务 SQLite 仓储实现
type jobRepository struct {
	db *sql.DB
}

var _ reconcile.JobRepository = (*jobRepository)(nil)

// NewJobRepository 创建对账任务仓储实例
func NewJobRepository(db *sql.DB) reconcile.JobRepository {
	return &jobRepository{db: db}
}

// Save 写入或覆盖任务记录
func (r *jobRepository) Save(job *reconcile.Job) error {
	if job.ID == "" {
		return reconcile.ErrJobNotFound
	}

	var endTime sql.NullString
	if job.EndTime != nil {
		endTime = sql.NullString{String: job.EndTime.UTC().Format(time.RFC3339), Valid: true}
	}

	var errorDetails sql.NullString
	if len(job.ErrorDetails) > 0 {
		detailsJSON, err := json.Marshal(job.ErrorDetails)
		if err != nil {
			return fmt.Errorf("failed to marshal error details: %w", err)
		}
		errorDetails = sql.NullString{String: string(detailsJSON), Valid: true}
	}

	deleteMissing := 0
	if job.DeleteMissing {
		deleteMissing = 1
	}

	query := `
	INSERT INTO reconciliation_jobs (
		id, status, start_time, end_time,
		total_files, processed_files, added_files, updated_files, removed_files, errors,
		error_details, collection_name, delete_missing, batch_size
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		status = excluded.status,
		end_time = excluded.end_time,
		total_files = excluded.total_files,
		processed_files = excluded.processed_files,
		added_files = excluded.added_files,
		updated_files = excluded.updated_files,
		removed_files = excluded.removed_files,
		errors = excluded.errors,
		error_details = excluded.error_details`

	_, err := r.db.Exec(query,
		job.ID,
		string(job.Status),
		job.StartTime.UTC().Format(time.RFC3339),
		endTime,
		job.Counters.TotalFiles,
		job.Counters.ProcessedFiles,
		job.Counters.AddedFiles,
		job.Counters.UpdatedFiles,
		job.Counters.RemovedFiles,
		job.Counters.Errors,
		errorDetails,
		job.CollectionName,
		deleteMissing,
		job.BatchSize,
	)
	if err != nil {
		return fmt.Errorf("failed to save reconciliation job: %w", err)
	}

	return nil
}

// Get 按 ID 读取任务，不存在时返回 (nil, nil)
func (r *jobRepository) Get(id string) (*reconcile.Job, error) {
	query := jobSelectColumns + ` WHERE id = ?`

	rows, err := r.db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query reconciliation job: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to query reconciliation job: %w", err)
		}
		return nil, nil
	}

	return scanJob(rows)
}

// List 按开始时间倒序列出任务
func (r *jobRepository) List(limit int) ([]*reconcile.Job, error) {
	query := jobSelectColumns + ` ORDER BY start_time DESC`
	args := []interface{}{}

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reconciliation jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*reconcile.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reconciliation jobs: %w", err)
	}

	return jobs, nil
}

// MarkInterrupted 将所有仍处于 running 状态的任务标记为 failed
func (r *jobRepository) MarkInterrupted(reason string) (int, error) {
	detailsJSON, err := json.Marshal([]string{reason})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal interrupt reason: %w", err)
	}

	query := `
	UPDATE reconciliation_jobs
	SET status = ?, end_time = ?, error_details = ?
	WHERE status = ?`

	result, err := r.db.Exec(query,
		string(reconcile.StatusFailed),
		time.Now().UTC().Format(time.RFC3339),
		string(detailsJSON),
		string(reconcile.StatusRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark interrupted jobs: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return int(rows), nil
}

// jobSelectColumns 任务查询列
const jobSelectColumns = `
	SELECT id, status, start_time, end_time,
		total_files, processed_files, added_files, updated_files, removed_files, errors,
		error_details, collection_name, delete_missing, batch_size
	FROM reconciliation_jobs`

// scanJob 从结果集扫描一条任务记录
func scanJob(rows *sql.Rows) (*reconcile.Job, error) {
	var job reconcile.Job
	var status, startTime string
	var endTime, errorDetails sql.NullString
	var deleteMissing int

	err := rows.Scan(
		&job.ID,
		&status,
		&startTime,
		&endTime,
		&job.Counters.TotalFiles,
		&job.Counters.ProcessedFiles,
		&job.Counters.AddedFiles,
		&job.Counters.UpdatedFiles,
		&job.Counters.RemovedFiles,
		&job.Counters.Errors,
		&errorDetails,
		&job.CollectionName,
		&deleteMissing,
		&job.BatchSize,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan reconciliation job: %w", err)
	}

	job.Status = reconcile.JobStatus(status)
	job.DeleteMissing = deleteMissing != 0

	if t, err := time.Parse(time.RFC3339, startTime); err == nil {
		job.StartTime = t
	}
	if endTime.Valid {
		if t, err := time.Parse(time.RFC3339, endTime.String); err == nil {
			job.EndTime = &t
		}
	}
	if errorDetails.Valid && errorDetails.String != "" {
		if err := json.Unmarshal([]byte(errorDetails.String), &job.ErrorDetails); err != nil {
			return nil, fmt.Errorf("failed to unmarshal error details: %w", err)
		}
	}

	return &job, nil
}
