package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/docbridge/backend/internal/domain/dedup"
)

// hashRepository 文件哈希台账 SQLite 仓储实现
type hashRepository struct {
	db *sql.DB
}

var _ dedup.Ledger = (*hashRepository)(nil)

// NewHashRepository 创建哈希台账仓储实例
func NewHashRepository(db *sql.DB) dedup.Ledger {
	return &hashRepository{db: db}
}

// FindExact 按 (hash, client_id, original_path) 精确查找
func (r *hashRepository) FindExact(hash, clientID, originalPath string) (*dedup.HashRecord, error) {
	if hash == "" {
		return nil, dedup.ErrHashRequired
	}
	if clientID == "" {
		clientID = dedup.DefaultClientID
	}

	query := `
	SELECT file_hash, file_name, document_id, upload_time, client_id, original_path
	FROM file_hashes
	WHERE file_hash = ? AND client_id = ? AND original_path = ?`

	return r.scanOne(r.db.QueryRow(query, hash, clientID, originalPath))
}

// FindByHash 按 hash 查找任意一条记录
func (r *hashRepository) FindByHash(hash string) (*dedup.HashRecord, error) {
	if hash == "" {
		return nil, dedup.ErrHashRequired
	}

	query := `
	SELECT file_hash, file_name, document_id, upload_time, client_id, original_path
	FROM file_hashes
	WHERE file_hash = ?
	ORDER BY upload_time DESC
	LIMIT 1`

	return r.scanOne(r.db.QueryRow(query, hash))
}

// Save 保存哈希记录，三元组已存在时返回 (false, nil)
func (r *hashRepository) Save(record *dedup.HashRecord) (bool, error) {
	if record.FileHash == "" {
		return false, dedup.ErrHashRequired
	}
	if record.DocumentID == "" {
		return false, dedup.ErrDocumentIDRequired
	}
	if record.ClientID == "" {
		record.ClientID = dedup.DefaultClientID
	}

	// 三元组已存在时直接跳过
	existing, err := r.FindExact(record.FileHash, record.ClientID, record.OriginalPath)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	uploadTime := record.UploadTime
	if uploadTime.IsZero() {
		uploadTime = time.Now()
	}

	query := `
	INSERT INTO file_hashes (file_hash, file_name, document_id, upload_time, client_id, original_path)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err = r.db.Exec(query,
		record.FileHash,
		record.FileName,
		record.DocumentID,
		uploadTime.UTC().Format(time.RFC3339),
		record.ClientID,
		record.OriginalPath,
	)
	if err != nil {
		return false, fmt.Errorf("failed to save hash record: %w", err)
	}

	return true, nil
}

// Delete 按 hash 删除记录，返回是否实际删除了记录
func (r *hashRepository) Delete(hash string) (bool, error) {
	if hash == "" {
		return false, dedup.ErrHashRequired
	}

	result, err := r.db.Exec(`DELETE FROM file_hashes WHERE file_hash = ?`, hash)
	if err != nil {
		return false, fmt.Errorf("failed to delete hash record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

// ListAll 按上传时间倒序列出全部记录
func (r *hashRepository) ListAll() ([]*dedup.HashRecord, error) {
	query := `
	SELECT file_hash, file_name, document_id, upload_time, client_id, original_path
	FROM file_hashes
	ORDER BY upload_time DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query hash records: %w", err)
	}
	defer rows.Close()

	records := make([]*dedup.HashRecord, 0)
	for rows.Next() {
		record, err := scanHashRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate hash records: %w", err)
	}

	return records, nil
}

// scanOne 扫描单条记录，不存在时返回 (nil, nil)
func (r *hashRepository) scanOne(row *sql.Row) (*dedup.HashRecord, error) {
	var record dedup.HashRecord
	var uploadTime string

	err := row.Scan(
		&record.FileHash,
		&record.FileName,
		&record.DocumentID,
		&uploadTime,
		&record.ClientID,
		&record.OriginalPath,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan hash record: %w", err)
	}

	record.UploadTime = parseUploadTime(uploadTime)
	return &record, nil
}

// scanHashRecord 从结果集扫描一条记录
func scanHashRecord(rows *sql.Rows) (*dedup.HashRecord, error) {
	var record dedup.HashRecord
	var uploadTime string

	err := rows.Scan(
		&record.FileHash,
		&record.FileName,
		&record.DocumentID,
		&uploadTime,
		&record.ClientID,
		&record.OriginalPath,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan hash record: %w", err)
	}

	record.UploadTime = parseUploadTime(uploadTime)
	return &record, nil
}

// parseUploadTime 解析上传时间，兼容 RFC3339 与 SQLite 默认时间格式
func parseUploadTime(value string) time.Time {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
		return t
	}
	return time.Time{}
}
