package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/docbridge/backend/internal/domain/document"
)

// documentRepository 文档 SQLite 仓储实现
type documentRepository struct {
	db *sql.DB
}

var _ document.Repository = (*documentRepository)(nil)

// NewDocumentRepository 创建文档仓储实例
func NewDocumentRepository(db *sql.DB) document.Repository {
	return &documentRepository{db: db}
}

// Upsert 写入或覆盖文档
func (r *documentRepository) Upsert(doc *document.Document) error {
	if doc.ID == "" {
		return document.ErrIDRequired
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	createdAt := doc.Metadata.GetString(document.MetaKeyCreatedAt)
	updatedAt := doc.Metadata.GetString(document.MetaKeyUpdatedAt)

	query := `
	INSERT INTO documents (id, content, metadata, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		content = excluded.content,
		metadata = excluded.metadata,
		updated_at = excluded.updated_at`

	if _, err := r.db.Exec(query, doc.ID, doc.Content, string(metadataJSON), createdAt, updatedAt); err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	return nil
}

// Get 按 ID 读取文档，不存在时返回 (nil, nil)
func (r *documentRepository) Get(id string) (*document.Document, error) {
	query := `SELECT id, content, metadata FROM documents WHERE id = ?`

	var doc document.Document
	var metadataJSON string

	err := r.db.QueryRow(query, id).Scan(&doc.ID, &doc.Content, &metadataJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return &doc, nil
}

// Delete 按 ID 删除文档，返回是否实际删除了记录
func (r *documentRepository) Delete(id string) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete document: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

// List 分页列出文档，limit <= 0 表示不限制
func (r *documentRepository) List(limit, offset int) ([]*document.Document, error) {
	query := `SELECT id, content, metadata FROM documents ORDER BY created_at DESC`
	args := []interface{}{}

	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*document.Document, 0)
	for rows.Next() {
		var doc document.Document
		var metadataJSON string

		if err := rows.Scan(&doc.ID, &doc.Content, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}

		docs = append(docs, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

// ListIDs 列出全部文档 ID
func (r *documentRepository) ListIDs() ([]string, error) {
	rows, err := r.db.Query(`SELECT id FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("failed to query document ids: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan document id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate document ids: %w", err)
	}

	return ids, nil
}

// Count 文档总数
func (r *documentRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// CountCreatedSince 统计 created_at 不早于给定时刻的文档数
// created_at 统一存本进程写入的 RFC3339，同一时区偏移下字典序即时间序
func (r *documentRepository) CountCreatedSince(since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM documents WHERE created_at >= ?`
	if err := r.db.QueryRow(query, since.Format(time.RFC3339)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents by created_at: %w", err)
	}
	return count, nil
}
