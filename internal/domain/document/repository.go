package document

import (
	"context"
	"time"
)

// Repository 关系元数据库仓储接口
// 文档存在性的权威来源
type Repository interface {
	// Upsert 写入或覆盖文档
	Upsert(doc *Document) error
	// Get 按 ID 读取，不存在时返回 (nil, nil)
	Get(id string) (*Document, error)
	// Delete 按 ID 删除，返回是否实际删除了记录
	Delete(id string) (bool, error)
	// List 分页列出文档，limit <= 0 表示不限制
	List(limit, offset int) ([]*Document, error)
	// ListIDs 列出全部文档 ID
	ListIDs() ([]string, error)
	// Count 文档总数
	Count() (int, error)
	// CountCreatedSince 统计 created_at 不早于给定时刻的文档数
	CountCreatedSince(since time.Time) (int, error)
}

// VectorRow 向量库中的一条文档记录
type VectorRow struct {
	ID       string
	Content  string
	Metadata Metadata
}

// ScoredRow 相似度查询结果
type ScoredRow struct {
	VectorRow
	// Score 相似度得分 max(0, 1 - cosine_distance)，降序排列
	Score float32
}

// VectorStore 向量库接口
// 派生索引，绝不作为文档存在性的依据；实现负责自身的超时与快速失败
type VectorStore interface {
	// EnsureCollection 确保集合存在
	EnsureCollection(ctx context.Context, name string) error
	// Add 批量写入文档投影
	Add(ctx context.Context, ids []string, texts []string, metadatas []Metadata) error
	// GetByIDs 按 ID 批量读取
	GetByIDs(ctx context.Context, ids []string) ([]VectorRow, error)
	// Query 按文本相似度查询
	Query(ctx context.Context, text string, limit int, filter Metadata) ([]ScoredRow, error)
	// Delete 批量删除
	Delete(ctx context.Context, ids []string) error
	// Count 集合内记录数
	Count(ctx context.Context) (int, error)
	// ListIDs 列出集合内全部 ID
	ListIDs(ctx context.Context) ([]string, error)
	// ListCollections 列出全部集合名
	ListCollections(ctx context.Context) ([]string, error)
	// ListSourcePaths 列出集合内记录的 source_path -> 文档 ID 映射
	ListSourcePaths(ctx context.Context) (map[string]string, error)
}
