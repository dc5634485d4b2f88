package document

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docbridge/backend/internal/domain/document"
	"github.com/docbridge/backend/internal/infrastructure/log"
)

// Coordinator 双存储文档协调器
// 关系库是文档存在性的权威来源，向量库是可降级的派生索引：
// 写入以关系库成败为准，向量库失败只记录日志，绝不推翻主路径
type Coordinator struct {
	repo    document.Repository
	vectors document.VectorStore
	logger  *slog.Logger
}

// NewCoordinator 创建文档协调器
func NewCoordinator(repo document.Repository, vectors document.VectorStore) *Coordinator {
	return &Coordinator{
		repo:    repo,
		vectors: vectors,
		logger:  log.NewModuleLogger("document", "coordinator"),
	}
}

// AddResult 新增文档的结果
type AddResult struct {
	// ID 文档 ID
	ID string `json:"id"`
	// Vectorized 是否写入了向量库
	Vectorized bool `json:"vectorized"`
	// VectorDetail 向量库写入失败时的详情
	VectorDetail string `json:"vector_detail,omitempty"`
}

// Add 新增文档
// 先写关系库（操作成败以此为准）；文档符合向量化条件时再写向量库，
// 向量库失败降级为部分成功
func (c *Coordinator) Add(ctx context.Context, doc *document.Document) (*AddResult, error) {
	if doc.ID == "" {
		return nil, document.ErrIDRequired
	}

	result := c.writeBoth(ctx, doc)
	switch result.outcome {
	case outcomeFatal:
		return nil, fmt.Errorf("failed to add document %s: %s", doc.ID, result.detail)
	case outcomePartial:
		c.logger.Warn("Vector store write failed, document kept in relational store",
			"document_id", doc.ID,
			"detail", result.detail,
		)
		return &AddResult{ID: doc.ID, Vectorized: false, VectorDetail: result.detail}, nil
	default:
		vectorized := document.ShouldVectorize(doc.Content, doc.Metadata)
		return &AddResult{ID: doc.ID, Vectorized: vectorized}, nil
	}
}

// writeBoth 按先关系库后向量库的顺序写入
func (c *Coordinator) writeBoth(ctx context.Context, doc *document.Document) storeResult {
	if err := c.repo.Upsert(doc); err != nil {
		return fatal(err)
	}

	// 不符合向量化条件的文档只存在于关系库
	if !document.ShouldVectorize(doc.Content, doc.Metadata) {
		return ok()
	}

	err := c.vectors.Add(ctx,
		[]string{doc.ID},
		[]string{doc.Content},
		[]document.Metadata{doc.Metadata},
	)
	if err != nil {
		return partial(err)
	}

	return ok()
}

// Get 按 ID 读取文档
// 关系库优先；关系库未命中时回退到向量库并从投影重建文档，
// 两边都没有时返回 ErrNotFound
func (c *Coordinator) Get(ctx context.Context, id string) (*document.Document, error) {
	doc, err := c.repo.Get(id)
	if err == nil && doc != nil {
		return doc, nil
	}
	if err != nil {
		c.logger.Warn("Relational store read failed, falling back to vector store",
			"document_id", id,
			"error", err,
		)
	}

	rows, vecErr := c.vectors.GetByIDs(ctx, []string{id})
	if vecErr != nil {
		c.logger.Warn("Vector store read failed", "document_id", id, "error", vecErr)
	}
	if len(rows) > 0 {
		row := rows[0]
		return &document.Document{
			ID:       row.ID,
			Content:  row.Content,
			Metadata: row.Metadata,
		}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return nil, document.ErrNotFound
}

// UpdateRequest 部分更新请求
// Content 为 nil 表示不修改正文，Metadata 逐键合并
type UpdateRequest struct {
	Content  *string           `json:"content,omitempty"`
	Metadata document.Metadata `json:"metadata,omitempty"`
}

// Update 部分更新文档
// 元数据逐键写入关系库；正文变更时向量库执行删除后重插，
// 投影的元数据以当前合并视图为基础，避免丢失未更新的字段
func (c *Coordinator) Update(ctx context.Context, id string, req *UpdateRequest) error {
	doc, err := c.repo.Get(id)
	if err != nil {
		return fmt.Errorf("failed to get document %s: %w", id, err)
	}
	if doc == nil {
		return document.ErrNotFound
	}

	contentChanged := req.Content != nil && *req.Content != doc.Content

	// 逐键合并元数据，正文按需覆盖
	doc.Metadata = doc.Metadata.Merge(req.Metadata)
	if req.Content != nil {
		doc.Content = *req.Content
	}
	doc.Touch()

	if err := c.repo.Upsert(doc); err != nil {
		return fmt.Errorf("failed to update document %s: %w", id, err)
	}

	if !contentChanged {
		return nil
	}

	// 正文变更：向量库不支持部分更新，删除后按新内容重插
	// 先取现有投影的元数据，与关系库视图合并后作为新投影的元数据
	merged := doc.Metadata
	if rows, err := c.vectors.GetByIDs(ctx, []string{id}); err == nil && len(rows) > 0 {
		merged = rows[0].Metadata.Merge(doc.Metadata)
	}

	if err := c.vectors.Delete(ctx, []string{id}); err != nil {
		c.logger.Warn("Vector store delete failed during update",
			"document_id", id,
			"error", err,
		)
	}

	if !document.ShouldVectorize(doc.Content, merged) {
		return nil
	}

	err = c.vectors.Add(ctx,
		[]string{id},
		[]string{doc.Content},
		[]document.Metadata{merged},
	)
	if err != nil {
		c.logger.Warn("Vector store reinsert failed during update",
			"document_id", id,
			"error", err,
		)
	}

	return nil
}

// DeleteResult 删除结果
type DeleteResult struct {
	// RelationalDeleted 关系库是否删除了记录
	RelationalDeleted bool `json:"relational_deleted"`
	// VectorDeleted 向量库删除是否成功
	VectorDeleted bool `json:"vector_deleted"`
}

// Delete 删除文档
// 两个存储独立删除，至少一边成功即整体成功；
// 只删关系库也可接受，残留的向量记录由一致性引擎清理
func (c *Coordinator) Delete(ctx context.Context, id string) (*DeleteResult, error) {
	result := &DeleteResult{}

	relationalDeleted, relErr := c.repo.Delete(id)
	if relErr != nil {
		c.logger.Warn("Relational store delete failed", "document_id", id, "error", relErr)
	}
	result.RelationalDeleted = relErr == nil && relationalDeleted

	vecErr := c.vectors.Delete(ctx, []string{id})
	if vecErr != nil {
		c.logger.Warn("Vector store delete failed", "document_id", id, "error", vecErr)
	}
	result.VectorDeleted = vecErr == nil

	if relErr != nil && vecErr != nil {
		return nil, document.ErrBothStoresFailed
	}

	return result, nil
}

// SearchSimilar 相似度搜索
// 委托向量库执行；向量库不可用时返回空列表而非错误
func (c *Coordinator) SearchSimilar(ctx context.Context, query string, limit int, filter document.Metadata) []document.ScoredRow {
	if limit <= 0 {
		limit = 10
	}

	results, err := c.vectors.Query(ctx, query, limit, filter)
	if err != nil {
		c.logger.Warn("Vector store query failed, returning empty results",
			"query_length", len(query),
			"error", err,
		)
		return []document.ScoredRow{}
	}
	if results == nil {
		return []document.ScoredRow{}
	}

	return results
}

// ListAllIDs 列出全部文档 ID
// 始终以关系库为准；关系库失败时降级为枚举向量库，永不返回 nil
func (c *Coordinator) ListAllIDs(ctx context.Context) []string {
	ids, err := c.repo.ListIDs()
	if err == nil {
		if ids == nil {
			return []string{}
		}
		return ids
	}

	c.logger.Warn("Relational store list failed, falling back to vector store", "error", err)

	vectorIDs, vecErr := c.vectors.ListIDs(ctx)
	if vecErr != nil || vectorIDs == nil {
		if vecErr != nil {
			c.logger.Warn("Vector store list failed", "error", vecErr)
		}
		return []string{}
	}

	return vectorIDs
}

// List 分页列出文档，以关系库为准
func (c *Coordinator) List(limit, offset int) ([]*document.Document, int, error) {
	docs, err := c.repo.List(limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}
	total, err := c.repo.Count()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}
	if docs == nil {
		docs = []*document.Document{}
	}
	return docs, total, nil
}

// Statistics 双存储统计信息
type Statistics struct {
	RelationalCount int      `json:"relational_count"`
	VectorCount     int      `json:"vector_count"`
	DocumentsToday  int      `json:"documents_today"`
	Collections     []string `json:"collections"`
}

// GetStatistics 读取双存储统计信息
// 单边失败按 0 计，不阻塞另一边
func (c *Coordinator) GetStatistics(ctx context.Context) *Statistics {
	stats := &Statistics{Collections: []string{}}

	if count, err := c.repo.Count(); err == nil {
		stats.RelationalCount = count
	} else {
		c.logger.Warn("Failed to count relational store", "error", err)
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if count, err := c.repo.CountCreatedSince(startOfDay); err == nil {
		stats.DocumentsToday = count
	} else {
		c.logger.Warn("Failed to count today's documents", "error", err)
	}

	if count, err := c.vectors.Count(ctx); err == nil {
		stats.VectorCount = count
	} else {
		c.logger.Warn("Failed to count vector store", "error", err)
	}

	if collections, err := c.vectors.ListCollections(ctx); err == nil && collections != nil {
		stats.Collections = collections
	}

	return stats
}

// ResetAll 清空两个存储中的全部文档
// 返回各存储删除的记录数
func (c *Coordinator) ResetAll(ctx context.Context) (relationalDeleted, vectorDeleted int, err error) {
	ids, err := c.repo.ListIDs()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list documents: %w", err)
	}

	for _, id := range ids {
		deleted, err := c.repo.Delete(id)
		if err != nil {
			c.logger.Warn("Failed to delete document during reset", "document_id", id, "error", err)
			continue
		}
		if deleted {
			relationalDeleted++
		}
	}

	vectorIDs, vecErr := c.vectors.ListIDs(ctx)
	if vecErr != nil {
		c.logger.Warn("Failed to list vector store during reset", "error", vecErr)
		return relationalDeleted, 0, nil
	}

	if len(vectorIDs) > 0 {
		if err := c.vectors.Delete(ctx, vectorIDs); err != nil {
			c.logger.Warn("Failed to clear vector store during reset", "error", err)
			return relationalDeleted, 0, nil
		}
		vectorDeleted = len(vectorIDs)
	}

	return relationalDeleted, vectorDeleted, nil
}
