package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/docbridge/backend/internal/domain/document"
	"github.com/docbridge/backend/internal/infrastructure/config"
	"github.com/docbridge/backend/internal/infrastructure/embedding"
	"github.com/docbridge/backend/internal/infrastructure/log"
)

// payload 固定键
const (
	payloadDocumentID = "document_id"
	payloadContent    = "content"
	payloadMetadata   = "metadata_json"
)

// scrollPageSize 遍历集合时的单页大小
const scrollPageSize = 256

// Store 基于 Qdrant 的向量库实现
// 文档 ID 映射为确定性 UUID 作为点 ID，原始 ID 保存在 payload 中
type Store struct {
	manager    *QdrantManager
	embedder   *embedding.Client
	collection string
	logger     *slog.Logger
}

var _ document.VectorStore = (*Store)(nil)

// NewStore 创建向量库实例
func NewStore(manager *QdrantManager, embedder *embedding.Client, cfg *config.VectorConfig) *Store {
	return &Store{
		manager:    manager,
		embedder:   embedder,
		collection: cfg.CollectionName,
		logger:     log.NewModuleLogger("vector", "store"),
	}
}

// PointID 将文档 ID 映射为确定性 UUID 点 ID
func PointID(documentID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(documentID)).String()
}

// EnsureCollection 确保集合存在
func (s *Store) EnsureCollection(ctx context.Context, name string) error {
	return s.manager.EnsureCollection(ctx, name)
}

// Add 批量写入文档投影
func (s *Store) Add(ctx context.Context, ids []string, texts []string, metadatas []document.Metadata) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(texts) || len(ids) != len(metadatas) {
		return document.ErrBatchLengthMismatch
	}

	client := s.manager.GetClient()
	if client == nil {
		return fmt.Errorf("qdrant client not initialized")
	}

	// 向量化文本
	vectors, err := s.embedder.EmbedTexts(texts)
	if err != nil {
		return fmt.Errorf("failed to embed texts: %w", err)
	}
	if len(vectors) != len(ids) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(ids), len(vectors))
	}

	points := make([]*qdrant.PointStruct, len(ids))
	for i, id := range ids {
		payload, err := buildPayload(id, texts[i], metadatas[i])
		if err != nil {
			return fmt.Errorf("failed to build payload for %s: %w", id, err)
		}

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(id)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	_, err = client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

// GetByIDs 按文档 ID 批量读取
func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]document.VectorRow, error) {
	if len(ids) == 0 {
		return []document.VectorRow{}, nil
	}

	client := s.manager.GetClient()
	if client == nil {
		return nil, fmt.Errorf("qdrant client not initialized")
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(PointID(id))
	}

	ctx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	points, err := client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get points: %w", err)
	}

	rows := make([]document.VectorRow, 0, len(points))
	for _, point := range points {
		row, err := rowFromPayload(point.GetPayload())
		if err != nil {
			s.logger.Warn("Skipping malformed point payload", "error", err)
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// Query 按文本相似度查询
// 返回得分 max(0, 1 - cosine_distance)，降序排列，空结果返回空切片
func (s *Store) Query(ctx context.Context, text string, limit int, filter document.Metadata) ([]document.ScoredRow, error) {
	client := s.manager.GetClient()
	if client == nil {
		return nil, fmt.Errorf("qdrant client not initialized")
	}

	vectors, err := s.embedder.EmbedTexts([]string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("invalid embedding result")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	queryLimit := uint64(limit)
	hits, err := client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vectors[0]...),
		Limit:          &queryLimit,
		Filter:         buildMetadataFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}

	results := make([]document.ScoredRow, 0, len(hits))
	for _, hit := range hits {
		row, err := rowFromPayload(hit.GetPayload())
		if err != nil {
			s.logger.Warn("Skipping malformed hit payload", "error", err)
			continue
		}

		score := hit.GetScore()
		if score < 0 {
			score = 0
		}

		results = append(results, document.ScoredRow{
			VectorRow: row,
			Score:     score,
		})
	}

	return results, nil
}

// Delete 按文档 ID 批量删除
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	client := s.manager.GetClient()
	if client == nil {
		return fmt.Errorf("qdrant client not initialized")
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(PointID(id))
	}

	ctx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	_, err := client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}

	return nil
}

// Count 集合内记录数
func (s *Store) Count(ctx context.Context) (int, error) {
	client := s.manager.GetClient()
	if client == nil {
		return 0, fmt.Errorf("qdrant client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	count, err := client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}

	return int(count), nil
}

// ListIDs 列出集合内全部文档 ID
func (s *Store) ListIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0)
	err := s.scrollAll(ctx, []string{payloadDocumentID}, func(payload map[string]*qdrant.Value) {
		if id := payloadString(payload, payloadDocumentID); id != "" {
			ids = append(ids, id)
		}
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListCollections 列出全部集合名
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	client := s.manager.GetClient()
	if client == nil {
		return nil, fmt.Errorf("qdrant client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	collections, err := client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	return collections, nil
}

// ListSourcePaths 列出集合内记录的 source_path -> 文档 ID 映射
func (s *Store) ListSourcePaths(ctx context.Context) (map[string]string, error) {
	paths := make(map[string]string)
	err := s.scrollAll(ctx, []string{payloadDocumentID, document.MetaKeySourcePath}, func(payload map[string]*qdrant.Value) {
		id := payloadString(payload, payloadDocumentID)
		path := payloadString(payload, document.MetaKeySourcePath)
		if id != "" && path != "" {
			paths[path] = id
		}
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// scrollAll 分页遍历集合内全部点
// Offset 指向页首点（含），翻页时跳过与上页页尾重复的首个点
func (s *Store) scrollAll(ctx context.Context, fields []string, visit func(payload map[string]*qdrant.Value)) error {
	client := s.manager.GetClient()
	if client == nil {
		return fmt.Errorf("qdrant client not initialized")
	}

	var offset *qdrant.PointId
	for {
		pageCtx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
		points, err := client.Scroll(pageCtx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude(fields...),
		})
		cancel()
		if err != nil {
			return fmt.Errorf("failed to scroll points: %w", err)
		}

		start := 0
		if offset != nil && len(points) > 0 {
			start = 1
		}

		for _, point := range points[start:] {
			visit(point.GetPayload())
		}

		if len(points) < scrollPageSize {
			return nil
		}
		offset = points[len(points)-1].GetId()
	}
}

// buildPayload 构建点 payload
// 元数据按原生类型平铺用于过滤，完整 JSON 另存一份用于无损重建
func buildPayload(documentID, content string, metadata document.Metadata) (map[string]interface{}, error) {
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	payload := map[string]interface{}{
		payloadDocumentID: documentID,
		payloadContent:    sanitizeUTF8(content),
		payloadMetadata:   sanitizeUTF8(string(metadataJSON)),
	}

	for key, value := range metadata {
		switch value.Kind {
		case document.KindString:
			payload[key] = sanitizeUTF8(value.Str)
		case document.KindInt:
			payload[key] = value.Int
		case document.KindFloat:
			payload[key] = value.Flt
		case document.KindBool:
			payload[key] = value.Bool
		case document.KindJSON:
			payload[key] = sanitizeUTF8(string(value.Raw))
		}
	}

	return payload, nil
}

// rowFromPayload 从点 payload 还原文档记录
func rowFromPayload(payload map[string]*qdrant.Value) (document.VectorRow, error) {
	if payload == nil {
		return document.VectorRow{}, fmt.Errorf("empty payload")
	}

	row := document.VectorRow{
		ID:      payloadString(payload, payloadDocumentID),
		Content: payloadString(payload, payloadContent),
	}
	if row.ID == "" {
		return document.VectorRow{}, fmt.Errorf("payload missing document id")
	}

	metadataJSON := payloadString(payload, payloadMetadata)
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &row.Metadata); err != nil {
			return document.VectorRow{}, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	} else {
		row.Metadata = document.NewMetadata()
	}

	return row, nil
}

// buildMetadataFilter 构建元数据过滤条件，全部键按 AND 组合
func buildMetadataFilter(filter document.Metadata) *qdrant.Filter {
	if len(filter) == 0 {
		return nil
	}

	conditions := make([]*qdrant.Condition, 0, len(filter))
	for key, value := range filter {
		switch value.Kind {
		case document.KindInt:
			conditions = append(conditions, qdrant.NewMatchInt(key, value.Int))
		case document.KindBool:
			conditions = append(conditions, qdrant.NewMatchBool(key, value.Bool))
		default:
			conditions = append(conditions, qdrant.NewMatch(key, value.AsString()))
		}
	}

	return &qdrant.Filter{Must: conditions}
}

// payloadString 从 payload 提取字符串值
func payloadString(payload map[string]*qdrant.Value, key string) string {
	val, ok := payload[key]
	if !ok || val == nil {
		return ""
	}
	return val.GetStringValue()
}

// sanitizeUTF8 清理字符串中的无效 UTF-8 字符
// Qdrant 客户端要求所有字符串必须是有效的 UTF-8
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}
