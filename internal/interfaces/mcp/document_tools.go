package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docbridge/backend/internal/domain/document"
)

// 搜索结果正文截断长度
const snippetMaxLength = 500

// SearchDocumentsInput 文档搜索工具输入
type SearchDocumentsInput struct {
	Query  string            `json:"query" jsonschema:"Natural language search query (required)"`
	Limit  int               `json:"limit,omitempty" jsonschema:"Maximum number of results, defaults to 5, max 20"`
	Filter map[string]string `json:"filter,omitempty" jsonschema:"Metadata key-value pairs to filter results by"`
}

// SearchDocumentsOutput 文档搜索工具输出
type SearchDocumentsOutput struct {
	Results    []*DocumentSearchResult `json:"results" jsonschema:"List of matching documents"`
	TotalCount int                     `json:"total_count" jsonschema:"Number of results returned"`
}

// DocumentSearchResult 单条搜索结果
type DocumentSearchResult struct {
	ID       string            `json:"id" jsonschema:"Document id"`
	Snippet  string            `json:"snippet" jsonschema:"Content snippet (truncated)"`
	Score    float32           `json:"score" jsonschema:"Similarity score, higher is more relevant"`
	Metadata map[string]string `json:"metadata,omitempty" jsonschema:"Document metadata as strings"`
}

// searchDocumentsTool 文档搜索工具实现
func (s *MCPServer) searchDocumentsTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SearchDocumentsInput,
) (*mcp.CallToolResult, SearchDocumentsOutput, error) {
	output := SearchDocumentsOutput{
		Results: []*DocumentSearchResult{},
	}

	if input.Query == "" {
		return nil, output, fmt.Errorf("query is required")
	}

	// 默认 5 个，最多 20 个，避免上下文过载
	limit := input.Limit
	if limit <= 0 {
		limit = 5
	}
	if limit > 20 {
		limit = 20
	}

	var filter document.Metadata
	if len(input.Filter) > 0 {
		filter = document.NewMetadata()
		for key, value := range input.Filter {
			filter.SetString(key, value)
		}
	}

	rows := s.coordinator.SearchSimilar(ctx, input.Query, limit, filter)
	for _, row := range rows {
		output.Results = append(output.Results, &DocumentSearchResult{
			ID:       row.ID,
			Snippet:  truncate(row.Content, snippetMaxLength),
			Score:    row.Score,
			Metadata: metadataStrings(row.Metadata),
		})
	}
	output.TotalCount = len(output.Results)

	return nil, output, nil
}

// GetDocumentInput 文档读取工具输入
type GetDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"Document id to fetch (required)"`
}

// GetDocumentOutput 文档读取工具输出
type GetDocumentOutput struct {
	ID       string            `json:"id" jsonschema:"Document id"`
	Content  string            `json:"content" jsonschema:"Full document content"`
	Metadata map[string]string `json:"metadata,omitempty" jsonschema:"Document metadata as strings"`
	Found    bool              `json:"found" jsonschema:"Whether the document exists"`
}

// getDocumentTool 文档读取工具实现
func (s *MCPServer) getDocumentTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetDocumentInput,
) (*mcp.CallToolResult, GetDocumentOutput, error) {
	output := GetDocumentOutput{}

	if input.DocumentID == "" {
		return nil, output, fmt.Errorf("document_id is required")
	}

	doc, err := s.coordinator.Get(ctx, input.DocumentID)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return nil, output, nil
		}
		return nil, output, fmt.Errorf("failed to get document: %w", err)
	}

	output.ID = doc.ID
	output.Content = doc.Content
	output.Metadata = metadataStrings(doc.Metadata)
	output.Found = true
	return nil, output, nil
}

// StoreStatusInput 存储状态工具输入（空输入）
type StoreStatusInput struct{}

// StoreStatusOutput 存储状态工具输出
type StoreStatusOutput struct {
	RelationalCount int     `json:"relational_count" jsonschema:"Documents in the relational store"`
	VectorCount     int     `json:"vector_count" jsonschema:"Documents in the vector store"`
	DriftStatus     string  `json:"drift_status" jsonschema:"synchronized / minor_drift / out_of_sync"`
	Coverage        float64 `json:"coverage" jsonschema:"Vector store coverage percentage"`
	Healthy         bool    `json:"healthy" jsonschema:"Whether both stores are reachable"`
}

// getStoreStatusTool 存储状态工具实现
func (s *MCPServer) getStoreStatusTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input StoreStatusInput,
) (*mcp.CallToolResult, StoreStatusOutput, error) {
	output := StoreStatusOutput{}

	health := s.engine.HealthCheck(ctx)
	output.Healthy = health.Overall

	drift, err := s.engine.ComputeDrift(ctx)
	if err != nil {
		return nil, output, fmt.Errorf("failed to compute drift: %w", err)
	}

	output.RelationalCount = drift.RelationalCount
	output.VectorCount = drift.VectorCount
	output.DriftStatus = drift.Status
	output.Coverage = drift.Coverage
	return nil, output, nil
}

// truncate 按字节截断并保持 UTF-8 合法
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// metadataStrings 把元数据降级为字符串映射，便于 AI 消费
func metadataStrings(m document.Metadata) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for key, value := range m {
		out[key] = value.AsString()
	}
	return out
}
