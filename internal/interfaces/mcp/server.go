package mcp

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	appdocument "github.com/docbridge/backend/internal/application/document"
)

// MCPServer MCP 服务器
// 把文档检索能力以 MCP 工具的形式暴露给 AI 客户端
type MCPServer struct {
	server      *mcp.Server
	handler     http.Handler
	coordinator *appdocument.Coordinator
	engine      *appdocument.ConsistencyEngine
}

// NewServer 创建 MCP 服务器
func NewServer(
	coordinator *appdocument.Coordinator,
	engine *appdocument.ConsistencyEngine,
) *MCPServer {
	// 创建 MCP 服务器实例
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "docbridge",
			Version: "0.1.0",
		},
		nil, // 使用默认能力
	)

	mcpServer := &MCPServer{
		server:      server,
		coordinator: coordinator,
		engine:      engine,
	}

	// 注册工具：search_documents
	mcp.AddTool(server, &mcp.Tool{
		Name: "search_documents",
		Description: `Search stored documents by semantic similarity.

Use this tool to find documents relevant to a topic, question, or piece of text.

Parameters:
- query (string, required): Natural language description of what you're looking for.
- limit (int, optional): Maximum number of results to return (1-20, default: 5).
- filter (object, optional): Metadata key-value pairs to filter by, e.g. {"file_type": "pdf"}.

Returns: List of matching documents with id, content snippet, metadata, and similarity score.`,
	}, mcpServer.searchDocumentsTool)

	// 注册工具：get_document
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_document",
		Description: "Fetch a single document by its id, including full content and metadata. Parameters: document_id (string, required). Returns: the document, or an error if it does not exist in either store.",
	}, mcpServer.getDocumentTool)

	// 注册工具：get_store_status
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_store_status",
		Description: "Get the current status of the document stores: document counts in the relational and vector stores, drift between them, and overall health. No parameters required.",
	}, mcpServer.getStoreStatusTool)

	// 创建 SSE Handler
	handler := mcp.NewSSEHandler(
		func(r *http.Request) *mcp.Server {
			// 每个请求返回同一个服务器实例
			return server
		},
		nil, // SSEOptions，使用默认值
	)

	mcpServer.handler = handler
	return mcpServer
}

// GetHandler 获取 HTTP Handler（用于集成到 HTTP 服务器）
func (s *MCPServer) GetHandler() http.Handler {
	return s.handler
}
