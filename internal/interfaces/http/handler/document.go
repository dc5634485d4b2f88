package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appdocument "github.com/docbridge/backend/internal/application/document"
	"github.com/docbridge/backend/internal/domain/document"
	"github.com/docbridge/backend/internal/interfaces/http/response"
)

// DocumentHandler 文档处理器
type DocumentHandler struct {
	coordinator *appdocument.Coordinator
}

// NewDocumentHandler 创建文档处理器
func NewDocumentHandler(coordinator *appdocument.Coordinator) *DocumentHandler {
	return &DocumentHandler{coordinator: coordinator}
}

// createDocumentRequest 新增文档请求
type createDocumentRequest struct {
	ID       string            `json:"id"`
	Content  string            `json:"content" binding:"required"`
	Metadata document.Metadata `json:"metadata"`
}

// Create 新增文档
// POST /api/v1/documents
func (h *DocumentHandler) Create(c *gin.Context) {
	var req createDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 400, "invalid request: "+err.Error())
		return
	}

	// 未指定 ID 时自动生成
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	doc := document.NewDocument(req.ID, req.Content, req.Metadata)
	result, err := h.coordinator.Add(c.Request.Context(), doc)
	if err != nil {
		if errors.Is(err, document.ErrIDRequired) {
			response.Error(c, http.StatusBadRequest, 400, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, 500, "failed to add document: "+err.Error())
		return
	}

	response.Success(c, result)
}

// Get 按 ID 读取文档
// GET /api/v1/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	id := c.Param("id")

	doc, err := h.coordinator.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			response.Error(c, http.StatusNotFound, 404, "document not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, 500, "failed to get document: "+err.Error())
		return
	}

	response.Success(c, doc)
}

// List 分页列出文档
// GET /api/v1/documents?page=1&pageSize=20
func (h *DocumentHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}

	docs, total, err := h.coordinator.List(pageSize, (page-1)*pageSize)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500, "failed to list documents: "+err.Error())
		return
	}

	response.SuccessWithPage(c, docs, page, pageSize, total)
}

// Update 部分更新文档
// PUT /api/v1/documents/:id
func (h *DocumentHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req appdocument.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 400, "invalid request: "+err.Error())
		return
	}

	if err := h.coordinator.Update(c.Request.Context(), id, &req); err != nil {
		if errors.Is(err, document.ErrNotFound) {
			response.Error(c, http.StatusNotFound, 404, "document not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, 500, "failed to update document: "+err.Error())
		return
	}

	response.Success(c, gin.H{"id": id})
}

// Delete 删除文档
// DELETE /api/v1/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	result, err := h.coordinator.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500, "failed to delete document: "+err.Error())
		return
	}

	response.Success(c, result)
}

// searchRequest 相似度搜索请求
type searchRequest struct {
	Query  string            `json:"query" binding:"required"`
	Limit  int               `json:"limit"`
	Filter document.Metadata `json:"filter"`
}

// Search 相似度搜索
// POST /api/v1/documents/search
func (h *DocumentHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 400, "invalid request: "+err.Error())
		return
	}

	results := h.coordinator.SearchSimilar(c.Request.Context(), req.Query, req.Limit, req.Filter)
	response.Success(c, gin.H{
		"results": results,
		"count":   len(results),
	})
}

// Statistics 双存储统计信息
// GET /api/v1/documents/stats
func (h *DocumentHandler) Statistics(c *gin.Context) {
	response.Success(c, h.coordinator.GetStatistics(c.Request.Context()))
}

// Reset 清空全部文档
// DELETE /api/v1/documents
func (h *DocumentHandler) Reset(c *gin.Context) {
	relationalDeleted, vectorDeleted, err := h.coordinator.ResetAll(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500, "failed to reset documents: "+err.Error())
		return
	}

	response.Success(c, gin.H{
		"relational_deleted": relationalDeleted,
		"vector_deleted":     vectorDeleted,
	})
}
