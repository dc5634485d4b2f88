package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appdedup "github.com/docbridge/backend/internal/application/dedup"
	"github.com/docbridge/backend/internal/domain/dedup"
	"github.com/docbridge/backend/internal/interfaces/http/response"
)

// HashHandler 哈希台账处理器
type HashHandler struct {
	service *appdedup.Service
}

// NewHashHandler 创建哈希台账处理器
func NewHashHandler(service *appdedup.Service) *HashHandler {
	return &HashHandler{service: service}
}

// checkRequest 重复检测请求
type checkRequest struct {
	FileHash     string `json:"file_hash" binding:"required"`
	ClientID     string `json:"client_id"`
	OriginalPath string `json:"original_path"`
}

// Check 重复检测
// POST /api/v1/hashes/check
func (h *HashHandler) Check(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 400, "invalid request: "+err.Error())
		return
	}

	result, err := h.service.CheckDuplicate(req.FileHash, req.ClientID, req.OriginalPath)
	if err != nil {
		if errors.Is(err, dedup.ErrHashRequired) {
			response.Error(c, http.StatusBadRequest, 400, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, 500, "failed to check duplicate: "+err.Error())
		return
	}

	response.Success(c, result)
}

// saveRequest 保存台账请求
type saveRequest struct {
	FileHash     string `json:"file_hash" binding:"required"`
	FileName     string `json:"file_name" binding:"required"`
	DocumentID   string `json:"document_id" binding:"required"`
	ClientID     string `json:"client_id"`
	OriginalPath string `json:"original_path"`
}

// Save 保存哈希记录
// POST /api/v1/hashes
func (h *HashHandler) Save(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 400, "invalid request: "+err.Error())
		return
	}

	saved, err := h.service.SaveHash(&dedup.HashRecord{
		FileHash:     req.FileHash,
		FileName:     req.FileName,
		DocumentID:   req.DocumentID,
		ClientID:     req.ClientID,
		OriginalPath: req.OriginalPath,
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500, "failed to save hash: "+err.Error())
		return
	}

	response.Success(c, gin.H{"newly_saved": saved})
}

// Delete 删除哈希记录
// DELETE /api/v1/hashes/:hash
func (h *HashHandler) Delete(c *gin.Context) {
	deleted, err := h.service.DeleteHash(c.Param("hash"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500, "failed to delete hash: "+err.Error())
		return
	}
	if !deleted {
		response.Error(c, http.StatusNotFound, 404, "hash not found")
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

// List 列出全部哈希记录
// GET /api/v1/hashes
func (h *HashHandler) List(c *gin.Context) {
	records, err := h.service.ListHashes()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500, "failed to list hashes: "+err.Error())
		return
	}

	response.Success(c, gin.H{
		"records": records,
		"count":   len(records),
	})
}

// Reset 清理台账中的重复行
// POST /api/v1/hashes/reset
func (h *HashHandler) Reset(c *gin.Context) {
	removed, err := h.service.ResetLedger()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500, "failed to reset ledger: "+err.Error())
		return
	}

	response.Success(c, gin.H{"removed": removed})
}
