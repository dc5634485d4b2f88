package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appdocument "github.com/docbridge/backend/internal/application/document"
	"github.com/docbridge/backend/internal/infrastructure/websocket"
	"github.com/docbridge/backend/internal/interfaces/http/response"
)

// 一致性推送事件
const (
	eventDriftComputed  = "consistency.drift_computed"
	eventRepairFinished = "consistency.repair_finished"
)

// ConsistencyHandler 一致性处理器
type ConsistencyHandler struct {
	engine *appdocument.ConsistencyEngine
	hub    *websocket.Hub
}

// NewConsistencyHandler 创建一致性处理器
func NewConsistencyHandler(engine *appdocument.ConsistencyEngine, hub *websocket.Hub) *ConsistencyHandler {
	return &ConsistencyHandler{engine: engine, hub: hub}
}

// Drift 计算双存储漂移
// GET /api/v1/consistency/drift
func (h *ConsistencyHandler) Drift(c *gin.Context) {
	report, err := h.engine.ComputeDrift(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500, "failed to compute drift: "+err.Error())
		return
	}

	h.broadcast(eventDriftComputed, report)
	response.Success(c, report)
}

// Repair 修复漂移
// POST /api/v1/consistency/repair
func (h *ConsistencyHandler) Repair(c *gin.Context) {
	report, err := h.engine.Repair(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500, "failed to repair: "+err.Error())
		return
	}

	h.broadcast(eventRepairFinished, report)
	response.Success(c, report)
}

// Health 双存储健康检查
// GET /api/v1/consistency/health
func (h *ConsistencyHandler) Health(c *gin.Context) {
	health := h.engine.HealthCheck(c.Request.Context())
	status := http.StatusOK
	if !health.Overall {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}

func (h *ConsistencyHandler) broadcast(eventType string, payload interface{}) {
	if h.hub == nil {
		return
	}
	_ = h.hub.Broadcast(websocket.TopicConsistency, eventType, payload)
}
