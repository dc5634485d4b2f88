package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	appreconcile "github.com/docbridge/backend/internal/application/reconcile"
	"github.com/docbridge/backend/internal/domain/reconcile"
	"github.com/docbridge/backend/internal/interfaces/http/response"
)

// ReconcileHandler 对账任务处理器
type ReconcileHandler struct {
	service   *appreconcile.Service
	scheduler *appreconcile.Scheduler
}

// NewReconcileHandler 创建对账任务处理器
func NewReconcileHandler(service *appreconcile.Service, scheduler *appreconcile.Scheduler) *ReconcileHandler {
	return &ReconcileHandler{service: service, scheduler: scheduler}
}

// Start 启动对账任务
// POST /api/v1/reconciliation
func (h *ReconcileHandler) Start(c *gin.Context) {
	var opts reconcile.Options
	if err := c.ShouldBindJSON(&opts); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, http.StatusBadRequest, 400, "invalid request: "+err.Error())
		return
	}

	job, err := h.service.StartReconciliation(c.Request.Context(), opts)
	if err != nil {
		switch {
		case errors.Is(err, reconcile.ErrCollectionBusy):
			response.Error(c, http.StatusConflict, 409, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, 500, "failed to start reconciliation: "+err.Error())
		}
		return
	}

	response.Success(c, job)
}

// GetJob 查询任务状态
// GET /api/v1/reconciliation/jobs/:id
func (h *ReconcileHandler) GetJob(c *gin.Context) {
	job, err := h.service.GetJob(c.Param("id"))
	if err != nil {
		if errors.Is(err, reconcile.ErrJobNotFound) {
			response.Error(c, http.StatusNotFound, 404, "job not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, 500, "failed to get job: "+err.Error())
		return
	}

	response.Success(c, job)
}

// ListJobs 列出任务历史
// GET /api/v1/reconciliation/jobs?limit=20
func (h *ReconcileHandler) ListJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	jobs, err := h.service.ListJobs(limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500, "failed to list jobs: "+err.Error())
		return
	}

	response.Success(c, gin.H{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// NextRun 查询下一次定时对账的触发时刻
// GET /api/v1/reconciliation/next-run
func (h *ReconcileHandler) NextRun(c *gin.Context) {
	next, err := h.scheduler.NextFireTime()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500, "invalid schedule setting: "+err.Error())
		return
	}

	response.Success(c, gin.H{"next_run": next.Format(time.RFC3339)})
}

// Cancel 取消任务
// POST /api/v1/reconciliation/jobs/:id/cancel
func (h *ReconcileHandler) Cancel(c *gin.Context) {
	err := h.service.Cancel(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, reconcile.ErrJobNotFound):
			response.Error(c, http.StatusNotFound, 404, "job not found")
		case errors.Is(err, reconcile.ErrJobAlreadyFinished):
			response.Error(c, http.StatusConflict, 409, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, 500, "failed to cancel job: "+err.Error())
		}
		return
	}

	response.Success(c, gin.H{"cancelled": true})
}
