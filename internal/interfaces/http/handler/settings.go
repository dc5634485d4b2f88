package handler

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	appreconcile "github.com/docbridge/backend/internal/application/reconcile"
	"github.com/docbridge/backend/internal/domain/reconcile"
	"github.com/docbridge/backend/internal/infrastructure/watcher"
	"github.com/docbridge/backend/internal/interfaces/http/response"
)

// SettingsHandler 设置处理器
// 调度时间、delete_missing、batch_size 与监控目录都存放在设置表中，
// 修改后在下一次调度触发或对账启动时生效，无需重启
type SettingsHandler struct {
	settings    reconcile.SettingsStore
	service     *appreconcile.Service
	fileWatcher *watcher.FileWatcher
}

// NewSettingsHandler 创建设置处理器
func NewSettingsHandler(
	settings reconcile.SettingsStore,
	service *appreconcile.Service,
	fileWatcher *watcher.FileWatcher,
) *SettingsHandler {
	return &SettingsHandler{
		settings:    settings,
		service:     service,
		fileWatcher: fileWatcher,
	}
}

// List 列出全部设置
// GET /api/v1/settings
func (h *SettingsHandler) List(c *gin.Context) {
	all, err := h.settings.All()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500, "failed to list settings: "+err.Error())
		return
	}

	response.Success(c, all)
}

// Update 批量更新设置
// PUT /api/v1/settings
func (h *SettingsHandler) Update(c *gin.Context) {
	var req map[string]string
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 400, "invalid request: "+err.Error())
		return
	}

	for key, value := range req {
		if err := h.settings.Set(key, value); err != nil {
			response.Error(c, http.StatusInternalServerError, 500, "failed to save setting "+key+": "+err.Error())
			return
		}
	}

	response.Success(c, gin.H{"updated": len(req)})
}

// GetMonitoredDirs 读取监控目录列表
// GET /api/v1/settings/monitored-dirs
func (h *SettingsHandler) GetMonitoredDirs(c *gin.Context) {
	dirs, err := h.service.MonitoredDirs()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500, err.Error())
		return
	}

	response.Success(c, gin.H{"dirs": dirs})
}

// monitoredDirsRequest 监控目录更新请求
type monitoredDirsRequest struct {
	Dirs []string `json:"dirs" binding:"required"`
}

// SetMonitoredDirs 更新监控目录列表
// PUT /api/v1/settings/monitored-dirs
func (h *SettingsHandler) SetMonitoredDirs(c *gin.Context) {
	var req monitoredDirsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 400, "invalid request: "+err.Error())
		return
	}

	// 目录必须存在且可访问
	for _, dir := range req.Dirs {
		info, err := os.Stat(dir)
		if err != nil {
			response.ErrorWithDetail(c, http.StatusBadRequest, 400, "directory not accessible", dir)
			return
		}
		if !info.IsDir() {
			response.ErrorWithDetail(c, http.StatusBadRequest, 400, "not a directory", dir)
			return
		}
	}

	if err := h.service.SetMonitoredDirs(req.Dirs); err != nil {
		response.Error(c, http.StatusInternalServerError, 500, "failed to save monitored dirs: "+err.Error())
		return
	}

	// 文件监听器热切换到新目录集
	if h.fileWatcher != nil {
		h.fileWatcher.UpdateDirs(req.Dirs)
	}

	response.Success(c, gin.H{"dirs": req.Dirs})
}
