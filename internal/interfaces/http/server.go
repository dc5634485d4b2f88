package http

import (
	"context"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/docbridge/backend/internal/infrastructure/config"
	"github.com/docbridge/backend/internal/infrastructure/log"
	"github.com/docbridge/backend/internal/interfaces/http/handler"
	"github.com/docbridge/backend/internal/interfaces/http/middleware"
	"github.com/docbridge/backend/internal/interfaces/mcp"
)

// HTTPServer HTTP 服务器
type HTTPServer struct {
	router   *gin.Engine
	httpPort string
	server   *http.Server
	logger   *slog.Logger
}

// NewServer 创建 HTTP 服务器
func NewServer(
	documentHandler *handler.DocumentHandler,
	consistencyHandler *handler.ConsistencyHandler,
	hashHandler *handler.HashHandler,
	reconcileHandler *handler.ReconcileHandler,
	settingsHandler *handler.SettingsHandler,
	wsHandler *handler.WSHandler,
	mcpServer *mcp.MCPServer,
	cfg *config.ServerConfig,
) *HTTPServer {
	router := gin.Default()
	router.Use(middleware.EnsureUTF8Body())

	logger := log.NewModuleLogger("http", "server")

	// 注册路由
	api := router.Group("/api/v1")
	{
		// 文档相关路由
		api.POST("/documents", documentHandler.Create)
		api.GET("/documents", documentHandler.List)
		api.DELETE("/documents", documentHandler.Reset)
		api.POST("/documents/search", documentHandler.Search)
		api.GET("/documents/stats", documentHandler.Statistics)
		api.GET("/documents/:id", documentHandler.Get)
		api.PUT("/documents/:id", documentHandler.Update)
		api.DELETE("/documents/:id", documentHandler.Delete)

		// 一致性相关路由
		consistency := api.Group("/consistency")
		{
			consistency.GET("/drift", consistencyHandler.Drift)
			consistency.POST("/repair", consistencyHandler.Repair)
			consistency.GET("/health", consistencyHandler.Health)
		}

		// 哈希台账相关路由
		hashes := api.Group("/hashes")
		{
			hashes.GET("", hashHandler.List)
			hashes.POST("", hashHandler.Save)
			hashes.POST("/check", hashHandler.Check)
			hashes.POST("/reset", hashHandler.Reset)
			hashes.DELETE("/:hash", hashHandler.Delete)
		}

		// 对账任务相关路由
		reconciliation := api.Group("/reconciliation")
		{
			reconciliation.POST("", reconcileHandler.Start)
			reconciliation.GET("/next-run", reconcileHandler.NextRun)
			reconciliation.GET("/jobs", reconcileHandler.ListJobs)
			reconciliation.GET("/jobs/:id", reconcileHandler.GetJob)
			reconciliation.POST("/jobs/:id/cancel", reconcileHandler.Cancel)
		}

		// 设置相关路由
		settings := api.Group("/settings")
		{
			settings.GET("", settingsHandler.List)
			settings.PUT("", settingsHandler.Update)
			settings.GET("/monitored-dirs", settingsHandler.GetMonitoredDirs)
			settings.PUT("/monitored-dirs", settingsHandler.SetMonitoredDirs)
		}
	}

	// 任务进度与一致性状态推送
	router.GET("/ws/:topic", wsHandler.Subscribe)

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// MCP SSE 端点
	if mcpServer != nil {
		router.Any("/mcp/sse", gin.WrapH(mcpServer.GetHandler()))
	}

	return &HTTPServer{
		router:   router,
		httpPort: cfg.HTTPPort,
		logger:   logger,
	}
}

// Start 启动服务器
func (s *HTTPServer) Start() error {
	s.server = &http.Server{
		Addr:    s.httpPort,
		Handler: s.router,
	}

	s.logger.Info("HTTP server starting",
		"port", s.httpPort,
	)

	return s.server.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Stop 停止服务器
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
