package wire

import (
	"context"
	"database/sql"
	"time"

	"log/slog"

	appReconcile "github.com/docbridge/backend/internal/application/reconcile"
	"github.com/docbridge/backend/internal/domain/events"
	"github.com/docbridge/backend/internal/infrastructure/config"
	applog "github.com/docbridge/backend/internal/infrastructure/log"
	"github.com/docbridge/backend/internal/infrastructure/vector"
	"github.com/docbridge/backend/internal/infrastructure/watcher"
	"github.com/docbridge/backend/internal/infrastructure/websocket"
	interfacehttp "github.com/docbridge/backend/internal/interfaces/http"
	interfacemcp "github.com/docbridge/backend/internal/interfaces/mcp"
)

// App 应用主结构，组合所有服务
type App struct {
	HTTPServer       *interfacehttp.HTTPServer
	MCPServer        *interfacemcp.MCPServer
	wsHub            *websocket.Hub
	qdrantManager    *vector.QdrantManager
	reconcileService *appReconcile.Service
	scheduler        *appReconcile.Scheduler
	eventBus         events.EventBus
	fileWatcher      *watcher.FileWatcher
	db               *sql.DB
	cfg              *config.Config
	logger           *slog.Logger

	// 文件事件订阅的取消函数
	unsubscribe func()
}

// NewApp 创建应用实例
func NewApp(
	httpServer *interfacehttp.HTTPServer,
	mcpServer *interfacemcp.MCPServer,
	wsHub *websocket.Hub,
	qdrantManager *vector.QdrantManager,
	reconcileService *appReconcile.Service,
	scheduler *appReconcile.Scheduler,
	eventBus events.EventBus,
	fileWatcher *watcher.FileWatcher,
	db *sql.DB,
	cfg *config.Config,
) *App {
	return &App{
		HTTPServer:       httpServer,
		MCPServer:        mcpServer,
		wsHub:            wsHub,
		qdrantManager:    qdrantManager,
		reconcileService: reconcileService,
		scheduler:        scheduler,
		eventBus:         eventBus,
		fileWatcher:      fileWatcher,
		db:               db,
		cfg:              cfg,
		logger:           applog.NewModuleLogger("app", "main"),
	}
}

// Start 启动所有服务
func (a *App) Start() error {
	a.logger.Info("Starting docbridge application")

	// 清理上次进程崩溃遗留的 running 任务
	if affected, err := a.reconcileService.RecoverInterrupted(); err != nil {
		a.logger.Error("Failed to recover interrupted jobs", "error", err)
	} else if affected > 0 {
		a.logger.Info("Marked interrupted jobs as failed", "count", affected)
	}

	// 连接向量库并确保集合存在
	// 向量库是可降级的派生索引，连接失败不阻止启动
	if err := a.connectVectorStore(); err != nil {
		a.logger.Warn("Vector store unavailable, similarity search degraded",
			"error", err,
		)
	}

	// 启动 WebSocket Hub
	a.wsHub.Start()

	// 文件监听：变更事件直接触发单文件入库
	a.unsubscribe = a.reconcileService.SubscribeFileEvents(a.eventBus)
	if a.cfg.Watcher.Enabled && a.fileWatcher != nil {
		if err := a.fileWatcher.Start(); err != nil {
			a.logger.Error("Failed to start file watcher", "error", err)
		} else {
			a.logger.Info("File watcher started")
		}
	}

	// 启动每日对账调度器
	a.scheduler.Start()

	// 启动 HTTP 服务器（goroutine）
	go func() {
		if err := a.HTTPServer.Start(); err != nil {
			a.logger.Error("HTTP server stopped", "error", err)
		}
	}()

	a.logger.Info("docbridge application started successfully")

	// MCP 服务器通过 HTTP Handler 提供服务，不需要单独启动
	// 已在 HTTP 服务器中注册 /mcp/sse 端点

	return nil
}

// connectVectorStore 建立向量库连接并确保默认集合存在
func (a *App) connectVectorStore() error {
	if err := a.qdrantManager.Connect(); err != nil {
		return err
	}

	if err := a.qdrantManager.WaitForReady(10 * time.Second); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.qdrantManager.EnsureCollection(ctx, a.cfg.Vector.CollectionName)
}

// Stop 停止所有服务
func (a *App) Stop() error {
	a.logger.Info("Stopping docbridge application")

	// 停止调度器，等待调度循环退出
	a.scheduler.Stop()

	// 停止文件监听
	if a.fileWatcher != nil {
		a.fileWatcher.Stop()
	}
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.eventBus != nil {
		a.eventBus.Close()
	}

	// 停止 HTTP 服务器
	if err := a.HTTPServer.Stop(); err != nil {
		a.logger.Error("Failed to stop HTTP server", "error", err)
	}

	// 断开向量库连接
	if err := a.qdrantManager.Close(); err != nil {
		a.logger.Error("Failed to close vector store connection", "error", err)
	}

	// 关闭数据库
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close database", "error", err)
		}
	}

	a.logger.Info("docbridge application stopped")
	return nil
}
