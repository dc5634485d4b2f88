// Code generated by Wire. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"github.com/docbridge/backend/internal/application/dedup"
	"github.com/docbridge/backend/internal/application/document"
	"github.com/docbridge/backend/internal/application/reconcile"
	"github.com/docbridge/backend/internal/infrastructure/config"
	"github.com/docbridge/backend/internal/infrastructure/embedding"
	"github.com/docbridge/backend/internal/infrastructure/storage"
	"github.com/docbridge/backend/internal/infrastructure/vector"
	"github.com/docbridge/backend/internal/infrastructure/watcher"
	"github.com/docbridge/backend/internal/infrastructure/websocket"
	"github.com/docbridge/backend/internal/interfaces/http"
	"github.com/docbridge/backend/internal/interfaces/http/handler"
	"github.com/docbridge/backend/internal/interfaces/mcp"
)

// Injectors from wire.go:

// InitializeAll 初始化整个应用及其依赖
func InitializeAll() (*App, error) {
	configConfig := config.NewConfig()
	databaseConfig := config.NewDatabaseConfig(configConfig)
	db, err := storage.ProvideDB(databaseConfig)
	if err != nil {
		return nil, err
	}
	repository := storage.NewDocumentRepository(db)
	vectorConfig := config.NewVectorConfig(configConfig)
	qdrantManager := vector.NewQdrantManager(vectorConfig)
	embeddingConfig := config.NewEmbeddingConfig(configConfig)
	client := embedding.NewClient(embeddingConfig)
	store := vector.NewStore(qdrantManager, client, vectorConfig)
	coordinator := document.NewCoordinator(repository, store)
	documentHandler := handler.NewDocumentHandler(coordinator)
	consistencyEngine := document.NewConsistencyEngine(repository, store)
	hub := websocket.NewHub()
	consistencyHandler := handler.NewConsistencyHandler(consistencyEngine, hub)
	ledger := storage.NewHashRepository(db)
	service := dedup.NewService(ledger)
	hashHandler := handler.NewHashHandler(service)
	jobRepository := storage.NewJobRepository(db)
	settingsStore := storage.NewSettingsRepository(db)
	ingestor := reconcile.NewIngestor(coordinator, service)
	reconcileService := reconcile.NewService(jobRepository, settingsStore, ingestor, store, hub, configConfig)
	reconcileConfig := config.NewReconcileConfig(configConfig)
	scheduler := reconcile.NewScheduler(reconcileService, settingsStore, reconcileConfig)
	reconcileHandler := handler.NewReconcileHandler(reconcileService, scheduler)
	eventBus := watcher.ProvideEventBus()
	watcherConfig := config.NewWatcherConfig(configConfig)
	fileWatcher, err := watcher.ProvideFileWatcher(eventBus, settingsStore, watcherConfig)
	if err != nil {
		return nil, err
	}
	settingsHandler := handler.NewSettingsHandler(settingsStore, reconcileService, fileWatcher)
	wsHandler := handler.NewWSHandler(hub)
	mcpServer := mcp.NewServer(coordinator, consistencyEngine)
	serverConfig := config.NewServerConfig(configConfig)
	httpServer := http.NewServer(documentHandler, consistencyHandler, hashHandler, reconcileHandler, settingsHandler, wsHandler, mcpServer, serverConfig)
	app := NewApp(httpServer, mcpServer, hub, qdrantManager, reconcileService, scheduler, eventBus, fileWatcher, db, configConfig)
	return app, nil
}
