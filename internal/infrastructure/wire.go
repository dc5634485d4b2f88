package infrastructure

import (
	"github.com/google/wire"

	"github.com/docbridge/backend/internal/infrastructure/config"
	"github.com/docbridge/backend/internal/infrastructure/embedding"
	"github.com/docbridge/backend/internal/infrastructure/storage"
	"github.com/docbridge/backend/internal/infrastructure/vector"
	"github.com/docbridge/backend/internal/infrastructure/watcher"
	"github.com/docbridge/backend/internal/infrastructure/websocket"
)

// ProviderSet Infrastructure 层总 ProviderSet
var ProviderSet = wire.NewSet(
	config.ProviderSet,
	storage.ProviderSet,
	embedding.ProviderSet,
	vector.ProviderSet,
	websocket.ProviderSet,
	watcher.ProviderSet,
)
