package application

import (
	"github.com/google/wire"

	"github.com/docbridge/backend/internal/application/dedup"
	"github.com/docbridge/backend/internal/application/document"
	"github.com/docbridge/backend/internal/application/reconcile"
)

// ProviderSet Application 层总 ProviderSet
var ProviderSet = wire.NewSet(
	document.ProviderSet,
	dedup.ProviderSet,
	reconcile.ProviderSet,
)
