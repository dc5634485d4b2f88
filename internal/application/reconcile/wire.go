package reconcile

import "github.com/google/wire"

// ProviderSet 对账服务 ProviderSet
var ProviderSet = wire.NewSet(
	NewIngestor,
	NewService,
	NewScheduler,
)
