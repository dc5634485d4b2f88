package document

import "github.com/google/wire"

// ProviderSet 文档协调器 ProviderSet
var ProviderSet = wire.NewSet(
	NewCoordinator,
	NewConsistencyEngine,
)
