package dedup

import "github.com/google/wire"

// ProviderSet 去重应用层 ProviderSet
var ProviderSet = wire.NewSet(
	NewService,
)
