package embedding

import "github.com/google/wire"

// ProviderSet 向量化客户端 ProviderSet
var ProviderSet = wire.NewSet(NewClient)
