package vector

import (
	"github.com/google/wire"

	"github.com/docbridge/backend/internal/domain/document"
)

// ProviderSet 向量库 ProviderSet
var ProviderSet = wire.NewSet(
	NewQdrantManager,
	NewStore,
	wire.Bind(new(document.VectorStore), new(*Store)),
)
