//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/google/wire"

	"github.com/docbridge/backend/internal/application"
	"github.com/docbridge/backend/internal/infrastructure"
	"github.com/docbridge/backend/internal/interfaces"
)

// InitializeAll 初始化整个应用及其依赖
func InitializeAll() (*App, error) {
	wire.Build(
		infrastructure.ProviderSet,
		application.ProviderSet,
		interfaces.ProviderSet,
		NewApp,
	)
	return nil, nil
}
