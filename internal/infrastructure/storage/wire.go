package storage

import "github.com/google/wire"

// ProviderSet Storage 基础设施层 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideDB,             // 提供数据库连接
	NewDocumentRepository, // 文档仓储
	NewHashRepository,     // 文件哈希台账仓储
	NewJobRepository,      // 对账任务仓储
	NewSettingsRepository, // 应用设置仓储
)
