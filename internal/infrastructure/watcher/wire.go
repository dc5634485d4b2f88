package watcher

import (
	"encoding/json"

	"github.com/google/wire"

	"github.com/docbridge/backend/internal/domain/events"
	"github.com/docbridge/backend/internal/domain/reconcile"
	"github.com/docbridge/backend/internal/infrastructure/config"
)

// ProviderSet 文件监听 ProviderSet
var ProviderSet = wire.NewSet(ProvideEventBus, ProvideFileWatcher)

// ProvideEventBus 提供事件总线实例
func ProvideEventBus() events.EventBus {
	return NewEventBus()
}

// ProvideFileWatcher 提供文件监听器实例
// 监控目录从设置面读取，JSON 数组格式
func ProvideFileWatcher(eventBus events.EventBus, settings reconcile.SettingsStore, cfg *config.WatcherConfig) (*FileWatcher, error) {
	watchConfig := DefaultWatchConfig()
	if cfg.DebounceDelay > 0 {
		watchConfig.DebounceDelay = cfg.DebounceDelay
	}

	dirsJSON, err := settings.Get(reconcile.SettingMonitoredDirs, "[]")
	if err == nil && dirsJSON != "" {
		var dirs []string
		if err := json.Unmarshal([]byte(dirsJSON), &dirs); err == nil {
			watchConfig.Dirs = dirs
		}
	}

	return NewFileWatcher(watchConfig, eventBus)
}
