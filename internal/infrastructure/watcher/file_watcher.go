package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/docbridge/backend/internal/domain/events"
	"github.com/docbridge/backend/internal/domain/reconcile"
	"github.com/docbridge/backend/internal/infrastructure/log"
)

// WatchConfig FileWatcher 配置
type WatchConfig struct {
	// Dirs 监控目录列表
	Dirs []string
	// DebounceDelay 防抖延迟
	DebounceDelay time.Duration
}

// DefaultWatchConfig 返回默认配置
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		DebounceDelay: 500 * time.Millisecond,
	}
}

// FileWatcher 监控目录文件监听器
// 只对受支持的文档文件发布事件，写入抖动经防抖合并
type FileWatcher struct {
	config   WatchConfig
	eventBus events.EventBus
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	// 防抖相关
	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex

	// 控制
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewFileWatcher 创建文件监听器
func NewFileWatcher(config WatchConfig, eventBus events.EventBus) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		config:         config,
		eventBus:       eventBus,
		watcher:        watcher,
		logger:         log.NewModuleLogger("watcher", "file_watcher"),
		debounceTimers: make(map[string]*time.Timer),
		stopCh:         make(chan struct{}),
	}, nil
}

// Start 启动文件监听
func (fw *FileWatcher) Start() error {
	fw.logger.Info("Starting file watcher", "dirs", fw.config.Dirs)

	// 添加监听目录
	for _, dir := range fw.config.Dirs {
		if err := fw.addDirRecursive(dir); err != nil {
			fw.logger.Warn("Failed to add directory to watch", "dir", dir, "error", err)
		}
	}

	// 启动事件处理循环
	fw.wg.Add(1)
	go fw.watchLoop()

	return nil
}

// Stop 停止文件监听
func (fw *FileWatcher) Stop() {
	fw.logger.Info("Stopping file watcher")

	close(fw.stopCh)
	fw.watcher.Close()
	fw.wg.Wait()

	// 取消所有防抖定时器
	fw.debounceMu.Lock()
	for _, timer := range fw.debounceTimers {
		timer.Stop()
	}
	fw.debounceMu.Unlock()

	fw.logger.Info("File watcher stopped")
}

// UpdateDirs 更新监控目录集合
// 监控目录设置变更后调用，无需重启进程
func (fw *FileWatcher) UpdateDirs(dirs []string) {
	// 移除不再监控的目录
	current := make(map[string]bool, len(fw.config.Dirs))
	for _, dir := range fw.config.Dirs {
		current[dir] = true
	}
	next := make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		next[dir] = true
	}

	for dir := range current {
		if !next[dir] {
			if err := fw.watcher.Remove(dir); err != nil {
				fw.logger.Debug("Failed to remove watch", "dir", dir, "error", err)
			}
		}
	}
	for dir := range next {
		if !current[dir] {
			if err := fw.addDirRecursive(dir); err != nil {
				fw.logger.Warn("Failed to add directory to watch", "dir", dir, "error", err)
			}
		}
	}

	fw.config.Dirs = dirs
	fw.logger.Info("Watched directories updated", "dirs", dirs)
}

// addDirRecursive 递归添加目录监听
func (fw *FileWatcher) addDirRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // 忽略无法访问的目录
		}

		if info.IsDir() {
			if err := fw.watcher.Add(path); err != nil {
				fw.logger.Debug("Failed to add directory to watch",
					"path", path,
					"error", err,
				)
			} else {
				fw.logger.Debug("Added directory to watch", "path", path)
			}
		}
		return nil
	})
}

// watchLoop 事件监听循环
func (fw *FileWatcher) watchLoop() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.stopCh:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("Watcher error", "error", err)
		}
	}
}

// handleFsEvent 处理文件系统事件
func (fw *FileWatcher) handleFsEvent(event fsnotify.Event) {
	// 新建目录需要加入监听
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			fw.watcher.Add(event.Name)
			return
		}
	}

	if !reconcile.IsSupportedFile(event.Name) {
		return
	}

	fw.debounceEvent(event)
}

// debounceEvent 对同一文件的连续事件做防抖合并
func (fw *FileWatcher) debounceEvent(fsEvent fsnotify.Event) {
	fw.debounceMu.Lock()
	defer fw.debounceMu.Unlock()

	// 取消之前的定时器
	if timer, exists := fw.debounceTimers[fsEvent.Name]; exists {
		timer.Stop()
	}

	// 创建新的防抖定时器
	fw.debounceTimers[fsEvent.Name] = time.AfterFunc(fw.config.DebounceDelay, func() {
		fw.emitFileEvent(fsEvent)

		// 清理定时器
		fw.debounceMu.Lock()
		delete(fw.debounceTimers, fsEvent.Name)
		fw.debounceMu.Unlock()
	})
}

// emitFileEvent 发送文件变更事件
func (fw *FileWatcher) emitFileEvent(fsEvent fsnotify.Event) {
	// 确定事件类型
	var eventType events.EventType
	switch {
	case fsEvent.Has(fsnotify.Create):
		eventType = events.MonitoredFileCreated
	case fsEvent.Has(fsnotify.Write):
		eventType = events.MonitoredFileModified
	case fsEvent.Has(fsnotify.Remove) || fsEvent.Has(fsnotify.Rename):
		eventType = events.MonitoredFileDeleted
	default:
		return
	}

	// 获取文件信息，删除事件时保持零值
	var modTime time.Time
	var fileSize int64
	if fileInfo, err := os.Stat(fsEvent.Name); err == nil {
		modTime = fileInfo.ModTime()
		fileSize = fileInfo.Size()
	} else if eventType != events.MonitoredFileDeleted {
		// 防抖窗口内文件已不存在，按删除处理
		eventType = events.MonitoredFileDeleted
	}

	fw.eventBus.Publish(&events.MonitoredFileEvent{
		EventType: eventType,
		FilePath:  fsEvent.Name,
		ModTime:   modTime,
		FileSize:  fileSize,
		EventTime: time.Now(),
	})

	fw.logger.Debug("File event emitted",
		"type", eventType,
		"file_path", fsEvent.Name,
	)
}
