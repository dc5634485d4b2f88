package reconcile

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/docbridge/backend/internal/application/dedup"
	"github.com/docbridge/backend/internal/domain/events"
	"github.com/docbridge/backend/internal/domain/reconcile"
)

// IngestPath 对单个文件执行即时入库
// 文件监听事件的处理入口：已入库且哈希一致时无事发生，
// 哈希变化走重新入库，未入库走新增
func (s *Service) IngestPath(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	hash, err := dedup.HashFile(path)
	if err != nil {
		return fmt.Errorf("failed to hash %s: %w", path, err)
	}

	file := reconcile.FileInfo{
		Path:         path,
		Size:         info.Size(),
		ModifiedTime: info.ModTime(),
		Hash:         hash,
	}

	paths, err := s.vectors.ListSourcePaths(ctx)
	if err != nil {
		// 向量库不可用时退回新增路径，由哈希台账保证幂等
		paths = map[string]string{}
	}

	if documentID, ok := paths[path]; ok {
		recorded, err := s.ingestor.RecordedHash(ctx, documentID)
		if err == nil && recorded == hash {
			return nil
		}
		return s.ingestor.Reingest(ctx, documentID, file)
	}

	_, err = s.ingestor.Ingest(ctx, file)
	return err
}

// RemovePath 删除路径对应的文档
// 路径未被记录时按无事发生处理
func (s *Service) RemovePath(ctx context.Context, path string) error {
	paths, err := s.vectors.ListSourcePaths(ctx)
	if err != nil {
		return fmt.Errorf("failed to list vector store paths: %w", err)
	}
	documentID, ok := paths[path]
	if !ok {
		return nil
	}
	return s.ingestor.Remove(ctx, documentID)
}

// deleteMissingEnabled 读取 delete_missing 设置
func (s *Service) deleteMissingEnabled() bool {
	raw, err := s.settings.Get(reconcile.SettingDeleteMissing, "false")
	if err != nil {
		return false
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return enabled
}

// SubscribeFileEvents 订阅文件监听事件，返回取消订阅函数
// created/modified 走即时入库，deleted 走文档删除
func (s *Service) SubscribeFileEvents(bus events.EventBus) func() {
	handler := events.HandlerFunc(func(event events.Event) error {
		fileEvent, ok := event.(*events.MonitoredFileEvent)
		if !ok {
			return nil
		}

		ctx := context.Background()
		switch fileEvent.EventType {
		case events.MonitoredFileCreated, events.MonitoredFileModified:
			if err := s.IngestPath(ctx, fileEvent.FilePath); err != nil {
				s.logger.Warn("Failed to ingest changed file",
					"path", fileEvent.FilePath,
					"error", err,
				)
				return err
			}
		case events.MonitoredFileDeleted:
			// 与对账任务一致：删除落库要由 delete_missing 设置显式开启
			if !s.deleteMissingEnabled() {
				return nil
			}
			if err := s.RemovePath(ctx, fileEvent.FilePath); err != nil {
				s.logger.Warn("Failed to remove deleted file",
					"path", fileEvent.FilePath,
					"error", err,
				)
				return err
			}
		}
		return nil
	})

	return bus.SubscribeMultiple([]events.EventType{
		events.MonitoredFileCreated,
		events.MonitoredFileModified,
		events.MonitoredFileDeleted,
	}, handler)
}
