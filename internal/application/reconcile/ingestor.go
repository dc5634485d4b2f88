package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/google/uuid"

	appdedup "github.com/docbridge/backend/internal/application/dedup"
	appdocument "github.com/docbridge/backend/internal/application/document"
	"github.com/docbridge/backend/internal/domain/dedup"
	"github.com/docbridge/backend/internal/domain/document"
	"github.com/docbridge/backend/internal/domain/reconcile"
	"github.com/docbridge/backend/internal/infrastructure/log"
)

// Ingestor 文件入库协作方
// 对账任务通过它读取、写入和删除文档，自身不接触文档存储
type Ingestor interface {
	// Ingest 新文件入库，返回文档 ID；内容重复时复用已有文档
	Ingest(ctx context.Context, file reconcile.FileInfo) (string, error)
	// Reingest 文件内容变更后重新入库
	Reingest(ctx context.Context, documentID string, file reconcile.FileInfo) error
	// Remove 删除文档
	Remove(ctx context.Context, documentID string) error
	// RecordedHash 读取文档元数据中记录的内容哈希，无记录时返回空串
	RecordedHash(ctx context.Context, documentID string) (string, error)
	// DocumentCount 当前文档总数
	DocumentCount(ctx context.Context) (int, error)
}

// documentIngestor 基于文档协调器与哈希台账的默认实现
type documentIngestor struct {
	coordinator *appdocument.Coordinator
	dedup       *appdedup.Service
	logger      *slog.Logger
}

// NewIngestor 创建文件入库协作方
func NewIngestor(coordinator *appdocument.Coordinator, dedupService *appdedup.Service) Ingestor {
	return &documentIngestor{
		coordinator: coordinator,
		dedup:       dedupService,
		logger:      log.NewModuleLogger("reconcile", "ingestor"),
	}
}

var _ Ingestor = (*documentIngestor)(nil)

// Ingest 新文件入库
// 先查哈希台账：同路径同哈希直接复用；同哈希异路径只追加台账行，
// 字节相同的内容永远只对应一个文档
func (i *documentIngestor) Ingest(ctx context.Context, file reconcile.FileInfo) (string, error) {
	check, err := i.dedup.CheckDuplicate(file.Hash, dedup.DefaultClientID, file.Path)
	if err != nil {
		i.logger.Warn("Duplicate check failed, ingesting anyway", "path", file.Path, "error", err)
	}
	if check != nil && check.IsDuplicate {
		if check.IsExactPathDuplicate {
			return check.DocumentID, nil
		}
		// 相同内容出现在新路径：追加台账行指向已有文档
		if _, err := i.dedup.SaveHash(i.hashRecord(file, check.DocumentID)); err != nil {
			i.logger.Warn("Failed to record duplicate path", "path", file.Path, "error", err)
		}
		return check.DocumentID, nil
	}

	documentID := uuid.NewString()
	content, isBinary, err := readFileContent(file)
	if err != nil {
		return "", err
	}

	doc := document.NewDocument(documentID, content, i.fileMetadata(file, isBinary))
	if _, err := i.coordinator.Add(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to ingest %s: %w", file.Path, err)
	}

	if _, err := i.dedup.SaveHash(i.hashRecord(file, documentID)); err != nil {
		i.logger.Warn("Failed to save hash record", "path", file.Path, "error", err)
	}

	return documentID, nil
}

// Reingest 文件内容变更后重新入库
func (i *documentIngestor) Reingest(ctx context.Context, documentID string, file reconcile.FileInfo) error {
	content, isBinary, err := readFileContent(file)
	if err != nil {
		return err
	}

	req := &appdocument.UpdateRequest{
		Content:  &content,
		Metadata: i.fileMetadata(file, isBinary),
	}
	if err := i.coordinator.Update(ctx, documentID, req); err != nil {
		return fmt.Errorf("failed to reingest %s: %w", file.Path, err)
	}

	if _, err := i.dedup.SaveHash(i.hashRecord(file, documentID)); err != nil {
		i.logger.Warn("Failed to save hash record", "path", file.Path, "error", err)
	}

	return nil
}

// Remove 删除文档
func (i *documentIngestor) Remove(ctx context.Context, documentID string) error {
	_, err := i.coordinator.Delete(ctx, documentID)
	return err
}

// RecordedHash 读取文档元数据中记录的内容哈希
func (i *documentIngestor) RecordedHash(ctx context.Context, documentID string) (string, error) {
	doc, err := i.coordinator.Get(ctx, documentID)
	if err != nil {
		return "", err
	}
	return doc.Metadata.GetString(document.MetaKeyFileHash), nil
}

// DocumentCount 当前文档总数
func (i *documentIngestor) DocumentCount(ctx context.Context) (int, error) {
	return i.coordinator.GetStatistics(ctx).RelationalCount, nil
}

// fileMetadata 构造文件来源元数据
func (i *documentIngestor) fileMetadata(file reconcile.FileInfo, isBinary bool) document.Metadata {
	metadata := document.Metadata{
		document.MetaKeySourcePath: document.String(file.Path),
		document.MetaKeyFileName:   document.String(filepath.Base(file.Path)),
		document.MetaKeyFileHash:   document.String(file.Hash),
		document.MetaKeyClientID:   document.String(dedup.DefaultClientID),
		"file_size":                document.Int(file.Size),
	}
	if isBinary {
		metadata[document.MetaKeyIsBinary] = document.Bool(true)
	}
	return metadata
}

// hashRecord 构造台账行
func (i *documentIngestor) hashRecord(file reconcile.FileInfo, documentID string) *dedup.HashRecord {
	return &dedup.HashRecord{
		FileHash:     file.Hash,
		FileName:     filepath.Base(file.Path),
		DocumentID:   documentID,
		ClientID:     dedup.DefaultClientID,
		OriginalPath: file.Path,
	}
}

// readFileContent 读取文件正文
// 无法按 UTF-8 解释的内容（如 PDF 原始字节）降级为二进制占位标记，
// 文档仍写入关系库，由向量化条件检查将其排除在向量库之外
func readFileContent(file reconcile.FileInfo) (string, bool, error) {
	data, err := os.ReadFile(file.Path)
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", file.Path, err)
	}

	if utf8.Valid(data) {
		return string(data), false, nil
	}

	marker := fmt.Sprintf("BINARY_FILE:%s %s", file.Hash, filepath.Base(file.Path))
	return marker, true, nil
}
