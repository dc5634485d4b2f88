package dedup

import (
	"log/slog"

	"github.com/docbridge/backend/internal/domain/dedup"
	"github.com/docbridge/backend/internal/infrastructure/log"
)

// Service 文件去重服务
// 基于内容哈希台账做上传前的重复检测，台账仅用于检测，不承载文档存储的正确性
type Service struct {
	ledger dedup.Ledger
	logger *slog.Logger
}

// NewService 创建去重服务
func NewService(ledger dedup.Ledger) *Service {
	return &Service{
		ledger: ledger,
		logger: log.NewModuleLogger("dedup", "service"),
	}
}

// CheckDuplicate 检测文件是否重复
// 查找顺序：先按 (hash, client_id, original_path) 精确匹配，
// 再退化为仅按 hash 匹配（同内容不同来源）
func (s *Service) CheckDuplicate(hash, clientID, originalPath string) (*dedup.DuplicateCheck, error) {
	if hash == "" {
		return nil, dedup.ErrHashRequired
	}
	if clientID == "" {
		clientID = dedup.DefaultClientID
	}

	// 精确匹配：同内容、同客户端、同路径
	exact, err := s.ledger.FindExact(hash, clientID, originalPath)
	if err != nil {
		return nil, err
	}
	if exact != nil {
		return &dedup.DuplicateCheck{
			IsDuplicate:          true,
			DocumentID:           exact.DocumentID,
			IsExactPathDuplicate: true,
		}, nil
	}

	// 内容匹配：同样的字节出现在其他客户端或路径下
	byHash, err := s.ledger.FindByHash(hash)
	if err != nil {
		return nil, err
	}
	if byHash != nil {
		return &dedup.DuplicateCheck{
			IsDuplicate:          true,
			DocumentID:           byHash.DocumentID,
			IsExactPathDuplicate: false,
		}, nil
	}

	return &dedup.DuplicateCheck{IsDuplicate: false}, nil
}

// SaveHash 保存哈希记录
// 幂等：三元组已存在时返回 (false, nil)，不视为错误
func (s *Service) SaveHash(record *dedup.HashRecord) (bool, error) {
	saved, err := s.ledger.Save(record)
	if err != nil {
		return false, err
	}

	if saved {
		s.logger.Debug("Hash record saved",
			"file_hash", record.FileHash,
			"document_id", record.DocumentID,
			"client_id", record.ClientID,
		)
	}

	return saved, nil
}

// DeleteHash 删除哈希记录，返回是否实际删除
func (s *Service) DeleteHash(hash string) (bool, error) {
	return s.ledger.Delete(hash)
}

// ListHashes 按上传时间倒序列出全部记录
func (s *Service) ListHashes() ([]*dedup.HashRecord, error) {
	return s.ledger.ListAll()
}

// ResetLedger 清空整个台账
func (s *Service) ResetLedger() (int, error) {
	records, err := s.ledger.ListAll()
	if err != nil {
		return 0, err
	}

	deleted := 0
	seen := make(map[string]bool)
	for _, record := range records {
		if seen[record.FileHash] {
			continue
		}
		seen[record.FileHash] = true

		ok, err := s.ledger.Delete(record.FileHash)
		if err != nil {
			s.logger.Warn("Failed to delete hash record", "file_hash", record.FileHash, "error", err)
			continue
		}
		if ok {
			deleted++
		}
	}

	return deleted, nil
}
