package dedup

import "time"

// 默认值
const (
	// DefaultClientID 未指定来源客户端时的默认值
	DefaultClientID = "system"
)

// HashRecord 文件哈希记录
// 主键 file_hash，附加 (client_id, original_path) 作用域用于精确重复检测。
// 记录创建后不再修改，只能被显式删除
type HashRecord struct {
	FileHash     string    `json:"file_hash"`
	FileName     string    `json:"file_name"`
	DocumentID   string    `json:"document_id"`
	UploadTime   time.Time `json:"upload_time"`
	ClientID     string    `json:"client_id"`
	OriginalPath string    `json:"original_path"`
}

// DuplicateCheck 重复检测结果
type DuplicateCheck struct {
	// IsDuplicate 是否重复（精确或内容重复）
	IsDuplicate bool `json:"is_duplicate"`
	// DocumentID 已存在文档的 ID，非重复时为空
	DocumentID string `json:"document_id,omitempty"`
	// IsExactPathDuplicate 是否为精确重复（同 hash + 同 client + 同路径）
	IsExactPathDuplicate bool `json:"is_exact_path_duplicate"`
}

// Ledger 哈希台账仓储接口
// 纯咨询性质：台账丢失只会让重复检测失效，不影响文档存储的正确性
type Ledger interface {
	// FindExact 按 (hash, client_id, original_path) 精确查找
	FindExact(hash, clientID, originalPath string) (*HashRecord, error)
	// FindByHash 按 hash 查找任意一条记录
	FindByHash(hash string) (*HashRecord, error)
	// Save 保存记录，三元组已存在时返回 (false, nil)
	Save(record *HashRecord) (bool, error)
	// Delete 按 hash 删除，返回是否实际删除了记录
	Delete(hash string) (bool, error)
	// ListAll 按上传时间倒序列出全部记录
	ListAll() ([]*HashRecord, error)
}
