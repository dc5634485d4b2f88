package document

import "errors"

// 文档相关错误
var (
	// ErrNotFound 文档在两个存储中都不存在
	ErrNotFound = errors.New("document not found")
	// ErrIDRequired 文档 ID 必填
	ErrIDRequired = errors.New("document id is required")
	// ErrBothStoresFailed 两个存储的删除都失败
	ErrBothStoresFailed = errors.New("failed to delete document from both stores")
	// ErrBatchLengthMismatch 批量写入的 ids/texts/metadatas 长度不一致
	ErrBatchLengthMismatch = errors.New("ids, texts and metadatas must have the same length")
)
