package dedup

import "errors"

// 哈希台账相关错误
var (
	// ErrHashRequired 文件哈希必填
	ErrHashRequired = errors.New("file hash is required")
	// ErrDocumentIDRequired 文档 ID 必填
	ErrDocumentIDRequired = errors.New("document id is required")
)
