package document

import (
	"strings"
	"unicode/utf8"
)

// 二进制内容标记前缀
const binaryMarkerPrefix = "BINARY_FILE:"

// 向量化的最小内容长度（去除首尾空白后按字符计）
const minVectorizeLength = 10

// 不可向量化的 content_type 取值
var nonVectorizableContentTypes = map[string]bool{
	"binary": true,
	"image":  true,
	"audio":  true,
	"video":  true,
}

// 不可向量化的 file_type 前缀（MIME）
var binaryFileTypePrefixes = []string{
	"image/",
	"audio/",
	"video/",
	"application/zip",
	"application/octet-stream",
}

// ShouldVectorize 判断内容是否应写入向量库
// 纯函数：只依赖内容和元数据。不可向量化的文档只存在于关系库，
// 绝不允许出现在向量库中（一致性引擎按同样的判定做修复）
func ShouldVectorize(content string, metadata Metadata) bool {
	if metadata.GetBool(MetaKeyIsBinary) {
		return false
	}

	contentType := strings.ToLower(metadata.GetString(MetaKeyContentType))
	if nonVectorizableContentTypes[contentType] {
		return false
	}

	fileType := strings.ToLower(metadata.GetString(MetaKeyFileType))
	for _, prefix := range binaryFileTypePrefixes {
		if strings.HasPrefix(fileType, prefix) {
			return false
		}
	}

	if strings.HasPrefix(content, binaryMarkerPrefix) {
		return false
	}

	if utf8.RuneCountInString(strings.TrimSpace(content)) < minVectorizeLength {
		return false
	}

	return true
}
