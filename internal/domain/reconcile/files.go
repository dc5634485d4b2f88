package reconcile

import (
	"path/filepath"
	"strings"
)

// supportedExtensions 参与对账与监控的文件扩展名
var supportedExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".md":   true,
	".json": true,
	".csv":  true,
}

// IsSupportedFile 判断文件是否属于受支持的文档类型
func IsSupportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return supportedExtensions[ext]
}

// SupportedExtensions 返回受支持的扩展名列表
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedExtensions))
	for ext := range supportedExtensions {
		exts = append(exts, ext)
	}
	return exts
}
