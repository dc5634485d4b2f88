package reconcile

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/docbridge/backend/internal/application/dedup"
	"github.com/docbridge/backend/internal/domain/reconcile"
)

// Scan 递归扫描监控目录，收集受支持的文件及其内容哈希
// 任一目录不可读视为致命错误，单个文件读取失败只跳过该文件
func Scan(dirs []string) ([]reconcile.FileInfo, []string, error) {
	var files []reconcile.FileInfo
	var skipped []string

	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() {
				return nil
			}
			if !reconcile.IsSupportedFile(path) {
				return nil
			}

			info, err := entry.Info()
			if err != nil {
				skipped = append(skipped, fmt.Sprintf("stat %s: %v", path, err))
				return nil
			}

			hash, err := dedup.HashFile(path)
			if err != nil {
				skipped = append(skipped, fmt.Sprintf("hash %s: %v", path, err))
				return nil
			}

			files = append(files, reconcile.FileInfo{
				Path:         path,
				Size:         info.Size(),
				ModifiedTime: info.ModTime(),
				Hash:         hash,
			})
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to walk directory %s: %w", dir, err)
		}
	}

	return files, skipped, nil
}
