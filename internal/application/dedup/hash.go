package dedup

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// hashChunkSize 文件哈希计算的单次读取大小
const hashChunkSize = 4096

// HashFile 计算文件内容的 MD5 哈希，分块读取以控制内存占用
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hasher := md5.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(hasher, file, buf); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashBytes 计算字节内容的 MD5 哈希
func HashBytes(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
