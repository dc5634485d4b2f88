package embedding

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// 在包初始化时设置离线加载器
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// 编码器单例
var (
	encodingInstance *tiktoken.Tiktoken
	encodingOnce     sync.Once
	encodingErr      error
)

// getEncoding 获取 cl100k_base 编码器单例
// 使用单例模式避免重复加载编码文件
func getEncoding() (*tiktoken.Tiktoken, error) {
	encodingOnce.Do(func() {
		encodingInstance, encodingErr = tiktoken.GetEncoding("cl100k_base")
	})
	return encodingInstance, encodingErr
}

// TokenTruncator 按 Token 数截断文本
// Embedding API 对单条输入有 Token 上限，超长文本直接截断而不是报错
type TokenTruncator struct {
	maxTokens int
}

// NewTokenTruncator 创建截断器，maxTokens <= 0 表示不截断
func NewTokenTruncator(maxTokens int) *TokenTruncator {
	return &TokenTruncator{maxTokens: maxTokens}
}

// Truncate 截断单条文本
func (t *TokenTruncator) Truncate(text string) (string, error) {
	if t.maxTokens <= 0 || text == "" {
		return text, nil
	}

	enc, err := getEncoding()
	if err != nil {
		return "", err
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= t.maxTokens {
		return text, nil
	}

	return enc.Decode(tokens[:t.maxTokens]), nil
}

// TruncateAll 截断一组文本，结果与输入等长同序
func (t *TokenTruncator) TruncateAll(texts []string) ([]string, error) {
	if t.maxTokens <= 0 {
		return texts, nil
	}

	truncated := make([]string, len(texts))
	for i, text := range texts {
		result, err := t.Truncate(text)
		if err != nil {
			return nil, err
		}
		truncated[i] = result
	}

	return truncated, nil
}

// CountTokens 计算文本的 Token 数量
func CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	enc, err := getEncoding()
	if err != nil {
		return 0, err
	}

	return len(enc.Encode(text, nil, nil)), nil
}
