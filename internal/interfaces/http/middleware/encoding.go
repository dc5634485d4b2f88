package middleware

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// EnsureUTF8Body 把非 UTF-8 的请求体转码为 UTF-8
// Windows 中文环境下 curl 等客户端可能以 GBK（代码页 936）提交文档内容，
// 直接入库会污染关系库与向量库两侧的正文。只处理文本类请求体，
// 无法识别的编码原样放行，由后续的 JSON 绑定报错
func EnsureUTF8Body() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.ContentLength == 0 || !isTextContentType(c.ContentType()) {
			c.Next()
			return
		}

		bodyBytes, err := io.ReadAll(c.Request.Body)
		c.Request.Body.Close()
		if err != nil {
			c.Next()
			return
		}

		if converted, ok := toUTF8(bodyBytes); ok {
			bodyBytes = converted
			c.Request.ContentLength = int64(len(bodyBytes))
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		c.Next()
	}
}

// isTextContentType 判断请求体是否为需要转码的文本类型
func isTextContentType(contentType string) bool {
	return contentType == "" ||
		strings.Contains(contentType, "json") ||
		strings.HasPrefix(contentType, "text/")
}

// toUTF8 尝试把字节序列转为有效 UTF-8，返回是否发生了转换
func toUTF8(data []byte) ([]byte, bool) {
	if utf8.Valid(data) {
		return data, false
	}

	reader := transform.NewReader(bytes.NewReader(data), simplifiedchinese.GBK.NewDecoder())
	converted, err := io.ReadAll(reader)
	if err != nil || !utf8.Valid(converted) {
		return data, false
	}
	return converted, true
}
