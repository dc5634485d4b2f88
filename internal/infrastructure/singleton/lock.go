package singleton

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"
)

const (
	// DefaultPort 默认监听端口
	DefaultPort = ":18520"
	// HealthCheckTimeout 健康检查超时时间
	HealthCheckTimeout = 2 * time.Second
)

// CheckAndLock 通过监听端口实现单实例锁
// 端口可用时返回 listener（调用者关闭后由 HTTP 服务器接管监听）；
// 端口被健康的实例占用时返回 (nil, nil)，调用者应直接退出；
// 端口被占用但健康检查失败时返回错误
func CheckAndLock(port string) (net.Listener, error) {
	listener, err := net.Listen("tcp", port)
	if err == nil {
		return listener, nil
	}

	if !isAddrInUse(err) {
		return nil, fmt.Errorf("failed to listen on %s: %w", port, err)
	}

	if isInstanceHealthy(port) {
		return nil, nil
	}
	return nil, fmt.Errorf("port %s is occupied but the health check failed", port)
}

// isAddrInUse 判断监听失败是否由端口占用导致
func isAddrInUse(err error) bool {
	if errors.Is(err, syscall.EADDRINUSE) {
		return true
	}
	// Windows 的 WSAEADDRINUSE 不映射到 syscall.EADDRINUSE
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == 10048
	}
	return false
}

// isInstanceHealthy 探测占用端口的进程是否是健康的服务实例
func isInstanceHealthy(port string) bool {
	client := &http.Client{Timeout: HealthCheckTimeout}

	resp, err := client.Get(fmt.Sprintf("http://localhost%s/health", port))
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false
	}
	return body.Status == "ok"
}
