package log

import (
	"os"
	"strconv"
	"strings"
)

// 日志相关环境变量
const (
	EnvLogLevel  = "DOCBRIDGE_LOG_LEVEL"
	EnvLogFormat = "DOCBRIDGE_LOG_FORMAT"
	EnvLogSource = "DOCBRIDGE_LOG_SOURCE"
	EnvMode      = "DOCBRIDGE_ENV"
)

// Config 日志配置
type Config struct {
	// Level 日志级别：debug, info, warn, error
	Level string `json:"level"`

	// Format 日志格式：console, json
	Format string `json:"format"`

	// AddSource 是否输出源文件位置
	AddSource bool `json:"add_source"`
}

// NewConfigFromEnv 从环境变量创建配置
// DOCBRIDGE_ENV=development 时强制 debug 级别并输出源文件位置
func NewConfigFromEnv() *Config {
	cfg := &Config{
		Level:     envWithDefault(EnvLogLevel, "info"),
		Format:    envWithDefault(EnvLogFormat, "console"),
		AddSource: envBool(EnvLogSource, false),
	}

	if strings.EqualFold(os.Getenv(EnvMode), "development") {
		cfg.Level = "debug"
		cfg.Format = "console"
		cfg.AddSource = true
	}

	return cfg
}

func envWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
