package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// 环境变量名
const (
	// EnvHTTPPort HTTP 端口
	EnvHTTPPort = "DOCBRIDGE_HTTP_PORT"
	// EnvEmbeddingAPIKey Embedding API Key
	EnvEmbeddingAPIKey = "DOCBRIDGE_EMBEDDING_API_KEY"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Vector    VectorConfig    `yaml:"vector"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Watcher   WatcherConfig   `yaml:"watcher"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTPPort string `yaml:"http_port"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Path SQLite 数据库路径，留空表示使用数据目录下的默认路径
	Path string `yaml:"path"`
}

// VectorConfig 向量库配置
type VectorConfig struct {
	// Host Qdrant 主机
	Host string `yaml:"host"`
	// GRPCPort Qdrant gRPC 端口
	GRPCPort int `yaml:"grpc_port"`
	// CollectionName 默认集合名
	CollectionName string `yaml:"collection_name"`
	// VectorSize 向量维度
	VectorSize uint64 `yaml:"vector_size"`
}

// EmbeddingConfig Embedding API 配置
type EmbeddingConfig struct {
	// BaseURL OpenAI 兼容 API 地址
	BaseURL string `yaml:"base_url"`
	// APIKey API Key，优先读取环境变量
	APIKey string `yaml:"api_key"`
	// Model 模型名称
	Model string `yaml:"model"`
	// MaxTokens 单条文本的 token 上限，超出部分截断
	MaxTokens int `yaml:"max_tokens"`
}

// ReconcileConfig 对账默认配置
// 运行期可变的部分（调度时间、delete_missing、batch_size、监控目录）
// 存放在 app_settings 表中，这里只是首次启动的默认值
type ReconcileConfig struct {
	DefaultSchedule  string `yaml:"default_schedule"`
	DefaultBatchSize int    `yaml:"default_batch_size"`
}

// WatcherConfig 文件监听配置
type WatcherConfig struct {
	Enabled       bool          `yaml:"enabled"`
	DebounceDelay time.Duration `yaml:"debounce_delay"`
}

// NewConfig 创建配置
// 默认值 + 数据目录下 config.yaml 覆盖 + 环境变量覆盖
func NewConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			HTTPPort: ":18520",
		},
		Database: DatabaseConfig{
			Path: "",
		},
		Vector: VectorConfig{
			Host:           "localhost",
			GRPCPort:       6334,
			CollectionName: "documents",
			VectorSize:     1536,
		},
		Embedding: EmbeddingConfig{
			BaseURL:   "https://api.openai.com",
			Model:     "text-embedding-3-small",
			MaxTokens: 8000,
		},
		Reconcile: ReconcileConfig{
			DefaultSchedule:  "03:00",
			DefaultBatchSize: 100,
		},
		Watcher: WatcherConfig{
			Enabled:       true,
			DebounceDelay: 500 * time.Millisecond,
		},
	}

	// 数据目录下的 config.yaml 覆盖默认值（不存在时静默忽略）
	configPath := filepath.Join(GetDataDir(), "config.yaml")
	if data, err := os.ReadFile(configPath); err == nil {
		_ = yaml.Unmarshal(data, cfg)
	}

	// 环境变量覆盖
	if port := os.Getenv(EnvHTTPPort); port != "" {
		cfg.Server.HTTPPort = port
	}
	if key := os.Getenv(EnvEmbeddingAPIKey); key != "" {
		cfg.Embedding.APIKey = key
	}

	return cfg
}

// NewDatabaseConfig 创建数据库配置
func NewDatabaseConfig(cfg *Config) *DatabaseConfig {
	return &cfg.Database
}

// NewServerConfig 创建服务器配置
func NewServerConfig(cfg *Config) *ServerConfig {
	return &cfg.Server
}

// NewVectorConfig 创建向量库配置
func NewVectorConfig(cfg *Config) *VectorConfig {
	return &cfg.Vector
}

// NewEmbeddingConfig 创建 Embedding 配置
func NewEmbeddingConfig(cfg *Config) *EmbeddingConfig {
	return &cfg.Embedding
}

// NewReconcileConfig 创建对账配置
func NewReconcileConfig(cfg *Config) *ReconcileConfig {
	return &cfg.Reconcile
}

// NewWatcherConfig 创建文件监听配置
func NewWatcherConfig(cfg *Config) *WatcherConfig {
	return &cfg.Watcher
}
