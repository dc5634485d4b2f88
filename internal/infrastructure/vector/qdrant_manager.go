package vector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/docbridge/backend/internal/infrastructure/config"
	"github.com/docbridge/backend/internal/infrastructure/log"
)

// defaultOpTimeout 单次向量库操作的超时时间
// 向量库是派生索引，操作失败时快速返回，不拖垮关系库路径
const defaultOpTimeout = 10 * time.Second

// QdrantManager Qdrant 连接管理器
type QdrantManager struct {
	host       string
	grpcPort   int
	vectorSize uint64
	client     *qdrant.Client
	logger     *slog.Logger
}

// NewQdrantManager 创建 Qdrant 连接管理器
func NewQdrantManager(cfg *config.VectorConfig) *QdrantManager {
	return &QdrantManager{
		host:       cfg.Host,
		grpcPort:   cfg.GRPCPort,
		vectorSize: uint64(cfg.VectorSize),
		logger:     log.NewModuleLogger("vector", "manager"),
	}
}

// Connect 建立 Qdrant 连接
func (q *QdrantManager) Connect() error {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: q.host,
		Port: q.grpcPort,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	q.client = client
	q.logger.Info("Connected to qdrant", "host", q.host, "grpc_port", q.grpcPort)

	return nil
}

// Close 关闭连接
func (q *QdrantManager) Close() error {
	if q.client != nil {
		q.client.Close()
		q.client = nil
	}
	return nil
}

// GetClient 获取 Qdrant 客户端
func (q *QdrantManager) GetClient() *qdrant.Client {
	return q.client
}

// WaitForReady 等待 Qdrant 服务就绪
func (q *QdrantManager) WaitForReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		client, err := qdrant.NewClient(&qdrant.Config{
			Host: q.host,
			Port: q.grpcPort,
		})
		if err == nil {
			// 测试连接：尝试列出集合
			_, err = client.ListCollections(context.Background())
			if err == nil {
				client.Close()
				return nil
			}
			client.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for qdrant to be ready")
}

// EnsureCollection 确保集合存在，不存在时按余弦距离创建
func (q *QdrantManager) EnsureCollection(ctx context.Context, name string) error {
	if q.client == nil {
		return fmt.Errorf("qdrant client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	q.logger.Info("Collection created", "collection", name, "vector_size", q.vectorSize)

	return nil
}
