package milvus

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"Aethena/backend/go/internal/config"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

var (
	instance *MilvusClient
	once     sync.Once
	initErr  error
)

// MilvusClient 包含了 Milvus 客户端实例和相关配置。
type MilvusClient struct {
	Client client.Client        // Milvus 客户端实例。
	Config *config.MilvusConfig // Milvus 配置。
}

// GetClient 使用单例模式创建并返回一个 Milvus 客户端实例。
func GetClient(ctx context.Context, cfg *config.MilvusConfig) (*MilvusClient, error) {
	once.Do(func() {
		c, err := client.NewClient(ctx, client.Config{
			Address:  cfg.Address,
			Username: cfg.Username,
			Password: cfg.Password,
		})
		if err != nil {
			initErr = fmt.Errorf("无法连接到 Milvus: %w", err)
			return
		}
		log.Println("✅ 成功连接到 Milvus!")
		instance = &MilvusClient{Client: c, Config: cfg}
	})
	return instance, initErr
}

// Close 安全地关闭与 Milvus 的连接。
func (c *MilvusClient) Close() {
	if c.Client != nil {
		c.Client.Close()
		log.Println("ℹ️ 已安全关闭 Milvus 连接。")
	}
}

// HealthCheck 检查 Milvus 连接的健康状况。
func (c *MilvusClient) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("Milvus client is nil")
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("Milvus health check failed: %w", err)
	}
	return nil
}

// MetricType 返回配置中的相似度度量, 默认 COSINE。
func MetricType(cfg config.IndexConfig) entity.MetricType {
	switch strings.ToUpper(cfg.MetricType) {
	case "L2":
		return entity.L2
	case "IP":
		return entity.IP
	default:
		return entity.COSINE
	}
}

// BuildIndex 根据配置构建向量索引实体。
func BuildIndex(cfg config.IndexConfig) (entity.Index, error) {
	metricType := MetricType(cfg)
	param := func(name string, def int) int {
		if v, ok := cfg.Params[name]; ok && v > 0 {
			return v
		}
		return def
	}

	switch strings.ToUpper(cfg.IndexType) {
	case "FLAT":
		return entity.NewIndexFlat(metricType)
	case "IVF_FLAT":
		return entity.NewIndexIvfFlat(metricType, param("nlist", 128))
	case "", "HNSW":
		return entity.NewIndexHNSW(metricType, param("M", 8), param("efConstruction", 96))
	case "IVF_SQ8":
		return entity.NewIndexIvfSQ8(metricType, param("nlist", 128))
	case "IVF_PQ":
		return entity.NewIndexIvfPQ(metricType, param("nlist", 128), param("m", 16), param("nbits", 8))
	case "AUTOINDEX":
		return entity.NewIndexAUTOINDEX(metricType)
	default:
		return nil, fmt.Errorf("不支持的索引类型: %s", cfg.IndexType)
	}
}

// BuildSearchParam 构建与索引类型匹配的搜索参数。
func BuildSearchParam(cfg config.IndexConfig) (entity.SearchParam, error) {
	nprobe := cfg.SearchNprobe
	if nprobe <= 0 {
		nprobe = 16
	}
	switch strings.ToUpper(cfg.IndexType) {
	case "FLAT":
		return entity.NewIndexFlatSearchParam()
	case "IVF_FLAT":
		return entity.NewIndexIvfFlatSearchParam(nprobe)
	case "", "HNSW":
		ef := cfg.SearchEf
		if ef <= 0 {
			ef = 64
		}
		return entity.NewIndexHNSWSearchParam(ef)
	case "IVF_SQ8":
		return entity.NewIndexIvfSQ8SearchParam(nprobe)
	case "IVF_PQ":
		return entity.NewIndexIvfPQSearchParam(nprobe)
	case "AUTOINDEX":
		return entity.NewIndexAUTOINDEXSearchParam(1)
	default:
		return nil, fmt.Errorf("不支持的索引类型: %s", cfg.IndexType)
	}
}
