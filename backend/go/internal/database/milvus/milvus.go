package milvus

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"Outreach/backend/go/internal/config"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// MilvusClient 包含了 Milvus 客户端实例和相关配置。
type MilvusClient struct {
	Client client.Client        // Milvus 客户端实例。
	Config *config.MilvusConfig // Milvus 配置。
}

// NewClient 创建一个新的 Milvus 客户端。调用方负责在退出时调用 Close。
func NewClient(ctx context.Context, cfg *config.MilvusConfig) (*MilvusClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("未配置 Milvus 地址")
	}
	c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("无法连接到 Milvus: %w", err)
	}
	return &MilvusClient{Client: c, Config: cfg}, nil
}

// Close 安全地关闭与 Milvus 的连接。
func (c *MilvusClient) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
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

// EnsureCollection 确保集合存在并已加载。
// 集合不存在时按给定 schema 创建，在 vectorField 上建立索引，等待 SettleDelay 后再加载。
// 返回值 created 表示本次调用是否新建了集合。
func (c *MilvusClient) EnsureCollection(ctx context.Context, schema *entity.Schema, vectorField string) (bool, error) {
	collName := schema.CollectionName
	exists, err := c.Client.HasCollection(ctx, collName)
	if err != nil {
		return false, fmt.Errorf("检查集合是否存在时出错: %w", err)
	}

	if !exists {
		if err := c.Client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return false, fmt.Errorf("创建集合失败: %w", err)
		}
		idx, err := c.BuildIndex()
		if err != nil {
			return false, err
		}
		if err := c.Client.CreateIndex(ctx, collName, vectorField, idx, false); err != nil {
			return false, fmt.Errorf("为字段 '%s' 创建索引失败: %w", vectorField, err)
		}

		// 新集合需要一段时间才能对外可用。
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(c.Config.SettleDelay):
		}
	}

	if err := c.Client.LoadCollection(ctx, collName, false); err != nil {
		return !exists, fmt.Errorf("加载 Milvus 集合 '%s' 失败: %w", collName, err)
	}
	return !exists, nil
}

// RowCount 返回集合中已持久化的实体数量。
func (c *MilvusClient) RowCount(ctx context.Context, collName string) (int64, error) {
	stats, err := c.Client.GetCollectionStatistics(ctx, collName)
	if err != nil {
		return 0, fmt.Errorf("获取集合 '%s' 统计信息失败: %w", collName, err)
	}
	raw, ok := stats["row_count"]
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("无法解析 row_count '%s': %w", raw, err)
	}
	return n, nil
}

// MetricType 返回配置中的相似度度量类型。
func (c *MilvusClient) MetricType() entity.MetricType {
	return entity.MetricType(c.Config.Index.MetricType)
}

// BuildIndex 根据配置构建索引实体。
func (c *MilvusClient) BuildIndex() (entity.Index, error) {
	return buildIndex(c.Config.Index)
}

// SearchParam 根据索引类型构建检索参数。HNSW 的 ef 不会小于 topK。
func (c *MilvusClient) SearchParam(topK int) (entity.SearchParam, error) {
	return buildSearchParam(c.Config.Index, topK)
}

func buildIndex(cfg config.IndexConfig) (entity.Index, error) {
	metricType := entity.MetricType(cfg.MetricType)
	param := func(name string, def int) int {
		if v, ok := cfg.Params[name]; ok && v > 0 {
			return v
		}
		return def
	}

	switch cfg.IndexType {
	case "HNSW":
		return entity.NewIndexHNSW(metricType, param("M", 16), param("efConstruction", 200))
	case "IVF_FLAT":
		return entity.NewIndexIvfFlat(metricType, param("nlist", 128))
	case "AUTOINDEX":
		return entity.NewIndexAUTOINDEX(metricType)
	default:
		return nil, fmt.Errorf("不支持的索引类型: %s", cfg.IndexType)
	}
}

func buildSearchParam(cfg config.IndexConfig, topK int) (entity.SearchParam, error) {
	switch cfg.IndexType {
	case "HNSW":
		ef := cfg.SearchEf
		if ef <= 0 {
			ef = 64
		}
		// Milvus 拒绝 ef < k 的 HNSW 检索
		ef = max(ef, topK)
		return entity.NewIndexHNSWSearchParam(ef)
	case "IVF_FLAT":
		lists := cfg.Params["nprobe"]
		if lists <= 0 {
			lists = 16
		}
		return entity.NewIndexIvfFlatSearchParam(lists)
	case "AUTOINDEX":
		return entity.NewIndexAUTOINDEXSearchParam(1)
	default:
		return nil, fmt.Errorf("不支持的索引类型: %s", cfg.IndexType)
	}
}
