package config

import (
	"fmt"
	"os"
	"time"
)

// 默认值
const (
	DefaultChunkSize       = 800
	DefaultChunkOverlap    = 100
	DefaultMinChunkSize    = 100
	DefaultTopK            = 5
	DefaultMinScore        = float32(0.7)
	DefaultDimension       = 768
	DefaultUpsertBatchSize = 100
	DefaultCollectionName  = "outreach_knowledge"

	// MaxChunkSize 为单个分块的字符上限：向量库 text 列最多 16384 字节，每个字符最多 4 字节。
	MaxChunkSize = 16384 / 4
)

// ApplyEnv 使用环境变量覆盖敏感配置，环境变量为空时保持文件中的值。
func (c *AppConfig) ApplyEnv() {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&c.Embedding.Gemini.APIKey, "GEMINI_API_KEY")
	override(&c.Embedding.OpenAI.APIKey, "OPENAI_API_KEY")
	override(&c.Auth.JwtSecret, "JWT_SECRET")
	override(&c.Databases.MySQL.Password, "MYSQL_PASSWORD")
	override(&c.Databases.Redis.Password, "REDIS_PASSWORD")
	override(&c.Databases.MinIO.SecretKey, "MINIO_SECRET_KEY")
	override(&c.Databases.Milvus.Address, "MILVUS_ADDRESS")
}

// ApplyDefaults 为未配置的字段填充默认值。
func (c *AppConfig) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "rag_service"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}

	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 5 * time.Minute
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 25
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 3600
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "gemini"
	}
	if c.Embedding.Dimension == 0 {
		c.Embedding.Dimension = DefaultDimension
	}
	if c.Embedding.Timeout == 0 {
		c.Embedding.Timeout = 30 * time.Second
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = 5
	}
	if c.Embedding.BatchDelay == 0 {
		c.Embedding.BatchDelay = 100 * time.Millisecond
	}

	if c.Chunking.ChunkSize == 0 {
		c.Chunking.ChunkSize = DefaultChunkSize
	}
	if c.Chunking.ChunkOverlap == 0 {
		c.Chunking.ChunkOverlap = DefaultChunkOverlap
	}
	if c.Chunking.MinChunkSize == 0 {
		c.Chunking.MinChunkSize = DefaultMinChunkSize
	}

	if c.Search.TopK == 0 {
		c.Search.TopK = DefaultTopK
	}
	if c.Search.MinScore == nil {
		s := DefaultMinScore
		c.Search.MinScore = &s
	}

	if c.VectorStore.Provider == "" {
		c.VectorStore.Provider = "milvus"
	}
	if c.VectorStore.Timeout == 0 {
		c.VectorStore.Timeout = 30 * time.Second
	}
	if c.VectorStore.UpsertBatchSize == 0 {
		c.VectorStore.UpsertBatchSize = DefaultUpsertBatchSize
	}
	if c.DocumentStore.Provider == "" {
		c.DocumentStore.Provider = "mysql"
	}

	if c.Jobs.StatusTTL == 0 {
		c.Jobs.StatusTTL = 24 * time.Hour
	}
	if c.Jobs.Workers == 0 {
		c.Jobs.Workers = 1
	}

	m := &c.Databases.Milvus
	if m.CollectionName == "" {
		m.CollectionName = DefaultCollectionName
	}
	if m.Index.IndexType == "" {
		m.Index.IndexType = "HNSW"
	}
	if m.Index.MetricType == "" {
		m.Index.MetricType = "COSINE"
	}
	if m.Index.SearchEf == 0 {
		m.Index.SearchEf = 64
	}
	if m.SettleDelay == 0 {
		m.SettleDelay = 2 * time.Second
	}

	k := &c.Databases.Kafka
	if k.IngestTopic == "" {
		k.IngestTopic = "rag_ingest_jobs"
	}
	if k.GroupID == "" {
		k.GroupID = "rag-ingest-workers"
	}
	if c.Databases.MinIO.Bucket == "" {
		c.Databases.MinIO.Bucket = "rag-uploads"
	}
}

// Validate 检查配置之间的约束。
func (c *AppConfig) Validate() error {
	ch := c.Chunking
	if ch.TokensPerChunk > 0 && ch.OverlapTokens >= ch.TokensPerChunk {
		return fmt.Errorf("chunking.overlapTokens (%d) 必须小于 tokensPerChunk (%d)", ch.OverlapTokens, ch.TokensPerChunk)
	}
	if ch.TokensPerChunk*4 > MaxChunkSize {
		return fmt.Errorf("chunking.tokensPerChunk (%d) 超过上限 %d", ch.TokensPerChunk, MaxChunkSize/4)
	}
	if ch.ChunkSize > MaxChunkSize {
		return fmt.Errorf("chunking.chunkSize (%d) 超过上限 %d", ch.ChunkSize, MaxChunkSize)
	}
	if ch.ChunkOverlap >= ch.ChunkSize {
		return fmt.Errorf("chunking.chunkOverlap (%d) 必须小于 chunkSize (%d)", ch.ChunkOverlap, ch.ChunkSize)
	}
	if ch.MinChunkSize > ch.ChunkSize {
		return fmt.Errorf("chunking.minChunkSize (%d) 不能大于 chunkSize (%d)", ch.MinChunkSize, ch.ChunkSize)
	}
	switch c.VectorStore.Provider {
	case "milvus", "memory":
	default:
		return fmt.Errorf("不支持的 vectorStore.provider: %s", c.VectorStore.Provider)
	}
	switch c.DocumentStore.Provider {
	case "mysql", "memory":
	default:
		return fmt.Errorf("不支持的 documentStore.provider: %s", c.DocumentStore.Provider)
	}
	if c.Auth.Enabled && c.Auth.JwtSecret == "" {
		return fmt.Errorf("auth.enabled 为 true 时必须配置 jwtSecret")
	}
	if c.Jobs.Enabled && len(c.Databases.Kafka.Brokers) == 0 {
		return fmt.Errorf("jobs.enabled 为 true 时必须配置 kafka brokers")
	}
	return nil
}
