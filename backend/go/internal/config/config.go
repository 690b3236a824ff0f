package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// ServerConfig 定义了 HTTP 服务的监听配置。
type ServerConfig struct {
	Address         string        `yaml:"address"`         // 监听地址 (例如: ":8080")
	ReadTimeout     time.Duration `yaml:"readTimeout"`     // 读取请求超时
	WriteTimeout    time.Duration `yaml:"writeTimeout"`    // 写响应超时，需要覆盖一次完整的同步摄取
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"` // 优雅关闭的最长等待时间
	MaxUploadMB     int64         `yaml:"maxUploadMB"`     // 单个上传文件的大小上限 (MB)
}

// AuthConfig 用于配置认证相关设置。
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`   // 是否对文档管理接口启用 JWT 校验
	JwtSecret string `yaml:"jwtSecret"` // JWT 密钥
	TokenTTL  int    `yaml:"tokenTTL"`  // JWT 令牌的有效期（秒）
}

// GeminiConfig 包含了 Gemini 模型的配置。
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"` // Gemini API 密钥
	Model  string `yaml:"model"`  // Gemini 模型名称
}

// OpenAIConfig 包含了 OpenAI 兼容接口的配置。
type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseURL"`
}

// OllamaConfig 包含了本地 Ollama 服务的配置。
type OllamaConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseURL"`
}

// EmbeddingConfig 包含了不同 Embedding 提供商的配置以及批处理策略。
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider"`   // Embedding提供商 ("gemini", "openai", "ollama")
	Dimension  int           `yaml:"dimension"`  // 向量维度，必须与向量库一致
	Timeout    time.Duration `yaml:"timeout"`    // 单次调用超时
	BatchSize  int           `yaml:"batchSize"`  // 每个子批次并发的条数
	BatchDelay time.Duration `yaml:"batchDelay"` // 子批次之间的间隔
	// 查询向量缓存，QueryCacheSize 为 0 时关闭
	QueryCacheSize int           `yaml:"queryCacheSize"`
	QueryCacheTTL  time.Duration `yaml:"queryCacheTTL"`
	Gemini         GeminiConfig  `yaml:"gemini"`
	OpenAI         OpenAIConfig  `yaml:"openai"`
	Ollama         OllamaConfig  `yaml:"ollama"`
}

// ChunkingConfig 定义了分块参数 (字符数)。
// TokensPerChunk 大于 0 时按 token 估算分块大小，ChunkSize 与 ChunkOverlap 被忽略。
type ChunkingConfig struct {
	ChunkSize      int `yaml:"chunkSize"`
	ChunkOverlap   int `yaml:"chunkOverlap"`
	MinChunkSize   int `yaml:"minChunkSize"`
	TokensPerChunk int `yaml:"tokensPerChunk"`
	OverlapTokens  int `yaml:"overlapTokens"`
}

// SearchConfig 定义了检索的默认参数。
type SearchConfig struct {
	TopK     int      `yaml:"topK"`
	MinScore *float32 `yaml:"minScore"` // 指针类型，以便区分显式的 0 与未配置
}

// VectorStoreConfig 选择向量库实现。
type VectorStoreConfig struct {
	Provider        string        `yaml:"provider"`        // "milvus" 或 "memory"
	Timeout         time.Duration `yaml:"timeout"`         // 单次向量库调用超时
	UpsertBatchSize int           `yaml:"upsertBatchSize"` // 每次 upsert 的最大条数
}

// DocumentStoreConfig 选择文档记录存储实现。
type DocumentStoreConfig struct {
	Provider string `yaml:"provider"` // "mysql" 或 "memory"
}

// JobsConfig 定义了异步摄取任务的配置。
type JobsConfig struct {
	Enabled   bool          `yaml:"enabled"`   // 是否启用 MinIO + Kafka + Redis 的异步摄取
	StatusTTL time.Duration `yaml:"statusTTL"` // Redis 中任务状态的保留时间
	Workers   int           `yaml:"workers"`   // 消费者 goroutine 数量
}

// IndexConfig 定义了 Milvus 集合中索引的配置。
type IndexConfig struct {
	IndexType  string         `yaml:"indexType"`  // 索引类型 (例如: "HNSW", "IVF_FLAT", "AUTOINDEX")
	MetricType string         `yaml:"metricType"` // 相似度度量类型 (例如: "COSINE", "L2")
	Params     map[string]int `yaml:"params"`     // 索引参数 (例如: {"M": 16, "efConstruction": 200})
	SearchEf   int            `yaml:"searchEf"`   // HNSW 检索参数 ef
}

// MilvusConfig 定义了 Milvus 数据库的连接和集合配置。
type MilvusConfig struct {
	Address        string        `yaml:"address"`        // Milvus 服务地址
	CollectionName string        `yaml:"collectionName"` // 集合名称
	Description    string        `yaml:"description"`    // 集合描述
	Index          IndexConfig   `yaml:"index"`          // 索引配置
	SettleDelay    time.Duration `yaml:"settleDelay"`    // 新建集合后等待其可用的时间
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MySQLConfig 定义了 MySQL 数据库的连接配置。
type MySQLConfig struct {
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
}

// MinIOConfig 定义了 MinIO 对象存储的连接配置。
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`  // MinIO 服务端点
	AccessKey string `yaml:"accessKey"` // 访问密钥
	SecretKey string `yaml:"secretKey"` // Secret 密钥
	Bucket    string `yaml:"bucket"`    // 上传暂存桶名称
	Secure    bool   `yaml:"secure"`    // 是否使用HTTPS
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`     // Kafka Broker 地址列表
	IngestTopic string   `yaml:"ingestTopic"` // 摄取任务主题
	GroupID     string   `yaml:"groupID"`     // 消费者组
}

// DatabaseConfigs 包含所有数据库的配置。
type DatabaseConfigs struct {
	Milvus MilvusConfig `yaml:"milvus"` // Milvus 数据库配置
	Redis  RedisConfig  `yaml:"redis"`  // Redis 数据库配置
	MySQL  MySQLConfig  `yaml:"mysql"`  // MySQL 数据库配置
	MinIO  MinIOConfig  `yaml:"minio"`  // MinIO 对象存储配置
	Kafka  KafkaConfig  `yaml:"kafka"`  // Kafka 消息队列配置
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了限流器的配置。
type RateLimiterConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Algorithm   string            `yaml:"algorithm"` // 支持: "fixedWindow", "tokenBucket"
	PerClient   bool              `yaml:"perClient"` // 是否按客户端 IP 分别限流
	FixedWindow FixedWindowConfig `yaml:"fixedWindow"`
	TokenBucket TokenBucketConfig `yaml:"tokenBucket"`
}

// FixedWindowConfig 定义了固定窗口计数器算法的配置。
type FixedWindowConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"` // 例如: "1m", "30s"
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App           AppInfo             `yaml:"app"`
	Logger        LoggerConfig        `yaml:"logger"`
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Chunking      ChunkingConfig      `yaml:"chunking"`
	Search        SearchConfig        `yaml:"search"`
	VectorStore   VectorStoreConfig   `yaml:"vectorStore"`
	DocumentStore DocumentStoreConfig `yaml:"documentStore"`
	Jobs          JobsConfig          `yaml:"jobs"`
	Databases     DatabaseConfigs     `yaml:"databases"`
	Middleware    MiddlewareConfig    `yaml:"middleware"`
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件，
// 之后依次应用环境变量覆盖、默认值并校验。
//
// 参数:
//
//	path: YAML 配置文件的路径。
//
// 返回值:
//
//	*AppConfig: 解析后的应用程序配置结构体。
//	error: 如果文件读取、解析或校验失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	return Parse(yamlFile)
}

// Parse 从内存中的 YAML 内容构建配置。
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.ApplyEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
