package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"Outreach/backend/go/internal/config"
	"Outreach/backend/go/internal/database/kafka"
	"Outreach/backend/go/internal/database/milvus"
	"Outreach/backend/go/internal/database/minio"
	"Outreach/backend/go/internal/database/mysql"
	"Outreach/backend/go/internal/database/redis"
	"Outreach/backend/go/internal/embedding"
	"Outreach/backend/go/internal/models"
	"Outreach/backend/go/internal/rag_service/api"
	"Outreach/backend/go/internal/rag_service/jobs"
	"Outreach/backend/go/internal/rag_service/rag/classifier"
	"Outreach/backend/go/internal/rag_service/rag/dal"
	"Outreach/backend/go/internal/rag_service/rag/embeddings"
	"Outreach/backend/go/internal/rag_service/rag/interfaces"
	"Outreach/backend/go/internal/rag_service/rag/loaders"
	"Outreach/backend/go/internal/rag_service/rag/splitters"
	"Outreach/backend/go/internal/rag_service/rag/storages/docstore"
	"Outreach/backend/go/internal/rag_service/rag/storages/vectorstore"
	"Outreach/backend/go/internal/rag_service/service"
	httpserver "Outreach/backend/go/pkg/http"
	"Outreach/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger.Init(cfg.Logger.Level)
	appLogger := logger.New(cfg.App.Name, "", "")
	appLogger.WithPayload(map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("Starting RAG Service...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("RAG Service exited with error")
	}
	appLogger.Info("Servers gracefully stopped")
}

// cleanup 收集需要在退出时关闭的资源，按注册的逆序执行。
type cleanup []func()

func (c *cleanup) add(fn func()) { *c = append(*c, fn) }

func (c cleanup) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func run(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) error {
	var closers cleanup
	defer closers.run()

	var handlerOpts []api.HandlerOption
	handlerOpts = append(handlerOpts, api.WithMaxUploadBytes(cfg.Server.MaxUploadMB<<20))

	// 3. Embedding 提供商
	provider, err := newEmbeddingProvider(ctx, &cfg.Embedding)
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}
	closers.add(func() { _ = provider.Close() })

	var embedder interfaces.EmbeddingModel = embeddings.NewBatchEmbedder(provider,
		embeddings.WithDimension(cfg.Embedding.Dimension),
		embeddings.WithTimeout(cfg.Embedding.Timeout),
		embeddings.WithBatchSize(cfg.Embedding.BatchSize),
		embeddings.WithBatchDelay(cfg.Embedding.BatchDelay),
		embeddings.WithLogger(log),
	)
	if cfg.Embedding.QueryCacheSize > 0 {
		embedder = embeddings.NewQueryCache(embedder, cfg.Embedding.QueryCacheSize, cfg.Embedding.QueryCacheTTL)
	}

	// 4. 向量库
	var vectors interfaces.VectorStore
	switch cfg.VectorStore.Provider {
	case "memory":
		log.Warn("Using in-memory vector store; vectors are lost on restart")
		vectors = vectorstore.NewMemoryStore(cfg.Embedding.Dimension)
	default:
		milvusClient, err := milvus.NewClient(ctx, &cfg.Databases.Milvus)
		if err != nil {
			return fmt.Errorf("failed to connect to Milvus: %w", err)
		}
		closers.add(func() { _ = milvusClient.Close() })
		handlerOpts = append(handlerOpts, api.WithHealthCheck("milvus", milvusClient.HealthCheck))

		vectors, err = vectorstore.NewMilvusStore(milvusClient, vectorstore.MilvusOptions{
			Dimension:       cfg.Embedding.Dimension,
			UpsertBatchSize: cfg.VectorStore.UpsertBatchSize,
			Timeout:         cfg.VectorStore.Timeout,
		}, log)
		if err != nil {
			return err
		}
	}
	if err := vectors.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("failed to prepare vector index: %w", err)
	}

	// 5. 文档记录存储
	var documents interfaces.DocumentStore
	switch cfg.DocumentStore.Provider {
	case "memory":
		log.Warn("Using in-memory document store; records are lost on restart")
		documents = docstore.NewInMemoryDocumentStore()
	default:
		db, err := mysql.NewDB(&cfg.Databases.MySQL)
		if err != nil {
			return fmt.Errorf("failed to connect to MySQL: %w", err)
		}
		closers.add(func() { _ = mysql.Close(db) })
		if err := mysql.Migrate(db, &models.Document{}, &models.IngestionError{}); err != nil {
			return err
		}
		handlerOpts = append(handlerOpts, api.WithHealthCheck("mysql", func(ctx context.Context) error {
			return mysql.HealthCheck(ctx, db)
		}))
		documents = dal.NewDocumentDAL(db)
	}

	// 6. 编排服务
	splitter, err := newSplitter(&cfg.Chunking)
	if err != nil {
		return err
	}
	svc := service.NewRagService(
		loaders.NewRegistry(),
		classifier.NewKeywordClassifier(),
		splitter,
		embedder,
		vectors,
		documents,
		service.Config{TopK: cfg.Search.TopK, MinScore: cfg.Search.MinScore},
		log,
	)

	g, ctx := errgroup.WithContext(ctx)

	// 7. 异步摄取 (MinIO + Kafka + Redis)
	if cfg.Jobs.Enabled {
		opts, err := startJobs(ctx, g, cfg, svc, log, &closers)
		if err != nil {
			return err
		}
		handlerOpts = append(handlerOpts, opts...)
	}

	// 8. HTTP 服务
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv, err := httpserver.NewServer(cfg, httpserver.WithLogger(log))
	if err != nil {
		return err
	}
	var auth gin.HandlerFunc
	if cfg.Auth.Enabled {
		auth = api.AuthMiddleware(cfg.Auth.JwtSecret)
	}
	api.RegisterRoutes(srv.Engine(), api.NewHandler(svc, log, handlerOpts...), auth)

	g.Go(func() error { return srv.Run(ctx) })
	return g.Wait()
}

func newEmbeddingProvider(ctx context.Context, cfg *config.EmbeddingConfig) (embedding.Embedding, error) {
	switch embedding.ModelType(cfg.Provider) {
	case embedding.OpenAI:
		return embedding.NewEmdModel(ctx, cfg.Provider, cfg.OpenAI.Model, cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	case embedding.Ollama:
		return embedding.NewEmdModel(ctx, cfg.Provider, cfg.Ollama.Model, "", cfg.Ollama.BaseURL)
	default:
		return embedding.NewEmdModel(ctx, cfg.Provider, cfg.Gemini.Model, cfg.Gemini.APIKey, "")
	}
}

func startJobs(ctx context.Context, g *errgroup.Group, cfg *config.AppConfig, svc *service.RagService, log *logger.Logger, closers *cleanup) ([]api.HandlerOption, error) {
	minioClient, err := minio.NewClient(ctx, &cfg.Databases.MinIO)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
	}

	rdb, err := redis.NewClient(ctx, &cfg.Databases.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	closers.add(func() { _ = rdb.Close() })

	kafkaClient, err := kafka.NewClient(&cfg.Databases.Kafka)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	closers.add(func() { _ = kafkaClient.Close() })

	stager := jobs.NewStager(minioClient, cfg.Databases.MinIO.Bucket)
	status := jobs.NewStatusTracker(rdb, cfg.Jobs.StatusTTL)
	publisher := jobs.NewPublisher(stager, kafkaClient.Writer, status, log)
	worker := jobs.NewWorker(kafkaClient.Reader, stager, status, svc, cfg.Jobs.Workers, log)

	g.Go(func() error { return worker.Run(ctx) })

	return []api.HandlerOption{
		api.WithJobs(publisher),
		api.WithHealthCheck("minio", func(ctx context.Context) error { return minio.HealthCheck(ctx, minioClient) }),
		api.WithHealthCheck("redis", func(ctx context.Context) error { return redis.HealthCheck(ctx, rdb) }),
		api.WithHealthCheck("kafka", kafkaClient.HealthCheck),
	}, nil
}

func newSplitter(cfg *config.ChunkingConfig) (*splitters.CharSplitter, error) {
	if cfg.TokensPerChunk > 0 {
		return splitters.NewTokenSplitter(cfg.TokensPerChunk, cfg.OverlapTokens)
	}
	return splitters.NewCharSplitter(cfg.ChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize)
}
