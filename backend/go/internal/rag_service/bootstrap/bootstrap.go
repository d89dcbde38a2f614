// Package bootstrap 根据配置组装 RAG 服务的全部依赖, 供 HTTP 服务、入库 worker 和 MCP 服务共用。
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"Aethena/backend/go/internal/config"
	dbkafka "Aethena/backend/go/internal/database/kafka"
	"Aethena/backend/go/internal/database/milvus"
	"Aethena/backend/go/internal/database/minio"
	"Aethena/backend/go/internal/database/mongo"
	"Aethena/backend/go/internal/database/mysql"
	"Aethena/backend/go/internal/database/redis"
	"Aethena/backend/go/internal/embedding"
	"Aethena/backend/go/internal/llm"
	"Aethena/backend/go/internal/rag_service/events"
	"Aethena/backend/go/internal/rag_service/rag/dal"
	"Aethena/backend/go/internal/rag_service/rag/embeddings"
	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/llms"
	"Aethena/backend/go/internal/rag_service/rag/loaders"
	"Aethena/backend/go/internal/rag_service/rag/pipeline"
	"Aethena/backend/go/internal/rag_service/rag/splitters"
	"Aethena/backend/go/internal/rag_service/rag/storages/blobstore"
	"Aethena/backend/go/internal/rag_service/rag/storages/historystore"
	"Aethena/backend/go/internal/rag_service/rag/storages/jobstore"
	"Aethena/backend/go/internal/rag_service/rag/storages/vectorstore"
	"Aethena/backend/go/internal/rag_service/service"
	"Aethena/backend/go/pkg/circuitbreaker"
	"Aethena/backend/go/pkg/logger"
)

// App 持有组装完成的服务以及需要在退出时释放的资源。
type App struct {
	Config   *config.AppConfig
	Server   *service.Server
	Indexing *pipeline.IndexingPipeline
	Jobs     interfaces.JobTracker
	Kafka    *dbkafka.KafkaClient // 未配置 brokers 时为 nil
	Events   *events.IngestPublisher

	closers []func() error
	log     *logger.Logger
}

// Build 按配置连接各个后端并构建服务。任何一步失败都会释放已打开的连接。
func Build(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (*App, error) {
	app := &App{Config: cfg, log: log}
	if err := app.build(ctx, cfg, log); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (app *App) build(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) error {
	checks := make(map[string]service.HealthCheck)

	if err := loaders.SetLicenseKey(cfg.Office.LicenseKey); err != nil {
		return err
	}

	// 1. 元数据库
	db, err := mysql.GetDB(&cfg.Databases.MySQL)
	if err != nil {
		return err
	}
	app.closers = append(app.closers, mysql.Close)
	checks["mysql"] = mysql.HealthCheck
	files := dal.NewFileDAL(db)

	// 2. 对象存储
	mc, err := minio.GetClient(&cfg.Databases.MinIO)
	if err != nil {
		return err
	}
	bucket := cfg.Databases.MinIO.Bucket
	checks["minio"] = func(ctx context.Context) error { return minio.HealthCheck(ctx, bucket) }
	blobs := blobstore.NewMinioStore(mc, bucket)

	// 3. 问答历史
	var history interfaces.HistoryRecorder
	switch cfg.History.Backend {
	case "mongo":
		client, err := mongo.GetClient(&cfg.Databases.MongoDB)
		if err != nil {
			return err
		}
		app.closers = append(app.closers, func() error { return mongo.Close(context.Background()) })
		checks["mongodb"] = mongo.HealthCheck
		coll := client.Database(cfg.Databases.MongoDB.Database).Collection(cfg.Databases.MongoDB.Collection)
		if err := mongo.EnsureHistoryIndexes(ctx, coll); err != nil {
			return err
		}
		history = historystore.NewMongoStore(coll)
	default:
		history = dal.NewHistoryDAL(db)
	}

	// 4. 向量索引
	var index interfaces.VectorIndex
	switch cfg.VectorStore.Provider {
	case "memory":
		log.Warn("使用内存向量索引, 重启后数据会丢失")
		index = vectorstore.NewMemoryIndex(cfg.Databases.Milvus.CollectionPrefix)
	default:
		mv, err := milvus.GetClient(ctx, &cfg.Databases.Milvus)
		if err != nil {
			return err
		}
		app.closers = append(app.closers, func() error { mv.Close(); return nil })
		checks["milvus"] = mv.HealthCheck
		index, err = vectorstore.NewMilvusIndex(mv.Client, cfg.Databases.Milvus, log.WithField("component", "milvus"))
		if err != nil {
			return err
		}
	}

	// 5. 模型, 每个上游各用一个熔断器
	embedBreaker, err := modelBreaker(cfg.Middleware.CircuitBreaker)
	if err != nil {
		return err
	}
	llmBreaker, err := modelBreaker(cfg.Middleware.CircuitBreaker)
	if err != nil {
		return err
	}
	embedProvider, err := embedding.NewEmdModel(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("创建 embedding 客户端失败: %w", err)
	}
	llmProvider, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return fmt.Errorf("创建 LLM 客户端失败: %w", err)
	}
	embedder := embeddings.NewClient(embedProvider, cfg.RAG.EmbedBatchSize, embedBreaker)
	generator := llms.NewClient(llmProvider, llmBreaker)

	// 6. 任务状态
	switch cfg.Ingestion.JobStore {
	case "memory":
		app.Jobs = jobstore.NewMemoryTracker()
	default:
		ttl, err := time.ParseDuration(cfg.Ingestion.JobTTL)
		if err != nil {
			return fmt.Errorf("无效的 jobTTL: %w", err)
		}
		rc, err := redis.GetClient(&cfg.Databases.Redis)
		if err != nil {
			return err
		}
		app.closers = append(app.closers, redis.Close)
		checks["redis"] = redis.HealthCheck
		app.Jobs = jobstore.NewRedisTracker(rc, ttl)
	}

	// 7. 异步入库队列, 只有配置了 brokers 才启用
	var publisher service.Publisher
	if len(cfg.Databases.Kafka.Brokers) > 0 {
		kc, err := dbkafka.GetClient(&cfg.Databases.Kafka)
		if err != nil {
			return err
		}
		app.Kafka = kc
		app.closers = append(app.closers, kc.Close)
		checks["kafka"] = kc.HealthCheck
		app.Events = events.NewIngestPublisher(kc.Writer, cfg.Databases.Kafka.IngestTopic,
			cfg.Databases.Kafka.DeadLetterTopic, log.WithField("component", "publisher"))
		publisher = app.Events
	}

	rag := cfg.RAG
	app.Indexing = pipeline.NewIndexingPipeline(files, blobs, loaders.NewRegistry(),
		splitters.NewRuneSplitter(rag.ChunkSize, rag.Overlap()), embedder, index,
		log.WithField("component", "indexing"),
		pipeline.WithJobTracker(app.Jobs),
		pipeline.WithConcurrency(rag.IngestConcurrency),
		pipeline.WithTempDir(rag.TempDir),
	)
	queryLog := log.WithField("component", "query")
	query := pipeline.NewQueryPipeline(
		pipeline.NewRetrievalPipeline(embedder, index, rag.TopK, queryLog),
		pipeline.NewQAPipeline(generator, queryLog),
		history, queryLog,
		pipeline.WithMaxContextChars(rag.MaxContextChars),
		pipeline.WithGenerateWithoutContext(rag.GenerateWithoutContext),
	)

	app.Server = service.NewServer(service.Deps{
		Files:     files,
		Blobs:     blobs,
		History:   history,
		Indexing:  app.Indexing,
		Query:     query,
		Jobs:      app.Jobs,
		Publisher: publisher,
		Checks:    checks,
	}, log.WithField("component", "service"),
		service.WithMaxUploadBytes(int64(cfg.Server.MaxUploadMB)<<20),
		service.WithHistoryLimit(rag.HistoryLimit),
	)
	return nil
}

// Close 按打开的相反顺序释放资源。
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithField("error", err.Error()).Warn("释放资源失败")
		}
	}
	a.closers = nil
}

// modelBreaker 创建包裹模型调用的熔断器。熔断器看到的是 SDK 返回的原始错误,
// 只有其中的暂时性故障才计入失败次数。
func modelBreaker(cfg config.CircuitBreakerConfig) (circuitbreaker.CircuitBreaker, error) {
	return circuitbreaker.FromConfig(cfg, circuitbreaker.WithFailurePredicate(llm.IsTransient))
}
