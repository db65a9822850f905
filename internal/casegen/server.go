// Package casegen wires the test-case generation service together.
package casegen

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/casegen/internal/casegen/biz"
	"github.com/kart-io/casegen/internal/casegen/handler"
	"github.com/kart-io/casegen/internal/casegen/ingest"
	"github.com/kart-io/casegen/internal/casegen/metrics"
	"github.com/kart-io/casegen/internal/casegen/router"
	"github.com/kart-io/casegen/internal/casegen/store"
	"github.com/kart-io/casegen/internal/pkg/rag/ocr"
	"github.com/kart-io/casegen/pkg/component/milvus"
	"github.com/kart-io/casegen/pkg/infra/app"
	"github.com/kart-io/casegen/pkg/infra/pool"
	"github.com/kart-io/casegen/pkg/infra/server"
	"github.com/kart-io/casegen/pkg/infra/tracing"
	"github.com/kart-io/casegen/pkg/llm"
	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/casegen/pkg/llm/ollama"
	_ "github.com/kart-io/casegen/pkg/llm/openai"
	"github.com/kart-io/casegen/pkg/llm/resilience"
	"github.com/kart-io/casegen/pkg/llm/tfidf"
	cacheopts "github.com/kart-io/casegen/pkg/options/cache"
	casegenopts "github.com/kart-io/casegen/pkg/options/casegen"
	llmopts "github.com/kart-io/casegen/pkg/options/llm"
	logopts "github.com/kart-io/casegen/pkg/options/logger"
	milvusopts "github.com/kart-io/casegen/pkg/options/milvus"
	httpopts "github.com/kart-io/casegen/pkg/options/server/http"
	tracingopts "github.com/kart-io/casegen/pkg/options/tracing"
	"github.com/kart-io/casegen/pkg/utils/validator"
)

// Name is the name of the application.
const Name = "casegen"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	TracingOptions   *tracingopts.Options
	MilvusOptions    *milvusopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	ChatOptions      *llmopts.ProviderOptions
	CaseGenOptions   *casegenopts.Options
	CacheOptions     *cacheopts.Options
}

// Server represents the casegen server.
type Server struct {
	srv      *server.Server
	closers  []func(context.Context)
	shutdown func(context.Context) error
}

// NewServer initializes and returns a new Server instance.
// Resources opened before a failing step are released before returning.
func (cfg *Config) NewServer(ctx context.Context) (_ *Server, err error) {
	printBanner(cfg)

	s := &Server{}
	defer func() {
		if err != nil {
			s.close(context.WithoutCancel(ctx))
		}
	}()

	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting casegen service...")

	// 2. 初始化链路追踪
	if cfg.TracingOptions.ServiceName == "" {
		cfg.TracingOptions.ServiceName = Name
	}
	if cfg.TracingOptions.ServiceVersion == "" {
		cfg.TracingOptions.ServiceVersion = app.GetVersion()
	}
	tp, err := tracing.NewProvider(ctx, cfg.TracingOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	s.shutdown = tp.Shutdown
	logger.Infow("Tracing initialized", "enabled", tp.Enabled())

	// 3. 初始化 Redis 客户端（结果缓存与 Embedding 缓存共用）
	redisClient := newRedisClient(ctx, cfg.CacheOptions)
	if redisClient != nil {
		s.closers = append(s.closers, func(context.Context) { _ = redisClient.Close() })
	}

	// 4. 初始化 LLM 供应商
	embedProvider, err := newEmbeddingProvider(cfg.EmbeddingOptions, redisClient)
	if err != nil {
		return nil, err
	}
	chatProvider, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("Chat provider initialized",
		"provider", cfg.ChatOptions.Provider,
		"model", cfg.ChatOptions.Model,
	)

	// 5. 初始化向量索引
	v := validator.New()
	var index store.VectorIndex
	switch cfg.CaseGenOptions.IndexBackend {
	case casegenopts.IndexBackendMilvus:
		milvusClient, err := milvus.New(ctx, cfg.MilvusOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize milvus: %w", err)
		}
		s.closers = append(s.closers, func(ctx context.Context) { _ = milvusClient.Close(ctx) })
		index = store.NewMilvusIndex(milvusClient, embedProvider, v)
	default:
		index = store.NewMemoryIndex(embedProvider, v)
	}
	logger.Infow("Vector index initialized", "backend", index.Name())

	// 6. 初始化文本提取（工作池 + OCR）
	poolConfig := pool.DefaultPoolConfig()
	poolConfig.Capacity = cfg.CaseGenOptions.ExtractWorkers
	extractPool, err := pool.NewPool("casegen-extract", poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize extract pool: %w", err)
	}
	s.closers = append(s.closers, func(context.Context) { extractPool.Release() })
	extractor := ingest.NewExtractor(extractPool, newOCREngine(cfg.CaseGenOptions.OCR))

	// 7. 初始化 Biz 层
	collector := metrics.New()
	var resultCache *biz.ResultCache
	if redisClient != nil {
		resultCache = biz.NewResultCache(redisClient, &biz.ResultCacheConfig{
			TTL:       cfg.CacheOptions.TTL,
			KeyPrefix: cfg.CacheOptions.KeyPrefix,
		})
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.CaseGenOptions.GenerateMaxAttempts

	service := biz.NewService(&biz.Components{
		Extractor: extractor,
		Chunker: biz.NewChunker(&biz.ChunkerConfig{
			ChunkSize:    cfg.CaseGenOptions.ChunkSize,
			ChunkOverlap: cfg.CaseGenOptions.ChunkOverlap,
		}),
		Index: index,
		Retriever: biz.NewRetriever(&biz.RetrieverConfig{
			VectorWeight:    cfg.CaseGenOptions.VectorWeight,
			LexicalWeight:   cfg.CaseGenOptions.LexicalWeight,
			CandidateFactor: cfg.CaseGenOptions.CandidateFactor,
		}),
		Gate: biz.NewEvidenceGate(cfg.CaseGenOptions.MinEvidenceScore),
		Generator: biz.NewGenerator(chatProvider, &biz.GeneratorConfig{
			MaxContextRunes: cfg.CaseGenOptions.MaxContextRunes,
			Timeout:         cfg.CaseGenOptions.GenerateTimeout,
			Retry:           retry,
		}, collector),
		Evaluator: biz.NewEvaluator(v),
		Cache:     resultCache,
		Metrics:   collector,
	}, &biz.ServiceConfig{TopK: cfg.CaseGenOptions.TopK})
	logger.Infow("Casegen service initialized",
		"top_k", cfg.CaseGenOptions.TopK,
		"min_evidence_score", cfg.CaseGenOptions.MinEvidenceScore,
		"cache.enabled", resultCache != nil,
	)

	// 8. 初始化 Handler 层
	caseGenHandler := handler.NewCaseGenHandler(service, v, collector)

	// 9. 初始化服务器
	s.srv = server.NewServer(cfg.HTTPOptions, router.ProbePaths...)

	// 10. 注册路由
	if err := router.Register(s.srv, caseGenHandler, cfg.HTTPOptions.MaxUploadBytes); err != nil {
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}

	logger.Info("Casegen service is ready")
	return s, nil
}

// Run starts the server and blocks until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	defer s.close(context.WithoutCancel(ctx))
	return s.srv.Run(ctx)
}

func (s *Server) close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i](ctx)
	}
	if s.shutdown != nil {
		if err := s.shutdown(ctx); err != nil {
			logger.Warnw("failed to shutdown tracer provider", "error", err.Error())
		}
	}
}

// newRedisClient connects to Redis when the cache is enabled. A failed ping
// disables caching instead of failing startup.
func newRedisClient(ctx context.Context, opts *cacheopts.Options) *goredis.Client {
	if !opts.Enabled {
		logger.Info("Cache is disabled")
		return nil
	}
	if opts.Redis == nil {
		logger.Warn("Cache is enabled but no Redis configuration provided")
		return nil
	}

	client := goredis.NewClient(opts.Redis.ClientOptions())
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warnw("failed to connect to redis, cache will be disabled",
			"addr", opts.Redis.Addr(),
			"error", err.Error(),
		)
		_ = client.Close()
		return nil
	}

	logger.Infow("Redis cache initialized",
		"addr", opts.Redis.Addr(),
		"ttl", opts.TTL,
	)
	return client
}

// newEmbeddingProvider resolves the configured embedder. Remote providers get
// retries, a circuit breaker and, with Redis available, a vector cache. The
// corpus-fitted tfidf embedder is returned as is.
func newEmbeddingProvider(opts *llmopts.ProviderOptions, redisClient *goredis.Client) (llm.EmbeddingProvider, error) {
	provider, err := llm.NewEmbeddingProvider(opts.Provider, opts.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	if opts.Provider == tfidf.ProviderName {
		logger.Infow("Embedding provider initialized", "provider", opts.Provider)
		return provider, nil
	}

	provider = resilience.NewResilientEmbeddingProvider(provider,
		resilience.DefaultRetryConfig(),
		resilience.DefaultCircuitBreakerConfig(),
	)
	if redisClient != nil {
		provider = llm.NewCachedEmbeddingProvider(provider, redisClient, llm.DefaultEmbeddingCacheConfig())
	}
	logger.Infow("Embedding provider initialized",
		"provider", opts.Provider,
		"model", opts.Model,
		"cached", redisClient != nil,
	)
	return provider, nil
}

// newOCREngine returns the tesseract adapter, or nil when the binary is not
// installed so images are skipped like any other unsupported file.
func newOCREngine(opts *casegenopts.OCROptions) ocr.Engine {
	if opts == nil {
		return nil
	}
	if _, err := exec.LookPath(opts.Command); err != nil {
		logger.Warnw("OCR binary not found, image uploads will be skipped",
			"command", opts.Command,
			"error", err.Error(),
		)
		return nil
	}
	logger.Infow("OCR engine initialized", "command", opts.Command, "language", opts.Language)
	return ocr.NewTesseract(opts.Command, opts.Language, opts.Timeout)
}

func printBanner(cfg *Config) {
	fmt.Printf("Starting %s...\n", Name)
	fmt.Printf("  Embedding: %s (%s)\n", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
	fmt.Printf("  Chat: %s (%s)\n", cfg.ChatOptions.Provider, cfg.ChatOptions.Model)
	fmt.Printf("  Index: %s\n", cfg.CaseGenOptions.IndexBackend)
}
