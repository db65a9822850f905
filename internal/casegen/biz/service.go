package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/casegen/internal/casegen/ingest"
	"github.com/kart-io/casegen/internal/casegen/metrics"
	"github.com/kart-io/casegen/internal/casegen/model"
	"github.com/kart-io/casegen/internal/casegen/store"
	"github.com/kart-io/casegen/pkg/infra/middleware"
	"github.com/kart-io/casegen/pkg/infra/tracing"
	"github.com/kart-io/casegen/pkg/utils/errors"
	"github.com/kart-io/casegen/pkg/utils/id"
)

// TracerName 业务流程使用的 tracer 名称。
const TracerName = "casegen.biz"

// DocumentExtractor 将上传文件转换为文档。
type DocumentExtractor interface {
	ExtractAll(ctx context.Context, files []ingest.File) []model.RawDocument
}

// QueryRequest 一次用例生成请求。
type QueryRequest struct {
	Files []ingest.File
	Query string
	// TopK 覆盖默认检索数量，nil 使用服务配置。
	TopK  *int
	Debug bool
}

// ServiceConfig 服务配置。
type ServiceConfig struct {
	// TopK 默认检索数量。
	TopK int
}

// Service 组合各阶段组件，按固定顺序处理请求。
type Service struct {
	extractor DocumentExtractor
	chunker   *Chunker
	index     store.VectorIndex
	retriever *Retriever
	gate      *EvidenceGate
	generator *Generator
	evaluator *Evaluator
	cache     *ResultCache
	metrics   *metrics.Collector
	config    *ServiceConfig
}

// Components 服务依赖的组件，由装配代码构造后注入。Cache 与 Metrics 可为 nil。
type Components struct {
	Extractor DocumentExtractor
	Chunker   *Chunker
	Index     store.VectorIndex
	Retriever *Retriever
	Gate      *EvidenceGate
	Generator *Generator
	Evaluator *Evaluator
	Cache     *ResultCache
	Metrics   *metrics.Collector
}

// NewService 创建服务实例。
func NewService(c *Components, config *ServiceConfig) *Service {
	if config == nil {
		config = &ServiceConfig{TopK: 5}
	}
	if c.Evaluator == nil {
		c.Evaluator = NewEvaluator(nil)
	}
	return &Service{
		extractor: c.Extractor,
		chunker:   c.Chunker,
		index:     c.Index,
		retriever: c.Retriever,
		gate:      c.Gate,
		generator: c.Generator,
		evaluator: c.Evaluator,
		cache:     c.Cache,
		metrics:   c.Metrics,
		config:    config,
	}
}

// pipelineState 记录各阶段产出，用于组装调试字段。
type pipelineState struct {
	requestID string
	start     time.Time
	debug     bool
	retrieved *int
	score     *float64
}

// HandleQuery 执行完整流程：提取、分块、索引、检索、证据门限、生成。
//
// 输入为空、无可用文本块或证据不足时返回 insufficient_info 响应且不调用模型；
// error 仅在参数非法、模型调用失败或基础设施故障时返回。
func (s *Service) HandleQuery(ctx context.Context, req *QueryRequest) (resp *model.QueryResponse, err error) {
	state := &pipelineState{
		requestID: middleware.GetRequestID(ctx),
		start:     time.Now(),
		debug:     req.Debug,
	}
	if state.requestID == "" {
		state.requestID = id.NewULID()
		ctx = middleware.WithRequestID(ctx, state.requestID)
	}

	ctx, span := tracing.StartSpan(ctx, TracerName, "casegen.HandleQuery",
		trace.WithAttributes(
			attribute.String("request_id", state.requestID),
			attribute.Int("files", len(req.Files)),
		))
	defer span.End()

	defer func() {
		success := resp != nil && resp.Result.IsSuccess()
		s.metrics.RecordQuery(time.Since(state.start), success, err)
		if err != nil {
			tracing.RecordError(ctx, err)
			logger.Errorw("query failed", "request_id", state.requestID, "error", err.Error(),
				"trace_id", tracing.TraceIDFromContext(ctx),
				"latency", time.Since(state.start).Seconds())
		}
	}()

	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.ErrCaseGenInvalidRequest.WithMessage("query must not be empty")
	}
	topK := s.config.TopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if topK < 0 {
		return nil, errors.ErrCaseGenInvalidRequest.WithMessagef("top_k must not be negative, got %d", topK)
	}

	// 1. 提取文本
	docs := s.extract(ctx, req.Files)
	if len(docs) == 0 {
		return s.shortCircuit(state, metrics.ReasonEmptyInput, errors.ErrEmptyInput), nil
	}

	// 2. 分块
	chunks := s.chunker.Chunk(docs)
	s.metrics.RecordIndexing(len(docs), len(chunks))
	logger.Infow("documents chunked", "request_id", state.requestID, "stage", "chunk",
		"documents", len(docs), "chunks", len(chunks))
	if len(chunks) == 0 {
		return s.shortCircuit(state, metrics.ReasonNoChunks, errors.ErrNoChunks), nil
	}

	// 3. 建立本次请求的索引
	handle, err := s.buildIndex(ctx, chunks)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := handle.Close(context.WithoutCancel(ctx)); cerr != nil {
			logger.Warnw("failed to release index", "request_id", state.requestID, "error", cerr.Error())
		}
	}()

	// 4. 混合检索
	retrieved, err := s.retrieve(ctx, handle, chunks, req.Query, topK)
	if err != nil {
		return nil, err
	}
	count := len(retrieved)
	state.retrieved = &count

	// 5. 证据门限
	score, gateErr := s.gate.Check(retrieved)
	state.score = &score
	tracing.AddSpanAttributes(ctx, attribute.Int("retrieved", count), attribute.Float64("evidence_score", score))
	logger.Infow("evidence evaluated", "request_id", state.requestID, "stage", "gate",
		"retrieved", count, "evidence_score", score, "threshold", s.gate.MinScore())
	if gateErr != nil {
		return s.shortCircuit(state, metrics.ReasonInsufficientEvidence, errors.ErrInsufficientEvidence), nil
	}

	// 6. 组装上下文并生成
	contextText := AssembleContext(retrieved)
	result, err := s.generate(ctx, contextText, req.Query)
	if err != nil {
		return nil, err
	}

	return s.respond(state, result, ""), nil
}

func (s *Service) extract(ctx context.Context, files []ingest.File) []model.RawDocument {
	ctx, span := tracing.StartSpan(ctx, TracerName, "casegen.Extract")
	defer span.End()

	if len(files) == 0 {
		return nil
	}
	docs := s.extractor.ExtractAll(ctx, files)
	span.SetAttributes(attribute.Int("documents", len(docs)))
	return docs
}

func (s *Service) buildIndex(ctx context.Context, chunks []model.Chunk) (store.IndexHandle, error) {
	ctx, span := tracing.StartSpan(ctx, TracerName, "casegen.BuildIndex",
		trace.WithAttributes(attribute.String("backend", s.index.Name()), attribute.Int("chunks", len(chunks))))
	defer span.End()

	handle, err := s.index.BuildIndex(ctx, chunks)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	return handle, nil
}

func (s *Service) retrieve(ctx context.Context, handle store.IndexHandle, chunks []model.Chunk, query string, topK int) ([]model.RetrievedChunk, error) {
	ctx, span := tracing.StartSpan(ctx, TracerName, "casegen.Retrieve", trace.WithAttributes(attribute.Int("top_k", topK)))
	defer span.End()

	retrieved, err := s.retriever.Retrieve(ctx, handle, chunks, query, topK)
	if err != nil {
		tracing.RecordError(ctx, err)
		if errors.IsCode(err, errors.ErrCaseGenInvalidRequest.Code) {
			return nil, err
		}
		return nil, errors.ErrIndexFailed.WithCause(fmt.Errorf("retrieve: %w", err))
	}
	return retrieved, nil
}

func (s *Service) generate(ctx context.Context, contextText, query string) (*model.GenerationResult, error) {
	ctx, span := tracing.StartSpan(ctx, TracerName, "casegen.Generate")
	defer span.End()

	if cached, ok := s.cache.Get(ctx, query, contextText); ok {
		s.metrics.RecordCache(true)
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached, nil
	}
	if s.cache != nil {
		s.metrics.RecordCache(false)
	}

	result, err := s.generator.Generate(ctx, contextText, query)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	_ = s.cache.Set(ctx, query, contextText, result)
	span.SetAttributes(attribute.String("status", result.Status), attribute.Int("use_cases", len(result.UseCases)))
	return result, nil
}

func (s *Service) shortCircuit(state *pipelineState, reason string, cause *errors.Errno) *model.QueryResponse {
	s.metrics.RecordShortCircuit(reason)
	logger.Infow("pipeline short-circuited", "request_id", state.requestID, "stage", reason,
		"latency", time.Since(state.start).Seconds())
	return s.respond(state, model.NewInsufficientResult(nil), cause.MessageEN)
}

func (s *Service) respond(state *pipelineState, result *model.GenerationResult, message string) *model.QueryResponse {
	resp := &model.QueryResponse{
		Status:         result.Status,
		LatencySeconds: time.Since(state.start).Seconds(),
		Result:         result,
		Message:        message,
		RequestID:      state.requestID,
	}

	if state.debug {
		report, err := s.evaluator.EvaluateResult(result)
		if err != nil {
			logger.Warnw("evaluation failed", "request_id", state.requestID, "error", err.Error())
		}
		resp.Evaluation = report
		resp.RetrievedChunkCount = state.retrieved
		resp.EvidenceScore = state.score
	}

	logger.Infow("query completed", "request_id", state.requestID, "status", resp.Status,
		"latency", resp.LatencySeconds)
	return resp
}
