// Package metrics 提供用例生成服务的业务指标收集。
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// 短路原因。
const (
	ReasonEmptyInput           = "empty_input"
	ReasonNoChunks             = "no_chunks"
	ReasonInsufficientEvidence = "insufficient_evidence"
)

// 兜底原因。
const (
	FallbackParse     = "parse"
	FallbackGrounding = "grounding"
)

// Collector 用例生成业务指标，由服务装配时创建并注入。
type Collector struct {
	// 查询指标
	queriesTotal   uint64 // 总请求次数
	queriesSuccess uint64 // status=success 的请求次数
	queriesErrors  uint64 // 硬错误次数

	// 缓存指标
	cacheHits   uint64
	cacheMisses uint64

	// LLM 调用指标
	llmCallsTotal   uint64
	llmCallsErrors  uint64
	llmCallsRetries uint64

	// 索引指标
	documentsExtracted uint64
	chunksIndexed      uint64

	durationMu       sync.Mutex
	llmCallsDuration float64 // 秒
	pipelineDuration float64 // 秒

	labelMu       sync.Mutex
	shortCircuits map[string]uint64
	fallbacks     map[string]uint64

	startTime time.Time
}

// New 创建指标收集器。
func New() *Collector {
	return &Collector{
		shortCircuits: make(map[string]uint64),
		fallbacks:     make(map[string]uint64),
		startTime:     time.Now(),
	}
}

// RecordQuery 记录一次完整请求。
func (m *Collector) RecordQuery(duration time.Duration, success bool, err error) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queriesTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.queriesErrors, 1)
	} else if success {
		atomic.AddUint64(&m.queriesSuccess, 1)
	}

	m.durationMu.Lock()
	m.pipelineDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordShortCircuit 记录一次未调用模型的短路返回。
func (m *Collector) RecordShortCircuit(reason string) {
	if m == nil {
		return
	}
	m.labelMu.Lock()
	m.shortCircuits[reason]++
	m.labelMu.Unlock()
}

// RecordFallback 记录一次模型输出被降级为 insufficient_info。
func (m *Collector) RecordFallback(reason string) {
	if m == nil {
		return
	}
	m.labelMu.Lock()
	m.fallbacks[reason]++
	m.labelMu.Unlock()
}

// RecordLLMCall 记录一次 LLM 调用（含重试在内的整体耗时）。
func (m *Collector) RecordLLMCall(duration time.Duration, err error) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.llmCallsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.llmCallsErrors, 1)
	}

	m.durationMu.Lock()
	m.llmCallsDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordLLMRetry 记录一次 LLM 重试。
func (m *Collector) RecordLLMRetry() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.llmCallsRetries, 1)
}

// RecordCache 记录结果缓存命中情况。
func (m *Collector) RecordCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		atomic.AddUint64(&m.cacheHits, 1)
		return
	}
	atomic.AddUint64(&m.cacheMisses, 1)
}

// RecordIndexing 记录文档提取与分块数量。
func (m *Collector) RecordIndexing(documents, chunks int) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.documentsExtracted, uint64(max(documents, 0)))
	atomic.AddUint64(&m.chunksIndexed, uint64(max(chunks, 0)))
}

// Snapshot 指标快照。
type Snapshot struct {
	QueriesTotal       uint64
	QueriesSuccess     uint64
	QueriesErrors      uint64
	CacheHits          uint64
	CacheMisses        uint64
	LLMCallsTotal      uint64
	LLMCallsErrors     uint64
	LLMCallsRetries    uint64
	DocumentsExtracted uint64
	ChunksIndexed      uint64
	ShortCircuits      map[string]uint64
	Fallbacks          map[string]uint64
}

// Snapshot 返回当前计数的拷贝。
func (m *Collector) Snapshot() Snapshot {
	s := Snapshot{
		QueriesTotal:       atomic.LoadUint64(&m.queriesTotal),
		QueriesSuccess:     atomic.LoadUint64(&m.queriesSuccess),
		QueriesErrors:      atomic.LoadUint64(&m.queriesErrors),
		CacheHits:          atomic.LoadUint64(&m.cacheHits),
		CacheMisses:        atomic.LoadUint64(&m.cacheMisses),
		LLMCallsTotal:      atomic.LoadUint64(&m.llmCallsTotal),
		LLMCallsErrors:     atomic.LoadUint64(&m.llmCallsErrors),
		LLMCallsRetries:    atomic.LoadUint64(&m.llmCallsRetries),
		DocumentsExtracted: atomic.LoadUint64(&m.documentsExtracted),
		ChunksIndexed:      atomic.LoadUint64(&m.chunksIndexed),
		ShortCircuits:      make(map[string]uint64),
		Fallbacks:          make(map[string]uint64),
	}

	m.labelMu.Lock()
	for k, v := range m.shortCircuits {
		s.ShortCircuits[k] = v
	}
	for k, v := range m.fallbacks {
		s.Fallbacks[k] = v
	}
	m.labelMu.Unlock()

	return s
}

// Export 以 Prometheus 文本格式导出指标。
func (m *Collector) Export(namespace, subsystem string) string {
	prefix := namespace
	if subsystem != "" {
		prefix = namespace + "_" + subsystem
	}

	s := m.Snapshot()
	var sb strings.Builder

	// 请求指标
	writeMetric(&sb, prefix+"_queries_total", "counter", "Total number of generation requests.", float64(s.QueriesTotal))
	writeMetric(&sb, prefix+"_queries_success_total", "counter", "Requests answered with status success.", float64(s.QueriesSuccess))
	writeMetric(&sb, prefix+"_queries_errors_total", "counter", "Requests that failed with a hard error.", float64(s.QueriesErrors))
	writeLabeled(&sb, prefix+"_short_circuits_total", "Requests answered without calling the model.", "reason", s.ShortCircuits)
	writeLabeled(&sb, prefix+"_fallbacks_total", "Model outputs downgraded to insufficient_info.", "reason", s.Fallbacks)

	// 缓存指标
	writeMetric(&sb, prefix+"_cache_hits_total", "counter", "Number of result cache hits.", float64(s.CacheHits))
	writeMetric(&sb, prefix+"_cache_misses_total", "counter", "Number of result cache misses.", float64(s.CacheMisses))

	// LLM 调用指标
	m.durationMu.Lock()
	llmDuration := m.llmCallsDuration
	pipelineDuration := m.pipelineDuration
	m.durationMu.Unlock()

	writeMetric(&sb, prefix+"_llm_calls_total", "counter", "Total number of LLM calls.", float64(s.LLMCallsTotal))
	writeMetric(&sb, prefix+"_llm_calls_errors_total", "counter", "Number of LLM call errors.", float64(s.LLMCallsErrors))
	writeMetric(&sb, prefix+"_llm_calls_retries_total", "counter", "Number of LLM call retries.", float64(s.LLMCallsRetries))
	writeMetric(&sb, prefix+"_llm_calls_duration_seconds_total", "counter", "Total LLM call duration.", llmDuration)

	// 索引指标
	writeMetric(&sb, prefix+"_documents_extracted_total", "counter", "Total documents with readable text.", float64(s.DocumentsExtracted))
	writeMetric(&sb, prefix+"_chunks_indexed_total", "counter", "Total chunks indexed.", float64(s.ChunksIndexed))
	writeMetric(&sb, prefix+"_pipeline_duration_seconds_total", "counter", "Total pipeline duration.", pipelineDuration)

	writeMetric(&sb, prefix+"_uptime_seconds", "gauge", "Service uptime in seconds.", time.Since(m.startTime).Seconds())

	return sb.String()
}

func writeMetric(sb *strings.Builder, name, kind, help string, value float64) {
	fmt.Fprintf(sb, "# HELP %s %s\n", name, help)
	fmt.Fprintf(sb, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(sb, "%s %s\n\n", name, formatValue(value))
}

func writeLabeled(sb *strings.Builder, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(sb, "# HELP %s %s\n", name, help)
	fmt.Fprintf(sb, "# TYPE %s counter\n", name)

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(sb, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
	sb.WriteString("\n")
}

func formatValue(v float64) string {
	if v == float64(uint64(v)) {
		return fmt.Sprintf("%d", uint64(v))
	}
	return fmt.Sprintf("%.6f", v)
}
