package metrics

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordQuery(t *testing.T) {
	m := New()

	m.RecordQuery(10*time.Millisecond, true, nil)
	m.RecordQuery(10*time.Millisecond, false, nil)
	m.RecordQuery(10*time.Millisecond, false, errors.New("boom"))

	s := m.Snapshot()
	assert.Equal(t, uint64(3), s.QueriesTotal)
	assert.Equal(t, uint64(1), s.QueriesSuccess)
	assert.Equal(t, uint64(1), s.QueriesErrors)
}

func TestRecordLabels(t *testing.T) {
	m := New()

	m.RecordShortCircuit(ReasonEmptyInput)
	m.RecordShortCircuit(ReasonInsufficientEvidence)
	m.RecordShortCircuit(ReasonInsufficientEvidence)
	m.RecordFallback(FallbackParse)

	s := m.Snapshot()
	assert.Equal(t, uint64(1), s.ShortCircuits[ReasonEmptyInput])
	assert.Equal(t, uint64(2), s.ShortCircuits[ReasonInsufficientEvidence])
	assert.Equal(t, uint64(1), s.Fallbacks[FallbackParse])
	assert.Zero(t, s.Fallbacks[FallbackGrounding])
}

func TestNilCollectorIsNoop(t *testing.T) {
	var m *Collector
	assert.NotPanics(t, func() {
		m.RecordQuery(time.Second, true, nil)
		m.RecordShortCircuit(ReasonNoChunks)
		m.RecordFallback(FallbackGrounding)
		m.RecordLLMCall(time.Second, nil)
		m.RecordLLMRetry()
		m.RecordCache(true)
		m.RecordIndexing(1, 2)
	})
}

func TestConcurrentRecording(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordLLMCall(time.Millisecond, nil)
			m.RecordLLMRetry()
			m.RecordCache(false)
			m.RecordShortCircuit(ReasonNoChunks)
		}()
	}
	wg.Wait()

	s := m.Snapshot()
	assert.Equal(t, uint64(50), s.LLMCallsTotal)
	assert.Equal(t, uint64(50), s.LLMCallsRetries)
	assert.Equal(t, uint64(50), s.CacheMisses)
	assert.Equal(t, uint64(50), s.ShortCircuits[ReasonNoChunks])
}

func TestExport(t *testing.T) {
	m := New()
	m.RecordQuery(time.Second, true, nil)
	m.RecordIndexing(2, 7)
	m.RecordFallback(FallbackGrounding)
	m.RecordCache(true)

	out := m.Export("casegen", "pipeline")

	assert.Contains(t, out, "# TYPE casegen_pipeline_queries_total counter\n")
	assert.Contains(t, out, "casegen_pipeline_queries_total 1\n")
	assert.Contains(t, out, "casegen_pipeline_chunks_indexed_total 7\n")
	assert.Contains(t, out, "casegen_pipeline_documents_extracted_total 2\n")
	assert.Contains(t, out, `casegen_pipeline_fallbacks_total{reason="grounding"} 1`)
	assert.Contains(t, out, "casegen_pipeline_cache_hits_total 1\n")
	assert.Contains(t, out, "# TYPE casegen_pipeline_uptime_seconds gauge\n")
	assert.True(t, strings.HasPrefix(out, "# HELP casegen_pipeline_queries_total"))
}

func TestExportWithoutSubsystem(t *testing.T) {
	out := New().Export("casegen", "")
	assert.Contains(t, out, "casegen_llm_calls_total 0\n")
}
