package casegen

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOptionsDefaults(t *testing.T) {
	o := NewOptions()
	assert.Equal(t, 500, o.ChunkSize)
	assert.Equal(t, 100, o.ChunkOverlap)
	assert.Equal(t, 5, o.TopK)
	assert.InDelta(t, 0.35, o.MinEvidenceScore, 1e-9)
	assert.InDelta(t, 0.7, o.VectorWeight, 1e-9)
	assert.InDelta(t, 0.3, o.LexicalWeight, 1e-9)
	assert.Equal(t, IndexBackendMemory, o.IndexBackend)
	assert.Equal(t, 2, o.GenerateMaxAttempts)
	assert.Empty(t, o.Validate())
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *Options)
	}{
		{"重叠不小于窗口", func(o *Options) { o.ChunkOverlap = o.ChunkSize }},
		{"负 top-k", func(o *Options) { o.TopK = -1 }},
		{"阈值越界", func(o *Options) { o.MinEvidenceScore = 1.5 }},
		{"权重全零", func(o *Options) { o.VectorWeight, o.LexicalWeight = 0, 0 }},
		{"未知后端", func(o *Options) { o.IndexBackend = "faiss" }},
		{"零次尝试", func(o *Options) { o.GenerateMaxAttempts = 0 }},
		{"零工作者", func(o *Options) { o.ExtractWorkers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOptions()
			tt.mutate(o)
			assert.NotEmpty(t, o.Validate())
		})
	}
}

func TestOptionsAddFlags(t *testing.T) {
	o := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"--casegen.top-k=8",
		"--casegen.index-backend=milvus",
		"--casegen.ocr.language=deu",
	}))
	assert.Equal(t, 8, o.TopK)
	assert.Equal(t, IndexBackendMilvus, o.IndexBackend)
	assert.Equal(t, "deu", o.OCR.Language)
}
