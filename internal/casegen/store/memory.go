package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/kart-io/casegen/internal/casegen/model"
	"github.com/kart-io/casegen/internal/pkg/rag/textutil"
	"github.com/kart-io/casegen/pkg/llm"
	"github.com/kart-io/casegen/pkg/utils/validator"
)

// MemoryIndex 使用暴力余弦相似度的内存索引。
type MemoryIndex struct {
	embedder embedder
}

var _ VectorIndex = (*MemoryIndex)(nil)

// NewMemoryIndex 创建内存索引。
func NewMemoryIndex(provider llm.EmbeddingProvider, v *validator.Validator) *MemoryIndex {
	if v == nil {
		v = validator.New()
	}
	return &MemoryIndex{embedder: embedder{provider: provider, validator: v}}
}

// Name 返回后端名称。
func (m *MemoryIndex) Name() string { return "memory" }

// BuildIndex 在 chunks 上构建内存索引。
func (m *MemoryIndex) BuildIndex(ctx context.Context, chunks []model.Chunk) (IndexHandle, error) {
	provider, vectors, err := m.embedder.prepare(ctx, chunks)
	if errors.Is(err, errNoVocabulary) {
		return emptyHandle{size: len(chunks)}, nil
	}
	if err != nil {
		return nil, err
	}

	return &memoryHandle{
		provider: provider,
		chunks:   append([]model.Chunk(nil), chunks...),
		vectors:  vectors,
	}, nil
}

type memoryHandle struct {
	provider llm.EmbeddingProvider
	chunks   []model.Chunk
	vectors  [][]float32
}

func (h *memoryHandle) Size() int { return len(h.chunks) }

func (h *memoryHandle) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 || len(h.chunks) == 0 {
		return nil, nil
	}

	qv, err := h.provider.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if isZero(qv) {
		return nil, nil
	}

	hits := make([]Hit, len(h.chunks))
	for i, c := range h.chunks {
		hits[i] = Hit{
			Content:  c.Content,
			Source:   c.Source,
			Position: c.Position,
			Score:    textutil.CosineSimilarity(qv, h.vectors[i]),
		}
	}
	sortHits(hits)

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func (h *memoryHandle) Close(context.Context) error {
	h.chunks, h.vectors = nil, nil
	return nil
}
