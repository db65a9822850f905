package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kart-io/casegen/internal/casegen/model"
	"github.com/kart-io/casegen/pkg/llm"
	"github.com/kart-io/casegen/pkg/llm/tfidf"
	apierrors "github.com/kart-io/casegen/pkg/utils/errors"
	"github.com/kart-io/casegen/pkg/utils/validator"
)

// Hit 表示一次向量检索命中，Score 为原始余弦相似度。
type Hit struct {
	Content  string
	Source   string
	Position int
	Score    float64
}

// IndexHandle 是单个请求的索引句柄。
type IndexHandle interface {
	// Search 返回与 query 最相似的至多 k 个命中，按 Score 降序、Position 升序排列。
	Search(ctx context.Context, query string, k int) ([]Hit, error)
	// Size 返回索引中的文档块数量。
	Size() int
	// Close 释放索引资源。
	Close(ctx context.Context) error
}

// VectorIndex 为一次请求的文档块构建索引。
type VectorIndex interface {
	// BuildIndex 在 chunks 上构建索引，chunks 为空时返回 ErrEmptyInput。
	BuildIndex(ctx context.Context, chunks []model.Chunk) (IndexHandle, error)
	// Name 返回后端名称。
	Name() string
}

// embedder 负责校验文档块并得到该请求可用的 Embedding 供应商与向量。
type embedder struct {
	provider  llm.EmbeddingProvider
	validator *validator.Validator
}

// prepare 校验 chunks，对语料拟合型供应商先拟合，再生成文档块向量。
// 语料没有任何有效词项时返回 errNoVocabulary。
func (e *embedder) prepare(ctx context.Context, chunks []model.Chunk) (llm.EmbeddingProvider, [][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil, apierrors.ErrEmptyInput
	}

	corpus := make([]string, len(chunks))
	for i := range chunks {
		if err := e.validator.Validate(chunks[i]); err != nil {
			return nil, nil, apierrors.ErrIndexFailed.WithCause(fmt.Errorf("chunk %d: %w", i, err))
		}
		corpus[i] = chunks[i].Content
	}

	provider := e.provider
	if fitter, ok := provider.(llm.CorpusFitter); ok {
		fitted, err := fitter.Fit(corpus)
		if errors.Is(err, tfidf.ErrEmptyVocabulary) {
			return nil, nil, errNoVocabulary
		}
		if err != nil {
			return nil, nil, apierrors.ErrIndexFailed.WithCause(err)
		}
		provider = fitted
	}

	vectors, err := provider.Embed(ctx, corpus)
	if err != nil {
		return nil, nil, apierrors.ErrIndexFailed.WithCause(fmt.Errorf("embed chunks: %w", err))
	}
	if len(vectors) != len(chunks) {
		return nil, nil, apierrors.ErrIndexFailed.WithMessagef("embedding provider returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	return provider, vectors, nil
}

// errNoVocabulary 表示语料无法产生任何向量信号，此时使用 emptyHandle。
var errNoVocabulary = errors.New("corpus has no vocabulary")

// emptyHandle 不产生任何向量命中。
type emptyHandle struct {
	size int
}

func (h emptyHandle) Search(context.Context, string, int) ([]Hit, error) { return nil, nil }

func (h emptyHandle) Size() int { return h.size }

func (h emptyHandle) Close(context.Context) error { return nil }

// sortHits 按 Score 降序、Position 升序排序。
func sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Position < hits[j].Position
	})
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
