package biz

import (
	"context"
	"fmt"
	"sort"

	"github.com/kart-io/casegen/internal/casegen/model"
	"github.com/kart-io/casegen/internal/casegen/store"
	"github.com/kart-io/casegen/internal/pkg/rag/lexical"
	"github.com/kart-io/casegen/internal/pkg/rag/textutil"
	"github.com/kart-io/casegen/pkg/utils/errors"
)

// RetrieverConfig 混合检索配置。
type RetrieverConfig struct {
	// VectorWeight 向量得分权重。
	VectorWeight float64
	// LexicalWeight 词项覆盖率权重，为 0 时退化为纯向量检索。
	LexicalWeight float64
	// CandidateFactor 向量候选数相对 top_k 的倍数。
	CandidateFactor int
}

// Retriever 负责混合检索。
type Retriever struct {
	vectorWeight    float64
	lexicalWeight   float64
	candidateFactor int
}

// NewRetriever 创建检索器，权重归一化为和为 1。
func NewRetriever(config *RetrieverConfig) *Retriever {
	if config == nil {
		config = &RetrieverConfig{VectorWeight: 0.7, LexicalWeight: 0.3, CandidateFactor: 4}
	}

	vw, lw := max(config.VectorWeight, 0), max(config.LexicalWeight, 0)
	if sum := vw + lw; sum > 0 {
		vw, lw = vw/sum, lw/sum
	} else {
		vw, lw = 1, 0
	}

	return &Retriever{
		vectorWeight:    vw,
		lexicalWeight:   lw,
		candidateFactor: max(config.CandidateFactor, 1),
	}
}

type candidate struct {
	chunk model.Chunk
	vec   float64
	lex   float64
}

// Retrieve 返回得分最高的 topK 个文本块，按得分降序、Position 升序排列。
func (r *Retriever) Retrieve(ctx context.Context, handle store.IndexHandle, chunks []model.Chunk, query string, topK int) ([]model.RetrievedChunk, error) {
	if topK < 0 {
		return nil, errors.ErrCaseGenInvalidRequest.WithMessagef("top_k must not be negative, got %d", topK)
	}
	if topK == 0 || len(chunks) == 0 {
		return []model.RetrievedChunk{}, nil
	}

	byPosition := make(map[int]model.Chunk, len(chunks))
	for _, c := range chunks {
		byPosition[c.Position] = c
	}
	candidates := make(map[int]*candidate)

	if handle != nil && handle.Size() > 0 {
		k := min(len(chunks), max(topK, topK*r.candidateFactor))
		hits, err := handle.Search(ctx, query, k)
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}
		for _, h := range hits {
			c, ok := byPosition[h.Position]
			if !ok {
				continue
			}
			// 零相似度不算命中，仅在词项覆盖率非零时由下方重新加入
			vec := textutil.ClampUnit(h.Score)
			if vec <= 0 {
				continue
			}
			candidates[h.Position] = &candidate{chunk: c, vec: vec}
		}
	}

	if q := lexical.NewQuery(query); r.lexicalWeight > 0 && !q.Empty() {
		for _, c := range chunks {
			lex := q.Coverage(c.Content)
			if lex <= 0 {
				continue
			}
			if cand, ok := candidates[c.Position]; ok {
				cand.lex = lex
				continue
			}
			candidates[c.Position] = &candidate{chunk: c, lex: lex}
		}
	}

	results := make([]model.RetrievedChunk, 0, len(candidates))
	for _, cand := range candidates {
		results = append(results, model.RetrievedChunk{
			Content:  cand.chunk.Content,
			Source:   cand.chunk.Source,
			Score:    r.vectorWeight*cand.vec + r.lexicalWeight*cand.lex,
			Position: cand.chunk.Position,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Position < results[j].Position
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}
