// Package tfidf 提供无需外部服务的 TF-IDF Embedding 实现。
//
// 词表与 IDF 在每次请求的语料上拟合，因此它实现 llm.CorpusFitter：
// 注册得到的实例只是未拟合的模板，调用 Fit 后得到可用于 Embed 的新实例。
package tfidf

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/kart-io/casegen/internal/pkg/rag/textutil"
	"github.com/kart-io/casegen/pkg/llm"
)

// ProviderName 注册到 llm 供应商注册表的名称。
const ProviderName = "tfidf"

var (
	// ErrNotFitted 表示在未拟合的实例上调用了 Embed。
	ErrNotFitted = errors.New("tfidf embedder not fitted")
	// ErrEmptyVocabulary 表示语料中没有任何有效词项。
	ErrEmptyVocabulary = errors.New("no tokens found in corpus")
)

func init() {
	llm.RegisterEmbeddingProvider(ProviderName, func(map[string]any) (llm.EmbeddingProvider, error) {
		return NewEmbedder(), nil
	})
}

// Embedder TF-IDF 向量化器。零值即未拟合状态。
type Embedder struct {
	vocabulary map[string]int
	idf        []float64
}

var (
	_ llm.EmbeddingProvider = (*Embedder)(nil)
	_ llm.CorpusFitter      = (*Embedder)(nil)
)

// NewEmbedder 创建未拟合的 Embedder。
func NewEmbedder() *Embedder {
	return &Embedder{}
}

// Name 返回供应商名称。
func (e *Embedder) Name() string { return ProviderName }

// Dimension 返回向量维度，未拟合时为 0。
func (e *Embedder) Dimension() int { return len(e.idf) }

// Fit 在语料上构建词表与平滑 IDF：idf = ln((1+N)/(1+df)) + 1。
// 词表按字典序排列，保证相同语料得到相同维度顺序。
func (e *Embedder) Fit(corpus []string) (llm.EmbeddingProvider, error) {
	if len(corpus) == 0 {
		return nil, ErrEmptyVocabulary
	}

	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range textutil.Tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	if len(df) == 0 {
		return nil, ErrEmptyVocabulary
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	fitted := &Embedder{
		vocabulary: make(map[string]int, len(terms)),
		idf:        make([]float64, len(terms)),
	}
	n := float64(len(corpus))
	for i, term := range terms {
		fitted.vocabulary[term] = i
		fitted.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	return fitted, nil
}

// Embed 为多个文本生成 L2 归一化的 TF-IDF 向量。
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.vocabulary == nil {
		return nil, ErrNotFitted
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(text)
	}
	return out, nil
}

// EmbedSingle 为单个文本生成向量。
func (e *Embedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// vector 计算 tf*idf 并归一化；不含词表内词项的文本得到零向量。
func (e *Embedder) vector(text string) []float32 {
	vec := make([]float32, len(e.idf))

	tf := make(map[int]int)
	total := 0
	for _, tok := range textutil.Tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec
	}

	weights := make([]float64, len(e.idf))
	norm := 0.0
	for idx, count := range tf {
		w := float64(count) / float64(total) * e.idf[idx]
		weights[idx] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for i, w := range weights {
		vec[i] = float32(w / norm)
	}
	return vec
}
