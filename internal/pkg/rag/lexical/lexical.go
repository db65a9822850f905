// Package lexical 提供基于查询词覆盖率的词法相关性打分。
package lexical

import (
	"github.com/kart-io/casegen/internal/pkg/rag/textutil"
)

// Query 是预处理后的查询：去重后的内容词，按首次出现顺序排列。
type Query struct {
	terms []string
}

// NewQuery 对查询文本分词并去重。
func NewQuery(text string) Query {
	seen := make(map[string]struct{})
	var terms []string
	for _, t := range textutil.Tokenize(text) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}
	return Query{terms: terms}
}

// Terms 返回查询的内容词。
func (q Query) Terms() []string {
	return q.terms
}

// Empty 报告查询是否没有任何内容词。
func (q Query) Empty() bool {
	return len(q.terms) == 0
}

// Coverage 返回出现在 text 中的查询词占全部查询词的比例，范围 [0, 1]。
// 没有内容词的查询得 0 分。
func (q Query) Coverage(text string) float64 {
	if q.Empty() {
		return 0
	}

	present := make(map[string]struct{})
	for _, t := range textutil.Tokenize(text) {
		present[t] = struct{}{}
	}

	hits := 0
	for _, t := range q.terms {
		if _, ok := present[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(q.terms))
}

// Coverage 是 NewQuery(query).Coverage(text) 的便捷形式。
func Coverage(query, text string) float64 {
	return NewQuery(query).Coverage(text)
}
