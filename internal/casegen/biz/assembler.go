package biz

import (
	"strings"

	"github.com/kart-io/casegen/internal/casegen/model"
)

// ContextSeparator 相邻文本块之间的分隔符。
const ContextSeparator = "\n\n"

// AssembleContext 按检索排序拼接文本块内容，不附加来源标注。
func AssembleContext(chunks []model.RetrievedChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}
	return strings.Join(parts, ContextSeparator)
}
