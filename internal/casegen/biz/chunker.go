package biz

import (
	"strings"

	"github.com/kart-io/casegen/internal/casegen/model"
	"github.com/kart-io/casegen/internal/pkg/rag/textutil"
)

// ChunkerConfig 分块配置。
type ChunkerConfig struct {
	// ChunkSize 窗口长度（Unicode 字符数）。
	ChunkSize int
	// ChunkOverlap 相邻窗口重叠长度。
	ChunkOverlap int
}

// Chunker 负责将文档切分为去重后的文本块。
type Chunker struct {
	config *ChunkerConfig
}

// NewChunker 创建分块器。
func NewChunker(config *ChunkerConfig) *Chunker {
	if config == nil {
		config = &ChunkerConfig{ChunkSize: 500, ChunkOverlap: 100}
	}
	return &Chunker{config: config}
}

// Chunk 按文档顺序切分并去重。
// 摘要相同的窗口只保留首次出现的一个（跨文档同样生效），Position 为最终列表中的下标。
func (c *Chunker) Chunk(docs []model.RawDocument) []model.Chunk {
	seen := make(map[string]struct{})
	var chunks []model.Chunk

	for _, doc := range docs {
		for _, window := range textutil.SplitIntoChunks(doc.Content, c.config.ChunkSize, c.config.ChunkOverlap) {
			if strings.TrimSpace(window) == "" {
				continue
			}
			hash := textutil.HashString(window)
			if _, dup := seen[hash]; dup {
				continue
			}
			seen[hash] = struct{}{}

			chunks = append(chunks, model.Chunk{
				Content:     window,
				Source:      doc.Source,
				ContentHash: hash,
				Position:    len(chunks),
			})
		}
	}

	return chunks
}
