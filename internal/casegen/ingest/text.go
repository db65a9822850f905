package ingest

import (
	"context"

	"github.com/kart-io/casegen/internal/casegen/model"
	"github.com/kart-io/casegen/internal/pkg/rag/docutil"
)

// PlainTextExtractor 纯文本文件，按 UTF-8 解码并丢弃非法字节。
type PlainTextExtractor struct{}

// Extract 实现 TextExtractor。
func (PlainTextExtractor) Extract(_ context.Context, file File) (*model.RawDocument, error) {
	return &model.RawDocument{Source: sourceName(file), Content: docutil.CleanText(file.Data)}, nil
}

// DocxExtractor Word 文档，读取 word/document.xml 的段落文本。
type DocxExtractor struct{}

// Extract 实现 TextExtractor。
func (DocxExtractor) Extract(_ context.Context, file File) (*model.RawDocument, error) {
	text, err := docutil.DocxText(file.Data)
	if err != nil {
		return nil, err
	}
	return &model.RawDocument{Source: sourceName(file), Content: text}, nil
}
