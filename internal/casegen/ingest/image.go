package ingest

import (
	"context"

	"github.com/kart-io/casegen/internal/casegen/model"
	"github.com/kart-io/casegen/internal/pkg/rag/layout"
	"github.com/kart-io/casegen/internal/pkg/rag/ocr"
)

// ImageExtractor 对截图执行 OCR，并按行序规整为带说明前缀的文本。
type ImageExtractor struct {
	engine ocr.Engine
}

// NewImageExtractor 创建图片提取器。
func NewImageExtractor(engine ocr.Engine) *ImageExtractor {
	return &ImageExtractor{engine: engine}
}

// Extract 实现 TextExtractor。没有识别出文字时返回空内容。
func (x *ImageExtractor) Extract(ctx context.Context, file File) (*model.RawDocument, error) {
	tokens, err := x.engine.Recognize(ctx, file.Data)
	if err != nil {
		return nil, err
	}
	return &model.RawDocument{Source: sourceName(file), Content: layout.Normalize(tokens)}, nil
}
