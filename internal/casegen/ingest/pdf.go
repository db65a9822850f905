package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kart-io/casegen/internal/casegen/model"
)

// PDFExtractor 提取 PDF 各页纯文本，页之间以空行分隔。
type PDFExtractor struct{}

// Extract 实现 TextExtractor。解析库遇到损坏文件可能 panic，此处转为错误。
func (PDFExtractor) Extract(ctx context.Context, file File) (doc *model.RawDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(file.Data), int64(len(file.Data)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}

	var content strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// 跳过无法解析的页面
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if content.Len() > 0 {
			content.WriteString("\n\n")
		}
		content.WriteString(text)
	}

	return &model.RawDocument{Source: sourceName(file), Content: content.String()}, nil
}
