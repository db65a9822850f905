// Package ingest 负责将上传文件转换为纯文本文档。
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/casegen/internal/casegen/model"
	"github.com/kart-io/casegen/internal/pkg/rag/ocr"
	"github.com/kart-io/casegen/pkg/infra/pool"
	apierrors "github.com/kart-io/casegen/pkg/utils/errors"
)

// ErrUnsupportedFormat 文件扩展名没有对应的提取器。
var ErrUnsupportedFormat = errors.New("unsupported file format")

// File 一个上传文件。
type File struct {
	Name string
	Data []byte
}

// Ext 返回小写扩展名。
func (f File) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// TextExtractor 从单个文件提取文本。
type TextExtractor interface {
	Extract(ctx context.Context, file File) (*model.RawDocument, error)
}

// Extractor 按扩展名分派提取器，并在工作池上并行处理多个文件。
type Extractor struct {
	pool       *pool.Pool
	extractors map[string]TextExtractor
}

var _ TextExtractor = (*Extractor)(nil)

// NewExtractor 创建提取器。engine 为 nil 时图片文件会被跳过；p 为 nil 时顺序提取。
func NewExtractor(p *pool.Pool, engine ocr.Engine) *Extractor {
	e := &Extractor{
		pool:       p,
		extractors: make(map[string]TextExtractor),
	}

	text := &PlainTextExtractor{}
	for _, ext := range []string{".txt", ".md", ".csv", ".log"} {
		e.Register(ext, text)
	}
	e.Register(".docx", &DocxExtractor{})
	e.Register(".pdf", &PDFExtractor{})
	if engine != nil {
		img := NewImageExtractor(engine)
		for _, ext := range []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff"} {
			e.Register(ext, img)
		}
	}

	return e
}

// Register 为扩展名注册提取器，已存在时覆盖。
func (e *Extractor) Register(ext string, x TextExtractor) {
	e.extractors[strings.ToLower(ext)] = x
}

// Extract 提取单个文件。内容为空白时返回 nil 文档。
func (e *Extractor) Extract(ctx context.Context, file File) (*model.RawDocument, error) {
	x, ok := e.extractors[file.Ext()]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, file.Ext())
	}

	doc, err := x.Extract(ctx, file)
	if err != nil {
		return nil, apierrors.ErrExtractFailed.WithCause(fmt.Errorf("%s: %w", file.Name, err))
	}
	if doc == nil || strings.TrimSpace(doc.Content) == "" {
		return nil, nil
	}
	return doc, nil
}

// ExtractAll 提取所有文件，结果保持上传顺序。无法读取、格式不支持或内容为空的文件记录告警后跳过。
func (e *Extractor) ExtractAll(ctx context.Context, files []File) []model.RawDocument {
	docs := make([]*model.RawDocument, len(files))

	extractOne := func(i int) {
		doc, err := e.Extract(ctx, files[i])
		switch {
		case err != nil:
			logger.Warnw("skipping unreadable file", "file", files[i].Name, "error", err.Error())
		case doc == nil:
			logger.Warnw("skipping file without readable text", "file", files[i].Name)
		default:
			docs[i] = doc
		}
	}

	if e.pool != nil && len(files) > 1 {
		if err := e.pool.ForEach(ctx, len(files), extractOne); err != nil {
			logger.Warnw("extraction interrupted", "error", err.Error())
		}
	} else {
		for i := range files {
			if ctx.Err() != nil {
				break
			}
			extractOne(i)
		}
	}

	out := make([]model.RawDocument, 0, len(files))
	for _, doc := range docs {
		if doc != nil {
			out = append(out, *doc)
		}
	}
	return out
}

func sourceName(file File) string {
	return filepath.Base(file.Name)
}
