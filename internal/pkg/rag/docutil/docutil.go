// Package docutil 提供上传文档的内存解析工具函数。
package docutil

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DocxBodyPath docx 正文所在的压缩包路径。
const DocxBodyPath = "word/document.xml"

// DefaultMaxEntrySize 单个压缩包条目的默认解压上限。
const DefaultMaxEntrySize int64 = 64 << 20

var (
	// ErrEntryNotFound 压缩包中不存在指定条目。
	ErrEntryNotFound = errors.New("zip entry not found")
	// ErrEntryTooLarge 条目解压后超过上限。
	ErrEntryTooLarge = errors.New("zip entry exceeds size limit")
)

// ReadZipEntry 从内存中的 ZIP 数据读取指定条目。
// 解压大小超过 maxSize（<=0 时使用 DefaultMaxEntrySize）时返回 ErrEntryTooLarge。
func ReadZipEntry(data []byte, name string, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxEntrySize
	}

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		if f.UncompressedSize64 > uint64(maxSize) {
			return nil, ErrEntryTooLarge
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()

		// 声明的大小不可信，读取时再次限制
		content, err := io.ReadAll(io.LimitReader(rc, maxSize+1))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if int64(len(content)) > maxSize {
			return nil, ErrEntryTooLarge
		}
		return content, nil
	}

	return nil, ErrEntryNotFound
}

// DocxText 提取 docx 的段落文本，非空段落以换行连接。
func DocxText(data []byte) (string, error) {
	body, err := ReadZipEntry(data, DocxBodyPath, 0)
	if err != nil {
		return "", err
	}
	return ParseDocumentXML(body)
}

// ParseDocumentXML 逐个 token 遍历 word/document.xml：
// w:t 为文本，w:tab 转为制表符，w:br/w:cr 转为换行，w:p 结束时收集段落。
func ParseDocumentXML(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br", "cr":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if text := current.String(); strings.TrimSpace(text) != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	return strings.Join(paragraphs, "\n"), nil
}

// CleanText 将上传的字节按 UTF-8 解码：丢弃非法字节与 BOM，统一换行符为 \n。
func CleanText(data []byte) string {
	s := strings.ToValidUTF8(string(data), "")
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
