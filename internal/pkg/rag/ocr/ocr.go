// Package ocr 提供图片文字识别引擎的适配层。
package ocr

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kart-io/casegen/internal/pkg/rag/layout"
)

// Engine 将图片字节识别为带行号的词元。
type Engine interface {
	Recognize(ctx context.Context, image []byte) ([]layout.Token, error)
}

// ErrMalformedTSV 表示 tesseract 输出无法解析。
var ErrMalformedTSV = errors.New("malformed tesseract tsv output")

// Tesseract 通过调用 tesseract 命令行识别图片，输出格式为 TSV。
type Tesseract struct {
	Command  string
	Language string
	Timeout  time.Duration
}

var _ Engine = (*Tesseract)(nil)

// NewTesseract 创建 Tesseract 引擎，空参数使用默认值。
func NewTesseract(command, language string, timeout time.Duration) *Tesseract {
	if command == "" {
		command = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	return &Tesseract{Command: command, Language: language, Timeout: timeout}
}

// Recognize 执行 `tesseract stdin stdout -l <lang> tsv` 并解析结果。
func (t *Tesseract) Recognize(ctx context.Context, image []byte) ([]layout.Token, error) {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, t.Command, "stdin", "stdout", "-l", t.Language, "tsv")
	cmd.Stdin = bytes.NewReader(image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("tesseract exited with code %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("run tesseract: %w", err)
	}

	return ParseTSV(&stdout)
}

type lineKey struct {
	page, block, par, line int
}

type word struct {
	key  lineKey
	text string
}

// ParseTSV 解析 tesseract TSV 输出，只保留 level 5（单词）行。
// 词元的行号是 (page, block, par, line) 排序后的名次，同一行内保持输出顺序。
func ParseTSV(r io.Reader) ([]layout.Token, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var (
		words  []word
		header = true
	)
	for scanner.Scan() {
		row := scanner.Text()
		if header {
			header = false
			if strings.HasPrefix(row, "level") {
				continue
			}
		}
		if strings.TrimSpace(row) == "" {
			continue
		}

		fields := strings.Split(row, "\t")
		if len(fields) < 11 {
			return nil, fmt.Errorf("%w: %q", ErrMalformedTSV, row)
		}
		if fields[0] != "5" {
			continue
		}

		nums := make([]int, 4)
		for i := range nums {
			n, err := strconv.Atoi(fields[i+1])
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrMalformedTSV, row)
			}
			nums[i] = n
		}

		text := ""
		if len(fields) > 11 {
			text = strings.Join(fields[11:], "\t")
		}
		words = append(words, word{
			key:  lineKey{page: nums[0], block: nums[1], par: nums[2], line: nums[3]},
			text: text,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read tesseract output: %w", err)
	}

	keys := make([]lineKey, 0)
	seen := make(map[lineKey]struct{})
	for _, w := range words {
		if _, ok := seen[w.key]; !ok {
			seen[w.key] = struct{}{}
			keys = append(keys, w.key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.page != b.page {
			return a.page < b.page
		}
		if a.block != b.block {
			return a.block < b.block
		}
		if a.par != b.par {
			return a.par < b.par
		}
		return a.line < b.line
	})
	rank := make(map[lineKey]int, len(keys))
	for i, k := range keys {
		rank[k] = i
	}

	tokens := make([]layout.Token, len(words))
	for i, w := range words {
		tokens[i] = layout.Token{Text: w.text, Line: rank[w.key]}
	}
	return tokens, nil
}
