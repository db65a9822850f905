// Package layout 将 OCR 识别出的词元按视觉行还原为可检索的文本。
package layout

import (
	"sort"
	"strings"
)

// Disclaimer 是截图文本的固定前缀，提示下游只存在视觉顺序而没有交互语义。
const Disclaimer = "The following text was extracted from a user interface screenshot " +
	"in top-to-bottom visual order. No interaction logic is implied.\n- "

// Token 是一个 OCR 词元及其所在的视觉行号。
type Token struct {
	Text string
	Line int
}

// Normalize 按行号升序拼接词元：同一行内以单个空格连接并保持输出顺序，
// 行与行之间以 "\n- " 连接，并加上 Disclaimer 前缀。
// 没有非空词元时返回空字符串。
func Normalize(tokens []Token) string {
	lines := make(map[int][]string)
	for _, tok := range tokens {
		text := strings.TrimSpace(tok.Text)
		if text == "" {
			continue
		}
		lines[tok.Line] = append(lines[tok.Line], text)
	}
	if len(lines) == 0 {
		return ""
	}

	order := make([]int, 0, len(lines))
	for line := range lines {
		order = append(order, line)
	}
	sort.Ints(order)

	ordered := make([]string, len(order))
	for i, line := range order {
		ordered[i] = strings.Join(lines[line], " ")
	}
	return Disclaimer + strings.Join(ordered, "\n- ")
}
