package textutil_test

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/casegen/internal/pkg/rag/textutil"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{"相同向量", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"正交向量", []float32{1, 0, 0}, []float32{0, 1, 0}, 0.0},
		{"相反向量", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1.0},
		{"空向量", []float32{}, []float32{}, 0.0},
		{"零向量", []float32{0, 0}, []float32{1, 0}, 0.0},
		{"长度不匹配", []float32{1, 2}, []float32{1}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, textutil.CosineSimilarity(tt.a, tt.b), 0.0001)
		})
	}
}

func TestClampUnit(t *testing.T) {
	assert.Equal(t, 0.0, textutil.ClampUnit(-0.4))
	assert.Equal(t, 0.25, textutil.ClampUnit(0.25))
	assert.Equal(t, 1.0, textutil.ClampUnit(1.0000001))
	assert.Equal(t, 0.0, textutil.ClampUnit(math.NaN()))
}

func TestHashString(t *testing.T) {
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", textutil.HashString("hello"))
	assert.Len(t, textutil.HashString(""), 32)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "你好", textutil.TruncateString("你好世界", 2))
	assert.Equal(t, "abc", textutil.TruncateString("abc", 10))
	assert.Equal(t, "", textutil.TruncateString("abc", -1))
}

func TestSplitIntoChunks_WindowCount(t *testing.T) {
	tests := []struct {
		length   int
		expected int
	}{
		{0, 0},
		{1, 1},
		{499, 1},
		{500, 1},
		{501, 2},
		{1000, 3},
	}

	for _, tt := range tests {
		t.Run(strings.Repeat("x", 0)+string(rune('0'+tt.expected)), func(t *testing.T) {
			text := strings.Repeat("字", tt.length)
			chunks := textutil.SplitIntoChunks(text, 500, 100)
			assert.Len(t, chunks, tt.expected, "L=%d", tt.length)
			if tt.length > 500 {
				assert.Equal(t, int(math.Ceil(float64(tt.length-100)/400)), len(chunks))
			}
		})
	}
}

func TestSplitIntoChunks_Boundaries(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 1000; i++ {
		sb.WriteByte(byte('a' + i%26))
	}
	text := sb.String()

	chunks := textutil.SplitIntoChunks(text, 500, 100)
	assert.Equal(t, text[0:500], chunks[0])
	assert.Equal(t, text[400:900], chunks[1])
	assert.Equal(t, text[800:1000], chunks[2])

	// 相邻窗口共享 100 个字符
	assert.Equal(t, chunks[0][400:], chunks[1][:100])
}

func TestSplitIntoChunks_DegenerateParams(t *testing.T) {
	assert.Nil(t, textutil.SplitIntoChunks("abc", 0, 0))
	assert.Len(t, textutil.SplitIntoChunks("abcdefghij", 5, 0), 2)
	// overlap >= size 会被收敛为 size-1，仍然前进
	assert.Len(t, textutil.SplitIntoChunks("abcdef", 3, 9), 4)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t,
		[]string{"login", "form", "accepts", "username", "password", "2fa"},
		textutil.Tokenize("The Login form accepts a USERNAME and password (2FA)."))
	assert.Equal(t, []string{"登录页面"}, textutil.Tokenize("登录页面!"))
	assert.Empty(t, textutil.Tokenize("the and of"))
	assert.True(t, textutil.IsStopword("the"))
	assert.False(t, textutil.IsStopword("login"))
}
