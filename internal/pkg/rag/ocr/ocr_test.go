package ocr_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/casegen/internal/pkg/rag/layout"
	"github.com/kart-io/casegen/internal/pkg/rag/ocr"
)

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t800\t600\t-1\t\n" +
	"4\t1\t1\t1\t1\t0\t10\t10\t200\t20\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t60\t20\t96.5\tSign\n" +
	"5\t1\t1\t1\t1\t2\t80\t10\t20\t20\t95.1\tin\n" +
	"5\t1\t2\t1\t1\t1\t10\t300\t90\t20\t91.0\tSubmit\n" +
	"5\t1\t1\t1\t2\t1\t10\t40\t90\t20\t93.2\tUsername\n" +
	"5\t1\t1\t1\t2\t2\t110\t40\t5\t20\t-1\t\n"

func TestParseTSV(t *testing.T) {
	tokens, err := ocr.ParseTSV(strings.NewReader(sampleTSV))
	require.NoError(t, err)

	assert.Equal(t, []layout.Token{
		{Text: "Sign", Line: 0},
		{Text: "in", Line: 0},
		{Text: "Submit", Line: 2},
		{Text: "Username", Line: 1},
		{Text: "", Line: 1},
	}, tokens)

	assert.Equal(t,
		layout.Disclaimer+"Sign in\n- Username\n- Submit",
		layout.Normalize(tokens))
}

func TestParseTSV_Empty(t *testing.T) {
	tokens, err := ocr.ParseTSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestParseTSV_Malformed(t *testing.T) {
	_, err := ocr.ParseTSV(strings.NewReader("level\n5\tx\n"))
	assert.ErrorIs(t, err, ocr.ErrMalformedTSV)

	_, err = ocr.ParseTSV(strings.NewReader("5\t1\ta\t1\t1\t1\t0\t0\t0\t0\t90\tword\n"))
	assert.ErrorIs(t, err, ocr.ErrMalformedTSV)
}

func TestTesseract_Defaults(t *testing.T) {
	e := ocr.NewTesseract("", "", 0)
	assert.Equal(t, "tesseract", e.Command)
	assert.Equal(t, "eng", e.Language)
}

func TestTesseract_MissingBinary(t *testing.T) {
	e := ocr.NewTesseract("casegen-no-such-tesseract-binary", "eng", 0)
	_, err := e.Recognize(context.Background(), []byte{0x89, 'P', 'N', 'G'})
	assert.Error(t, err)
}
