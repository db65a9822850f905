package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/casegen/internal/casegen/model"
	"github.com/kart-io/casegen/pkg/utils/json"
	"github.com/kart-io/casegen/pkg/utils/validator"
)

func TestNewInsufficientResult(t *testing.T) {
	r := model.NewInsufficientResult(nil)
	assert.Equal(t, model.StatusInsufficientInfo, r.Status)
	assert.Equal(t, []string{model.DefaultMissingInformation}, r.MissingInformation)
	assert.False(t, r.IsSuccess())

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"status": "insufficient_info",
		"assumptions": [],
		"missing_information": ["Insufficient documented behavior in provided files"],
		"use_cases": []
	}`, string(data))

	kept := model.NewInsufficientResult([]string{"password rules"})
	assert.Equal(t, []string{"password rules"}, kept.MissingInformation)
}

func TestChunkValidation(t *testing.T) {
	v := validator.New()

	ok := model.Chunk{Content: "hello", Source: "a.txt", ContentHash: "5d41402abc4b2a76b9719d911017c592"}
	assert.NoError(t, v.Validate(ok))

	tests := []struct {
		name  string
		chunk model.Chunk
		field string
	}{
		{"空白内容", model.Chunk{Content: "  ", Source: "a", ContentHash: ok.ContentHash}, "content"},
		{"缺少来源", model.Chunk{Content: "x", ContentHash: ok.ContentHash}, "source"},
		{"哈希长度错误", model.Chunk{Content: "x", Source: "a", ContentHash: "abc"}, "content_hash"},
		{"负位置", model.Chunk{Content: "x", Source: "a", ContentHash: ok.ContentHash, Position: -1}, "position"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.ValidateWithLang(tt.chunk, validator.LangEN)
			require.True(t, errs.HasErrors())
			assert.Contains(t, errs.Fields(), tt.field)
		})
	}
}
