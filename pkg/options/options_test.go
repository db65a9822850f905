package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoin(t *testing.T) {
	assert.Equal(t, "", Join())
	assert.Equal(t, "chat.", Join("chat"))
	assert.Equal(t, "cache.redis.", Join("cache", "redis"))
}

func TestPrefixErrors(t *testing.T) {
	assert.Nil(t, PrefixErrors("chat", nil))

	cause := errors.New("provider is required")
	errs := PrefixErrors("chat", []error{cause})
	if assert.Len(t, errs, 1) {
		assert.EqualError(t, errs[0], "chat.provider is required")
		assert.ErrorIs(t, errs[0], cause)
	}
}
