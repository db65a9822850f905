package response

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/casegen/pkg/utils/errors"
)

func TestSuccess(t *testing.T) {
	r := Success(map[string]string{"status": "success"}).WithRequestID("01HZX")
	assert.True(t, r.IsSuccess())
	assert.Equal(t, http.StatusOK, r.HTTPStatus())
	assert.Equal(t, "01HZX", r.RequestID)
	assert.NotZero(t, r.Timestamp)
}

func TestErr(t *testing.T) {
	tests := []struct {
		name   string
		errno  *errors.Errno
		status int
	}{
		{"传输错误", errors.ErrTransport, http.StatusBadGateway},
		{"参数错误", errors.ErrCaseGenInvalidRequest, http.StatusBadRequest},
		{"内部错误", errors.ErrInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Err(tt.errno)
			assert.False(t, r.IsSuccess())
			assert.Equal(t, tt.errno.Code, r.Code)
			assert.Equal(t, tt.status, r.HTTPStatus())
		})
	}
}

func TestHTTPStatusFallsBackToCategory(t *testing.T) {
	r := &Response{Code: errors.MakeCode(77, errors.CategoryNetwork, 9)}
	assert.Equal(t, http.StatusBadGateway, r.HTTPStatus())

	r = &Response{Code: errors.MakeCode(77, errors.CategoryRequest, 9)}
	assert.Equal(t, http.StatusBadRequest, r.HTTPStatus())
}

func TestErrWithLang(t *testing.T) {
	r := ErrWithLang(errors.ErrEmptyInput, "zh")
	assert.Equal(t, errors.ErrEmptyInput.MessageZH, r.Message)
	assert.Equal(t, http.StatusOK, ErrWithLang(nil, "zh").HTTPStatus())
}
