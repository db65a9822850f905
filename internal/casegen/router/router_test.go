package router

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/casegen/internal/casegen/biz"
	"github.com/kart-io/casegen/internal/casegen/handler"
	"github.com/kart-io/casegen/internal/casegen/model"
	"github.com/kart-io/casegen/pkg/infra/server"
)

type stubService struct{ calls int }

func (s *stubService) HandleQuery(context.Context, *biz.QueryRequest) (*model.QueryResponse, error) {
	s.calls++
	return &model.QueryResponse{
		Status: model.StatusInsufficientInfo,
		Result: model.NewInsufficientResult(nil),
	}, nil
}

func newServer(t *testing.T, svc *stubService, maxUpload int64) *server.Server {
	t.Helper()
	opts := server.NewOptions()
	opts.Mode = gin.TestMode
	srv := server.NewServer(opts, ProbePaths...)
	require.NoError(t, Register(srv, handler.NewCaseGenHandler(svc, nil, nil), maxUpload))
	return srv
}

func generateRequest(t *testing.T, path string, payload []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("query", "login"))
	fw, err := w.CreateFormFile("files", "doc.txt")
	require.NoError(t, err)
	_, err = fw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestRegisterRoutes(t *testing.T) {
	svc := &stubService{}
	srv := newServer(t, svc, 1<<20)

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"healthz", httptest.NewRequest(http.MethodGet, "/healthz", nil), http.StatusOK},
		{"metrics", httptest.NewRequest(http.MethodGet, "/metrics", nil), http.StatusOK},
		{"version", httptest.NewRequest(http.MethodGet, "/version", nil), http.StatusOK},
		{"ui generate", generateRequest(t, "/ui-generate", []byte("Users sign in.")), http.StatusOK},
		{"v1 generate", generateRequest(t, "/v1/casegen/generate", []byte("Users sign in.")), http.StatusOK},
		{"unknown route", httptest.NewRequest(http.MethodGet, "/v1/rag/query", nil), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Engine().ServeHTTP(w, tt.req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
	assert.Equal(t, 2, svc.calls)
}

func TestUploadLimit(t *testing.T) {
	svc := &stubService{}
	srv := newServer(t, svc, 256)

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, generateRequest(t, "/v1/casegen/generate", bytes.Repeat([]byte("a"), 1024)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Zero(t, svc.calls)
}
