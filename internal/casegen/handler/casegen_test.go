package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/casegen/internal/casegen/biz"
	"github.com/kart-io/casegen/internal/casegen/metrics"
	"github.com/kart-io/casegen/internal/casegen/model"
	"github.com/kart-io/casegen/pkg/infra/middleware"
	"github.com/kart-io/casegen/pkg/utils/errors"
	"github.com/kart-io/casegen/pkg/utils/json"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeService struct {
	mu   sync.Mutex
	reqs []*biz.QueryRequest
	resp *model.QueryResponse
	err  error
}

func (f *fakeService) HandleQuery(ctx context.Context, req *biz.QueryRequest) (*model.QueryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	resp := *f.resp
	resp.RequestID = middleware.GetRequestID(ctx)
	return &resp, nil
}

func (f *fakeService) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

type envelope struct {
	Code      int                  `json:"code"`
	Message   string               `json:"message"`
	RequestID string               `json:"request_id"`
	Data      *model.QueryResponse `json:"data"`
}

type upload struct {
	field, name, content string
}

func newEngine(svc QueryService) *gin.Engine {
	h := NewCaseGenHandler(svc, nil, nil)
	r := gin.New()
	r.Use(middleware.RequestID())
	r.POST("/generate", h.Generate)
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", h.Metrics)
	r.GET("/version", h.Version)
	return r
}

func multipartRequest(t *testing.T, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/generate", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(t *testing.T, r *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func successResponse() *model.QueryResponse {
	return &model.QueryResponse{
		Status:         model.StatusSuccess,
		LatencySeconds: 0.25,
		Result: &model.GenerationResult{
			Status:             model.StatusSuccess,
			Assumptions:        []string{},
			MissingInformation: []string{},
			UseCases: []model.UseCase{{
				UseCaseTitle:    "Login succeeds",
				Steps:           []string{"submit credentials"},
				ExpectedResults: []string{"dashboard shown"},
			}},
		},
	}
}

func TestGenerateSuccess(t *testing.T) {
	svc := &fakeService{resp: successResponse()}
	r := newEngine(svc)

	req := multipartRequest(t,
		map[string]string{"query": "login flow", "debug": "true", "top_k": "3"},
		upload{FieldFiles, "login.md", "Users sign in with email."},
		upload{FieldFilesBrackets, "notes.txt", "Lockout after five failures."},
	)
	w, env := serve(t, r, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.Code)
	require.NotNil(t, env.Data)
	assert.Equal(t, model.StatusSuccess, env.Data.Status)
	assert.Equal(t, "Login succeeds", env.Data.Result.UseCases[0].UseCaseTitle)
	assert.Equal(t, w.Header().Get(middleware.HeaderXRequestID), env.Data.RequestID)
	assert.Equal(t, env.RequestID, env.Data.RequestID)

	require.Equal(t, 1, svc.calls())
	got := svc.reqs[0]
	assert.Equal(t, "login flow", got.Query)
	assert.True(t, got.Debug)
	require.NotNil(t, got.TopK)
	assert.Equal(t, 3, *got.TopK)
	require.Len(t, got.Files, 2)
	assert.Equal(t, "login.md", got.Files[0].Name)
	assert.Equal(t, "Users sign in with email.", string(got.Files[0].Data))
	assert.Equal(t, "notes.txt", got.Files[1].Name)
}

func TestGenerateWithoutFiles(t *testing.T) {
	svc := &fakeService{resp: &model.QueryResponse{
		Status:  model.StatusInsufficientInfo,
		Result:  model.NewInsufficientResult(nil),
		Message: errors.ErrEmptyInput.MessageEN,
	}}
	r := newEngine(svc)

	w, env := serve(t, r, multipartRequest(t, map[string]string{"query": "anything"}))

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Data)
	assert.Equal(t, model.StatusInsufficientInfo, env.Data.Status)
	assert.Equal(t, errors.ErrEmptyInput.MessageEN, env.Data.Message)
	assert.Empty(t, env.Data.Result.UseCases)
	require.Equal(t, 1, svc.calls())
	assert.Empty(t, svc.reqs[0].Files)
	assert.Nil(t, svc.reqs[0].TopK)
	assert.False(t, svc.reqs[0].Debug)
}

func TestGenerateRejectsInvalidForm(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		status int
	}{
		{"missing query", map[string]string{}, http.StatusBadRequest},
		{"blank query", map[string]string{"query": "   "}, http.StatusBadRequest},
		{"negative top_k", map[string]string{"query": "login", "top_k": "-1"}, http.StatusBadRequest},
		{"malformed top_k", map[string]string{"query": "login", "top_k": "many"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{resp: successResponse()}
			r := newEngine(svc)

			w, env := serve(t, r, multipartRequest(t, tt.fields, upload{FieldFiles, "a.txt", "text"}))

			assert.Equal(t, tt.status, w.Code)
			assert.NotZero(t, env.Code)
			assert.Zero(t, svc.calls())
		})
	}
}

func TestGenerateMapsServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"transport", errors.ErrTransport.WithCause(context.DeadlineExceeded), http.StatusBadGateway, errors.ErrTransport.Code},
		{"invalid", errors.ErrCaseGenInvalidRequest.WithMessage("top_k must not be negative"), http.StatusBadRequest, errors.ErrCaseGenInvalidRequest.Code},
		{"index", errors.ErrIndexFailed.WithCause(assert.AnError), http.StatusInternalServerError, errors.ErrIndexFailed.Code},
		{"plain", assert.AnError, http.StatusInternalServerError, errors.ErrInternal.Code},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine(&fakeService{err: tt.err})

			w, env := serve(t, r, multipartRequest(t, map[string]string{"query": "login"}))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, env.Code)
			assert.Nil(t, env.Data)
		})
	}
}

func TestGenerateURLEncodedForm(t *testing.T) {
	svc := &fakeService{resp: successResponse()}
	r := newEngine(svc)

	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader("query=login+flow"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w, _ := serve(t, r, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, svc.calls())
	assert.Equal(t, "login flow", svc.reqs[0].Query)
	assert.Empty(t, svc.reqs[0].Files)
}

func TestHealthz(t *testing.T) {
	r := newEngine(&fakeService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestMetricsExport(t *testing.T) {
	m := metrics.New()
	m.RecordShortCircuit(metrics.ReasonInsufficientEvidence)
	h := NewCaseGenHandler(&fakeService{}, nil, m)
	r := gin.New()
	r.GET("/metrics", h.Metrics)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, w.Body.String(), "casegen_queries_total")
	assert.Contains(t, w.Body.String(), `casegen_short_circuits_total{reason="insufficient_evidence"} 1`)
}

func TestVersion(t *testing.T) {
	r := newEngine(&fakeService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"code":0`)
}
