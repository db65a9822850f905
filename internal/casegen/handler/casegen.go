// Package handler provides HTTP handlers for the casegen service.
package handler

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/casegen/internal/casegen/biz"
	"github.com/kart-io/casegen/internal/casegen/ingest"
	"github.com/kart-io/casegen/internal/casegen/metrics"
	"github.com/kart-io/casegen/internal/casegen/model"
	"github.com/kart-io/casegen/pkg/infra/app"
	"github.com/kart-io/casegen/pkg/utils/errors"
	"github.com/kart-io/casegen/pkg/utils/response"
	"github.com/kart-io/casegen/pkg/utils/validator"
)

// Multipart field names for uploaded files. Browsers and form libraries
// disagree on the bracket suffix, so both are accepted.
const (
	FieldFiles         = "files"
	FieldFilesBrackets = "files[]"
)

// MetricsNamespace prefixes every exported metric.
const MetricsNamespace = "casegen"

// QueryService runs the generation pipeline for one request.
type QueryService interface {
	HandleQuery(ctx context.Context, req *biz.QueryRequest) (*model.QueryResponse, error)
}

// CaseGenHandler handles casegen HTTP requests.
type CaseGenHandler struct {
	service   QueryService
	validator *validator.Validator
	metrics   *metrics.Collector
}

// NewCaseGenHandler creates a new CaseGenHandler.
func NewCaseGenHandler(service QueryService, v *validator.Validator, m *metrics.Collector) *CaseGenHandler {
	if v == nil {
		v = validator.New()
	}
	if m == nil {
		m = metrics.New()
	}
	return &CaseGenHandler{
		service:   service,
		validator: v,
		metrics:   m,
	}
}

// GenerateForm represents the non-file fields of a generate request.
type GenerateForm struct {
	Query string `json:"query" form:"query" validate:"required,nonblank"`
	Debug bool   `json:"debug" form:"debug"`
	TopK  *int   `json:"top_k" form:"top_k" validate:"omitempty,gte=0"`
}

// Generate runs the pipeline over the uploaded files.
//
// Short-circuits (no text, no chunks, weak evidence) and model fallbacks are
// reported with HTTP 200 and status insufficient_info. Only invalid input,
// oversized bodies and provider failures produce error envelopes.
func (h *CaseGenHandler) Generate(c *gin.Context) {
	var form GenerateForm
	if err := c.ShouldBind(&form); err != nil {
		response.Fail(c, bindError(err))
		return
	}
	if verrs := h.validator.ValidateWithLang(&form, "en"); verrs != nil {
		response.Fail(c, errors.ErrCaseGenInvalidRequest.WithMessage(verrs.Error()))
		return
	}

	files, err := readUploads(c)
	if err != nil {
		response.Fail(c, err)
		return
	}

	resp, err := h.service.HandleQuery(c.Request.Context(), &biz.QueryRequest{
		Files: files,
		Query: form.Query,
		TopK:  form.TopK,
		Debug: form.Debug,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, resp)
}

// Healthz reports liveness.
func (h *CaseGenHandler) Healthz(c *gin.Context) {
	response.OK(c, gin.H{"status": "ok"})
}

// Metrics exports the business counters in Prometheus text format.
func (h *CaseGenHandler) Metrics(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8",
		[]byte(h.metrics.Export(MetricsNamespace, "")))
}

// Version reports build information.
func (h *CaseGenHandler) Version(c *gin.Context) {
	response.OK(c, app.GetVersionInfo())
}

// readUploads reads every uploaded file into memory. A request that is not
// multipart carries no files.
func readUploads(c *gin.Context) ([]ingest.File, error) {
	if !strings.HasPrefix(c.ContentType(), gin.MIMEMultipartPOSTForm) {
		return nil, nil
	}
	mf, err := c.MultipartForm()
	if err != nil {
		return nil, bindError(err)
	}

	headers := slices.Concat(mf.File[FieldFiles], mf.File[FieldFilesBrackets])
	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		data, err := readUpload(fh)
		if err != nil {
			return nil, errors.ErrBind.WithCause(err)
		}
		files = append(files, ingest.File{Name: fh.Filename, Data: data})
	}
	return files, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return data, nil
}

func bindError(err error) error {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return errors.ErrRequestTooLarge.WithCause(err)
	}
	logger.Debugw("failed to bind generate request", "error", err.Error())
	return errors.ErrBind.WithCause(err)
}
