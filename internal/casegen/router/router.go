// Package router provides casegen service routing.
package router

import (
	"github.com/kart-io/logger"

	"github.com/kart-io/casegen/internal/casegen/handler"
	"github.com/kart-io/casegen/pkg/infra/middleware"
	"github.com/kart-io/casegen/pkg/infra/server"
)

// ProbePaths are excluded from access logs and tracing.
var ProbePaths = []string{"/healthz", "/metrics"}

// Register registers the casegen service routes. maxUploadBytes bounds the
// body of the upload endpoints.
func Register(srv *server.Server, h *handler.CaseGenHandler, maxUploadBytes int64) error {
	logger.Info("Registering casegen routes...")

	router := srv.Engine()

	// Probe and info endpoints
	router.GET("/healthz", h.Healthz)
	router.GET("/metrics", h.Metrics)
	router.GET("/version", h.Version)

	limit := middleware.BodyLimit(maxUploadBytes)

	// Form upload endpoint
	router.POST("/ui-generate", limit, h.Generate)

	v1 := router.Group("/v1")
	{
		casegen := v1.Group("/casegen")
		{
			casegen.POST("/generate", limit, h.Generate)
		}
	}

	logger.Info("HTTP routes registered")
	return nil
}
