// Package app provides the casegen server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/casegen/cmd/casegen/app/options"
	casegen "github.com/kart-io/casegen/internal/casegen"
	"github.com/kart-io/casegen/pkg/infra/app"
)

// commandDesc is the description of the command.
const commandDesc = `casegen generates structured test cases from uploaded requirement documents.

Every answer is grounded in the uploaded files:
  - Text is extracted from txt, md, csv, log, docx, pdf and images (OCR)
  - Chunks are indexed per request and retrieved with hybrid vector + lexical scoring
  - Weak evidence is refused before the model is called
  - Model output that is malformed or ungrounded is downgraded to insufficient_info`

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(casegen.Name),
		app.WithShortDescription("Evidence-grounded test case generation service"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return server.Run(ctx)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
