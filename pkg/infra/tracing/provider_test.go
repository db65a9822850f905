package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewOptions(t *testing.T) {
	opts := NewOptions()

	if opts.Enabled {
		t.Error("Expected tracing to be disabled by default")
	}

	if opts.ServiceName != "casegen" {
		t.Errorf("Expected service name to be 'casegen', got %s", opts.ServiceName)
	}

	if opts.SamplerType != SamplerParentBased {
		t.Errorf("Expected sampler type to be parent-based, got %s", opts.SamplerType)
	}
}

func TestOptionsValidate(t *testing.T) {
	valid := func() *Options {
		return &Options{
			Enabled:       true,
			ServiceName:   "test",
			ExporterType:  ExporterOTLPGRPC,
			Endpoint:      "localhost:4317",
			SamplerType:   SamplerAlwaysOn,
			SamplerRatio:  1,
			BatchTimeout:  5 * time.Second,
			BatchMaxSize:  512,
			ExportTimeout: 30 * time.Second,
			MaxQueueSize:  2048,
		}
	}

	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr bool
	}{
		{"valid", func(*Options) {}, false},
		{"disabled tracing is valid", func(o *Options) { *o = Options{} }, false},
		{"missing service name", func(o *Options) { o.ServiceName = "" }, true},
		{"missing endpoint for OTLP exporter", func(o *Options) { o.Endpoint = "" }, true},
		{"stdout needs no endpoint", func(o *Options) { o.ExporterType = ExporterStdout; o.Endpoint = "" }, false},
		{"invalid exporter type", func(o *Options) { o.ExporterType = "invalid" }, true},
		{"invalid sampler type", func(o *Options) { o.SamplerType = "invalid" }, true},
		{"ratio out of range", func(o *Options) { o.SamplerRatio = 1.5 }, true},
		{"non-positive batch size", func(o *Options) { o.BatchMaxSize = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := valid()
			tt.mutate(opts)
			errs := opts.Validate()
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("Validate() errs = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestNewProviderDisabled(t *testing.T) {
	p, err := NewProvider(context.Background(), NewOptions())
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if p.Enabled() {
		t.Error("Expected disabled provider")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewProviderNoopExporter(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	opts := NewOptions()
	opts.Enabled = true
	opts.ExporterType = ExporterNoop

	p, err := NewProvider(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer p.Shutdown(context.Background())

	if !p.Enabled() {
		t.Error("Expected enabled provider")
	}

	ctx, span := p.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	if TraceIDFromContext(ctx) == "" {
		t.Error("Expected trace ID in context")
	}
}

func TestNewProviderInvalid(t *testing.T) {
	opts := NewOptions()
	opts.Enabled = true
	opts.ExporterType = "bogus"

	if _, err := NewProvider(context.Background(), opts); err == nil {
		t.Error("Expected error for invalid exporter type")
	}
}

func TestRecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordError(ctx, errors.New("boom"))
	RecordError(ctx, nil)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	if got := spans[0].Status().Description; got != "boom" {
		t.Errorf("Expected status description 'boom', got %q", got)
	}
	if TraceIDFromContext(context.Background()) != "" {
		t.Error("Expected empty trace ID without span")
	}
}
