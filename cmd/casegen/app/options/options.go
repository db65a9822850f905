// Package options contains flags and options for initializing the casegen server.
package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	casegen "github.com/kart-io/casegen/internal/casegen"
	cliflag "github.com/kart-io/casegen/pkg/app/cliflag"
	genericoptions "github.com/kart-io/casegen/pkg/options"
	cacheopts "github.com/kart-io/casegen/pkg/options/cache"
	casegenopts "github.com/kart-io/casegen/pkg/options/casegen"
	llmopts "github.com/kart-io/casegen/pkg/options/llm"
	logopts "github.com/kart-io/casegen/pkg/options/logger"
	milvusopts "github.com/kart-io/casegen/pkg/options/milvus"
	httpopts "github.com/kart-io/casegen/pkg/options/server/http"
	tracingopts "github.com/kart-io/casegen/pkg/options/tracing"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// TracingOptions contains OpenTelemetry configuration.
	TracingOptions *tracingopts.Options `json:"tracing" mapstructure:"tracing"`

	// MilvusOptions contains Milvus configuration, used when the index backend is milvus.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// CaseGenOptions contains pipeline configuration.
	CaseGenOptions *casegenopts.Options `json:"casegen" mapstructure:"casegen"`

	// CacheOptions contains result cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:      httpopts.NewOptions(),
		LogOptions:       logopts.NewOptions(),
		TracingOptions:   tracingopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		ChatOptions:      llmopts.NewChatOptions(),
		CaseGenOptions:   casegenopts.NewOptions(),
		CacheOptions:     cacheopts.NewOptions(),
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding")
	o.ChatOptions.AddFlags(fss.FlagSet("chat"), "chat")
	o.CaseGenOptions.AddFlags(fss.FlagSet("casegen"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))
	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.HTTPOptions.Complete(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if err := o.TracingOptions.Complete(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := o.CaseGenOptions.Complete(); err != nil {
		return fmt.Errorf("casegen: %w", err)
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.TracingOptions.Validate()...)
	errs = append(errs, genericoptions.PrefixErrors("embedding", o.EmbeddingOptions.Validate())...)
	errs = append(errs, genericoptions.PrefixErrors("chat", o.ChatOptions.Validate())...)
	errs = append(errs, o.CaseGenOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)
	if o.CaseGenOptions.IndexBackend == casegenopts.IndexBackendMilvus {
		errs = append(errs, o.MilvusOptions.Validate()...)
	}

	return utilerrors.NewAggregate(errs)
}

// Config builds a casegen.Config based on ServerOptions.
func (o *ServerOptions) Config() (*casegen.Config, error) {
	return &casegen.Config{
		HTTPOptions:      o.HTTPOptions,
		LogOptions:       o.LogOptions,
		TracingOptions:   o.TracingOptions,
		MilvusOptions:    o.MilvusOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		ChatOptions:      o.ChatOptions,
		CaseGenOptions:   o.CaseGenOptions,
		CacheOptions:     o.CacheOptions,
	}, nil
}
