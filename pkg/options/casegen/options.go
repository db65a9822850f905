// Package casegen provides configuration options for the test-case generation pipeline.
package casegen

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/casegen/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Index backends.
const (
	IndexBackendMemory = "memory"
	IndexBackendMilvus = "milvus"
)

// Options contains pipeline configuration.
type Options struct {
	// ChunkSize is the window length in runes.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the number of runes shared by consecutive windows.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// TopK is the number of chunks handed to the evidence gate.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// MinEvidenceScore is the inclusive lower bound on the mean retrieval score.
	MinEvidenceScore float64 `json:"min-evidence-score" mapstructure:"min-evidence-score"`

	// VectorWeight and LexicalWeight combine the two retrieval signals.
	VectorWeight  float64 `json:"vector-weight" mapstructure:"vector-weight"`
	LexicalWeight float64 `json:"lexical-weight" mapstructure:"lexical-weight"`

	// CandidateFactor widens the vector search before fusion.
	CandidateFactor int `json:"candidate-factor" mapstructure:"candidate-factor"`

	// IndexBackend selects memory or milvus.
	IndexBackend string `json:"index-backend" mapstructure:"index-backend"`

	// MaxContextRunes truncates the prompt context. 0 disables truncation.
	MaxContextRunes int `json:"max-context-runes" mapstructure:"max-context-runes"`

	// GenerateTimeout bounds one generation including retries. 0 disables it.
	GenerateTimeout time.Duration `json:"generate-timeout" mapstructure:"generate-timeout"`

	// GenerateMaxAttempts counts the first model call.
	GenerateMaxAttempts int `json:"generate-max-attempts" mapstructure:"generate-max-attempts"`

	// ExtractWorkers sizes the extraction pool.
	ExtractWorkers int `json:"extract-workers" mapstructure:"extract-workers"`

	// OCR configures the image text extractor.
	OCR *OCROptions `json:"ocr" mapstructure:"ocr"`
}

// OCROptions configures the tesseract adapter.
type OCROptions struct {
	Command  string        `json:"command" mapstructure:"command"`
	Language string        `json:"language" mapstructure:"language"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		ChunkSize:           500,
		ChunkOverlap:        100,
		TopK:                5,
		MinEvidenceScore:    0.35,
		VectorWeight:        0.7,
		LexicalWeight:       0.3,
		CandidateFactor:     4,
		IndexBackend:        IndexBackendMemory,
		MaxContextRunes:     12000,
		GenerateTimeout:     120 * time.Second,
		GenerateMaxAttempts: 2,
		ExtractWorkers:      4,
		OCR: &OCROptions{
			Command:  "tesseract",
			Language: "eng",
			Timeout:  60 * time.Second,
		},
	}
}

// AddFlags adds flags for pipeline options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "casegen."
	fs.IntVar(&o.ChunkSize, p+"chunk-size", o.ChunkSize, "Chunk window length in runes.")
	fs.IntVar(&o.ChunkOverlap, p+"chunk-overlap", o.ChunkOverlap, "Runes shared by consecutive chunks.")
	fs.IntVar(&o.TopK, p+"top-k", o.TopK, "Number of chunks retrieved per query.")
	fs.Float64Var(&o.MinEvidenceScore, p+"min-evidence-score", o.MinEvidenceScore, "Minimum mean retrieval score required to call the model.")
	fs.Float64Var(&o.VectorWeight, p+"vector-weight", o.VectorWeight, "Weight of the vector similarity signal.")
	fs.Float64Var(&o.LexicalWeight, p+"lexical-weight", o.LexicalWeight, "Weight of the lexical coverage signal. 0 gives pure vector search.")
	fs.IntVar(&o.CandidateFactor, p+"candidate-factor", o.CandidateFactor, "Vector candidates fetched per requested chunk before fusion.")
	fs.StringVar(&o.IndexBackend, p+"index-backend", o.IndexBackend, "Per-request vector index backend (memory|milvus).")
	fs.IntVar(&o.MaxContextRunes, p+"max-context-runes", o.MaxContextRunes, "Truncate the prompt context to this many runes. 0 disables truncation.")
	fs.DurationVar(&o.GenerateTimeout, p+"generate-timeout", o.GenerateTimeout, "Deadline for one generation including retries. 0 disables it.")
	fs.IntVar(&o.GenerateMaxAttempts, p+"generate-max-attempts", o.GenerateMaxAttempts, "Model call attempts on transient transport failures.")
	fs.IntVar(&o.ExtractWorkers, p+"extract-workers", o.ExtractWorkers, "Workers extracting uploaded files in parallel.")

	if o.OCR == nil {
		o.OCR = NewOptions().OCR
	}
	fs.StringVar(&o.OCR.Command, p+"ocr.command", o.OCR.Command, "Tesseract executable.")
	fs.StringVar(&o.OCR.Language, p+"ocr.language", o.OCR.Language, "Tesseract language code.")
	fs.DurationVar(&o.OCR.Timeout, p+"ocr.timeout", o.OCR.Timeout, "Timeout for one OCR run.")
}

// Validate validates the pipeline options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("casegen.chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("casegen.chunk-overlap must be in [0, chunk-size)"))
	}
	if o.TopK < 0 {
		errs = append(errs, fmt.Errorf("casegen.top-k must not be negative"))
	}
	if o.MinEvidenceScore < 0 || o.MinEvidenceScore > 1 {
		errs = append(errs, fmt.Errorf("casegen.min-evidence-score must be in [0, 1]"))
	}
	if o.VectorWeight < 0 || o.LexicalWeight < 0 || o.VectorWeight+o.LexicalWeight == 0 {
		errs = append(errs, fmt.Errorf("casegen weights must be non-negative and not both zero"))
	}
	if o.CandidateFactor < 1 {
		errs = append(errs, fmt.Errorf("casegen.candidate-factor must be at least 1"))
	}
	switch o.IndexBackend {
	case IndexBackendMemory, IndexBackendMilvus:
	default:
		errs = append(errs, fmt.Errorf("casegen.index-backend must be memory or milvus, got %q", o.IndexBackend))
	}
	if o.MaxContextRunes < 0 {
		errs = append(errs, fmt.Errorf("casegen.max-context-runes must not be negative"))
	}
	if o.GenerateTimeout < 0 {
		errs = append(errs, fmt.Errorf("casegen.generate-timeout must not be negative"))
	}
	if o.GenerateMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("casegen.generate-max-attempts must be at least 1"))
	}
	if o.ExtractWorkers < 1 {
		errs = append(errs, fmt.Errorf("casegen.extract-workers must be at least 1"))
	}
	if o.OCR != nil && o.OCR.Command == "" {
		errs = append(errs, fmt.Errorf("casegen.ocr.command must not be empty"))
	}
	return errs
}

// Complete completes the pipeline options with defaults.
func (o *Options) Complete() error {
	defaults := NewOptions()
	if o.OCR == nil {
		o.OCR = defaults.OCR
	}
	if o.OCR.Language == "" {
		o.OCR.Language = defaults.OCR.Language
	}
	if o.IndexBackend == "" {
		o.IndexBackend = defaults.IndexBackend
	}
	return nil
}
