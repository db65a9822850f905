// Package model provides the data records flowing through the casegen pipeline.
package model

// Generation status values.
const (
	StatusSuccess          = "success"
	StatusInsufficientInfo = "insufficient_info"
)

// DefaultMissingInformation is reported when the model gives no reason of its own.
const DefaultMissingInformation = "Insufficient documented behavior in provided files"

// RawDocument is the text extracted from one uploaded file.
type RawDocument struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// Chunk is one deduplicated window of a RawDocument.
type Chunk struct {
	Content     string `json:"content" validate:"required,nonblank"`
	Source      string `json:"source" validate:"required"`
	ContentHash string `json:"content_hash" validate:"required,len=32,hexadecimal"`
	// Position is the index of the chunk in the request's final chunk list.
	Position int `json:"position" validate:"gte=0"`
}

// RetrievedChunk is a ranked retrieval hit. Score is in [0, 1], higher is better.
type RetrievedChunk struct {
	Content  string  `json:"content"`
	Source   string  `json:"source"`
	Score    float64 `json:"score"`
	Position int     `json:"position"`
}

// UseCase is one generated test-case specification.
type UseCase struct {
	UseCaseTitle    string         `json:"use_case_title" validate:"required"`
	Goal            string         `json:"goal"`
	Preconditions   []string       `json:"preconditions"`
	TestData        map[string]any `json:"test_data"`
	Steps           []string       `json:"steps" validate:"min=1"`
	ExpectedResults []string       `json:"expected_results" validate:"min=1"`
	NegativeCases   []string       `json:"negative_cases"`
	BoundaryCases   []string       `json:"boundary_cases"`
}

// GenerationResult is the structured answer returned to the caller.
type GenerationResult struct {
	Status             string    `json:"status"`
	Assumptions        []string  `json:"assumptions"`
	MissingInformation []string  `json:"missing_information"`
	UseCases           []UseCase `json:"use_cases"`
}

// IsSuccess reports whether the result carries grounded use cases.
func (r *GenerationResult) IsSuccess() bool {
	return r != nil && r.Status == StatusSuccess && len(r.UseCases) > 0
}

// NewInsufficientResult builds the insufficient_info result. An empty missing
// list is replaced by DefaultMissingInformation.
func NewInsufficientResult(missing []string) *GenerationResult {
	if len(missing) == 0 {
		missing = []string{DefaultMissingInformation}
	}
	return &GenerationResult{
		Status:             StatusInsufficientInfo,
		Assumptions:        []string{},
		MissingInformation: missing,
		UseCases:           []UseCase{},
	}
}

// EvaluationReport is the advisory structural check of a result.
type EvaluationReport struct {
	Passed   bool     `json:"passed"`
	Failures []string `json:"failures"`
}

// QueryResponse is the pipeline output for one request.
type QueryResponse struct {
	Status         string            `json:"status"`
	LatencySeconds float64           `json:"latency_seconds"`
	Result         *GenerationResult `json:"result"`
	Message        string            `json:"message,omitempty"`
	RequestID      string            `json:"request_id"`

	// Debug-only fields.
	Evaluation          *EvaluationReport `json:"evaluation,omitempty"`
	RetrievedChunkCount *int              `json:"retrieved_chunk_count,omitempty"`
	EvidenceScore       *float64          `json:"evidence_score,omitempty"`
}
