package port

import (
	"context"
	"encoding/json"

	"loanterms/internal/domain"
)

// ExtractInput carries the flattened document text for one extraction.
type ExtractInput struct {
	Text string
}

// ExtractOutput contains the structured result from an LLM provider.
type ExtractOutput struct {
	Fields    domain.ContractFields
	RawJSON   json.RawMessage
	ModelUsed string
	Provider  string
}

// StructuredExtractor abstracts the schema-constrained LLM call that turns
// contract text into ContractFields. One call sends exactly one request.
type StructuredExtractor interface {
	Extract(ctx context.Context, input ExtractInput) (*ExtractOutput, error)
}
