package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"loanterms/internal/config"
	"loanterms/internal/parser"
	"loanterms/internal/port"
)

const (
	apiURL       = "https://api.anthropic.com/v1/messages"
	apiVersion   = "2023-06-01"
	providerName = "claude"
	toolName     = "record_loan_terms"
)

// Extractor implements port.StructuredExtractor using the Anthropic Messages
// API. The schema is enforced by forcing a single tool call whose input
// schema is the contract schema.
type Extractor struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewExtractor creates a Claude-based extractor.
func NewExtractor(cfg *config.ParserConfig) *Extractor {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = apiURL
	}
	return newExtractor(cfg, endpoint)
}

// NewExtractorWithEndpoint creates an extractor pointing at a custom API endpoint (for testing).
func NewExtractorWithEndpoint(cfg *config.ParserConfig, endpoint string) *Extractor {
	return newExtractor(cfg, endpoint)
}

// Factory adapts NewExtractor to parser.ProviderFactory.
func Factory(cfg *config.ParserConfig) (port.StructuredExtractor, error) {
	return NewExtractor(cfg), nil
}

func newExtractor(cfg *config.ParserConfig, endpoint string) *Extractor {
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &Extractor{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: cfg.Timeout()},
	}
}

func (e *Extractor) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	schema, err := parser.ContractFieldsSchemaJSON()
	if err != nil {
		return nil, err
	}

	reqBody := map[string]interface{}{
		"model":      e.model,
		"max_tokens": 8192,
		"system":     parser.SystemInstruction,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": input.Text,
			},
		},
		"tools": []map[string]interface{}{
			{
				"name":         toolName,
				"description":  "Record the terms of the " + parser.SchemaName + " document.",
				"input_schema": schema,
			},
		},
		"tool_choice": map[string]interface{}{
			"type": "tool",
			"name": toolName,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", e.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling anthropic API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, parser.Truncate(string(respBody), 500))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := parser.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, parser.NewRateLimitError(providerName, baseErr, retryAfter)
		}
		return nil, baseErr
	}

	return parseResponse(respBody, e.model)
}

// apiResponse models the Anthropic Messages API response.
type apiResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func parseResponse(body []byte, model string) (*port.ExtractOutput, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if resp.StopReason == "max_tokens" {
		return nil, fmt.Errorf("output truncated (stop_reason: max_tokens): response exceeded output token limit")
	}

	var input json.RawMessage
	for _, block := range resp.Content {
		if block.Type == "tool_use" && block.Name == toolName {
			input = block.Input
			break
		}
	}
	if input == nil {
		return nil, fmt.Errorf("empty response from API: no %s tool call", toolName)
	}

	fields, err := parser.DecodeContractFields(input)
	if err != nil {
		return nil, fmt.Errorf("parsing LLM JSON output: %w (raw: %s)", err, parser.Truncate(string(input), 500))
	}

	if resp.Model != "" {
		model = resp.Model
	}
	return &port.ExtractOutput{
		Fields:    fields,
		RawJSON:   input,
		ModelUsed: model,
		Provider:  providerName,
	}, nil
}
