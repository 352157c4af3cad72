// Package azure implements contract extraction against an Azure OpenAI
// deployment using structured outputs.
package azure

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"loanterms/internal/config"
	"loanterms/internal/parser"
	"loanterms/internal/port"
)

const (
	providerName      = "azure"
	defaultAPIVersion = "2024-08-01-preview"
	defaultModel      = "gpt-4o"
)

// Extractor implements port.StructuredExtractor on the Azure OpenAI Chat
// Completions API. The model name is the deployment name.
type Extractor struct {
	client openai.Client
	model  string
}

// NewExtractor creates an Azure OpenAI extractor from the parser config.
func NewExtractor(cfg *config.ParserConfig, opts ...option.RequestOption) (*Extractor, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("azure: endpoint is required")
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	base := []option.RequestOption{
		azure.WithEndpoint(cfg.Endpoint, apiVersion),
		azure.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithRequestTimeout(cfg.Timeout()),
	}
	return &Extractor{
		client: openai.NewClient(append(base, opts...)...),
		model:  model,
	}, nil
}

// Factory adapts NewExtractor to parser.ProviderFactory.
func Factory(cfg *config.ParserConfig) (port.StructuredExtractor, error) {
	return NewExtractor(cfg)
}

func (e *Extractor) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	schema, err := parser.ContractFieldsSchema()
	if err != nil {
		return nil, err
	}

	completion, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(parser.SystemInstruction),
			openai.UserMessage(input.Text),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   parser.SchemaName,
					Schema: schema,
					Strict: openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return nil, classifyError(err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("empty response from API: no choices")
	}
	choice := completion.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("model refused extraction: %s", parser.Truncate(choice.Message.Refusal, 500))
	}
	switch choice.FinishReason {
	case "length":
		return nil, fmt.Errorf("output truncated (finish_reason: length): response exceeded output token limit")
	case "content_filter":
		return nil, fmt.Errorf("output blocked by content filter")
	}

	text := choice.Message.Content
	fields, err := parser.DecodeContractFields([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("parsing LLM JSON output: %w (raw: %s)", err, parser.Truncate(text, 500))
	}

	modelUsed := completion.Model
	if modelUsed == "" {
		modelUsed = e.model
	}
	return &port.ExtractOutput{
		Fields:    fields,
		RawJSON:   []byte(text),
		ModelUsed: modelUsed,
		Provider:  providerName,
	}, nil
}

func classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		retryAfter := 0
		if apiErr.Response != nil {
			retryAfter = parser.ParseRetryAfterHeader(apiErr.Response.Header.Get("Retry-After"))
		}
		return parser.NewRateLimitError(providerName, err, retryAfter)
	}
	return fmt.Errorf("calling azure openai API: %w", err)
}
