package parser_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanterms/internal/config"
	"loanterms/internal/parser"
	"loanterms/internal/port"
)

type stubExtractor struct{ model string }

func (s *stubExtractor) Extract(_ context.Context, _ port.ExtractInput) (*port.ExtractOutput, error) {
	return &port.ExtractOutput{ModelUsed: s.model}, nil
}

func TestNewExtractor_Registered(t *testing.T) {
	parser.RegisterProvider("stub", func(cfg *config.ParserConfig) (port.StructuredExtractor, error) {
		return &stubExtractor{model: cfg.Model}, nil
	})

	ex, err := parser.NewExtractor(&config.ParserConfig{Provider: "stub", Model: "m1"})
	require.NoError(t, err)

	out, err := ex.Extract(context.Background(), port.ExtractInput{})
	require.NoError(t, err)
	assert.Equal(t, "m1", out.ModelUsed)
	assert.Contains(t, parser.Providers(), "stub")
}

func TestNewExtractor_Unknown(t *testing.T) {
	_, err := parser.NewExtractor(&config.ParserConfig{Provider: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown parser provider")
}
