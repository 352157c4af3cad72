package bootstrap_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanterms/internal/bootstrap"
	"loanterms/internal/config"
	"loanterms/internal/parser"
)

func TestRegisterParsers(t *testing.T) {
	bootstrap.RegisterParsers()
	assert.Subset(t, parser.Providers(), []string{"azure", "claude", "gemini", "openai"})
}

func TestNewRecordRepository_None(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: "none"}}

	repo, cleanup, err := bootstrap.NewRecordRepository(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, repo)
	assert.NotNil(t, cleanup)
	cleanup()
}

func TestNewRecordRepository_UnknownDriver(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: "sqlite"}}

	_, cleanup, err := bootstrap.NewRecordRepository(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown store driver")
	assert.NotNil(t, cleanup)
}

func TestNewObjectStorage_Disabled(t *testing.T) {
	storage, err := bootstrap.NewObjectStorage(context.Background(), &config.S3Config{})
	require.NoError(t, err)
	assert.Nil(t, storage)
}

func TestNewApp_WithoutStore(t *testing.T) {
	cfg := &config.Config{
		Parser: config.ParserConfig{Provider: "openai", APIKey: "sk-test"},
		Store:  config.StoreConfig{Driver: "none"},
	}

	app, err := bootstrap.NewApp(context.Background(), cfg, nil, true)
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.Terms)
	assert.NotNil(t, app.Metrics)
	assert.NoError(t, app.Terms.Ready(context.Background()))
}

func TestNewApp_UnknownProvider(t *testing.T) {
	cfg := &config.Config{Parser: config.ParserConfig{Provider: "llama"}}

	_, err := bootstrap.NewApp(context.Background(), cfg, nil, false)
	assert.ErrorContains(t, err, "unknown parser provider")
}
