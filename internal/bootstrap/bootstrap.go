// Package bootstrap wires configured infrastructure into the pipeline for the
// server and CLI entry points.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"loanterms/internal/config"
	"loanterms/internal/domain"
	"loanterms/internal/logger"
	"loanterms/internal/metrics"
	"loanterms/internal/parser"
	"loanterms/internal/parser/azure"
	"loanterms/internal/parser/claude"
	"loanterms/internal/parser/gemini"
	"loanterms/internal/parser/openai"
	"loanterms/internal/port"
	"loanterms/internal/repository/mongo"
	"loanterms/internal/repository/postgres"
	"loanterms/internal/service"
	s3storage "loanterms/internal/storage/s3"
)

// RegisterParsers registers every built-in extraction provider.
func RegisterParsers() {
	parser.RegisterProvider("azure", azure.Factory)
	parser.RegisterProvider("openai", openai.Factory)
	parser.RegisterProvider("claude", claude.Factory)
	parser.RegisterProvider("gemini", gemini.Factory)
}

// NewRecordRepository opens the configured record store. It returns a nil
// repository for the "none" driver. The cleanup func is always non-nil.
func NewRecordRepository(ctx context.Context, cfg *config.Config) (port.RecordRepository, func(), error) {
	noop := func() {}

	switch domain.StoreDriver(cfg.Store.Driver) {
	case domain.StorePostgres:
		db, err := postgres.NewDB(ctx, &cfg.DB)
		if err != nil {
			return nil, noop, err
		}
		return postgres.NewTermRecordRepo(db), func() { _ = db.Close() }, nil
	case domain.StoreMongo:
		client, err := mongo.Connect(ctx, &cfg.Mongo)
		if err != nil {
			return nil, noop, err
		}
		coll := client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
		return mongo.NewTermRecordRepo(coll), func() { _ = client.Disconnect(context.Background()) }, nil
	case domain.StoreNone, "":
		return nil, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}

// NewObjectStorage returns the S3 client, or nil when no bucket is configured.
func NewObjectStorage(ctx context.Context, cfg *config.S3Config) (port.ObjectStorage, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	return s3storage.NewS3Client(ctx, cfg)
}

// App holds the assembled pipeline and the resources backing it.
type App struct {
	Terms   service.TermsService
	Metrics *metrics.Metrics
	close   []func()
}

// Close releases the store connection.
func (a *App) Close() {
	for i := len(a.close) - 1; i >= 0; i-- {
		a.close[i]()
	}
}

// NewApp builds the extractor, record store and object storage from cfg and
// assembles a TermsService. When persist is false no record store is opened.
func NewApp(ctx context.Context, cfg *config.Config, log *zap.Logger, persist bool) (*App, error) {
	log = logger.OrNop(log)
	RegisterParsers()

	extractor, err := parser.NewExtractor(&cfg.Parser)
	if err != nil {
		return nil, fmt.Errorf("creating %s extractor: %w", cfg.Parser.Provider, err)
	}

	app := &App{Metrics: metrics.New()}

	var repo port.RecordRepository
	if persist {
		r, cleanup, err := NewRecordRepository(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("opening record store: %w", err)
		}
		app.close = append(app.close, cleanup)
		repo = r
	}

	storage, err := NewObjectStorage(ctx, &cfg.S3)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("initializing object storage: %w", err)
	}

	log.Info("pipeline configured",
		zap.String("provider", cfg.Parser.Provider),
		zap.String("store", cfg.Store.Driver),
		zap.Bool("persist", repo != nil),
		zap.Bool("object_storage", storage != nil),
	)

	app.Terms = service.NewTermsService(extractor, repo, storage, app.Metrics, log, service.TermsConfig{
		Provider:      cfg.Parser.Provider,
		ArchiveBucket: cfg.S3.Bucket,
		ArchivePrefix: cfg.S3.ArchivePrefix,
	})
	return app, nil
}
