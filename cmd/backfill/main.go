// Command backfill uploads every stored record to the S3 archive. Use it after
// enabling s3.archive_prefix on a store that already holds records.
// Usage: go run ./cmd/backfill [--dry-run]
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"loanterms/internal/bootstrap"
	"loanterms/internal/config"
	"loanterms/internal/logger"
	"loanterms/internal/port"
	"loanterms/internal/service"
)

const batchSize = 100

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dryRun := flag.Bool("dry-run", false, "list keys without uploading")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.S3.ArchivePrefix == "" || !cfg.S3.Enabled() {
		return errors.New("s3.bucket and s3.archive_prefix must be set")
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx := context.Background()

	repo, cleanup, err := bootstrap.NewRecordRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening record store: %w", err)
	}
	defer cleanup()
	if repo == nil {
		return errors.New("store.driver is none; nothing to backfill")
	}

	storage, err := bootstrap.NewObjectStorage(ctx, &cfg.S3)
	if err != nil {
		return fmt.Errorf("initializing object storage: %w", err)
	}

	offset := 0
	total := 0
	for {
		records, count, err := repo.List(ctx, offset, batchSize)
		if err != nil {
			return fmt.Errorf("listing records at offset %d: %w", offset, err)
		}

		for i := range records {
			rec := records[i].OutputRecord
			key := service.ArchiveKey(cfg.S3.ArchivePrefix, rec.ID)
			if *dryRun {
				zl.Info("would archive", zap.String("record_id", rec.ID), zap.String("key", key))
				continue
			}

			body, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("marshaling record %q: %w", rec.ID, err)
			}
			if _, err := storage.Upload(ctx, port.UploadInput{
				Bucket:      cfg.S3.Bucket,
				Key:         key,
				Body:        bytes.NewReader(body),
				ContentType: "application/json",
				Size:        int64(len(body)),
			}); err != nil {
				zl.Error("archive failed", zap.String("record_id", rec.ID), zap.Error(err))
				continue
			}
			total++
		}

		zl.Info("batch processed", zap.Int("offset", offset), zap.Int("records", len(records)), zap.Int("total", count))
		offset += len(records)
		if len(records) < batchSize || offset >= count {
			break
		}
	}

	zl.Info("backfill complete", zap.Int("archived", total))
	return nil
}
