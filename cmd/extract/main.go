// Command extract runs the loan terms pipeline on OCR documents from local
// files or object storage and prints the output records as JSON.
//
// Usage:
//
//	extract -in analysis.json
//	extract -bucket terms -key ocr/acme.json -key ocr/globex.json --store
//	extract a.json b.json c.json --concurrency 3
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"loanterms/internal/bootstrap"
	"loanterms/internal/config"
	"loanterms/internal/domain"
	"loanterms/internal/logger"
	"loanterms/internal/ocrtext"
	"loanterms/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var (
		in          = flag.StringP("in", "i", "", `OCR JSON file ("-" for stdin)`)
		bucket      = flag.String("bucket", "", "bucket holding OCR JSON (defaults to s3.bucket)")
		keys        = flag.StringSlice("key", nil, "object key of an OCR JSON document (repeatable)")
		store       = flag.Bool("store", false, "persist records to the configured store")
		concurrency = flag.Int("concurrency", 1, "documents processed in parallel")
		envFile     = flag.String("env", ".env", "dotenv file loaded before the environment")
		preview     = flag.Bool("preview", false, "print the flattened text and contact info only")
	)
	flag.Parse()

	files := flag.Args()
	if *in != "" {
		files = append([]string{*in}, files...)
	}
	if len(files) == 0 && len(*keys) == 0 {
		flag.Usage()
		return errors.New("no input: pass -in, file arguments or -key")
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !*store {
		cfg.Store.Driver = string(domain.StoreNone)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	jobs, err := loadJobs(files, *bucket, *keys)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *preview {
		for _, job := range jobs {
			if job.Doc == nil {
				return errors.New("-preview needs local files")
			}
			text, contact := ocrtext.Flatten(*job.Doc)
			if err := enc.Encode(domain.FlattenResult{Text: text, Contact: contact}); err != nil {
				return err
			}
		}
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewApp(ctx, cfg, zl, *store)
	if err != nil {
		return err
	}
	defer app.Close()

	worker := service.NewBatchWorker(app.Terms, service.BatchConfig{
		Concurrency: *concurrency,
		JobTimeout:  cfg.Parser.Timeout() + cfg.Parser.Timeout()/2,
	}, zl)

	var failed int
	for _, res := range worker.Run(ctx, jobs) {
		if res.Err != nil {
			failed++
			zl.Error("extraction failed", zap.String("input", res.Job.Name), zap.Error(res.Err))
			continue
		}
		if err := enc.Encode(res.Result.Record); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(jobs))
	}
	return nil
}

func loadJobs(files []string, bucket string, keys []string) ([]service.BatchJob, error) {
	jobs := make([]service.BatchJob, 0, len(files)+len(keys))
	for _, name := range files {
		doc, err := readDocument(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		jobs = append(jobs, service.BatchJob{Name: name, Doc: &doc})
	}
	for _, key := range keys {
		jobs = append(jobs, service.BatchJob{Name: key, Bucket: bucket, Key: key})
	}
	return jobs, nil
}

func readDocument(name string) (domain.OCRDocument, error) {
	var r io.Reader = os.Stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return domain.OCRDocument{}, err
		}
		defer f.Close()
		r = f
	}
	return ocrtext.DecodeDocument(r)
}
