package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"loanterms/internal/domain"
	"loanterms/internal/logger"
)

// BatchConfig holds settings for the batch worker.
type BatchConfig struct {
	Concurrency int
	JobTimeout  time.Duration
}

// BatchJob is one document to process. When Doc is set it is processed
// directly; otherwise the OCR JSON is read from Bucket/Key.
type BatchJob struct {
	Name   string
	Doc    *domain.OCRDocument
	Bucket string
	Key    string
}

// BatchResult pairs a job with its outcome.
type BatchResult struct {
	Job    BatchJob
	Result *ExtractionResult
	Err    error
}

// BatchWorker runs many documents through TermsService with bounded concurrency.
type BatchWorker struct {
	svc TermsService
	cfg BatchConfig
	log *zap.Logger
}

// NewBatchWorker creates a new BatchWorker.
func NewBatchWorker(svc TermsService, cfg BatchConfig, log *zap.Logger) *BatchWorker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	return &BatchWorker{svc: svc, cfg: cfg, log: logger.OrNop(log)}
}

// Run processes jobs and returns one result per job in input order. Jobs not
// yet started when ctx is canceled report ctx.Err().
func (w *BatchWorker) Run(ctx context.Context, jobs []BatchJob) []BatchResult {
	results := make([]BatchResult, len(jobs))
	sem := make(chan struct{}, w.cfg.Concurrency)
	var wg sync.WaitGroup

	w.log.Info("batch started", zap.Int("jobs", len(jobs)), zap.Int("concurrency", w.cfg.Concurrency))

	for i := range jobs {
		results[i].Job = jobs[i]
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}

		select {
		case <-ctx.Done():
			results[i].Err = ctx.Err()
			continue
		case sem <- struct{}{}: // acquire
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }() // release

			jobCtx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
			defer cancel()

			job := jobs[i]
			if job.Doc != nil {
				results[i].Result, results[i].Err = w.svc.Process(jobCtx, *job.Doc)
			} else {
				results[i].Result, results[i].Err = w.svc.ProcessObject(jobCtx, job.Bucket, job.Key)
			}
			if results[i].Err != nil {
				w.log.Warn("batch job failed", zap.String("job", job.Name), zap.Error(results[i].Err))
			}
		}(i)
	}

	wg.Wait()
	w.log.Info("batch complete", zap.Int("jobs", len(jobs)))
	return results
}
