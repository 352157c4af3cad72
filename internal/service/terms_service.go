package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"loanterms/internal/domain"
	"loanterms/internal/export"
	"loanterms/internal/logger"
	"loanterms/internal/metrics"
	"loanterms/internal/ocrtext"
	"loanterms/internal/parser"
	"loanterms/internal/port"
	"loanterms/internal/record"
)

const exportPageSize = 500

// TermsConfig holds the settings TermsService needs beyond its dependencies.
type TermsConfig struct {
	Provider      string
	ArchiveBucket string
	ArchivePrefix string
}

// ExtractionResult is the outcome of one processed document.
type ExtractionResult struct {
	RunID           string
	Record          domain.OutputRecord
	ModelUsed       string
	Stored          bool
	ArchiveLocation string
}

// TermsService runs the extraction pipeline and manages stored records.
type TermsService interface {
	// Extract flattens the document, calls the extractor once and assembles
	// the record. Nothing is persisted.
	Extract(ctx context.Context, doc domain.OCRDocument) (*domain.OutputRecord, error)
	Process(ctx context.Context, doc domain.OCRDocument) (*ExtractionResult, error)
	ProcessObject(ctx context.Context, bucket, key string) (*ExtractionResult, error)
	Preview(doc domain.OCRDocument) domain.FlattenResult
	GetRecord(ctx context.Context, id string) (*domain.TermRecord, error)
	ListRecords(ctx context.Context, offset, limit int) ([]domain.TermRecord, int, error)
	DeleteRecord(ctx context.Context, id string) error
	ExportRecords(ctx context.Context, w io.Writer, format export.Format) error
	Ready(ctx context.Context) error
}

type termsService struct {
	extractor port.StructuredExtractor
	repo      port.RecordRepository
	storage   port.ObjectStorage
	metrics   *metrics.Metrics
	log       *zap.Logger
	cfg       TermsConfig
}

// NewTermsService creates a TermsService. repo and storage may be nil when no
// record store or object storage is configured.
func NewTermsService(
	extractor port.StructuredExtractor,
	repo port.RecordRepository,
	storage port.ObjectStorage,
	m *metrics.Metrics,
	log *zap.Logger,
	cfg TermsConfig,
) TermsService {
	return &termsService{
		extractor: extractor,
		repo:      repo,
		storage:   storage,
		metrics:   m,
		log:       logger.OrNop(log),
		cfg:       cfg,
	}
}

func (s *termsService) Extract(ctx context.Context, doc domain.OCRDocument) (*domain.OutputRecord, error) {
	rec, _, err := s.extract(ctx, doc, s.log)
	return rec, err
}

func (s *termsService) extract(ctx context.Context, doc domain.OCRDocument, log *zap.Logger) (*domain.OutputRecord, *port.ExtractOutput, error) {
	text, contact := ocrtext.Flatten(doc)
	log.Debug("document flattened", zap.Int("text_len", len(text)), zap.Int("pages", len(doc.Pages)))

	start := time.Now()
	out, err := s.extractor.Extract(ctx, port.ExtractInput{Text: text})
	elapsed := time.Since(start)
	if err != nil {
		outcome := domain.OutcomeFailed
		var rlErr *parser.RateLimitError
		if errors.As(err, &rlErr) {
			outcome = domain.OutcomeRateLimited
		}
		s.metrics.ObserveExtraction(s.cfg.Provider, outcome, elapsed)
		log.Warn("contract extraction failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
	}
	s.metrics.ObserveExtraction(s.cfg.Provider, domain.OutcomeSuccess, elapsed)

	rec := record.Assemble(out.Fields, contact)
	log.Info("contract extracted",
		zap.String("record_id", rec.ID),
		zap.String("model", out.ModelUsed),
		zap.Duration("elapsed", elapsed),
	)
	return &rec, out, nil
}

func (s *termsService) Process(ctx context.Context, doc domain.OCRDocument) (*ExtractionResult, error) {
	runID := uuid.New().String()
	log := s.log.With(zap.String("run_id", runID))

	rec, out, err := s.extract(ctx, doc, log)
	if err != nil {
		return nil, err
	}
	result := &ExtractionResult{RunID: runID, Record: *rec, ModelUsed: out.ModelUsed}

	if s.repo != nil {
		err := s.repo.Upsert(ctx, rec)
		s.metrics.ObservePersist("store", err)
		switch {
		case errors.Is(err, domain.ErrMissingRecordID):
			log.Warn("record not stored: extracted bank is empty")
		case err != nil:
			return nil, fmt.Errorf("storing record %q: %w", rec.ID, err)
		default:
			result.Stored = true
		}
	}

	if loc, err := s.archive(ctx, rec); err != nil {
		log.Error("archiving record failed", zap.String("record_id", rec.ID), zap.Error(err))
	} else {
		result.ArchiveLocation = loc
	}

	return result, nil
}

// archive uploads the record JSON under the archive prefix. It is a no-op
// when archiving is disabled or the record has no id.
func (s *termsService) archive(ctx context.Context, rec *domain.OutputRecord) (string, error) {
	if s.storage == nil || s.cfg.ArchivePrefix == "" || rec.ID == "" {
		return "", nil
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshaling record: %w", err)
	}
	key := ArchiveKey(s.cfg.ArchivePrefix, rec.ID)
	out, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.cfg.ArchiveBucket,
		Key:         key,
		Body:        bytes.NewReader(body),
		ContentType: "application/json",
		Size:        int64(len(body)),
	})
	s.metrics.ObservePersist("archive", err)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUploadFailed, err)
	}
	return out.Location, nil
}

// ArchiveKey is the object key an archived record is stored under.
func ArchiveKey(prefix, id string) string {
	return prefix + "/" + strings.ReplaceAll(id, "/", "_") + ".json"
}

func (s *termsService) ProcessObject(ctx context.Context, bucket, key string) (*ExtractionResult, error) {
	if s.storage == nil {
		return nil, domain.ErrStorageDisabled
	}
	if bucket == "" {
		bucket = s.cfg.ArchiveBucket
	}
	data, err := s.storage.Download(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("fetching OCR document: %w", err)
	}
	doc, err := ocrtext.DecodeDocumentBytes(data)
	if err != nil {
		return nil, err
	}
	s.log.Debug("OCR document fetched", zap.String("bucket", bucket), zap.String("key", key), zap.Int("bytes", len(data)))
	return s.Process(ctx, doc)
}

func (s *termsService) Preview(doc domain.OCRDocument) domain.FlattenResult {
	text, contact := ocrtext.Flatten(doc)
	return domain.FlattenResult{Text: text, Contact: contact}
}

func (s *termsService) GetRecord(ctx context.Context, id string) (*domain.TermRecord, error) {
	if s.repo == nil {
		return nil, domain.ErrStoreDisabled
	}
	return s.repo.GetByID(ctx, id)
}

func (s *termsService) ListRecords(ctx context.Context, offset, limit int) ([]domain.TermRecord, int, error) {
	if s.repo == nil {
		return nil, 0, domain.ErrStoreDisabled
	}
	return s.repo.List(ctx, offset, limit)
}

func (s *termsService) DeleteRecord(ctx context.Context, id string) error {
	if s.repo == nil {
		return domain.ErrStoreDisabled
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("record deleted", zap.String("record_id", id))
	return nil
}

func (s *termsService) ExportRecords(ctx context.Context, w io.Writer, format export.Format) error {
	if s.repo == nil {
		return domain.ErrStoreDisabled
	}
	var all []domain.TermRecord
	for offset := 0; ; offset += exportPageSize {
		page, total, err := s.repo.List(ctx, offset, exportPageSize)
		if err != nil {
			return fmt.Errorf("listing records for export: %w", err)
		}
		all = append(all, page...)
		if len(page) < exportPageSize || len(all) >= total {
			break
		}
	}
	return export.Write(w, format, all)
}

func (s *termsService) Ready(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.Ping(ctx)
}
