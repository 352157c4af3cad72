package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"loanterms/internal/domain"
	"loanterms/internal/export"
	"loanterms/internal/metrics"
	"loanterms/internal/parser"
	"loanterms/internal/parser/parsertest"
	"loanterms/internal/port"
	"loanterms/internal/service"
	"loanterms/mocks"
)

func sampleDoc() domain.OCRDocument {
	return domain.OCRDocument{Pages: []domain.Page{
		{Lines: []domain.Line{{Text: "Loan Agreement"}, {Text: "Email: help@acme.com"}}},
		{Lines: []domain.Line{{Text: "Customer Service: +1 (800) 555-0100"}}},
	}}
}

const sampleText = "Loan Agreement Email: help@acme.com Customer Service: +1 (800) 555-0100"

func setupTermsService(cfg service.TermsConfig) (
	service.TermsService,
	*mocks.MockStructuredExtractor,
	*mocks.MockRecordRepo,
	*mocks.MockObjectStorage,
) {
	extractor := new(mocks.MockStructuredExtractor)
	repo := new(mocks.MockRecordRepo)
	storage := new(mocks.MockObjectStorage)
	svc := service.NewTermsService(extractor, repo, storage, metrics.New(), nil, cfg)
	return svc, extractor, repo, storage
}

func extractOK(bank string) *port.ExtractOutput {
	return &port.ExtractOutput{Fields: parsertest.Fields(bank), ModelUsed: "gpt-4o", Provider: "azure"}
}

// --- Extract ---

func TestTermsService_Extract_Success(t *testing.T) {
	svc, extractor, repo, _ := setupTermsService(service.TermsConfig{Provider: "azure"})

	extractor.On("Extract", mock.Anything, port.ExtractInput{Text: sampleText}).Return(extractOK("Acme Bank"), nil)

	rec, err := svc.Extract(context.Background(), sampleDoc())
	require.NoError(t, err)
	assert.Equal(t, "Acme Bank", rec.ID)
	assert.Equal(t, "Acme Bank", rec.Content.ID)
	assert.Equal(t, "Acme Bank", rec.Content.Bank)
	require.NotNil(t, rec.Content.Email)
	assert.Equal(t, "help@acme.com", *rec.Content.Email)
	assert.Nil(t, rec.Content.Address)
	assert.Equal(t, "Laws of the State of New York.", rec.Content.GoverningLaw)

	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestTermsService_Extract_ExtractorErrorPropagates(t *testing.T) {
	svc, extractor, _, _ := setupTermsService(service.TermsConfig{})

	cause := errors.New("connection refused")
	extractor.On("Extract", mock.Anything, mock.Anything).Return(nil, cause)

	rec, err := svc.Extract(context.Background(), sampleDoc())
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.ErrorIs(t, err, cause)
}

func TestTermsService_Extract_RateLimitReachable(t *testing.T) {
	svc, extractor, _, _ := setupTermsService(service.TermsConfig{})

	extractor.On("Extract", mock.Anything, mock.Anything).
		Return(nil, parser.NewRateLimitError("azure", errors.New("429"), 12))

	_, err := svc.Extract(context.Background(), sampleDoc())
	var rlErr *parser.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, 12*time.Second, rlErr.RetryAfter)
}

func TestTermsService_Extract_EmptyDocument(t *testing.T) {
	svc, extractor, _, _ := setupTermsService(service.TermsConfig{})

	extractor.On("Extract", mock.Anything, port.ExtractInput{Text: ""}).Return(extractOK("Acme Bank"), nil)

	rec, err := svc.Extract(context.Background(), domain.OCRDocument{})
	require.NoError(t, err)
	assert.Nil(t, rec.Content.CustomerService)
	assert.Nil(t, rec.Content.Email)
	assert.Nil(t, rec.Content.Address)
}

// --- Process ---

func TestTermsService_Process_StoresAndArchives(t *testing.T) {
	svc, extractor, repo, storage := setupTermsService(service.TermsConfig{
		Provider:      "azure",
		ArchiveBucket: "terms",
		ArchivePrefix: "records",
	})

	extractor.On("Extract", mock.Anything, mock.Anything).Return(extractOK("Acme/Bank"), nil)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(r *domain.OutputRecord) bool {
		return r.ID == "Acme/Bank"
	})).Return(nil)
	storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return in.Bucket == "terms" && in.Key == "records/Acme_Bank.json" && in.ContentType == "application/json"
	})).Return(&port.UploadOutput{Location: "s3://terms/records/Acme_Bank.json"}, nil)

	result, err := svc.Process(context.Background(), sampleDoc())
	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID)
	assert.True(t, result.Stored)
	assert.Equal(t, "gpt-4o", result.ModelUsed)
	assert.Equal(t, "s3://terms/records/Acme_Bank.json", result.ArchiveLocation)
	assert.Equal(t, "Acme/Bank", result.Record.ID)

	repo.AssertExpectations(t)
	storage.AssertExpectations(t)
}

func TestTermsService_Process_EmptyBankNotStored(t *testing.T) {
	svc, extractor, repo, storage := setupTermsService(service.TermsConfig{ArchivePrefix: "records"})

	extractor.On("Extract", mock.Anything, mock.Anything).Return(extractOK(""), nil)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(domain.ErrMissingRecordID)

	result, err := svc.Process(context.Background(), sampleDoc())
	require.NoError(t, err)
	assert.False(t, result.Stored)
	assert.Equal(t, "", result.Record.ID)
	storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestTermsService_Process_StoreErrorFails(t *testing.T) {
	svc, extractor, repo, _ := setupTermsService(service.TermsConfig{})

	extractor.On("Extract", mock.Anything, mock.Anything).Return(extractOK("Acme Bank"), nil)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("db down"))

	result, err := svc.Process(context.Background(), sampleDoc())
	assert.Nil(t, result)
	assert.ErrorContains(t, err, "db down")
}

func TestTermsService_Process_ArchiveErrorLogged(t *testing.T) {
	svc, extractor, repo, storage := setupTermsService(service.TermsConfig{ArchiveBucket: "terms", ArchivePrefix: "records"})

	extractor.On("Extract", mock.Anything, mock.Anything).Return(extractOK("Acme Bank"), nil)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	storage.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	result, err := svc.Process(context.Background(), sampleDoc())
	require.NoError(t, err)
	assert.True(t, result.Stored)
	assert.Empty(t, result.ArchiveLocation)
}

func TestTermsService_Process_NoStore(t *testing.T) {
	extractor := new(mocks.MockStructuredExtractor)
	svc := service.NewTermsService(extractor, nil, nil, nil, nil, service.TermsConfig{})

	extractor.On("Extract", mock.Anything, mock.Anything).Return(extractOK("Acme Bank"), nil)

	result, err := svc.Process(context.Background(), sampleDoc())
	require.NoError(t, err)
	assert.False(t, result.Stored)
	assert.Equal(t, "Acme Bank", result.Record.ID)
}

// --- ProcessObject ---

func TestTermsService_ProcessObject_Success(t *testing.T) {
	svc, extractor, repo, storage := setupTermsService(service.TermsConfig{ArchiveBucket: "terms"})

	storage.On("Download", mock.Anything, "terms", "ocr/acme.json").
		Return([]byte(`{"status":"succeeded","pages":[{"lines":[{"text":"Email: a@b.co"}]}]}`), nil)
	extractor.On("Extract", mock.Anything, port.ExtractInput{Text: "Email: a@b.co"}).Return(extractOK("Acme Bank"), nil)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.ProcessObject(context.Background(), "", "ocr/acme.json")
	require.NoError(t, err)
	require.NotNil(t, result.Record.Content.Email)
	assert.Equal(t, "a@b.co", *result.Record.Content.Email)
}

func TestTermsService_ProcessObject_InvalidJSON(t *testing.T) {
	svc, extractor, _, storage := setupTermsService(service.TermsConfig{})

	storage.On("Download", mock.Anything, "b", "k").Return([]byte(`{"pages":"nope"}`), nil)

	_, err := svc.ProcessObject(context.Background(), "b", "k")
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)
	extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestTermsService_ProcessObject_StorageDisabled(t *testing.T) {
	svc := service.NewTermsService(new(mocks.MockStructuredExtractor), nil, nil, nil, nil, service.TermsConfig{})

	_, err := svc.ProcessObject(context.Background(), "b", "k")
	assert.ErrorIs(t, err, domain.ErrStorageDisabled)
}

// --- Preview ---

func TestTermsService_Preview(t *testing.T) {
	svc, extractor, _, _ := setupTermsService(service.TermsConfig{})

	got := svc.Preview(sampleDoc())
	assert.Equal(t, sampleText, got.Text)
	require.NotNil(t, got.Contact.CustomerService)
	assert.Equal(t, "+1 (800) 555-0100", *got.Contact.CustomerService)
	extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

// --- Records ---

func TestTermsService_RecordsStoreDisabled(t *testing.T) {
	svc := service.NewTermsService(new(mocks.MockStructuredExtractor), nil, nil, nil, nil, service.TermsConfig{})
	ctx := context.Background()

	_, err := svc.GetRecord(ctx, "x")
	assert.ErrorIs(t, err, domain.ErrStoreDisabled)
	_, _, err = svc.ListRecords(ctx, 0, 20)
	assert.ErrorIs(t, err, domain.ErrStoreDisabled)
	assert.ErrorIs(t, svc.DeleteRecord(ctx, "x"), domain.ErrStoreDisabled)
	assert.ErrorIs(t, svc.ExportRecords(ctx, &bytes.Buffer{}, export.FormatXLSX), domain.ErrStoreDisabled)
	assert.NoError(t, svc.Ready(ctx))
}

func TestTermsService_GetRecord_NotFound(t *testing.T) {
	svc, _, repo, _ := setupTermsService(service.TermsConfig{})

	repo.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrRecordNotFound)

	_, err := svc.GetRecord(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestTermsService_ExportRecords(t *testing.T) {
	svc, _, repo, _ := setupTermsService(service.TermsConfig{})

	records := []domain.TermRecord{
		{OutputRecord: domain.OutputRecord{ID: "A", Content: domain.RecordContent{ID: "A", ContractFields: parsertest.Fields("A")}}},
		{OutputRecord: domain.OutputRecord{ID: "B", Content: domain.RecordContent{ID: "B", ContractFields: parsertest.Fields("B")}}},
	}
	repo.On("List", mock.Anything, 0, 500).Return(records, 2, nil)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportRecords(context.Background(), &buf, export.FormatXLSX))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Records")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, "B", rows[2][0])
}

func TestTermsService_Ready(t *testing.T) {
	svc, _, repo, _ := setupTermsService(service.TermsConfig{})

	repo.On("Ping", mock.Anything).Return(errors.New("unreachable"))

	assert.Error(t, svc.Ready(context.Background()))
}

func TestArchiveKey(t *testing.T) {
	assert.Equal(t, "records/Acme Bank.json", service.ArchiveKey("records", "Acme Bank"))
	assert.Equal(t, "records/A_B_C.json", service.ArchiveKey("records", "A/B/C"))
}
