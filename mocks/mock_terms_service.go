package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"loanterms/internal/domain"
	"loanterms/internal/export"
	"loanterms/internal/service"
)

// MockTermsService is a mock implementation of service.TermsService.
type MockTermsService struct {
	mock.Mock
}

func (m *MockTermsService) Extract(ctx context.Context, doc domain.OCRDocument) (*domain.OutputRecord, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OutputRecord), args.Error(1)
}

func (m *MockTermsService) Process(ctx context.Context, doc domain.OCRDocument) (*service.ExtractionResult, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExtractionResult), args.Error(1)
}

func (m *MockTermsService) ProcessObject(ctx context.Context, bucket, key string) (*service.ExtractionResult, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExtractionResult), args.Error(1)
}

func (m *MockTermsService) Preview(doc domain.OCRDocument) domain.FlattenResult {
	args := m.Called(doc)
	return args.Get(0).(domain.FlattenResult)
}

func (m *MockTermsService) GetRecord(ctx context.Context, id string) (*domain.TermRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TermRecord), args.Error(1)
}

func (m *MockTermsService) ListRecords(ctx context.Context, offset, limit int) ([]domain.TermRecord, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.TermRecord), args.Int(1), args.Error(2)
}

func (m *MockTermsService) DeleteRecord(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTermsService) ExportRecords(ctx context.Context, w io.Writer, format export.Format) error {
	args := m.Called(ctx, w, format)
	return args.Error(0)
}

func (m *MockTermsService) Ready(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
