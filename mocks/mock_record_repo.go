package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"loanterms/internal/domain"
)

// MockRecordRepo is a mock implementation of port.RecordRepository.
type MockRecordRepo struct {
	mock.Mock
}

func (m *MockRecordRepo) Upsert(ctx context.Context, rec *domain.OutputRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockRecordRepo) GetByID(ctx context.Context, id string) (*domain.TermRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TermRecord), args.Error(1)
}

func (m *MockRecordRepo) List(ctx context.Context, offset, limit int) ([]domain.TermRecord, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.TermRecord), args.Int(1), args.Error(2)
}

func (m *MockRecordRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRecordRepo) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
