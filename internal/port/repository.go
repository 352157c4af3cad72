package port

import (
	"context"

	"loanterms/internal/domain"
)

// RecordRepository defines the contract for output record persistence.
// Records are keyed by their id; Upsert replaces an existing record.
type RecordRepository interface {
	Upsert(ctx context.Context, rec *domain.OutputRecord) error
	GetByID(ctx context.Context, id string) (*domain.TermRecord, error)
	List(ctx context.Context, offset, limit int) ([]domain.TermRecord, int, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
