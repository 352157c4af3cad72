package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"loanterms/internal/domain"
	"loanterms/internal/port"
)

// termRecordRow is the term_records row; content holds the record content as JSONB.
type termRecordRow struct {
	ID        string    `db:"id"`
	Bank      string    `db:"bank"`
	Content   []byte    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row *termRecordRow) toDomain() (*domain.TermRecord, error) {
	rec := &domain.TermRecord{CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt}
	rec.ID = row.ID
	if err := json.Unmarshal(row.Content, &rec.Content); err != nil {
		return nil, fmt.Errorf("decoding content of record %q: %w", row.ID, err)
	}
	return rec, nil
}

type termRecordRepo struct {
	db *sqlx.DB
}

// NewTermRecordRepo creates a new PostgreSQL-backed RecordRepository.
func NewTermRecordRepo(db *sqlx.DB) port.RecordRepository {
	return &termRecordRepo{db: db}
}

func (r *termRecordRepo) Upsert(ctx context.Context, rec *domain.OutputRecord) error {
	if rec.ID == "" {
		return domain.ErrMissingRecordID
	}
	content, err := json.Marshal(rec.Content)
	if err != nil {
		return fmt.Errorf("termRecordRepo.Upsert marshal: %w", err)
	}

	query := `
		INSERT INTO term_records (id, bank, content, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			bank = EXCLUDED.bank,
			content = EXCLUDED.content,
			updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, rec.ID, rec.Content.Bank, string(content)); err != nil {
		return fmt.Errorf("termRecordRepo.Upsert: %w", err)
	}
	return nil
}

func (r *termRecordRepo) GetByID(ctx context.Context, id string) (*domain.TermRecord, error) {
	var row termRecordRow
	err := r.db.GetContext(ctx, &row,
		"SELECT id, bank, content, created_at, updated_at FROM term_records WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("termRecordRepo.GetByID: %w", err)
	}
	return row.toDomain()
}

func (r *termRecordRepo) List(ctx context.Context, offset, limit int) ([]domain.TermRecord, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM term_records"); err != nil {
		return nil, 0, fmt.Errorf("termRecordRepo.List count: %w", err)
	}

	var rows []termRecordRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, bank, content, created_at, updated_at FROM term_records
		ORDER BY updated_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("termRecordRepo.List: %w", err)
	}

	records := make([]domain.TermRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toDomain()
		if err != nil {
			return nil, 0, err
		}
		records = append(records, *rec)
	}
	return records, total, nil
}

func (r *termRecordRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM term_records WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("termRecordRepo.Delete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func (r *termRecordRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
