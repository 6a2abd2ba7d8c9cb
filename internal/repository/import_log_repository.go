package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rpattn/slicereports/internal/db"
	"github.com/rpattn/slicereports/internal/domain"
)

// DefaultImportLogLimit is used by List when the caller passes no limit.
const DefaultImportLogLimit = 200

type importLogRepository struct {
	db db.DBTX
}

// NewImportLogRepository wires a repository backed by exec.
func NewImportLogRepository(exec db.DBTX) ImportLogRepository {
	return &importLogRepository{db: exec}
}

func (r *importLogRepository) Record(ctx context.Context, entry domain.ImportLogEntry) error {
	if entry.RunID == uuid.Nil {
		return fmt.Errorf("import issue for %s has no run id", entry.FileName)
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO import_logs (id, run_id, file_name, verb, error_message)
		VALUES ($1, $2, $3, NULLIF($4::text, ''), $5)
	`, entry.ID, entry.RunID, entry.FileName, entry.Verb, entry.ErrorMessage)
	if err != nil {
		return fmt.Errorf("failed to record import issue for %s: %w", entry.FileName, err)
	}
	return nil
}

// List returns the issues of one run in the order they were recorded.
func (r *importLogRepository) List(ctx context.Context, runID uuid.UUID, limit int, offset int) ([]domain.ImportLogEntry, error) {
	if limit <= 0 {
		limit = DefaultImportLogLimit
	}
	offset = max(offset, 0)

	rows, err := r.db.Query(ctx, `
		SELECT id, run_id, file_name, verb, error_message, created_at
		FROM import_logs
		WHERE run_id = $1
		ORDER BY created_at, file_name
		LIMIT $2 OFFSET $3
	`, runID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list import issues of run %s: %w", runID, err)
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.ImportLogEntry])
	if err != nil {
		return nil, fmt.Errorf("failed to scan import issues: %w", err)
	}
	return entries, nil
}
