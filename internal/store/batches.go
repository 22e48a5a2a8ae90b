package store

import (
	"context"
	"fmt"

	"github.com/erazemk/lotbook/internal/model"
)

// RecordImportBatch stores the outcome of an import run.
func RecordImportBatch(ctx context.Context, dbtx DBTX, b *model.ImportBatch) error {
	_, err := dbtx.ExecContext(ctx,
		`INSERT INTO import_batches (id, category, source, imported, skipped, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Category, b.Source, b.Imported, b.Skipped, stamp(b.StartedAt), stamp(b.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("recording import batch: %w", err)
	}
	return nil
}

// ListImportBatches returns the most recent import runs, newest first.
// A limit of zero or less returns all of them.
func ListImportBatches(ctx context.Context, dbtx DBTX, limit int) ([]model.ImportBatch, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := dbtx.QueryContext(ctx,
		`SELECT id, category, source, imported, skipped, started_at, finished_at
		 FROM import_batches ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing import batches: %w", err)
	}
	defer rows.Close()

	var batches []model.ImportBatch
	for rows.Next() {
		var b model.ImportBatch
		if err := rows.Scan(&b.ID, &b.Category, &b.Source, &b.Imported, &b.Skipped, &b.StartedAt, &b.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning import batch: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}
