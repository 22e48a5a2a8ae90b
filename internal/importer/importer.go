// Package importer loads spreadsheet batches into the record store.
package importer

import (
	"context"
	"database/sql"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erazemk/lotbook/internal/category"
	"github.com/erazemk/lotbook/internal/model"
	"github.com/erazemk/lotbook/internal/store"
	"github.com/erazemk/lotbook/internal/tabular"
	"github.com/erazemk/lotbook/internal/xerrors"
)

// Upserter stores a record under its VIN.
type Upserter interface {
	Upsert(ctx context.Context, key category.Key, rec *model.Record) (int64, error)
}

// Result counts the outcome of one batch.
type Result struct {
	BatchID  string `json:"batch_id"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
}

// Importer runs import batches.
type Importer struct {
	db      *sql.DB
	records Upserter
	log     *zap.Logger
	now     func() time.Time
}

// New returns an importer writing through records and logging each batch to db.
func New(db *sql.DB, records Upserter, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{db: db, records: records, log: log, now: time.Now}
}

// ImportFile decodes a CSV or XLSX source and imports its rows. A source
// that cannot be read at all fails with ErrInvalidBatchFormat before any
// row is touched.
func (im *Importer) ImportFile(ctx context.Context, r io.Reader, name string, key category.Key) (Result, error) {
	s, err := category.Lookup(key)
	if err != nil {
		return Result{}, err
	}

	rows, err := tabular.Read(r, name, s.SheetName)
	if err != nil {
		return Result{}, xerrors.Mark(xerrors.ErrInvalidBatchFormat, err, "reading "+name)
	}
	return im.run(ctx, s, rows, name)
}

// ImportBatch imports rows into category key. Rows run strictly in order;
// a bad row is skipped and never aborts the batch.
func (im *Importer) ImportBatch(ctx context.Context, rows []tabular.Row, key category.Key) (Result, error) {
	s, err := category.Lookup(key)
	if err != nil {
		return Result{}, err
	}
	return im.run(ctx, s, rows, "rows")
}

func (im *Importer) run(ctx context.Context, s category.Schema, rows []tabular.Row, source string) (Result, error) {
	res := Result{BatchID: uuid.NewString()}
	started := im.now()
	log := im.log.With(zap.String("batch_id", res.BatchID), zap.String("category", string(s.Key)))

	for i, row := range rows {
		// Header is line 1.
		line := i + 2

		rec, err := ParseRow(s, row)
		if err != nil {
			res.Skipped++
			log.Debug("row skipped", zap.Int("line", line), zap.Error(err))
			continue
		}

		if _, err := im.records.Upsert(ctx, s.Key, rec); err != nil {
			res.Skipped++
			log.Warn("row not stored", zap.Int("line", line), zap.String("vin", rec.VIN), zap.Error(err))
			continue
		}
		res.Imported++
	}

	batch := &model.ImportBatch{
		ID:         res.BatchID,
		Category:   string(s.Key),
		Source:     source,
		Imported:   res.Imported,
		Skipped:    res.Skipped,
		StartedAt:  started,
		FinishedAt: im.now(),
	}
	if err := store.RecordImportBatch(ctx, im.db, batch); err != nil {
		log.Error("recording import batch", zap.Error(err))
	}

	log.Info("import finished",
		zap.String("source", source),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}
