// Package reconcile writes records keyed by VIN and detects sale
// transitions.
package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/lotbook/internal/category"
	"github.com/erazemk/lotbook/internal/model"
	"github.com/erazemk/lotbook/internal/normalize"
	"github.com/erazemk/lotbook/internal/store"
	"github.com/erazemk/lotbook/internal/xerrors"
)

// TransitionNotifier is told about a genuine not-sold to sold transition of
// a record with a photo folder. It must not block on or fail the write.
type TransitionNotifier interface {
	OnSoldTransition(ctx context.Context, recordID int64, folderRef string) bool
}

// Alerter receives fire-and-forget record notifications. Errors are logged.
type Alerter interface {
	NotifyNewRecord(ctx context.Context, rec *model.Record) error
	NotifySold(ctx context.Context, rec *model.Record) error
}

// Reconciler owns every record write.
type Reconciler struct {
	db          *sql.DB
	notifier    TransitionNotifier
	alerter     Alerter
	log         *zap.Logger
	normalizers map[category.Key]*normalize.Normalizer
	now         func() time.Time
}

// New returns a reconciler. notifier and alerter may be nil.
func New(db *sql.DB, notifier TransitionNotifier, alerter Alerter, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Reconciler{
		db:          db,
		notifier:    notifier,
		alerter:     alerter,
		log:         log,
		normalizers: make(map[category.Key]*normalize.Normalizer),
		now:         time.Now,
	}
	for _, key := range category.Keys() {
		s, _ := category.Lookup(key)
		r.normalizers[key] = normalize.New(s.Profile())
	}
	return r
}

// write is the outcome of one committed record write.
type write struct {
	rec   *model.Record
	prior *model.Record
}

// Upsert stores rec under its VIN: the live record with the same VIN in the
// category is updated in place, otherwise a new record is created. It
// returns the record ID.
func (r *Reconciler) Upsert(ctx context.Context, key category.Key, rec *model.Record) (int64, error) {
	s, err := r.prepare(key, rec)
	if err != nil {
		return 0, err
	}

	var w write
	restore := identity(rec)
	err = r.inTx(ctx, "upserting record", func(tx *sql.Tx) error {
		existing, err := store.FindByVIN(ctx, tx, s, rec.VIN)
		if err != nil {
			return err
		}
		if existing == nil {
			w, err = r.insert(ctx, tx, s, rec)
		} else {
			w, err = r.update(ctx, tx, s, existing, rec)
		}
		return err
	})
	if err != nil {
		restore()
		return 0, err
	}

	r.afterCommit(ctx, w)
	return rec.ID, nil
}

// Create stores a new record. A live record with the same VIN is a
// validation error.
func (r *Reconciler) Create(ctx context.Context, key category.Key, rec *model.Record) (int64, error) {
	s, err := r.prepare(key, rec)
	if err != nil {
		return 0, err
	}

	restore := identity(rec)
	err = r.inTx(ctx, "creating record", func(tx *sql.Tx) error {
		existing, err := store.FindByVIN(ctx, tx, s, rec.VIN)
		if err != nil {
			return err
		}
		if existing != nil {
			return xerrors.Invalid("vin %q already belongs to record %d", rec.VIN, existing.ID)
		}
		_, err = r.insert(ctx, tx, s, rec)
		return err
	})
	if err != nil {
		restore()
		return 0, err
	}

	r.log.Info("record created", zap.String("category", string(key)), zap.Int64("id", rec.ID), zap.String("vin", rec.VIN))
	if r.alerter != nil {
		if err := r.alerter.NotifyNewRecord(ctx, rec); err != nil {
			r.log.Warn("new record notification failed", zap.Int64("id", rec.ID), zap.Error(err))
		}
	}
	return rec.ID, nil
}

// Update replaces the fields of the live record id with rec.
func (r *Reconciler) Update(ctx context.Context, key category.Key, id int64, rec *model.Record) error {
	s, err := r.prepare(key, rec)
	if err != nil {
		return err
	}

	var w write
	restore := identity(rec)
	err = r.inTx(ctx, "updating record", func(tx *sql.Tx) error {
		existing, err := liveRecord(ctx, tx, s, id)
		if err != nil {
			return err
		}
		if rec.VIN != existing.VIN {
			other, err := store.FindByVIN(ctx, tx, s, rec.VIN)
			if err != nil {
				return err
			}
			if other != nil {
				return xerrors.Invalid("vin %q already belongs to record %d", rec.VIN, other.ID)
			}
		}
		w, err = r.update(ctx, tx, s, existing, rec)
		return err
	})
	if err != nil {
		restore()
		return err
	}

	r.afterCommit(ctx, w)
	return nil
}

// MarkSold marks each record sold. A blank soldDate means today, except for
// records that are already sold, which keep their date. Each record is its
// own transaction; failures are collected and the rest still run.
func (r *Reconciler) MarkSold(ctx context.Context, key category.Key, ids []int64, soldDate string) (int, error) {
	if soldDate != "" {
		if _, err := time.Parse(model.DateLayout, soldDate); err != nil {
			return 0, xerrors.Invalid("sold date %q is not YYYY-MM-DD", soldDate)
		}
	}
	return r.each(ctx, key, ids, func(rec *model.Record) {
		switch {
		case soldDate != "":
			rec.SoldDate = &soldDate
		case !model.IsSold(rec.Sold) || rec.SoldDate == nil:
			today := r.now().Format(model.DateLayout)
			rec.SoldDate = &today
		}
		rec.Sold = model.SoldYes
	})
}

// MarkUnsold marks each record unsold, clearing its sold date.
func (r *Reconciler) MarkUnsold(ctx context.Context, key category.Key, ids []int64) (int, error) {
	return r.each(ctx, key, ids, func(rec *model.Record) {
		rec.Sold = model.SoldNo
		rec.SoldDate = nil
	})
}

// Delete soft-deletes records and returns how many were live.
func (r *Reconciler) Delete(ctx context.Context, key category.Key, ids []int64) (int64, error) {
	s, err := category.Lookup(key)
	if err != nil {
		return 0, err
	}
	n, err := store.SoftDeleteRecords(ctx, r.db, s, ids)
	if err != nil {
		return 0, xerrors.Mark(xerrors.ErrPersistence, err, "deleting records")
	}
	r.log.Info("records deleted", zap.String("category", string(key)), zap.Int64s("ids", ids), zap.Int64("deleted", n))
	return n, nil
}

// each applies change to every live record in ids and writes it back.
func (r *Reconciler) each(ctx context.Context, key category.Key, ids []int64, change func(*model.Record)) (int, error) {
	s, err := category.Lookup(key)
	if err != nil {
		return 0, err
	}

	var (
		updated int
		errs    []error
	)
	for _, id := range ids {
		var w write
		err := r.inTx(ctx, "updating record status", func(tx *sql.Tx) error {
			existing, err := liveRecord(ctx, tx, s, id)
			if err != nil {
				return err
			}
			next := *existing
			next.Attributes = maps.Clone(existing.Attributes)
			change(&next)
			if _, err := r.prepare(key, &next); err != nil {
				return err
			}
			w, err = r.update(ctx, tx, s, existing, &next)
			return err
		})
		if err != nil {
			r.log.Warn("record status change failed", zap.String("category", string(key)), zap.Int64("id", id), zap.Error(err))
			errs = append(errs, fmt.Errorf("record %d: %w", id, err))
			continue
		}
		updated++
		r.afterCommit(ctx, w)
	}
	return updated, errors.Join(errs...)
}

// prepare normalizes rec, recomputes its derived fields and validates it.
func (r *Reconciler) prepare(key category.Key, rec *model.Record) (category.Schema, error) {
	s, err := category.Lookup(key)
	if err != nil {
		return s, err
	}
	rec.Category = key
	rec.SetFields(s, r.normalizers[key].Normalize(rec.Fields(s)))
	rec.Derive()
	return s, rec.Validate(s)
}

func (r *Reconciler) insert(ctx context.Context, tx *sql.Tx, s category.Schema, rec *model.Record) (write, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	rec.UpdatedAt = rec.CreatedAt
	id, err := store.InsertRecord(ctx, tx, s, rec)
	if err != nil {
		return write{}, err
	}
	rec.ID = id
	return write{rec: rec}, nil
}

func (r *Reconciler) update(ctx context.Context, tx *sql.Tx, s category.Schema, existing, rec *model.Record) (write, error) {
	rec.ID = existing.ID
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = r.now()
	if rec.ExternalFolderRef == "" {
		rec.ExternalFolderRef = existing.ExternalFolderRef
	}
	if err := store.UpdateRecord(ctx, tx, s, rec); err != nil {
		return write{}, err
	}
	return write{rec: rec, prior: existing}, nil
}

// afterCommit fires the sale side effects of a committed write. Only a
// genuine not-sold to sold change of an existing record counts.
func (r *Reconciler) afterCommit(ctx context.Context, w write) {
	if w.prior == nil || model.IsSold(w.prior.Sold) || !model.IsSold(w.rec.Sold) {
		return
	}

	r.log.Info("record sold", zap.String("category", string(w.rec.Category)), zap.Int64("id", w.rec.ID), zap.String("vin", w.rec.VIN))

	ref := w.prior.ExternalFolderRef
	if ref == "" {
		ref = w.rec.ExternalFolderRef
	}
	if ref != "" && r.notifier != nil {
		r.notifier.OnSoldTransition(ctx, w.rec.ID, ref)
	}

	if r.alerter != nil {
		if err := r.alerter.NotifySold(ctx, w.rec); err != nil {
			r.log.Warn("sold notification failed", zap.Int64("id", w.rec.ID), zap.Error(err))
		}
	}
}

// inTx runs fn in a transaction. Storage errors come back marked
// ErrPersistence; validation and not-found errors pass through unchanged.
func (r *Reconciler) inTx(ctx context.Context, action string, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return xerrors.Mark(xerrors.ErrPersistence, err, "beginning transaction")
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		if errors.Is(err, xerrors.ErrValidation) || errors.Is(err, xerrors.ErrNotFound) {
			return err
		}
		return xerrors.Mark(xerrors.ErrPersistence, err, action)
	}

	if err := tx.Commit(); err != nil {
		return xerrors.Mark(xerrors.ErrPersistence, err, "committing transaction")
	}
	return nil
}

// identity returns a func that puts back the fields insert and update
// assign, for when the transaction does not commit.
func identity(rec *model.Record) func() {
	id, created, updated, ref := rec.ID, rec.CreatedAt, rec.UpdatedAt, rec.ExternalFolderRef
	return func() {
		rec.ID, rec.CreatedAt, rec.UpdatedAt, rec.ExternalFolderRef = id, created, updated, ref
	}
}

func liveRecord(ctx context.Context, tx *sql.Tx, s category.Schema, id int64) (*model.Record, error) {
	rec, err := store.GetRecord(ctx, tx, s, id)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.DeletedAt != nil {
		return nil, fmt.Errorf("%s %d: %w", s.Key, id, xerrors.ErrNotFound)
	}
	return rec, nil
}
