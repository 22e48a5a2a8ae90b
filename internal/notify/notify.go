// Package notify carries out the side effects of record events: archiving a
// sold unit's photo folder and announcing new and sold units.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/erazemk/lotbook/internal/model"
	"github.com/erazemk/lotbook/internal/xerrors"
)

// Archiver moves a photo folder into the archive. Moving an already
// archived folder is not an error.
type Archiver interface {
	MoveToArchive(ctx context.Context, folderRef string) (bool, error)
}

// SaleNotifier archives the photo folder of a unit that just sold.
type SaleNotifier struct {
	archiver Archiver
	log      *zap.Logger
}

// NewSaleNotifier returns a notifier backed by archiver.
func NewSaleNotifier(archiver Archiver, log *zap.Logger) *SaleNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &SaleNotifier{archiver: archiver, log: log}
}

// OnSoldTransition archives folderRef once and reports whether it worked.
// Failures are logged, never returned and never retried: the sale itself is
// already committed.
func (n *SaleNotifier) OnSoldTransition(ctx context.Context, recordID int64, folderRef string) bool {
	ok, err := n.archiver.MoveToArchive(ctx, folderRef)
	if err == nil && !ok {
		err = fmt.Errorf("folder %q was not moved", folderRef)
	}
	if err != nil {
		err = xerrors.Mark(xerrors.ErrArchival, err, "archiving photo folder")
		n.log.Error("archival failed",
			zap.Int64("record_id", recordID),
			zap.String("folder_ref", folderRef),
			zap.Error(err),
		)
		return false
	}

	n.log.Info("photo folder archived", zap.Int64("record_id", recordID), zap.String("folder_ref", folderRef))
	return true
}

// LogAlerter announces record events in the structured log.
type LogAlerter struct {
	log *zap.Logger
}

// NewLogAlerter returns an alerter writing to log.
func NewLogAlerter(log *zap.Logger) *LogAlerter {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogAlerter{log: log.Named("alerts")}
}

// NotifyNewRecord logs a unit entering inventory. It never fails.
func (a *LogAlerter) NotifyNewRecord(_ context.Context, rec *model.Record) error {
	a.log.Info("new unit in inventory", recordFields(rec)...)
	return nil
}

// NotifySold logs a sale with its price and profit. It never fails.
func (a *LogAlerter) NotifySold(_ context.Context, rec *model.Record) error {
	fields := recordFields(rec)
	if rec.SellPrice != nil {
		fields = append(fields, zap.Float64("sell_price", *rec.SellPrice))
	}
	fields = append(fields, zap.Float64("profit", rec.Profit))
	a.log.Info("unit sold", fields...)
	return nil
}

func recordFields(rec *model.Record) []zap.Field {
	fields := []zap.Field{
		zap.String("category", string(rec.Category)),
		zap.Int64("id", rec.ID),
		zap.String("vin", rec.VIN),
		zap.String("make", rec.Make),
		zap.String("model", rec.Model),
	}
	if rec.Year != nil {
		fields = append(fields, zap.Int("year", *rec.Year))
	}
	return fields
}
