// Package report sums purchase, sale and profit figures into time buckets.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/erazemk/lotbook/internal/category"
	"github.com/erazemk/lotbook/internal/model"
	"github.com/erazemk/lotbook/internal/store"
	"github.com/erazemk/lotbook/internal/xerrors"
)

// Status selects sold or unsold records.
type Status string

// Statuses.
const (
	Sold   Status = "sold"
	Unsold Status = "unsold"
)

// Granularity is the width of a bucket.
type Granularity string

// Granularities.
const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
	Yearly  Granularity = "yearly"
)

// CurrentLabel labels the single unsold snapshot bucket.
const CurrentLabel = "Current"

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case Sold, Unsold:
		return st, nil
	}
	return "", xerrors.Invalid("unknown status %q", s)
}

// ParseGranularity validates a granularity string. Blank means monthly.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return Monthly, nil
	case Daily, Weekly, Monthly, Yearly:
		return g, nil
	}
	return "", xerrors.Invalid("unknown period %q", s)
}

// GranularityForSpan picks the bucket width for an explicit range of the
// given length in days.
func GranularityForSpan(days int) Granularity {
	switch {
	case days <= 14:
		return Daily
	case days <= 90:
		return Weekly
	case days <= 365:
		return Monthly
	}
	return Yearly
}

// WindowSize is the number of most recent buckets a fixed window returns.
func WindowSize(g Granularity) int {
	if g == Yearly {
		return 5
	}
	return 12
}

// Label formats the bucket holding day d.
func Label(g Granularity, d time.Time) string {
	switch g {
	case Daily:
		return d.Format("2006-01-02")
	case Weekly:
		year, week := d.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case Monthly:
		return d.Format("2006-01")
	}
	return d.Format("2006")
}

// Query describes one aggregation. With both Start and End set the range
// is explicit and inclusive, and Granularity is ignored.
type Query struct {
	Category    category.Key
	Status      Status
	Start, End  *time.Time
	Granularity Granularity
}

// BucketTotal is the sum over one bucket, rounded to cents.
type BucketTotal struct {
	Period        string  `json:"period"`
	PurchaseTotal float64 `json:"purchase_total"`
	SaleTotal     float64 `json:"sale_total"`
	ProfitTotal   float64 `json:"profit_total"`
}

// Totals sums a group of records.
type Totals struct {
	Count         int     `json:"count"`
	PurchaseTotal float64 `json:"purchase_total"`
	SaleTotal     float64 `json:"sale_total"`
	ProfitTotal   float64 `json:"profit_total"`
}

// Summary splits a category's totals by sale status.
type Summary struct {
	Category category.Key `json:"category"`
	Sold     Totals       `json:"sold"`
	Unsold   Totals       `json:"unsold"`
}

// Aggregate returns bucket totals in chronological order. Soft-deleted
// records never count. Sold records bucket by sale date and are left out
// without one. Unsold records bucket by creation date over an explicit
// range; without a range they collapse into a single Current bucket.
func Aggregate(ctx context.Context, dbtx store.DBTX, q Query) ([]BucketTotal, error) {
	s, err := category.Lookup(q.Category)
	if err != nil {
		return nil, err
	}
	if _, err := ParseStatus(string(q.Status)); err != nil {
		return nil, err
	}

	explicit := q.Start != nil && q.End != nil
	g := q.Granularity
	var from, to string
	if explicit {
		start, end := day(*q.Start), day(*q.End)
		if end.Before(start) {
			return nil, xerrors.Invalid("end date %s is before start date %s",
				end.Format(model.DateLayout), start.Format(model.DateLayout))
		}
		g = GranularityForSpan(int(end.Sub(start).Hours() / 24))
		from, to = start.Format(model.DateLayout), end.Format(model.DateLayout)
	} else if g, err = ParseGranularity(string(g)); err != nil {
		return nil, err
	}

	if q.Status == Unsold && !explicit {
		t, err := sum(ctx, dbtx, s, "UPPER(sold) != 'YES'")
		if err != nil {
			return nil, err
		}
		return []BucketTotal{{
			Period:        CurrentLabel,
			PurchaseTotal: t.PurchaseTotal,
			SaleTotal:     t.SaleTotal,
			ProfitTotal:   t.ProfitTotal,
		}}, nil
	}

	dateExpr, where := "sold_date", "UPPER(sold) = 'YES' AND sold_date IS NOT NULL AND sold_date != ''"
	if q.Status == Unsold {
		dateExpr, where = "date(created_at)", "UPPER(sold) != 'YES'"
	}
	query := fmt.Sprintf(`SELECT %s, purchase_price, sell_price, profit FROM %s
		WHERE deleted_at IS NULL AND %s`, dateExpr, s.Table, where)
	var args []any
	if explicit {
		query += fmt.Sprintf(" AND %s >= ? AND %s <= ?", dateExpr, dateExpr)
		args = append(args, from, to)
	}

	rows, err := dbtx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, xerrors.Mark(xerrors.ErrPersistence, err, "aggregating "+string(s.Key))
	}
	defer rows.Close()

	buckets := make(map[string]*BucketTotal)
	for rows.Next() {
		var (
			date                   sql.NullString
			purchase, sell, profit sql.NullFloat64
		)
		if err := rows.Scan(&date, &purchase, &sell, &profit); err != nil {
			return nil, xerrors.Mark(xerrors.ErrPersistence, err, "scanning aggregate row")
		}
		d, err := time.Parse(model.DateLayout, strings.TrimSpace(date.String))
		if err != nil {
			continue
		}
		label := Label(g, d)
		b, ok := buckets[label]
		if !ok {
			b = &BucketTotal{Period: label}
			buckets[label] = b
		}
		b.PurchaseTotal += purchase.Float64
		b.SaleTotal += sell.Float64
		b.ProfitTotal += profit.Float64
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Mark(xerrors.ErrPersistence, err, "reading aggregate rows")
	}

	out := make([]BucketTotal, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, BucketTotal{
			Period:        b.Period,
			PurchaseTotal: round2(b.PurchaseTotal),
			SaleTotal:     round2(b.SaleTotal),
			ProfitTotal:   round2(b.ProfitTotal),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })

	if !explicit {
		if n := WindowSize(g); len(out) > n {
			out = out[len(out)-n:]
		}
	}
	return out, nil
}

// Summarize totals a category's live records by sale status.
func Summarize(ctx context.Context, dbtx store.DBTX, key category.Key) (*Summary, error) {
	s, err := category.Lookup(key)
	if err != nil {
		return nil, err
	}

	sold, err := sum(ctx, dbtx, s, "UPPER(sold) = 'YES'")
	if err != nil {
		return nil, err
	}
	unsold, err := sum(ctx, dbtx, s, "UPPER(sold) != 'YES'")
	if err != nil {
		return nil, err
	}
	return &Summary{Category: key, Sold: sold, Unsold: unsold}, nil
}

func sum(ctx context.Context, dbtx store.DBTX, s category.Schema, where string) (Totals, error) {
	var (
		t                      Totals
		purchase, sell, profit sql.NullFloat64
	)
	query := fmt.Sprintf(`SELECT COUNT(*), SUM(purchase_price), SUM(sell_price), SUM(profit)
		FROM %s WHERE deleted_at IS NULL AND %s`, s.Table, where)
	if err := dbtx.QueryRowContext(ctx, query).Scan(&t.Count, &purchase, &sell, &profit); err != nil {
		return t, xerrors.Mark(xerrors.ErrPersistence, err, "summing "+string(s.Key))
	}
	t.PurchaseTotal = round2(purchase.Float64)
	t.SaleTotal = round2(sell.Float64)
	t.ProfitTotal = round2(profit.Float64)
	return t, nil
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
