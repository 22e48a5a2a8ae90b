package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/lotbook/internal/category"
	"github.com/erazemk/lotbook/internal/db"
	"github.com/erazemk/lotbook/internal/model"
	"github.com/erazemk/lotbook/internal/xerrors"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SoldFilter selects records by sale status.
type SoldFilter string

// Sold filters.
const (
	SoldAll    SoldFilter = "all"
	SoldOnly   SoldFilter = "sold"
	UnsoldOnly SoldFilter = "unsold"
)

// ParseSoldFilter maps a query value to a filter. Blank means all.
func ParseSoldFilter(s string) (SoldFilter, error) {
	switch f := SoldFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", SoldAll:
		return SoldAll, nil
	case SoldOnly, UnsoldOnly:
		return f, nil
	}
	return "", xerrors.Invalid("sold filter %q is not all, sold or unsold", s)
}

// writeColumns are the columns written on insert and update, in order.
func writeColumns(s category.Schema) []string {
	cols := []string{
		category.FieldYear, category.FieldMake, s.TypeField, category.FieldVIN,
		category.FieldCondition, category.FieldDescription,
		category.FieldPurchasePrice, category.FieldSellPrice, "profit",
		category.FieldSold, category.FieldSoldDate, "external_folder_ref",
	}
	for _, a := range s.Attributes {
		cols = append(cols, a.Name)
	}
	return cols
}

func selectColumns(s category.Schema) string {
	cols := append([]string{"id"}, writeColumns(s)...)
	cols = append(cols, "created_at", "updated_at", "deleted_at")
	return strings.Join(cols, ", ")
}

func writeArgs(s category.Schema, rec *model.Record) ([]any, error) {
	var year any
	if rec.Year != nil {
		year = *rec.Year
	}
	var sell any
	if rec.SellPrice != nil {
		sell = *rec.SellPrice
	}
	var soldDate any
	if rec.SoldDate != nil {
		soldDate = *rec.SoldDate
	}

	args := []any{
		year, rec.Make, nullString(rec.Model), rec.VIN,
		nullString(rec.Condition), nullString(rec.Description),
		rec.PurchasePrice, sell, rec.Profit,
		rec.Sold, soldDate, nullString(rec.ExternalFolderRef),
	}

	for _, a := range s.Attributes {
		v, err := attributeArg(a, rec.Attr(a.Name))
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

func attributeArg(f category.Field, v string) (any, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	switch f.Kind {
	case category.Decimal:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f.Name, err)
		}
		return n, nil
	case category.Integer:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f.Name, err)
		}
		return n, nil
	}
	return v, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func stamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(db.TimeLayout)
}

// InsertRecord creates a record and returns its new ID. CreatedAt defaults to
// the current time.
func InsertRecord(ctx context.Context, dbtx DBTX, s category.Schema, rec *model.Record) (int64, error) {
	args, err := writeArgs(s, rec)
	if err != nil {
		return 0, fmt.Errorf("inserting %s record: %w", s.Key, err)
	}
	created := stamp(rec.CreatedAt)
	args = append(args, created, created)

	cols := writeColumns(s)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)+2), ", ")
	query := fmt.Sprintf(`INSERT INTO %s (%s, created_at, updated_at) VALUES (%s)`,
		s.Table, strings.Join(cols, ", "), placeholders)

	result, err := dbtx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting %s record: %w", s.Key, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting %s record id: %w", s.Key, err)
	}
	return id, nil
}

// UpdateRecord overwrites every writable column of a live record.
func UpdateRecord(ctx context.Context, dbtx DBTX, s category.Schema, rec *model.Record) error {
	args, err := writeArgs(s, rec)
	if err != nil {
		return fmt.Errorf("updating %s record: %w", s.Key, err)
	}
	args = append(args, stamp(rec.UpdatedAt), rec.ID)

	cols := writeColumns(s)
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}
	query := fmt.Sprintf(`UPDATE %s SET %s, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		s.Table, strings.Join(sets, ", "))

	if _, err := dbtx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("updating %s record: %w", s.Key, err)
	}
	return nil
}

// GetRecord returns a record by ID, soft-deleted or not. Returns nil when no
// such record exists.
func GetRecord(ctx context.Context, dbtx DBTX, s category.Schema, id int64) (*model.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, selectColumns(s), s.Table)
	rec, err := scanRecord(s, dbtx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s record: %w", s.Key, err)
	}
	return rec, nil
}

// FindByVIN returns the live record with the exact VIN, or nil.
func FindByVIN(ctx context.Context, dbtx DBTX, s category.Schema, vin string) (*model.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE vin = ? AND deleted_at IS NULL`, selectColumns(s), s.Table)
	rec, err := scanRecord(s, dbtx.QueryRowContext(ctx, query, vin))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding %s record by vin: %w", s.Key, err)
	}
	return rec, nil
}

// ListRecords returns all live records of a category, oldest first.
func ListRecords(ctx context.Context, dbtx DBTX, s category.Schema, filter SoldFilter) ([]model.Record, error) {
	where := "deleted_at IS NULL"
	switch filter {
	case SoldOnly:
		where += " AND UPPER(sold) = 'YES'"
	case UnsoldOnly:
		where += " AND UPPER(sold) != 'YES'"
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY id`, selectColumns(s), s.Table, where)

	rows, err := dbtx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing %s records: %w", s.Key, err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		rec, err := scanRecord(s, rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s record: %w", s.Key, err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// SoftDeleteRecords marks the given live records deleted and returns how
// many were affected.
func SoftDeleteRecords(ctx context.Context, dbtx DBTX, s category.Schema, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{stamp(time.Time{})}
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	query := fmt.Sprintf(`UPDATE %s SET deleted_at = ? WHERE id IN (%s) AND deleted_at IS NULL`,
		s.Table, placeholders)

	result, err := dbtx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting %s records: %w", s.Key, err)
	}
	return result.RowsAffected()
}

// SetFolderRef links a live record to its photo folder.
func SetFolderRef(ctx context.Context, dbtx DBTX, s category.Schema, id int64, ref string) error {
	query := fmt.Sprintf(`UPDATE %s SET external_folder_ref = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`, s.Table)
	if _, err := dbtx.ExecContext(ctx, query, nullString(ref), stamp(time.Time{}), id); err != nil {
		return fmt.Errorf("setting %s folder ref: %w", s.Key, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s category.Schema, row scanner) (*model.Record, error) {
	rec := &model.Record{Category: s.Key}
	var (
		year                                  sql.NullInt64
		typ, condition, description, soldDate sql.NullString
		folderRef                             sql.NullString
		sell                                  sql.NullFloat64
	)

	attrs := make([]any, len(s.Attributes))
	for i, a := range s.Attributes {
		switch a.Kind {
		case category.Decimal:
			attrs[i] = new(sql.NullFloat64)
		case category.Integer:
			attrs[i] = new(sql.NullInt64)
		default:
			attrs[i] = new(sql.NullString)
		}
	}

	dest := []any{
		&rec.ID, &year, &rec.Make, &typ, &rec.VIN, &condition, &description,
		&rec.PurchasePrice, &sell, &rec.Profit, &rec.Sold, &soldDate, &folderRef,
	}
	dest = append(dest, attrs...)
	dest = append(dest, &rec.CreatedAt, &rec.UpdatedAt, &rec.DeletedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if year.Valid {
		y := int(year.Int64)
		rec.Year = &y
	}
	if sell.Valid {
		rec.SellPrice = &sell.Float64
	}
	if soldDate.Valid && soldDate.String != "" {
		rec.SoldDate = &soldDate.String
	}
	rec.Model = typ.String
	rec.Condition = condition.String
	rec.Description = description.String
	rec.ExternalFolderRef = folderRef.String

	for i, a := range s.Attributes {
		switch v := attrs[i].(type) {
		case *sql.NullFloat64:
			if v.Valid {
				rec.SetAttr(a.Name, strconv.FormatFloat(v.Float64, 'f', -1, 64))
			}
		case *sql.NullInt64:
			if v.Valid {
				rec.SetAttr(a.Name, strconv.FormatInt(v.Int64, 10))
			}
		case *sql.NullString:
			if v.Valid && v.String != "" {
				rec.SetAttr(a.Name, v.String)
			}
		}
	}
	return rec, nil
}
