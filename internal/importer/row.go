package importer

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/lotbook/internal/category"
	"github.com/erazemk/lotbook/internal/model"
	"github.com/erazemk/lotbook/internal/normalize"
	"github.com/erazemk/lotbook/internal/tabular"
	"github.com/erazemk/lotbook/internal/xerrors"
)

var (
	nonNumeric = regexp.MustCompile(`[^\d.]`)
	sizeValue  = regexp.MustCompile(`^\d*\.?\d+$`)
	isoDate    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	moneyJunk  = strings.NewReplacer("$", "", ",", "", " ", "")
)

// ParseRow turns one spreadsheet row into a record of category s, or fails
// with a validation error when the row must be skipped. The record is not
// yet normalized.
func ParseRow(s category.Schema, raw tabular.Row) (*model.Record, error) {
	fields := mapHeaders(s, raw)

	rec := &model.Record{Category: s.Key}

	if s.SizeField != "" {
		size, err := parseSize(fields[s.SizeField])
		if err != nil {
			return nil, err
		}
		rec.SetAttr(s.SizeField, size)
	}

	rec.Make = strings.TrimSpace(fields[category.FieldMake])
	if rec.Make == "" {
		return nil, xerrors.Invalid("make is blank")
	}
	if strings.Contains(strings.ToLower(rec.Make), "total") {
		return nil, xerrors.Invalid("subtotal row %q", rec.Make)
	}

	rec.VIN = strings.TrimSpace(fields[category.FieldVIN])
	if rec.VIN == "" {
		return nil, xerrors.Invalid("vin is blank")
	}

	rec.Year = parseYear(fields[category.FieldYear])
	rec.SellPrice = parseMoney(fields[category.FieldSellPrice])
	if p := parseMoney(fields[category.FieldPurchasePrice]); p != nil {
		rec.PurchasePrice = *p
	}

	rec.Sold = model.SoldNo
	if model.IsSold(fields[category.FieldSold]) {
		rec.Sold = model.SoldYes
	}
	rec.SoldDate = parseDate(fields[category.FieldSoldDate])

	rec.Model = strings.TrimSpace(fields[s.TypeField])
	rec.Condition = strings.TrimSpace(fields[category.FieldCondition])
	rec.Description = strings.TrimSpace(fields[category.FieldDescription])

	for _, a := range s.Attributes {
		if a.Name == s.SizeField {
			continue
		}
		if v, ok := parseAttribute(a, fields[a.Name]); ok {
			rec.SetAttr(a.Name, v)
		}
	}

	rec.Derive()

	if s.HitchField != "" && rec.Attr(s.HitchField) == "" {
		rec.SetAttr(s.HitchField, normalize.InferHitch(rec.Model, rec.Description))
	}

	return rec, nil
}

// mapHeaders resolves raw headers to column names. Unknown headers are
// dropped; a blank cell never hides a filled one mapped to the same column.
func mapHeaders(s category.Schema, raw tabular.Row) map[string]string {
	fields := make(map[string]string, len(raw))
	for header, value := range raw {
		name, ok := s.MapHeader(header)
		if !ok {
			continue
		}
		if strings.TrimSpace(fields[name]) == "" {
			fields[name] = value
		}
	}
	return fields
}

func parseSize(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", xerrors.Invalid("size is blank")
	}
	clean := nonNumeric.ReplaceAllString(v, "")
	if !sizeValue.MatchString(clean) {
		return "", xerrors.Invalid("size %q is not a number", v)
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return "", xerrors.Invalid("size %q is not a number", v)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

func parseYear(v string) *int {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f < 0 {
		return nil
	}
	y := int(f)
	return &y
}

func parseMoney(v string) *float64 {
	v = moneyJunk.Replace(strings.TrimSpace(v))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseDate(v string) *string {
	v = strings.TrimSpace(v)
	if !isoDate.MatchString(v) {
		return nil
	}
	if _, err := time.Parse(model.DateLayout, v); err != nil {
		return nil
	}
	return &v
}

// parseAttribute cleans a category attribute. Unparseable numbers are
// dropped rather than failing the row.
func parseAttribute(f category.Field, v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	switch f.Kind {
	case category.Decimal:
		n, err := strconv.ParseFloat(nonNumeric.ReplaceAllString(v, ""), 64)
		if err != nil {
			return "", false
		}
		return strconv.FormatFloat(n, 'f', -1, 64), true
	case category.Integer:
		n, err := strconv.ParseFloat(nonNumeric.ReplaceAllString(v, ""), 64)
		if err != nil {
			return "", false
		}
		return strconv.FormatInt(int64(n), 10), true
	}
	return v, true
}
