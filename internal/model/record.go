package model

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/lotbook/internal/category"
	"github.com/erazemk/lotbook/internal/normalize"
	"github.com/erazemk/lotbook/internal/xerrors"
)

// Sale statuses, in their canonical stored form.
const (
	SoldYes = "YES"
	SoldNo  = "No"
)

// DateLayout is the layout of sold_date.
const DateLayout = "2006-01-02"

// Record is one inventory unit of any category. Category-specific columns
// live in Attributes as text.
type Record struct {
	ID                int64             `json:"id"`
	Category          category.Key      `json:"category"`
	Year              *int              `json:"year,omitempty"`
	Make              string            `json:"make"`
	Model             string            `json:"model"`
	VIN               string            `json:"vin"`
	Condition         string            `json:"condition,omitempty"`
	Description       string            `json:"description,omitempty"`
	PurchasePrice     float64           `json:"purchase_price"`
	SellPrice         *float64          `json:"sell_price,omitempty"`
	Profit            float64           `json:"profit"`
	Sold              string            `json:"sold"`
	SoldDate          *string           `json:"sold_date,omitempty"`
	ExternalFolderRef string            `json:"external_folder_ref,omitempty"`
	Attributes        map[string]string `json:"attributes,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	DeletedAt         *time.Time        `json:"deleted_at,omitempty"`
}

// IsSold reports whether a sold value means sold. Case is ignored.
func IsSold(sold string) bool {
	return strings.EqualFold(strings.TrimSpace(sold), SoldYes)
}

// ComputeProfit returns sell - purchase, or 0 without a sell price.
func ComputeProfit(sell *float64, purchase float64) float64 {
	if sell == nil {
		return 0
	}
	return *sell - purchase
}

// Derive recomputes the derived fields: profit, the canonical sold value and
// the sold date, which is dropped for unsold records.
func (r *Record) Derive() {
	r.Profit = ComputeProfit(r.SellPrice, r.PurchasePrice)
	if IsSold(r.Sold) {
		r.Sold = SoldYes
	} else {
		r.Sold = SoldNo
		r.SoldDate = nil
	}
}

// Attr returns an attribute value, or "" when unset.
func (r *Record) Attr(name string) string {
	return r.Attributes[name]
}

// SetAttr sets an attribute value.
func (r *Record) SetAttr(name, value string) {
	if r.Attributes == nil {
		r.Attributes = make(map[string]string)
	}
	r.Attributes[name] = value
}

// Fields flattens the record's text columns for normalization.
func (r *Record) Fields(s category.Schema) normalize.Fields {
	f := normalize.Fields{
		category.FieldMake:        r.Make,
		s.TypeField:               r.Model,
		category.FieldVIN:         r.VIN,
		category.FieldCondition:   r.Condition,
		category.FieldDescription: r.Description,
	}
	for _, a := range s.Attributes {
		f[a.Name] = r.Attributes[a.Name]
	}
	return f
}

// SetFields writes normalized text columns back onto the record.
func (r *Record) SetFields(s category.Schema, f normalize.Fields) {
	r.Make = f[category.FieldMake]
	r.Model = f[s.TypeField]
	r.VIN = f[category.FieldVIN]
	r.Condition = f[category.FieldCondition]
	r.Description = f[category.FieldDescription]
	for _, a := range s.Attributes {
		if v := f[a.Name]; v != "" {
			r.SetAttr(a.Name, v)
		} else {
			delete(r.Attributes, a.Name)
		}
	}
}

// Validate checks a record before it is written.
func (r *Record) Validate(s category.Schema) error {
	f := r.Fields(s)
	for _, name := range s.Required {
		if strings.TrimSpace(f[name]) == "" {
			return xerrors.Invalid("%s is required", name)
		}
	}
	if math.IsNaN(r.PurchasePrice) || math.IsInf(r.PurchasePrice, 0) {
		return xerrors.Invalid("purchase price is not a number")
	}
	if r.SoldDate != nil {
		if _, err := time.Parse(DateLayout, *r.SoldDate); err != nil {
			return xerrors.Invalid("sold date %q is not YYYY-MM-DD", *r.SoldDate)
		}
	}
	for _, a := range s.Attributes {
		v := strings.TrimSpace(r.Attributes[a.Name])
		if v == "" {
			continue
		}
		switch a.Kind {
		case category.Decimal:
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				return xerrors.Invalid("%s %q is not a number", a.Name, v)
			}
		case category.Integer:
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				return xerrors.Invalid("%s %q is not a whole number", a.Name, v)
			}
		}
	}
	return nil
}
