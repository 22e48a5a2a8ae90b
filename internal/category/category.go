// Package category declares the three record shapes the dealership tracks.
package category

import (
	"fmt"
	"strings"

	"github.com/erazemk/lotbook/internal/normalize"
	"github.com/erazemk/lotbook/internal/xerrors"
)

// Key identifies a record category.
type Key string

// Categories.
const (
	Trailers    Key = "trailers"
	Trucks      Key = "trucks"
	ClassicCars Key = "classic_cars"
)

// Kind is the storage type of an attribute.
type Kind int

// Attribute kinds.
const (
	Text Kind = iota
	Decimal
	Integer
)

// Field is a category-specific attribute column.
type Field struct {
	Name string
	Kind Kind
}

// Schema describes one category: where its records live and which fields
// play which role.
type Schema struct {
	Key   Key
	Table string

	// TypeField holds the model/type text: "type" for trailers, "model" otherwise.
	TypeField  string
	SizeField  string
	HitchField string
	Noun       string

	Attributes []Field
	Required   []string

	// HeaderAliases maps a normalized spreadsheet header to a column name.
	HeaderAliases map[string]string
	SheetName     string
}

// Common column names shared by every category.
const (
	FieldYear          = "year"
	FieldMake          = "make"
	FieldVIN           = "vin"
	FieldCondition     = "condition"
	FieldDescription   = "description"
	FieldPurchasePrice = "purchase_price"
	FieldSellPrice     = "sell_price"
	FieldSold          = "sold"
	FieldSoldDate      = "sold_date"
)

var registry = map[Key]Schema{
	Trailers: {
		Key:        Trailers,
		Table:      "trailers",
		TypeField:  "type",
		SizeField:  "length",
		HitchField: "hitch_type",
		Noun:       "TRAILER",
		Attributes: []Field{
			{"length", Decimal},
			{"dimensions", Text},
			{"capacity", Text},
			{"color", Text},
			{"hitch_type", Text},
		},
		HeaderAliases: map[string]string{
			"sell":     FieldSellPrice,
			"purchase": FieldPurchasePrice,
		},
		SheetName: "TRAILERS",
	},
	Trucks: {
		Key:       Trucks,
		Table:     "trucks",
		TypeField: "model",
		SizeField: "boom_height",
		Attributes: []Field{
			{"truck_type", Text},
			{"boom_height", Decimal},
			{"weight_capacity", Decimal},
			{"engine_type", Text},
			{"hours", Integer},
			{"mileage", Integer},
		},
		HeaderAliases: map[string]string{
			"sell":     FieldSellPrice,
			"purchase": FieldPurchasePrice,
			"boom":     "boom_height",
			"capacity": "weight_capacity",
			"engine":   "engine_type",
			"type":     "truck_type",
			"miles":    "mileage",
		},
		SheetName: "TRUCKS",
	},
	ClassicCars: {
		Key:       ClassicCars,
		Table:     "classic_cars",
		TypeField: "model",
		Attributes: []Field{
			{"mileage", Integer},
			{"engine_specs", Text},
			{"transmission", Text},
			{"restoration_status", Text},
			{"color", Text},
		},
		HeaderAliases: map[string]string{
			"sell":        FieldSellPrice,
			"purchase":    FieldPurchasePrice,
			"engine":      "engine_specs",
			"restoration": "restoration_status",
			"miles":       "mileage",
		},
		SheetName: "CLASSIC CARS",
	},
}

func init() {
	for key, s := range registry {
		s.Required = []string{FieldMake, FieldVIN}
		if s.SizeField != "" {
			s.Required = append(s.Required, s.SizeField)
		}
		for _, name := range s.Columns() {
			if _, ok := s.HeaderAliases[name]; !ok {
				s.HeaderAliases[name] = name
			}
		}
		registry[key] = s
	}
}

// Lookup returns the schema for key.
func Lookup(key Key) (Schema, error) {
	s, ok := registry[key]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q", xerrors.ErrUnknownCategory, string(key))
	}
	return s, nil
}

// Keys returns every category in a stable order.
func Keys() []Key {
	return []Key{Trailers, Trucks, ClassicCars}
}

// Parse resolves loose spellings such as "trailer" or "Classic-Cars".
func Parse(s string) (Key, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("-", "_", " ", "_").Replace(k)
	switch k {
	case "trailers", "trailer":
		return Trailers, nil
	case "trucks", "truck":
		return Trucks, nil
	case "classic_cars", "classic_car", "classics", "classic", "cars":
		return ClassicCars, nil
	}
	return "", fmt.Errorf("%w: %q", xerrors.ErrUnknownCategory, s)
}

// Columns returns every text-mapped column of the schema: the common fields
// followed by the category attributes.
func (s Schema) Columns() []string {
	cols := []string{
		FieldYear, FieldMake, s.TypeField, FieldVIN, FieldCondition, FieldDescription,
		FieldPurchasePrice, FieldSellPrice, FieldSold, FieldSoldDate,
	}
	for _, f := range s.Attributes {
		cols = append(cols, f.Name)
	}
	return cols
}

// MapHeader resolves a spreadsheet header to a column name. Matching ignores
// case, surrounding space, and treats spaces and hyphens as underscores.
func (s Schema) MapHeader(header string) (string, bool) {
	name, ok := s.HeaderAliases[HeaderKey(header)]
	return name, ok
}

// HeaderKey folds a header into its lookup form.
func HeaderKey(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

// Profile returns the normalizer profile for the category.
func (s Schema) Profile() normalize.Profile {
	text := []string{FieldMake, s.TypeField, FieldDescription, FieldCondition}
	var upper []string
	for _, f := range s.Attributes {
		if f.Kind != Text || f.Name == s.HitchField {
			continue
		}
		text = append(text, f.Name)
		if f.Name == "capacity" || f.Name == "dimensions" {
			upper = append(upper, f.Name)
		}
	}
	return normalize.Profile{
		TextFields:       text,
		UpperFields:      upper,
		TypeField:        s.TypeField,
		DescriptionField: FieldDescription,
		SizeField:        s.SizeField,
		HitchField:       s.HitchField,
		Noun:             s.Noun,
	}
}
