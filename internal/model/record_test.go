package model

import (
	"errors"
	"testing"

	"github.com/erazemk/lotbook/internal/category"
	"github.com/erazemk/lotbook/internal/xerrors"
)

func ptr[T any](v T) *T { return &v }

func TestIsSold(t *testing.T) {
	tests := []struct {
		sold     string
		expected bool
	}{
		{"YES", true},
		{"yes", true},
		{" Yes ", true},
		{"No", false},
		{"NO", false},
		{"", false},
		{"maybe", false},
	}

	for _, tt := range tests {
		if got := IsSold(tt.sold); got != tt.expected {
			t.Errorf("IsSold(%q) = %v, want %v", tt.sold, got, tt.expected)
		}
	}
}

func TestDerive(t *testing.T) {
	r := &Record{PurchasePrice: 3000, SellPrice: ptr(5000.0), Sold: "yes", SoldDate: ptr("2024-03-01")}
	r.Derive()
	if r.Profit != 2000 {
		t.Errorf("expected profit 2000, got %v", r.Profit)
	}
	if r.Sold != SoldYes {
		t.Errorf("expected sold %q, got %q", SoldYes, r.Sold)
	}
	if r.SoldDate == nil {
		t.Error("expected sold date kept for sold record")
	}

	r.SellPrice = nil
	r.Sold = "no"
	r.Derive()
	if r.Profit != 0 {
		t.Errorf("expected profit 0 without sell price, got %v", r.Profit)
	}
	if r.Sold != SoldNo {
		t.Errorf("expected sold %q, got %q", SoldNo, r.Sold)
	}
	if r.SoldDate != nil {
		t.Errorf("expected sold date cleared, got %q", *r.SoldDate)
	}
}

func TestFieldsRoundTrip(t *testing.T) {
	s, _ := category.Lookup(category.Trailers)
	r := &Record{Make: "acme", Model: "flatbed", VIN: "V1"}
	r.SetAttr("length", "20")

	f := r.Fields(s)
	if f["type"] != "flatbed" {
		t.Errorf("expected type column to carry model, got %q", f["type"])
	}

	f["color"] = "RED"
	f["length"] = ""
	r.SetFields(s, f)
	if r.Attr("color") != "RED" {
		t.Errorf("expected color RED, got %q", r.Attr("color"))
	}
	if _, ok := r.Attributes["length"]; ok {
		t.Error("expected blank attribute removed")
	}
}

func boom(height string) map[string]string {
	return map[string]string{"boom_height": height}
}

func TestValidate(t *testing.T) {
	s, _ := category.Lookup(category.Trucks)

	tests := []struct {
		name    string
		rec     Record
		wantErr bool
	}{
		{"ok", Record{Make: "Mack", VIN: "T1", Attributes: boom("45")}, false},
		{"missing make", Record{VIN: "T1", Attributes: boom("45")}, true},
		{"missing vin", Record{Make: "Mack", VIN: "  ", Attributes: boom("45")}, true},
		{"missing size", Record{Make: "Mack", VIN: "T1"}, true},
		{"bad sold date", Record{Make: "Mack", VIN: "T1", Attributes: boom("45"), SoldDate: ptr("03/01/2024")}, true},
		{"bad decimal", Record{Make: "Mack", VIN: "T1", Attributes: boom("tall")}, true},
		{"bad integer", Record{Make: "Mack", VIN: "T1", Attributes: map[string]string{"boom_height": "45", "hours": "1.5"}}, true},
		{"numbers ok", Record{Make: "Mack", VIN: "T1", Attributes: map[string]string{"boom_height": "45.5", "hours": "1200"}}, false},
	}

	for _, tt := range tests {
		err := tt.rec.Validate(s)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, xerrors.ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", tt.name, err)
		}
	}
}
