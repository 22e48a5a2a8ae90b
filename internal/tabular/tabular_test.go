package tabular

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReadCSV(t *testing.T) {
	in := "\ufeffLENGTH,MAKE,VIN,SELL\n20 FT, acme ,ABC123,\"5,000\"\n,,,\n16,Big Tex,XYZ\n"

	rows, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["LENGTH"] != "20 FT" {
		t.Errorf("expected BOM stripped from header, got %v", rows[0])
	}
	if rows[0]["SELL"] != "5,000" {
		t.Errorf("expected quoted cell, got %q", rows[0]["SELL"])
	}
	if v, ok := rows[1]["SELL"]; !ok || v != "" {
		t.Errorf("expected short row padded, got %v", rows[1])
	}
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	if !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestReadCSVMalformed(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("A,B\n\"unterminated,1\n"))
	if err == nil {
		t.Error("expected error for malformed csv")
	}
}

func workbook(t *testing.T, sheets map[string][][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			f.SetSheetName("Sheet1", name)
			first = false
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("NewSheet: %v", err)
		}
		for i, row := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("SetSheetRow: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf
}

func TestReadXLSXNamedSheet(t *testing.T) {
	buf := workbook(t, map[string][][]any{
		"NOTES":    {{"IGNORED"}, {"x"}},
		"TRAILERS": {{"LENGTH", "MAKE", "VIN"}, {20, "acme", "ABC123"}},
	})

	rows, err := ReadXLSX(buf, "trailers")
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0]["VIN"] != "ABC123" || rows[0]["LENGTH"] != "20" {
		t.Errorf("unexpected row %v", rows[0])
	}
}

func TestReadXLSXFallsBackToFirstSheet(t *testing.T) {
	buf := workbook(t, map[string][][]any{
		"Inventory": {{"MAKE", "VIN"}, {"acme", "V1"}, {"", ""}, {"beta", "V2"}},
	})

	rows, err := ReadXLSX(buf, "TRUCKS")
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(rows))
	}
}

func TestReadXLSXNotAWorkbook(t *testing.T) {
	if _, err := ReadXLSX(strings.NewReader("definitely not a zip"), ""); err == nil {
		t.Error("expected error for non-workbook input")
	}
}

func TestReadByExtension(t *testing.T) {
	rows, err := Read(strings.NewReader("MAKE,VIN\nacme,V1\n"), "inventory.CSV", "")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(rows))
	}

	if _, err := Read(strings.NewReader(""), "inventory.pdf", ""); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
