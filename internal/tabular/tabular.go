// Package tabular reads spreadsheet sources (CSV or XLSX) into rows keyed
// by their header.
package tabular

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row maps a header to the cell below it.
type Row map[string]string

// ErrEmpty is returned for a source without a header row.
var ErrEmpty = errors.New("no header row")

// Read decodes r by the extension of name: .xlsx as a workbook, anything
// else as CSV. sheet picks the workbook sheet when present.
func Read(r io.Reader, name, sheet string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r, sheet)
	case ".csv", ".txt", "":
		return ReadCSV(r)
	}
	return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(name))
}

// ReadCSV decodes comma-separated input. The first record is the header.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	return toRows(records)
}

// ReadXLSX decodes a workbook. The named sheet is used when it exists,
// otherwise the first sheet.
func ReadXLSX(r io.Reader, sheet string) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmpty
	}
	name := sheets[0]
	if i := slices.IndexFunc(sheets, func(s string) bool { return strings.EqualFold(s, sheet) }); sheet != "" && i >= 0 {
		name = sheets[i]
	}

	records, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", name, err)
	}
	return toRows(records)
}

func toRows(records [][]string) ([]Row, error) {
	for len(records) > 0 && blank(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, ErrEmpty
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := make(Row, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if _, dup := row[h]; dup {
				continue
			}
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
