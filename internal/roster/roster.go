// Package roster reads the list of companies to research from CSV or XLSX files.
package roster

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// headerNames are the column names that identify the company column,
// in order of preference.
var headerNames = []string{"company", "company_name", "name", "domain", "website"}

// Read loads companies from path. The format follows the file extension:
// .xlsx reads the first sheet, anything else is parsed as CSV.
func Read(ctx context.Context, path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err := xlsxRows(path)
		if err != nil {
			return nil, err
		}
		return Companies(rows), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "roster: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	rows, err := csvRows(ctx, f)
	if err != nil {
		return nil, err
	}
	return Companies(rows), nil
}

// ReadCSV parses companies from CSV data.
func ReadCSV(ctx context.Context, r io.Reader) ([]string, error) {
	rows, err := csvRows(ctx, r)
	if err != nil {
		return nil, err
	}
	return Companies(rows), nil
}

// Companies picks the company column out of rows. When the first row carries
// a recognised header the named column is used and the header dropped;
// otherwise the first column of every row is used. Blank cells are skipped
// and duplicates (case-insensitive) keep their first occurrence.
func Companies(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}

	col := 0
	start := 0
	if idx, ok := headerColumn(rows[0]); ok {
		col = idx
		start = 1
	}

	seen := make(map[string]bool)
	var out []string
	for _, row := range rows[start:] {
		if col >= len(row) {
			continue
		}
		c := strings.TrimSpace(row[col])
		if c == "" {
			continue
		}
		key := strings.ToLower(c)
		if seen[key] {
			zap.L().Debug("roster: duplicate company skipped", zap.String("company", c))
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func headerColumn(row []string) (int, bool) {
	normalized := make([]string, len(row))
	for i, cell := range row {
		cell = strings.ToLower(strings.TrimSpace(cell))
		normalized[i] = strings.ReplaceAll(cell, " ", "_")
	}
	for _, name := range headerNames {
		for i, cell := range normalized {
			if cell == name {
				return i, true
			}
		}
	}
	return 0, false
}

func csvRows(ctx context.Context, r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comment = '#'

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "roster: context done")
		}
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "roster: read csv row")
		}
		rows = append(rows, record)
	}
}

func xlsxRows(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "roster: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("roster: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
