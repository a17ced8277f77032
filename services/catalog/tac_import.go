package catalog

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// TacRow is one catalogue line of a TAC drop: tac, manufacturer, model, model no, colours, storage.
type TacRow struct {
	TacCode      string
	Manufacturer string
	ModelName    string
	ModelNo      string
	Colors       []string
	Storage      []string
}

type ImportResult struct {
	TotalRows     int      `json:"total_rows"`
	SuccessCount  int      `json:"success_count"`
	SkippedCount  int      `json:"skipped_count"`
	ErrorCount    int      `json:"error_count"`
	ErrorMessages []string `json:"error_messages"`
}

const tacColumns = 4

// ParseTacRows validates raw rows (header first) from a CSV or spreadsheet drop.
// Rows with a blank TAC are skipped, malformed rows are reported and left out.
func ParseTacRows(rows [][]string) ([]TacRow, ImportResult) {
	result := ImportResult{ErrorMessages: []string{}}
	if len(rows) < 2 {
		return nil, result
	}
	result.TotalRows = len(rows) - 1

	seen := make(map[string]int)
	var out []TacRow
	for i, row := range rows[1:] {
		line := i + 2

		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			result.SkippedCount++
			continue
		}
		if len(row) < tacColumns {
			result.ErrorCount++
			result.ErrorMessages = append(result.ErrorMessages, fmt.Sprintf("Row %d: Insufficient columns (expected %d)", line, tacColumns))
			continue
		}

		tac := strings.TrimSpace(row[0])
		if len(tac) != 8 || strings.Trim(tac, "0123456789") != "" {
			result.ErrorCount++
			result.ErrorMessages = append(result.ErrorMessages, fmt.Sprintf("Row %d: TAC %q must be 8 digits", line, tac))
			continue
		}
		if prev, dup := seen[tac]; dup {
			result.SkippedCount++
			result.ErrorMessages = append(result.ErrorMessages, fmt.Sprintf("Row %d: TAC %s already listed on row %d", line, tac, prev))
			continue
		}

		r := TacRow{
			TacCode:      tac,
			Manufacturer: strings.TrimSpace(row[1]),
			ModelName:    strings.TrimSpace(row[2]),
			ModelNo:      strings.TrimSpace(row[3]),
		}
		if r.Manufacturer == "" || r.ModelName == "" {
			result.ErrorCount++
			result.ErrorMessages = append(result.ErrorMessages, fmt.Sprintf("Row %d: manufacturer and model are required", line))
			continue
		}
		if len(row) > 4 {
			r.Colors = splitOptions(row[4])
		}
		if len(row) > 5 {
			r.Storage = splitOptions(row[5])
		}

		seen[tac] = line
		out = append(out, r)
	}
	return out, result
}

// ReadSheetRows returns the rows of the first sheet of an xlsx workbook.
func ReadSheetRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in workbook")
	}
	return f.GetRows(sheets[0])
}

func splitOptions(raw string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == '|' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
