package reader

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/cadence-sync/internal/model"
)

// XLSXOptions configures the spreadsheet parser.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	// MaxRecords caps how many data rows are read (0 = unlimited).
	MaxRecords int
}

// ReadXLSX parses one sheet of an XLSX file into records keyed by the
// first row.
func ReadXLSX(path string, opts XLSXOptions) ([]model.ExternalRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.New("xlsx: sheet has no header row")
	}

	header := rowToStrings(sheet.Rows[0])
	for i, col := range header {
		header[i] = strings.TrimSpace(col)
	}

	var records []model.ExternalRecord
	for _, row := range sheet.Rows[1:] {
		records = append(records, rowToRecord(header, rowToStrings(row)))
		if opts.MaxRecords > 0 && len(records) >= opts.MaxRecords {
			break
		}
	}
	return records, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
