// Package reader parses external record files (CSV, XLSX) into the generic
// row form the import pipeline consumes. Column names come from the header
// row; the field map decides later which columns matter.
package reader

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cadence-sync/internal/model"
)

// CSVOptions configures the CSV parser.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // comment character (0 = none)
	LazyQuotes bool
	// MaxRecords caps how many data rows are read (0 = unlimited).
	MaxRecords int
}

// ReadCSV parses a CSV stream into records keyed by the header row. Fields
// are trimmed; rows shorter than the header are padded with empty values,
// longer rows have the extra cells dropped.
func ReadCSV(r io.Reader, opts CSVOptions) ([]model.ExternalRecord, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("csv: file has no header row")
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	for i, col := range header {
		header[i] = strings.TrimSpace(col)
	}

	var records []model.ExternalRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, eris.Wrapf(err, "csv: read row %d", len(records)+2)
		}

		records = append(records, rowToRecord(header, row))
		if opts.MaxRecords > 0 && len(records) >= opts.MaxRecords {
			return records, nil
		}
	}
}

func rowToRecord(header, row []string) model.ExternalRecord {
	rec := make(model.ExternalRecord, len(header))
	for i, col := range header {
		if col == "" {
			continue
		}
		if i < len(row) {
			rec[col] = strings.TrimSpace(row[i])
		} else {
			rec[col] = ""
		}
	}
	return rec
}
