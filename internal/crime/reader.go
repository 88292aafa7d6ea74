package crime

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/saferoute/internal/boundary"
)

// DefaultDistrictColumn is the district name header in the published tables.
const DefaultDistrictColumn = "DISTRICT/UNITS"

var districtFallbacks = []string{DefaultDistrictColumn, "district", "name"}

// ReadCSV parses a crime table. The first row is the header; a UTF-8 BOM is
// tolerated. districtColumn overrides the default name header.
func ReadCSV(r io.Reader, districtColumn string) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &boundary.DataLoadError{Source: "csv", Err: eris.Wrap(err, "crime: read csv")}
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return parseTable(records, districtColumn, "csv")
}

// ReadXLSX parses a crime table from an XLSX sheet; an empty sheet name
// selects the first sheet.
func ReadXLSX(path, sheet, districtColumn string) ([]Row, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, &boundary.DataLoadError{Source: path, Err: eris.Wrap(err, "crime: open xlsx")}
	}

	var s *xlsx.Sheet
	if sheet != "" {
		var ok bool
		if s, ok = f.Sheet[sheet]; !ok {
			return nil, &boundary.DataLoadError{Source: path, Err: eris.Errorf("crime: sheet %q not found", sheet)}
		}
	} else {
		if len(f.Sheets) == 0 {
			return nil, &boundary.DataLoadError{Source: path, Err: eris.New("crime: workbook has no sheets")}
		}
		s = f.Sheets[0]
	}

	records := make([][]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = c.String()
		}
		records = append(records, cells)
	}
	return parseTable(records, districtColumn, path)
}

// ReadFile dispatches on the file extension (.csv, .xlsx).
func ReadFile(path, sheet, districtColumn string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path, sheet, districtColumn)
	case ".csv", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, &boundary.DataLoadError{Source: path, Err: eris.Wrap(err, "crime: open csv")}
		}
		defer f.Close() //nolint:errcheck
		rows, err := ReadCSV(f, districtColumn)
		if err != nil {
			var dle *boundary.DataLoadError
			if errors.As(err, &dle) {
				dle.Source = path
			}
			return nil, err
		}
		return rows, nil
	default:
		return nil, &boundary.DataLoadError{Source: path, Err: eris.Errorf("crime: unsupported file type %q", filepath.Ext(path))}
	}
}

func parseTable(records [][]string, districtColumn, source string) ([]Row, error) {
	if len(records) == 0 {
		return nil, &boundary.DataLoadError{Source: source, Err: eris.New("crime: empty table")}
	}
	header := records[0]

	candidates := districtFallbacks
	if districtColumn != "" {
		candidates = append([]string{districtColumn}, districtFallbacks...)
	}
	nameIdx := -1
	for _, want := range candidates {
		for i, h := range header {
			if NormalizeKey(h) == NormalizeKey(want) {
				nameIdx = i
				break
			}
		}
		if nameIdx >= 0 {
			break
		}
	}
	if nameIdx < 0 {
		return nil, &boundary.DataLoadError{Source: source, Err: eris.Errorf("crime: no district column in header %v", header)}
	}

	cols := make(map[int]Type)
	for i, h := range header {
		if t, ok := ParseType(h); ok {
			cols[i] = t
		}
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if nameIdx >= len(rec) {
			continue
		}
		row := Row{Name: strings.TrimSpace(rec[nameIdx]), Counts: make(map[Type]float64, len(cols))}
		for i, t := range cols {
			if i < len(rec) {
				row.Counts[t] = ParseCount(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseCount converts a table cell to a non-negative count. Blank,
// non-numeric, non-finite and negative cells are 0.
func ParseCount(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
