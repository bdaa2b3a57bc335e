package fetcher

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// Format is the encoding of an uploaded table.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks the parser from the upload's file name or content type,
// defaulting to CSV.
func DetectFormat(filename, contentType string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv", ".txt":
		return FormatCSV
	}
	if strings.Contains(contentType, "spreadsheetml") {
		return FormatXLSX
	}
	return FormatCSV
}

// Table is a parsed upload with normalized column names.
type Table struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Record maps the normalized column names of row i to its cell values.
// Cells beyond the header are dropped; missing cells are absent from the map.
// When two columns normalize to the same name the first one wins.
func (t *Table) Record(i int) map[string]string {
	row := t.Rows[i]
	rec := make(map[string]string, len(t.Header))
	for j, col := range t.Header {
		if j >= len(row) || col == "" {
			continue
		}
		if _, dup := rec[col]; dup {
			continue
		}
		rec[col] = strings.TrimSpace(row[j])
	}
	return rec
}

// NormalizeColumn lowercases a column name, trims it and replaces inner
// spaces with underscores ("Attendance Rate" -> "attendance_rate").
func NormalizeColumn(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// ParseTable decodes an upload into a Table. The first row is the header.
// Any decoding problem fails the whole upload.
func ParseTable(ctx context.Context, data []byte, format Format) (*Table, error) {
	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatXLSX:
		rows, err = ReadXLSXBytes(data, XLSXOptions{})
	case FormatCSV, "":
		body := bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
		if !utf8.Valid(body) {
			return nil, eris.New("table: upload is not valid UTF-8")
		}
		rows, err = ReadCSV(ctx, bytes.NewReader(data), CSVOptions{})
	default:
		return nil, eris.Errorf("table: unsupported format %q", format)
	}
	if err != nil {
		return nil, eris.Wrap(err, "table: parse")
	}

	if len(rows) == 0 {
		return nil, eris.New("table: upload has no header row")
	}

	header := make([]string, len(rows[0]))
	named := 0
	for i, col := range rows[0] {
		header[i] = NormalizeColumn(col)
		if header[i] != "" {
			named++
		}
	}
	if named == 0 {
		return nil, eris.New("table: header row has no column names")
	}

	// Blank lines (common at the end of spreadsheet exports) are not rows.
	records := make([][]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		if isBlank(r) {
			continue
		}
		records = append(records, r)
	}

	return &Table{Header: header, Rows: records}, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
