package importer

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"catalog-workers/internal/common/errors"
)

type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

// DetectFormat maps a file name to its reader. Legacy .xls is not supported.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatExcel, nil
	}
	return "", errors.NewImportFailedError("unsupported file format: " + name)
}

// Table is a header row plus data rows. Rows are padded to the header width.
type Table struct {
	Columns []string
	Rows    [][]string
	Sheet   string
}

// Read parses a CSV or workbook. sheet is ignored for CSV and defaults to the first sheet.
func Read(name string, data []byte, sheet string) (*Table, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}
	var records [][]string
	if format == FormatCSV {
		records, err = readCSV(data)
	} else {
		records, sheet, err = readWorkbook(data, sheet)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.NewImportFailedError("file has no header row")
	}

	t := &Table{Sheet: sheet}
	for _, h := range records[0] {
		t.Columns = append(t.Columns, strings.TrimSpace(h))
	}
	for _, rec := range records[1:] {
		row := make([]string, len(t.Columns))
		blank := true
		for i := range row {
			if i < len(rec) {
				row[i] = strings.TrimSpace(rec[i])
			}
			if row[i] != "" {
				blank = false
			}
		}
		if !blank {
			t.Rows = append(t.Rows, row)
		}
	}
	return t, nil
}

// readCSV accepts UTF-8 (with or without BOM) and falls back to Windows-1252, which is a
// superset of Latin-1 for printable characters.
func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, errors.NewImportFailedError("csv encoding: " + err.Error())
		}
		data = decoded
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	header, _, _ := bytes.Cut(data, []byte("\n"))
	if bytes.Count(header, []byte(";")) > bytes.Count(header, []byte(",")) {
		r.Comma = ';'
	}
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.NewImportFailedError("csv: " + err.Error())
	}
	return records, nil
}

func readWorkbook(data []byte, sheet string) ([][]string, string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.NewImportFailedError("workbook: " + err.Error())
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, "", errors.NewImportFailedError("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, "", errors.NewImportFailedError("sheet " + sheet + ": " + err.Error())
	}
	return rows, sheet, nil
}

// SheetNames lists the sheets of a workbook; CSV files have none.
func SheetNames(name string, data []byte) ([]string, error) {
	format, err := DetectFormat(name)
	if err != nil || format == FormatCSV {
		return nil, err
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewImportFailedError("workbook: " + err.Error())
	}
	defer f.Close()
	return f.GetSheetList(), nil
}
