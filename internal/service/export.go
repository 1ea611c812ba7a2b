package service

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tealeg/xlsx"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
	ExportJSON ExportFormat = "json"
)

const (
	exportPageSize = 200
	exportMaxRows  = 10000
)

func ParseExportFormat(raw string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return ExportCSV, nil
	case ExportCSV, ExportXLSX, ExportJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, raw)
}

func (f ExportFormat) ContentType() string {
	switch f {
	case ExportXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ExportJSON:
		return "application/json"
	default:
		return "text/csv; charset=utf-8"
	}
}

// exportTable is a flat rendering of exported rows. Numeric columns become
// number cells in spreadsheets.
type exportTable struct {
	sheet   string
	header  []string
	rows    [][]string
	numeric map[int]bool
	docs    any
}

func writeTable(w io.Writer, format ExportFormat, t exportTable) error {
	switch format {
	case ExportCSV:
		return writeCSV(w, t)
	case ExportXLSX:
		return writeXLSX(w, t)
	case ExportJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t.docs)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

func writeCSV(w io.Writer, t exportTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.header); err != nil {
		return err
	}
	for _, row := range t.rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, t exportTable) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(t.sheet)
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range t.header {
		header.AddCell().SetValue(h)
	}
	for _, record := range t.rows {
		row := sheet.AddRow()
		for i, value := range record {
			if t.numeric[i] {
				if f, err := strconv.ParseFloat(value, 64); err == nil {
					row.AddCell().SetFloat(f)
					continue
				}
			}
			row.AddCell().SetValue(value)
		}
	}
	return file.Write(w)
}

// collectPages pages through list until it runs dry or reaches the row cap.
func collectPages[T any](list func(limit, offset int) ([]T, error)) ([]T, error) {
	var all []T
	for offset := 0; len(all) < exportMaxRows; offset += exportPageSize {
		page, err := list(exportPageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < exportPageSize {
			break
		}
	}
	if len(all) > exportMaxRows {
		all = all[:exportMaxRows]
	}
	return all, nil
}
