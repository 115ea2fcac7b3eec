package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var errNoColumns = errors.New("csv requires at least one header")

// CSVExporter renders datasets as RFC 4180 CSV. Scan messages come from
// anonymous finders, so cells that a spreadsheet would evaluate as a formula
// are prefixed with a single quote.
type CSVExporter struct{}

func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

func (e *CSVExporter) ContentType() string { return "text/csv; charset=utf-8" }
func (e *CSVExporter) Extension() string   { return "csv" }

func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Write(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the dataset to w, one record per row in header order.
func (e *CSVExporter) Write(w io.Writer, data Dataset) error {
	if len(data.Headers) == 0 {
		return errNoColumns
	}
	out := csv.NewWriter(w)
	if err := out.Write(data.Headers); err != nil {
		return fmt.Errorf("write csv headers: %w", err)
	}
	for n, row := range data.Rows {
		if err := out.Write(csvRecord(data.Headers, row)); err != nil {
			return fmt.Errorf("write csv row %d: %w", n+1, err)
		}
	}
	out.Flush()
	if err := out.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func csvRecord(headers []string, row map[string]string) []string {
	record := make([]string, 0, len(headers))
	for _, h := range headers {
		record = append(record, neutralizeFormula(row[h]))
	}
	return record
}

func neutralizeFormula(cell string) string {
	if cell == "" {
		return cell
	}
	if strings.ContainsRune("=+-@\t\r", rune(cell[0])) {
		return "'" + cell
	}
	return cell
}
