package statements

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvRow supports the recognized header aliases. gocsv matches columns by
// header name; absent columns simply leave fields empty.
type csvRow struct {
	Date        string `csv:"date"`
	SpentAt     string `csv:"spent_at"`
	Amount      string `csv:"amount"`
	Description string `csv:"description"`
	Notes       string `csv:"notes"`
	CategoryID  string `csv:"category_id"`
	Currency    string `csv:"currency"`
}

// parseCSVRows reads header-driven tabular data into raw rows, one per input
// row in file order. Nothing is validated here; that is the normalizer's job.
func parseCSVRows(data []byte) ([]RawRow, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var rows []csvRow
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	out := make([]RawRow, 0, len(rows))
	for _, row := range rows {
		currency := strings.TrimSpace(row.Currency)
		if currency == "" {
			currency = defaultCurrency
		}
		out = append(out, RawRow{
			Date:        FlexString(coalesce(row.Date, row.SpentAt)),
			Amount:      FlexString(row.Amount),
			Description: FlexString(coalesce(row.Description, row.Notes)),
			CategoryID:  FlexString(row.CategoryID),
			Currency:    FlexString(currency),
		})
	}
	return out, nil
}

// coalesce returns the first non-empty value
func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
