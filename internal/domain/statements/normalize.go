package statements

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finmind-app/finmind-api/pkg/money"
)

const (
	maxDescriptionLen = 500
	maxCurrencyLen    = 10
	defaultCurrency   = "USD"
)

// dateLayouts are tried in order. The MM/DD before DD/MM trial order is a
// deliberate product decision carried over from the original import rules;
// ambiguous dates like 02/03 resolve as February 3rd.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"01-02-2006",
	"02-01-2006",
}

// Normalize converts raw rows into canonical transactions, preserving input
// order. Rows missing a valid date, amount, or description are dropped
// silently; this is filtering, not failure.
func Normalize(rows []RawRow) []Transaction {
	out := make([]Transaction, 0, len(rows))
	for _, row := range rows {
		date, ok := normalizeDate(row.Date.String())
		if !ok {
			continue
		}
		amount, ok := normalizeAmount(row.Amount.String())
		if !ok {
			continue
		}
		desc := strings.TrimSpace(row.Description.String())
		if desc == "" {
			continue
		}

		abs := amount.Abs()
		out = append(out, Transaction{
			Date:        date,
			Amount:      abs.InexactFloat64(),
			AmountCents: money.CentsFromDecimal(abs),
			Description: truncate(desc, maxDescriptionLen),
			CategoryID:  parseCategoryID(row.CategoryID.String()),
			ExpenseType: inferExpenseType(row.ExpenseType.String(), desc, amount),
			Currency:    normalizeCurrency(row.Currency.String()),
		})
	}
	return out
}

func normalizeDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// normalizeAmount strips everything that is not a digit, dot, or minus, then
// parses a fixed-point decimal quantized to two fraction digits. A
// parenthesized raw value forces the sign negative regardless of digits.
func normalizeAmount(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false
	}
	negativeParens := strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")")

	var cleaned strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			cleaned.WriteRune(r)
		}
	}
	if cleaned.Len() == 0 {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(cleaned.String())
	if err != nil {
		return decimal.Zero, false
	}
	d = d.RoundBank(2)
	if negativeParens {
		return d.Abs().Neg(), true
	}
	return d, true
}

// parseCategoryID passes through integer IDs and maps the empty/null
// sentinels, and anything unparseable, to null.
func parseCategoryID(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" || raw == "None" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

func normalizeCurrency(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultCurrency
	}
	return truncate(raw, maxCurrencyLen)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
