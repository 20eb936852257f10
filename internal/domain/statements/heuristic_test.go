package statements

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatementLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantDate string
		wantAmt  string
		wantDesc string
		wantType string
		ok       bool
	}{
		{
			name:     "expense with negative amount",
			line:     "2026-02-10 Coffee Shop -4.50",
			wantDate: "2026-02-10",
			wantAmt:  "4.5",
			wantDesc: "Coffee Shop",
			wantType: TypeExpense,
			ok:       true,
		},
		{
			name:     "income keyword",
			line:     "2026-02-11 Payroll Deposit 2500.00",
			wantDate: "2026-02-11",
			wantAmt:  "2500",
			wantDesc: "Payroll Deposit",
			wantType: TypeIncome,
			ok:       true,
		},
		{
			name:     "parenthesized accounting negative",
			line:     "02/15/2026 Gym Membership (45.00)",
			wantDate: "2026-02-15",
			wantAmt:  "45",
			wantDesc: "Gym Membership",
			wantType: TypeExpense,
			ok:       true,
		},
		{
			name:     "rightmost amount wins",
			line:     "01/02/2026 Check 102 55.20",
			wantDate: "2026-01-02",
			wantAmt:  "55.2",
			wantDesc: "Check 102",
			wantType: TypeExpense,
			ok:       true,
		},
		{
			name:     "two digit year",
			line:     "02/03/26 Market Street 12.00",
			wantDate: "2026-02-03",
			wantAmt:  "12",
			wantDesc: "Market Street",
			wantType: TypeExpense,
			ok:       true,
		},
		{
			name:     "dash date form",
			line:     "02-10-2026 Hardware Store 99.99",
			wantDate: "2026-02-10",
			wantAmt:  "99.99",
			wantDesc: "Hardware Store",
			wantType: TypeExpense,
			ok:       true,
		},
		{
			name:     "dollar sign and separators",
			line:     "2026-02-10 Rent Payment $1,200.00",
			wantDate: "2026-02-10",
			wantAmt:  "1200",
			wantDesc: "Rent Payment",
			wantType: TypeExpense,
			ok:       true,
		},
		{name: "no leading date", line: "Coffee Shop 4.50", ok: false},
		{name: "no amount token", line: "2026-02-10 Opening balance notice", ok: false},
		{name: "amount glued to word chars", line: "2026-02-10 Coffee REF4.50X", ok: false},
		{name: "description too short", line: "2026-02-10 X 4.50", ok: false},
		{name: "impossible date", line: "13/45/2026 Coffee Shop 4.50", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, ok := parseStatementLine(tt.line)
			require.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.wantDate, row.Date.String())
			assert.Equal(t, tt.wantAmt, row.Amount.String())
			assert.Equal(t, tt.wantDesc, row.Description.String())
			assert.Equal(t, tt.wantType, row.ExpenseType.String())
			assert.Equal(t, "USD", row.Currency.String())
		})
	}
}

func TestParseStatementLinesDedup(t *testing.T) {
	text := "ACME BANK STATEMENT\n" +
		"2026-02-10   Coffee Shop   -4.50\n" +
		"2026-02-10 Coffee Shop -4.50\n" +
		"2026-02-11 Payroll Deposit 2500.00\n" +
		"\n" +
		"Closing balance 3200.00"

	rows := parseStatementLines(text)
	require.Len(t, rows, 2)
	assert.Equal(t, "Coffee Shop", rows[0].Description.String())
	assert.Equal(t, "Payroll Deposit", rows[1].Description.String())
}

func TestFindAmountTokens(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single trailing", "Coffee Shop -4.50", []string{"-4.50"}},
		{"multiple tokens", "Check 102 55.20", []string{"102", "55.20"}},
		{"parenthesized", "Gym (45.00)", []string{"(45.00)"}},
		{"glued prefix rejected", "REF4.50", nil},
		{"boundary shrink keeps valid token", "total 12.00)", []string{"12.00)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, span := range findAmountTokens(tt.in) {
				got = append(got, tt.in[span[0]:span[1]])
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHeuristicRowsSurviveNormalization(t *testing.T) {
	rows := parseStatementLines("2026-02-10 Coffee Shop -4.50\n2026-02-11 Payroll Deposit 2500.00")
	normalized := Normalize(rows)
	require.Len(t, normalized, 2)
	assert.Equal(t, 4.50, normalized[0].Amount)
	assert.Equal(t, TypeExpense, normalized[0].ExpenseType)
	assert.Equal(t, 2500.00, normalized[1].Amount)
	assert.Equal(t, TypeIncome, normalized[1].ExpenseType)
}
