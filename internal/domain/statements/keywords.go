package statements

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/shopspring/decimal"
)

// incomeKeywords classify a positive-amount row as INCOME when any of them
// appears in the uppercased description.
var incomeKeywords = []string{
	"SALARY",
	"PAYROLL",
	"REFUND",
	"INTEREST",
	"DIVIDEND",
	"CREDIT",
}

var incomeMatcher = ahocorasick.NewStringMatcher(incomeKeywords)

// inferExpenseType resolves the row type. An explicit INCOME/EXPENSE wins;
// negative amounts are always expenses; otherwise income keywords decide.
func inferExpenseType(rawType, description string, amount decimal.Decimal) string {
	t := strings.ToUpper(strings.TrimSpace(rawType))
	if t == TypeIncome || t == TypeExpense {
		return t
	}
	if amount.IsNegative() {
		return TypeExpense
	}
	if len(incomeMatcher.Match([]byte(strings.ToUpper(description)))) > 0 {
		return TypeIncome
	}
	return TypeExpense
}
