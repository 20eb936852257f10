// Package statements implements the bank-statement import pipeline: format
// routing, CSV and PDF text extraction, model-assisted and heuristic row
// extraction, and normalization into canonical transactions.
package statements

import (
	"bytes"
	"encoding/json"
)

// FlexString decodes a JSON string, number, or null into a plain string.
// Model output and client-supplied raw rows are loosely typed; amounts in
// particular arrive as either "10.50" or 10.50.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	// Numbers keep their literal text so "10.50" survives untouched.
	// Anything else becomes raw text and is dropped by the normalizer.
	*f = FlexString(trimmed)
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// RawRow is unvalidated transaction-like data produced by any extractor.
// Every field is attacker/user-controlled input; no invariants hold until
// the row passes through Normalize.
type RawRow struct {
	Date        FlexString `json:"date"`
	Amount      FlexString `json:"amount"`
	Description FlexString `json:"description"`
	CategoryID  FlexString `json:"category_id"`
	Currency    FlexString `json:"currency"`
	ExpenseType FlexString `json:"expense_type,omitempty"`
}

// Transaction is the canonical output unit: validated, non-negative amount,
// ISO date, ready for duplicate screening and persistence.
type Transaction struct {
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	AmountCents int64   `json:"-"`
	Description string  `json:"description"`
	CategoryID  *int64  `json:"category_id"`
	ExpenseType string  `json:"expense_type"`
	Currency    string  `json:"currency"`
}

// Expense type values shared across the pipeline and the ledger.
const (
	TypeExpense = "EXPENSE"
	TypeIncome  = "INCOME"
)
