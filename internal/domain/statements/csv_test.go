package statements

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSVRows(t *testing.T) {
	t.Run("canonical headers", func(t *testing.T) {
		data := []byte("date,amount,description,category_id\n2026-02-10,10.50,Coffee,5\n")
		rows, err := parseCSVRows(data)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "2026-02-10", rows[0].Date.String())
		assert.Equal(t, "10.50", rows[0].Amount.String())
		assert.Equal(t, "Coffee", rows[0].Description.String())
		assert.Equal(t, "5", rows[0].CategoryID.String())
		assert.Equal(t, "USD", rows[0].Currency.String())
	})

	t.Run("alias headers", func(t *testing.T) {
		data := []byte("spent_at,amount,notes,currency\n2026-02-10,3.00,Bus ticket,EUR\n")
		rows, err := parseCSVRows(data)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "2026-02-10", rows[0].Date.String())
		assert.Equal(t, "Bus ticket", rows[0].Description.String())
		assert.Equal(t, "EUR", rows[0].Currency.String())
	})

	t.Run("byte order mark tolerated", func(t *testing.T) {
		data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("date,amount,description\n2026-02-10,1.00,Snack\n")...)
		rows, err := parseCSVRows(data)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "2026-02-10", rows[0].Date.String())
	})

	t.Run("missing columns yield absent fields", func(t *testing.T) {
		data := []byte("date,amount\n2026-02-10,1.00\nbad-date,\n")
		rows, err := parseCSVRows(data)
		require.NoError(t, err)
		require.Len(t, rows, 2, "no row is rejected at extraction time")
		assert.Equal(t, "", rows[0].Description.String())
		assert.Equal(t, "", rows[1].Amount.String())
	})

	t.Run("rows keep file order", func(t *testing.T) {
		data := []byte("date,amount,description\n2026-02-12,3,c\n2026-02-10,1,a\n2026-02-11,2,b\n")
		rows, err := parseCSVRows(data)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "c", rows[0].Description.String())
		assert.Equal(t, "a", rows[1].Description.String())
		assert.Equal(t, "b", rows[2].Description.String())
	})
}

func TestCSVRoundTripNormalization(t *testing.T) {
	data := []byte("date,amount,description,category_id\n2026-02-10,10.50,Coffee,5\n")
	rows, err := parseCSVRows(data)
	require.NoError(t, err)

	out := Normalize(rows)
	require.Len(t, out, 1)
	tx := out[0]
	assert.Equal(t, "2026-02-10", tx.Date)
	assert.Equal(t, 10.50, tx.Amount)
	assert.Equal(t, "Coffee", tx.Description)
	require.NotNil(t, tx.CategoryID)
	assert.Equal(t, int64(5), *tx.CategoryID)
	assert.Equal(t, "USD", tx.Currency)
	assert.Equal(t, TypeExpense, tx.ExpenseType)
}
