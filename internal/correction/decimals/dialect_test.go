package decimals

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ledgerfix/internal/platform/db"
)

func TestDialectSQL(t *testing.T) {
	cases := []struct {
		driver  db.Driver
		cast    string
		pred    string
		pattern string
		widen   string
	}{
		{
			driver:  db.DriverPostgres,
			cast:    "CAST(t.amount AS TEXT)",
			pred:    "CAST(t.amount AS TEXT) SIMILAR TO ?",
			pattern: `%\.[0-9]{2}[1-9]+%`,
			widen:   "ALTER TABLE bills ALTER COLUMN amount_min TYPE DECIMAL(32,12)",
		},
		{
			driver:  db.DriverMySQL,
			cast:    "CAST(t.amount AS CHAR)",
			pred:    "CAST(t.amount AS CHAR) REGEXP ?",
			pattern: `\.[0-9]{2}[1-9]+`,
			widen:   "ALTER TABLE bills CHANGE COLUMN amount_min amount_min DECIMAL(32, 12)",
		},
	}
	for _, tc := range cases {
		t.Run(string(tc.driver), func(t *testing.T) {
			d, ok := DialectFor(tc.driver)
			require.True(t, ok)
			require.Equal(t, string(tc.driver), d.Name())

			cast := d.CastText("t.amount")
			require.Equal(t, tc.cast, cast)
			pred, pattern := d.DetectPrecisionViolation(cast, 2)
			require.Equal(t, tc.pred, pred)
			require.Equal(t, tc.pattern, pattern)

			stmt, err := d.WidenColumn("bills", "amount_min")
			require.NoError(t, err)
			require.Equal(t, tc.widen, stmt)
		})
	}
}

func TestSQLiteDialectCannotWiden(t *testing.T) {
	d, ok := DialectFor(db.DriverSQLite)
	require.True(t, ok)
	pred, pattern := d.DetectPrecisionViolation(d.CastText("t.amount"), 0)
	require.Equal(t, "CAST(t.amount AS TEXT) REGEXP ?", pred)
	require.Equal(t, `\.[0-9]{0}[1-9]+`, pattern)

	_, err := d.WidenColumn("bills", "amount_min")
	require.ErrorIs(t, err, ErrWidenUnsupported)
}

func TestDialectForUnknownDriver(t *testing.T) {
	_, ok := DialectFor(db.Driver("oracle"))
	require.False(t, ok)
}

func TestRegistrySource(t *testing.T) {
	byName := map[string]TableKind{}
	for _, table := range Registry() {
		byName[table.Name] = table
	}
	require.Len(t, byName, 12)

	from, args, err := byName["piggy_bank_events"].source(4, "amount")
	require.NoError(t, err)
	require.Equal(t, `piggy_bank_events t JOIN piggy_banks p ON p.id = t.piggy_bank_id JOIN account_meta m ON m.account_id = p.account_id WHERE m.name = ? AND m.data = ?`, from)
	require.Equal(t, []any{"currency_id", `"4"`}, args)

	from, args, err = byName["transactions"].source(4, "foreign_amount")
	require.NoError(t, err)
	require.Equal(t, `transactions t WHERE t.foreign_currency_id = ?`, from)
	require.Equal(t, []any{int64(4)}, args)

	_, _, err = byName["transactions"].source(4, "fee")
	require.ErrorIs(t, err, ErrUnknownTable)

	_, _, err = TableKind{Name: "mystery"}.source(4, "amount")
	require.ErrorIs(t, err, ErrUnknownTable)
}
