// Package ledgertest provisions an in-memory SQLite ledger for tests.
package ledgertest

import (
	"context"
	"testing"

	"github.com/odyssey-erp/ledgerfix/internal/ledger"
	"github.com/odyssey-erp/ledgerfix/internal/platform/db"
)

var journalTypes = []ledger.JournalType{
	ledger.JournalWithdrawal,
	ledger.JournalDeposit,
	ledger.JournalTransfer,
	ledger.JournalOpeningBalance,
	ledger.JournalReconciliation,
	ledger.JournalLiabilityCredit,
	ledger.JournalInvalid,
}

var accountTypes = []ledger.AccountType{
	ledger.AccountDefault,
	ledger.AccountCash,
	ledger.AccountAsset,
	ledger.AccountExpense,
	ledger.AccountRevenue,
	ledger.AccountInitialBalance,
	ledger.AccountBeneficiary,
	ledger.AccountImport,
	ledger.AccountReconciliation,
	ledger.AccountLoan,
	ledger.AccountDebt,
	ledger.AccountMortgage,
	ledger.AccountLiabilityCredit,
}

// Amount columns are TEXT so the stored representation survives verbatim.
const schema = `
CREATE TABLE transaction_types (id INTEGER PRIMARY KEY, type TEXT NOT NULL UNIQUE);
CREATE TABLE account_types (id INTEGER PRIMARY KEY, type TEXT NOT NULL UNIQUE);
CREATE TABLE accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	account_type_id INTEGER NOT NULL REFERENCES account_types(id),
	name TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	virtual_balance TEXT,
	created_at TEXT,
	updated_at TEXT,
	deleted_at TEXT
);
CREATE TABLE account_meta (id INTEGER PRIMARY KEY AUTOINCREMENT, account_id INTEGER NOT NULL, name TEXT NOT NULL, data TEXT NOT NULL);
CREATE TABLE transaction_currencies (
	id INTEGER PRIMARY KEY,
	code TEXT NOT NULL,
	name TEXT NOT NULL,
	decimal_places INTEGER NOT NULL,
	enabled INTEGER NOT NULL DEFAULT 1,
	deleted_at TEXT
);
CREATE TABLE transaction_journals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	transaction_type_id INTEGER NOT NULL REFERENCES transaction_types(id),
	description TEXT,
	created_at TEXT,
	updated_at TEXT,
	deleted_at TEXT
);
CREATE TABLE transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	transaction_journal_id INTEGER NOT NULL,
	account_id INTEGER NOT NULL,
	amount TEXT NOT NULL,
	foreign_amount TEXT,
	transaction_currency_id INTEGER,
	foreign_currency_id INTEGER,
	created_at TEXT,
	updated_at TEXT,
	deleted_at TEXT
);
CREATE TABLE auto_budgets (id INTEGER PRIMARY KEY AUTOINCREMENT, transaction_currency_id INTEGER, amount TEXT);
CREATE TABLE available_budgets (id INTEGER PRIMARY KEY AUTOINCREMENT, transaction_currency_id INTEGER, amount TEXT);
CREATE TABLE bills (id INTEGER PRIMARY KEY AUTOINCREMENT, transaction_currency_id INTEGER, amount_min TEXT, amount_max TEXT);
CREATE TABLE budget_limits (id INTEGER PRIMARY KEY AUTOINCREMENT, transaction_currency_id INTEGER, amount TEXT);
CREATE TABLE recurrences_transactions (id INTEGER PRIMARY KEY AUTOINCREMENT, transaction_currency_id INTEGER, amount TEXT, foreign_amount TEXT);
CREATE TABLE piggy_banks (id INTEGER PRIMARY KEY AUTOINCREMENT, account_id INTEGER NOT NULL, targetamount TEXT);
CREATE TABLE piggy_bank_repetitions (id INTEGER PRIMARY KEY AUTOINCREMENT, piggy_bank_id INTEGER NOT NULL, currentamount TEXT);
CREATE TABLE piggy_bank_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	piggy_bank_id INTEGER NOT NULL,
	transaction_journal_id INTEGER,
	amount TEXT,
	updated_at TEXT
);
CREATE TABLE currency_exchange_rates (id INTEGER PRIMARY KEY AUTOINCREMENT, rate TEXT, user_rate TEXT);
CREATE TABLE limit_repetitions (id INTEGER PRIMARY KEY AUTOINCREMENT, amount TEXT);
`

// Open returns a fresh in-memory ledger with the lookup tables seeded.
func Open(t *testing.T) *db.DB {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	Exec(t, conn, schema)
	for i, jt := range journalTypes {
		Exec(t, conn, `INSERT INTO transaction_types (id, type) VALUES (?, ?)`, i+1, string(jt))
	}
	for i, at := range accountTypes {
		Exec(t, conn, `INSERT INTO account_types (id, type) VALUES (?, ?)`, i+1, string(at))
	}
	return conn
}

// Exec runs a statement and fails the test on error.
func Exec(t *testing.T, conn *db.DB, query string, args ...any) int64 {
	t.Helper()
	res, err := conn.ExecContext(context.Background(), query, args...)
	if err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
	id, _ := res.LastInsertId()
	return id
}

// AccountTypeID returns the seeded id of an account type.
func AccountTypeID(t ledger.AccountType) int64 {
	for i, at := range accountTypes {
		if at == t {
			return int64(i + 1)
		}
	}
	return 0
}

// JournalTypeID returns the seeded id of a journal type.
func JournalTypeID(t ledger.JournalType) int64 {
	for i, jt := range journalTypes {
		if jt == t {
			return int64(i + 1)
		}
	}
	return 0
}

// Account inserts an account and returns its id.
func Account(t *testing.T, conn *db.DB, userID int64, name string, typ ledger.AccountType) int64 {
	t.Helper()
	return Exec(t, conn, `INSERT INTO accounts (user_id, account_type_id, name) VALUES (?, ?, ?)`, userID, AccountTypeID(typ), name)
}

// Leg describes one transaction row for Journal.
type Leg struct {
	AccountID int64
	Amount    string
}

// Journal inserts a journal with the given legs and returns its id.
func Journal(t *testing.T, conn *db.DB, userID int64, typ ledger.JournalType, legs ...Leg) int64 {
	t.Helper()
	id := Exec(t, conn, `INSERT INTO transaction_journals (user_id, transaction_type_id, description) VALUES (?, ?, ?)`, userID, JournalTypeID(typ), "test")
	for _, leg := range legs {
		Exec(t, conn, `INSERT INTO transactions (transaction_journal_id, account_id, amount) VALUES (?, ?, ?)`, id, leg.AccountID, leg.Amount)
	}
	return id
}
