package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ledgerfix/internal/ledger"
)

func TestDefaultTableVerdicts(t *testing.T) {
	exp := Default()

	cases := []struct {
		journal ledger.JournalType
		source  ledger.AccountType
		dest    ledger.AccountType
		want    Verdict
	}{
		{ledger.JournalWithdrawal, ledger.AccountAsset, ledger.AccountExpense, Allowed},
		{ledger.JournalWithdrawal, ledger.AccountAsset, ledger.AccountLoan, Allowed},
		{ledger.JournalWithdrawal, ledger.AccountAsset, ledger.AccountRevenue, UnexpectedDestination},
		{ledger.JournalDeposit, ledger.AccountExpense, ledger.AccountAsset, UnexpectedSource},
		{ledger.JournalDeposit, ledger.AccountLoan, ledger.AccountAsset, Allowed},
		{ledger.JournalTransfer, ledger.AccountAsset, ledger.AccountMortgage, UnexpectedDestination},
		{ledger.JournalTransfer, ledger.AccountDebt, ledger.AccountAsset, UnexpectedDestination},
		{ledger.JournalType("Split"), ledger.AccountAsset, ledger.AccountAsset, UnknownJournalType},
	}
	for _, tc := range cases {
		got := exp.Check(tc.journal, tc.source, tc.dest)
		require.Equal(t, tc.want, got, "%s %s -> %s", tc.journal, tc.source, tc.dest)
	}
}

func TestViolation(t *testing.T) {
	require.False(t, Allowed.Violation())
	require.False(t, UnknownJournalType.Violation())
	require.True(t, UnexpectedSource.Violation())
	require.True(t, UnexpectedDestination.Violation())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	doc := "source_dests:\n  Withdrawal:\n    Asset account: [Expense account]\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	exp, err := Load(path)
	require.NoError(t, err)
	require.Len(t, exp, 1)
	require.Equal(t, Allowed, exp.Check(ledger.JournalWithdrawal, ledger.AccountAsset, ledger.AccountExpense))
	require.Equal(t, UnknownJournalType, exp.Check(ledger.JournalDeposit, ledger.AccountRevenue, ledger.AccountAsset))
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	exp, err := Load("")
	require.NoError(t, err)
	require.Contains(t, exp, ledger.JournalTransfer)
}

func TestParseRejectsEmptyDocument(t *testing.T) {
	_, err := Parse([]byte("other: 1\n"))
	require.Error(t, err)
}
