package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ledgerfix/internal/ledger"
	"github.com/odyssey-erp/ledgerfix/internal/ledger/ledgertest"
)

func TestListJournalsGroupsLegs(t *testing.T) {
	conn := ledgertest.Open(t)
	asset := ledgertest.Account(t, conn, 1, "Checking", ledger.AccountAsset)
	shop := ledgertest.Account(t, conn, 1, "Shop", ledger.AccountExpense)
	first := ledgertest.Journal(t, conn, 1, ledger.JournalWithdrawal,
		ledgertest.Leg{AccountID: asset, Amount: "-10.00"},
		ledgertest.Leg{AccountID: shop, Amount: "10.00"},
	)
	second := ledgertest.Journal(t, conn, 1, ledger.JournalWithdrawal,
		ledgertest.Leg{AccountID: asset, Amount: "-5.00"},
	)
	deleted := ledgertest.Journal(t, conn, 1, ledger.JournalWithdrawal)
	ledgertest.Exec(t, conn, `UPDATE transaction_journals SET deleted_at = '2024-01-01' WHERE id = ?`, deleted)

	repo := ledger.NewRepository(conn)
	journals, err := repo.ListJournals(context.Background())
	require.NoError(t, err)
	require.Len(t, journals, 2)

	require.Equal(t, first, journals[0].ID)
	require.Equal(t, ledger.JournalWithdrawal, journals[0].Type)
	require.Len(t, journals[0].Legs, 2)
	src, ok := journals[0].Source()
	require.True(t, ok)
	require.Equal(t, "Checking", src.Account.Name)
	require.Equal(t, ledger.AccountAsset, src.Account.Type)
	dst, ok := journals[0].Destination()
	require.True(t, ok)
	require.Equal(t, ledger.AccountExpense, dst.Account.Type)

	require.Equal(t, second, journals[1].ID)
	require.Len(t, journals[1].Legs, 1)
}

func TestSetJournalTypeAndTransactionAccount(t *testing.T) {
	ctx := context.Background()
	conn := ledgertest.Open(t)
	asset := ledgertest.Account(t, conn, 1, "Checking", ledger.AccountAsset)
	loan := ledgertest.Account(t, conn, 1, "Car loan", ledger.AccountLoan)
	other := ledgertest.Account(t, conn, 1, "Savings", ledger.AccountAsset)
	id := ledgertest.Journal(t, conn, 1, ledger.JournalTransfer,
		ledgertest.Leg{AccountID: asset, Amount: "-100"},
		ledgertest.Leg{AccountID: loan, Amount: "100"},
	)

	repo := ledger.NewRepository(conn)
	require.NoError(t, repo.SetJournalType(ctx, id, ledger.JournalWithdrawal))

	journal, err := repo.GetJournal(ctx, id)
	require.NoError(t, err)
	require.Equal(t, ledger.JournalWithdrawal, journal.Type)

	src, _ := journal.Source()
	require.NoError(t, repo.SetTransactionAccount(ctx, src.TransactionID, other))
	journal, err = repo.GetJournal(ctx, id)
	require.NoError(t, err)
	src, _ = journal.Source()
	require.Equal(t, other, src.Account.ID)

	require.ErrorIs(t, repo.SetJournalType(ctx, id, ledger.JournalType("Nope")), ledger.ErrUnknownJournalType)
	_, err = repo.GetJournal(ctx, 999)
	require.ErrorIs(t, err, ledger.ErrJournalNotFound)
}

func TestFindAndCreateAccount(t *testing.T) {
	ctx := context.Background()
	conn := ledgertest.Open(t)
	repo := ledger.NewRepository(conn)

	_, err := repo.FindAccount(ctx, 1, "Groceries", ledger.AccountExpense)
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)

	created, err := repo.CreateAccount(ctx, 1, "Groceries", ledger.AccountExpense)
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	found, err := repo.FindAccount(ctx, 1, "Groceries", ledger.AccountExpense)
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = repo.FindAccount(ctx, 2, "Groceries", ledger.AccountExpense)
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestEnabledCurrencies(t *testing.T) {
	conn := ledgertest.Open(t)
	ledgertest.Exec(t, conn, `INSERT INTO transaction_currencies (id, code, name, decimal_places, enabled) VALUES (1, 'EUR', 'Euro', 2, 1), (2, 'JPY', 'Yen', 0, 0), (3, 'BTC', 'Bitcoin', 8, 1)`)

	currencies, err := ledger.NewRepository(conn).EnabledCurrencies(context.Background())
	require.NoError(t, err)
	require.Len(t, currencies, 2)
	require.Equal(t, "EUR", currencies[0].Code)
	require.Equal(t, 8, currencies[1].DecimalPlaces)
}

func TestStalePiggyBankEvents(t *testing.T) {
	ctx := context.Background()
	conn := ledgertest.Open(t)
	live := ledgertest.Journal(t, conn, 1, ledger.JournalTransfer)
	gone := ledgertest.Journal(t, conn, 1, ledger.JournalTransfer)
	ledgertest.Exec(t, conn, `UPDATE transaction_journals SET deleted_at = '2024-01-01' WHERE id = ?`, gone)
	ledgertest.Exec(t, conn, `INSERT INTO piggy_bank_events (id, piggy_bank_id, transaction_journal_id, amount) VALUES (1, 1, ?, '5'), (2, 1, ?, '5'), (3, 1, 4242, '5'), (4, 1, NULL, '5')`, live, gone)

	repo := ledger.NewRepository(conn)
	events, err := repo.StalePiggyBankEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, int64(2), events[0].ID)
	require.Equal(t, int64(3), events[1].ID)
	require.NotNil(t, events[1].JournalID)
	require.Equal(t, int64(4242), *events[1].JournalID)

	require.NoError(t, repo.ClearPiggyBankEventJournal(ctx, 3))
	events, err = repo.StalePiggyBankEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
}
