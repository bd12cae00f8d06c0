package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledgerfix/internal/platform/db"
)

const journalSelect = `SELECT j.id, j.user_id, tt.type, t.id, t.amount, a.id, a.user_id, a.name, act.type
FROM transaction_journals j
JOIN transaction_types tt ON tt.id = j.transaction_type_id
LEFT JOIN transactions t ON t.transaction_journal_id = j.id AND t.deleted_at IS NULL
LEFT JOIN accounts a ON a.id = t.account_id
LEFT JOIN account_types act ON act.id = a.account_type_id
WHERE j.deleted_at IS NULL`

// Repository encapsulates the ledger queries used by the correction jobs.
type Repository struct {
	q   db.Querier
	now func() time.Time
}

// NewRepository binds the repository to a pool or transaction.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q, now: func() time.Time { return time.Now().UTC() }}
}

// ListJournals loads every live journal with its live legs, ordered by id.
func (r *Repository) ListJournals(ctx context.Context) ([]Journal, error) {
	return r.queryJournals(ctx, journalSelect+` ORDER BY j.id, t.id`)
}

// GetJournal reloads a single journal.
func (r *Repository) GetJournal(ctx context.Context, id int64) (Journal, error) {
	journals, err := r.queryJournals(ctx, journalSelect+` AND j.id = ? ORDER BY t.id`, id)
	if err != nil {
		return Journal{}, err
	}
	if len(journals) == 0 {
		return Journal{}, ErrJournalNotFound
	}
	return journals[0], nil
}

func (r *Repository) queryJournals(ctx context.Context, query string, args ...any) ([]Journal, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: query journals: %w", err)
	}
	defer rows.Close()

	var journals []Journal
	for rows.Next() {
		var (
			journalID, userID int64
			journalType       string
			txID              sql.NullInt64
			amount            decimal.NullDecimal
			accountID         sql.NullInt64
			accountUser       sql.NullInt64
			accountName       sql.NullString
			accountType       sql.NullString
		)
		if err := rows.Scan(&journalID, &userID, &journalType, &txID, &amount, &accountID, &accountUser, &accountName, &accountType); err != nil {
			return nil, fmt.Errorf("ledger: scan journal: %w", err)
		}
		if len(journals) == 0 || journals[len(journals)-1].ID != journalID {
			journals = append(journals, Journal{ID: journalID, UserID: userID, Type: JournalType(journalType)})
		}
		if !txID.Valid {
			continue
		}
		current := &journals[len(journals)-1]
		current.Legs = append(current.Legs, Leg{
			TransactionID: txID.Int64,
			Amount:        amount.Decimal,
			Account: Account{
				ID:     accountID.Int64,
				UserID: accountUser.Int64,
				Name:   accountName.String,
				Type:   AccountType(accountType.String),
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterate journals: %w", err)
	}
	return journals, nil
}

// SetJournalType reclassifies a journal.
func (r *Repository) SetJournalType(ctx context.Context, journalID int64, t JournalType) error {
	var typeID int64
	err := r.q.GetContext(ctx, &typeID, `SELECT id FROM transaction_types WHERE type = ?`, string(t))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrUnknownJournalType, t)
	}
	if err != nil {
		return fmt.Errorf("ledger: lookup journal type: %w", err)
	}
	res, err := r.q.ExecContext(ctx, `UPDATE transaction_journals SET transaction_type_id = ?, updated_at = ? WHERE id = ?`, typeID, r.now(), journalID)
	if err != nil {
		return fmt.Errorf("ledger: update journal type: %w", err)
	}
	return expectOneRow(res, ErrJournalNotFound)
}

// SetTransactionAccount repoints a leg to another account.
func (r *Repository) SetTransactionAccount(ctx context.Context, transactionID, accountID int64) error {
	res, err := r.q.ExecContext(ctx, `UPDATE transactions SET account_id = ?, updated_at = ? WHERE id = ?`, accountID, r.now(), transactionID)
	if err != nil {
		return fmt.Errorf("ledger: update transaction account: %w", err)
	}
	return expectOneRow(res, fmt.Errorf("ledger: transaction %d not found", transactionID))
}

// FindAccount looks up a live account by owner, name and type.
func (r *Repository) FindAccount(ctx context.Context, userID int64, name string, t AccountType) (Account, error) {
	var row struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}
	err := r.q.GetContext(ctx, &row, `SELECT a.id, a.name FROM accounts a
JOIN account_types act ON act.id = a.account_type_id
WHERE a.user_id = ? AND a.name = ? AND act.type = ? AND a.deleted_at IS NULL
ORDER BY a.id LIMIT 1`, userID, name, string(t))
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("ledger: find account: %w", err)
	}
	return Account{ID: row.ID, UserID: userID, Name: row.Name, Type: t}, nil
}

// CreateAccount inserts an active account of the given type.
func (r *Repository) CreateAccount(ctx context.Context, userID int64, name string, t AccountType) (Account, error) {
	var typeID int64
	err := r.q.GetContext(ctx, &typeID, `SELECT id FROM account_types WHERE type = ?`, string(t))
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, fmt.Errorf("%w: %s", ErrUnknownAccountType, t)
	}
	if err != nil {
		return Account{}, fmt.Errorf("ledger: lookup account type: %w", err)
	}

	now := r.now()
	account := Account{UserID: userID, Name: name, Type: t}
	const insert = `INSERT INTO accounts (user_id, account_type_id, name, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	if r.q.Driver() == db.DriverPostgres {
		err = r.q.QueryRowContext(ctx, insert+` RETURNING id`, userID, typeID, name, true, now, now).Scan(&account.ID)
		if err != nil {
			return Account{}, fmt.Errorf("ledger: insert account: %w", err)
		}
		return account, nil
	}
	res, err := r.q.ExecContext(ctx, insert, userID, typeID, name, true, now, now)
	if err != nil {
		return Account{}, fmt.Errorf("ledger: insert account: %w", err)
	}
	if account.ID, err = res.LastInsertId(); err != nil {
		return Account{}, fmt.Errorf("ledger: account id: %w", err)
	}
	return account, nil
}

type currencyRow struct {
	ID            int64  `db:"id"`
	Code          string `db:"code"`
	Name          string `db:"name"`
	DecimalPlaces int    `db:"decimal_places"`
}

// EnabledCurrencies lists the currencies flagged enabled.
func (r *Repository) EnabledCurrencies(ctx context.Context) ([]Currency, error) {
	var rows []currencyRow
	err := r.q.SelectContext(ctx, &rows, `SELECT id, code, name, decimal_places FROM transaction_currencies WHERE enabled = ? AND deleted_at IS NULL ORDER BY id`, true)
	if err != nil {
		return nil, fmt.Errorf("ledger: query currencies: %w", err)
	}
	currencies := make([]Currency, 0, len(rows))
	for _, row := range rows {
		currencies = append(currencies, Currency{
			ID:            row.ID,
			Code:          row.Code,
			Name:          row.Name,
			DecimalPlaces: row.DecimalPlaces,
			Enabled:       true,
		})
	}
	return currencies, nil
}

type piggyBankEventRow struct {
	ID          int64         `db:"id"`
	PiggyBankID int64         `db:"piggy_bank_id"`
	JournalID   sql.NullInt64 `db:"transaction_journal_id"`
}

// StalePiggyBankEvents returns events whose journal reference no longer
// resolves to a live journal.
func (r *Repository) StalePiggyBankEvents(ctx context.Context) ([]PiggyBankEvent, error) {
	var rows []piggyBankEventRow
	err := r.q.SelectContext(ctx, &rows, `SELECT e.id, e.piggy_bank_id, e.transaction_journal_id
FROM piggy_bank_events e
LEFT JOIN transaction_journals j ON j.id = e.transaction_journal_id
WHERE e.transaction_journal_id IS NOT NULL AND (j.id IS NULL OR j.deleted_at IS NOT NULL)
ORDER BY e.id`)
	if err != nil {
		return nil, fmt.Errorf("ledger: query piggy bank events: %w", err)
	}
	events := make([]PiggyBankEvent, 0, len(rows))
	for _, row := range rows {
		ev := PiggyBankEvent{ID: row.ID, PiggyBankID: row.PiggyBankID}
		if row.JournalID.Valid {
			id := row.JournalID.Int64
			ev.JournalID = &id
		}
		events = append(events, ev)
	}
	return events, nil
}

// ClearPiggyBankEventJournal nulls the journal reference of an event.
func (r *Repository) ClearPiggyBankEventJournal(ctx context.Context, eventID int64) error {
	res, err := r.q.ExecContext(ctx, `UPDATE piggy_bank_events SET transaction_journal_id = NULL, updated_at = ? WHERE id = ?`, r.now(), eventID)
	if err != nil {
		return fmt.Errorf("ledger: clear piggy bank event journal: %w", err)
	}
	return expectOneRow(res, fmt.Errorf("ledger: piggy bank event %d not found", eventID))
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil
	}
	if n == 0 {
		return notFound
	}
	return nil
}
