package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/ledgerfix/internal/ledger"
	"github.com/odyssey-erp/ledgerfix/internal/platform/db"
)

// Factory finds accounts by owner, name and type and creates them when absent.
type Factory struct {
	db     *db.DB
	logger *slog.Logger
}

// NewFactory constructs a factory backed by the pool.
func NewFactory(conn *db.DB, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{db: conn, logger: logger}
}

// FindOrCreate returns the oldest live account matching (owner, name, type),
// creating it when none exists. Calling it twice yields the same account.
func (f *Factory) FindOrCreate(ctx context.Context, ownerID int64, name string, t ledger.AccountType) (ledger.Account, error) {
	if f == nil || f.db == nil {
		return ledger.Account{}, errors.New("accounts: factory not configured")
	}
	var account ledger.Account
	err := db.WithTx(ctx, f.db, func(q db.Querier) error {
		repo := ledger.NewRepository(q)
		found, err := repo.FindAccount(ctx, ownerID, name, t)
		if err == nil {
			account = found
			return nil
		}
		if !errors.Is(err, ledger.ErrAccountNotFound) {
			return err
		}
		created, err := repo.CreateAccount(ctx, ownerID, name, t)
		if err != nil {
			return err
		}
		f.logger.Debug("created account",
			slog.Int64("account_id", created.ID),
			slog.Int64("user_id", ownerID),
			slog.String("name", name),
			slog.String("type", string(t)),
		)
		account = created
		return nil
	})
	if err != nil && db.IsUniqueViolation(err) {
		// another writer created it between our lookup and insert
		return ledger.NewRepository(f.db).FindAccount(ctx, ownerID, name, t)
	}
	if err != nil {
		return ledger.Account{}, fmt.Errorf("accounts: find or create %q: %w", name, err)
	}
	return account, nil
}
