// Package accounttypes checks that every journal's type agrees with the
// account types of its source and destination legs and repairs the known
// mismatches.
package accounttypes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/ledgerfix/internal/correction"
	"github.com/odyssey-erp/ledgerfix/internal/ledger"
	"github.com/odyssey-erp/ledgerfix/internal/ledger/policy"
)

// DefaultMaxPasses bounds how often one journal is repaired and re-checked.
const DefaultMaxPasses = 5

// Repository is the slice of the ledger store the fixer needs.
type Repository interface {
	ListJournals(ctx context.Context) ([]ledger.Journal, error)
	GetJournal(ctx context.Context, id int64) (ledger.Journal, error)
	SetJournalType(ctx context.Context, journalID int64, t ledger.JournalType) error
	SetTransactionAccount(ctx context.Context, transactionID, accountID int64) error
}

// AccountFactory finds or creates an account for an owner.
type AccountFactory interface {
	FindOrCreate(ctx context.Context, ownerID int64, name string, t ledger.AccountType) (ledger.Account, error)
}

// Config wires the fixer's collaborators.
type Config struct {
	Repo      Repository
	Accounts  AccountFactory
	Expected  policy.Expectations
	Logger    *slog.Logger
	Output    io.Writer
	MaxPasses int
}

// Result summarises one run.
type Result struct {
	Inspected int
	Fixed     int
	Unfixable int
	Messages  []string
}

// Fixer is the journal type / account type corrector.
type Fixer struct {
	repo      Repository
	accounts  AccountFactory
	expected  policy.Expectations
	logger    *slog.Logger
	output    io.Writer
	maxPasses int
}

// NewFixer validates the configuration and returns a fixer.
func NewFixer(cfg Config) (*Fixer, error) {
	if cfg.Repo == nil {
		return nil, errors.New("accounttypes: repository required")
	}
	if cfg.Accounts == nil {
		return nil, errors.New("accounttypes: account factory required")
	}
	if len(cfg.Expected) == 0 {
		return nil, errors.New("accounttypes: expectation table required")
	}
	if cfg.MaxPasses <= 0 {
		cfg.MaxPasses = DefaultMaxPasses
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Fixer{
		repo:      cfg.Repo,
		accounts:  cfg.Accounts,
		expected:  cfg.Expected,
		logger:    logger.With(slog.String("job", "fix_account_types")),
		output:    cfg.Output,
		maxPasses: cfg.MaxPasses,
	}, nil
}

type run struct {
	*Fixer
	console *correction.Console
	result  Result
}

// Run inspects every journal once. Only a failure to list journals aborts the
// run; per-journal errors are reported and skipped.
func (f *Fixer) Run(ctx context.Context) (Result, error) {
	r := &run{Fixer: f, console: correction.NewConsole(f.output)}
	journals, err := f.repo.ListJournals(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("accounttypes: list journals: %w", err)
	}
	for _, journal := range journals {
		if err := ctx.Err(); err != nil {
			return r.finish(), err
		}
		r.result.Inspected++
		if err := r.inspect(ctx, journal); err != nil {
			r.logger.Error("inspect journal", slog.Int64("journal_id", journal.ID), slog.Any("error", err))
			r.console.Error("Could not correct transaction journal #%d: %v", journal.ID, err)
		}
	}
	if r.result.Fixed == 0 {
		r.console.Line("Correct: all account types are OK")
	} else {
		r.logger.Debug(fmt.Sprintf("%d journals had to be fixed.", r.result.Fixed))
		r.console.Line("Acted on %d transaction(s)!", r.result.Fixed)
	}
	return r.finish(), nil
}

func (r *run) finish() Result {
	r.result.Messages = r.console.Lines()
	return r.result
}

// inspect checks a journal, repairs it and re-checks it until it is valid,
// unfixable, or maxPasses repairs have been spent on it. The reloaded journal
// is always re-checked; only a further repair is refused.
func (r *run) inspect(ctx context.Context, journal ledger.Journal) error {
	for repairs := 0; ; repairs++ {
		if len(journal.Legs) != 2 {
			r.result.Unfixable++
			r.logger.Debug(fmt.Sprintf("Journal has %d transactions, so can't fix.", len(journal.Legs)), slog.Int64("journal_id", journal.ID))
			r.console.Line("Cannot inspect transaction journal #%d because it has %d transaction(s) instead of 2.", journal.ID, len(journal.Legs))
			return nil
		}
		source, okSource := journal.Source()
		dest, okDest := journal.Destination()
		if !okSource || !okDest {
			r.result.Unfixable++
			r.report("Cannot inspect transaction journal #%d because it has no outgoing and incoming transaction.", journal.ID)
			return nil
		}

		verdict := r.expected.Check(journal.Type, source.Account.Type, dest.Account.Type)
		if verdict == policy.UnknownJournalType {
			msg := fmt.Sprintf("No source/destination info for transaction type %s.", journal.Type)
			r.logger.Info(msg, slog.Int64("journal_id", journal.ID))
			r.console.Line("%s", msg)
			return nil
		}
		if !verdict.Violation() {
			return nil
		}
		if repairs >= r.maxPasses {
			r.result.Unfixable++
			r.report("Gave up on transaction journal #%d after %d repair(s).", journal.ID, repairs)
			return nil
		}

		r.logger.Debug(fmt.Sprintf("Going to fix journal #%d", journal.ID))
		repaired, err := r.repair(ctx, journal, source, dest)
		if err != nil {
			return err
		}
		if !repaired {
			r.result.Unfixable++
			return nil
		}
		r.result.Fixed++

		journal, err = r.repo.GetJournal(ctx, journal.ID)
		if err != nil {
			return fmt.Errorf("reload journal: %w", err)
		}
	}
}

// repair applies the fix for the journal's exact (type, source, destination)
// triple. It reports false when no fix exists.
func (r *run) repair(ctx context.Context, journal ledger.Journal, source, dest ledger.Leg) (bool, error) {
	srcType, dstType := source.Account.Type, dest.Account.Type
	switch {
	case journal.Type == ledger.JournalTransfer && srcType == ledger.AccountAsset && dstType.IsLiability():
		return true, r.reclassify(ctx, journal, ledger.JournalWithdrawal)
	case journal.Type == ledger.JournalTransfer && srcType.IsLiability() && dstType == ledger.AccountAsset:
		return true, r.reclassify(ctx, journal, ledger.JournalDeposit)
	case journal.Type == ledger.JournalWithdrawal && srcType == ledger.AccountAsset && dstType == ledger.AccountRevenue:
		return true, r.repoint(ctx, journal, dest, ledger.AccountExpense, "destination")
	case journal.Type == ledger.JournalDeposit && srcType == ledger.AccountExpense && dstType == ledger.AccountAsset:
		return true, r.repoint(ctx, journal, source, ledger.AccountRevenue, "source")
	default:
		r.report(`The source account of %s #%d cannot be of type "%s".`, journal.Type, journal.ID, srcType)
		r.report(`The destination account of %s #%d cannot be of type "%s".`, journal.Type, journal.ID, dstType)
		return false, nil
	}
}

func (r *run) reclassify(ctx context.Context, journal ledger.Journal, to ledger.JournalType) error {
	if err := r.repo.SetJournalType(ctx, journal.ID, to); err != nil {
		return err
	}
	r.report("Converted transaction #%d from a %s to a %s.", journal.ID, lowerType(journal.Type), lowerType(to))
	return nil
}

func (r *run) repoint(ctx context.Context, journal ledger.Journal, leg ledger.Leg, to ledger.AccountType, side string) error {
	old := leg.Account
	replacement, err := r.accounts.FindOrCreate(ctx, journal.UserID, old.Name, to)
	if err != nil {
		return err
	}
	if err := r.repo.SetTransactionAccount(ctx, leg.TransactionID, replacement.ID); err != nil {
		return err
	}
	r.report(`Transaction journal #%d, %s account changed from #%d ("%s") to #%d ("%s").`,
		journal.ID, side, old.ID, old.Name, replacement.ID, replacement.Name)
	return nil
}

// report emits one console line and the matching debug log line.
func (r *run) report(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.console.Line("%s", msg)
	r.logger.Debug(msg)
}

func lowerType(t ledger.JournalType) string {
	return strings.ToLower(string(t))
}
