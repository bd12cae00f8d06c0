// Package piggies clears piggy bank event references to journals that no
// longer exist.
package piggies

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/odyssey-erp/ledgerfix/internal/correction"
	"github.com/odyssey-erp/ledgerfix/internal/ledger"
)

// Repository exposes the piggy bank event queries.
type Repository interface {
	StalePiggyBankEvents(ctx context.Context) ([]ledger.PiggyBankEvent, error)
	ClearPiggyBankEventJournal(ctx context.Context, eventID int64) error
}

// Result summarises one run.
type Result struct {
	Fixed    int
	Messages []string
}

// Fixer nulls stale journal references.
type Fixer struct {
	repo   Repository
	logger *slog.Logger
	output io.Writer
}

// NewFixer constructs a fixer writing operator lines to out.
func NewFixer(repo Repository, logger *slog.Logger, out io.Writer) (*Fixer, error) {
	if repo == nil {
		return nil, errors.New("piggies: repository required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fixer{repo: repo, logger: logger.With(slog.String("job", "fix_piggies")), output: out}, nil
}

// Run clears every stale reference it finds.
func (f *Fixer) Run(ctx context.Context) (Result, error) {
	console := correction.NewConsole(f.output)
	events, err := f.repo.StalePiggyBankEvents(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("piggies: list events: %w", err)
	}
	var res Result
	for _, ev := range events {
		if err := f.repo.ClearPiggyBankEventJournal(ctx, ev.ID); err != nil {
			return Result{Fixed: res.Fixed, Messages: console.Lines()}, fmt.Errorf("piggies: clear event %d: %w", ev.ID, err)
		}
		attrs := []any{slog.Int64("event_id", ev.ID), slog.Int64("piggy_bank_id", ev.PiggyBankID)}
		if ev.JournalID != nil {
			attrs = append(attrs, slog.Int64("journal_id", *ev.JournalID))
		}
		f.logger.Debug("cleared stale journal reference", attrs...)
		res.Fixed++
	}
	if res.Fixed == 0 {
		console.Line("Correct: all piggy bank events are OK.")
	} else {
		console.Line("Fixed %d piggy bank event(s).", res.Fixed)
	}
	res.Messages = console.Lines()
	return res, nil
}
