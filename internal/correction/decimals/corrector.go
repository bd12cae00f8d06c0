// Package decimals finds stored amounts carrying more precision than their
// currency allows, rounds them, and widens the amount columns to
// DECIMAL(32,12).
package decimals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/ledgerfix/internal/correction"
	"github.com/odyssey-erp/ledgerfix/internal/ledger"
	"github.com/odyssey-erp/ledgerfix/internal/platform/db"
)

// DefaultPause separates consecutive DDL statements.
const DefaultPause = time.Second

// Store is the query surface the corrector runs against.
type Store interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Currencies lists the currencies whose amounts are checked.
type Currencies interface {
	EnabledCurrencies(ctx context.Context) ([]ledger.Currency, error)
}

// Config wires the corrector.
type Config struct {
	Store      Store
	Currencies Currencies
	// Backend is the configured database type, reported when unsupported.
	Backend string
	// Dialect is nil when the backend has no dialect.
	Dialect Dialect
	Tables  []TableKind
	Pause   time.Duration
	Sleep   func(ctx context.Context, d time.Duration) error
	Logger  *slog.Logger
	Output  io.Writer
}

// Result summarises one run.
type Result struct {
	Corrected int
	Widened   int
	Messages  []string
}

// Corrector runs the precision correction and the schema widening.
type Corrector struct {
	cfg    Config
	logger *slog.Logger
}

// New validates the configuration.
func New(cfg Config) (*Corrector, error) {
	if cfg.Store == nil {
		return nil, errors.New("decimals: store required")
	}
	if cfg.Currencies == nil {
		return nil, errors.New("decimals: currency source required")
	}
	if cfg.Tables == nil {
		cfg.Tables = Registry()
	}
	if cfg.Pause == 0 {
		cfg.Pause = DefaultPause
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleep
	}
	if cfg.Backend == "" && cfg.Dialect != nil {
		cfg.Backend = cfg.Dialect.Name()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Corrector{cfg: cfg, logger: logger.With(slog.String("job", "force_decimal_size"))}, nil
}

// NewForDB builds a corrector for an open connection, choosing the dialect
// from its driver.
func NewForDB(conn *db.DB, cfg Config) (*Corrector, error) {
	if conn == nil {
		return nil, errors.New("decimals: connection required")
	}
	cfg.Store = conn
	cfg.Backend = string(conn.Driver())
	if dialect, ok := DialectFor(conn.Driver()); ok {
		cfg.Dialect = dialect
	}
	if cfg.Currencies == nil {
		cfg.Currencies = ledger.NewRepository(conn)
	}
	return New(cfg)
}

type run struct {
	*Corrector
	console *correction.Console
	result  Result
}

// Run corrects amounts and then widens the columns. Nothing happens unless
// confirmed is true.
func (c *Corrector) Run(ctx context.Context, confirmed bool) (Result, error) {
	if !confirmed {
		c.logger.Info("decimal correction not confirmed, nothing done")
		return Result{}, nil
	}
	r := &run{Corrector: c, console: correction.NewConsole(c.cfg.Output)}
	if err := r.correctAmounts(ctx); err != nil {
		return r.finish(), err
	}
	if err := r.widen(ctx); err != nil {
		return r.finish(), err
	}
	return r.finish(), nil
}

func (r *run) finish() Result {
	r.result.Messages = r.console.Lines()
	return r.result
}

func (r *run) correctAmounts(ctx context.Context) error {
	if r.cfg.Dialect == nil {
		r.console.Line(`Skip correcting amounts, does not support "%s"...`, r.cfg.Backend)
		return nil
	}
	r.console.Line("Going to correct amounts.")
	currencies, err := r.cfg.Currencies.EnabledCurrencies(ctx)
	if err != nil {
		return fmt.Errorf("decimals: enabled currencies: %w", err)
	}
	for _, currency := range currencies {
		r.console.Line(`Going to correct amounts in currency %s ("%s").`, currency.Code, currency.Name)
		for _, table := range r.cfg.Tables {
			if err := r.correctTable(ctx, currency, table); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) correctTable(ctx context.Context, currency ledger.Currency, table TableKind) error {
	switch table.Link {
	case LinkExcluded:
		return nil
	case LinkPerFieldCurrency:
		for _, field := range table.Fields {
			scope := table.plural()
			if strings.HasPrefix(table.CurrencyColumns[field], "foreign_") {
				scope += " in foreign currency"
			} else {
				scope += " in"
			}
			if err := r.correctFields(ctx, currency, table, []string{field}, scope); err != nil {
				return err
			}
		}
		return nil
	case LinkAccountMeta, LinkCurrencyColumn, LinkPiggyBank, LinkPiggyBankChild:
		return r.correctFields(ctx, currency, table, table.Fields, table.plural()+" in")
	}
	r.console.Line(`Cannot handle table "%s"`, table.Name)
	return fmt.Errorf("%w %q", ErrUnknownTable, table.Name)
}

// correctFields selects the rows with an excess digit in any of fields and
// rewrites each offending field with its rounded value.
func (r *run) correctFields(ctx context.Context, currency ledger.Currency, table TableKind, fields []string, scope string) error {
	from, args, err := table.source(currency.ID, fields[0])
	if err != nil {
		r.console.Line(`Cannot handle table "%s"`, table.Name)
		return err
	}
	columns := make([]string, 0, len(fields)+1)
	columns = append(columns, "t.id")
	predicates := make([]string, 0, len(fields))
	for _, field := range fields {
		columns = append(columns, "t."+field)
		predicate, pattern := r.cfg.Dialect.DetectPrecisionViolation(r.cfg.Dialect.CastText("t."+field), currency.DecimalPlaces)
		predicates = append(predicates, predicate)
		args = append(args, pattern)
	}
	query := fmt.Sprintf("SELECT %s FROM %s AND (%s) ORDER BY t.id",
		strings.Join(columns, ", "), from, strings.Join(predicates, " OR "))

	hits, err := r.detect(ctx, query, args, len(fields))
	if err != nil {
		return fmt.Errorf("decimals: detect %s: %w", table.Name, err)
	}
	if len(hits) == 0 {
		r.console.Line("Correct: All %s %s", scope, currency.Code)
		return nil
	}
	for _, hit := range hits {
		for i, field := range fields {
			value := hit.values[i]
			if !value.Valid {
				continue
			}
			corrected, changed, err := Round(value.String, currency.DecimalPlaces)
			if err != nil {
				return err
			}
			if !changed {
				continue
			}
			r.console.Line(`%s #%d has %s with value "%s", this has been corrected to "%s".`,
				table.subject(), hit.id, field, value.String, corrected)
			stmt := fmt.Sprintf("UPDATE %s SET %s = ? WHERE id = ?", table.Name, field)
			if _, err := r.cfg.Store.ExecContext(ctx, stmt, corrected, hit.id); err != nil {
				return fmt.Errorf("decimals: update %s #%d: %w", table.Name, hit.id, err)
			}
			r.logger.Debug("corrected amount",
				slog.String("table", table.Name),
				slog.Int64("id", hit.id),
				slog.String("field", field),
				slog.String("currency", currency.Code),
			)
			r.result.Corrected++
		}
	}
	return nil
}

type hit struct {
	id     int64
	values []sql.NullString
}

func (r *run) detect(ctx context.Context, query string, args []any, width int) ([]hit, error) {
	rows, err := r.cfg.Store.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []hit
	// a row can match through several account_meta rows
	seen := make(map[int64]struct{})
	for rows.Next() {
		h := hit{values: make([]sql.NullString, width)}
		dest := make([]any, 0, width+1)
		dest = append(dest, &h.id)
		for i := range h.values {
			dest = append(dest, &h.values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if _, dup := seen[h.id]; dup {
			continue
		}
		seen[h.id] = struct{}{}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// widen forces every registered amount column to DECIMAL(32,12). It stops at
// the first column the backend cannot alter.
func (r *run) widen(ctx context.Context) error {
	r.console.Line("Going to force the size of DECIMAL columns. Please hold.")
	first := true
	for _, table := range r.cfg.Tables {
		for _, field := range table.Fields {
			r.console.Line(`Updating table "%s", field "%s"...`, table.Name, field)
			if r.cfg.Dialect == nil {
				r.console.Error(`Cannot handle database type "%s".`, r.cfg.Backend)
				return nil
			}
			stmt, err := r.cfg.Dialect.WidenColumn(table.Name, field)
			if errors.Is(err, ErrWidenUnsupported) {
				r.console.Error(`Cannot handle database type "%s".`, r.cfg.Backend)
				return nil
			}
			if err != nil {
				return err
			}
			if !first {
				if err := r.cfg.Sleep(ctx, r.cfg.Pause); err != nil {
					return err
				}
			}
			first = false
			if _, err := r.cfg.Store.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("decimals: widen %s.%s: %w", table.Name, field, err)
			}
			r.result.Widened++
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
