package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/odyssey-erp/ledgerfix/internal/correction/accounttypes"
	"github.com/odyssey-erp/ledgerfix/internal/correction/decimals"
	"github.com/odyssey-erp/ledgerfix/internal/correction/piggies"
)

// AccountTypesRunner runs one account type correction pass.
type AccountTypesRunner interface {
	Run(ctx context.Context) (accounttypes.Result, error)
}

// PiggiesRunner runs one piggy bank correction pass.
type PiggiesRunner interface {
	Run(ctx context.Context) (piggies.Result, error)
}

// DecimalsRunner runs the decimal precision correction.
type DecimalsRunner interface {
	Run(ctx context.Context, confirmed bool) (decimals.Result, error)
}

// CorrectionsCLI builds each corrector against the command's stdout so
// progress lines stream as they happen.
type CorrectionsCLI struct {
	NewAccountTypes func(out io.Writer) (AccountTypesRunner, error)
	NewPiggies      func(out io.Writer) (PiggiesRunner, error)
	NewDecimals     func(out io.Writer) (DecimalsRunner, error)
}

// FixOptions configures the non-destructive fix commands.
type FixOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

func (o *FixOptions) defaults() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// AccountTypesSummary is the JSON form of a fix-account-types run.
type AccountTypesSummary struct {
	Inspected int      `json:"inspected"`
	Fixed     int      `json:"fixed"`
	Unfixable int      `json:"unfixable"`
	Messages  []string `json:"messages"`
}

// PiggiesSummary is the JSON form of a fix-piggies run.
type PiggiesSummary struct {
	Fixed    int      `json:"fixed"`
	Messages []string `json:"messages"`
}

// FixAccountTypesCommand runs the journal type corrector.
func (c *CorrectionsCLI) FixAccountTypesCommand(ctx context.Context, opts FixOptions) int {
	opts.defaults()
	if c == nil || c.NewAccountTypes == nil {
		fmt.Fprintln(opts.Stderr, "fix-account-types: not configured")
		return 1
	}
	out := opts.Stdout
	if opts.JSONOutput {
		out = io.Discard
	}
	fixer, err := c.NewAccountTypes(out)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "fix-account-types: %v\n", err)
		return 1
	}
	res, err := fixer.Run(ctx)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "fix-account-types: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		return writeJSON(opts, "fix-account-types", AccountTypesSummary{
			Inspected: res.Inspected,
			Fixed:     res.Fixed,
			Unfixable: res.Unfixable,
			Messages:  nonNil(res.Messages),
		})
	}
	return 0
}

// FixPiggiesCommand clears stale piggy bank event references.
func (c *CorrectionsCLI) FixPiggiesCommand(ctx context.Context, opts FixOptions) int {
	opts.defaults()
	if c == nil || c.NewPiggies == nil {
		fmt.Fprintln(opts.Stderr, "fix-piggies: not configured")
		return 1
	}
	out := opts.Stdout
	if opts.JSONOutput {
		out = io.Discard
	}
	fixer, err := c.NewPiggies(out)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "fix-piggies: %v\n", err)
		return 1
	}
	res, err := fixer.Run(ctx)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "fix-piggies: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		return writeJSON(opts, "fix-piggies", PiggiesSummary{Fixed: res.Fixed, Messages: nonNil(res.Messages)})
	}
	return 0
}

// CorrectDatabaseCommand runs every non-destructive fixer in order. A failing
// fixer does not stop the next one.
func (c *CorrectionsCLI) CorrectDatabaseCommand(ctx context.Context, opts FixOptions) int {
	opts.defaults()
	opts.JSONOutput = false
	code := 0
	if c.FixAccountTypesCommand(ctx, opts) != 0 {
		code = 1
	}
	if c.FixPiggiesCommand(ctx, opts) != 0 {
		code = 1
	}
	return code
}

// ForceDecimalSizeOptions configures force-decimal-size.
type ForceDecimalSizeOptions struct {
	Yes     bool
	Stdout  io.Writer
	Stderr  io.Writer
	Stdin   io.Reader
	Confirm func(io.Reader, io.Writer) (bool, error)
}

// ForceDecimalSizeCommand rounds over-precise amounts and widens amount
// columns after an explicit confirmation.
func (c *CorrectionsCLI) ForceDecimalSizeCommand(ctx context.Context, opts ForceDecimalSizeOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if c == nil || c.NewDecimals == nil {
		fmt.Fprintln(opts.Stderr, "force-decimal-size: not configured")
		return 1
	}
	fmt.Fprintln(opts.Stderr, "Running this command is dangerous and can cause data loss.")
	fmt.Fprintln(opts.Stderr, "Please do not continue.")

	confirmed := opts.Yes
	if !confirmed {
		confirm := opts.Confirm
		if confirm == nil {
			confirm = defaultConfirm
		}
		ok, err := confirm(opts.Stdin, opts.Stdout)
		if err != nil {
			fmt.Fprintf(opts.Stderr, "force-decimal-size: confirmation failed: %v\n", err)
			return 1
		}
		confirmed = ok
	}
	if !confirmed {
		fmt.Fprintln(opts.Stderr, "force-decimal-size: cancelled by user")
		return 0
	}

	corrector, err := c.NewDecimals(opts.Stdout)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "force-decimal-size: %v\n", err)
		return 1
	}
	if _, err := corrector.Run(ctx, true); err != nil {
		fmt.Fprintf(opts.Stderr, "force-decimal-size: %v\n", err)
		return 1
	}
	return 0
}

func defaultConfirm(r io.Reader, w io.Writer) (bool, error) {
	fmt.Fprint(w, "Do you want to continue? [y/N]: ")
	reader := bufio.NewReader(r)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func writeJSON(opts FixOptions, command string, v any) int {
	enc := json.NewEncoder(opts.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(opts.Stderr, "%s: encode json: %v\n", command, err)
		return 1
	}
	return 0
}

func nonNil(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return lines
}
