package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/ledgerfix/cmd/ledgerfix/cli"
	"github.com/odyssey-erp/ledgerfix/internal/app"
	"github.com/odyssey-erp/ledgerfix/internal/correction/accounttypes"
	"github.com/odyssey-erp/ledgerfix/internal/correction/decimals"
	"github.com/odyssey-erp/ledgerfix/internal/correction/piggies"
	"github.com/odyssey-erp/ledgerfix/internal/ledger"
	"github.com/odyssey-erp/ledgerfix/internal/ledger/accounts"
	"github.com/odyssey-erp/ledgerfix/internal/ledger/policy"
	"github.com/odyssey-erp/ledgerfix/internal/platform/db"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping ledgerfix startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	cfg, err := app.LoadConfig()
	if err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "ledgerfix: load config: %v\n", err)
		os.Exit(1)
	}

	env := &environment{cfg: cfg, logger: app.NewLogger(cfg)}
	code := execute(ctx, env, os.Args[1:], os.Stdout, os.Stderr)
	env.close()
	stop()
	os.Exit(code)
}

// environment opens the ledger connection on first use so queue commands
// never touch the database.
type environment struct {
	cfg    *app.Config
	logger *slog.Logger
	conn   *db.DB
}

func (e *environment) open(ctx context.Context) (*db.DB, error) {
	if e.conn != nil {
		return e.conn, nil
	}
	conn, err := db.Open(ctx, e.cfg.Driver(), e.cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	e.conn = conn
	return conn, nil
}

func (e *environment) close() {
	if e.conn == nil {
		return
	}
	if err := e.conn.Close(); err != nil {
		e.logger.Warn("database close", slog.Any("error", err))
	}
}

func (e *environment) corrections(ctx context.Context) *cli.CorrectionsCLI {
	return &cli.CorrectionsCLI{
		NewAccountTypes: func(out io.Writer) (cli.AccountTypesRunner, error) {
			conn, err := e.open(ctx)
			if err != nil {
				return nil, err
			}
			expected, err := policy.Load(e.cfg.PolicyFile)
			if err != nil {
				return nil, err
			}
			return accounttypes.NewFixer(accounttypes.Config{
				Repo:      ledger.NewRepository(conn),
				Accounts:  accounts.NewFactory(conn, e.logger),
				Expected:  expected,
				Logger:    e.logger,
				Output:    out,
				MaxPasses: e.cfg.RepairMaxPasses,
			})
		},
		NewPiggies: func(out io.Writer) (cli.PiggiesRunner, error) {
			conn, err := e.open(ctx)
			if err != nil {
				return nil, err
			}
			return piggies.NewFixer(ledger.NewRepository(conn), e.logger, out)
		},
		NewDecimals: func(out io.Writer) (cli.DecimalsRunner, error) {
			conn, err := e.open(ctx)
			if err != nil {
				return nil, err
			}
			return decimals.NewForDB(conn, decimals.Config{
				Pause:  e.cfg.WidenPause,
				Logger: e.logger,
				Output: out,
			})
		},
	}
}

func execute(ctx context.Context, env *environment, args []string, stdout, stderr io.Writer) int {
	code := 0
	root := newRootCommand(ctx, env, &code)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		return 1
	}
	return code
}

func newRootCommand(ctx context.Context, env *environment, code *int) *cobra.Command {
	root := &cobra.Command{
		Use:   "ledgerfix",
		Short: "Repair inconsistent ledger records",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	corrections := env.corrections(ctx)

	var accountJSON bool
	fixAccountTypes := &cobra.Command{
		Use:   "fix-account-types",
		Short: "Make sure all journals have the correct source and destination account types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			*code = corrections.FixAccountTypesCommand(cmd.Context(), cli.FixOptions{
				JSONOutput: accountJSON,
				Stdout:     cmd.OutOrStdout(),
				Stderr:     cmd.ErrOrStderr(),
			})
			return nil
		},
	}
	fixAccountTypes.Flags().BoolVar(&accountJSON, "json", false, "print a JSON summary instead of progress lines")

	var piggyJSON bool
	fixPiggies := &cobra.Command{
		Use:   "fix-piggies",
		Short: "Clear piggy bank events that point to deleted journals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			*code = corrections.FixPiggiesCommand(cmd.Context(), cli.FixOptions{
				JSONOutput: piggyJSON,
				Stdout:     cmd.OutOrStdout(),
				Stderr:     cmd.ErrOrStderr(),
			})
			return nil
		},
	}
	fixPiggies.Flags().BoolVar(&piggyJSON, "json", false, "print a JSON summary instead of progress lines")

	correctDatabase := &cobra.Command{
		Use:   "correct-database",
		Short: "Run every non-destructive correction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			*code = corrections.CorrectDatabaseCommand(cmd.Context(), cli.FixOptions{
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	var yes bool
	forceDecimalSize := &cobra.Command{
		Use:   "force-decimal-size",
		Short: "Round over-precise amounts and force amount columns to DECIMAL(32,12)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			*code = corrections.ForceDecimalSizeCommand(cmd.Context(), cli.ForceDecimalSizeOptions{
				Yes:    yes,
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
				Stdin:  cmd.InOrStdin(),
			})
			return nil
		},
	}
	forceDecimalSize.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")

	root.AddCommand(fixAccountTypes, fixPiggies, correctDatabase, forceDecimalSize, newJobsCommand(env, code))
	return root
}

func newJobsCommand(env *environment, code *int) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage the correction worker queue",
	}

	trigger := &cobra.Command{
		Use:   "trigger <fix-account-types|fix-piggies>",
		Short: "Enqueue a correction job for the worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobsCLI := cli.NewJobsCLI(env.cfg.Redis().Asynq())
			defer closeJobs(env.logger, jobsCLI)
			*code = jobsCLI.TriggerCommand(cmd.Context(), cli.TriggerOptions{
				Name:   args[0],
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show queue counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobsCLI := cli.NewJobsCLI(env.cfg.Redis().Asynq())
			defer closeJobs(env.logger, jobsCLI)
			*code = jobsCLI.StatusCommand(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			return nil
		},
	}

	jobsCmd.AddCommand(trigger, status)
	return jobsCmd
}

func closeJobs(logger *slog.Logger, jobsCLI *cli.JobsCLI) {
	if err := jobsCLI.Close(); err != nil {
		logger.Warn("jobs cli close", slog.Any("error", err))
	}
}
