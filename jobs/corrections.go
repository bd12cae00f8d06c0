package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/ledgerfix/internal/correction/accounttypes"
	"github.com/odyssey-erp/ledgerfix/internal/correction/piggies"
	jobmetrics "github.com/odyssey-erp/ledgerfix/internal/jobs"
	"github.com/odyssey-erp/ledgerfix/internal/platform/cache"
)

// Locker keeps two runs of the same job from overlapping.
type Locker interface {
	Acquire(ctx context.Context, name string) (cache.ReleaseFunc, bool, error)
}

// AccountTypesFixer runs one account type correction pass.
type AccountTypesFixer interface {
	Run(ctx context.Context) (accounttypes.Result, error)
}

// PiggiesFixer runs one piggy bank correction pass.
type PiggiesFixer interface {
	Run(ctx context.Context) (piggies.Result, error)
}

// FixAccountTypesJob schedules the journal type corrector.
type FixAccountTypesJob struct {
	Fixer   AccountTypesFixer
	Lock    Locker
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewFixAccountTypesJob initialises the handler.
func NewFixAccountTypesJob(fixer AccountTypesFixer, lock Locker, logger *slog.Logger, metrics *jobmetrics.Metrics) *FixAccountTypesJob {
	return &FixAccountTypesJob{Fixer: fixer, Lock: lock, Logger: logger, Metrics: metrics}
}

// Handle executes one run.
func (j *FixAccountTypesJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Fixer == nil {
		return errors.New("fix account types: handler not configured")
	}
	payload, err := decodePayload(t)
	if err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	run := exclusiveRun{task: TaskFixAccountTypes, lockName: "fix-account-types", lock: j.Lock, logger: j.Logger, metrics: j.Metrics}
	return run.do(ctx, payload, func(ctx context.Context, logger *slog.Logger) error {
		res, err := j.Fixer.Run(ctx)
		if err != nil {
			return err
		}
		j.Metrics.AddCorrections(TaskFixAccountTypes, "fixed", res.Fixed)
		j.Metrics.AddCorrections(TaskFixAccountTypes, "unfixable", res.Unfixable)
		logger.Info("account types checked",
			slog.Int("inspected", res.Inspected),
			slog.Int("fixed", res.Fixed),
			slog.Int("unfixable", res.Unfixable),
		)
		return nil
	})
}

// FixPiggiesJob schedules the piggy bank event fixer.
type FixPiggiesJob struct {
	Fixer   PiggiesFixer
	Lock    Locker
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewFixPiggiesJob initialises the handler.
func NewFixPiggiesJob(fixer PiggiesFixer, lock Locker, logger *slog.Logger, metrics *jobmetrics.Metrics) *FixPiggiesJob {
	return &FixPiggiesJob{Fixer: fixer, Lock: lock, Logger: logger, Metrics: metrics}
}

// Handle executes one run.
func (j *FixPiggiesJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Fixer == nil {
		return errors.New("fix piggies: handler not configured")
	}
	payload, err := decodePayload(t)
	if err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	run := exclusiveRun{task: TaskFixPiggies, lockName: "fix-piggies", lock: j.Lock, logger: j.Logger, metrics: j.Metrics}
	return run.do(ctx, payload, func(ctx context.Context, logger *slog.Logger) error {
		res, err := j.Fixer.Run(ctx)
		if err != nil {
			return err
		}
		j.Metrics.AddCorrections(TaskFixPiggies, "fixed", res.Fixed)
		logger.Info("piggy bank events checked", slog.Int("fixed", res.Fixed))
		return nil
	})
}

type exclusiveRun struct {
	task     string
	lockName string
	lock     Locker
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
}

// do takes the run lock, tracks the run and logs its outcome. A run that
// finds the lock taken is skipped without error so Asynq does not retry it.
func (r exclusiveRun) do(ctx context.Context, payload CorrectionPayload, fn func(context.Context, *slog.Logger) error) (resultErr error) {
	logger := r.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(
		slog.String("job", r.task),
		slog.String("run_id", uuid.NewString()),
		slog.String("trigger", payload.Trigger),
	)

	if r.lock != nil {
		release, ok, err := r.lock.Acquire(ctx, r.lockName)
		if err != nil {
			return fmt.Errorf("%s: %w", r.task, err)
		}
		if !ok {
			r.metrics.Skipped(r.task)
			logger.Warn("previous run still holds the lock, skipping")
			return nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("release run lock", slog.Any("error", err))
			}
		}()
	}

	tracker := r.metrics.Track(r.task)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := time.Now()
	logger.Info("starting correction run")
	if err := fn(ctx, logger); err != nil {
		logger.Error("correction run failed", slog.Any("error", err))
		return err
	}
	logger.Info("completed correction run", slog.Duration("duration", time.Since(start)))
	return nil
}
