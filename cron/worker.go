package cron

import (
	"context"
	"fmt"
	"time"

	"turbotransfer/services/janitor"

	robfig "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// zapCronLogger lets the scheduler report through the process logger.
type zapCronLogger struct {
	sugar *zap.SugaredLogger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw("Cron: "+msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw("Cron: "+msg, append(keysAndValues, "error", err)...)
}

// Worker runs the janitor sweep on a fixed interval until stopped.
type Worker struct {
	scheduler *robfig.Cron
	logger    *zap.Logger
}

// StartJanitorWorker schedules j.Sweep every interval. A sweep that is still
// running when the next tick fires causes that tick to be skipped.
func StartJanitorWorker(j janitor.JanitorService, interval time.Duration, logger *zap.Logger) (*Worker, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("Cron: invalid sweep interval %s", interval)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cl := zapCronLogger{sugar: logger.Sugar()}
	scheduler := robfig.New(
		robfig.WithLogger(cl),
		robfig.WithChain(robfig.Recover(cl), robfig.SkipIfStillRunning(cl)),
	)

	_, err := scheduler.AddFunc("@every "+interval.String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		j.Sweep(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("Cron: failed to schedule janitor: %w", err)
	}

	scheduler.Start()
	logger.Info("Cron: janitor scheduled", zap.Duration("interval", interval))
	return &Worker{scheduler: scheduler, logger: logger}, nil
}

// Stop halts scheduling and waits for a running sweep, bounded by ctx.
func (w *Worker) Stop(ctx context.Context) {
	done := w.scheduler.Stop()
	select {
	case <-done.Done():
		w.logger.Info("Cron: janitor stopped")
	case <-ctx.Done():
		w.logger.Warn("Cron: janitor still running at shutdown", zap.Error(ctx.Err()))
	}
}
