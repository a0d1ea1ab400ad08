// Package worker runs the periodic feed sync as an explicit scheduled task.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"worldcup-betting/internal/service"
)

// ErrAlreadyRunning is returned by Trigger when a sync is still in progress.
var ErrAlreadyRunning = errors.New("sync already running")

// Syncer performs one sync run. *service.SyncService implements it.
type Syncer interface {
	Run(ctx context.Context) (*service.SyncReport, error)
}

// SyncWorker schedules Syncer runs on a fixed interval. Each run gets its own
// deadline, and failures are logged and left for the next tick.
type SyncWorker struct {
	syncer   Syncer
	interval time.Duration
	timeout  time.Duration

	cron    *cron.Cron
	running sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSyncWorker creates a worker. Non-positive durations fall back to 60s
// interval and 30s timeout.
func NewSyncWorker(syncer Syncer, interval, timeout time.Duration) *SyncWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	logger := cronLogger{log.Logger.With().Str("component", "sync_worker").Logger()}
	return &SyncWorker{
		syncer:   syncer,
		interval: interval,
		timeout:  timeout,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger)),
		),
	}
}

// Start schedules the sync and returns immediately. When runNow is set the
// first run starts right away instead of after one interval.
func (w *SyncWorker) Start(ctx context.Context, runNow bool) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	spec := fmt.Sprintf("@every %s", w.interval)
	if _, err := w.cron.AddFunc(spec, w.tick); err != nil {
		return fmt.Errorf("failed to schedule sync: %w", err)
	}
	w.cron.Start()

	log.Info().Dur("interval", w.interval).Dur("timeout", w.timeout).Msg("Sync worker started")

	if runNow {
		go w.tick()
	}
	return nil
}

// Stop prevents new runs and waits for a run in progress to finish.
func (w *SyncWorker) Stop() {
	stopped := w.cron.Stop()
	if w.cancel != nil {
		w.cancel()
	}
	<-stopped.Done()
	w.running.Lock()
	w.running.Unlock()
	log.Info().Msg("Sync worker stopped")
}

// Trigger runs a sync now and returns its report. It does not wait for a
// scheduled run in progress; it returns ErrAlreadyRunning instead.
func (w *SyncWorker) Trigger(ctx context.Context) (*service.SyncReport, error) {
	if !w.running.TryLock() {
		return nil, ErrAlreadyRunning
	}
	defer w.running.Unlock()
	return w.run(ctx)
}

func (w *SyncWorker) tick() {
	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := w.Trigger(ctx); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			log.Debug().Msg("Previous sync still running, skipping tick")
			return
		}
		log.Error().Err(err).Msg("Scheduled sync failed, will retry next tick")
	}
}

func (w *SyncWorker) run(ctx context.Context) (*service.SyncReport, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	report, err := w.syncer.Run(ctx)
	if err != nil {
		return report, err
	}
	log.Debug().
		Dur("took", time.Since(start)).
		Int("settled", len(report.Settled)).
		Int("failed", len(report.Failed)).
		Msg("Sync finished")
	return report, nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
