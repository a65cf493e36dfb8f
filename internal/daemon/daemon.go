package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/gofrs/flock"

	"narrator/internal/config"
	"narrator/internal/logging"
	"narrator/internal/notifications"
	"narrator/internal/queue"
	"narrator/internal/workflow"
)

// Daemon coordinates the background processing services and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *queue.Store
	controller *workflow.Controller
	workflow   *workflow.Manager
	logPath    string

	lockPath string
	lock     *flock.Flock

	scheduler *gocron.Scheduler

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
	LogPath      string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, controller *workflow.Controller, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || controller == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, controller, and workflow manager")
	}

	lockPath := cfg.LockPath()
	logPath := cfg.LogFilePath()
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      store,
		controller: controller,
		workflow:   wf,
		logPath:    logPath,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, reclaims items left behind by a previous
// process, then launches the worker pool and housekeeping jobs.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another narratord instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if _, err := d.controller.Heartbeat().ReclaimStaleItems(d.ctx); err != nil {
		d.logger.Warn("initial stale reclaim failed", logging.Error(err))
	}

	if err := d.workflow.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start workflow: %w", err)
	}

	scheduler, err := d.schedule()
	if err != nil {
		d.workflow.Stop()
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("schedule housekeeping: %w", err)
	}
	d.scheduler = scheduler
	d.scheduler.StartAsync()

	d.running.Store(true)
	d.logger.Info("narrator daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("workers", d.cfg.Workflow.Workers),
		logging.String(logging.FieldEventType, "daemon_start"),
	)
	return nil
}

func (d *Daemon) schedule() (*gocron.Scheduler, error) {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	reclaimEvery := time.Duration(d.cfg.Workflow.HeartbeatInterval) * time.Second
	if reclaimEvery <= 0 {
		reclaimEvery = time.Minute
	}
	if _, err := scheduler.Every(reclaimEvery).Tag("stale-reclaim").Do(d.reclaimStale); err != nil {
		return nil, err
	}

	cleanupEvery := time.Duration(d.cfg.Workflow.CleanupIntervalMinutes) * time.Minute
	if cleanupEvery > 0 {
		if _, err := scheduler.Every(cleanupEvery).Tag("workdir-prune").Do(d.pruneWorkDirs); err != nil {
			return nil, err
		}
	}
	return scheduler, nil
}

func (d *Daemon) reclaimStale() {
	ctx := d.jobContext()
	if _, err := d.controller.Heartbeat().ReclaimStaleItems(ctx); err != nil && ctx.Err() == nil {
		d.logger.Warn("stale reclaim failed", logging.Error(err))
	}
}

func (d *Daemon) pruneWorkDirs() {
	ctx := d.jobContext()
	if _, err := PruneWorkDirs(ctx, d.store, d.cfg.Paths.StagingDir, d.logger); err != nil && ctx.Err() == nil {
		d.logger.Warn("work directory prune failed", logging.Error(err))
	}
}

func (d *Daemon) jobContext() context.Context {
	if ctx := d.ctx; ctx != nil {
		return ctx
	}
	return context.Background()
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.scheduler != nil {
		d.scheduler.Stop()
		d.scheduler = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("narrator daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// SendTestNotification sends a test message through every configured backend.
func SendTestNotification(ctx context.Context, cfg *config.Config) (bool, string, error) {
	if cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	n := cfg.Notifications
	if n.NtfyTopic == "" && (n.TelegramBotToken == "" || n.TelegramChatID == "") {
		return false, "no notification backend configured", nil
	}
	notifier := notifications.NewService(cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		Workflow:     d.workflow.Status(ctx),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
	}
}
