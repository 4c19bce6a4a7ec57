package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"uploader/internal/config"
	"uploader/internal/deps"
	"uploader/internal/ipc"
	"uploader/internal/logging"
	"uploader/internal/preflight"
	"uploader/internal/status"
)

// ErrAlreadyRunning reports that another kiosk holds the lock.
var ErrAlreadyRunning = errors.New("another uploader instance is already running")

// Coordinator is the import/upload loop.
type Coordinator interface {
	Start(ctx context.Context) error
	Stop()
	Wake()
	Snapshot() *status.Snapshot
}

// Poller is a background status publisher.
type Poller interface {
	Start(ctx context.Context)
	Stop()
}

// Evictor releases the camera from competing processes.
type Evictor interface {
	Evict(ctx context.Context)
}

// Options carries the collaborators wired by the caller.
type Options struct {
	Coordinator Coordinator
	Pollers     []Poller
	Evictor     Evictor
	Hub         *logging.StreamHub
	RunID       string
}

// Daemon runs the kiosk services under a single-instance lock.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	coordinator Coordinator
	pollers     []Poller
	evictor     Evictor
	hub         *logging.StreamHub
	runID       string
	hotplug     *hotplugMonitor

	lockPath string
	lock     *flock.Flock

	mu           sync.Mutex
	running      bool
	startedAt    time.Time
	dependencies []deps.Status
	cancel       context.CancelFunc
}

// New constructs a daemon. The lock is not taken until Start.
func New(cfg *config.Config, opts Options, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || opts.Coordinator == nil {
		return nil, errors.New("daemon requires config and coordinator")
	}
	logger = logging.NewComponentLogger(logger, "daemon")
	d := &Daemon{
		cfg:         cfg,
		logger:      logger,
		coordinator: opts.Coordinator,
		pollers:     opts.Pollers,
		evictor:     opts.Evictor,
		hub:         opts.Hub,
		runID:       opts.RunID,
		lockPath:    cfg.LockPath(),
		lock:        flock.New(cfg.LockPath()),
	}
	if cfg.Workflow.HotplugEnabled {
		d.hotplug = newHotplugMonitor(logger, opts.Coordinator.Wake)
	}
	return d, nil
}

// Start acquires the lock and launches every service.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	for _, p := range d.pollers {
		p.Start(runCtx)
	}
	if err := d.coordinator.Start(runCtx); err != nil {
		for _, p := range d.pollers {
			p.Stop()
		}
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.hotplug.Start(runCtx); err != nil {
		logging.WarnWithContext(d.logger, "hotplug monitor unavailable", "hotplug_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "camera attach is noticed on the next loop iteration"),
		)
	}

	d.cancel = cancel
	d.running = true
	d.startedAt = time.Now()
	d.dependencies = preflight.CheckSystemDeps(d.cfg)
	for _, dep := range d.dependencies {
		if !dep.Available && !dep.Optional {
			logging.ErrorWithContext(d.logger, "required dependency missing", "dependency_missing",
				logging.String("dependency", dep.Name),
				logging.String("detail", dep.Detail),
				logging.String(logging.FieldErrorHint, "install "+dep.Command+" and restart the kiosk"),
			)
		}
	}
	d.logger.Info("uploader started",
		logging.String(logging.FieldRunID, d.runID),
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldPath, d.cfg.Paths.WorkDir),
	)
	return nil
}

// Stop halts every service and releases the lock. An in-flight gphoto2 call
// runs to completion or its command timeout before the coordinator exits.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	d.hotplug.Stop()
	d.coordinator.Stop()
	for _, p := range d.pollers {
		p.Stop()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next start may report already running until this process exits"),
		)
	}
	d.running = false
	d.logger.Info("uploader stopped", logging.String(logging.FieldRunID, d.runID))
}

// Shutdown performs best-effort eviction of competing camera holders and
// then stops.
func (d *Daemon) Shutdown(ctx context.Context) {
	if d.evictor != nil {
		d.evictor.Evict(ctx)
	}
	d.Stop()
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Status implements ipc.Backend.
func (d *Daemon) Status() ipc.StatusResponse {
	d.mu.Lock()
	running := d.running
	started := d.startedAt
	dependencies := append([]deps.Status(nil), d.dependencies...)
	d.mu.Unlock()

	resp := ipc.StatusResponse{
		Running:    running,
		PID:        os.Getpid(),
		RunID:      d.runID,
		WorkDir:    d.cfg.Paths.WorkDir,
		ImportDir:  d.cfg.ImportDir(),
		LedgerPath: d.cfg.LedgerPath(),
		LockPath:   d.lockPath,
		Hotplug:    d.hotplug.Running(),
		Snapshot:   d.coordinator.Snapshot().Read(),
	}
	if !started.IsZero() {
		resp.StartedAt = started.Format(time.RFC3339)
	}
	for _, dep := range dependencies {
		resp.Dependencies = append(resp.Dependencies, ipc.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return resp
}

// LogTail implements ipc.Backend.
func (d *Daemon) LogTail(limit int) []logging.LogEvent {
	return d.hub.Tail(limit)
}

// Retry implements ipc.Backend.
func (d *Daemon) Retry() {
	d.coordinator.Wake()
}
