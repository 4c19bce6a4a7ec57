package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"uploader/internal/camera"
	"uploader/internal/config"
	"uploader/internal/daemon"
	"uploader/internal/history"
	"uploader/internal/ipc"
	"uploader/internal/ledger"
	"uploader/internal/logging"
	"uploader/internal/netwatch"
	"uploader/internal/preflight"
	"uploader/internal/screen"
	"uploader/internal/status"
	"uploader/internal/transfer"
	"uploader/internal/workflow"
)

// shutdownGrace bounds the eviction pass performed on SIGINT/SIGTERM.
const shutdownGrace = 5 * time.Second

// Options configures kiosk process runtime behavior.
type Options struct {
	LogAll     bool
	Fullscreen bool
	// Headless disables the status display even on a terminal.
	Headless bool
}

// Run starts the kiosk and blocks until the operator quits the display or
// the process is signalled.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	interactive := !opts.Headless && screen.Interactive(os.Stdout)
	runID := uuid.NewString()
	hub := logging.NewStreamHub(256)

	// With the display active the console belongs to bubbletea, so log lines
	// only go to the file.
	outputs := []string{cfg.LogPath()}
	if !interactive {
		outputs = append([]string{"stdout"}, outputs...)
	}
	logger, err := logging.New(logging.Options{
		Level:       logging.LevelFor(opts.LogAll),
		OutputPaths: outputs,
		Hub:         hub,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.Info("uploader starting",
		logging.String(logging.FieldEventType, "startup"),
		logging.String(logging.FieldRunID, runID),
		logging.Bool("interactive", interactive),
	)
	logPreflight(signalCtx, logger, cfg)

	rt, err := build(cfg, logger, hub, runID)
	if err != nil {
		return err
	}
	defer rt.close()

	// The lock is taken before the socket is bound so a second instance
	// never replaces the running kiosk's socket.
	if err := rt.daemon.Start(signalCtx); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			return err
		}
		return fmt.Errorf("start uploader: %w", err)
	}
	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), rt.daemon, logger)
	if err != nil {
		rt.daemon.Stop()
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if interactive {
		screenErr := screen.Run(signalCtx, screen.Options{
			Snapshot:   rt.snapshot,
			Hub:        hub,
			Controller: rt.manager,
			Refresh:    cfg.ScreenRefresh(),
		}, opts.Fullscreen)
		if screenErr != nil {
			logging.ErrorWithContext(logger, "status display failed", "screen_failed",
				logging.Error(screenErr),
				logging.String(logging.FieldErrorHint, "run with stdout redirected to use headless mode"),
			)
		}
	} else {
		<-signalCtx.Done()
	}

	logger.Info("uploader shutting down", logging.String(logging.FieldRunID, runID))
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	rt.daemon.Shutdown(shutdownCtx)
	return nil
}

type services struct {
	daemon   *daemon.Daemon
	manager  *workflow.Manager
	session  *camera.Session
	snapshot *status.Snapshot
	journal  *history.Store
}

func (r *services) close() {
	if r.session != nil {
		r.session.Release()
	}
	if r.journal != nil {
		_ = r.journal.Close()
	}
}

// build wires every collaborator. Only configuration-level failures are
// returned; a broken journal degrades to running without one.
func build(cfg *config.Config, logger *slog.Logger, hub *logging.StreamHub, runID string) (*services, error) {
	rt := &services{snapshot: status.New()}

	client, err := transfer.New(cfg.FTPURL, cfg.FTPUserPwd, logger,
		transfer.WithTimeout(cfg.TransferTimeout()),
		transfer.WithKnownHosts(cfg.Network.KnownHostsFile),
	)
	if err != nil {
		return nil, fmt.Errorf("configure transfer: %w", err)
	}

	driver := camera.NewGPhotoDriver(cfg.CameraBinary(),
		camera.WithCommandTimeout(cfg.CameraCommandTimeout()),
		camera.WithPort(cfg.Camera.Port),
	)
	evictor := camera.NewProcessEvictor(cfg.Camera.EvictProcesses, logger)

	// The session reports each fetch to the manager, which is built after it.
	var manager *workflow.Manager
	rt.session = camera.NewSession(driver, evictor, cfg.ImportDir(), logger,
		camera.WithAcquirePolicy(cfg.Camera.AcquireAttempts, cfg.AcquireBackoff()),
		camera.WithFetchObserver(func(result camera.FetchResult) {
			if manager != nil {
				manager.ObserveFetch(result)
			}
		}),
	)

	var managerOpts []workflow.Option
	if cfg.Workflow.HistoryEnabled {
		store, err := history.Open(cfg.HistoryPath(), cfg.Workflow.HistoryRetention)
		if err != nil {
			logging.WarnWithContext(logger, "history journal unavailable", "history_unavailable",
				logging.Error(err),
				logging.String(logging.FieldPath, cfg.HistoryPath()),
				logging.String(logging.FieldImpact, "import and upload events are not journaled this run"),
			)
		} else {
			rt.journal = store
			managerOpts = append(managerOpts, workflow.WithJournal(store, runID))
		}
	}

	manager = workflow.NewManager(cfg, rt.session, ledger.Open(cfg.LedgerPath()), client, rt.snapshot, logger, managerOpts...)
	rt.manager = manager

	pollers := []daemon.Poller{
		netwatch.NewConnectivityMonitor(cfg.Network.ProbeAddress, cfg.ProbeInterval(), cfg.ProbeTimeout(), rt.snapshot, logger),
		netwatch.NewSignalMonitor(cfg.Network.WirelessPath, cfg.SignalInterval(), rt.snapshot, logger),
	}

	d, err := daemon.New(cfg, daemon.Options{
		Coordinator: manager,
		Pollers:     pollers,
		Evictor:     rt.session,
		Hub:         hub,
		RunID:       runID,
	}, logger)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("create daemon: %w", err)
	}
	rt.daemon = d
	return rt, nil
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.RunAll(ctx, cfg) {
		if result.Passed {
			logger.Info("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "affected step is retried every loop iteration"),
		)
	}
}
