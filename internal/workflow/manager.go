package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"uploader/internal/camera"
	"uploader/internal/config"
	"uploader/internal/fileutil"
	"uploader/internal/history"
	"uploader/internal/logging"
	"uploader/internal/status"
)

// DeviceSession is the camera surface the coordinator drives.
type DeviceSession interface {
	Acquire(ctx context.Context) error
	Ready() bool
	Info() camera.DeviceInfo
	ListFilesRecursive(ctx context.Context, root string) (camera.ImportSummary, error)
	WaitForEvent(ctx context.Context, timeout time.Duration) ([]camera.Event, error)
}

// Ledger records delivered file names.
type Ledger interface {
	IsUploaded(name string) bool
	MarkUploaded(name string) error
	Count() (int, error)
}

// Uploader delivers one local file.
type Uploader interface {
	Upload(ctx context.Context, localPath, remoteName string) bool
}

// Journal receives informational history rows.
type Journal interface {
	Record(ctx context.Context, evt history.Event) error
}

// Manager coordinates camera import and upload sweeps.
type Manager struct {
	cfg       *config.Config
	session   DeviceSession
	ledger    Ledger
	uploader  Uploader
	snapshot  *status.Snapshot
	journal   Journal
	runID     string
	logger    *slog.Logger
	importDir string
	now       func() time.Time

	loopInterval   time.Duration
	eventInterval  time.Duration
	eventTimeout   time.Duration
	rescanInterval time.Duration
	uploadRetry    time.Duration

	wake         chan struct{}
	rescanWanted atomic.Bool

	// Loop-owned state; touched only by the coordinator goroutine.
	cameraWasReady bool
	importPending  bool
	lastScan       time.Time
	lastEventWait  time.Time
	pendingLedger  map[string]struct{}
	failedAt       map[string]time.Time
	reportedSkips  map[string]struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures optional Manager collaborators.
type Option func(*Manager)

// WithJournal records import and upload outcomes under runID.
func WithJournal(journal Journal, runID string) Option {
	return func(m *Manager) {
		m.journal = journal
		m.runID = runID
	}
}

// WithClock overrides the wall clock (primarily for tests).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a coordinator. The snapshot is shared with the
// pollers and observers; its Online field decides whether sweeps run.
func NewManager(cfg *config.Config, session DeviceSession, ledger Ledger, uploader Uploader, snapshot *status.Snapshot, logger *slog.Logger, opts ...Option) *Manager {
	if snapshot == nil {
		snapshot = status.New()
	}
	m := &Manager{
		cfg:            cfg,
		session:        session,
		ledger:         ledger,
		uploader:       uploader,
		snapshot:       snapshot,
		logger:         logging.NewComponentLogger(logger, "workflow"),
		importDir:      cfg.ImportDir(),
		now:            time.Now,
		loopInterval:   cfg.LoopInterval(),
		eventInterval:  cfg.EventInterval(),
		eventTimeout:   cfg.EventTimeout(),
		rescanInterval: cfg.RescanInterval(),
		uploadRetry:    cfg.UploadRetry(),
		wake:           make(chan struct{}, 1),
		pendingLedger:  make(map[string]struct{}),
		failedAt:       make(map[string]time.Time),
		reportedSkips:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns the shared status record.
func (m *Manager) Snapshot() *status.Snapshot {
	return m.snapshot
}

// Start launches the coordinator goroutine.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	if m.session == nil || m.ledger == nil || m.uploader == nil {
		return errors.New("workflow collaborators not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	go m.run(runCtx)
	return nil
}

// Stop cancels the loop and waits for the current iteration to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Running reports whether the loop is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Wake cuts the current sleep short and requests a full camera walk on the
// next iteration. Safe to call from any goroutine.
func (m *Manager) Wake() {
	m.rescanWanted.Store(true)
	m.nudge()
}

func (m *Manager) nudge() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// ClearImports deletes the image files in the import directory. Files
// already fetched this run are not fetched again.
func (m *Manager) ClearImports() (int, error) {
	removed, err := fileutil.ClearImages(m.importDir)
	if removed > 0 {
		m.logger.Info("import directory cleared", logging.Int("removed", removed))
	}
	m.nudge()
	return removed, err
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	m.logger.Info("coordinator started",
		logging.String(logging.FieldPath, m.importDir),
		logging.Duration("loop_interval", m.loopInterval),
	)
	for {
		if ctx.Err() != nil {
			m.logger.Info("coordinator stopped")
			return
		}
		m.iterate(ctx)

		timer := time.NewTimer(m.loopInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-m.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}
