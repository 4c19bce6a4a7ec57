package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shirou/gopsutil/process"

	"uploader/internal/logging"
)

// Evictor terminates processes competing for the camera. It returns how
// many processes were signalled.
type Evictor interface {
	Evict(ctx context.Context) (int, error)
}

// processHandle is the subset of *process.Process the evictor needs.
type processHandle interface {
	Pid() int32
	Name(ctx context.Context) (string, error)
	Kill(ctx context.Context) error
}

type gopsutilProcess struct {
	proc *process.Process
}

func (p gopsutilProcess) Pid() int32 { return p.proc.Pid }

func (p gopsutilProcess) Name(ctx context.Context) (string, error) {
	return p.proc.NameWithContext(ctx)
}

func (p gopsutilProcess) Kill(ctx context.Context) error {
	return p.proc.KillWithContext(ctx)
}

func listProcesses(ctx context.Context) ([]processHandle, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	handles := make([]processHandle, 0, len(procs))
	for _, p := range procs {
		handles = append(handles, gopsutilProcess{proc: p})
	}
	return handles, nil
}

// ProcessEvictor kills processes whose name matches one of a fixed list,
// typically the desktop automounters that grab PTP cameras.
type ProcessEvictor struct {
	names  map[string]struct{}
	self   int32
	list   func(ctx context.Context) ([]processHandle, error)
	logger *slog.Logger
}

// NewProcessEvictor builds an evictor for the given process names.
func NewProcessEvictor(names []string, logger *slog.Logger) *ProcessEvictor {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return &ProcessEvictor{
		names:  set,
		self:   int32(os.Getpid()),
		list:   listProcesses,
		logger: logging.NewComponentLogger(logger, "camera"),
	}
}

// Evict kills every matching process other than this one. Processes that
// vanish mid-scan are ignored.
func (e *ProcessEvictor) Evict(ctx context.Context) (int, error) {
	if e == nil || len(e.names) == 0 {
		return 0, nil
	}
	procs, err := e.list(ctx)
	if err != nil {
		return 0, fmt.Errorf("list processes: %w", err)
	}
	killed := 0
	var errs []error
	for _, p := range procs {
		if p.Pid() == e.self {
			continue
		}
		name, err := p.Name(ctx)
		if err != nil {
			continue
		}
		if _, ok := e.names[name]; !ok {
			continue
		}
		if err := p.Kill(ctx); err != nil {
			errs = append(errs, fmt.Errorf("kill %s (%d): %w", name, p.Pid(), err))
			continue
		}
		killed++
		logging.WarnWithContext(e.logger, "evicted process holding the camera", "camera_evicted",
			logging.String("process", name),
			logging.Int64("pid", int64(p.Pid())),
			logging.String(logging.FieldImpact, "competing process terminated"),
			logging.String(logging.FieldErrorHint, "disable desktop camera automount to avoid this"),
		)
	}
	return killed, errors.Join(errs...)
}
