package workflow

import (
	"context"
	"path/filepath"

	"uploader/internal/camera"
	"uploader/internal/fileutil"
	"uploader/internal/history"
	"uploader/internal/logging"
	"uploader/internal/status"
)

// cameraRoot is where every recursive walk starts.
const cameraRoot = "/"

// iterate runs one coordinator pass. Import always precedes the sweep.
func (m *Manager) iterate(ctx context.Context) {
	if m.rescanWanted.Swap(false) {
		m.importPending = true
	}

	m.ensureSession(ctx)
	if ctx.Err() != nil {
		return
	}

	if m.session.Ready() && m.importDue() {
		m.runImport(ctx)
		if ctx.Err() != nil {
			return
		}
	}
	m.recount()

	if m.session.Ready() && m.eventDue() {
		m.waitForEvent(ctx)
		if ctx.Err() != nil {
			return
		}
	}

	online := m.snapshot.Online()
	if online {
		m.sweep(ctx)
		if ctx.Err() != nil {
			return
		}
	}

	ready := m.session.Ready()
	m.publishCamera(ready)
	switch {
	case ready && !online:
		m.setPhase(status.PhaseImportOnlyNoNetwork)
	case ready:
		m.setPhase(status.PhaseWaiting)
	default:
		m.setPhase(status.PhaseNoDevice)
	}
	m.recount()
}

func (m *Manager) ensureSession(ctx context.Context) {
	if m.session.Ready() {
		return
	}
	m.publishCamera(false)
	if err := m.session.Acquire(ctx); err != nil {
		if ctx.Err() == nil && !camera.IsAbsent(err) {
			m.logger.Debug("camera not acquired", logging.Error(err))
		}
		return
	}
	m.importPending = true
	m.publishCamera(true)
}

func (m *Manager) importDue() bool {
	if m.importPending {
		return true
	}
	return m.lastScan.IsZero() || m.now().Sub(m.lastScan) >= m.rescanInterval
}

func (m *Manager) eventDue() bool {
	return m.lastEventWait.IsZero() || m.now().Sub(m.lastEventWait) >= m.eventInterval
}

// publishCamera mirrors session readiness into the snapshot and records
// attach/detach transitions.
func (m *Manager) publishCamera(ready bool) {
	info := camera.DeviceInfo{}
	if ready {
		info = m.session.Info()
	}
	m.snapshot.SetCamera(ready, info.Model)
	if ready == m.cameraWasReady {
		return
	}
	m.cameraWasReady = ready
	if ready {
		m.record(history.Event{Kind: history.KindCameraAttached, Detail: info.Model})
		return
	}
	m.logger.Info("camera session closed")
	m.record(history.Event{Kind: history.KindCameraLost})
}

func (m *Manager) runImport(ctx context.Context) {
	if m.snapshot.Online() {
		m.setPhase(status.PhaseImporting)
	} else {
		m.setPhase(status.PhaseImportOnlyNoNetwork)
	}

	summary, err := m.session.ListFilesRecursive(ctx, cameraRoot)
	m.lastScan = m.now()
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Info("import pass interrupted",
				logging.Int("imported", summary.Imported),
				logging.Error(err),
			)
		}
		m.publishCamera(m.session.Ready())
		return
	}
	m.importPending = false
	if summary.Imported > 0 || summary.Failed > 0 {
		m.logger.Info("import pass complete",
			logging.Int("imported", summary.Imported),
			logging.Int("skipped", summary.Skipped),
			logging.Int("failed", summary.Failed),
		)
	}
}

func (m *Manager) waitForEvent(ctx context.Context) {
	m.lastEventWait = m.now()
	events, err := m.session.WaitForEvent(ctx, m.eventTimeout)
	if err != nil {
		m.publishCamera(m.session.Ready())
		return
	}
	for _, evt := range events {
		if evt.Kind == camera.EventFileAdded || evt.Kind == camera.EventFolderAdded {
			m.importPending = true
		}
	}
}

// ObserveFetch records a camera fetch outcome; it is passed to the session
// as its fetch observer.
func (m *Manager) ObserveFetch(result camera.FetchResult) {
	switch result.Status {
	case camera.FetchImported:
		m.snapshot.MarkImported(m.now())
		m.record(history.Event{
			Kind:   history.KindImported,
			File:   filepath.Base(result.Path),
			Detail: result.Representation.String() + " " + result.MIME,
		})
	case camera.FetchFailed:
		m.record(history.Event{Kind: history.KindImportFailed, File: result.Name, Detail: result.Folder})
	}
}

// recount refreshes the counters from the import directory and the ledger.
// A failed read keeps the previous value.
func (m *Manager) recount() {
	if imported, err := fileutil.CountImports(m.importDir); err == nil {
		m.snapshot.SetImported(imported)
	} else {
		m.logger.Debug("count imports failed", logging.Error(err))
	}
	if uploaded, err := m.ledger.Count(); err == nil {
		m.snapshot.SetUploaded(uploaded)
	} else {
		m.logger.Debug("count ledger failed", logging.Error(err))
	}
}

func (m *Manager) setPhase(phase status.Phase) {
	if m.snapshot.Phase() == phase {
		return
	}
	m.snapshot.SetPhase(phase)
	m.logger.Debug("phase changed", logging.String(logging.FieldPhase, phase.String()))
}

func (m *Manager) record(evt history.Event) {
	if m.journal == nil {
		return
	}
	evt.RunID = m.runID
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = m.now()
	}
	if err := m.journal.Record(context.Background(), evt); err != nil {
		logging.WarnWithContext(m.logger, "history write failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history command output incomplete"),
			logging.String(logging.FieldErrorHint, "check permissions on history.db"),
		)
	}
}
