package workflow

import (
	"context"
	"path/filepath"

	"uploader/internal/fileutil"
	"uploader/internal/history"
	"uploader/internal/logging"
	"uploader/internal/status"
)

// SweepResult tallies one upload sweep.
type SweepResult struct {
	Uploaded      int
	Failed        int
	LedgerPending int
}

// sweep delivers every candidate not yet in the ledger. A name is appended
// to the ledger only after its transfer succeeded.
func (m *Manager) sweep(ctx context.Context) SweepResult {
	var result SweepResult
	listing, err := fileutil.ListImports(m.importDir)
	if err != nil {
		logging.ErrorWithContext(m.logger, "list import directory failed", "import_list_failed",
			logging.String(logging.FieldPath, m.importDir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the import directory exists and is readable"),
		)
		return result
	}
	m.reportSkipped(listing.Skipped)

	for _, name := range listing.Candidates {
		if ctx.Err() != nil {
			return result
		}
		if _, pending := m.pendingLedger[name]; pending {
			if m.commitLedger(name) {
				result.Uploaded++
			} else {
				result.LedgerPending++
			}
			continue
		}
		if m.ledger.IsUploaded(name) {
			continue
		}
		if at, failed := m.failedAt[name]; failed && m.now().Sub(at) < m.uploadRetry {
			continue
		}

		m.setPhase(status.PhaseUploading)
		localPath := filepath.Join(m.importDir, name)
		if !m.uploader.Upload(ctx, localPath, name) {
			if ctx.Err() != nil {
				return result
			}
			m.failedAt[name] = m.now()
			result.Failed++
			m.record(history.Event{Kind: history.KindUploadFailed, File: name})
			continue
		}
		delete(m.failedAt, name)
		if m.commitLedger(name) {
			result.Uploaded++
		} else {
			m.pendingLedger[name] = struct{}{}
			result.LedgerPending++
		}
	}
	return result
}

// commitLedger appends name and reports whether the write is durable.
func (m *Manager) commitLedger(name string) bool {
	if err := m.ledger.MarkUploaded(name); err != nil {
		if _, already := m.pendingLedger[name]; !already {
			logging.ErrorWithContext(m.logger, "ledger write failed after upload", "ledger_write_failed",
				logging.String(logging.FieldFile, name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check disk space and permissions on .track.txt"),
				logging.String(logging.FieldImpact, "the append is retried; the file is not sent again"),
			)
			m.record(history.Event{Kind: history.KindLedgerFailed, File: name, Detail: err.Error()})
		}
		return false
	}
	delete(m.pendingLedger, name)
	m.snapshot.MarkUploaded(m.now())
	m.record(history.Event{Kind: history.KindUploaded, File: name})
	return true
}

func (m *Manager) reportSkipped(names []string) {
	for _, name := range names {
		if _, seen := m.reportedSkips[name]; seen {
			continue
		}
		m.reportedSkips[name] = struct{}{}
		m.logger.Info("skipping non-JPEG file", logging.String(logging.FieldFile, name))
	}
}

// PendingLedger returns how many delivered files still await a durable
// ledger append. It must be called from the coordinator or after Stop.
func (m *Manager) PendingLedger() int {
	return len(m.pendingLedger)
}
