package ipc

import (
	"uploader/internal/logging"
	"uploader/internal/status"
)

// StatusRequest requests the kiosk status.
type StatusRequest struct{}

// DependencyStatus reports one external tool.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail"`
}

// StatusResponse describes the running kiosk.
type StatusResponse struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	RunID        string             `json:"run_id"`
	StartedAt    string             `json:"started_at"`
	WorkDir      string             `json:"work_dir"`
	ImportDir    string             `json:"import_dir"`
	LedgerPath   string             `json:"ledger_path"`
	LockPath     string             `json:"lock_path"`
	Hotplug      bool               `json:"hotplug"`
	Snapshot     status.View        `json:"snapshot"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// LogTailRequest asks for recent log events. Limit <= 0 returns all retained.
type LogTailRequest struct {
	Limit int `json:"limit"`
}

// LogTailResponse carries recent log events, oldest first.
type LogTailResponse struct {
	Events []logging.LogEvent `json:"events"`
}

// RetryRequest asks the coordinator to run a full pass now.
type RetryRequest struct{}

// RetryResponse acknowledges a retry request.
type RetryResponse struct {
	Accepted bool `json:"accepted"`
}
