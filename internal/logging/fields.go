package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (e.g. "upload_failed").
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator's next step for a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldRunID identifies one kiosk process lifetime.
	FieldRunID = "run_id"
	// FieldFile is a local or remote file name.
	FieldFile = "file"
	// FieldFolder is a camera folder path.
	FieldFolder = "folder"
	// FieldPath is a local filesystem path.
	FieldPath = "path"
	// FieldDestination is a redacted remote address.
	FieldDestination = "destination"
	// FieldPhase is the coordinator phase.
	FieldPhase = "phase"
	// FieldAttempt is a 1-based retry attempt number.
	FieldAttempt = "attempt"
)
