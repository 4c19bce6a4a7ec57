// Package history keeps a SQLite journal of import and upload outcomes.
//
// The journal is informational: the ledger file remains the authority on
// what has been delivered. Rows carry the run_id of the process that wrote
// them so the history command can group one kiosk session's activity.
// Writes retry briefly on SQLITE_BUSY and old rows are pruned beyond the
// configured retention.
package history
