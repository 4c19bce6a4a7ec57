// Package workflow runs the import/upload coordinator.
//
// A single Manager goroutine owns the loop: acquire the camera when it is
// not open, walk it for new files when an import is pending, recount the
// import directory and ledger, wait briefly for device events on a fixed
// cadence, and sweep the import directory to the remote endpoint while the
// network is reachable. Only the manager sets the snapshot phase; pollers
// own their own snapshot fields.
//
// Absent and busy devices are retried forever. Enumeration and transfer
// failures are logged and the affected file is picked up on a later pass.
// A file whose ledger append failed after a successful transfer is kept in
// memory and only the append is retried, so it is never sent twice by the
// same process.
package workflow
