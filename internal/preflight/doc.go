// Package preflight provides readiness checks for the tools, directories
// and remote endpoint the kiosk depends on.
//
// The doctor command renders every result; the daemon runs the same checks
// at startup and logs failures without refusing to start, since a missing
// camera tool or unreachable server can be fixed while the kiosk runs.
package preflight
