// Package logging assembles the structured slog loggers used across the
// uploader.
//
// Records render as "[2006-01-02 15:04:05] component: message key=value" to
// the console and to log.txt. The kiosk runs at one of two verbosity levels:
// everything, or errors only (warnings included). A StreamHub keeps the
// latest records in memory for the operator screen and the status RPC.
//
// Prefer these constructors and attribute helpers over hand-rolled slog
// setup so every component emits the same field names.
package logging
