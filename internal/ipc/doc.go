// Package ipc exposes the running kiosk over JSON-RPC on a Unix domain
// socket and ships the matching client used by the CLI.
//
// The server depends only on the Backend interface so the daemon can
// register itself without an import cycle. Socket files are removed on
// start and on Close.
package ipc
