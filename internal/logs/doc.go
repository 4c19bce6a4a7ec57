// Package logs reads the kiosk's text log file.
//
// It returns the last N lines with bounded memory and follows the file as
// the kiosk appends to it. A follow that finds the file shorter than its
// offset starts again from the top, which is what `clear-log` does to it.
package logs
