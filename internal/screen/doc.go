// Package screen renders the kiosk status display.
//
// The model reads the shared status snapshot and the log stream hub on a
// fixed tick and never mutates either. Operator keys are forwarded to a
// Controller: c clears the import directory after a y confirmation, r asks
// the coordinator to retry immediately and q quits.
package screen
