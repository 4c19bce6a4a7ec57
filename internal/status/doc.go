// Package status holds the process-wide snapshot the coordinator and the
// pollers publish into and the screen and IPC server read from.
//
// Every field is an independent atomic cell. Readers never block writers and
// never observe a torn value, though a read of several fields is not a
// consistent cut across them.
package status
