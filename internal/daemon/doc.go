// Package daemon owns the kiosk process lifecycle.
//
// It takes a flock-based lock so only one kiosk runs per working directory,
// starts the pollers and the coordinator, listens for USB hotplug events on
// the udev netlink socket to wake the coordinator immediately, and answers
// IPC status queries. Individual steps stay in their own packages; the
// daemon only handles startup, shutdown and high level coordination.
package daemon
