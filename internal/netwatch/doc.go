// Package netwatch tracks network reachability and wireless signal strength
// for the kiosk and wraps nmcli for joining Wi-Fi networks.
//
// Both pollers run on their own goroutine and publish into small sink
// interfaces (satisfied by *status.Snapshot) so the coordinator and the
// screen read the latest value without waiting on a probe.
package netwatch
