package daemon

import (
	"context"
	"testing"

	"github.com/pilebones/go-udev/netlink"
)

func TestBuildUSBMatcher(t *testing.T) {
	matcher := buildUSBMatcher()
	if matcher == nil {
		t.Fatal("expected non-nil matcher")
	}

	add := netlink.UEvent{
		Action: netlink.ADD,
		Env:    map[string]string{"SUBSYSTEM": "usb", "DEVTYPE": "usb_device"},
	}
	if !matcher.Evaluate(add) {
		t.Error("expected matcher to accept usb device add")
	}

	remove := netlink.UEvent{
		Action: netlink.REMOVE,
		Env:    map[string]string{"SUBSYSTEM": "usb", "DEVTYPE": "usb_device"},
	}
	if !matcher.Evaluate(remove) {
		t.Error("expected matcher to accept usb device remove")
	}

	iface := netlink.UEvent{
		Action: netlink.ADD,
		Env:    map[string]string{"SUBSYSTEM": "usb", "DEVTYPE": "usb_interface"},
	}
	if matcher.Evaluate(iface) {
		t.Error("expected matcher to reject usb interface events")
	}

	block := netlink.UEvent{
		Action: netlink.ADD,
		Env:    map[string]string{"SUBSYSTEM": "block", "DEVTYPE": "disk"},
	}
	if matcher.Evaluate(block) {
		t.Error("expected matcher to reject block events")
	}
}

func TestHotplugHandleEventWakes(t *testing.T) {
	wakes := 0
	m := newHotplugMonitor(nil, func() { wakes++ })
	m.handleEvent(netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"PRODUCT": "4a9/32d4/0"}})
	if wakes != 1 {
		t.Fatalf("wakes = %d, want 1", wakes)
	}
}

func TestHotplugNilSafety(t *testing.T) {
	var m *hotplugMonitor
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start on nil monitor: %v", err)
	}
	m.Stop()
	if m.Running() {
		t.Fatal("nil monitor must not report running")
	}

	live := newHotplugMonitor(nil, nil)
	live.Stop()
	live.Stop()
	if live.Running() {
		t.Fatal("unstarted monitor must not report running")
	}
}
