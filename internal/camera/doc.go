// Package camera owns the attached camera: acquiring it (including evicting
// competing holders), walking its folder tree, fetching new files into the
// import directory exactly once per process, and waiting for device events.
//
// Device access goes through a Driver. The production driver shells out to
// gphoto2; tests substitute scripted fakes. A Session serializes every driver
// call behind one mutex and tears the handle down whenever a call fails with
// a device-level error, so the next caller re-acquires from scratch.
package camera
