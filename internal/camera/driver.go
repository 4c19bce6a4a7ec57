package camera

import (
	"context"
	"time"
)

// Representation selects which rendition of a camera file to fetch.
type Representation int

const (
	// RepNormal is the full file as stored on the camera.
	RepNormal Representation = iota
	// RepPreview is the embedded preview or thumbnail.
	RepPreview
	// RepRaw is the unprocessed sensor data.
	RepRaw
)

// fetchOrder is the fallback sequence tried for every file.
var fetchOrder = []Representation{RepNormal, RepPreview, RepRaw}

func (r Representation) String() string {
	switch r {
	case RepPreview:
		return "preview"
	case RepRaw:
		return "raw"
	default:
		return "normal"
	}
}

// DeviceInfo describes an opened camera.
type DeviceInfo struct {
	Model string
	Port  string
}

// FileEntry is one file listed in a camera folder. Number is the driver's
// index within Folder.
type FileEntry struct {
	Folder string
	Name   string
	Number int
}

// EventKind identifies a device notification.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventFileAdded
	EventFolderAdded
	EventCaptureComplete
)

func (k EventKind) String() string {
	switch k {
	case EventFileAdded:
		return "file_added"
	case EventFolderAdded:
		return "folder_added"
	case EventCaptureComplete:
		return "capture_complete"
	default:
		return "unknown"
	}
}

// Event is a device-pushed notification.
type Event struct {
	Kind   EventKind
	Folder string
	Name   string
}

// Driver is the device-access collaborator. Implementations need not be
// safe for concurrent use; Session serializes every call.
type Driver interface {
	Open(ctx context.Context) (DeviceInfo, error)
	ListFolders(ctx context.Context, folder string) ([]string, error)
	ListFiles(ctx context.Context, folder string) ([]FileEntry, error)
	Fetch(ctx context.Context, entry FileEntry, rep Representation, dest string) error
	WaitEvent(ctx context.Context, timeout time.Duration) ([]Event, error)
	Close() error
}
