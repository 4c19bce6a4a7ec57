package status

import (
	"sync/atomic"
	"time"
)

// Phase is the coordinator's current activity.
type Phase int32

const (
	PhaseNoDevice Phase = iota
	PhaseWaiting
	PhaseImporting
	PhaseUploading
	PhaseImportOnlyNoNetwork
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseImporting:
		return "importing"
	case PhaseUploading:
		return "uploading"
	case PhaseImportOnlyNoNetwork:
		return "import_only_no_network"
	default:
		return "no_device"
	}
}

// Text is the operator-facing description of the phase.
func (p Phase) Text() string {
	switch p {
	case PhaseWaiting:
		return "Waiting for images"
	case PhaseImporting:
		return "Importing images"
	case PhaseUploading:
		return "Uploading images"
	case PhaseImportOnlyNoNetwork:
		return "Import only: no network"
	default:
		return "No camera detected"
	}
}

// ParsePhase maps a String() value back to a Phase.
func ParsePhase(value string) (Phase, bool) {
	for p := PhaseNoDevice; p <= PhaseImportOnlyNoNetwork; p++ {
		if p.String() == value {
			return p, true
		}
	}
	return PhaseNoDevice, false
}

// Snapshot is the shared status record. The zero value is ready to use and
// reports no device, no network and zero counters.
type Snapshot struct {
	imported    atomic.Int64
	uploaded    atomic.Int64
	phase       atomic.Int32
	cameraReady atomic.Bool
	model       atomic.Value
	online      atomic.Bool
	signal      atomic.Int32
	lastUpload  atomic.Int64
	lastImport  atomic.Int64
}

// New returns an empty snapshot.
func New() *Snapshot {
	return &Snapshot{}
}

func (s *Snapshot) SetImported(n int) { s.imported.Store(int64(n)) }
func (s *Snapshot) Imported() int { return int(s.imported.Load()) }
func (s *Snapshot) SetUploaded(n int) { s.uploaded.Store(int64(n)) }
func (s *Snapshot) Uploaded() int { return int(s.uploaded.Load()) }
func (s *Snapshot) SetPhase(p Phase) { s.phase.Store(int32(p)) }
func (s *Snapshot) Phase() Phase { return Phase(s.phase.Load()) }
func (s *Snapshot) SetOnline(ok bool) { s.online.Store(ok) }
func (s *Snapshot) Online() bool { return s.online.Load() }
func (s *Snapshot) CameraReady() bool { return s.cameraReady.Load() }

// SetCamera records whether a device is open and its model name.
func (s *Snapshot) SetCamera(ready bool, model string) {
	s.cameraReady.Store(ready)
	s.model.Store(model)
}

// CameraModel returns the last recorded model, or "" when none is open.
func (s *Snapshot) CameraModel() string {
	model, _ := s.model.Load().(string)
	return model
}

// SetSignal stores wireless strength in percent, clamped to 0..100.
func (s *Snapshot) SetSignal(percent int) {
	s.signal.Store(int32(clampPercent(percent)))
}

func (s *Snapshot) Signal() int { return int(s.signal.Load()) }

// SignalBars maps the stored strength to 0..4 bars.
func (s *Snapshot) SignalBars() int { return Bars(s.Signal()) }

// MarkUploaded records the time of the latest successful transfer.
func (s *Snapshot) MarkUploaded(at time.Time) { s.lastUpload.Store(at.UnixNano()) }

// MarkImported records the time of the latest successful fetch.
func (s *Snapshot) MarkImported(at time.Time) { s.lastImport.Store(at.UnixNano()) }

// LastUpload returns the zero time when nothing was uploaded this run.
func (s *Snapshot) LastUpload() time.Time { return unixOrZero(s.lastUpload.Load()) }

// LastImport returns the zero time when nothing was imported this run.
func (s *Snapshot) LastImport() time.Time { return unixOrZero(s.lastImport.Load()) }

// View is a plain copy of the snapshot for rendering and serialization.
type View struct {
	Imported    int       `json:"imported"`
	Uploaded    int       `json:"uploaded"`
	Phase       string    `json:"phase"`
	PhaseText   string    `json:"phase_text"`
	CameraReady bool      `json:"camera_ready"`
	CameraModel string    `json:"camera_model,omitempty"`
	Online      bool      `json:"online"`
	Signal      int       `json:"signal"`
	SignalBars  int       `json:"signal_bars"`
	LastImport  time.Time `json:"last_import,omitzero"`
	LastUpload  time.Time `json:"last_upload,omitzero"`
}

// Read copies every field.
func (s *Snapshot) Read() View {
	phase := s.Phase()
	signal := s.Signal()
	return View{
		Imported:    s.Imported(),
		Uploaded:    s.Uploaded(),
		Phase:       phase.String(),
		PhaseText:   phase.Text(),
		CameraReady: s.CameraReady(),
		CameraModel: s.CameraModel(),
		Online:      s.Online(),
		Signal:      signal,
		SignalBars:  Bars(signal),
		LastImport:  s.LastImport(),
		LastUpload:  s.LastUpload(),
	}
}

// Bars maps a strength percentage to the 4-bar indicator. Any non-zero
// strength shows at least one bar.
func Bars(percent int) int {
	switch {
	case percent > 75:
		return 4
	case percent > 50:
		return 3
	case percent > 25:
		return 2
	case percent > 0:
		return 1
	default:
		return 0
	}
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func unixOrZero(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
