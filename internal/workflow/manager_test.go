package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"uploader/internal/camera"
	"uploader/internal/config"
	"uploader/internal/history"
	"uploader/internal/ledger"
	"uploader/internal/status"
	"uploader/internal/testsupport"
)

type fakeSession struct {
	mu         sync.Mutex
	ready      bool
	acquireErr error
	acquires   int
	walks      int
	walkErr    error
	events     []camera.Event
	eventWaits int
}

func (s *fakeSession) Acquire(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquires++
	if s.acquireErr != nil {
		return s.acquireErr
	}
	s.ready = true
	return nil
}

func (s *fakeSession) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *fakeSession) Info() camera.DeviceInfo {
	return camera.DeviceInfo{Model: "Test Camera", Port: "usb:001,002"}
}

func (s *fakeSession) ListFilesRecursive(context.Context, string) (camera.ImportSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.walks++
	if s.walkErr != nil {
		s.ready = false
		return camera.ImportSummary{}, s.walkErr
	}
	return camera.ImportSummary{}, nil
}

func (s *fakeSession) WaitForEvent(context.Context, time.Duration) ([]camera.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventWaits++
	events := s.events
	s.events = nil
	return events, nil
}

type fakeUploader struct {
	mu    sync.Mutex
	fail  bool
	calls []string
}

func (u *fakeUploader) Upload(_ context.Context, localPath, remoteName string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, remoteName)
	return !u.fail
}

func (u *fakeUploader) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.calls)
}

type flakyLedger struct {
	*ledger.Ledger
	failures int
}

func (l *flakyLedger) MarkUploaded(name string) error {
	if l.failures > 0 {
		l.failures--
		return errors.New("no space left on device")
	}
	return l.Ledger.MarkUploaded(name)
}

type memoryJournal struct {
	events []history.Event
}

func (j *memoryJournal) Record(_ context.Context, evt history.Event) error {
	j.events = append(j.events, evt)
	return nil
}

func (j *memoryJournal) kinds() []history.Kind {
	kinds := make([]history.Kind, 0, len(j.events))
	for _, evt := range j.events {
		kinds = append(kinds, evt.Kind)
	}
	return kinds
}

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type harness struct {
	cfg      *config.Config
	session  *fakeSession
	uploader *fakeUploader
	ledger   *ledger.Ledger
	snapshot *status.Snapshot
	journal  *memoryJournal
	clock    *manualClock
	manager  *Manager
}

func newHarness(t *testing.T, online bool, ledgerImpl Ledger) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	h := &harness{
		cfg:      cfg,
		session:  &fakeSession{},
		uploader: &fakeUploader{},
		ledger:   ledger.Open(cfg.LedgerPath()),
		snapshot: status.New(),
		journal:  &memoryJournal{},
		clock:    &manualClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	h.snapshot.SetOnline(online)
	if ledgerImpl == nil {
		ledgerImpl = h.ledger
	}
	h.manager = NewManager(cfg, h.session, ledgerImpl, h.uploader, h.snapshot, nil,
		WithJournal(h.journal, "run-test"),
		WithClock(h.clock.Now),
	)
	return h
}

func (h *harness) importPath(name string) string {
	return filepath.Join(h.cfg.ImportDir(), name)
}

func TestUploadsNewImageAndRecordsLedger(t *testing.T) {
	h := newHarness(t, true, nil)
	testsupport.WriteJPEG(t, h.importPath("img001.jpg"))

	h.manager.iterate(context.Background())

	if !h.ledger.IsUploaded("img001.jpg") {
		t.Fatal("expected img001.jpg in ledger")
	}
	if h.snapshot.Uploaded() != 1 {
		t.Fatalf("uploaded = %d, want 1", h.snapshot.Uploaded())
	}
	if h.snapshot.Imported() != 1 {
		t.Fatalf("imported = %d, want 1", h.snapshot.Imported())
	}
	if h.snapshot.Phase() != status.PhaseWaiting {
		t.Fatalf("phase = %s, want waiting", h.snapshot.Phase())
	}
	if h.uploader.count() != 1 || h.uploader.calls[0] != "img001.jpg" {
		t.Fatalf("uploads = %v", h.uploader.calls)
	}
	entries, err := h.ledger.Entries()
	if err != nil || len(entries) != 1 {
		t.Fatalf("ledger entries = %v, err = %v", entries, err)
	}
}

func TestRepeatedSweepsAreIdempotent(t *testing.T) {
	h := newHarness(t, true, nil)
	testsupport.WriteJPEG(t, h.importPath("img001.jpg"))
	testsupport.WriteJPEG(t, h.importPath("img002.JPEG"))

	for i := 0; i < 3; i++ {
		h.manager.iterate(context.Background())
	}

	if h.uploader.count() != 2 {
		t.Fatalf("uploads = %v, want two transfers total", h.uploader.calls)
	}
	entries, err := h.ledger.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ledger entries = %v, want 2", entries)
	}
}

func TestOfflineWithDeviceIsImportOnly(t *testing.T) {
	h := newHarness(t, false, nil)
	testsupport.WriteJPEG(t, h.importPath("img001.jpg"))

	h.manager.iterate(context.Background())

	if h.snapshot.Phase() != status.PhaseImportOnlyNoNetwork {
		t.Fatalf("phase = %s, want import_only_no_network", h.snapshot.Phase())
	}
	if h.uploader.count() != 0 {
		t.Fatalf("expected zero transfers, got %v", h.uploader.calls)
	}
	if h.session.walks != 1 {
		t.Fatalf("walks = %d, want import to run offline", h.session.walks)
	}
}

func TestNoDeviceOfflineReportsNoDevice(t *testing.T) {
	h := newHarness(t, false, nil)
	h.session.acquireErr = &camera.DeviceError{Kind: camera.KindAbsent, Op: "open"}

	h.manager.iterate(context.Background())

	if h.snapshot.Phase() != status.PhaseNoDevice {
		t.Fatalf("phase = %s, want no_device", h.snapshot.Phase())
	}
	if h.snapshot.CameraReady() {
		t.Fatal("camera must not be ready")
	}
}

func TestUploadsContinueWithoutCamera(t *testing.T) {
	h := newHarness(t, true, nil)
	h.session.acquireErr = &camera.DeviceError{Kind: camera.KindAbsent, Op: "open"}
	testsupport.WriteJPEG(t, h.importPath("img001.jpg"))

	h.manager.iterate(context.Background())

	if h.uploader.count() != 1 {
		t.Fatalf("uploads = %v", h.uploader.calls)
	}
	if h.snapshot.Phase() != status.PhaseNoDevice {
		t.Fatalf("phase = %s, want no_device", h.snapshot.Phase())
	}
}

func TestCountersReflectDurableStateAfterRestart(t *testing.T) {
	h := newHarness(t, false, nil)
	h.session.acquireErr = &camera.DeviceError{Kind: camera.KindAbsent}
	for _, name := range []string{"a.jpg", "b.JPG", "c.jpeg"} {
		testsupport.WriteJPEG(t, h.importPath(name))
	}
	testsupport.WriteFile(t, h.importPath("notes.png"), 4)
	for _, name := range []string{"a.jpg", "b.JPG"} {
		if err := h.ledger.MarkUploaded(name); err != nil {
			t.Fatalf("seed ledger: %v", err)
		}
	}

	h.manager.iterate(context.Background())

	if h.snapshot.Imported() != 3 {
		t.Fatalf("imported = %d, want 3", h.snapshot.Imported())
	}
	if h.snapshot.Uploaded() != 2 {
		t.Fatalf("uploaded = %d, want 2", h.snapshot.Uploaded())
	}
}

func TestLedgerFailureDoesNotResend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	flaky := &flakyLedger{Ledger: ledger.Open(cfg.LedgerPath()), failures: 1}
	h := newHarness(t, true, flaky)
	h.ledger = flaky.Ledger
	testsupport.WriteJPEG(t, h.importPath("img001.jpg"))

	h.manager.iterate(context.Background())

	if h.uploader.count() != 1 {
		t.Fatalf("uploads = %v", h.uploader.calls)
	}
	if h.snapshot.Uploaded() != 0 {
		t.Fatalf("uploaded = %d, want 0 until the ledger write lands", h.snapshot.Uploaded())
	}
	if h.manager.PendingLedger() != 1 {
		t.Fatalf("pending ledger = %d, want 1", h.manager.PendingLedger())
	}

	h.manager.iterate(context.Background())

	if h.uploader.count() != 1 {
		t.Fatalf("file was sent again: %v", h.uploader.calls)
	}
	if !flaky.IsUploaded("img001.jpg") {
		t.Fatal("expected ledger append on retry")
	}
	if h.snapshot.Uploaded() != 1 || h.manager.PendingLedger() != 0 {
		t.Fatalf("uploaded = %d pending = %d", h.snapshot.Uploaded(), h.manager.PendingLedger())
	}
}

func TestFailedUploadWaitsForRetryInterval(t *testing.T) {
	h := newHarness(t, true, nil)
	h.uploader.fail = true
	testsupport.WriteJPEG(t, h.importPath("img001.jpg"))

	h.manager.iterate(context.Background())
	h.manager.iterate(context.Background())
	if h.uploader.count() != 1 {
		t.Fatalf("uploads = %d, want retry held back", h.uploader.count())
	}

	h.uploader.fail = false
	h.clock.Advance(h.cfg.UploadRetry())
	h.manager.iterate(context.Background())
	if h.uploader.count() != 2 || !h.ledger.IsUploaded("img001.jpg") {
		t.Fatalf("uploads = %v, ledger has file = %v", h.uploader.calls, h.ledger.IsUploaded("img001.jpg"))
	}
}

func TestImportRunsEveryIterationByDefault(t *testing.T) {
	h := newHarness(t, true, nil)
	for i := 1; i <= 3; i++ {
		h.manager.iterate(context.Background())
		if h.session.walks != i {
			t.Fatalf("walks after iteration %d = %d", i, h.session.walks)
		}
	}
}

func TestImportRunsOnAcquireEventAndRescan(t *testing.T) {
	h := newHarness(t, true, nil)
	h.manager.rescanInterval = 30 * time.Second

	h.manager.iterate(context.Background())
	if h.session.walks != 1 {
		t.Fatalf("walks after acquire = %d, want 1", h.session.walks)
	}

	h.manager.iterate(context.Background())
	if h.session.walks != 1 {
		t.Fatalf("walks without trigger = %d, want 1", h.session.walks)
	}

	h.clock.Advance(h.cfg.EventInterval())
	h.session.events = []camera.Event{{Kind: camera.EventFileAdded, Folder: "/DCIM", Name: "img009.jpg"}}
	h.manager.iterate(context.Background())
	h.manager.iterate(context.Background())
	if h.session.walks != 2 {
		t.Fatalf("walks after FILEADDED = %d, want 2", h.session.walks)
	}

	h.clock.Advance(h.manager.rescanInterval)
	h.manager.iterate(context.Background())
	if h.session.walks != 3 {
		t.Fatalf("walks after rescan interval = %d, want 3", h.session.walks)
	}

	h.manager.Wake()
	h.manager.iterate(context.Background())
	if h.session.walks != 4 {
		t.Fatalf("walks after wake = %d, want 4", h.session.walks)
	}
}

func TestEventWaitsHonorInterval(t *testing.T) {
	h := newHarness(t, true, nil)
	for i := 0; i < 3; i++ {
		h.manager.iterate(context.Background())
	}
	if h.session.eventWaits != 1 {
		t.Fatalf("event waits = %d, want 1 within the interval", h.session.eventWaits)
	}
	h.clock.Advance(h.cfg.EventInterval())
	h.manager.iterate(context.Background())
	if h.session.eventWaits != 2 {
		t.Fatalf("event waits = %d, want 2", h.session.eventWaits)
	}
}

func TestWalkFailureClosesCameraAndJournals(t *testing.T) {
	h := newHarness(t, true, nil)
	h.session.walkErr = &camera.DeviceError{Kind: camera.KindOther, Code: -7}

	h.manager.iterate(context.Background())

	if h.snapshot.CameraReady() {
		t.Fatal("camera must be reported closed")
	}
	if h.snapshot.Phase() != status.PhaseNoDevice {
		t.Fatalf("phase = %s, want no_device", h.snapshot.Phase())
	}
	kinds := h.journal.kinds()
	if len(kinds) != 2 || kinds[0] != history.KindCameraAttached || kinds[1] != history.KindCameraLost {
		t.Fatalf("journal kinds = %v", kinds)
	}
	if h.journal.events[0].RunID != "run-test" {
		t.Fatalf("run id = %q", h.journal.events[0].RunID)
	}
}

func TestObserveFetchJournalsImports(t *testing.T) {
	h := newHarness(t, true, nil)
	h.manager.ObserveFetch(camera.FetchResult{
		Status:         camera.FetchImported,
		Name:           "img001.jpg",
		Path:           h.importPath("img001.jpg"),
		Representation: camera.RepNormal,
		MIME:           "image/jpeg",
	})
	h.manager.ObserveFetch(camera.FetchResult{Status: camera.FetchSkippedExists, Name: "img002.jpg"})

	if len(h.journal.events) != 1 || h.journal.events[0].File != "img001.jpg" {
		t.Fatalf("journal = %+v", h.journal.events)
	}
	if h.snapshot.LastImport().IsZero() {
		t.Fatal("expected last import time")
	}
}

func TestClearImportsRemovesImages(t *testing.T) {
	h := newHarness(t, true, nil)
	testsupport.WriteJPEG(t, h.importPath("img001.jpg"))
	testsupport.WriteFile(t, h.importPath("shot.png"), 4)
	testsupport.WriteFile(t, h.importPath("clip.mov"), 4)

	removed, err := h.manager.ClearImports()
	if err != nil {
		t.Fatalf("ClearImports: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
}

func TestStartStop(t *testing.T) {
	h := newHarness(t, true, nil)
	testsupport.WriteJPEG(t, h.importPath("img001.jpg"))

	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.manager.Start(context.Background()); err == nil {
		t.Fatal("expected error on second Start")
	}

	deadline := time.Now().Add(2 * time.Second)
	for !h.ledger.IsUploaded("img001.jpg") {
		if time.Now().After(deadline) {
			t.Fatal("coordinator never uploaded the file")
		}
		time.Sleep(5 * time.Millisecond)
	}
	h.manager.Stop()
	h.manager.Stop()
	if h.manager.Running() {
		t.Fatal("expected stopped manager")
	}
}
