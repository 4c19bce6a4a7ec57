package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"uploader/internal/fileutil"
	"uploader/internal/logging"
)

// Presence is the last known classification of the attached device.
type Presence int32

const (
	PresenceAbsent Presence = iota
	PresenceUnresponsive
	PresenceReady
	PresenceBusy
)

func (p Presence) String() string {
	switch p {
	case PresenceUnresponsive:
		return "unresponsive"
	case PresenceReady:
		return "ready"
	case PresenceBusy:
		return "busy"
	default:
		return "absent"
	}
}

func presenceFor(kind ErrorKind) Presence {
	switch kind {
	case KindAbsent:
		return PresenceAbsent
	case KindBusy:
		return PresenceBusy
	default:
		return PresenceUnresponsive
	}
}

// FetchStatus is the outcome of one FetchOne call.
type FetchStatus int

const (
	FetchImported FetchStatus = iota
	FetchSkippedExists
	FetchFailed
)

func (s FetchStatus) String() string {
	switch s {
	case FetchImported:
		return "imported"
	case FetchSkippedExists:
		return "skipped_exists"
	default:
		return "failed"
	}
}

// FetchResult describes one FetchOne outcome.
type FetchResult struct {
	Status         FetchStatus
	Folder         string
	Name           string
	Path           string
	Representation Representation
	MIME           string
	Size           int64
}

// ImportSummary tallies one recursive pass.
type ImportSummary struct {
	Imported int
	Skipped  int
	Failed   int
	Known    int
}

// SleepFunc waits for d or until ctx ends.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithAcquirePolicy sets the acquire retry bound and linear backoff unit.
func WithAcquirePolicy(attempts int, backoff time.Duration) SessionOption {
	return func(s *Session) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if backoff >= 0 {
			s.backoff = backoff
		}
	}
}

// WithSleep overrides the backoff sleep (primarily for tests).
func WithSleep(fn SleepFunc) SessionOption {
	return func(s *Session) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// WithFetchObserver registers a callback invoked after every fetch outcome.
// It runs with the session lock held and must not call back into the session.
func WithFetchObserver(fn func(FetchResult)) SessionOption {
	return func(s *Session) {
		s.observe = fn
	}
}

// Session owns the camera handle and the set of files fetched this run.
type Session struct {
	driver    Driver
	evictor   Evictor
	importDir string
	attempts  int
	backoff   time.Duration
	sleep     SleepFunc
	observe   func(FetchResult)
	logger    *slog.Logger

	mu         sync.Mutex
	ready      bool
	info       DeviceInfo
	downloaded map[string]struct{}

	presence  atomic.Int32
	published atomic.Bool
}

// NewSession constructs a session writing fetched files into importDir.
// evictor may be nil when busy resolution is not wanted.
func NewSession(driver Driver, evictor Evictor, importDir string, logger *slog.Logger, opts ...SessionOption) *Session {
	s := &Session{
		driver:     driver,
		evictor:    evictor,
		importDir:  importDir,
		attempts:   5,
		backoff:    time.Second,
		sleep:      sleepContext,
		logger:     logging.NewComponentLogger(logger, "camera"),
		downloaded: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready reports whether the handle is initialized.
func (s *Session) Ready() bool {
	return s.published.Load()
}

// Presence returns the last known device classification without blocking
// on in-flight device calls.
func (s *Session) Presence() Presence {
	return Presence(s.presence.Load())
}

// Info returns the opened device description.
func (s *Session) Info() DeviceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// DownloadedCount returns the size of the fetched-this-run set.
func (s *Session) DownloadedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.downloaded)
}

func (s *Session) setPresence(p Presence) {
	s.presence.Store(int32(p))
}

// Acquire opens the device if it is not already open. Busy and fault results
// are retried up to the configured bound, sleeping attempt*backoff between
// tries with the lock released. A busy device is torn down and competing
// holders are evicted before the next try. An absent device returns at once.
func (s *Session) Acquire(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.tryAcquire(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch KindOf(err) {
		case KindAbsent:
			s.logger.Debug("no camera attached")
			return err
		case KindBusy:
			logging.WarnWithContext(s.logger, "camera busy", "camera_busy",
				logging.Int(logging.FieldAttempt, attempt),
				logging.Error(err),
				logging.String(logging.FieldImpact, "evicting competing device holders"),
			)
			s.evict(ctx)
		default:
			logging.ErrorWithContext(s.logger, "camera acquire failed", "camera_acquire_failed",
				logging.Int(logging.FieldAttempt, attempt),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "reconnect the camera or check the USB cable"),
			)
		}

		if attempt < s.attempts {
			if err := s.sleep(ctx, time.Duration(attempt)*s.backoff); err != nil {
				return err
			}
		}
	}
	return lastErr
}

func (s *Session) tryAcquire(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	info, err := s.driver.Open(ctx)
	if err != nil {
		_ = s.driver.Close()
		s.setPresence(presenceFor(KindOf(err)))
		return err
	}
	s.ready = true
	s.info = info
	s.published.Store(true)
	s.setPresence(PresenceReady)
	s.logger.Info("camera detected",
		logging.String("model", info.Model),
		logging.String("port", info.Port),
	)
	return nil
}

func (s *Session) evict(ctx context.Context) {
	if s.evictor == nil {
		return
	}
	if _, err := s.evictor.Evict(ctx); err != nil {
		logging.WarnWithContext(s.logger, "camera eviction incomplete", "camera_evict_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "acquire may keep reporting busy"),
		)
	}
}

// Evict performs best-effort busy resolution outside the acquire loop, for
// example during shutdown.
func (s *Session) Evict(ctx context.Context) {
	s.evict(ctx)
}

// Release tears down the handle. The downloaded set is kept.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
}

// invalidateLocked tears down after a failed device call.
func (s *Session) invalidateLocked(err error) {
	s.teardownLocked()
	s.setPresence(presenceFor(KindOf(err)))
}

func (s *Session) teardownLocked() {
	if s.ready {
		_ = s.driver.Close()
	}
	s.ready = false
	s.info = DeviceInfo{}
	s.published.Store(false)
}

// errNotReady is returned by device operations on a torn-down session.
var errNotReady = &DeviceError{Kind: KindOther, Op: "session", Message: "camera not acquired"}

// ListFilesRecursive walks root depth-first, descending into subfolders
// before handling the files of each folder, and fetches every file not
// already fetched this run. Any enumeration failure, or a device-level fetch
// failure, tears the session down and is returned.
func (s *Session) ListFilesRecursive(ctx context.Context, root string) (ImportSummary, error) {
	if root == "" {
		root = "/"
	}
	var summary ImportSummary
	err := s.walk(ctx, root, &summary)
	return summary, err
}

func (s *Session) walk(ctx context.Context, folder string, summary *ImportSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subfolders, err := s.listFolders(ctx, folder)
	if err != nil {
		return err
	}
	for _, sub := range subfolders {
		if err := s.walk(ctx, sub, summary); err != nil {
			return err
		}
	}

	files, err := s.listFiles(ctx, folder)
	if err != nil {
		return err
	}
	for _, entry := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.importEntry(ctx, entry, summary); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) listFolders(ctx context.Context, folder string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, errNotReady
	}
	folders, err := s.driver.ListFolders(ctx, folder)
	if err != nil {
		s.invalidateLocked(err)
		s.logEnumerationFailure(folder, err)
		return nil, fmt.Errorf("list folders in %s: %w", folder, err)
	}
	return folders, nil
}

func (s *Session) listFiles(ctx context.Context, folder string) ([]FileEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, errNotReady
	}
	files, err := s.driver.ListFiles(ctx, folder)
	if err != nil {
		s.invalidateLocked(err)
		s.logEnumerationFailure(folder, err)
		return nil, fmt.Errorf("list files in %s: %w", folder, err)
	}
	return files, nil
}

func (s *Session) logEnumerationFailure(folder string, err error) {
	if IsAbsent(err) {
		s.logger.Info("camera disconnected during enumeration", logging.String(logging.FieldFolder, folder))
		return
	}
	logging.ErrorWithContext(s.logger, "camera enumeration failed", "camera_enumeration_failed",
		logging.String(logging.FieldFolder, folder),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "the session is reopened on the next iteration"),
	)
}

// importEntry checks and extends the downloaded set under one lock hold so
// no file is fetched twice in a run.
func (s *Session) importEntry(ctx context.Context, entry FileEntry, summary *ImportSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return errNotReady
	}
	key := path.Join(entry.Folder, entry.Name)
	if _, ok := s.downloaded[key]; ok {
		summary.Known++
		return nil
	}
	result, err := s.fetchLocked(ctx, entry)
	switch result.Status {
	case FetchImported:
		summary.Imported++
		s.downloaded[key] = struct{}{}
	case FetchSkippedExists:
		summary.Skipped++
		s.downloaded[key] = struct{}{}
	default:
		summary.Failed++
	}
	if err != nil && KindOf(err) != KindFile {
		s.invalidateLocked(err)
		return fmt.Errorf("fetch %s: %w", key, err)
	}
	return nil
}

// FetchOne fetches a single file into the import directory.
func (s *Session) FetchOne(ctx context.Context, folder, name string, number int) (FetchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return FetchResult{Status: FetchFailed, Folder: folder, Name: name}, errNotReady
	}
	entry := FileEntry{Folder: folder, Name: name, Number: number}
	result, err := s.fetchLocked(ctx, entry)
	if err != nil && KindOf(err) != KindFile {
		s.invalidateLocked(err)
	}
	if result.Status != FetchFailed {
		s.downloaded[path.Join(folder, name)] = struct{}{}
	}
	return result, err
}

// fetchLocked tries each representation in turn. An existing local file of
// the same name is never replaced. Callers must hold s.mu.
func (s *Session) fetchLocked(ctx context.Context, entry FileEntry) (FetchResult, error) {
	result := FetchResult{Status: FetchFailed, Folder: entry.Folder, Name: entry.Name}
	attrs := []logging.Attr{
		logging.String(logging.FieldFolder, entry.Folder),
		logging.String(logging.FieldFile, entry.Name),
	}

	name, err := localName(entry.Folder, entry.Name)
	if err != nil {
		logging.ErrorWithContext(s.logger, "camera file has unusable name", "fetch_bad_name", append(attrs, logging.Error(err))...)
		result.Status = FetchFailed
		return result, &DeviceError{Kind: KindFile, Op: "fetch", Message: err.Error()}
	}
	dest := filepath.Join(s.importDir, name)
	result.Path = dest

	if fileutil.Exists(dest) {
		result.Status = FetchSkippedExists
		s.logger.Info("already imported", logging.Args(attrs...)...)
		s.notify(result)
		return result, nil
	}
	if err := os.MkdirAll(s.importDir, 0o755); err != nil {
		logging.ErrorWithContext(s.logger, "import directory unavailable", "import_dir_failed", append(attrs, logging.Error(err))...)
		s.notify(result)
		return result, &DeviceError{Kind: KindFile, Op: "ensure import directory", Message: err.Error()}
	}

	var lastErr error
	for _, rep := range fetchOrder {
		tmp := filepath.Join(s.importDir, "."+name+"."+rep.String()+".part")
		_ = os.Remove(tmp)

		if err := s.driver.Fetch(ctx, entry, rep, tmp); err != nil {
			_ = os.Remove(tmp)
			lastErr = err
			s.logger.Info("representation unavailable",
				logging.Args(append(attrs, logging.String("representation", rep.String()), logging.Error(err))...)...)
			if kind := KindOf(err); kind == KindAbsent || kind == KindBusy || errors.Is(err, context.Canceled) {
				break
			}
			continue
		}

		info, err := os.Stat(tmp)
		if err != nil || info.Size() == 0 {
			_ = os.Remove(tmp)
			lastErr = &DeviceError{Kind: KindFile, Op: "fetch " + rep.String(), Message: "empty result"}
			continue
		}
		mime := "application/octet-stream"
		if detected, err := mimetype.DetectFile(tmp); err == nil {
			mime = detected.String()
		}

		if err := fileutil.MoveNoReplace(tmp, dest); err != nil {
			_ = os.Remove(tmp)
			if errors.Is(err, fileutil.ErrExists) {
				result.Status = FetchSkippedExists
				s.logger.Info("already imported", logging.Args(attrs...)...)
				s.notify(result)
				return result, nil
			}
			logging.ErrorWithContext(s.logger, "store fetched file failed", "fetch_store_failed", append(attrs, logging.Error(err))...)
			s.notify(result)
			return result, &DeviceError{Kind: KindFile, Op: "store", Message: err.Error()}
		}

		result.Status = FetchImported
		result.Representation = rep
		result.MIME = mime
		result.Size = info.Size()
		s.logger.Info("imported",
			logging.Args(append(attrs,
				logging.String("representation", rep.String()),
				logging.String("mime", mime),
				logging.Int64("bytes", info.Size()),
			)...)...)
		s.notify(result)
		return result, nil
	}

	logging.ErrorWithContext(s.logger, "fetch failed for every representation", "fetch_failed",
		append(attrs,
			logging.Error(lastErr),
			logging.String(logging.FieldErrorHint, "the file is retried on the next import pass"),
		)...,
	)
	s.notify(result)
	return result, lastErr
}

func (s *Session) notify(result FetchResult) {
	if s.observe != nil {
		s.observe(result)
	}
}

// WaitForEvent blocks up to timeout for device notifications. A failure
// tears the session down.
func (s *Session) WaitForEvent(ctx context.Context, timeout time.Duration) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, errNotReady
	}
	events, err := s.driver.WaitEvent(ctx, timeout)
	if err != nil {
		s.invalidateLocked(err)
		if IsAbsent(err) {
			s.logger.Info("camera disconnected")
		} else {
			logging.ErrorWithContext(s.logger, "camera event wait failed", "camera_event_failed", logging.Error(err))
		}
		return nil, err
	}
	for _, evt := range events {
		if evt.Kind == EventFileAdded {
			s.logger.Info("new file on camera",
				logging.String(logging.FieldFolder, evt.Folder),
				logging.String(logging.FieldFile, evt.Name),
			)
		}
	}
	return events, nil
}

// localName qualifies the camera file name with its folder path so files
// of the same name in different folders never share a local file. Files in
// the root folder keep their bare name.
func localName(folder, remote string) (string, error) {
	if remote == "" || strings.ContainsAny(remote, "/\\") || remote == "." || remote == ".." || strings.HasPrefix(remote, ".") {
		return "", fmt.Errorf("invalid file name %q", remote)
	}
	var parts []string
	for _, segment := range strings.Split(folder, "/") {
		if segment == "" || segment == "." || segment == ".." {
			continue
		}
		parts = append(parts, segment)
	}
	parts = append(parts, remote)
	name := strings.Join(parts, "_")
	if strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid file name %q in %q", remote, folder)
	}
	return name, nil
}
