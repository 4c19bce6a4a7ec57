package camera

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Executor runs an external command and returns its combined output.
type Executor interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type commandExecutor struct{}

func (commandExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// GPhotoOption configures a GPhotoDriver.
type GPhotoOption func(*GPhotoDriver)

// WithExecutor overrides the command executor (primarily for tests).
func WithExecutor(executor Executor) GPhotoOption {
	return func(d *GPhotoDriver) {
		if executor != nil {
			d.exec = executor
		}
	}
}

// WithCommandTimeout bounds every gphoto2 invocation except event waits,
// which are bounded by their own timeout plus this value.
func WithCommandTimeout(timeout time.Duration) GPhotoOption {
	return func(d *GPhotoDriver) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithPort pins the gphoto2 port instead of using the first detected camera.
func WithPort(port string) GPhotoOption {
	return func(d *GPhotoDriver) {
		d.pinnedPort = strings.TrimSpace(port)
	}
}

// GPhotoDriver drives a camera through the gphoto2 command line tool.
type GPhotoDriver struct {
	binary     string
	exec       Executor
	timeout    time.Duration
	pinnedPort string
	port       string
}

// NewGPhotoDriver constructs a driver invoking binary.
func NewGPhotoDriver(binary string, opts ...GPhotoOption) *GPhotoDriver {
	if strings.TrimSpace(binary) == "" {
		binary = "gphoto2"
	}
	d := &GPhotoDriver{binary: binary, exec: commandExecutor{}, timeout: 2 * time.Minute}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect lists attached cameras without claiming any of them.
func (d *GPhotoDriver) Detect(ctx context.Context) ([]DeviceInfo, error) {
	out, err := d.run(ctx, d.timeout, "detect", "--auto-detect")
	if err != nil {
		return nil, err
	}
	return parseAutoDetect(out), nil
}

// Open detects the camera and claims it with a summary request, which fails
// with a busy error when another process holds the device.
func (d *GPhotoDriver) Open(ctx context.Context) (DeviceInfo, error) {
	cameras, err := d.Detect(ctx)
	if err != nil {
		return DeviceInfo{}, err
	}
	var info DeviceInfo
	for _, cam := range cameras {
		if d.pinnedPort == "" || cam.Port == d.pinnedPort {
			info = cam
			break
		}
	}
	if info.Port == "" {
		return DeviceInfo{}, &DeviceError{Kind: KindAbsent, Op: "open", Message: "no camera found"}
	}
	d.port = info.Port
	if _, err := d.run(ctx, d.timeout, "open", "--summary"); err != nil {
		d.port = ""
		return DeviceInfo{}, err
	}
	return info, nil
}

// ListFolders returns the absolute paths of folder's immediate subfolders.
func (d *GPhotoDriver) ListFolders(ctx context.Context, folder string) ([]string, error) {
	out, err := d.run(ctx, d.timeout, "list folders", "--folder", folder, "--list-folders")
	if err != nil {
		return nil, err
	}
	return parseFolderListing(out, folder), nil
}

// ListFiles returns the files directly inside folder.
func (d *GPhotoDriver) ListFiles(ctx context.Context, folder string) ([]FileEntry, error) {
	out, err := d.run(ctx, d.timeout, "list files", "--folder", folder, "--no-recurse", "--list-files")
	if err != nil {
		return nil, err
	}
	return parseFileListing(out, folder), nil
}

// Fetch writes one representation of entry to dest.
func (d *GPhotoDriver) Fetch(ctx context.Context, entry FileEntry, rep Representation, dest string) error {
	flag := "--get-file"
	switch rep {
	case RepPreview:
		flag = "--get-thumbnail"
	case RepRaw:
		flag = "--get-raw-data"
	}
	_, err := d.run(ctx, d.timeout, "fetch "+rep.String(),
		"--folder", entry.Folder,
		"--no-recurse",
		flag, strconv.Itoa(entry.Number),
		"--filename", dest,
	)
	return err
}

// WaitEvent blocks up to timeout for device notifications.
func (d *GPhotoDriver) WaitEvent(ctx context.Context, timeout time.Duration) ([]Event, error) {
	ms := timeout.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	out, err := d.run(ctx, timeout+d.timeout, "wait event", fmt.Sprintf("--wait-event=%dms", ms))
	if err != nil {
		return nil, err
	}
	return parseEvents(out), nil
}

// Close forgets the claimed port. gphoto2 releases the device when each
// invocation exits, so there is no process to stop.
func (d *GPhotoDriver) Close() error {
	d.port = ""
	return nil
}

// run lets an in-flight gphoto2 call finish after ctx is cancelled; only the
// command timeout stops it. Callers check ctx between calls.
func (d *GPhotoDriver) run(ctx context.Context, timeout time.Duration, op string, args ...string) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	full := args
	if d.port != "" {
		full = append([]string{"--port", d.port}, args...)
	}
	out, err := d.exec.Output(runCtx, d.binary, full...)
	if parsed := parseGPhotoError(op, out); parsed != nil {
		return out, parsed
	}
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return out, &DeviceError{Kind: KindOther, Op: op, Message: "timed out after " + timeout.String()}
		}
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		msg := firstLine(out)
		if msg == "" {
			msg = err.Error()
		}
		return out, &DeviceError{Kind: KindOther, Op: op, Message: msg}
	}
	return out, nil
}

func firstLine(out []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line
		}
	}
	return ""
}

var columnSplit = regexp.MustCompile(`\s{2,}|\t+`)

// parseAutoDetect reads "gphoto2 --auto-detect" output: two header lines
// followed by "<model>  <port>" rows. Only usb and ptp ports count.
func parseAutoDetect(out []byte) []DeviceInfo {
	var cameras []DeviceInfo
	scanner := bufio.NewScanner(bytes.NewReader(out))
	skipped := 0
	for scanner.Scan() {
		line := scanner.Text()
		if skipped < 2 {
			skipped++
			continue
		}
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if !strings.Contains(lower, "usb") && !strings.Contains(lower, "ptp") {
			continue
		}
		cols := columnSplit.Split(trimmed, -1)
		if len(cols) < 2 {
			continue
		}
		port := strings.TrimSpace(cols[len(cols)-1])
		model := strings.TrimSpace(strings.Join(cols[:len(cols)-1], " "))
		cameras = append(cameras, DeviceInfo{Model: model, Port: port})
	}
	return cameras
}

var (
	folderHeader = regexp.MustCompile(`^There (?:is|are) (?:no|\d+) folders? in folder '(.*)'`)
	fileHeader   = regexp.MustCompile(`^There (?:is|are) (?:no|\d+) files? in folder '(.*)'`)
	fileRow      = regexp.MustCompile(`^#(\d+)\s+(\S+)`)
)

// parseFolderListing returns the subfolders listed under the header for
// folder. gphoto2 may print nested blocks; only the requested one is used.
func parseFolderListing(out []byte, folder string) []string {
	var folders []string
	inBlock := false
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \r")
		if m := folderHeader.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			inBlock = m[1] == folder
			continue
		}
		if !inBlock {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "- ") {
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(trimmed, "- "))
		if name != "" {
			folders = append(folders, path.Join(folder, name))
		}
	}
	return folders
}

// parseFileListing returns the "#N name ..." rows under folder's header.
func parseFileListing(out []byte, folder string) []FileEntry {
	var files []FileEntry
	inBlock := false
	sawHeader := false
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if m := fileHeader.FindStringSubmatch(line); m != nil {
			sawHeader = true
			inBlock = m[1] == folder
			continue
		}
		if sawHeader && !inBlock {
			continue
		}
		m := fileRow.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		number, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		files = append(files, FileEntry{Folder: folder, Name: m[2], Number: number})
	}
	return files
}

// parseEvents reads "--wait-event" output. FILEADDED and FOLDERADDED lines
// carry "<name> <folder>".
func parseEvents(out []byte) []Event {
	var events []Event
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "FILEADDED", "FOLDERADDED":
			if len(fields) < 3 {
				continue
			}
			kind := EventFileAdded
			if fields[0] == "FOLDERADDED" {
				kind = EventFolderAdded
			}
			events = append(events, Event{
				Kind:   kind,
				Name:   strings.Join(fields[1:len(fields)-1], " "),
				Folder: fields[len(fields)-1],
			})
		case "CAPTURECOMPLETE":
			events = append(events, Event{Kind: EventCaptureComplete})
		}
	}
	return events
}
