package camera

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type scriptedExecutor struct {
	calls   [][]string
	replies map[string]string
	errs    map[string]error
}

func (e *scriptedExecutor) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	e.calls = append(e.calls, append([]string{name}, args...))
	joined := strings.Join(args, " ")
	for key, reply := range e.replies {
		if strings.Contains(joined, key) {
			return []byte(reply), e.errs[key]
		}
	}
	return nil, nil
}

const autoDetectOutput = `Model                          Port
----------------------------------------------------------
Canon EOS 80D                  usb:001,004
`

func TestOpenClaimsDetectedPort(t *testing.T) {
	exec := &scriptedExecutor{replies: map[string]string{
		"--auto-detect": autoDetectOutput,
		"--summary":     "Camera summary:\nManufacturer: Canon Inc.\n",
	}}
	d := NewGPhotoDriver("gphoto2", WithExecutor(exec))

	info, err := d.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if info.Model != "Canon EOS 80D" || info.Port != "usb:001,004" {
		t.Fatalf("info = %+v", info)
	}
	last := exec.calls[len(exec.calls)-1]
	if strings.Join(last, " ") != "gphoto2 --port usb:001,004 --summary" {
		t.Fatalf("summary call = %v", last)
	}
}

func TestOpenWithoutCameraIsAbsent(t *testing.T) {
	exec := &scriptedExecutor{replies: map[string]string{
		"--auto-detect": "Model    Port\n------------\n",
	}}
	d := NewGPhotoDriver("", WithExecutor(exec))
	if _, err := d.Open(context.Background()); !IsAbsent(err) {
		t.Fatalf("expected absent, got %v", err)
	}
	if exec.calls[0][0] != "gphoto2" {
		t.Fatalf("default binary not used: %v", exec.calls[0])
	}
}

func TestOpenClaimFailureIsBusy(t *testing.T) {
	exec := &scriptedExecutor{
		replies: map[string]string{
			"--auto-detect": autoDetectOutput,
			"--summary":     "*** Error (-53: 'Could not claim the USB device') ***\n",
		},
		errs: map[string]error{"--summary": errors.New("exit status 1")},
	}
	d := NewGPhotoDriver("gphoto2", WithExecutor(exec))
	_, err := d.Open(context.Background())
	if !IsBusy(err) {
		t.Fatalf("expected busy, got %v", err)
	}
	var devErr *DeviceError
	if !errors.As(err, &devErr) || devErr.Code != -53 {
		t.Fatalf("expected code -53, got %v", err)
	}
}

func TestPinnedPortSelectsCamera(t *testing.T) {
	exec := &scriptedExecutor{replies: map[string]string{
		"--auto-detect": autoDetectOutput,
	}}
	d := NewGPhotoDriver("gphoto2", WithExecutor(exec), WithPort("usb:009,009"))
	if _, err := d.Open(context.Background()); !IsAbsent(err) {
		t.Fatalf("expected absent for unmatched pinned port, got %v", err)
	}
}

func TestParseFolderListing(t *testing.T) {
	out := []byte(`There are 2 folders in folder '/store_00010001'.
 - DCIM
 - MISC
`)
	got := parseFolderListing(out, "/store_00010001")
	if len(got) != 2 || got[0] != "/store_00010001/DCIM" || got[1] != "/store_00010001/MISC" {
		t.Fatalf("folders = %v", got)
	}
	if got := parseFolderListing([]byte("There are no folders in folder '/x'.\n"), "/x"); len(got) != 0 {
		t.Fatalf("expected none, got %v", got)
	}
}

func TestParseFileListing(t *testing.T) {
	out := []byte(`There are 2 files in folder '/DCIM/100CANON'.
#1     IMG_0001.JPG               rd  6012 KB image/jpeg
#2     IMG_0002.CR2               rd 24000 KB image/x-canon-cr2
`)
	got := parseFileListing(out, "/DCIM/100CANON")
	if len(got) != 2 {
		t.Fatalf("files = %+v", got)
	}
	if got[0].Name != "IMG_0001.JPG" || got[0].Number != 1 || got[0].Folder != "/DCIM/100CANON" {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].Number != 2 {
		t.Fatalf("second = %+v", got[1])
	}
}

func TestParseEvents(t *testing.T) {
	out := []byte(`UNKNOWN PTP Property d1d3 changed
FILEADDED IMG_0003.JPG /store_00010001/DCIM/100CANON
CAPTURECOMPLETE
`)
	events := parseEvents(out)
	if len(events) != 2 {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Kind != EventFileAdded || events[0].Name != "IMG_0003.JPG" || events[0].Folder != "/store_00010001/DCIM/100CANON" {
		t.Fatalf("first = %+v", events[0])
	}
	if events[1].Kind != EventCaptureComplete {
		t.Fatalf("second = %+v", events[1])
	}
}

func TestFetchUsesRepresentationFlag(t *testing.T) {
	exec := &scriptedExecutor{}
	d := NewGPhotoDriver("gphoto2", WithExecutor(exec))
	entry := FileEntry{Folder: "/DCIM", Name: "a.jpg", Number: 7}
	cases := map[Representation]string{
		RepNormal:  "--get-file 7",
		RepPreview: "--get-thumbnail 7",
		RepRaw:     "--get-raw-data 7",
	}
	for rep, want := range cases {
		if err := d.Fetch(context.Background(), entry, rep, "/tmp/out"); err != nil {
			t.Fatalf("Fetch %s: %v", rep, err)
		}
		call := strings.Join(exec.calls[len(exec.calls)-1], " ")
		if !strings.Contains(call, want) || !strings.Contains(call, "--filename /tmp/out") {
			t.Fatalf("fetch %s call = %q", rep, call)
		}
	}
}

func TestWaitEventFormatsTimeout(t *testing.T) {
	exec := &scriptedExecutor{}
	d := NewGPhotoDriver("gphoto2", WithExecutor(exec))
	if _, err := d.WaitEvent(context.Background(), 1500*time.Millisecond); err != nil {
		t.Fatalf("WaitEvent: %v", err)
	}
	if got := exec.calls[0][1]; got != "--wait-event=1500ms" {
		t.Fatalf("arg = %q", got)
	}
}

func TestRunReportsUnclassifiedFailure(t *testing.T) {
	exec := &scriptedExecutor{
		replies: map[string]string{"--list-files": "\nsomething odd happened\n"},
		errs:    map[string]error{"--list-files": errors.New("exit status 1")},
	}
	d := NewGPhotoDriver("gphoto2", WithExecutor(exec))
	_, err := d.ListFiles(context.Background(), "/")
	if KindOf(err) != KindOther {
		t.Fatalf("expected other, got %v", err)
	}
	if !strings.Contains(err.Error(), "something odd happened") {
		t.Fatalf("error = %v", err)
	}
}

type cancelAwareExecutor struct {
	reply   string
	sawDone bool
}

func (e *cancelAwareExecutor) Output(ctx context.Context, _ string, _ ...string) ([]byte, error) {
	if ctx.Err() != nil {
		e.sawDone = true
		return nil, ctx.Err()
	}
	return []byte(e.reply), nil
}

func TestCancelledContextLetsCommandFinish(t *testing.T) {
	exec := &cancelAwareExecutor{reply: "There are 1 folders in folder '/'.\n - DCIM\n"}
	d := NewGPhotoDriver("gphoto2", WithExecutor(exec), WithCommandTimeout(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	folders, err := d.ListFolders(ctx, "/")
	if err != nil {
		t.Fatalf("ListFolders: %v", err)
	}
	if exec.sawDone {
		t.Fatal("command context was cancelled along with the caller")
	}
	if len(folders) != 1 || folders[0] != "/DCIM" {
		t.Fatalf("folders = %v", folders)
	}
}
