package transfer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"uploader/internal/logging"
)

type fakeSession struct {
	dialer   *fakeDialer
	storeErr error
	closeErr error
}

func (s *fakeSession) Store(_ context.Context, remotePath string, r io.Reader) error {
	if s.storeErr != nil {
		return s.storeErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.dialer.stored[remotePath] = data
	return nil
}

func (s *fakeSession) Close() error {
	s.dialer.closed++
	return s.closeErr
}

type fakeDialer struct {
	dialErr  error
	storeErr error
	closeErr error
	targets  []Target
	stored   map[string][]byte
	closed   int
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{stored: map[string][]byte{}}
}

func (d *fakeDialer) Dial(_ context.Context, target Target) (Session, error) {
	d.targets = append(d.targets, target)
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return &fakeSession{dialer: d, storeErr: d.storeErr, closeErr: d.closeErr}, nil
}

func writeLocal(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write local file: %v", err)
	}
	return path
}

func TestUploadConcatenatesBaseAndName(t *testing.T) {
	dialer := newFakeDialer()
	client, err := New("ftp://photos.example.com/incoming/", "kiosk:secret", logging.NewNop(), WithDialer("ftp", dialer))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	local := writeLocal(t, "img001.jpg", "jpeg-bytes")
	if !client.Upload(context.Background(), local, "img001.jpg") {
		t.Fatal("expected upload success")
	}

	if len(dialer.targets) != 1 {
		t.Fatalf("expected one dial, got %d", len(dialer.targets))
	}
	target := dialer.targets[0]
	if target.Addr != "photos.example.com:21" {
		t.Fatalf("unexpected addr %q", target.Addr)
	}
	if target.Path != "/incoming/img001.jpg" {
		t.Fatalf("unexpected path %q", target.Path)
	}
	if target.User != "kiosk" || target.Password != "secret" {
		t.Fatalf("unexpected credentials %q/%q", target.User, target.Password)
	}
	if !bytes.Equal(dialer.stored["/incoming/img001.jpg"], []byte("jpeg-bytes")) {
		t.Fatalf("unexpected stored content %q", dialer.stored["/incoming/img001.jpg"])
	}
	if dialer.closed != 1 {
		t.Fatalf("expected session closed once, got %d", dialer.closed)
	}

	// Local file is left untouched.
	data, err := os.ReadFile(local)
	if err != nil || string(data) != "jpeg-bytes" {
		t.Fatalf("local file modified: %q err=%v", data, err)
	}
}

func TestUploadFailureModes(t *testing.T) {
	t.Run("missing local file", func(t *testing.T) {
		dialer := newFakeDialer()
		client, err := New("ftp://example.com/", "u:p", logging.NewNop(), WithDialer("ftp", dialer))
		if err != nil {
			t.Fatalf("New returned error: %v", err)
		}
		if client.Upload(context.Background(), filepath.Join(t.TempDir(), "gone.jpg"), "gone.jpg") {
			t.Fatal("expected failure for missing file")
		}
		if len(dialer.targets) != 0 {
			t.Fatal("expected no dial for missing file")
		}
	})

	t.Run("client initialization", func(t *testing.T) {
		dialer := newFakeDialer()
		dialer.dialErr = errors.New("connection refused")
		client, err := New("ftp://example.com/", "u:p", logging.NewNop(), WithDialer("ftp", dialer))
		if err != nil {
			t.Fatalf("New returned error: %v", err)
		}
		if client.Upload(context.Background(), writeLocal(t, "a.jpg", "x"), "a.jpg") {
			t.Fatal("expected failure when dial fails")
		}
	})

	t.Run("transfer result", func(t *testing.T) {
		dialer := newFakeDialer()
		dialer.storeErr = errors.New("553 permission denied")
		client, err := New("ftp://example.com/", "u:p", logging.NewNop(), WithDialer("ftp", dialer))
		if err != nil {
			t.Fatalf("New returned error: %v", err)
		}
		if client.Upload(context.Background(), writeLocal(t, "a.jpg", "x"), "a.jpg") {
			t.Fatal("expected failure when store fails")
		}
		if dialer.closed != 1 {
			t.Fatalf("expected session closed after failure, got %d", dialer.closed)
		}
	})
}

func TestUploadSucceedsWhenOnlyCloseFails(t *testing.T) {
	dialer := newFakeDialer()
	dialer.closeErr = errors.New("421 connection closed")
	client, err := New("ftp://example.com/in/", "u:p", logging.NewNop(), WithDialer("ftp", dialer))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if !client.Upload(context.Background(), writeLocal(t, "a.jpg", "x"), "a.jpg") {
		t.Fatal("expected success once the store completed")
	}
	if string(dialer.stored["/in/a.jpg"]) != "x" {
		t.Fatalf("unexpected stored content %q", dialer.stored["/in/a.jpg"])
	}
}

func TestNewRejectsUnsupportedScheme(t *testing.T) {
	if _, err := New("http://example.com/", "u:p", logging.NewNop()); err == nil {
		t.Fatal("expected error for http scheme")
	}
	if _, err := New("ftp:///nohost/", "u:p", logging.NewNop()); err == nil {
		t.Fatal("expected error for missing host")
	}
}

func TestDestinationKeepsExplicitPortAndRedacts(t *testing.T) {
	client, err := New("sftp://files.example.com:2222/upload/", "kiosk:secret", logging.NewNop())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	target := client.Destination("IMG 0001.JPG")
	if target.Addr != "files.example.com:2222" {
		t.Fatalf("unexpected addr %q", target.Addr)
	}
	if target.Path != "/upload/IMG 0001.JPG" {
		t.Fatalf("unexpected path %q", target.Path)
	}
	if got := target.Redacted(); got != "sftp://files.example.com:2222/upload/IMG 0001.JPG" {
		t.Fatalf("unexpected redacted form %q", got)
	}
}

func TestFTPPathIsRelativeToLoginDirectory(t *testing.T) {
	if got := ftpPath("/incoming/a.jpg"); got != "incoming/a.jpg" {
		t.Fatalf("unexpected ftp path %q", got)
	}
	if got := ftpPath("//srv/a.jpg"); got != "/srv/a.jpg" {
		t.Fatalf("unexpected absolute ftp path %q", got)
	}
}
