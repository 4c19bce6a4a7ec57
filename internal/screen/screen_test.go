package screen

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"uploader/internal/logging"
	"uploader/internal/status"
)

type fakeController struct {
	wakes   int
	clears  int
	removed int
	err     error
}

func (c *fakeController) ClearImports() (int, error) {
	c.clears++
	return c.removed, c.err
}

func (c *fakeController) Wake() { c.wakes++ }

func keyMsg(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestCounterText(t *testing.T) {
	cases := []struct {
		n        int
		imported string
		uploaded string
	}{
		{0, "0 images imported", "0 images sent to server"},
		{1, "1 image imported", "1 image sent to server"},
		{12, "12 images imported", "12 images sent to server"},
	}
	for _, tc := range cases {
		if got := ImportedText(tc.n); got != tc.imported {
			t.Errorf("ImportedText(%d) = %q, want %q", tc.n, got, tc.imported)
		}
		if got := UploadedText(tc.n); got != tc.uploaded {
			t.Errorf("UploadedText(%d) = %q, want %q", tc.n, got, tc.uploaded)
		}
	}
}

func TestSignalIndicator(t *testing.T) {
	lit := func(s string) string { return "[" + s + "]" }
	unlit := func(s string) string { return s }

	if got := SignalIndicator(0, lit, unlit); got != "▂▄▆█" {
		t.Fatalf("zero bars = %q", got)
	}
	if got := SignalIndicator(2, lit, unlit); got != "[▂][▄]▆█" {
		t.Fatalf("two bars = %q", got)
	}
	if got := SignalIndicator(9, lit, unlit); got != "[▂][▄][▆][█]" {
		t.Fatalf("clamped bars = %q", got)
	}
}

func TestViewShowsSnapshot(t *testing.T) {
	snap := status.New()
	snap.SetImported(3)
	snap.SetUploaded(1)
	snap.SetPhase(status.PhaseImportOnlyNoNetwork)
	snap.SetCamera(true, "Canon EOS 80D")
	hub := logging.NewStreamHub(8)
	hub.Publish(logging.LogEvent{Message: "file uploaded", File: "img001.jpg"})

	view := New(Options{Snapshot: snap, Hub: hub}).View()
	for _, want := range []string{
		"3 images imported",
		"1 image sent to server",
		"Import only: no network",
		"Not connected",
		"Canon EOS 80D",
		"file uploaded: img001.jpg",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestTickRereadsSnapshot(t *testing.T) {
	snap := status.New()
	m := New(Options{Snapshot: snap})
	snap.SetOnline(true)
	snap.SetUploaded(5)

	next, cmd := m.Update(tickMsg{})
	if cmd == nil {
		t.Fatal("expected tick to reschedule")
	}
	view := next.View()
	if !strings.Contains(view, "Connected") || strings.Contains(view, "Not connected") {
		t.Fatalf("expected connected label:\n%s", view)
	}
	if !strings.Contains(view, "5 images sent to server") {
		t.Fatalf("expected refreshed counter:\n%s", view)
	}
}

func TestClearRequiresConfirmation(t *testing.T) {
	controller := &fakeController{removed: 2}
	var model tea.Model = New(Options{Controller: controller})

	model, cmd := model.Update(keyMsg('c'))
	if cmd != nil || controller.clears != 0 {
		t.Fatal("c alone must not clear")
	}
	if !strings.Contains(model.View(), "Delete all imported images?") {
		t.Fatalf("expected prompt:\n%s", model.View())
	}

	model, cmd = model.Update(keyMsg('y'))
	if cmd == nil {
		t.Fatal("expected clear command after confirmation")
	}
	msg := cmd()
	if controller.clears != 1 {
		t.Fatalf("clears = %d, want 1", controller.clears)
	}
	model, _ = model.Update(msg)
	if !strings.Contains(model.View(), "2 images removed") {
		t.Fatalf("expected removal notice:\n%s", model.View())
	}
}

func TestClearCancelledByOtherKey(t *testing.T) {
	controller := &fakeController{}
	var model tea.Model = New(Options{Controller: controller})
	model, _ = model.Update(keyMsg('c'))
	model, cmd := model.Update(keyMsg('n'))
	if cmd != nil || controller.clears != 0 {
		t.Fatal("expected clear to be cancelled")
	}
	if !strings.Contains(model.View(), "Clear cancelled") {
		t.Fatalf("expected cancel notice:\n%s", model.View())
	}
}

func TestClearFailureShown(t *testing.T) {
	controller := &fakeController{err: errors.New("permission denied")}
	var model tea.Model = New(Options{Controller: controller})
	model, _ = model.Update(keyMsg('c'))
	model, cmd := model.Update(keyMsg('y'))
	if cmd == nil {
		t.Fatal("expected clear command after confirmation")
	}
	model, _ = model.Update(cmd())
	view := model.View()
	if !strings.Contains(view, "Clear failed: permission denied") {
		t.Fatalf("expected failure notice:\n%s", view)
	}
	if strings.Contains(view, "(y/N)") {
		t.Fatalf("prompt still shown after clear finished:\n%s", view)
	}
}

func TestRetryAndQuitKeys(t *testing.T) {
	controller := &fakeController{}
	var model tea.Model = New(Options{Controller: controller})

	model, _ = model.Update(keyMsg('r'))
	if controller.wakes != 1 {
		t.Fatalf("wakes = %d, want 1", controller.wakes)
	}
	if !strings.Contains(model.View(), "Retrying now") {
		t.Fatalf("expected retry notice:\n%s", model.View())
	}

	_, cmd := model.Update(keyMsg('q'))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q should quit")
	}
}
