package status

import (
	"sync"
	"testing"
	"time"
)

func TestZeroSnapshot(t *testing.T) {
	s := New()
	view := s.Read()
	if view.Phase != "no_device" || view.PhaseText != "No camera detected" {
		t.Fatalf("view = %+v", view)
	}
	if view.Online || view.CameraReady || view.Imported != 0 || view.Uploaded != 0 {
		t.Fatalf("expected empty snapshot, got %+v", view)
	}
	if !view.LastUpload.IsZero() {
		t.Fatalf("last upload should be zero, got %v", view.LastUpload)
	}
}

func TestBars(t *testing.T) {
	cases := []struct {
		percent int
		want    int
	}{
		{0, 0},
		{1, 1},
		{25, 1},
		{26, 2},
		{50, 2},
		{51, 3},
		{75, 3},
		{76, 4},
		{100, 4},
	}
	for _, tc := range cases {
		if got := Bars(tc.percent); got != tc.want {
			t.Fatalf("Bars(%d) = %d, want %d", tc.percent, got, tc.want)
		}
	}
}

func TestSetSignalClamps(t *testing.T) {
	s := New()
	s.SetSignal(140)
	if s.Signal() != 100 || s.SignalBars() != 4 {
		t.Fatalf("signal = %d bars = %d", s.Signal(), s.SignalBars())
	}
	s.SetSignal(-5)
	if s.Signal() != 0 {
		t.Fatalf("signal = %d, want 0", s.Signal())
	}
}

func TestPhaseRoundTrip(t *testing.T) {
	for p := PhaseNoDevice; p <= PhaseImportOnlyNoNetwork; p++ {
		got, ok := ParsePhase(p.String())
		if !ok || got != p {
			t.Fatalf("ParsePhase(%q) = %v, %v", p.String(), got, ok)
		}
	}
	if _, ok := ParsePhase("bogus"); ok {
		t.Fatal("expected unknown phase")
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s.SetImported(j)
				s.SetPhase(Phase(j % 5))
				s.SetCamera(j%2 == 0, "Test Camera")
				s.MarkImported(time.Now())
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = s.Read()
			}
		}()
	}
	wg.Wait()
	if s.CameraModel() != "Test Camera" {
		t.Fatalf("model = %q", s.CameraModel())
	}
}
