package camera_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/teslashibe/go-spellcam/pkg/camera"
)

func TestDataURL(t *testing.T) {
	img := camera.EncodedImage{Data: []byte("abc")}
	got := img.DataURL()
	want := "data:image/jpeg;base64,YWJj"
	if got != want {
		t.Errorf("DataURL() = %q, want %q", got, want)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := camera.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Quality != 70 {
		t.Errorf("Quality = %d, want 70", cfg.Quality)
	}

	cfg.Quality = 0
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "quality") {
		t.Errorf("expected quality error, got %v", err)
	}
}

func TestManagerToggle(t *testing.T) {
	m := camera.NewManager(true)
	var seen []bool
	m.OnMirrorChange = func(mirrored bool) { seen = append(seen, mirrored) }

	if got := m.Toggle(); got {
		t.Error("first toggle should unmirror")
	}
	if got := m.Toggle(); !got {
		t.Error("second toggle should mirror")
	}
	m.SetMirrored(false)

	if len(seen) != 3 || seen[0] || !seen[1] || seen[2] {
		t.Errorf("callbacks = %v", seen)
	}
	if m.Mirrored() {
		t.Error("expected unmirrored")
	}
}

func TestMockSourceReadiness(t *testing.T) {
	src := camera.NewMockSource()
	src.ReadyAfter = 2

	if _, err := src.CaptureFrame(); !errors.Is(err, camera.ErrNotReady) {
		t.Fatalf("capture before ready: %v", err)
	}
	for i := 0; i < 2; i++ {
		if src.IsReady() {
			t.Fatalf("poll %d reported ready", i)
		}
	}
	if !src.IsReady() {
		t.Fatal("expected ready on third poll")
	}
	frame, err := src.CaptureFrame()
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if frame.Empty() || frame.CapturedAt.IsZero() {
		t.Error("expected populated frame")
	}
}
