package capture

import (
	"errors"
	"testing"

	"github.com/teslashibe/go-spellcam/pkg/camera"
	"gocv.io/x/gocv"
)

func TestDeviceArg(t *testing.T) {
	if got, ok := deviceArg("2").(int); !ok || got != 2 {
		t.Errorf("deviceArg(\"2\") = %v", deviceArg("2"))
	}
	if got, ok := deviceArg("rtsp://cam/stream").(string); !ok || got != "rtsp://cam/stream" {
		t.Errorf("deviceArg(url) = %v", deviceArg("rtsp://cam/stream"))
	}
}

func TestEncodeNativeResolution(t *testing.T) {
	img := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer img.Close()

	out, err := encode(img, camera.DefaultQuality)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if out.Width != 64 || out.Height != 48 {
		t.Errorf("size = %dx%d, want 64x48", out.Width, out.Height)
	}
	if len(out.Data) < 4 || out.Data[0] != 0xFF || out.Data[1] != 0xD8 {
		t.Error("expected JPEG SOI marker")
	}
}

func TestOpenInvalidConfig(t *testing.T) {
	_, err := Open(camera.Config{Device: "0", Quality: 0}, nil)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if errors.Is(err, camera.ErrUnavailable) {
		t.Error("validation error should not be reported as unavailable")
	}
}
