// Package capture provides an OpenCV-backed camera.FrameSource.
package capture

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/teslashibe/go-spellcam/pkg/camera"
	"gocv.io/x/gocv"
)

// Webcam reads frames from a local capture device.
// A background goroutine keeps the latest frame so CaptureFrame never blocks on the device.
type Webcam struct {
	cfg    camera.Config
	logger *slog.Logger

	dev *gocv.VideoCapture

	mu     sync.Mutex
	latest gocv.Mat
	ready  bool
	closed bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// Open opens the configured device and starts reading frames.
// It returns an error wrapping camera.ErrUnavailable when the device cannot be opened.
func Open(cfg camera.Config, logger *slog.Logger) (*Webcam, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	dev, err := gocv.OpenVideoCapture(deviceArg(cfg.Device))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", camera.ErrUnavailable, err)
	}
	if !dev.IsOpened() {
		dev.Close()
		return nil, fmt.Errorf("%w: device %s not opened", camera.ErrUnavailable, cfg.Device)
	}

	w := &Webcam{
		cfg:    cfg,
		logger: logger.With("component", "camera.capture"),
		dev:    dev,
		latest: gocv.NewMat(),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	w.logger.Info("camera opened",
		"device", cfg.Device,
		"width", int(dev.Get(gocv.VideoCaptureFrameWidth)),
		"height", int(dev.Get(gocv.VideoCaptureFrameHeight)),
	)

	go w.readLoop()
	return w, nil
}

// deviceArg converts numeric device names to an index.
func deviceArg(device string) interface{} {
	if id, err := strconv.Atoi(device); err == nil {
		return id
	}
	return device
}

func (w *Webcam) readLoop() {
	defer close(w.doneCh)

	frame := gocv.NewMat()
	defer frame.Close()

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		if ok := w.dev.Read(&frame); !ok || frame.Empty() {
			// Device still warming up or permission pending
			time.Sleep(10 * time.Millisecond)
			continue
		}

		w.mu.Lock()
		frame.CopyTo(&w.latest)
		if !w.ready {
			w.logger.Debug("first frame available", "cols", frame.Cols(), "rows", frame.Rows())
		}
		w.ready = true
		w.mu.Unlock()
	}
}

// IsReady reports whether at least one frame has been read.
func (w *Webcam) IsReady() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ready && !w.closed
}

// CaptureFrame encodes the latest frame as JPEG at native resolution.
// The payload is never mirrored.
func (w *Webcam) CaptureFrame() (camera.EncodedImage, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.ready || w.closed {
		return camera.EncodedImage{}, camera.ErrNotReady
	}
	return encode(w.latest, w.cfg.Quality)
}

// Snapshot returns a display copy of the latest frame, flipped horizontally when mirrored.
func (w *Webcam) Snapshot(mirrored bool) (camera.EncodedImage, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.ready || w.closed {
		return camera.EncodedImage{}, camera.ErrNotReady
	}
	if !mirrored {
		return encode(w.latest, w.cfg.Quality)
	}

	flipped := gocv.NewMat()
	defer flipped.Close()
	gocv.Flip(w.latest, &flipped, 1)
	return encode(flipped, w.cfg.Quality)
}

func encode(img gocv.Mat, quality int) (camera.EncodedImage, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return camera.EncodedImage{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases C memory freed by Close
	data := append([]byte(nil), buf.GetBytes()...)

	return camera.EncodedImage{
		Data:       data,
		Width:      img.Cols(),
		Height:     img.Rows(),
		MimeType:   camera.MimeJPEG,
		CapturedAt: time.Now(),
	}, nil
}

// Close stops reading and releases the device.
func (w *Webcam) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	defer w.mu.Unlock()
	w.latest.Close()
	return w.dev.Close()
}

// Verify Webcam implements FrameSource at compile time.
var _ camera.FrameSource = (*Webcam)(nil)
