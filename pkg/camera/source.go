package camera

import (
	"encoding/base64"
	"errors"
	"time"
)

var (
	// ErrNotReady is returned by CaptureFrame when no frame is available yet.
	ErrNotReady = errors.New("camera: frame not ready")

	// ErrUnavailable is returned when the capture device cannot be opened.
	ErrUnavailable = errors.New("camera: device unavailable")
)

// MimeJPEG is the only payload format produced by frame sources.
const MimeJPEG = "image/jpeg"

// EncodedImage is a compressed frame ready for submission.
type EncodedImage struct {
	Data       []byte
	Width      int
	Height     int
	MimeType   string
	CapturedAt time.Time
}

// DataURL returns the frame as a data URL, the encoding the recognition
// service expects in the image field.
func (e EncodedImage) DataURL() string {
	mime := e.MimeType
	if mime == "" {
		mime = MimeJPEG
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(e.Data)
}

// Empty reports whether the image has no payload.
func (e EncodedImage) Empty() bool {
	return len(e.Data) == 0
}

// FrameSource wraps a live camera stream.
type FrameSource interface {
	// IsReady reports whether a frame can be captured.
	IsReady() bool

	// CaptureFrame encodes the current frame at native resolution.
	// Callers must poll IsReady first; otherwise ErrNotReady is returned.
	CaptureFrame() (EncodedImage, error)

	// Close releases the device.
	Close() error
}
