package camera

import (
	"sync"
	"time"
)

// MockSource implements FrameSource for testing.
// It becomes ready after ReadyAfter polls and returns Frame on every capture.
type MockSource struct {
	// ReadyAfter is the number of IsReady calls that return false first.
	ReadyAfter int

	// Frame is returned by CaptureFrame.
	Frame EncodedImage

	// CaptureErr, if set, is returned by CaptureFrame.
	CaptureErr error

	mu       sync.Mutex
	polls    int
	captures int
	closed   bool
}

// NewMockSource creates a ready mock with a small fake JPEG payload.
func NewMockSource() *MockSource {
	return &MockSource{
		Frame: EncodedImage{
			Data:     []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0xFF, 0xD9},
			Width:    640,
			Height:   480,
			MimeType: MimeJPEG,
		},
	}
}

// IsReady reports readiness after ReadyAfter polls.
func (m *MockSource) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls++
	return !m.closed && m.polls > m.ReadyAfter
}

// CaptureFrame returns the configured frame.
func (m *MockSource) CaptureFrame() (EncodedImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.polls <= m.ReadyAfter {
		return EncodedImage{}, ErrNotReady
	}
	if m.CaptureErr != nil {
		return EncodedImage{}, m.CaptureErr
	}
	m.captures++
	frame := m.Frame
	frame.CapturedAt = time.Now()
	return frame, nil
}

// Close marks the source closed.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Polls returns the number of IsReady calls.
func (m *MockSource) Polls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls
}

// Captures returns the number of successful captures.
func (m *MockSource) Captures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captures
}

// Verify MockSource implements FrameSource at compile time.
var _ FrameSource = (*MockSource)(nil)
