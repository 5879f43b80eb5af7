package session

import "github.com/teslashibe/go-spellcam/pkg/camera"

// Display is a surface that shows the recognition state.
// Methods are called with the session lock held and must not call back into the Session.
type Display interface {
	// SetLabel shows the live label, possibly empty.
	SetLabel(label string)

	// SetText shows the cumulative recognized text.
	SetText(text string)

	// ShowError replaces the live label with a static error message.
	ShowError(msg string)

	// ShowFrame shows a preview frame. mirrored is a display transform only.
	ShowFrame(frame camera.EncodedImage, mirrored bool)
}

// Displays fans every call out to each display in order.
type Displays []Display

func (ds Displays) SetLabel(label string) {
	for _, d := range ds {
		d.SetLabel(label)
	}
}

func (ds Displays) SetText(text string) {
	for _, d := range ds {
		d.SetText(text)
	}
}

func (ds Displays) ShowError(msg string) {
	for _, d := range ds {
		d.ShowError(msg)
	}
}

func (ds Displays) ShowFrame(frame camera.EncodedImage, mirrored bool) {
	for _, d := range ds {
		d.ShowFrame(frame, mirrored)
	}
}

// MockDisplay records what was shown.
type MockDisplay struct {
	Labels []string
	Texts  []string
	Errors []string
	Frames int
}

func (m *MockDisplay) SetLabel(label string) { m.Labels = append(m.Labels, label) }
func (m *MockDisplay) SetText(text string)   { m.Texts = append(m.Texts, text) }
func (m *MockDisplay) ShowError(msg string)  { m.Errors = append(m.Errors, msg) }

func (m *MockDisplay) ShowFrame(frame camera.EncodedImage, mirrored bool) {
	m.Frames++
}
