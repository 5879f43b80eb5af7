package feedback

import "errors"

var (
	// ErrInterrupted reports an utterance cut short by a cancel.
	// It is expected and never surfaced as a failure.
	ErrInterrupted = errors.New("feedback: utterance interrupted")

	// ErrNoVoice is returned when no voice is available to speak with.
	ErrNoVoice = errors.New("feedback: no voice available")

	// ErrClosed is returned after the controller has been closed.
	ErrClosed = errors.New("feedback: closed")
)
