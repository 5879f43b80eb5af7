package stub

import (
	"context"
	"sync"
	"time"
)

// Frame is a decoded request image as seen by a classifier.
type Frame struct {
	JPEG []byte

	// Mirror is the session flip flag; classifiers flip the image before use when set.
	Mirror bool
}

// Classifier maps a frame to a live label. An empty label means no sign.
// Labels "space" and "del" are editing commands.
type Classifier interface {
	Classify(ctx context.Context, frame Frame) (string, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, frame Frame) (string, error)

func (f ClassifierFunc) Classify(ctx context.Context, frame Frame) (string, error) {
	return f(ctx, frame)
}

// DefaultScript spells HELLO. The empty label between the two L's
// resets the stable label so the second L commits on its own.
const DefaultScript = "H,E,L,,L,O"

// Scripted replays labels on a clock, each held for Every, then repeats.
type Scripted struct {
	Labels []string
	Every  time.Duration
	// Now is the clock; nil means time.Now.
	Now func() time.Time

	mu    sync.Mutex
	start time.Time
}

// NewScripted creates a scripted classifier starting on the first call.
func NewScripted(every time.Duration, labels ...string) *Scripted {
	return &Scripted{Labels: labels, Every: every, Now: time.Now}
}

// Classify returns the label scheduled for the current time.
func (s *Scripted) Classify(ctx context.Context, frame Frame) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Labels) == 0 {
		return "", nil
	}
	clock := s.Now
	if clock == nil {
		clock = time.Now
	}
	now := clock()
	if s.start.IsZero() {
		s.start = now
	}
	every := s.Every
	if every <= 0 {
		every = time.Second
	}
	idx := int(now.Sub(s.start)/every) % len(s.Labels)
	return s.Labels[idx], nil
}
