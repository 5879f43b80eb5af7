// Package transcript detects characters appended to the cumulative recognized text.
package transcript

import "unicode/utf8"

// Tracker holds the last observed recognized text.
// It is not safe for concurrent use; the owning session serializes access.
type Tracker struct {
	last string
}

// NewTracker returns a tracker starting from empty text.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Observe records text and returns what was appended since the previous value.
// Growth is decided by length alone (in runes): if text is longer, the suffix is
// the runes of text past the previous length. The tracker always resynchronizes
// to text, including when it shrinks.
func (t *Tracker) Observe(text string) (suffix string, grew bool) {
	prev := utf8.RuneCountInString(t.last)
	t.last = text

	if utf8.RuneCountInString(text) <= prev {
		return "", false
	}
	return skipRunes(text, prev), true
}

// Reset clears the tracked text. The next non-empty Observe returns its input in full.
func (t *Tracker) Reset() {
	t.last = ""
}

// Last returns the most recently observed text.
func (t *Tracker) Last() string {
	return t.last
}

// LastRune returns the final character of s as a string, or "" for empty s.
func LastRune(s string) string {
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeLastRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s[len(s)-size:]
	}
	return string(r)
}

func skipRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[i:]
		}
		n--
	}
	return ""
}
