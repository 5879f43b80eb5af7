package recognition

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/go-spellcam/pkg/camera"
)

// Mock implements the recognition calls for testing.
// Responses are replayed in order; the last one repeats once the script is exhausted.
type Mock struct {
	// Results is the scripted Submit sequence.
	Results []Result

	// SubmitFunc, if set, overrides the scripted results.
	SubmitFunc func(ctx context.Context, frame camera.EncodedImage) (*Result, error)

	// ClearStatus is returned by Clear. Defaults to "success" when empty.
	ClearStatus string

	// ClearErr and FlipErr are returned by Clear and Flip.
	ClearErr error
	FlipErr  error

	// Delay is applied to every Submit.
	Delay time.Duration

	mu       sync.Mutex
	calls    []MockCall
	next     int
	inFlight int
	maxIn    int
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Flip   bool
	Time   time.Time
}

// NewMock creates a mock that replays the given captured texts with empty labels.
func NewMock(texts ...string) *Mock {
	m := &Mock{}
	for _, t := range texts {
		m.Results = append(m.Results, Result{Label: "x", Text: t})
	}
	return m
}

// Submit returns the next scripted result.
func (m *Mock) Submit(ctx context.Context, frame camera.EncodedImage) (*Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Method: "Submit", Time: time.Now()})
	m.inFlight++
	if m.inFlight > m.maxIn {
		m.maxIn = m.inFlight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, &TransportError{Endpoint: PathVideoFeed, Err: ctx.Err()}
		}
	}

	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, frame)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Results) == 0 {
		return &Result{}, nil
	}
	idx := m.next
	if idx >= len(m.Results) {
		idx = len(m.Results) - 1
	} else {
		m.next++
	}
	r := m.Results[idx]
	return &r, nil
}

// Clear returns the configured status.
func (m *Mock) Clear(ctx context.Context) (Status, error) {
	m.recordCall(MockCall{Method: "Clear"})
	if m.ClearErr != nil {
		return Status{}, m.ClearErr
	}
	status := Status{Status: m.ClearStatus}
	if status.Status == "" {
		status.Status = StatusSuccess
	}
	if !status.OK() {
		return status, ErrClearRejected
	}
	return status, nil
}

// Flip records the requested state.
func (m *Mock) Flip(ctx context.Context, flip bool) error {
	m.recordCall(MockCall{Method: "Flip", Flip: flip})
	return m.FlipErr
}

func (m *Mock) recordCall(call MockCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	call.Time = time.Now()
	m.calls = append(m.calls, call)
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// LastCall returns the most recent call, or nil if none.
func (m *Mock) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// MaxConcurrent returns the highest number of overlapping Submit calls observed.
func (m *Mock) MaxConcurrent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxIn
}
