package loop_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-spellcam/pkg/camera"
	"github.com/teslashibe/go-spellcam/pkg/loop"
	"github.com/teslashibe/go-spellcam/pkg/recognition"
	"github.com/teslashibe/go-spellcam/pkg/session"
)

// cues records audio notifications.
type cues struct {
	mu     sync.Mutex
	tones  int
	spoken []string
}

func (c *cues) PlayTone() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tones++
}

func (c *cues) Speak(text string, highPriority bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if highPriority {
		text = "!" + text
	}
	c.spoken = append(c.spoken, text)
}

func (c *cues) snapshot() (int, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tones, append([]string(nil), c.spoken...)
}

type fixture struct {
	loop    *loop.Loop
	source  *camera.MockSource
	rec     *recognition.Mock
	session *session.Session
	audio   *cues
}

func newFixture(t *testing.T, rec *recognition.Mock, interval time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		source: camera.NewMockSource(),
		rec:    rec,
		audio:  &cues{},
	}
	f.session = session.New(rec, nil, session.Config{Mirrored: true})
	l, err := loop.New(loop.Deps{
		Source:     f.source,
		Recognizer: rec,
		Session:    f.session,
		Audio:      f.audio,
	}, loop.Config{Interval: interval})
	if err != nil {
		t.Fatal(err)
	}
	f.loop = l
	return f
}

func TestGrowthCuesOneCharacterPerCycle(t *testing.T) {
	f := newFixture(t, recognition.NewMock("A", "AB", "ABC"), time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if st := f.loop.Cycle(ctx); st != loop.Idle {
			t.Fatalf("cycle %d state = %s", i, st)
		}
	}

	tones, spoken := f.audio.snapshot()
	if tones != 3 {
		t.Errorf("tones = %d, want 3", tones)
	}
	want := []string{"A", "B", "C"}
	if len(spoken) != len(want) {
		t.Fatalf("spoken = %q, want %q", spoken, want)
	}
	for i := range want {
		if spoken[i] != want[i] {
			t.Errorf("spoken[%d] = %q, want %q", i, spoken[i], want[i])
		}
	}
}

func TestBurstSpeaksOnlyLastCharacter(t *testing.T) {
	f := newFixture(t, recognition.NewMock("ABC"), time.Millisecond)
	f.loop.Cycle(context.Background())

	tones, spoken := f.audio.snapshot()
	if tones != 1 || len(spoken) != 1 || spoken[0] != "C" {
		t.Errorf("tones = %d, spoken = %q", tones, spoken)
	}
}

func TestNoCueWithoutGrowth(t *testing.T) {
	f := newFixture(t, recognition.NewMock("AB", "AB", "A"), time.Millisecond)
	for i := 0; i < 3; i++ {
		f.loop.Cycle(context.Background())
	}
	tones, spoken := f.audio.snapshot()
	if tones != 1 || len(spoken) != 1 {
		t.Errorf("tones = %d, spoken = %q; only the first cycle grows", tones, spoken)
	}
}

func TestWhitespaceBeepsButIsNotSpoken(t *testing.T) {
	f := newFixture(t, recognition.NewMock("A", "A "), time.Millisecond)
	f.loop.Cycle(context.Background())
	f.loop.Cycle(context.Background())

	tones, spoken := f.audio.snapshot()
	if tones != 2 || len(spoken) != 1 {
		t.Errorf("tones = %d, spoken = %q", tones, spoken)
	}
}

func TestEmptyTextKeepsDisplayedText(t *testing.T) {
	rec := &recognition.Mock{Results: []recognition.Result{
		{Label: "H", Text: "H"},
		{Label: "", Text: ""},
	}}
	f := newFixture(t, rec, time.Millisecond)
	f.loop.Cycle(context.Background())
	f.loop.Cycle(context.Background())

	snap := f.session.Snapshot()
	if snap.Text != "H" || snap.Label != "" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestTransportFailureChangesNothing(t *testing.T) {
	rec := recognition.NewMock("AB")
	f := newFixture(t, rec, time.Millisecond)
	f.loop.Cycle(context.Background())

	rec.SubmitFunc = func(ctx context.Context, frame camera.EncodedImage) (*recognition.Result, error) {
		return nil, &recognition.TransportError{Endpoint: recognition.PathVideoFeed, Err: errors.New("connection refused")}
	}
	if st := f.loop.Cycle(context.Background()); st != loop.Idle {
		t.Errorf("state = %s, want idle", st)
	}

	if got := f.session.Text(); got != "AB" {
		t.Errorf("text = %q, want AB", got)
	}
	if tones, _ := f.audio.snapshot(); tones != 1 {
		t.Errorf("tones = %d, want 1", tones)
	}
	if s := f.loop.Stats(); s.Failures != 1 {
		t.Errorf("failures = %d", s.Failures)
	}

	// Growth after recovery is still measured against the last good text.
	rec.SubmitFunc = nil
	rec.Results = []recognition.Result{{Text: "ABC"}}
	f.loop.Cycle(context.Background())
	if _, spoken := f.audio.snapshot(); spoken[len(spoken)-1] != "C" {
		t.Errorf("spoken = %q", spoken)
	}
}

func TestWaitsForFrame(t *testing.T) {
	f := newFixture(t, recognition.NewMock("A"), time.Millisecond)
	f.source.ReadyAfter = 2

	for i := 0; i < 2; i++ {
		if st := f.loop.Cycle(context.Background()); st != loop.WaitingForFrame {
			t.Fatalf("cycle %d state = %s", i, st)
		}
	}
	if f.rec.CallCount("Submit") != 0 {
		t.Fatal("nothing should be submitted before the camera is ready")
	}
	if st := f.loop.Cycle(context.Background()); st != loop.Idle {
		t.Errorf("state = %s", st)
	}
	if f.rec.CallCount("Submit") != 1 {
		t.Errorf("submits = %d", f.rec.CallCount("Submit"))
	}
}

func TestClearDuringSubmitDiscardsResult(t *testing.T) {
	rec := recognition.NewMock()
	f := newFixture(t, rec, time.Millisecond)
	rec.SubmitFunc = func(ctx context.Context, frame camera.EncodedImage) (*recognition.Result, error) {
		if err := f.session.Clear(ctx); err != nil {
			t.Errorf("clear: %v", err)
		}
		return &recognition.Result{Label: "Q", Text: "OLDQ"}, nil
	}

	f.loop.Cycle(context.Background())

	if tones, _ := f.audio.snapshot(); tones != 0 {
		t.Error("stale result must not cue audio")
	}
	if got := f.session.Text(); got != "" {
		t.Errorf("text = %q, want empty", got)
	}
	if s := f.loop.Stats(); s.Discarded != 1 {
		t.Errorf("discarded = %d", s.Discarded)
	}
}

func TestStartSingleInFlight(t *testing.T) {
	rec := recognition.NewMock("A", "AB", "ABC")
	rec.Delay = 15 * time.Millisecond
	f := newFixture(t, rec, time.Millisecond)

	h := f.loop.Start(context.Background())
	time.Sleep(120 * time.Millisecond)

	// A concurrent manual cycle must not add a second request.
	f.loop.Cycle(context.Background())
	h.Stop()

	if got := rec.MaxConcurrent(); got != 1 {
		t.Errorf("max concurrent submits = %d, want 1", got)
	}
	n := rec.CallCount("Submit")
	if n < 3 {
		t.Errorf("submits = %d, want at least 3", n)
	}

	time.Sleep(30 * time.Millisecond)
	if rec.CallCount("Submit") != n {
		t.Error("loop kept running after Stop")
	}
	select {
	case <-h.Done():
	default:
		t.Error("Done should be closed after Stop")
	}
}

func TestStartReschedulesAfterFailure(t *testing.T) {
	rec := recognition.NewMock()
	rec.SubmitFunc = func(ctx context.Context, frame camera.EncodedImage) (*recognition.Result, error) {
		return nil, &recognition.APIError{StatusCode: 500, Endpoint: recognition.PathVideoFeed}
	}
	f := newFixture(t, rec, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	h := f.loop.Start(ctx)
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-h.Done()
	h.Stop()

	if n := rec.CallCount("Submit"); n < 3 {
		t.Errorf("submits = %d; failures must not stop the cadence", n)
	}
}

func TestStateString(t *testing.T) {
	if loop.Submitting.String() != "submitting" || loop.State(9).String() != "unknown" {
		t.Error("unexpected state names")
	}
}

func TestNewRequiresDeps(t *testing.T) {
	if _, err := loop.New(loop.Deps{}, loop.DefaultConfig()); err == nil {
		t.Error("expected error for missing dependencies")
	}
}
