package stub_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-spellcam/pkg/camera"
	"github.com/teslashibe/go-spellcam/pkg/recognition"
	"github.com/teslashibe/go-spellcam/pkg/recognition/stub"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// label is a classifier whose answer the test sets directly.
type label struct {
	mu      sync.Mutex
	value   string
	err     error
	mirrors []bool
}

func (l *label) set(v string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value = v
}

func (l *label) Classify(ctx context.Context, frame stub.Frame) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mirrors = append(l.mirrors, frame.Mirror)
	return l.value, l.err
}

// browser posts to the stub app and keeps its session cookie.
type browser struct {
	t      *testing.T
	srv    *stub.Server
	cookie *http.Cookie
}

func (b *browser) post(path, body string) map[string]any {
	b.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	resp, err := b.srv.App().Test(req)
	if err != nil {
		b.t.Fatal(err)
	}
	defer resp.Body.Close()
	for _, c := range resp.Cookies() {
		if c.Name == stub.CookieName {
			b.cookie = c
		}
	}
	if resp.StatusCode != http.StatusOK {
		b.t.Fatalf("%s: status %d", path, resp.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		b.t.Fatal(err)
	}
	return out
}

func (b *browser) frame() (string, string) {
	b.t.Helper()
	img := camera.NewMockSource().Frame
	out := b.post(recognition.PathVideoFeed, `{"image":"`+img.DataURL()+`"}`)
	pred, _ := out["prediction"].(string)
	text, _ := out["captured_text"].(string)
	return pred, text
}

func newStub(c stub.Classifier, clk *clock) *stub.Server {
	cfg := stub.DefaultConfig()
	cfg.Now = clk.Now
	return stub.New(c, cfg)
}

func TestCommitAfterStablePeriod(t *testing.T) {
	clk := newClock()
	cls := &label{value: "A"}
	b := &browser{t: t, srv: newStub(cls, clk)}

	if pred, text := b.frame(); pred != "A" || text != "" {
		t.Fatalf("first frame = %q %q", pred, text)
	}
	clk.Advance(stub.DefaultStableFor)
	if _, text := b.frame(); text != "" {
		t.Errorf("text = %q; the label must hold longer than the stable period", text)
	}
	clk.Advance(time.Millisecond)
	if _, text := b.frame(); text != "A" {
		t.Errorf("text = %q, want A", text)
	}
	clk.Advance(5 * time.Second)
	if _, text := b.frame(); text != "A" {
		t.Errorf("text = %q; a held label commits once", text)
	}

	cls.set("B")
	b.frame()
	clk.Advance(3 * time.Second)
	if _, text := b.frame(); text != "AB" {
		t.Errorf("text = %q, want AB", text)
	}
}

func TestSpaceAndDelete(t *testing.T) {
	clk := newClock()
	cls := &label{}
	b := &browser{t: t, srv: newStub(cls, clk)}

	hold := func(v string) string {
		cls.set(v)
		b.frame()
		clk.Advance(3 * time.Second)
		_, text := b.frame()
		return text
	}

	hold("H")
	hold("I")
	if got := hold(stub.LabelSpace); got != "HI " {
		t.Errorf("after space = %q", got)
	}
	if got := hold(stub.LabelDelete); got != "HI" {
		t.Errorf("after del = %q", got)
	}
	if got := hold(""); got != "HI" {
		t.Errorf("empty label changed text to %q", got)
	}
}

func TestClearText(t *testing.T) {
	clk := newClock()
	cls := &label{value: "A"}
	b := &browser{t: t, srv: newStub(cls, clk)}

	b.frame()
	clk.Advance(3 * time.Second)
	b.frame()

	out := b.post(recognition.PathClearText, "")
	if out["status"] != recognition.StatusSuccess {
		t.Errorf("clear = %v", out)
	}
	if _, text := b.frame(); text != "" {
		t.Errorf("text after clear = %q", text)
	}
}

func TestFlipCamera(t *testing.T) {
	cls := &label{}
	b := &browser{t: t, srv: newStub(cls, newClock())}

	if out := b.post(recognition.PathFlipCamera, ""); out["flipped"] != false {
		t.Errorf("toggle = %v", out)
	}
	if out := b.post(recognition.PathFlipCamera, `{"flip":true}`); out["flipped"] != true {
		t.Errorf("explicit = %v", out)
	}
	b.frame()
	if len(cls.mirrors) != 1 || !cls.mirrors[0] {
		t.Errorf("classifier mirrors = %v", cls.mirrors)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	clk := newClock()
	srv := newStub(&label{value: "A"}, clk)
	one := &browser{t: t, srv: srv}
	two := &browser{t: t, srv: srv}

	one.frame()
	clk.Advance(3 * time.Second)
	if _, text := one.frame(); text != "A" {
		t.Fatalf("text = %q", text)
	}
	if _, text := two.frame(); text != "" {
		t.Errorf("second session text = %q", text)
	}
	if srv.SessionCount() != 2 {
		t.Errorf("sessions = %d", srv.SessionCount())
	}
}

func TestErrorPredictions(t *testing.T) {
	clk := newClock()

	b := &browser{t: t, srv: newStub(nil, clk)}
	if pred, _ := b.frame(); pred != stub.PredictionNoModel {
		t.Errorf("no classifier prediction = %q", pred)
	}

	b = &browser{t: t, srv: newStub(&label{err: errors.New("boom")}, clk)}
	if pred, _ := b.frame(); pred != stub.PredictionError {
		t.Errorf("classifier failure prediction = %q", pred)
	}

	out := b.post(recognition.PathVideoFeed, `{"image":"not a data url"}`)
	if out["prediction"] != stub.PredictionError {
		t.Errorf("bad image prediction = %v", out["prediction"])
	}
}

func TestScripted(t *testing.T) {
	s := stub.NewScripted(time.Nanosecond)
	if got, _ := s.Classify(context.Background(), stub.Frame{}); got != "" {
		t.Errorf("empty script = %q", got)
	}

	s = stub.NewScripted(time.Hour, "H", "I")
	if got, _ := s.Classify(context.Background(), stub.Frame{}); got != "H" {
		t.Errorf("first label = %q", got)
	}
}

func TestDefaultScriptSpellsHello(t *testing.T) {
	clk := newClock()
	script := stub.NewScripted(3*time.Second, strings.Split(stub.DefaultScript, ",")...)
	script.Now = clk.Now
	b := &browser{t: t, srv: newStub(script, clk)}

	var text string
	for i := 0; i < 36; i++ {
		_, text = b.frame()
		clk.Advance(500 * time.Millisecond)
	}
	if text != "HELLO" {
		t.Errorf("text after one pass = %q, want HELLO", text)
	}
}

// TestClientAgainstStub drives the stub through the real client, which
// carries the session cookie itself.
func TestClientAgainstStub(t *testing.T) {
	clk := newClock()
	srv := newStub(&label{value: "Z"}, clk)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Serve(ctx, ln)
	}()
	defer func() {
		cancel()
		<-done
	}()

	client := recognition.NewClient(recognition.WithBaseURL("http://" + ln.Addr().String()))
	frame := camera.NewMockSource().Frame

	var res *recognition.Result
	for i := 0; i < 50; i++ {
		if res, err = client.Submit(ctx, frame); err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	clk.Advance(3 * time.Second)
	if res, err = client.Submit(ctx, frame); err != nil {
		t.Fatal(err)
	}
	if res.Label != "Z" || res.Text != "Z" {
		t.Errorf("result = %+v", res)
	}

	if _, err := client.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := client.Flip(ctx, false); err != nil {
		t.Fatalf("Flip: %v", err)
	}
	if srv.SessionCount() != 1 {
		t.Errorf("sessions = %d; the client should keep one cookie", srv.SessionCount())
	}
}
