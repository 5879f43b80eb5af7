package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-spellcam/pkg/audioio"
	"github.com/teslashibe/go-spellcam/pkg/tts"
)

// Utterance is one queued piece of speech, pinned to a voice.
type Utterance struct {
	Text  string
	Voice tts.Voice
}

// SpeechQueue plays utterances one at a time in FIFO order.
type SpeechQueue struct {
	provider tts.Provider
	sink     audioio.Sink
	logger   *slog.Logger
	report   func(Utterance, error)

	mu      sync.Mutex
	pending []Utterance
	current context.CancelFunc
	busy    bool
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

// NewSpeechQueue starts the queue worker. report receives the outcome of
// every utterance that did not complete, including ErrInterrupted.
func NewSpeechQueue(provider tts.Provider, sink audioio.Sink, logger *slog.Logger, report func(Utterance, error)) *SpeechQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &SpeechQueue{
		provider: provider,
		sink:     sink,
		logger:   logger.With("component", "feedback.speech"),
		report:   report,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go q.run()
	return q
}

// Enqueue appends an utterance without disturbing what is playing.
func (q *SpeechQueue) Enqueue(u Utterance) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.pending = append(q.pending, u)
	select {
	case q.wake <- struct{}{}:
	default:
	}
	q.mu.Unlock()
	return nil
}

// Cancel aborts the current utterance and drops everything queued.
func (q *SpeechQueue) Cancel() {
	q.mu.Lock()
	dropped := q.pending
	q.pending = nil
	if q.current != nil {
		q.current()
	}
	q.mu.Unlock()

	if err := q.sink.Clear(); err != nil {
		q.logger.Warn("clear speech sink", "error", err)
	}
	for _, u := range dropped {
		q.finish(u, ErrInterrupted)
	}
}

// Pending returns the number of utterances queued or playing.
func (q *SpeechQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.pending)
	if q.busy {
		n++
	}
	return n
}

// Close cancels all speech and stops the worker.
func (q *SpeechQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.wake)
	q.mu.Unlock()

	q.Cancel()
	<-q.done
	return nil
}

func (q *SpeechQueue) run() {
	defer close(q.done)
	for {
		u, ctx, ok := q.next()
		if !ok {
			if _, open := <-q.wake; !open {
				return
			}
			continue
		}
		err := q.play(ctx, u)

		q.mu.Lock()
		q.current()
		q.current = nil
		q.busy = false
		q.mu.Unlock()

		if err != nil {
			q.finish(u, err)
		}
	}
}

// next pops the head of the queue and registers its cancel func under the same lock.
func (q *SpeechQueue) next() (Utterance, context.Context, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 || q.closed {
		return Utterance{}, nil, false
	}
	u := q.pending[0]
	q.pending = q.pending[1:]
	ctx, cancel := context.WithCancel(context.Background())
	q.current = cancel
	q.busy = true
	return u, ctx, true
}

func (q *SpeechQueue) play(ctx context.Context, u Utterance) error {
	result, err := q.provider.Synthesize(ctx, tts.Request{Text: u.Text, Voice: u.Voice.ID})
	if err != nil {
		return interrupted(ctx, fmt.Errorf("synthesize: %w", err))
	}

	rate := q.sink.Config().SampleRate
	samples, err := tts.Decode(result, rate)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return ErrInterrupted
	}

	if err := q.sink.Write(ctx, audioio.NewChunk(samples, rate)); err != nil {
		return interrupted(ctx, fmt.Errorf("write: %w", err))
	}
	if err := q.sink.Flush(ctx); err != nil {
		return interrupted(ctx, fmt.Errorf("flush: %w", err))
	}

	q.logger.Debug("spoke", "text", u.Text, "voice", u.Voice.ID, "samples", len(samples))
	return nil
}

func (q *SpeechQueue) finish(u Utterance, err error) {
	if q.report != nil {
		q.report(u, err)
	}
}

// interrupted maps any failure caused by cancellation to ErrInterrupted.
func interrupted(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return ErrInterrupted
	}
	return err
}
