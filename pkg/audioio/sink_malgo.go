package audioio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
)

// MalgoSink plays audio through miniaudio.
// Written samples are queued and drained by the device callback.
type MalgoSink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	running bool
	closed  bool

	// qmu guards queue only; the device callback must never wait on mu
	qmu     sync.Mutex
	queue   []int16
	drained chan struct{}

	chunksWritten  atomic.Int64
	samplesWritten atomic.Int64
	clears         atomic.Int64
}

// NewMalgoSink creates a sink; the device is opened on Start.
func NewMalgoSink(cfg Config, logger *slog.Logger) *MalgoSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &MalgoSink{
		cfg:     cfg,
		logger:  logger.With("component", "audioio.malgo"),
		drained: make(chan struct{}, 1),
	}
}

// Start opens the playback device.
func (s *MalgoSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	if s.ctx == nil {
		mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("malgo context: %w", err)
		}
		s.ctx = mctx

		config := malgo.DefaultDeviceConfig(malgo.Playback)
		config.Playback.Format = malgo.FormatS16
		config.Playback.Channels = uint32(s.cfg.Channels)
		config.SampleRate = uint32(s.cfg.SampleRate)
		config.PeriodSizeInFrames = uint32(s.cfg.BufferSize())

		device, err := malgo.InitDevice(mctx.Context, config, malgo.DeviceCallbacks{
			Data: s.dataCallback,
		})
		if err != nil {
			_ = mctx.Uninit()
			mctx.Free()
			s.ctx = nil
			return fmt.Errorf("malgo device: %w", err)
		}
		s.device = device
	}

	if err := s.device.Start(); err != nil {
		return fmt.Errorf("malgo start: %w", err)
	}
	s.running = true
	s.logger.Debug("playback device started", "sample_rate", s.cfg.SampleRate)
	return nil
}

func (s *MalgoSink) dataCallback(pOutput, _ []byte, frameCount uint32) {
	want := int(frameCount) * s.cfg.Channels

	s.qmu.Lock()
	n := want
	if n > len(s.queue) {
		n = len(s.queue)
	}
	for i := 0; i < n; i++ {
		pOutput[i*2] = byte(s.queue[i])
		pOutput[i*2+1] = byte(s.queue[i] >> 8)
	}
	s.queue = s.queue[n:]
	empty := len(s.queue) == 0
	s.qmu.Unlock()

	// Zero-fill remainder
	for i := n * 2; i < want*2 && i < len(pOutput); i++ {
		pOutput[i] = 0
	}

	if n > 0 || empty {
		select {
		case s.drained <- struct{}{}:
		default:
		}
	}
}

// Stop pauses the device. Queued audio is kept.
func (s *MalgoSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	return s.device.Stop()
}

// Write queues audio, blocking while the queue is over its bound.
func (s *MalgoSink) Write(ctx context.Context, chunk AudioChunk) error {
	samples := conform(chunk, s.cfg)
	limit := s.cfg.MaxBufferedSamples()

	for {
		s.mu.Lock()
		open := s.running && !s.closed
		s.mu.Unlock()
		if !open {
			return io.ErrClosedPipe
		}

		s.qmu.Lock()
		// Checked under qmu so a Clear that follows a cancel cannot
		// race with this append.
		if err := ctx.Err(); err != nil {
			s.qmu.Unlock()
			return err
		}
		if len(s.queue) < limit {
			s.queue = append(s.queue, samples...)
			s.qmu.Unlock()
			break
		}
		s.qmu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.drained:
		}
	}

	s.chunksWritten.Add(1)
	s.samplesWritten.Add(int64(len(samples)))
	return nil
}

// Flush waits until the queue is empty.
func (s *MalgoSink) Flush(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.BufferDuration)
	defer ticker.Stop()

	for {
		s.qmu.Lock()
		remaining := len(s.queue)
		s.qmu.Unlock()
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()

		if remaining == 0 || !running {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.drained:
		case <-ticker.C:
		}
	}
}

// Clear discards queued audio.
func (s *MalgoSink) Clear() error {
	s.qmu.Lock()
	had := len(s.queue) > 0
	s.queue = nil
	s.qmu.Unlock()

	if had {
		s.clears.Add(1)
	}
	select {
	case s.drained <- struct{}{}:
	default:
	}
	return nil
}

// Config returns the audio configuration.
func (s *MalgoSink) Config() Config {
	return s.cfg
}

// Name returns "malgo".
func (s *MalgoSink) Name() string {
	return string(BackendMalgo)
}

// Close stops and releases the device and context.
func (s *MalgoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.running = false

	s.qmu.Lock()
	s.queue = nil
	s.qmu.Unlock()

	if s.device != nil {
		s.device.Uninit()
		s.device = nil
	}
	if s.ctx != nil {
		_ = s.ctx.Uninit()
		s.ctx.Free()
		s.ctx = nil
	}
	return nil
}

// Stats returns sink statistics.
func (s *MalgoSink) Stats() SinkStats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	s.qmu.Lock()
	buffered := int64(len(s.queue))
	s.qmu.Unlock()

	return SinkStats{
		ChunksWritten:   s.chunksWritten.Load(),
		SamplesWritten:  s.samplesWritten.Load(),
		Clears:          s.clears.Load(),
		Running:         running,
		Backend:         s.Name(),
		BufferedSamples: buffered,
	}
}

// Ensure MalgoSink implements SinkWithStats.
var _ SinkWithStats = (*MalgoSink)(nil)
