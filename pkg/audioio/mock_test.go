package audioio

import (
	"context"
	"io"
	"testing"
)

func TestMockSink_WriteFlushClear(t *testing.T) {
	sink := NewMockSink(DefaultConfig(), nil)
	ctx := context.Background()

	if err := sink.Write(ctx, NewChunk([]int16{1}, 24000)); err != io.ErrClosedPipe {
		t.Errorf("write before start: %v", err)
	}

	if err := sink.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := sink.Write(ctx, NewChunk(make([]int16, 480), 24000)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	stats := sink.Stats()
	if stats.ChunksWritten != 3 || stats.BufferedSamples != 1440 {
		t.Errorf("stats = %+v", stats)
	}

	if err := sink.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	stats = sink.Stats()
	if stats.BufferedSamples != 0 || stats.Clears != 1 {
		t.Errorf("after clear: %+v", stats)
	}
	if len(sink.Written()) != 3 {
		t.Errorf("Written() = %d chunks, want 3", len(sink.Written()))
	}

	sink.Close()
	if err := sink.Start(ctx); err != io.ErrClosedPipe {
		t.Errorf("start after close: %v", err)
	}
}

func TestNewSink(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendMock
	sink, err := NewSink(cfg, nil)
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	if sink.Name() != "mock" {
		t.Errorf("Name = %q", sink.Name())
	}

	cfg.Backend = "pulse"
	if _, err := NewSink(cfg, nil); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg = DefaultConfig()
	cfg.SampleRate = 0
	if _, err := NewSink(cfg, nil); err == nil {
		t.Error("expected validation error")
	}
}

func TestMockSink_WriteAfterCancel(t *testing.T) {
	sink := NewMockSink(DefaultConfig(), nil)
	if err := sink.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sink.Write(ctx, NewChunk(make([]int16, 480), 24000)); err != context.Canceled {
		t.Errorf("Write after cancel = %v, want context.Canceled", err)
	}
	if n := len(sink.Written()); n != 0 {
		t.Errorf("Written() = %d chunks, want 0", n)
	}
	if stats := sink.Stats(); stats.BufferedSamples != 0 || stats.ChunksWritten != 0 {
		t.Errorf("stats = %+v", stats)
	}
}
