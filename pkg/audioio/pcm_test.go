package audioio

import (
	"testing"
	"time"
)

func TestResample_SameRate(t *testing.T) {
	samples := []int16{100, 200, 300, 400, 500}
	result := Resample(samples, 24000, 24000)

	if len(result) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(result))
	}
	for i, s := range samples {
		if result[i] != s {
			t.Errorf("Sample %d: expected %d, got %d", i, s, result[i])
		}
	}
}

func TestResample_Rates(t *testing.T) {
	tests := []struct {
		name     string
		in       int
		from, to int
		want     int
	}{
		{"48k to 24k", 960, 48000, 24000, 480},
		{"16k to 24k", 320, 16000, 24000, 480},
		{"8k to 24k", 160, 8000, 24000, 480},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := make([]int16, tt.in)
			if got := len(Resample(samples, tt.from, tt.to)); got != tt.want {
				t.Errorf("len = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResample_Empty(t *testing.T) {
	if len(Resample(nil, 24000, 48000)) != 0 {
		t.Error("Expected empty result for nil input")
	}
}

func TestBytesRoundTrip(t *testing.T) {
	data := []byte{0x02, 0x01, 0x04, 0x03}
	samples := BytesToSamples(data)

	if len(samples) != 2 || samples[0] != 0x0102 || samples[1] != 0x0304 {
		t.Fatalf("samples = %#v", samples)
	}
	back := SamplesToBytes(samples)
	for i := range data {
		if back[i] != data[i] {
			t.Errorf("byte %d: got %#x, want %#x", i, back[i], data[i])
		}
	}
}

func TestDownmixUpmix(t *testing.T) {
	stereo := []int16{100, 300, -200, 200}
	mono := DownmixToMono(stereo, 2)
	if len(mono) != 2 || mono[0] != 200 || mono[1] != 0 {
		t.Errorf("mono = %v", mono)
	}
	up := UpmixFromMono([]int16{5, 6}, 2)
	if len(up) != 4 || up[0] != 5 || up[1] != 5 || up[3] != 6 {
		t.Errorf("up = %v", up)
	}
}

func TestConform(t *testing.T) {
	cfg := DefaultConfig()
	chunk := AudioChunk{Samples: make([]int16, 4800), SampleRate: 48000, Channels: 1}
	if got := len(conform(chunk, cfg)); got != 2400 {
		t.Errorf("conform 48k mono -> 24k = %d samples, want 2400", got)
	}

	cfg.Channels = 2
	chunk = NewChunk(make([]int16, 100), 24000)
	if got := len(conform(chunk, cfg)); got != 200 {
		t.Errorf("conform mono -> stereo = %d samples, want 200", got)
	}
}

func TestAudioChunk_Duration(t *testing.T) {
	chunk := NewChunk(make([]int16, 2400), 24000)
	if d := chunk.Duration(); d != 100*time.Millisecond {
		t.Errorf("Duration = %v, want 100ms", d)
	}
	var empty AudioChunk
	if empty.Duration() != 0 {
		t.Error("expected zero duration")
	}
}
