package analyzer

import (
	"math"
	"testing"
	"time"

	"github.com/sonoviz/sonoviz/internal/audio"
)

func TestConfigValidate(t *testing.T) {
	good := Config{SampleRate: 44100, BufferSize: 1024, FFTSize: 2048}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := map[string]Config{
		"zero sample rate":     {SampleRate: 0, BufferSize: 1024, FFTSize: 2048},
		"negative sample rate": {SampleRate: -1, BufferSize: 1024, FFTSize: 2048},
		"odd buffer size":      {SampleRate: 44100, BufferSize: 1000, FFTSize: 2048},
		"zero buffer size":     {SampleRate: 44100, BufferSize: 0, FFTSize: 2048},
		"odd fft size":         {SampleRate: 44100, BufferSize: 1024, FFTSize: 1234},
	}
	for name, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
		if _, err := New(cfg); err == nil {
			t.Fatalf("%s: New must refuse invalid config", name)
		}
	}
}

func TestProcessSineTone(t *testing.T) {
	const (
		rate = 44100.0
		size = 2048
	)
	an, err := New(Config{SampleRate: rate, BufferSize: size, FFTSize: size})
	if err != nil {
		t.Fatalf("new analyzer: %v", err)
	}

	const target = 100.0
	binWidth := rate / size

	samples := make([]float32, size)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * target * float64(i) / rate))
	}

	f, err := an.Process(audio.Frame{
		Samples:    samples,
		Channels:   1,
		SampleRate: rate,
		Timestamp:  time.Now(),
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if math.Abs(f.PeakFrequency-target) > binWidth {
		t.Fatalf("peak=%f want within %f of %f", f.PeakFrequency, binWidth, target)
	}
	if math.Abs(f.Volume-math.Sqrt2/2) > 0.05 {
		t.Fatalf("volume=%f want ~0.707 for a full-scale sine", f.Volume)
	}
	if math.Abs(f.Peak-1.0) > 0.01 {
		t.Fatalf("peak amplitude=%f want ~1.0", f.Peak)
	}

	// A 100 Hz tone has no business in the upper bands.
	if f.Presence > 0.05 || f.Brilliance > 0.05 {
		t.Fatalf("presence=%f brilliance=%f want near zero for a low tone", f.Presence, f.Brilliance)
	}
}

func TestProcessStereoDownmix(t *testing.T) {
	an, err := New(Config{SampleRate: 44100, BufferSize: 256, FFTSize: 256})
	if err != nil {
		t.Fatalf("new analyzer: %v", err)
	}

	// Left and right cancel: the mono mix is silence.
	samples := make([]float32, 512)
	for i := 0; i < len(samples); i += 2 {
		samples[i] = 0.8
		samples[i+1] = -0.8
	}

	f, err := an.Process(audio.Frame{Samples: samples, Channels: 2, Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if f.Volume != 0 || f.Peak != 0 {
		t.Fatalf("volume=%f peak=%f want 0 for cancelling channels", f.Volume, f.Peak)
	}
}

func TestProcessFillsZeroTimestamp(t *testing.T) {
	an, err := New(Config{SampleRate: 44100, BufferSize: 256, FFTSize: 256})
	if err != nil {
		t.Fatalf("new analyzer: %v", err)
	}

	before := time.Now()
	f, err := an.Process(audio.Frame{Samples: make([]float32, 256), Channels: 1})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if f.Timestamp.Before(before) {
		t.Fatalf("timestamp=%v want current time for zero input timestamp", f.Timestamp)
	}
}
