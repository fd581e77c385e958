package analyzer

import (
	"fmt"
	"time"

	"github.com/sonoviz/sonoviz/internal/audio"
)

// Config fixes the per-session analysis geometry.
type Config struct {
	SampleRate float64
	BufferSize int // sliding history length, power of two
	FFTSize    int // transform length, power of two
}

// Sensible defaults for live capture.
const (
	DefaultSampleRate = 44100
	DefaultBufferSize = 1024
	DefaultFFTSize    = 2048
)

// Validate rejects geometry the pipeline cannot run on. Violations are
// fatal at construction time, never mid-stream.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("analyzer: sample rate must be positive, got %g", c.SampleRate)
	}
	if !isPowerOfTwo(c.BufferSize) {
		return fmt.Errorf("analyzer: buffer size must be a power of two, got %d", c.BufferSize)
	}
	if !isPowerOfTwo(c.FFTSize) {
		return fmt.Errorf("analyzer: fft size must be a power of two, got %d", c.FFTSize)
	}
	return nil
}

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

// Analyzer turns raw capture frames into Features. All mutable state (the
// sliding buffer, the rolling histories, the last-beat timestamp) belongs
// to the single goroutine calling Process; the struct holds no locks.
type Analyzer struct {
	cfg       Config
	assembler *assembler
	transform *spectralTransform
	beat      *beatDetector
}

// New validates cfg and builds an analyzer for one audio session.
func New(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{
		cfg:       cfg,
		assembler: newAssembler(cfg.BufferSize),
		transform: newSpectralTransform(cfg.FFTSize, cfg.SampleRate),
		beat:      newBeatDetector(time.Now()),
	}, nil
}

func (a *Analyzer) nyquist() float64 { return a.cfg.SampleRate / 2 }

// Process runs the full pipeline on one frame: downmix and slide, windowed
// transform, band and time-domain extraction, beat and tempo update. A
// transform failure leaves all rolling state except the sliding buffer
// untouched; the caller logs, skips the frame and keeps going.
func (a *Analyzer) Process(frame audio.Frame) (Features, error) {
	ts := frame.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	mono := a.assembler.ingest(frame.Samples, frame.Channels)

	spectrum, err := a.transform.transform(a.assembler.buffer)
	if err != nil {
		return Features{}, err
	}

	bands := extractBands(spectrum, a.nyquist())
	volume, peak, zcr := extractTimeDomain(mono)
	confidence := a.beat.step(volume, bands.Bass, ts)

	return Features{
		Timestamp:        ts,
		Volume:           volume,
		Peak:             peak,
		SubBass:          bands.SubBass,
		Bass:             bands.Bass,
		LowMid:           bands.LowMid,
		Mid:              bands.Mid,
		HighMid:          bands.HighMid,
		Presence:         bands.Presence,
		Brilliance:       bands.Brilliance,
		ZeroCrossingRate: zcr,
		SpectralCentroid: spectrum.SpectralCentroid,
		SpectralRolloff:  spectralRolloff(spectrum),
		PeakFrequency:    spectrum.PeakFrequency,
		BeatConfidence:   confidence,
		Tempo:            a.beat.tempo(),
	}, nil
}
