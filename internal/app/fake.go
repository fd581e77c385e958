package app

import (
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/sonoviz/sonoviz/internal/audio"
)

// Generator is a synthetic audio.Source: a bass sine with a periodic kick
// burst plus a little noise, so the whole pipeline (bands, beats, tempo)
// can run without a capture device.
type Generator struct {
	rng             *rand.Rand
	frames          chan audio.Frame
	sampleRate      float64
	framesPerBuffer int

	phase     float64
	sampleIdx uint64

	stop   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// NewGenerator starts the synthetic source at the given rate and chunk
// size.
func NewGenerator(sampleRate float64, framesPerBuffer int) *Generator {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	if framesPerBuffer <= 0 {
		framesPerBuffer = 1024
	}
	g := &Generator{
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		frames:          make(chan audio.Frame, 8),
		sampleRate:      sampleRate,
		framesPerBuffer: framesPerBuffer,
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
	go g.run()
	return g
}

// Frames implements audio.Source.
func (g *Generator) Frames() <-chan audio.Frame { return g.frames }

// SampleRate implements audio.Source.
func (g *Generator) SampleRate() float64 { return g.sampleRate }

// Close implements audio.Source.
func (g *Generator) Close() error {
	if !g.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(g.stop)
	<-g.done
	return nil
}

func (g *Generator) run() {
	defer close(g.done)
	defer close(g.frames)

	interval := time.Duration(float64(g.framesPerBuffer) / g.sampleRate * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-g.stop:
			return
		case <-ticker.C:
		}

		frame := audio.Frame{
			Samples:    g.synthesize(),
			Channels:   1,
			SampleRate: g.sampleRate,
			Timestamp:  time.Now(),
		}
		select {
		case g.frames <- frame:
		default:
		}
	}
}

// synthesize produces one mono chunk: a 110 Hz carrier whose amplitude
// spikes twice a second, imitating a 120 BPM kick.
func (g *Generator) synthesize() []float32 {
	const (
		carrierHz  = 110.0
		kickPeriod = 0.5 // seconds between bursts
		kickLength = 0.08
	)

	samples := make([]float32, g.framesPerBuffer)
	step := 2 * math.Pi * carrierHz / g.sampleRate
	for i := range samples {
		t := float64(g.sampleIdx) / g.sampleRate
		amp := 0.15
		if math.Mod(t, kickPeriod) < kickLength {
			amp = 0.9
		}
		s := amp*math.Sin(g.phase) + g.rng.Float64()*0.02
		samples[i] = float32(s)
		g.phase += step
		g.sampleIdx++
	}
	if g.phase > 2*math.Pi {
		g.phase = math.Mod(g.phase, 2*math.Pi)
	}
	return samples
}
