package audio

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
)

// Capture wraps a PortAudio input stream and exposes it as a Source. The
// stream callback never blocks and never touches shared mutable state: each
// buffer is copied into a fresh Frame and handed off with a non-blocking
// channel send. When the consumer falls behind the frame is dropped and
// counted, trading data loss for bounded latency.
type Capture struct {
	stream     *portaudio.Stream
	device     *portaudio.DeviceInfo
	sampleRate float64
	channels   int

	frames  chan Frame
	dropped atomic.Uint64
	closed  atomic.Bool
}

// CaptureConfig controls how a Capture instance is created.
type CaptureConfig struct {
	DeviceName      string // substring match; empty picks the best input device
	Channels        int
	FramesPerBuffer int
	QueueDepth      int // capacity of the frame channel
}

const (
	defaultFramesPerBuffer = 1024
	defaultQueueDepth      = 8
)

// NewCapture opens and starts a PortAudio input stream using the provided
// configuration.
func NewCapture(cfg CaptureConfig) (*Capture, error) {
	if cfg.Channels <= 0 {
		cfg.Channels = 2
	}
	if cfg.FramesPerBuffer <= 0 {
		cfg.FramesPerBuffer = defaultFramesPerBuffer
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = defaultQueueDepth
	}

	device, err := findDevice(cfg.DeviceName)
	if err != nil {
		return nil, err
	}
	if cfg.Channels > device.MaxInputChannels {
		cfg.Channels = device.MaxInputChannels
	}

	c := &Capture{
		device:     device,
		sampleRate: device.DefaultSampleRate,
		channels:   cfg.Channels,
		frames:     make(chan Frame, cfg.QueueDepth),
	}

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: cfg.Channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      c.sampleRate,
		FramesPerBuffer: cfg.FramesPerBuffer,
	}, c.process)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	c.stream = stream

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("start stream: %w", err)
	}
	return c, nil
}

// process runs on the PortAudio callback thread.
func (c *Capture) process(in []float32) {
	if c.closed.Load() {
		return
	}
	samples := make([]float32, len(in))
	copy(samples, in)
	frame := Frame{
		Samples:    samples,
		Channels:   c.channels,
		SampleRate: c.sampleRate,
		Timestamp:  time.Now(),
	}
	select {
	case c.frames <- frame:
	default:
		c.dropped.Add(1)
	}
}

// Frames implements Source.
func (c *Capture) Frames() <-chan Frame { return c.frames }

// SampleRate implements Source.
func (c *Capture) SampleRate() float64 { return c.sampleRate }

// Device returns the PortAudio device backing the stream.
func (c *Capture) Device() *portaudio.DeviceInfo { return c.device }

// Dropped reports how many frames were discarded because the consumer was
// behind.
func (c *Capture) Dropped() uint64 { return c.dropped.Load() }

// Close stops the stream and closes the frame channel. Stop blocks until
// the callback has returned, so the close cannot race a send.
func (c *Capture) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.stream == nil {
		close(c.frames)
		return nil
	}
	err := c.stream.Stop()
	if err != nil && !isInvalidStreamState(err) {
		return err
	}
	closeErr := c.stream.Close()
	close(c.frames)
	return closeErr
}

// isInvalidStreamState checks whether err stems from stopping an already
// stopped stream.
func isInvalidStreamState(err error) bool {
	if err == nil {
		return false
	}
	const invalidStateMsg = "PaErrorCode -9986"
	return strings.Contains(err.Error(), invalidStateMsg)
}
