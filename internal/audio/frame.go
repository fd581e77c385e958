package audio

import "time"

// Frame is one chunk of interleaved samples as delivered by a capture
// stream or a file decoder. A frame is immutable once emitted and is
// consumed exactly once by the analysis pipeline.
type Frame struct {
	Samples    []float32
	Channels   int
	SampleRate float64
	Timestamp  time.Time
}

// Source produces frames for the analysis pipeline. Implementations own a
// producer goroutine (or a PortAudio callback) that only ever performs
// non-blocking sends; the frames channel is closed when the stream ends.
type Source interface {
	// Frames returns the channel the source delivers on. Slow consumers
	// lose frames instead of stalling the producer.
	Frames() <-chan Frame

	// SampleRate of the produced frames in Hz.
	SampleRate() float64

	// Close releases the underlying stream or file.
	Close() error
}
