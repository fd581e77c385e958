package audio

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// decoder is the minimal surface a media decoder must offer: interleaved
// float32 samples in [-1,1] plus the stream geometry.
type decoder interface {
	// ReadSamples fills dst and returns the number of values written.
	// n == 0 with io.EOF means the stream is finished.
	ReadSamples(dst []float32) (n int, err error)
	SampleRate() int
	Channels() int
	Close() error
}

// FileSource streams frames decoded from a media file, paced at real time
// so time-based features (beat debounce, tempo) behave as they would live.
type FileSource struct {
	dec             decoder
	frames          chan Frame
	framesPerBuffer int
	dropped         atomic.Uint64
	decodeErr       atomic.Value // error
	stop            chan struct{}
	done            chan struct{}
	closed          atomic.Bool
}

// OpenFile opens path with a decoder chosen by extension (.wav, .mp3, .ogg)
// and starts the pacing goroutine.
func OpenFile(path string, framesPerBuffer int) (*FileSource, error) {
	if framesPerBuffer <= 0 {
		framesPerBuffer = defaultFramesPerBuffer
	}

	var (
		dec decoder
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		dec, err = newWAVDecoder(path)
	case ".mp3":
		dec, err = newMP3Decoder(path)
	case ".ogg", ".oga":
		dec, err = newVorbisDecoder(path)
	default:
		return nil, fmt.Errorf("unsupported media file %q (want .wav, .mp3 or .ogg)", path)
	}
	if err != nil {
		return nil, err
	}

	s := &FileSource{
		dec:             dec,
		frames:          make(chan Frame, defaultQueueDepth),
		framesPerBuffer: framesPerBuffer,
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Frames implements Source.
func (s *FileSource) Frames() <-chan Frame { return s.frames }

// SampleRate implements Source.
func (s *FileSource) SampleRate() float64 { return float64(s.dec.SampleRate()) }

// Dropped reports frames discarded because the consumer was behind.
func (s *FileSource) Dropped() uint64 { return s.dropped.Load() }

// Err returns the decode error that ended the stream, if any. io.EOF is not
// an error here.
func (s *FileSource) Err() error {
	if v := s.decodeErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// Close stops the pacing goroutine and releases the decoder.
func (s *FileSource) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.stop)
	<-s.done
	return s.dec.Close()
}

func (s *FileSource) run() {
	defer close(s.done)
	defer close(s.frames)

	channels := s.dec.Channels()
	rate := float64(s.dec.SampleRate())
	interval := time.Duration(float64(s.framesPerBuffer) / rate * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		chunk := make([]float32, s.framesPerBuffer*channels)
		n, err := s.dec.ReadSamples(chunk)
		if n > 0 {
			frame := Frame{
				Samples:    chunk[:n],
				Channels:   channels,
				SampleRate: rate,
				Timestamp:  time.Now(),
			}
			select {
			case s.frames <- frame:
			default:
				s.dropped.Add(1)
			}
		}
		if err != nil {
			if err != io.EOF {
				s.decodeErr.Store(err)
			}
			return
		}
	}
}
