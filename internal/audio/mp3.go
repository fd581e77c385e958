package audio

import (
	"fmt"
	"os"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

type mp3Decoder struct {
	f   *os.File
	dec *gomp3.Decoder
	buf []byte
}

func newMP3Decoder(path string) (*mp3Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &mp3Decoder{f: f, dec: dec}, nil
}

func (d *mp3Decoder) SampleRate() int { return d.dec.SampleRate() }

// Channels is always 2: go-mp3 outputs stereo 16-bit little-endian PCM.
func (d *mp3Decoder) Channels() int { return 2 }

func (d *mp3Decoder) Close() error { return d.f.Close() }

func (d *mp3Decoder) ReadSamples(dst []float32) (int, error) {
	bytesNeeded := len(dst) * 2
	if cap(d.buf) < bytesNeeded {
		d.buf = make([]byte, bytesNeeded)
	}
	d.buf = d.buf[:bytesNeeded]

	n, err := d.dec.Read(d.buf)
	if n == 0 {
		if err != nil {
			return 0, err
		}
		return 0, nil
	}

	samples := n / 2
	for i := 0; i < samples; i++ {
		v := int16(uint16(d.buf[2*i]) | uint16(d.buf[2*i+1])<<8)
		dst[i] = float32(v) / 32768.0
	}
	return samples, err
}
