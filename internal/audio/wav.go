package audio

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

type wavDecoder struct {
	f     *os.File
	dec   *wav.Decoder
	buf   *goaudio.IntBuffer
	scale float32
}

func newWAVDecoder(path string) (*wavDecoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		_ = f.Close()
		return nil, fmt.Errorf("%s: not a valid wav file", path)
	}
	if dec.BitDepth == 0 || dec.BitDepth > 32 {
		_ = f.Close()
		return nil, fmt.Errorf("%s: unsupported bit depth %d", path, dec.BitDepth)
	}

	return &wavDecoder{
		f:     f,
		dec:   dec,
		scale: 1.0 / float32(int64(1)<<(dec.BitDepth-1)),
	}, nil
}

func (d *wavDecoder) SampleRate() int { return int(d.dec.SampleRate) }
func (d *wavDecoder) Channels() int   { return int(d.dec.NumChans) }
func (d *wavDecoder) Close() error    { return d.f.Close() }

func (d *wavDecoder) ReadSamples(dst []float32) (int, error) {
	if d.buf == nil || cap(d.buf.Data) < len(dst) {
		d.buf = &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: d.Channels(),
				SampleRate:  d.SampleRate(),
			},
			Data: make([]int, len(dst)),
		}
	}
	d.buf.Data = d.buf.Data[:len(dst)]

	n, err := d.dec.PCMBuffer(d.buf)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	for i := 0; i < n; i++ {
		dst[i] = float32(d.buf.Data[i]) * d.scale
	}
	return n, nil
}
