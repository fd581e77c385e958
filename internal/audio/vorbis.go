package audio

import (
	"fmt"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

type vorbisDecoder struct {
	f   *os.File
	dec *oggvorbis.Reader
}

func newVorbisDecoder(path string) (*vorbisDecoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec, err := oggvorbis.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &vorbisDecoder{f: f, dec: dec}, nil
}

func (d *vorbisDecoder) SampleRate() int { return d.dec.SampleRate() }
func (d *vorbisDecoder) Channels() int   { return d.dec.Channels() }
func (d *vorbisDecoder) Close() error    { return d.f.Close() }

// ReadSamples delegates to the vorbis reader, which already produces
// interleaved float32 values in [-1,1].
func (d *vorbisDecoder) ReadSamples(dst []float32) (int, error) {
	return d.dec.Read(dst)
}
