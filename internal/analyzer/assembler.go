package analyzer

// assembler folds interleaved multi-channel frames down to mono and owns
// the fixed-length sliding history the transform reads from. The buffer is
// always exactly its configured size, oldest samples first; new samples
// evict from the front.
type assembler struct {
	buffer []float64
}

func newAssembler(bufferSize int) *assembler {
	return &assembler{buffer: make([]float64, bufferSize)}
}

// downmix averages all channels per sample period. Input whose length does
// not divide evenly by the channel count loses the trailing remainder.
func downmix(samples []float32, channels int) []float64 {
	if channels <= 1 {
		mono := make([]float64, len(samples))
		for i, s := range samples {
			mono[i] = float64(s)
		}
		return mono
	}

	frames := len(samples) / channels
	mono := make([]float64, frames)
	for f := 0; f < frames; f++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(samples[f*channels+ch])
		}
		mono[f] = sum / float64(channels)
	}
	return mono
}

// ingest converts one raw frame to mono and slides it into the history
// buffer, returning the mono chunk. A chunk at least as long as the buffer
// replaces it wholesale with the chunk's tail; shorter chunks shift the
// buffer left and append. Empty input leaves the buffer untouched.
func (a *assembler) ingest(samples []float32, channels int) []float64 {
	mono := downmix(samples, channels)
	if len(mono) == 0 {
		return mono
	}
	if len(mono) >= len(a.buffer) {
		copy(a.buffer, mono[len(mono)-len(a.buffer):])
		return mono
	}
	kept := copy(a.buffer, a.buffer[len(mono):])
	copy(a.buffer[kept:], mono)
	return mono
}
