package analyzer

import (
	"errors"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/window"
)

// Spectrum is the magnitude spectrum of one analysis window, recomputed
// from scratch every frame. Bins and BinFrequencies always have the same
// length (fftSize/2 + 1); BinFrequencies is shared across frames since the
// geometry is fixed per session.
type Spectrum struct {
	Bins             []float64
	BinFrequencies   []float64
	PeakFrequency    float64
	SpectralCentroid float64
	SpectralEnergy   float64
}

// ErrTransform reports that the spectral engine could not run on the
// current workspace. The processing loop logs and skips the frame.
var ErrTransform = errors.New("analyzer: spectral transform failed")

// spectralTransform holds the preallocated FFT workspace: Hann
// coefficients, the windowed input buffer, and the bin center frequencies.
type spectralTransform struct {
	fftSize  int
	hann     []float64
	input    []float64
	binFreqs []float64
}

func newSpectralTransform(fftSize int, sampleRate float64) *spectralTransform {
	hann := make([]float64, fftSize)
	for i := range hann {
		hann[i] = 1
	}
	window.Hann(hann)

	binFreqs := make([]float64, fftSize/2+1)
	for i := range binFreqs {
		binFreqs[i] = float64(i) * sampleRate / float64(fftSize)
	}

	return &spectralTransform{
		fftSize:  fftSize,
		hann:     hann,
		input:    make([]float64, fftSize),
		binFreqs: binFreqs,
	}
}

// transform windows the most recent fftSize samples of buf (left-zero-
// padding when buf is shorter) and runs the forward real FFT. Magnitudes
// are normalized by fftSize.
func (t *spectralTransform) transform(buf []float64) (Spectrum, error) {
	if len(t.input) != t.fftSize || len(t.hann) != t.fftSize {
		return Spectrum{}, ErrTransform
	}

	pad := 0
	src := buf
	if len(buf) >= t.fftSize {
		src = buf[len(buf)-t.fftSize:]
	} else {
		pad = t.fftSize - len(buf)
	}
	for i := 0; i < pad; i++ {
		t.input[i] = 0
	}
	for i, s := range src {
		t.input[pad+i] = s * t.hann[pad+i]
	}

	coeffs := fft.FFTReal(t.input)
	if len(coeffs) < t.fftSize/2+1 {
		return Spectrum{}, ErrTransform
	}

	bins := make([]float64, t.fftSize/2+1)
	norm := 1 / float64(t.fftSize)
	for i := range bins {
		bins[i] = cmplx.Abs(coeffs[i]) * norm
	}

	// Peak frequency: first maximum wins on ties.
	peakBin := 0
	var total, weighted, energy float64
	for i, m := range bins {
		if m > bins[peakBin] {
			peakBin = i
		}
		total += m
		weighted += m * t.binFreqs[i]
		energy += m * m
	}

	centroid := 0.0
	if total > 0 {
		centroid = weighted / total
	}

	return Spectrum{
		Bins:             bins,
		BinFrequencies:   t.binFreqs,
		PeakFrequency:    t.binFreqs[peakBin],
		SpectralCentroid: centroid,
		SpectralEnergy:   energy,
	}, nil
}
