package analyzer

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// frequencyBand is a half-open span [lowHz, highHz) mapped onto bin indices
// by linear proportion of frequency over Nyquist.
type frequencyBand struct {
	lowHz  float64
	highHz float64
}

// BandEnergies holds the seven perceptual band energies, each in [0,1].
type BandEnergies struct {
	SubBass    float64
	Bass       float64
	LowMid     float64
	Mid        float64
	HighMid    float64
	Presence   float64
	Brilliance float64
}

const rolloffFraction = 0.85

func perceptualBands(nyquist float64) [7]frequencyBand {
	return [7]frequencyBand{
		{20, 60},
		{60, 250},
		{250, 500},
		{500, 2000},
		{2000, 4000},
		{4000, 6000},
		{6000, nyquist},
	}
}

// extractBands computes the seven band energies from a spectrum. Pure: the
// spectrum is never mutated.
func extractBands(sp Spectrum, nyquist float64) BandEnergies {
	bands := perceptualBands(nyquist)
	return BandEnergies{
		SubBass:    bandEnergy(sp.Bins, bands[0], nyquist),
		Bass:       bandEnergy(sp.Bins, bands[1], nyquist),
		LowMid:     bandEnergy(sp.Bins, bands[2], nyquist),
		Mid:        bandEnergy(sp.Bins, bands[3], nyquist),
		HighMid:    bandEnergy(sp.Bins, bands[4], nyquist),
		Presence:   bandEnergy(sp.Bins, bands[5], nyquist),
		Brilliance: bandEnergy(sp.Bins, bands[6], nyquist),
	}
}

// bandEnergy averages the magnitudes inside the band's bin range, then
// compresses, weights and clamps. The order matters: compressing before
// weighting keeps a single loud band from flattening the rest, and the
// clamp is per band.
func bandEnergy(bins []float64, b frequencyBand, nyquist float64) float64 {
	n := len(bins)
	if n == 0 || nyquist <= 0 {
		return 0
	}

	low := int(b.lowHz / nyquist * float64(n))
	high := int(b.highHz / nyquist * float64(n))
	if low > n-1 {
		low = n - 1
	}
	if high > n {
		high = n
	}
	if high <= low {
		return 0
	}

	avg := floats.Sum(bins[low:high]) / float64(high-low)
	compressed := math.Log(avg+1) / 10

	// Lower bands matter more for visualization.
	center := (b.lowHz + b.highHz) / 2
	weight := 0.8
	switch {
	case center < 1000:
		weight = 1.5
	case center < 4000:
		weight = 1.0
	}

	return math.Min(compressed*weight, 1)
}

// spectralRolloff reports the frequency below which 85% of the spectral
// energy lies, walking bins in ascending frequency by cumulative magnitude.
// A zero-energy spectrum reports the highest bin's frequency.
func spectralRolloff(sp Spectrum) float64 {
	if len(sp.Bins) == 0 {
		return 0
	}
	last := sp.BinFrequencies[len(sp.Bins)-1]
	if sp.SpectralEnergy == 0 {
		return last
	}

	threshold := sp.SpectralEnergy * rolloffFraction
	cumulative := 0.0
	for i, m := range sp.Bins {
		cumulative += m
		if cumulative >= threshold {
			return sp.BinFrequencies[i]
		}
	}
	return last
}
