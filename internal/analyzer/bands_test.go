package analyzer

import (
	"math"
	"testing"
)

func testSpectrum(bins []float64, binWidth float64) Spectrum {
	freqs := make([]float64, len(bins))
	energy := 0.0
	for i, m := range bins {
		freqs[i] = float64(i) * binWidth
		energy += m * m
	}
	return Spectrum{Bins: bins, BinFrequencies: freqs, SpectralEnergy: energy}
}

func TestRolloffConcentratedInBinZero(t *testing.T) {
	sp := testSpectrum([]float64{1, 0, 0, 0}, 100)
	if got := spectralRolloff(sp); got != 0 {
		t.Fatalf("rolloff=%f want bin 0 frequency (0)", got)
	}
}

func TestRolloffZeroEnergyReportsHighestBin(t *testing.T) {
	sp := testSpectrum([]float64{0, 0, 0, 0}, 100)
	if got := spectralRolloff(sp); got != 300 {
		t.Fatalf("rolloff=%f want=300", got)
	}
}

func TestRolloffFirstBinReachingThreshold(t *testing.T) {
	// Energy = 0.03 + 0.49 = 0.52, threshold = 0.442; cumulative magnitude
	// crosses it at the last bin.
	sp := testSpectrum([]float64{0.1, 0.1, 0.1, 0.7}, 100)
	if got := spectralRolloff(sp); got != 300 {
		t.Fatalf("rolloff=%f want=300", got)
	}
}

func TestBandEnergyDegenerateRangeIsZero(t *testing.T) {
	// Four bins over a 22.05 kHz Nyquist: the sub-bass span maps to an
	// empty bin range.
	bins := []float64{1, 1, 1, 1}
	if got := bandEnergy(bins, frequencyBand{20, 60}, 22050); got != 0 {
		t.Fatalf("energy=%f want=0 for empty bin range", got)
	}
}

func TestBandEnergyClampedToOne(t *testing.T) {
	bins := make([]float64, 1025)
	for i := range bins {
		bins[i] = 1e9
	}
	sp := testSpectrum(bins, 44100.0/2048)
	b := extractBands(sp, 22050)
	for name, v := range map[string]float64{
		"subBass": b.SubBass, "bass": b.Bass, "lowMid": b.LowMid,
		"mid": b.Mid, "highMid": b.HighMid, "presence": b.Presence,
		"brilliance": b.Brilliance,
	} {
		if v < 0 || v > 1 {
			t.Fatalf("%s=%f want within [0,1]", name, v)
		}
	}
}

func TestBandCompressionBeforeWeight(t *testing.T) {
	// A flat magnitude of 1.0 in a low band: ln(2)/10 * 1.5.
	bins := make([]float64, 1025)
	for i := range bins {
		bins[i] = 1.0
	}
	want := math.Log(2) / 10 * 1.5
	if got := bandEnergy(bins, frequencyBand{60, 250}, 22050); math.Abs(got-want) > 1e-12 {
		t.Fatalf("bass=%f want=%f", got, want)
	}

	// The same magnitude above 6 kHz gets the 0.8 weight.
	want = math.Log(2) / 10 * 0.8
	if got := bandEnergy(bins, frequencyBand{6000, 22050}, 22050); math.Abs(got-want) > 1e-12 {
		t.Fatalf("brilliance=%f want=%f", got, want)
	}
}

func TestExtractBandsIsPure(t *testing.T) {
	bins := []float64{0.2, 0.5, 0.1, 0.05, 0.9, 0.3}
	sp := testSpectrum(bins, 44100.0/2048)
	first := extractBands(sp, 22050)
	second := extractBands(sp, 22050)
	if first != second {
		t.Fatalf("extractBands not idempotent: %+v vs %+v", first, second)
	}
}
