package analyzer

import "math"

// extractTimeDomain computes RMS volume, absolute peak and zero-crossing
// rate from the mono waveform. Pure; empty input yields zeros, and fewer
// than two samples make the crossing rate 0.
func extractTimeDomain(waveform []float64) (volume, peak, zcr float64) {
	if len(waveform) == 0 {
		return 0, 0, 0
	}

	var sumSquares float64
	for _, s := range waveform {
		sumSquares += s * s
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	volume = math.Sqrt(sumSquares / float64(len(waveform)))

	if len(waveform) < 2 {
		return volume, peak, 0
	}
	crossings := 0
	for i := 1; i < len(waveform); i++ {
		if waveform[i-1]*waveform[i] < 0 {
			crossings++
		}
	}
	zcr = float64(crossings) / float64(len(waveform)-1)
	return volume, peak, zcr
}
