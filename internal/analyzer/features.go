package analyzer

import "time"

// Features is one immutable record of everything the pipeline extracts from
// a single input frame. Band energies, zero-crossing rate and beat
// confidence live in [0,1]; Tempo is BPM and stays 0 until enough beats
// have been observed.
type Features struct {
	Timestamp time.Time `json:"timestamp"`

	// Time domain.
	Volume float64 `json:"volume"` // RMS of the mono waveform
	Peak   float64 `json:"peak"`   // maximum absolute sample

	// Perceptual frequency bands.
	SubBass    float64 `json:"subBass"`    // 20-60 Hz
	Bass       float64 `json:"bass"`       // 60-250 Hz
	LowMid     float64 `json:"lowMid"`     // 250-500 Hz
	Mid        float64 `json:"mid"`        // 500-2000 Hz
	HighMid    float64 `json:"highMid"`    // 2000-4000 Hz
	Presence   float64 `json:"presence"`   // 4000-6000 Hz
	Brilliance float64 `json:"brilliance"` // 6000 Hz-Nyquist

	// Spectral shape.
	ZeroCrossingRate float64 `json:"zeroCrossingRate"`
	SpectralCentroid float64 `json:"spectralCentroid"`
	SpectralRolloff  float64 `json:"spectralRolloff"`
	PeakFrequency    float64 `json:"peakFrequency"`

	// Rhythm.
	BeatConfidence float64 `json:"beatConfidence"`
	Tempo          float64 `json:"tempo"`
}
