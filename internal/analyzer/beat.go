package analyzer

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// history is a fixed-capacity ring of float64 values with oldest-first
// eviction. Capacities are stable for the life of the analyzer, so a ring
// beats a growable slice here.
type history struct {
	data  []float64
	head  int // index of the oldest entry
	count int
}

func newHistory(capacity int) *history {
	return &history{data: make([]float64, capacity)}
}

func (h *history) push(v float64) {
	if h.count < len(h.data) {
		h.data[(h.head+h.count)%len(h.data)] = v
		h.count++
		return
	}
	h.data[h.head] = v
	h.head = (h.head + 1) % len(h.data)
}

func (h *history) len() int { return h.count }

// recentMean averages the newest n entries; 0 when empty.
func (h *history) recentMean(n int) float64 {
	if h.count == 0 || n <= 0 {
		return 0
	}
	if n > h.count {
		n = h.count
	}
	var sum float64
	for i := h.count - n; i < h.count; i++ {
		sum += h.data[(h.head+i)%len(h.data)]
	}
	return sum / float64(n)
}

// values appends all entries, oldest first, to dst and returns it.
func (h *history) values(dst []float64) []float64 {
	dst = dst[:0]
	for i := 0; i < h.count; i++ {
		dst = append(dst, h.data[(h.head+i)%len(h.data)])
	}
	return dst
}

const (
	minDetectionHistory = 11 // entries needed in each history before detection
	recentWindow        = 5
	volumeRatioGate     = 1.5
	bassRatioGate       = 1.3
	beatDebounce        = 100 * time.Millisecond
	acceptConfidence    = 0.3
	tempoIntervalCap    = 32
	historyCap          = 100 // ~2s of frames at typical rates
	minTempoIntervals   = 4
)

// beatDetector flags beats by comparing the current frame's volume and bass
// energy against their rolling short-term averages, and estimates tempo
// from the moving average of accepted inter-beat intervals.
type beatDetector struct {
	volumeHistory *history
	bassHistory   *history
	intervals     *history // seconds between accepted beats
	lastBeat      time.Time
	scratch       []float64
}

func newBeatDetector(now time.Time) *beatDetector {
	return &beatDetector{
		volumeHistory: newHistory(historyCap),
		bassHistory:   newHistory(historyCap),
		intervals:     newHistory(tempoIntervalCap),
		lastBeat:      now,
		scratch:       make([]float64, 0, tempoIntervalCap),
	}
}

// step runs one detection pass and then records volume and bass into the
// rolling histories. The averages must be read before the current values
// are appended: the frame under test must not dilute its own reference
// level.
func (d *beatDetector) step(volume, bass float64, now time.Time) float64 {
	confidence := d.detect(volume, bass, now)
	d.volumeHistory.push(volume)
	d.bassHistory.push(bass)
	return confidence
}

func (d *beatDetector) detect(volume, bass float64, now time.Time) float64 {
	if d.volumeHistory.len() < minDetectionHistory || d.bassHistory.len() < minDetectionHistory {
		return 0
	}

	volumeAvg := d.volumeHistory.recentMean(recentWindow)
	bassAvg := d.bassHistory.recentMean(recentWindow)

	// Silence yields a neutral ratio so it can never trigger.
	volumeRatio, bassRatio := 1.0, 1.0
	if volumeAvg > 0 {
		volumeRatio = volume / volumeAvg
	}
	if bassAvg > 0 {
		bassRatio = bass / bassAvg
	}

	if volumeRatio <= volumeRatioGate || bassRatio <= bassRatioGate {
		return 0
	}
	sinceLast := now.Sub(d.lastBeat)
	if sinceLast <= beatDebounce {
		return 0
	}

	confidence := math.Min(((volumeRatio-volumeRatioGate)+(bassRatio-bassRatioGate))/2, 1)

	// Only confident beats advance the debounce timer and feed the tempo
	// estimate; weaker candidates are still reported.
	if confidence > acceptConfidence {
		d.intervals.push(sinceLast.Seconds())
		d.lastBeat = now
	}
	return confidence
}

// tempo returns the BPM estimate, or 0 until enough intervals are recorded.
func (d *beatDetector) tempo() float64 {
	if d.intervals.len() < minTempoIntervals {
		return 0
	}
	d.scratch = d.intervals.values(d.scratch)
	avg := stat.Mean(d.scratch, nil)
	if avg <= 0 {
		return 0
	}
	return 60 / avg
}
