// Package analyze derives presentation-ready views of a waveform: summary
// statistics, a one-sided magnitude spectrum, and rendered PNG artifacts
// (waveform, spectrum, spectrogram) for report embedding.
//
// All functions are pure and stateless; nothing here mutates the input
// waveform.
package analyze

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-stems/wave"
)

// ErrEmptySignal reports a waveform with no samples.
var ErrEmptySignal = errors.New("analyze: empty signal")

// Stats summarises a waveform in the time domain.
type Stats struct {
	DurationSec float64 `json:"durationSec"`
	RMS         float64 `json:"rms"`
	Peak        float64 `json:"peak"`
}

// Statistics computes duration, RMS level, and absolute peak in one pass.
func Statistics(w wave.Waveform) (Stats, error) {
	if w.Len() == 0 {
		return Stats{}, fmt.Errorf("%w: statistics need at least one sample", ErrEmptySignal)
	}

	var (
		sumSq float64
		peak  float64
	)

	for _, x := range w.Samples {
		sumSq += x * x

		if a := math.Abs(x); a > peak {
			peak = a
		}
	}

	return Stats{
		DurationSec: w.Duration(),
		RMS:         math.Sqrt(sumSq / float64(w.Len())),
		Peak:        peak,
	}, nil
}
