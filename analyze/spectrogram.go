package analyze

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/algo-stems/dsp/stft"
	"github.com/cwbudde/algo-stems/wave"
)

// dbFloor is the display floor relative to the spectrogram's own peak.
const dbFloor = -80.0

// spectrogramData holds a time-frequency magnitude matrix on a dB scale
// relative to the signal's own peak, clamped at dbFloor. It only feeds the
// rendered artifact; the numbers never leave this package.
type spectrogramData struct {
	frames     [][]float64 // [frame][bin], dB
	hopSize    int
	frameSize  int
	sampleRate float64
}

// computeSpectrogram analyzes w with the same frame/hop layout the
// decomposer uses and converts the magnitudes to relative dB.
func computeSpectrogram(w wave.Waveform) (*spectrogramData, error) {
	if w.Len() == 0 {
		return nil, fmt.Errorf("%w: spectrogram needs at least one sample", ErrEmptySignal)
	}

	transform, err := stft.New()
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	spec, err := transform.Analyze(w.Samples)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	mag := spec.Magnitudes()

	peak := 0.0
	for _, row := range mag {
		if m := floats.Max(row); m > peak {
			peak = m
		}
	}

	for _, row := range mag {
		for i, m := range row {
			row[i] = relativeDB(m, peak)
		}
	}

	return &spectrogramData{
		frames:     mag,
		hopSize:    transform.HopSize(),
		frameSize:  transform.FrameSize(),
		sampleRate: w.SampleRate,
	}, nil
}

// relativeDB maps a magnitude to dB below peak, clamped to dbFloor. A
// silent signal (zero peak) sits entirely on the floor.
func relativeDB(m, peak float64) float64 {
	if peak <= 0 || m <= 0 {
		return dbFloor
	}

	return max(20*math.Log10(m/peak), dbFloor)
}

func (s *spectrogramData) numFrames() int { return len(s.frames) }

func (s *spectrogramData) numBins() int {
	if len(s.frames) == 0 {
		return 0
	}

	return len(s.frames[0])
}

// frameTime returns the time in seconds at the center of frame f.
func (s *spectrogramData) frameTime(f int) float64 {
	return float64(f*s.hopSize) / s.sampleRate
}

// binFrequency returns the frequency in Hz of bin k.
func (s *spectrogramData) binFrequency(k int) float64 {
	return float64(k) * s.sampleRate / float64(s.frameSize)
}
