package analyze

import (
	"fmt"
	"math/cmplx"

	algofft "github.com/MeKo-Christian/algo-fft"
	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/algo-stems/wave"
)

// SpectrumPoint is one bin of a one-sided magnitude spectrum.
type SpectrumPoint struct {
	FrequencyHz float64
	Magnitude   float64
}

// Spectrum computes the one-sided magnitude spectrum of the whole signal,
// zero-padded to the next power of two for the transform. Points are
// ordered by frequency, uniformly spaced from 0 to the Nyquist frequency
// inclusive.
func Spectrum(w wave.Waveform) ([]SpectrumPoint, error) {
	if w.Len() == 0 {
		return nil, fmt.Errorf("%w: spectrum needs at least one sample", ErrEmptySignal)
	}

	// fftSize >= 2 keeps the frequency axis well formed.
	fftSize := max(nextPowerOf2(w.Len()), 2)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("analyze: fft plan: %w", err)
	}

	data := make([]complex128, fftSize)
	for i, x := range w.Samples {
		data[i] = complex(x, 0)
	}

	if err := plan.Forward(data, data); err != nil {
		return nil, fmt.Errorf("analyze: fft: %w", err)
	}

	bins := fftSize/2 + 1

	freqs := make([]float64, bins)
	floats.Span(freqs, 0, w.SampleRate/2)

	points := make([]SpectrumPoint, bins)
	for i := range points {
		points[i] = SpectrumPoint{
			FrequencyHz: freqs[i],
			Magnitude:   cmplx.Abs(data[i]),
		}
	}

	return points, nil
}

// BandMagnitude integrates the magnitude of all points whose frequency
// falls inside [lowHz, highHz]. Band edges outside the spectrum simply
// contribute nothing.
func BandMagnitude(points []SpectrumPoint, lowHz, highHz float64) float64 {
	sum := 0.0

	for _, p := range points {
		if p.FrequencyHz >= lowHz && p.FrequencyHz <= highHz {
			sum += p.Magnitude
		}
	}

	return sum
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}

	return p
}
