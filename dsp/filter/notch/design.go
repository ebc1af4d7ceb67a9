package notch

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-stems/dsp/filter/biquad"
	"github.com/cwbudde/algo-stems/internal/polyroot"
)

// bilinearFS is twice the fs=2 design-time sampling convention shared by
// the prewarp and the bilinear mapping below.
const bilinearFS = 4.0

// Design computes the second-order section cascade of a digital Butterworth
// band-stop filter: analog low-pass prototype, low-pass to band-stop
// transform on prewarped edge frequencies, bilinear mapping, and conjugate
// pairing of the resulting poles. The overall gain is folded into the first
// section. The band edges land exactly on the half-power (-3 dB) points.
func Design(spec Spec, sampleRate float64) ([]biquad.Coefficients, error) {
	if err := spec.Validate(sampleRate); err != nil {
		return nil, err
	}

	warpedLow := bilinearFS * math.Tan(math.Pi*spec.LowHz/sampleRate)
	warpedHigh := bilinearFS * math.Tan(math.Pi*spec.HighHz/sampleRate)

	wo := math.Sqrt(warpedLow * warpedHigh)
	bw := warpedHigh - warpedLow

	proto := prototypePoles(spec.Order)

	// Low-pass to band-stop: every prototype pole inverts against half the
	// bandwidth and splits into a pair straddling the center frequency. The
	// prototype has no zeros, so the transform plants one zero pair per
	// prototype pole at +/- j*wo.
	analogPoles := make([]complex128, 0, 2*spec.Order)
	prodNegP := complex(1, 0)

	for _, p := range proto {
		inv := complex(bw/2, 0) / p
		disc := cmplx.Sqrt(inv*inv - complex(wo*wo, 0))
		analogPoles = append(analogPoles, inv+disc, inv-disc)
		prodNegP *= -p
	}

	gain := real(complex(1, 0) / prodNegP)

	// Bilinear transform. The zeros at +/- j*wo map onto the unit circle at
	// +/- theta0; their product against bilinearFS is (fs^2 + wo^2) per pair.
	digitalPoles := make([]complex128, len(analogPoles))
	gainDen := complex(1, 0)

	for i, p := range analogPoles {
		digitalPoles[i] = (complex(bilinearFS, 0) + p) / (complex(bilinearFS, 0) - p)
		gainDen *= complex(bilinearFS, 0) - p
	}

	gainNum := complex(math.Pow(bilinearFS*bilinearFS+wo*wo, float64(spec.Order)), 0)
	gain *= real(gainNum / gainDen)

	pairs, err := polyroot.PairRoots(digitalPoles)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDesignFailed, err)
	}

	theta0 := 2 * math.Atan2(wo, bilinearFS)
	numB1 := -2 * math.Cos(theta0)

	sections := make([]biquad.Coefficients, len(pairs))

	for i, pair := range pairs {
		_, a1, a2, err := polyroot.QuadFromRoots(pair)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDesignFailed, err)
		}

		sections[i] = biquad.Coefficients{B0: 1, B1: numB1, B2: 1, A1: a1, A2: a2}

		if i == 0 {
			sections[i].B0 *= gain
			sections[i].B1 *= gain
			sections[i].B2 *= gain
		}
	}

	return sections, nil
}

// prototypePoles returns the poles of the normalized analog Butterworth
// low-pass prototype: order points on the unit circle's left half, with the
// middle pole of odd orders pinned exactly to -1.
func prototypePoles(order int) []complex128 {
	poles := make([]complex128, order)

	for k := range order {
		m := 2*k - order + 1
		if m == 0 {
			poles[k] = -1
			continue
		}

		poles[k] = -cmplx.Exp(complex(0, math.Pi*float64(m)/float64(2*order)))
	}

	return poles
}
