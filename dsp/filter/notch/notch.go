// Package notch designs and applies Butterworth band-stop filters.
//
// A [Spec] names the band to reject in Hz plus the prototype order; the
// digital filter realized from it carries twice that many poles, run as a
// cascade of biquad sections. Filtering is a single causal pass, so the
// usual group-delay smearing of an IIR filter applies; there is no
// forward-backward phase correction.
package notch

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-stems/dsp/filter/biquad"
	"github.com/cwbudde/algo-stems/wave"
)

// DefaultOrder is the prototype order used when a Spec leaves Order unset.
const DefaultOrder = 4

var (
	// ErrInvalidFilterRange reports band edges that do not satisfy
	// 0 < low < high < Nyquist, or a non-positive order.
	ErrInvalidFilterRange = errors.New("notch: invalid filter range")
	// ErrDesignFailed reports a band-stop design whose poles could not be
	// grouped into stable second-order sections.
	ErrDesignFailed = errors.New("notch: filter design failed")
)

// Spec describes a band-stop filter: the band to reject and the Butterworth
// prototype order.
type Spec struct {
	LowHz  float64
	HighHz float64
	Order  int
}

// WithDefaults returns the spec with a zero Order replaced by DefaultOrder.
func (s Spec) WithDefaults() Spec {
	if s.Order == 0 {
		s.Order = DefaultOrder
	}

	return s
}

// Validate checks the spec against a sample rate. The band must satisfy
// 0 < LowHz < HighHz < sampleRate/2 and the order must be at least 1.
func (s Spec) Validate(sampleRate float64) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %g", ErrInvalidFilterRange, sampleRate)
	}

	if s.Order < 1 {
		return fmt.Errorf("%w: order must be >= 1, got %d", ErrInvalidFilterRange, s.Order)
	}

	nyquist := sampleRate * 0.5
	if !(s.LowHz > 0 && s.LowHz < s.HighHz && s.HighHz < nyquist) {
		return fmt.Errorf("%w: band [%g, %g] Hz must satisfy 0 < low < high < %g (Nyquist)",
			ErrInvalidFilterRange, s.LowHz, s.HighHz, nyquist)
	}

	return nil
}

// Filter is a designed band-stop filter bound to one sample rate.
// A Filter is reusable; Apply resets the filter state on every call.
type Filter struct {
	spec       Spec
	sampleRate float64
	chain      *biquad.Chain
}

// New validates the spec and designs the filter for the given sample rate.
func New(spec Spec, sampleRate float64) (*Filter, error) {
	spec = spec.WithDefaults()

	sections, err := Design(spec, sampleRate)
	if err != nil {
		return nil, err
	}

	return &Filter{
		spec:       spec,
		sampleRate: sampleRate,
		chain:      biquad.NewChain(sections),
	}, nil
}

// Spec returns the validated spec the filter was designed from.
func (f *Filter) Spec() Spec { return f.spec }

// SampleRate returns the sample rate the filter was designed for.
func (f *Filter) SampleRate() float64 { return f.sampleRate }

// NumSections returns the number of biquad sections in the cascade.
func (f *Filter) NumSections() int { return f.chain.NumSections() }

// MagnitudeDB returns the cascade magnitude response in dB at freqHz.
func (f *Filter) MagnitudeDB(freqHz float64) float64 {
	return f.chain.MagnitudeDB(freqHz, f.sampleRate)
}

// Apply runs w through the cascade in a single causal pass and returns a
// new waveform of exactly the input length. The input must be mono and its
// sample rate must match the rate the filter was designed for. Any
// non-finite output sample is replaced by 0.
func (f *Filter) Apply(w wave.Waveform) (wave.Waveform, error) {
	if !w.Mono() {
		return wave.Waveform{}, fmt.Errorf("notch: %w: expected mono input, got %d channels",
			wave.ErrInvalidWaveform, w.Channels)
	}

	if w.SampleRate != f.sampleRate {
		return wave.Waveform{}, fmt.Errorf("notch: %w: input rate %g Hz, filter designed for %g Hz",
			wave.ErrSampleRateMismatch, w.SampleRate, f.sampleRate)
	}

	out := w.Clone()

	f.chain.Reset()
	f.chain.ProcessBlock(out.Samples)
	sanitizeNonFinite(out.Samples)

	return out, nil
}

// sanitizeNonFinite zeroes NaN and infinite samples in place and returns
// how many were replaced.
func sanitizeNonFinite(samples []float64) int {
	replaced := 0

	for i, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			samples[i] = 0
			replaced++
		}
	}

	return replaced
}
