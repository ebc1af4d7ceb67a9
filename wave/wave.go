// Package wave defines the waveform and stem containers shared by the
// separation pipeline.
//
// A Waveform couples a sample slice with its sample rate. Waveforms are
// treated as immutable once produced: transforms allocate fresh slices and
// never write through their inputs. A StemSet is an ordered, label-unique
// collection of waveforms sharing a common sample rate.
package wave

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWaveform reports a waveform that violates its construction
	// invariants (non-positive sample rate, bad channel layout).
	ErrInvalidWaveform = errors.New("wave: invalid waveform")

	// ErrDuplicateStem reports an attempt to add a stem under a label that
	// is already present in the set.
	ErrDuplicateStem = errors.New("wave: duplicate stem label")

	// ErrSampleRateMismatch reports a stem whose sample rate differs from
	// the rate shared by the set.
	ErrSampleRateMismatch = errors.New("wave: sample rate mismatch")
)

// Waveform is an ordered sequence of floating-point samples at a fixed
// sample rate. Channels > 1 means the samples are interleaved and have not
// been down-mixed. The zero value is not valid; use New or NewInterleaved.
type Waveform struct {
	Samples    []float64
	SampleRate float64
	Channels   int
}

// New returns a mono waveform over samples at the given sample rate.
// Length zero is valid but unusable by statistics.
func New(samples []float64, sampleRate float64) (Waveform, error) {
	return NewInterleaved(samples, sampleRate, 1)
}

// NewInterleaved returns a waveform with the given interleaved channel count.
func NewInterleaved(samples []float64, sampleRate float64, channels int) (Waveform, error) {
	if sampleRate <= 0 {
		return Waveform{}, fmt.Errorf("%w: sample rate must be > 0: %g", ErrInvalidWaveform, sampleRate)
	}

	if channels < 1 {
		return Waveform{}, fmt.Errorf("%w: channels must be >= 1: %d", ErrInvalidWaveform, channels)
	}

	if len(samples)%channels != 0 {
		return Waveform{}, fmt.Errorf("%w: %d samples not divisible by %d channels",
			ErrInvalidWaveform, len(samples), channels)
	}

	return Waveform{Samples: samples, SampleRate: sampleRate, Channels: channels}, nil
}

// Len returns the total number of samples across all channels.
func (w Waveform) Len() int {
	return len(w.Samples)
}

// Frames returns the number of sample frames (samples per channel).
func (w Waveform) Frames() int {
	if w.Channels <= 1 {
		return len(w.Samples)
	}

	return len(w.Samples) / w.Channels
}

// Duration returns the waveform length in seconds.
func (w Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}

	return float64(w.Frames()) / w.SampleRate
}

// Mono reports whether the waveform carries a single channel.
func (w Waveform) Mono() bool {
	return w.Channels <= 1
}

// Clone returns a deep copy whose sample slice shares no memory with w.
func (w Waveform) Clone() Waveform {
	out := w
	out.Samples = append([]float64(nil), w.Samples...)

	return out
}
