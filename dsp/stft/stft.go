// Package stft implements the short-time Fourier transform and its inverse
// for whole-signal, offline processing.
//
// Analysis is centered: frame k is centered on sample k*hop, with zero
// padding of half a frame on both ends. Synthesis uses windowed overlap-add
// with window-sum-square normalization, so an analyze/synthesize round trip
// reconstructs the input to near machine precision for any input length.
package stft

import (
	"errors"
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-stems/dsp/window"
)

const (
	// DefaultFrameSize and DefaultHopSize match the analysis parameters of
	// the harmonic-percussive decomposition.
	DefaultFrameSize = 2048
	DefaultHopSize   = 512

	minFrameSize = 64
	normFloor    = 1e-12
)

var (
	// ErrInvalidConfig reports an unusable frame/hop configuration.
	ErrInvalidConfig = errors.New("stft: invalid configuration")

	// ErrEmptyInput reports an empty analysis input.
	ErrEmptyInput = errors.New("stft: empty input")

	// ErrShapeMismatch reports a spectrogram whose shape does not match the
	// transform configuration.
	ErrShapeMismatch = errors.New("stft: spectrogram shape mismatch")
)

// Transform computes forward and inverse short-time Fourier transforms with
// a fixed frame size, hop size, and analysis window. It is one-shot buffer
// oriented and not safe for concurrent use.
type Transform struct {
	frameSize  int
	hopSize    int
	windowType window.Type

	plan         *algofft.Plan[complex128]
	windowCoeffs []float64

	spectrum  []complex128
	timeFrame []complex128
}

// Option configures a Transform.
type Option func(*Transform)

// WithFrameSize sets the FFT frame size. Must be a power of two >= 64.
func WithFrameSize(size int) Option {
	return func(t *Transform) {
		t.frameSize = size
	}
}

// WithHopSize sets the analysis hop in samples.
func WithHopSize(hop int) Option {
	return func(t *Transform) {
		t.hopSize = hop
	}
}

// WithWindow sets the analysis window type.
func WithWindow(w window.Type) Option {
	return func(t *Transform) {
		t.windowType = w
	}
}

// New creates a Transform. Defaults: frame 2048, hop 512, periodic Hann.
func New(opts ...Option) (*Transform, error) {
	t := &Transform{
		frameSize:  DefaultFrameSize,
		hopSize:    DefaultHopSize,
		windowType: window.TypeHann,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}

	if t.frameSize < minFrameSize || !isPowerOfTwo(t.frameSize) {
		return nil, fmt.Errorf("%w: frame size must be a power of two >= %d: %d",
			ErrInvalidConfig, minFrameSize, t.frameSize)
	}

	if t.hopSize <= 0 || t.hopSize > t.frameSize {
		return nil, fmt.Errorf("%w: hop must be in [1, %d]: %d",
			ErrInvalidConfig, t.frameSize, t.hopSize)
	}

	plan, err := algofft.NewPlan64(t.frameSize)
	if err != nil {
		return nil, fmt.Errorf("stft: failed to create FFT plan: %w", err)
	}

	t.plan = plan
	t.windowCoeffs = window.Generate(t.windowType, t.frameSize, window.WithPeriodic())
	t.spectrum = make([]complex128, t.frameSize)
	t.timeFrame = make([]complex128, t.frameSize)

	return t, nil
}

// FrameSize returns the FFT frame size.
func (t *Transform) FrameSize() int { return t.frameSize }

// HopSize returns the analysis hop in samples.
func (t *Transform) HopSize() int { return t.hopSize }

// NumBins returns the number of one-sided frequency bins per frame.
func (t *Transform) NumBins() int { return t.frameSize/2 + 1 }

// NumFrames returns the number of centered analysis frames for n samples.
func (t *Transform) NumFrames(n int) int {
	if n <= 0 {
		return 0
	}

	return 1 + n/t.hopSize
}

// Analyze computes the centered one-sided STFT of samples.
func (t *Transform) Analyze(samples []float64) (*Spectrogram, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyInput
	}

	numFrames := t.NumFrames(len(samples))
	bins := t.NumBins()
	pad := t.frameSize / 2

	frames := make([][]complex128, numFrames)

	for f := range numFrames {
		start := f*t.hopSize - pad

		for i := range t.frameSize {
			x := 0.0

			if idx := start + i; idx >= 0 && idx < len(samples) {
				x = samples[idx]
			}

			t.spectrum[i] = complex(x*t.windowCoeffs[i], 0)
		}

		err := t.plan.Forward(t.spectrum, t.spectrum)
		if err != nil {
			return nil, fmt.Errorf("stft: forward FFT failed: %w", err)
		}

		row := make([]complex128, bins)
		copy(row, t.spectrum[:bins])
		frames[f] = row
	}

	return &Spectrogram{Frames: frames, FrameSize: t.frameSize, HopSize: t.hopSize}, nil
}

// Synthesize inverts spec by windowed overlap-add and returns exactly
// length samples, trimming the centering padding and zero-filling any
// uncovered tail.
func (t *Transform) Synthesize(spec *Spectrogram, length int) ([]float64, error) {
	err := t.checkShape(spec)
	if err != nil {
		return nil, err
	}

	if length < 0 {
		return nil, fmt.Errorf("%w: negative output length %d", ErrInvalidConfig, length)
	}

	out := make([]float64, length)

	numFrames := spec.NumFrames()
	if numFrames == 0 {
		return out, nil
	}

	half := t.frameSize / 2
	total := (numFrames-1)*t.hopSize + t.frameSize
	acc := make([]float64, total)
	norm := make([]float64, total)

	for f := range numFrames {
		row := spec.Frames[f]

		// Rebuild the full conjugate-symmetric spectrum for a real frame.
		t.spectrum[0] = complex(real(row[0]), 0)
		t.spectrum[half] = complex(real(row[half]), 0)

		for k := 1; k < half; k++ {
			t.spectrum[k] = row[k]
			t.spectrum[t.frameSize-k] = complex(real(row[k]), -imag(row[k]))
		}

		err := t.plan.Inverse(t.timeFrame, t.spectrum)
		if err != nil {
			return nil, fmt.Errorf("stft: inverse FFT failed: %w", err)
		}

		pos := f * t.hopSize
		for i := range t.frameSize {
			w := t.windowCoeffs[i]
			acc[pos+i] += real(t.timeFrame[i]) * w
			norm[pos+i] += w * w
		}
	}

	for i := range acc {
		if norm[i] > normFloor {
			acc[i] /= norm[i]
		}
	}

	copy(out, acc[half:])

	return out, nil
}

func (t *Transform) checkShape(spec *Spectrogram) error {
	if spec == nil {
		return fmt.Errorf("%w: nil spectrogram", ErrShapeMismatch)
	}

	if spec.FrameSize != t.frameSize || spec.HopSize != t.hopSize {
		return fmt.Errorf("%w: spectrogram is %d/%d, transform is %d/%d",
			ErrShapeMismatch, spec.FrameSize, spec.HopSize, t.frameSize, t.hopSize)
	}

	bins := t.NumBins()
	for f, row := range spec.Frames {
		if len(row) != bins {
			return fmt.Errorf("%w: frame %d has %d bins, want %d",
				ErrShapeMismatch, f, len(row), bins)
		}
	}

	return nil
}

func isPowerOfTwo(v int) bool {
	return v > 0 && (v&(v-1)) == 0
}
