// Package hpss separates a mono recording into harmonic and percussive
// stems by median filtering of the short-time spectral magnitude.
//
// Sustained tones form horizontal ridges in a magnitude spectrogram while
// transients form vertical ones. A median filter along time enhances the
// former and a median filter along frequency the latter; the two enhanced
// magnitudes are turned into soft masks that partition the original
// complex spectrogram, and each masked spectrogram is resynthesized back
// to the time domain. Both stems always sum to the analyzed signal within
// numeric rounding because the masks sum to one in every bin.
package hpss

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-stems/dsp/stft"
	"github.com/cwbudde/algo-stems/wave"
)

const (
	// DefaultFrameSize is the analysis frame length in samples.
	DefaultFrameSize = 2048
	// DefaultHopSize is the analysis hop in samples.
	DefaultHopSize = 512
	// DefaultKernelSize is the median filter length in frames (time axis)
	// and bins (frequency axis).
	DefaultKernelSize = 31
	// DefaultMaskPower is the exponent applied to the enhanced magnitudes
	// before forming the soft masks.
	DefaultMaskPower = 2.0
)

var (
	// ErrInvalidInput reports a signal the decomposer cannot process.
	ErrInvalidInput = errors.New("hpss: invalid input signal")
	// ErrInvalidConfig reports an unusable decomposer configuration.
	ErrInvalidConfig = errors.New("hpss: invalid configuration")
)

// Decomposer splits signals into harmonic and percussive components.
// A Decomposer is reusable but not safe for concurrent use.
type Decomposer struct {
	frameSize  int
	hopSize    int
	kernelSize int
	maskPower  float64

	transform *stft.Transform
}

// Option customises a Decomposer.
type Option func(*Decomposer)

// WithFrameSize sets the STFT frame size. Must be a power of two.
func WithFrameSize(n int) Option {
	return func(d *Decomposer) { d.frameSize = n }
}

// WithHopSize sets the STFT hop size.
func WithHopSize(n int) Option {
	return func(d *Decomposer) { d.hopSize = n }
}

// WithKernelSize sets the median filter length. Must be odd and >= 1.
func WithKernelSize(n int) Option {
	return func(d *Decomposer) { d.kernelSize = n }
}

// WithMaskPower sets the exponent used when forming the soft masks.
func WithMaskPower(p float64) Option {
	return func(d *Decomposer) { d.maskPower = p }
}

// New creates a Decomposer with the given options.
func New(opts ...Option) (*Decomposer, error) {
	d := &Decomposer{
		frameSize:  DefaultFrameSize,
		hopSize:    DefaultHopSize,
		kernelSize: DefaultKernelSize,
		maskPower:  DefaultMaskPower,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.kernelSize < 1 || d.kernelSize%2 == 0 {
		return nil, fmt.Errorf("%w: kernel size must be an odd positive integer, got %d",
			ErrInvalidConfig, d.kernelSize)
	}

	if d.maskPower <= 0 || math.IsInf(d.maskPower, 0) || math.IsNaN(d.maskPower) {
		return nil, fmt.Errorf("%w: mask power must be a positive finite number, got %g",
			ErrInvalidConfig, d.maskPower)
	}

	transform, err := stft.New(
		stft.WithFrameSize(d.frameSize),
		stft.WithHopSize(d.hopSize),
	)
	if err != nil {
		return nil, fmt.Errorf("hpss: %w", err)
	}

	d.transform = transform

	return d, nil
}

// FrameSize returns the configured STFT frame size.
func (d *Decomposer) FrameSize() int { return d.frameSize }

// HopSize returns the configured STFT hop size.
func (d *Decomposer) HopSize() int { return d.hopSize }

// KernelSize returns the configured median filter length.
func (d *Decomposer) KernelSize() int { return d.kernelSize }

// MaskPower returns the configured soft mask exponent.
func (d *Decomposer) MaskPower() float64 { return d.maskPower }

// Separate splits w into its harmonic and percussive parts. Both returned
// waveforms carry the sample rate of the input and exactly its length, and
// their sample-wise sum reconstructs the input up to numeric rounding. The
// input must be non-empty, down-mixed mono.
func (d *Decomposer) Separate(w wave.Waveform) (harmonic, percussive wave.Waveform, err error) {
	if w.Len() == 0 {
		return wave.Waveform{}, wave.Waveform{}, fmt.Errorf("%w: empty signal", ErrInvalidInput)
	}

	if !w.Mono() {
		return wave.Waveform{}, wave.Waveform{},
			fmt.Errorf("%w: got %d channels, expected down-mixed mono", ErrInvalidInput, w.Channels)
	}

	spec, err := d.transform.Analyze(w.Samples)
	if err != nil {
		return wave.Waveform{}, wave.Waveform{}, fmt.Errorf("hpss: analyze: %w", err)
	}

	mag := spec.Magnitudes()
	harmEnhanced := enhance(medianAcrossTime(mag, d.kernelSize), d.maskPower)
	percEnhanced := enhance(medianAcrossFrequency(mag, d.kernelSize), d.maskPower)

	harmSpec, percSpec := maskSpectrograms(spec, harmEnhanced, percEnhanced)

	harmSamples, err := d.transform.Synthesize(harmSpec, w.Len())
	if err != nil {
		return wave.Waveform{}, wave.Waveform{}, fmt.Errorf("hpss: synthesize harmonic: %w", err)
	}

	percSamples, err := d.transform.Synthesize(percSpec, w.Len())
	if err != nil {
		return wave.Waveform{}, wave.Waveform{}, fmt.Errorf("hpss: synthesize percussive: %w", err)
	}

	harmonic = wave.Waveform{Samples: harmSamples, SampleRate: w.SampleRate, Channels: 1}
	percussive = wave.Waveform{Samples: percSamples, SampleRate: w.SampleRate, Channels: 1}

	return harmonic, percussive, nil
}

// enhance raises every magnitude to the mask power. The default power of
// two uses a vectorized square per row.
func enhance(mag [][]float64, power float64) [][]float64 {
	out := make([][]float64, len(mag))

	for f, row := range mag {
		dst := make([]float64, len(row))

		if power == 2 {
			vecmath.MulBlock(dst, row, row)
		} else {
			for k, v := range row {
				dst[k] = math.Pow(v, power)
			}
		}

		out[f] = dst
	}

	return out
}

// maskSpectrograms partitions spec between the two enhanced magnitudes.
// Bins where both enhancements vanish are split evenly so that the masks
// still sum to one everywhere.
func maskSpectrograms(spec *stft.Spectrogram, harmEnhanced, percEnhanced [][]float64) (harm, perc *stft.Spectrogram) {
	harm = spec.Clone()
	perc = spec.Clone()

	for f := range spec.Frames {
		for k, v := range spec.Frames[f] {
			h := harmEnhanced[f][k]
			p := percEnhanced[f][k]

			maskH := 0.5
			if sum := h + p; sum > 0 {
				maskH = h / sum
			}

			harm.Frames[f][k] = v * complex(maskH, 0)
			perc.Frames[f][k] = v * complex(1-maskH, 0)
		}
	}

	return harm, perc
}
