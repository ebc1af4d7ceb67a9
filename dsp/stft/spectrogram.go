package stft

import (
	"github.com/cwbudde/algo-vecmath"
)

// Spectrogram holds a one-sided complex STFT: Frames[f][k] is bin k of
// frame f, with FrameSize/2+1 bins per frame. Frame f is centered on
// sample f*HopSize of the analyzed signal.
type Spectrogram struct {
	Frames    [][]complex128
	FrameSize int
	HopSize   int
}

// NumFrames returns the number of analysis frames.
func (s *Spectrogram) NumFrames() int {
	return len(s.Frames)
}

// NumBins returns the number of one-sided frequency bins per frame.
func (s *Spectrogram) NumBins() int {
	return s.FrameSize/2 + 1
}

// Magnitudes returns the per-frame magnitude matrix |Frames[f][k]|.
func (s *Spectrogram) Magnitudes() [][]float64 {
	bins := s.NumBins()
	re := make([]float64, bins)
	im := make([]float64, bins)

	out := make([][]float64, len(s.Frames))
	for f, row := range s.Frames {
		for k, v := range row {
			re[k] = real(v)
			im[k] = imag(v)
		}

		mag := make([]float64, bins)
		vecmath.Magnitude(mag, re, im)
		out[f] = mag
	}

	return out
}

// Clone returns a deep copy sharing no bin storage with s.
func (s *Spectrogram) Clone() *Spectrogram {
	frames := make([][]complex128, len(s.Frames))
	for i, row := range s.Frames {
		frames[i] = append([]complex128(nil), row...)
	}

	return &Spectrogram{Frames: frames, FrameSize: s.FrameSize, HopSize: s.HopSize}
}
