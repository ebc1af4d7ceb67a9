package analyze

import (
	"bytes"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/cwbudde/algo-stems/wave"
)

const (
	plotWidth  = 24 * vg.Centimeter
	plotHeight = 8 * vg.Centimeter
	heatHeight = 12 * vg.Centimeter
)

const (
	// waveformBuckets bounds the number of line vertices in a waveform
	// plot. Each bucket contributes its min and max sample so the
	// envelope survives decimation.
	waveformBuckets = 2000

	// spectrumBuckets bounds the number of line vertices in a spectrum
	// plot. Each bucket contributes its loudest point so peaks survive.
	spectrumBuckets = 2000

	// maxHeatColumns and maxHeatRows bound the heat map cell count.
	// Larger matrices are max-pooled so short events stay visible.
	maxHeatColumns = 1000
	maxHeatRows    = 512

	spectrogramColors = 256
)

// RenderWaveform draws the time-domain envelope of w and returns the
// encoded PNG.
func RenderWaveform(w wave.Waveform, title string) ([]byte, error) {
	if w.Len() == 0 {
		return nil, fmt.Errorf("%w: waveform plot needs at least one sample", ErrEmptySignal)
	}

	line, err := plotter.NewLine(waveformXYs(w))
	if err != nil {
		return nil, fmt.Errorf("analyze: waveform plot: %w", err)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Amplitude"
	p.Add(line)

	return renderPNG(p, plotWidth, plotHeight)
}

// RenderSpectrum draws the magnitude spectrum of w up to maxHz and returns
// the encoded PNG. A maxHz of zero or below plots the full range up to the
// Nyquist frequency.
func RenderSpectrum(w wave.Waveform, title string, maxHz float64) ([]byte, error) {
	points, err := Spectrum(w)
	if err != nil {
		return nil, err
	}

	if maxHz <= 0 {
		maxHz = w.SampleRate / 2
	}

	line, err := plotter.NewLine(spectrumXYs(points, maxHz))
	if err != nil {
		return nil, fmt.Errorf("analyze: spectrum plot: %w", err)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Frequency (Hz)"
	p.Y.Label.Text = "Magnitude"
	p.Add(line)

	return renderPNG(p, plotWidth, plotHeight)
}

// RenderSpectrogram draws a time-frequency heat map of w on a dB scale
// relative to the signal's own peak and returns the encoded PNG.
func RenderSpectrogram(w wave.Waveform, title string) ([]byte, error) {
	data, err := computeSpectrogram(w)
	if err != nil {
		return nil, err
	}

	heat := plotter.NewHeatMap(newSpectrogramGrid(data), moreland.ExtendedBlackBody().Palette(spectrogramColors))

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Frequency (Hz)"
	p.Add(heat)

	return renderPNG(p, plotWidth, heatHeight)
}

// renderPNG encodes p as a PNG of the given size.
func renderPNG(p *plot.Plot, width, height vg.Length) ([]byte, error) {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return nil, fmt.Errorf("analyze: render png: %w", err)
	}

	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("analyze: render png: %w", err)
	}

	return buf.Bytes(), nil
}

// waveformXYs converts samples to plot coordinates, keeping at most two
// vertices per bucket.
func waveformXYs(w wave.Waveform) plotter.XYs {
	n := w.Len()
	if n <= 2*waveformBuckets {
		xys := make(plotter.XYs, n)
		for i, s := range w.Samples {
			xys[i] = plotter.XY{X: float64(i) / w.SampleRate, Y: s}
		}

		return xys
	}

	xys := make(plotter.XYs, 0, 2*waveformBuckets)

	for b := range waveformBuckets {
		start := b * n / waveformBuckets
		end := (b + 1) * n / waveformBuckets

		lo, hi := w.Samples[start], w.Samples[start]
		for _, s := range w.Samples[start+1 : end] {
			lo = min(lo, s)
			hi = max(hi, s)
		}

		t := float64(start) / w.SampleRate
		xys = append(xys, plotter.XY{X: t, Y: lo}, plotter.XY{X: t, Y: hi})
	}

	return xys
}

// spectrumXYs converts points below maxHz to plot coordinates, keeping at
// most one vertex per bucket.
func spectrumXYs(points []SpectrumPoint, maxHz float64) plotter.XYs {
	kept := points
	for i, pt := range points {
		if pt.FrequencyHz > maxHz {
			kept = points[:i]
			break
		}
	}

	n := len(kept)
	if n <= spectrumBuckets {
		xys := make(plotter.XYs, n)
		for i, pt := range kept {
			xys[i] = plotter.XY{X: pt.FrequencyHz, Y: pt.Magnitude}
		}

		return xys
	}

	xys := make(plotter.XYs, 0, spectrumBuckets)

	for b := range spectrumBuckets {
		start := b * n / spectrumBuckets
		end := (b + 1) * n / spectrumBuckets

		best := kept[start]
		for _, pt := range kept[start+1 : end] {
			if pt.Magnitude > best.Magnitude {
				best = pt
			}
		}

		xys = append(xys, plotter.XY{X: best.FrequencyHz, Y: best.Magnitude})
	}

	return xys
}

// spectrogramGrid adapts a pooled dB matrix to the plotter.GridXYZ
// interface. Columns are time, rows are frequency.
type spectrogramGrid struct {
	z     [][]float64 // [column][row], dB
	times []float64
	freqs []float64
}

// newSpectrogramGrid max-pools s down to the heat map cell budget.
func newSpectrogramGrid(s *spectrogramData) spectrogramGrid {
	cols := s.numFrames()
	rows := s.numBins()
	colStride := (cols + maxHeatColumns - 1) / maxHeatColumns
	rowStride := (rows + maxHeatRows - 1) / maxHeatRows
	pooledCols := (cols + colStride - 1) / colStride
	pooledRows := (rows + rowStride - 1) / rowStride

	z := make([][]float64, pooledCols)
	times := make([]float64, pooledCols)

	for pc := range pooledCols {
		c0 := pc * colStride
		c1 := min(c0+colStride, cols)
		times[pc] = s.frameTime(c0)

		col := make([]float64, pooledRows)
		for pr := range pooledRows {
			r0 := pr * rowStride
			r1 := min(r0+rowStride, rows)

			v := dbFloor
			for c := c0; c < c1; c++ {
				for r := r0; r < r1; r++ {
					v = max(v, s.frames[c][r])
				}
			}

			col[pr] = v
		}

		z[pc] = col
	}

	freqs := make([]float64, pooledRows)
	for pr := range pooledRows {
		freqs[pr] = s.binFrequency(pr * rowStride)
	}

	return spectrogramGrid{z: z, times: times, freqs: freqs}
}

func (g spectrogramGrid) Dims() (c, r int) { return len(g.times), len(g.freqs) }

func (g spectrogramGrid) Z(c, r int) float64 { return g.z[c][r] }

func (g spectrogramGrid) X(c int) float64 { return g.times[c] }

func (g spectrogramGrid) Y(r int) float64 { return g.freqs[r] }

// Min and Max pin the palette to the full relative-dB range so the color
// mapping stays defined even when every cell sits on the floor.
func (g spectrogramGrid) Min() float64 { return dbFloor }

func (g spectrogramGrid) Max() float64 { return 0 }
