package hpss

import "sort"

// medianAcrossTime returns, for each frequency bin, the sliding median of
// mag over frames. mag is indexed [frame][bin]; the result has the same
// shape. Borders are handled by reflection.
func medianAcrossTime(mag [][]float64, kernel int) [][]float64 {
	numFrames := len(mag)
	if numFrames == 0 {
		return nil
	}

	bins := len(mag[0])

	out := make([][]float64, numFrames)
	for f := range out {
		out[f] = make([]float64, bins)
	}

	col := make([]float64, numFrames)
	filtered := make([]float64, numFrames)
	scratch := make([]float64, kernel)

	for k := range bins {
		for f := range numFrames {
			col[f] = mag[f][k]
		}

		slidingMedian(filtered, col, kernel, scratch)

		for f := range numFrames {
			out[f][k] = filtered[f]
		}
	}

	return out
}

// medianAcrossFrequency returns, for each frame, the sliding median of mag
// over frequency bins. Borders are handled by reflection.
func medianAcrossFrequency(mag [][]float64, kernel int) [][]float64 {
	numFrames := len(mag)
	if numFrames == 0 {
		return nil
	}

	out := make([][]float64, numFrames)
	scratch := make([]float64, kernel)

	for f, row := range mag {
		filtered := make([]float64, len(row))
		slidingMedian(filtered, row, kernel, scratch)
		out[f] = filtered
	}

	return out
}

// slidingMedian writes the centered sliding median of src into dst. kernel
// must be odd; out-of-range indices reflect at the borders with edge
// duplication (..., 1, 0 | 0, 1, ..., n-1 | n-1, n-2, ...).
func slidingMedian(dst, src []float64, kernel int, scratch []float64) {
	n := len(src)
	half := kernel / 2

	for i := range n {
		for j := range kernel {
			scratch[j] = src[reflectIndex(i+j-half, n)]
		}

		sort.Float64s(scratch)
		dst[i] = scratch[half]
	}
}

func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}

	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}

		if i >= n {
			i = 2*n - i - 1
		}
	}

	return i
}
