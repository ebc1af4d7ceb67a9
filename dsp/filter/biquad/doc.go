// Package biquad provides biquad (second-order IIR) filter runtime primitives.
//
// A [Section] implements Direct Form II Transposed processing for a single
// second-order section defined by [Coefficients]. Multiple sections can be
// cascaded via [Chain] for higher-order filters.
//
// This package provides the processing runtime only. Band-stop coefficient
// design lives in dsp/filter/notch.
package biquad
