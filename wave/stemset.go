package wave

import "fmt"

// Stem is one isolated output signal attributed to a source class.
type Stem struct {
	Label  string
	Signal Waveform
}

// StemSet is an ordered collection of stems keyed by unique label. All
// entries share the sample rate fixed at construction, normally the rate of
// the source mix.
type StemSet struct {
	sampleRate float64
	stems      []Stem
	index      map[string]int
}

// NewStemSet returns an empty set whose entries must match sampleRate.
func NewStemSet(sampleRate float64) *StemSet {
	return &StemSet{
		sampleRate: sampleRate,
		index:      make(map[string]int),
	}
}

// SampleRate returns the rate shared by all entries.
func (s *StemSet) SampleRate() float64 {
	return s.sampleRate
}

// Add appends a stem under label. The label must be unique within the set
// and the signal must match the set's sample rate.
func (s *StemSet) Add(label string, w Waveform) error {
	if _, ok := s.index[label]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateStem, label)
	}

	if w.SampleRate != s.sampleRate {
		return fmt.Errorf("%w: stem %q has %g Hz, set requires %g Hz",
			ErrSampleRateMismatch, label, w.SampleRate, s.sampleRate)
	}

	s.index[label] = len(s.stems)
	s.stems = append(s.stems, Stem{Label: label, Signal: w})

	return nil
}

// Get returns the stem signal stored under label.
func (s *StemSet) Get(label string) (Waveform, bool) {
	i, ok := s.index[label]
	if !ok {
		return Waveform{}, false
	}

	return s.stems[i].Signal, true
}

// Stems returns the stems in insertion order. The returned slice is shared;
// callers must not modify it.
func (s *StemSet) Stems() []Stem {
	return s.stems
}

// Labels returns the stem labels in insertion order.
func (s *StemSet) Labels() []string {
	out := make([]string, len(s.stems))
	for i, st := range s.stems {
		out[i] = st.Label
	}

	return out
}

// Len returns the number of stems in the set.
func (s *StemSet) Len() int {
	return len(s.stems)
}
