// Package report assembles the analysis document for one separation run:
// source metadata, a method summary, an optional filter-parameter table,
// and per-signal sections with statistics and rendered artifacts.
package report

import (
	"fmt"
	"time"

	"github.com/cwbudde/algo-stems/analyze"
	"github.com/cwbudde/algo-stems/wave"
)

const (
	// DefaultTitle heads every document unless overridden.
	DefaultTitle = "Instrument Separation Report"

	// MixLabel names the untouched input section, always first.
	MixLabel = "Original Mix"

	// spectrumMaxHz bounds the rendered spectrum view.
	spectrumMaxHz = 5000.0

	footerText = "HPSS = explainable | HPSS+Filter = reduced bleed | Neural (Demucs) = perceptual quality"
)

// Meta carries the run description shown in the document's header.
type Meta struct {
	SourceFile string
	Method     string
	MethodNote string
}

// Assembler builds documents. Safe for concurrent use.
type Assembler struct {
	title string
	now   func() time.Time
}

// Option customises an Assembler.
type Option func(*Assembler)

// WithTitle overrides the document title.
func WithTitle(title string) Option {
	return func(a *Assembler) { a.title = title }
}

// WithClock fixes the timestamp source, for reproducible documents.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// NewAssembler creates an Assembler with the given options.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{
		title: DefaultTitle,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.now == nil {
		a.now = time.Now
	}

	return a
}

// Build assembles the document for one run: the original mix first, then
// each stem in set order. filter may be nil when no filtering occurred.
func (a *Assembler) Build(meta Meta, mix wave.Waveform, stems *wave.StemSet, filter *FilterInfo) (*Document, error) {
	doc := &Document{
		Title:       a.title,
		GeneratedAt: a.now().UTC(),
		SourceFile:  meta.SourceFile,
		Method:      meta.Method,
		MethodNote:  meta.MethodNote,
		Filter:      filter,
		Footer:      footerText,
	}

	section, err := buildSection(MixLabel, mix)
	if err != nil {
		return nil, err
	}

	doc.Sections = append(doc.Sections, section)

	if stems != nil {
		for _, stem := range stems.Stems() {
			section, err := buildSection(stem.Label, stem.Signal)
			if err != nil {
				return nil, err
			}

			doc.Sections = append(doc.Sections, section)
		}
	}

	return doc, nil
}

// buildSection analyzes one signal and renders its three artifacts.
func buildSection(label string, w wave.Waveform) (SignalSection, error) {
	stats, err := analyze.Statistics(w)
	if err != nil {
		return SignalSection{}, fmt.Errorf("report: section %s: %w", label, err)
	}

	waveform, err := analyze.RenderWaveform(w, "Waveform - "+label)
	if err != nil {
		return SignalSection{}, fmt.Errorf("report: section %s: %w", label, err)
	}

	spectrum, err := analyze.RenderSpectrum(w, "Frequency Spectrum - "+label, spectrumMaxHz)
	if err != nil {
		return SignalSection{}, fmt.Errorf("report: section %s: %w", label, err)
	}

	spectrogram, err := analyze.RenderSpectrogram(w, "Spectrogram - "+label)
	if err != nil {
		return SignalSection{}, fmt.Errorf("report: section %s: %w", label, err)
	}

	return SignalSection{
		Label:       label,
		SampleRate:  w.SampleRate,
		Stats:       stats,
		Waveform:    waveform,
		Spectrum:    spectrum,
		Spectrogram: spectrogram,
	}, nil
}
