// Package separate runs one end-to-end separation: decompose in-process or
// delegate to the neural engine, optionally notch-filter the harmonic stem,
// and assemble the analysis report.
//
// One invocation processes one input synchronously and shares no state
// with other runs.
package separate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-stems/demucs"
	"github.com/cwbudde/algo-stems/dsp/filter/notch"
	"github.com/cwbudde/algo-stems/dsp/hpss"
	"github.com/cwbudde/algo-stems/report"
	"github.com/cwbudde/algo-stems/wave"
)

// Stem labels produced by the in-process methods. The neural path labels
// stems after the engine's own output files instead.
const (
	LabelHarmonic         = "Harmonic"
	LabelPercussive       = "Percussive"
	LabelHarmonicRaw      = "Harmonic (raw)"
	LabelHarmonicFiltered = "Harmonic (filtered)"
)

// Default band for MethodHPSSFilter when the config leaves it unset.
const (
	DefaultFilterLowHz  = 10.0
	DefaultFilterHighHz = 4000.0
)

// ErrInvalidSource reports a source the pipeline cannot process.
var ErrInvalidSource = errors.New("separate: invalid source")

// Source is one input to separate.
type Source struct {
	// Path is the file the mix was decoded from. The neural engine reads
	// it directly; reports show its base name.
	Path string
	// Mix is the decoded mono mix analyzed and decomposed in-process.
	Mix wave.Waveform
}

// Config parameterizes a run.
type Config struct {
	Method  Method
	Filter  notch.Spec    // MethodHPSSFilter only; a fully unset band becomes 10-4000 Hz
	Model   string        // neural model name; empty means the adapter default
	Timeout time.Duration // neural run bound; zero means no bound
	WorkDir string        // scratch parent for the neural path; empty means os.TempDir
	Logger  *zap.Logger
}

// Result is the outcome of one run.
type Result struct {
	Method Method
	Stems  *wave.StemSet
	Filter *notch.Spec // the applied band-stop spec, nil unless filtering occurred
	Report *report.Document
}

// Run executes one separation end to end. Validation failures abort before
// any processing and produce no partial output; engine failures abort only
// the neural path.
func Run(ctx context.Context, source Source, cfg Config) (*Result, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("separate: %w", err)
	}

	if !cfg.Method.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, int(cfg.Method))
	}

	if err := validateSource(source, cfg.Method); err != nil {
		return nil, err
	}

	// Resolve and validate the filter band before any processing happens.
	var spec notch.Spec
	if cfg.Method == MethodHPSSFilter {
		spec = filterSpec(cfg.Filter)
		if err := spec.Validate(source.Mix.SampleRate); err != nil {
			return nil, err
		}
	}

	logger.Info("separating",
		zap.Stringer("method", cfg.Method),
		zap.String("source", source.Path),
		zap.Float64("sample_rate", source.Mix.SampleRate),
		zap.Int("samples", source.Mix.Len()))

	var (
		stems      *wave.StemSet
		filterUsed *notch.Spec
		err        error
	)

	switch cfg.Method {
	case MethodHPSS:
		stems, err = runHPSS(source.Mix)
	case MethodHPSSFilter:
		stems, err = runHPSSFilter(source.Mix, spec, logger)
		if err == nil {
			filterUsed = &spec
		}
	case MethodNeural:
		stems, err = runNeural(ctx, source.Path, cfg, logger)
	}

	if err != nil {
		return nil, err
	}

	doc, err := buildReport(source, cfg.Method, spec, filterUsed, stems)
	if err != nil {
		return nil, err
	}

	logger.Info("separation complete",
		zap.Strings("stems", stems.Labels()),
		zap.Int("report_sections", len(doc.Sections)))

	return &Result{Method: cfg.Method, Stems: stems, Filter: filterUsed, Report: doc}, nil
}

func validateSource(source Source, m Method) error {
	if source.Mix.Len() == 0 {
		return fmt.Errorf("%w: empty mix", ErrInvalidSource)
	}

	if !source.Mix.Mono() {
		return fmt.Errorf("%w: mix must be mono, got %d channels", ErrInvalidSource, source.Mix.Channels)
	}

	if source.Mix.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %g", ErrInvalidSource, source.Mix.SampleRate)
	}

	if m == MethodNeural && source.Path == "" {
		return fmt.Errorf("%w: the neural engine needs the source file on disk", ErrInvalidSource)
	}

	return nil
}

// filterSpec fills the pipeline band defaults, then the order default. A
// partially set band is left alone so validation can reject it.
func filterSpec(spec notch.Spec) notch.Spec {
	if spec.LowHz == 0 && spec.HighHz == 0 {
		spec.LowHz, spec.HighHz = DefaultFilterLowHz, DefaultFilterHighHz
	}

	return spec.WithDefaults()
}

func runHPSS(mix wave.Waveform) (*wave.StemSet, error) {
	d, err := hpss.New()
	if err != nil {
		return nil, err
	}

	harmonic, percussive, err := d.Separate(mix)
	if err != nil {
		return nil, err
	}

	set := wave.NewStemSet(mix.SampleRate)
	if err := set.Add(LabelHarmonic, harmonic); err != nil {
		return nil, err
	}

	if err := set.Add(LabelPercussive, percussive); err != nil {
		return nil, err
	}

	return set, nil
}

func runHPSSFilter(mix wave.Waveform, spec notch.Spec, logger *zap.Logger) (*wave.StemSet, error) {
	d, err := hpss.New()
	if err != nil {
		return nil, err
	}

	harmonic, percussive, err := d.Separate(mix)
	if err != nil {
		return nil, err
	}

	f, err := notch.New(spec, mix.SampleRate)
	if err != nil {
		return nil, err
	}

	// The percussive stem is never filtered; the notch only trims bleed
	// left in the harmonic one.
	filtered, err := f.Apply(harmonic)
	if err != nil {
		return nil, err
	}

	logger.Debug("harmonic stem filtered",
		zap.Float64("low_hz", spec.LowHz),
		zap.Float64("high_hz", spec.HighHz),
		zap.Int("order", spec.Order))

	set := wave.NewStemSet(mix.SampleRate)

	for _, stem := range []struct {
		label  string
		signal wave.Waveform
	}{
		{label: LabelHarmonicRaw, signal: harmonic},
		{label: LabelHarmonicFiltered, signal: filtered},
		{label: LabelPercussive, signal: percussive},
	} {
		if err := set.Add(stem.label, stem.signal); err != nil {
			return nil, err
		}
	}

	return set, nil
}

// runNeural drives the external engine in a scratch directory that is
// removed on every exit path; the stems are in memory by then.
func runNeural(ctx context.Context, inputPath string, cfg Config, logger *zap.Logger) (_ *wave.StemSet, err error) {
	scratch, err := os.MkdirTemp(cfg.WorkDir, "stems-*")
	if err != nil {
		return nil, fmt.Errorf("separate: scratch dir: %w", err)
	}

	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil && err == nil {
			err = fmt.Errorf("separate: clean scratch dir: %w", rmErr)
		}
	}()

	opts := []demucs.Option{
		demucs.WithTimeout(cfg.Timeout),
		demucs.WithLogger(logger),
	}

	if cfg.Model != "" {
		opts = append(opts, demucs.WithModel(cfg.Model))
	}

	return demucs.New(opts...).Separate(ctx, inputPath, scratch)
}

func buildReport(source Source, m Method, spec notch.Spec, filterUsed *notch.Spec, stems *wave.StemSet) (*report.Document, error) {
	meta := report.Meta{
		SourceFile: sourceFileName(source.Path),
		Method:     m.String(),
		MethodNote: methodNote(m, spec),
	}

	var info *report.FilterInfo
	if filterUsed != nil {
		info = &report.FilterInfo{
			Type:   fmt.Sprintf("Butterworth band-stop (order %d)", filterUsed.Order),
			LowHz:  filterUsed.LowHz,
			HighHz: filterUsed.HighHz,
			Order:  filterUsed.Order,
		}
	}

	return report.NewAssembler().Build(meta, source.Mix, stems, info)
}

func sourceFileName(path string) string {
	if path == "" {
		return ""
	}

	return filepath.Base(path)
}
