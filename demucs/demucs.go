// Package demucs drives the Demucs neural separation engine as an external
// subprocess and collects the stems it writes.
//
// The adapter orchestrates only: it locates the engine, invokes it
// blocking, and loads whatever stem files the engine produced. The
// separation content itself is never reinterpreted.
package demucs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-stems/audioio"
	"github.com/cwbudde/algo-stems/wave"
)

const (
	// DefaultBinary is the engine executable resolved via PATH.
	DefaultBinary = "demucs"
	// DefaultModel is the pretrained model passed to the engine.
	DefaultModel = "htdemucs_ft"

	// stderrTailBytes bounds how much engine stderr is carried into a
	// failure message.
	stderrTailBytes = 2048
)

var (
	// ErrToolMissing reports that the engine executable could not be found.
	ErrToolMissing = errors.New("demucs: separation engine not found")
	// ErrToolFailure reports a nonzero engine exit.
	ErrToolFailure = errors.New("demucs: separation engine failed")
	// ErrToolTimeout reports that the engine exceeded the configured bound.
	ErrToolTimeout = errors.New("demucs: separation engine timed out")
	// ErrNoStems reports a successful run that produced no stem files.
	ErrNoStems = errors.New("demucs: no stems produced")
)

// Loader reads one audio file into a mono waveform.
type Loader func(path string) (wave.Waveform, error)

// Separator runs the external engine and gathers its output stems.
// A Separator is reusable and safe for concurrent use.
type Separator struct {
	binary  string
	model   string
	timeout time.Duration
	logger  *zap.Logger
	load    Loader
}

// Option customises a Separator.
type Option func(*Separator)

// WithBinary sets the engine executable name or path.
func WithBinary(bin string) Option {
	return func(s *Separator) { s.binary = bin }
}

// WithModel sets the pretrained model name.
func WithModel(model string) Option {
	return func(s *Separator) { s.model = model }
}

// WithTimeout bounds the engine run time. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Separator) { s.timeout = d }
}

// WithLogger sets the logger. A nil logger falls back to a no-op one.
func WithLogger(l *zap.Logger) Option {
	return func(s *Separator) { s.logger = l }
}

// WithLoader sets the function used to read produced stem files.
func WithLoader(l Loader) Option {
	return func(s *Separator) { s.load = l }
}

// New creates a Separator with the given options.
func New(opts ...Option) *Separator {
	s := &Separator{
		binary: DefaultBinary,
		model:  DefaultModel,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	if s.load == nil {
		s.load = audioio.Load
	}

	return s
}

// Binary returns the configured engine executable.
func (s *Separator) Binary() string { return s.binary }

// Model returns the configured model name.
func (s *Separator) Model() string { return s.model }

// Timeout returns the configured run bound. Zero means unbounded.
func (s *Separator) Timeout() time.Duration { return s.timeout }

// Separate runs the engine on inputPath, writing under outDir, and returns
// the stems the engine produced in sorted file order. Each stem is labeled
// by its capitalized base name (drums.wav becomes Drums). The set's sample
// rate is taken from the first stem; the engine resamples on its own
// authority.
func (s *Separator) Separate(ctx context.Context, inputPath, outDir string) (*wave.StemSet, error) {
	bin, err := exec.LookPath(s.binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrToolMissing, s.binary, err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("demucs: create output dir: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, bin, "-n", s.model, "-o", outDir, inputPath)
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	s.logger.Info("running separation engine",
		zap.String("binary", bin),
		zap.String("model", s.model),
		zap.String("input", inputPath),
		zap.String("out_dir", outDir))

	start := time.Now()

	if err := cmd.Run(); err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, fmt.Errorf("%w after %s", ErrToolTimeout, time.Since(start).Round(time.Millisecond))
		case ctx.Err() != nil:
			return nil, fmt.Errorf("demucs: %w", ctx.Err())
		default:
			return nil, fmt.Errorf("%w: %w: %s", ErrToolFailure, err, stderrTail(stderr.Bytes()))
		}
	}

	s.logger.Info("separation engine finished", zap.Duration("elapsed", time.Since(start)))

	stemDir := filepath.Join(outDir, s.model, trackName(inputPath))

	paths, err := discoverStems(stemDir)
	if err != nil {
		return nil, err
	}

	return s.loadStems(paths)
}

// loadStems reads the discovered files into a StemSet whose sample rate is
// fixed by the first stem.
func (s *Separator) loadStems(paths []string) (*wave.StemSet, error) {
	var set *wave.StemSet

	for _, path := range paths {
		w, err := s.load(path)
		if err != nil {
			return nil, fmt.Errorf("demucs: load stem %s: %w", path, err)
		}

		if set == nil {
			set = wave.NewStemSet(w.SampleRate)
		}

		label := stemLabel(path)
		if err := set.Add(label, w); err != nil {
			return nil, fmt.Errorf("demucs: stem %s: %w", path, err)
		}

		s.logger.Debug("loaded stem",
			zap.String("label", label),
			zap.String("path", path),
			zap.Float64("sample_rate", w.SampleRate),
			zap.Int("samples", w.Len()))
	}

	return set, nil
}

// discoverStems lists the wav files the engine wrote under dir, sorted by
// file name.
func discoverStems(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.wav"))
	if err != nil {
		return nil, fmt.Errorf("demucs: scan %s: %w", dir, err)
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoStems, dir)
	}

	sort.Strings(paths)

	return paths, nil
}

// trackName returns the directory name the engine derives from its input
// file: the base name without extension.
func trackName(inputPath string) string {
	base := filepath.Base(inputPath)

	return strings.TrimSuffix(base, filepath.Ext(base))
}

// stemLabel maps a stem file path to its display label: the base name
// without extension, first letter upper-cased.
func stemLabel(path string) string {
	name := trackName(path)
	if name == "" {
		return name
	}

	r, size := utf8.DecodeRuneInString(name)

	return string(unicode.ToUpper(r)) + name[size:]
}

// stderrTail trims engine stderr to its last stderrTailBytes bytes.
func stderrTail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > stderrTailBytes {
		s = s[len(s)-stderrTailBytes:]
	}

	if s == "" {
		return "(no stderr)"
	}

	return s
}
