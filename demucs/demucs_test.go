package demucs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/algo-stems/audioio"
	"github.com/cwbudde/algo-stems/internal/testutil"
	"github.com/cwbudde/algo-stems/wave"
)

// writeScript installs a fake engine executable and returns its path.
func writeScript(t *testing.T, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake engine scripts need a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "fake-demucs")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	return path
}

func writeInputWAV(t *testing.T, dir string) string {
	t.Helper()

	w, err := wave.New(testutil.DeterministicSine(440, 44100, 0.5, 4410), 44100)
	if err != nil {
		t.Fatalf("wave.New: %v", err)
	}

	path := filepath.Join(dir, "track.wav")
	if err := audioio.Save(path, w); err != nil {
		t.Fatalf("audioio.Save: %v", err)
	}

	return path
}

func TestNewDefaults(t *testing.T) {
	s := New()

	if s.Binary() != DefaultBinary {
		t.Errorf("binary = %q, want %q", s.Binary(), DefaultBinary)
	}

	if s.Model() != DefaultModel {
		t.Errorf("model = %q, want %q", s.Model(), DefaultModel)
	}

	if s.Timeout() != 0 {
		t.Errorf("timeout = %v, want 0", s.Timeout())
	}
}

func TestNewOptions(t *testing.T) {
	s := New(WithBinary("engine"), WithModel("mdx"), WithTimeout(time.Minute))

	if s.Binary() != "engine" || s.Model() != "mdx" || s.Timeout() != time.Minute {
		t.Errorf("options not applied: %q %q %v", s.Binary(), s.Model(), s.Timeout())
	}
}

func TestSeparateMissingBinary(t *testing.T) {
	s := New(WithBinary("algo-stems-no-such-engine"))

	_, err := s.Separate(context.Background(), "in.wav", t.TempDir())
	if !errors.Is(err, ErrToolMissing) {
		t.Fatalf("err = %v, want ErrToolMissing", err)
	}
}

func TestSeparateFailureCarriesStderr(t *testing.T) {
	script := writeScript(t, `echo "model exploded" >&2; exit 3`)
	s := New(WithBinary(script))

	_, err := s.Separate(context.Background(), "in.wav", t.TempDir())
	if !errors.Is(err, ErrToolFailure) {
		t.Fatalf("err = %v, want ErrToolFailure", err)
	}

	if !strings.Contains(err.Error(), "model exploded") {
		t.Errorf("error %q does not carry engine stderr", err)
	}
}

func TestSeparateTimeout(t *testing.T) {
	script := writeScript(t, `exec sleep 5`)
	s := New(WithBinary(script), WithTimeout(50*time.Millisecond))

	start := time.Now()

	_, err := s.Separate(context.Background(), "in.wav", t.TempDir())
	if !errors.Is(err, ErrToolTimeout) {
		t.Fatalf("err = %v, want ErrToolTimeout", err)
	}

	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout took %v, engine not killed promptly", elapsed)
	}
}

func TestSeparateCanceledContext(t *testing.T) {
	script := writeScript(t, `exit 0`)
	s := New(WithBinary(script))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Separate(ctx, "in.wav", t.TempDir())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSeparateNoStemsProduced(t *testing.T) {
	script := writeScript(t, `exit 0`)
	s := New(WithBinary(script))

	_, err := s.Separate(context.Background(), "in.wav", t.TempDir())
	if !errors.Is(err, ErrNoStems) {
		t.Fatalf("err = %v, want ErrNoStems", err)
	}
}

func TestSeparateCollectsStems(t *testing.T) {
	// The fake engine mimics the real output layout by copying its input
	// into <outDir>/<model>/<track>/<stem>.wav.
	script := writeScript(t, `out="$4"; in="$5"
base=$(basename "$in" .wav)
dir="$out/fake_model/$base"
mkdir -p "$dir"
cp "$in" "$dir/drums.wav"
cp "$in" "$dir/vocals.wav"`)

	input := writeInputWAV(t, t.TempDir())
	s := New(WithBinary(script), WithModel("fake_model"))

	set, err := s.Separate(context.Background(), input, t.TempDir())
	if err != nil {
		t.Fatalf("Separate: %v", err)
	}

	if got, want := set.Labels(), []string{"Drums", "Vocals"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("labels = %v, want %v", got, want)
	}

	if set.SampleRate() != 44100 {
		t.Errorf("sample rate = %v, want 44100", set.SampleRate())
	}

	for _, stem := range set.Stems() {
		if stem.Signal.Len() != 4410 {
			t.Errorf("stem %q has %d samples, want 4410", stem.Label, stem.Signal.Len())
		}
	}
}

func TestDiscoverStems(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"vocals.wav", "drums.wav", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	paths, err := discoverStems(dir)
	if err != nil {
		t.Fatalf("discoverStems: %v", err)
	}

	want := []string{filepath.Join(dir, "drums.wav"), filepath.Join(dir, "vocals.wav")}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

func TestDiscoverStemsEmptyTree(t *testing.T) {
	if _, err := discoverStems(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, ErrNoStems) {
		t.Fatalf("err = %v, want ErrNoStems", err)
	}
}

func TestStemLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "out/htdemucs/track/drums.wav", want: "Drums"},
		{path: "vocals.wav", want: "Vocals"},
		{path: "no_vocals.wav", want: "No_vocals"},
		{path: "BASS.wav", want: "BASS"},
		{path: "other", want: "Other"},
	}

	for _, tt := range tests {
		if got := stemLabel(tt.path); got != tt.want {
			t.Errorf("stemLabel(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestTrackName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/audio/mix.wav", want: "mix"},
		{path: "mix.mp3", want: "mix"},
		{path: "mix", want: "mix"},
	}

	for _, tt := range tests {
		if got := trackName(tt.path); got != tt.want {
			t.Errorf("trackName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
