package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-stems/audioio"
	"github.com/cwbudde/algo-stems/internal/testutil"
	"github.com/cwbudde/algo-stems/report"
	"github.com/cwbudde/algo-stems/separate"
	"github.com/cwbudde/algo-stems/wave"
)

func writeInput(t *testing.T) string {
	t.Helper()

	w, err := wave.New(testutil.SineWithImpulses(440, 44100, 0.5, 0.8, 4410, 8820), 44100)
	if err != nil {
		t.Fatalf("wave.New: %v", err)
	}

	path := filepath.Join(t.TempDir(), "mix.wav")
	if err := audioio.Save(path, w); err != nil {
		t.Fatalf("audioio.Save: %v", err)
	}

	return path
}

func TestRunWritesStemsAndReport(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")

	cli := &CLI{
		Input:  writeInput(t),
		Method: "hpss",
		Low:    10,
		High:   4000,
		Order:  4,
		Out:    outDir,
		Report: "report.json",
	}

	if err := run(cli); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, name := range []string{"harmonic.wav", "percussive.wav"} {
		stem, err := audioio.Load(filepath.Join(outDir, name))
		if err != nil {
			t.Fatalf("load %s: %v", name, err)
		}

		if stem.Len() != 8820 {
			t.Errorf("%s has %d samples, want 8820", name, stem.Len())
		}
	}

	data, err := os.ReadFile(filepath.Join(outDir, "report.json"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	var doc report.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("report not valid json: %v", err)
	}

	if doc.Method != "HPSS" || len(doc.Sections) != 3 {
		t.Errorf("report: method %q, %d sections", doc.Method, len(doc.Sections))
	}
}

func TestRunFilteredStemNames(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")

	cli := &CLI{
		Input:  writeInput(t),
		Method: "hpss-filter",
		Low:    10,
		High:   4000,
		Order:  4,
		Out:    outDir,
		Report: "report.json",
	}

	if err := run(cli); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, name := range []string{"harmonic-raw.wav", "harmonic-filtered.wav", "percussive.wav"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("stem file %s missing: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(outDir, "report.json"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	var doc report.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("report not valid json: %v", err)
	}

	if doc.Filter == nil || doc.Filter.LowHz != 10 || doc.Filter.HighHz != 4000 {
		t.Errorf("report filter table = %+v, want 10-4000 Hz", doc.Filter)
	}
}

func TestValidateBand(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		low     float64
		high    float64
		wantErr bool
	}{
		{name: "default band", method: "hpss-filter", low: 10, high: 4000, wantErr: false},
		{name: "full range", method: "hpss-filter", low: 10, high: 20000, wantErr: false},
		{name: "low below range", method: "hpss-filter", low: 5, high: 4000, wantErr: true},
		{name: "high above range", method: "hpss-filter", low: 10, high: 22050, wantErr: true},
		{name: "inverted band", method: "hpss-filter", low: 4000, high: 100, wantErr: true},
		{name: "band ignored without filtering", method: "hpss", low: 0, high: 0, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli := &CLI{Method: tt.method, Low: tt.low, High: tt.high}

			err := cli.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunRejectsBadMethod(t *testing.T) {
	cli := &CLI{Input: writeInput(t), Method: "magic", Out: t.TempDir(), Report: "r.json"}

	if err := run(cli); !errors.Is(err, separate.ErrUnknownMethod) {
		t.Fatalf("err = %v, want separate.ErrUnknownMethod", err)
	}
}

func TestRunMissingInput(t *testing.T) {
	cli := &CLI{
		Input:  filepath.Join(t.TempDir(), "missing.wav"),
		Method: "hpss",
		Out:    t.TempDir(),
		Report: "r.json",
	}

	if err := run(cli); err == nil {
		t.Fatal("run succeeded on a missing input file")
	}
}
