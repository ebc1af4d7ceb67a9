package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cwbudde/algo-stems/analyze"
)

// FilterInfo describes the band-stop filter applied during a run. It feeds
// the filter-parameter table and is present only when filtering occurred.
type FilterInfo struct {
	Type   string  `json:"type"`
	LowHz  float64 `json:"lowHz"`
	HighHz float64 `json:"highHz"`
	Order  int     `json:"order"`
}

// SignalSection is one analyzed signal: a stats table plus the three
// rendered artifacts.
type SignalSection struct {
	Label       string        `json:"label"`
	SampleRate  float64       `json:"sampleRate"`
	Stats       analyze.Stats `json:"stats"`
	Waveform    []byte        `json:"waveformPng"`
	Spectrum    []byte        `json:"spectrumPng"`
	Spectrogram []byte        `json:"spectrogramPng"`
}

// Document is the structured content tree of one separation report, in
// fixed order: title/metadata, method summary, optional filter table, one
// section per signal, footer. Pagination and layout belong to an external
// renderer; this tree is the contract.
type Document struct {
	Title       string          `json:"title"`
	GeneratedAt time.Time       `json:"generatedAt"`
	SourceFile  string          `json:"sourceFile"`
	Method      string          `json:"method"`
	MethodNote  string          `json:"methodNote"`
	Filter      *FilterInfo     `json:"filter,omitempty"`
	Sections    []SignalSection `json:"sections"`
	Footer      string          `json:"footer"`
}

// WriteJSON serializes the document to w in one pass. Image bytes are
// emitted as base64 strings by encoding/json.
func (d *Document) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("report: encode document: %w", err)
	}

	return nil
}
