package audioio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-stems/wave"
)

// Load decodes a WAV file and down-mixes it to mono by channel mean.
func Load(path string) (wave.Waveform, error) {
	w, err := LoadInterleaved(path)
	if err != nil {
		return wave.Waveform{}, err
	}

	return downmixMono(w)
}

// LoadInterleaved decodes a WAV file keeping its channel layout.
func LoadInterleaved(path string) (wave.Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return wave.Waveform{}, fmt.Errorf("audioio: open: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return wave.Waveform{}, fmt.Errorf("%w: %s is not a readable WAV file", ErrUnsupportedFile, path)
	}

	switch d.WavAudioFormat {
	case formatIEEEFloat:
		return decodeFloat(d)
	case formatPCM:
		return decodeInt(d)
	default:
		return wave.Waveform{}, fmt.Errorf("%w: WAV format tag %d", ErrUnsupportedFile, d.WavAudioFormat)
	}
}

// decodeInt reads an integer PCM stream and normalizes it by the source
// bit depth into [-1, 1).
func decodeInt(d *wav.Decoder) (wave.Waveform, error) {
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return wave.Waveform{}, fmt.Errorf("%w: reading PCM data: %w", ErrUnsupportedFile, err)
	}

	bits := buf.SourceBitDepth
	if bits == 0 {
		bits = int(d.BitDepth)
	}

	if bits <= 0 || bits > 32 {
		return wave.Waveform{}, fmt.Errorf("%w: unsupported bit depth %d", ErrUnsupportedFile, bits)
	}

	scale := 1.0 / float64(int64(1)<<(bits-1))

	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float64(v) * scale
	}

	w, err := wave.NewInterleaved(samples, float64(buf.Format.SampleRate), buf.Format.NumChannels)
	if err != nil {
		return wave.Waveform{}, fmt.Errorf("%w: %w", ErrUnsupportedFile, err)
	}

	return w, nil
}

// decodeFloat reads a 32-bit IEEE float stream straight from the data
// chunk; the upstream decoder only maps integer formats.
func decodeFloat(d *wav.Decoder) (wave.Waveform, error) {
	if d.BitDepth != 32 {
		return wave.Waveform{}, fmt.Errorf("%w: %d-bit float WAV", ErrUnsupportedFile, d.BitDepth)
	}

	if err := d.FwdToPCM(); err != nil {
		return wave.Waveform{}, fmt.Errorf("%w: locating data chunk: %w", ErrUnsupportedFile, err)
	}

	chunk := d.PCMChunk
	if chunk == nil {
		return wave.Waveform{}, fmt.Errorf("%w: missing data chunk", ErrUnsupportedFile)
	}

	samples := make([]float64, 0, chunk.Size/4)

	var raw [4]byte

	for {
		_, err := io.ReadFull(chunk, raw[:])
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}

		if err != nil {
			return wave.Waveform{}, fmt.Errorf("%w: reading float samples: %w", ErrUnsupportedFile, err)
		}

		samples = append(samples, float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[:]))))
	}

	w, err := wave.NewInterleaved(samples, float64(d.SampleRate), int(d.NumChans))
	if err != nil {
		return wave.Waveform{}, fmt.Errorf("%w: %w", ErrUnsupportedFile, err)
	}

	return w, nil
}

// downmixMono averages interleaved channels frame by frame.
func downmixMono(w wave.Waveform) (wave.Waveform, error) {
	if w.Mono() {
		return w, nil
	}

	frames := w.Frames()
	mono := make([]float64, frames)

	for f := range frames {
		sum := 0.0

		base := f * w.Channels
		for c := range w.Channels {
			sum += w.Samples[base+c]
		}

		mono[f] = sum / float64(w.Channels)
	}

	return wave.New(mono, w.SampleRate)
}
