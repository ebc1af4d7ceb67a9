package audioio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/cwbudde/algo-stems/wave"
)

const bytesPerSample = 4 // 32-bit float

// Save writes w to path as a 32-bit IEEE-float WAV file (format 3) at the
// waveform's sample rate, mono or interleaved.
func Save(path string, w wave.Waveform) error {
	if w.SampleRate <= 0 || w.Channels < 1 {
		return fmt.Errorf("audioio: %w: waveform has no valid format", wave.ErrInvalidWaveform)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audioio: create: %w", err)
	}

	if err := writeFloatWAV(f, w); err != nil {
		f.Close()

		return fmt.Errorf("audioio: writing %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("audioio: closing %s: %w", path, err)
	}

	return nil
}

// writeFloatWAV emits a RIFF/WAVE stream with fmt, fact, and data chunks.
// Float formats carry a fact chunk with the per-channel frame count.
func writeFloatWAV(dst io.Writer, w wave.Waveform) error {
	dataSize := len(w.Samples) * bytesPerSample
	blockAlign := w.Channels * bytesPerSample
	byteRate := uint32(w.SampleRate) * uint32(blockAlign)

	header := make([]byte, 0, 60)
	header = append(header, "RIFF"...)
	header = binary.LittleEndian.AppendUint32(header, uint32(48+dataSize))
	header = append(header, "WAVE"...)

	header = append(header, "fmt "...)
	header = binary.LittleEndian.AppendUint32(header, 16)
	header = binary.LittleEndian.AppendUint16(header, formatIEEEFloat)
	header = binary.LittleEndian.AppendUint16(header, uint16(w.Channels))
	header = binary.LittleEndian.AppendUint32(header, uint32(w.SampleRate))
	header = binary.LittleEndian.AppendUint32(header, byteRate)
	header = binary.LittleEndian.AppendUint16(header, uint16(blockAlign))
	header = binary.LittleEndian.AppendUint16(header, 8*bytesPerSample)

	header = append(header, "fact"...)
	header = binary.LittleEndian.AppendUint32(header, 4)
	header = binary.LittleEndian.AppendUint32(header, uint32(w.Frames()))

	header = append(header, "data"...)
	header = binary.LittleEndian.AppendUint32(header, uint32(dataSize))

	if _, err := dst.Write(header); err != nil {
		return err
	}

	payload := make([]byte, 0, dataSize)
	for _, v := range w.Samples {
		payload = binary.LittleEndian.AppendUint32(payload, math.Float32bits(float32(v)))
	}

	_, err := dst.Write(payload)

	return err
}
