// Package audioio reads and writes the WAV files that signals enter and
// leave the pipeline through.
//
// Loading accepts integer PCM (normalized to [-1, 1)) and 32-bit IEEE
// float sources; saving always produces 32-bit float WAV so exported stems
// keep their full working precision.
package audioio

import (
	"errors"
	"strings"
)

// ErrUnsupportedFile reports input that is not a decodable WAV file.
var ErrUnsupportedFile = errors.New("audioio: unsupported audio file")

// WAV format tags.
const (
	formatPCM       = 1
	formatIEEEFloat = 3
)

// StemFileName converts a stem label into a safe lowercase file name with
// a .wav extension. Runs of characters outside [a-z0-9] collapse into a
// single dash.
func StemFileName(label string) string {
	var b strings.Builder

	pendingDash := false

	for _, r := range strings.ToLower(label) {
		isSafe := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isSafe {
			pendingDash = b.Len() > 0
			continue
		}

		if pendingDash {
			b.WriteByte('-')
			pendingDash = false
		}

		b.WriteRune(r)
	}

	name := b.String()
	if name == "" {
		name = "stem"
	}

	return name + ".wav"
}
