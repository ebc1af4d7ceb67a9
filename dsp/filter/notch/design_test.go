package notch

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/cwbudde/algo-stems/dsp/filter/biquad"
)

const designRate = 44100.0

func designChain(t *testing.T, spec Spec) *biquad.Chain {
	t.Helper()

	sections, err := Design(spec, designRate)
	if err != nil {
		t.Fatalf("Design(%+v) failed: %v", spec, err)
	}

	return biquad.NewChain(sections)
}

func magnitude(chain *biquad.Chain, freqHz float64) float64 {
	return cmplx.Abs(chain.Response(freqHz, designRate))
}

func TestPrototypePoles(t *testing.T) {
	if p := prototypePoles(1); len(p) != 1 || p[0] != -1 {
		t.Fatalf("order 1 prototype = %v, want [-1]", p)
	}

	p3 := prototypePoles(3)
	if p3[1] != -1 {
		t.Errorf("order 3 middle pole = %v, want exactly -1", p3[1])
	}

	for _, order := range []int{2, 3, 4, 5, 8} {
		poles := prototypePoles(order)
		if len(poles) != order {
			t.Fatalf("order %d: %d poles", order, len(poles))
		}

		for i, p := range poles {
			if real(p) >= 0 {
				t.Errorf("order %d pole %d = %v not in left half-plane", order, i, p)
			}

			if math.Abs(cmplx.Abs(p)-1) > 1e-12 {
				t.Errorf("order %d pole %d = %v not on unit circle", order, i, p)
			}
		}
	}
}

func TestDesignSectionCount(t *testing.T) {
	for _, order := range []int{1, 2, 3, 4, 6} {
		sections, err := Design(Spec{LowHz: 500, HighHz: 1500, Order: order}, designRate)
		if err != nil {
			t.Fatalf("order %d: %v", order, err)
		}

		if len(sections) != order {
			t.Errorf("order %d: got %d sections", order, len(sections))
		}

		// Band-stop numerators are symmetric; the gain fold keeps B0 == B2.
		for i, s := range sections {
			if s.B0 != s.B2 {
				t.Errorf("order %d section %d: B0 %v != B2 %v", order, i, s.B0, s.B2)
			}
		}
	}
}

func TestDesignUnityAtDCAndNyquist(t *testing.T) {
	chain := designChain(t, Spec{LowHz: 500, HighHz: 1500, Order: 4})

	if m := magnitude(chain, 0); math.Abs(m-1) > 1e-9 {
		t.Errorf("DC magnitude = %v, want 1", m)
	}

	if m := magnitude(chain, designRate/2); math.Abs(m-1) > 1e-9 {
		t.Errorf("Nyquist magnitude = %v, want 1", m)
	}
}

func TestDesignHalfPowerAtEdges(t *testing.T) {
	// Prewarping places the -3 dB points exactly on the requested edges.
	for _, spec := range []Spec{
		{LowHz: 500, HighHz: 1500, Order: 4},
		{LowHz: 990, HighHz: 1010, Order: 2},
		{LowHz: 10, HighHz: 4000, Order: 4},
	} {
		chain := designChain(t, spec)

		for _, edge := range []float64{spec.LowHz, spec.HighHz} {
			m2 := magnitude(chain, edge)
			m2 *= m2
			if math.Abs(m2-0.5) > 1e-9 {
				t.Errorf("%+v: |H(%g)|^2 = %v, want 0.5", spec, edge, m2)
			}
		}
	}
}

func TestDesignRejectsInsideBand(t *testing.T) {
	cases := []struct {
		name   string
		spec   Spec
		freqHz float64
		maxDB  float64
	}{
		{"wideBandCenter", Spec{LowHz: 10, HighHz: 4000, Order: 4}, 200, -60},
		{"wideBandMid", Spec{LowHz: 10, HighHz: 4000, Order: 4}, 1000, -40},
		{"narrowNotchCenter", Spec{LowHz: 990, HighHz: 1010, Order: 2}, 1000, -40},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chain := designChain(t, tc.spec)

			db := chain.MagnitudeDB(tc.freqHz, designRate)
			if db > tc.maxDB {
				t.Errorf("%g Hz: %v dB, want <= %v dB", tc.freqHz, db, tc.maxDB)
			}
		})
	}
}

func TestDesignPolesStable(t *testing.T) {
	for _, spec := range []Spec{
		{LowHz: 500, HighHz: 1500, Order: 4},
		{LowHz: 10, HighHz: 4000, Order: 4},
		{LowHz: 10, HighHz: 4000, Order: 3},
		{LowHz: 990, HighHz: 1010, Order: 2},
		{LowHz: 20, HighHz: 20000, Order: 5},
	} {
		chain := designChain(t, spec)

		for i, pair := range chain.PoleZeroPairs() {
			for _, p := range pair.Poles {
				if cmplx.Abs(p) >= 1 {
					t.Errorf("%+v section %d: pole %v outside unit circle", spec, i, p)
				}
			}
		}
	}
}

// Odd orders with a wide band push the transformed middle pole off the
// conjugate grid into two real poles; the design must still assemble.
func TestDesignOddOrderWideBand(t *testing.T) {
	spec := Spec{LowHz: 10, HighHz: 4000, Order: 3}

	sections, err := Design(spec, designRate)
	if err != nil {
		t.Fatalf("Design failed: %v", err)
	}

	if len(sections) != 3 {
		t.Fatalf("got %d sections, want 3", len(sections))
	}

	chain := biquad.NewChain(sections)
	if m := magnitude(chain, 0); math.Abs(m-1) > 1e-9 {
		t.Errorf("DC magnitude = %v, want 1", m)
	}

	if db := chain.MagnitudeDB(200, designRate); db > -40 {
		t.Errorf("center attenuation %v dB, want <= -40 dB", db)
	}
}

func TestDesignDeterministic(t *testing.T) {
	spec := Spec{LowHz: 300, HighHz: 3000, Order: 4}

	first, err := Design(spec, designRate)
	if err != nil {
		t.Fatalf("Design failed: %v", err)
	}

	second, err := Design(spec, designRate)
	if err != nil {
		t.Fatalf("Design failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("section counts differ: %d vs %d", len(first), len(second))
	}

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("section %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestDesignInvalidSpec(t *testing.T) {
	cases := []struct {
		name string
		spec Spec
	}{
		{"zeroLow", Spec{LowHz: 0, HighHz: 1000, Order: 4}},
		{"negativeLow", Spec{LowHz: -5, HighHz: 1000, Order: 4}},
		{"lowEqualsHigh", Spec{LowHz: 1000, HighHz: 1000, Order: 4}},
		{"inverted", Spec{LowHz: 2000, HighHz: 1000, Order: 4}},
		{"highAtNyquist", Spec{LowHz: 100, HighHz: designRate / 2, Order: 4}},
		{"highAboveNyquist", Spec{LowHz: 100, HighHz: 30000, Order: 4}},
		{"zeroOrder", Spec{LowHz: 100, HighHz: 1000, Order: 0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Design(tc.spec, designRate)
			if !errors.Is(err, ErrInvalidFilterRange) {
				t.Fatalf("Design(%+v) error = %v, want %v", tc.spec, err, ErrInvalidFilterRange)
			}
		})
	}
}
