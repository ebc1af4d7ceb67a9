package polyroot

import (
	"math"
	"testing"
)

func almostEqual(valA, valB, tol float64) bool {
	if valA == valB {
		return true
	}

	diff := math.Abs(valA - valB)
	if tol > 0 && tol < 1 {
		mag := math.Max(math.Abs(valA), math.Abs(valB))
		if mag > 1 {
			return diff/mag < tol
		}
	}

	return diff < tol
}

func TestIsConjugate(t *testing.T) {
	if !IsConjugate(complex(0.5, 0.25), complex(0.5, -0.25), ConjugateTol) {
		t.Error("exact conjugates not recognized")
	}

	if !IsConjugate(complex(0.5, 0.25), complex(0.5, -0.25+1e-12), ConjugateTol) {
		t.Error("near conjugates not recognized")
	}

	if IsConjugate(complex(0.5, 0.25), complex(0.5, 0.25), ConjugateTol) {
		t.Error("equal complex values accepted as conjugates")
	}
}

func TestIsReal(t *testing.T) {
	if !IsReal(complex(2, 1e-12), ConjugateTol) {
		t.Error("tiny imaginary part not treated as real")
	}

	if IsReal(complex(0.1, 0.1), ConjugateTol) {
		t.Error("genuinely complex value treated as real")
	}
}

func TestPairRoots_Conjugates(t *testing.T) {
	roots := []complex128{
		complex(0.7, 0.2),
		complex(0.3, -0.4),
		complex(0.7, -0.2),
		complex(0.3, 0.4),
	}

	pairs, err := PairRoots(roots)
	if err != nil {
		t.Fatal(err)
	}

	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}

	for i, pair := range pairs {
		if !IsConjugate(pair[0], pair[1], ConjugateTol) {
			t.Errorf("pair %d not conjugate: %v", i, pair)
		}
	}
}

func TestPairRoots_Reals(t *testing.T) {
	roots := []complex128{
		complex(0.9, 0),
		complex(-0.3, 0),
		complex(0.1, 0),
		complex(0.5, 0),
	}

	pairs, err := PairRoots(roots)
	if err != nil {
		t.Fatal(err)
	}

	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}

	// Innermost magnitudes pair first.
	if !almostEqual(real(pairs[0][0]), 0.1, 1e-12) || !almostEqual(real(pairs[0][1]), -0.3, 1e-12) {
		t.Errorf("first real pair = %v, want (0.1, -0.3)", pairs[0])
	}

	if !almostEqual(real(pairs[1][0]), 0.5, 1e-12) || !almostEqual(real(pairs[1][1]), 0.9, 1e-12) {
		t.Errorf("second real pair = %v, want (0.5, 0.9)", pairs[1])
	}
}

func TestPairRoots_Mixed(t *testing.T) {
	roots := []complex128{
		complex(0.6, 0.3),
		complex(0.2, 0),
		complex(0.6, -0.3),
		complex(-0.8, 0),
	}

	pairs, err := PairRoots(roots)
	if err != nil {
		t.Fatal(err)
	}

	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
}

func TestPairRoots_OddCount(t *testing.T) {
	_, err := PairRoots([]complex128{complex(0.5, 0.5)})
	if err == nil {
		t.Fatal("odd root count accepted")
	}
}

func TestPairRoots_UnmatchedComplex(t *testing.T) {
	roots := []complex128{
		complex(0.5, 0.5),
		complex(0.4, 0.4),
	}

	_, err := PairRoots(roots)
	if err == nil {
		t.Fatal("non-conjugate complex roots accepted")
	}
}

func TestQuadFromRoots_Conjugate(t *testing.T) {
	// (z - (0.5+0.5i))(z - (0.5-0.5i)) = z^2 - z + 0.5
	b0, b1, b2, err := QuadFromRoots([2]complex128{complex(0.5, 0.5), complex(0.5, -0.5)})
	if err != nil {
		t.Fatal(err)
	}

	if !almostEqual(b0, 1.0, 1e-12) || !almostEqual(b1, -1.0, 1e-12) || !almostEqual(b2, 0.5, 1e-12) {
		t.Errorf("got (%v, %v, %v), want (1, -1, 0.5)", b0, b1, b2)
	}
}

func TestQuadFromRoots_Real(t *testing.T) {
	// (z - 2)(z + 3) = z^2 + z - 6
	b0, b1, b2, err := QuadFromRoots([2]complex128{complex(2, 0), complex(-3, 0)})
	if err != nil {
		t.Fatal(err)
	}

	if !almostEqual(b0, 1.0, 1e-12) || !almostEqual(b1, 1.0, 1e-12) || !almostEqual(b2, -6.0, 1e-12) {
		t.Errorf("got (%v, %v, %v), want (1, 1, -6)", b0, b1, b2)
	}
}

func TestQuadFromRoots_Degenerate(t *testing.T) {
	_, _, _, err := QuadFromRoots([2]complex128{complex(0.5, 0.5), complex(0.9, 0.1)})
	if err == nil {
		t.Fatal("mismatched pair accepted")
	}
}
