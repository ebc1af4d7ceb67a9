// Package polyroot provides root pairing and second-order section
// factorisation utilities shared by filter design packages.
package polyroot

import (
	"errors"
	"math"
	"math/cmplx"
)

// ErrDegenerateRoots is returned when a root set cannot be grouped into
// real-coefficient second-order sections.
var ErrDegenerateRoots = errors.New("polyroot: degenerate root set")

// ConjugateTol is the relative tolerance for conjugate pair matching.
const ConjugateTol = 1e-7

// IsConjugate checks whether a and b are complex conjugates within tolerance.
func IsConjugate(a, b complex128, tol float64) bool {
	if math.Abs(real(a)-real(b)) > tol*math.Max(1, math.Abs(real(a))) {
		return false
	}

	if math.Abs(imag(a)+imag(b)) > tol*math.Max(1, math.Abs(imag(a))) {
		return false
	}

	return true
}

// IsReal reports whether z has a negligible imaginary part relative to its
// magnitude.
func IsReal(z complex128, tol float64) bool {
	return math.Abs(imag(z)) <= tol*math.Max(1, math.Abs(real(z)))
}

// PairRoots groups a slice of roots into pairs that expand to quadratics
// with real coefficients. Complex roots are matched with their closest
// conjugate; real roots (which bandwidth transforms of odd-order prototypes
// produce) are matched with each other, innermost first. The number of
// roots must be even.
func PairRoots(roots []complex128) ([][2]complex128, error) {
	if len(roots)%2 != 0 {
		return nil, ErrDegenerateRoots
	}

	var reals []complex128

	var cplx []complex128

	for _, r := range roots {
		if IsReal(r, ConjugateTol) {
			reals = append(reals, complex(real(r), 0))
		} else {
			cplx = append(cplx, r)
		}
	}

	if len(reals)%2 != 0 {
		return nil, ErrDegenerateRoots
	}

	sortByMagnitude(reals)

	pairs := make([][2]complex128, 0, len(roots)/2)
	for i := 0; i+1 < len(reals); i += 2 {
		pairs = append(pairs, [2]complex128{reals[i], reals[i+1]})
	}

	conjPairs, err := pairConjugates(cplx)
	if err != nil {
		return nil, err
	}

	return append(pairs, conjPairs...), nil
}

// pairConjugates matches each unused complex root with the closest
// candidate for its conjugate and validates the pairing within ConjugateTol.
func pairConjugates(roots []complex128) ([][2]complex128, error) {
	used := make([]bool, len(roots))
	pairs := make([][2]complex128, 0, len(roots)/2)

	for i := range roots {
		if used[i] {
			continue
		}

		root := roots[i]
		conj := complex(real(root), -imag(root))
		best := -1
		bestDist := math.MaxFloat64

		for j := range roots {
			if i == j || used[j] {
				continue
			}

			d := cmplx.Abs(roots[j] - conj)
			if d < bestDist {
				bestDist = d
				best = j
			}
		}

		if best == -1 || !IsConjugate(root, roots[best], ConjugateTol) {
			return nil, ErrDegenerateRoots
		}

		used[i] = true
		used[best] = true
		pairs = append(pairs, [2]complex128{root, roots[best]})
	}

	return pairs, nil
}

// QuadFromRoots expands a root pair into monic second-order polynomial
// coefficients (1, -(r1+r2), r1*r2). The pair must be either two real
// roots or a conjugate pair, so the result is real.
func QuadFromRoots(pair [2]complex128) (float64, float64, float64, error) {
	root1 := pair[0]
	root2 := pair[1]

	if IsReal(root1, ConjugateTol) && IsReal(root2, ConjugateTol) {
		r1 := real(root1)
		r2 := real(root2)

		return 1.0, -(r1 + r2), r1 * r2, nil
	}

	if !IsConjugate(root1, root2, ConjugateTol) {
		return 0, 0, 0, ErrDegenerateRoots
	}

	a := real(root1)
	b := math.Abs(imag(root1))

	return 1.0, -2 * a, a*a + b*b, nil
}

func sortByMagnitude(roots []complex128) {
	for i := 1; i < len(roots); i++ {
		for j := i; j > 0 && cmplx.Abs(roots[j]) < cmplx.Abs(roots[j-1]); j-- {
			roots[j], roots[j-1] = roots[j-1], roots[j]
		}
	}
}
