// Package lagrange reconstructs the unique degree-(n-1) polynomial over a
// prime field that passes through a set of (index, value) points, choosing
// the field's prime modulus from the values themselves.
package lagrange

import (
	"errors"
	"fmt"

	"github.com/ir-polyfold/interpolate/numtheory"
	"github.com/ir-polyfold/interpolate/polynomial"
)

// Point is one (index, value) pair to interpolate through. X is an array
// index; Y is a table element widened to int64.
type Point struct {
	X int64
	Y int64
}

// ErrEmptyPoints is returned by Interpolate when given no points.
var ErrEmptyPoints = errors.New("lagrange: no points to interpolate")

// ErrDuplicateX is returned by Interpolate when two points share an
// x-coordinate; this should be unreachable, since eligible
// tables always yield points with strictly increasing indices.
var ErrDuplicateX = errors.New("lagrange: duplicate x-coordinate")

// rounds is the number of Miller-Rabin rounds used to search for the
// modulus, matching the standard 20-round configuration.
const rounds = 20

// modulusHeadroom is added to the largest table value before searching for
// the next prime, guaranteeing every y is already its own canonical
// representative with room for perturbation.
const modulusHeadroom = 100

// Interpolate returns (P, m) such that P, evaluated modulo the returned
// prime m, equals y at every point's x. Points must have pairwise distinct
// x-coordinates.
func Interpolate(points []Point) (*polynomial.Polynomial, int64, error) {
	if len(points) == 0 {
		return nil, 0, ErrEmptyPoints
	}

	if err := checkDistinctX(points); err != nil {
		return nil, 0, err
	}

	modulus := chooseModulus(points)

	result := polynomial.Zero(modulus)
	for j := range points {
		basis, err := lagrangeBasis(points, j, modulus)
		if err != nil {
			return nil, 0, err
		}

		term := basis.Mul(polynomial.Constant(points[j].Y, modulus))
		result = result.Add(term)
	}

	return result, modulus, nil
}

func checkDistinctX(points []Point) error {
	seen := make(map[int64]struct{}, len(points))
	for _, p := range points {
		if _, ok := seen[p.X]; ok {
			return fmt.Errorf("%w: x=%d", ErrDuplicateX, p.X)
		}
		seen[p.X] = struct{}{}
	}

	return nil
}

// chooseModulus picks the smallest prime greater than or equal to
// max(y) + modulusHeadroom.
func chooseModulus(points []Point) int64 {
	maxY := points[0].Y
	for _, p := range points[1:] {
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	m := maxY + modulusHeadroom
	for !numtheory.IsPrime(m, rounds) {
		m++
	}

	return m
}

// lagrangeBasis builds the j-th Lagrange basis polynomial
// L_j(X) = prod_{i != j} (X - x_i) / (x_j - x_i), following the
// construction: accumulate the product of (X - x_i) factors and the scalar
// divisor in lockstep, then scale by the divisor's inverse once at the end.
func lagrangeBasis(points []Point, j int, modulus int64) (*polynomial.Polynomial, error) {
	basis := polynomial.New([]int64{1}, modulus)
	divisor := int64(1)

	xj := points[j].X
	for i, p := range points {
		if i == j {
			continue
		}

		factor := polynomial.New([]int64{numtheory.Mod(modulus-p.X, modulus), 1}, modulus)
		basis = basis.Mul(factor)

		divisor = numtheory.MulMod(divisor, numtheory.Mod(xj-p.X, modulus), modulus)
	}

	divInv, err := numtheory.Inverse(divisor, modulus)
	if err != nil {
		// checkDistinctX rules out equal x-coordinates, so a zero divisor
		// here means two x-coordinates are congruent modulo the prime. The
		// modulus is chosen from the y-values only, so this happens when
		// an x-coordinate is at least the modulus (for example more table
		// entries than the modulus).
		return nil, fmt.Errorf("lagrange: computing basis %d: %w", j, err)
	}

	return basis.Mul(polynomial.Constant(divInv, modulus)), nil
}
