// Package constraints defines the feasible-region abstraction applied by the
// concrete algorithms during step computation.
package constraints

import "fmt"

// Constraints restricts the points an algorithm may propose. Project maps an
// arbitrary point onto the feasible region in place; Contains reports whether
// a point is already feasible.
type Constraints interface {
	Project(x []float64)
	Contains(x []float64) bool
}

// NoConstraints is the identity constraint set: every point is feasible.
type NoConstraints struct{}

// Project is a no-op.
func (NoConstraints) Project(x []float64) {}

// Contains always returns true.
func (NoConstraints) Contains(x []float64) bool { return true }

// Bounds restricts each coordinate to a closed interval.
type Bounds struct {
	Lower []float64
	Upper []float64
}

// NewBounds creates box constraints from lower and upper coordinate bounds.
func NewBounds(lower, upper []float64) (*Bounds, error) {
	if len(lower) != len(upper) {
		return nil, fmt.Errorf("bounds dimension mismatch: %d lower, %d upper", len(lower), len(upper))
	}
	for i := range lower {
		if lower[i] > upper[i] {
			return nil, fmt.Errorf("empty interval at coordinate %d: [%v, %v]", i, lower[i], upper[i])
		}
	}
	return &Bounds{Lower: lower, Upper: upper}, nil
}

// Project clamps each coordinate of x into its interval.
func (b *Bounds) Project(x []float64) {
	for i := range x {
		if x[i] < b.Lower[i] {
			x[i] = b.Lower[i]
		} else if x[i] > b.Upper[i] {
			x[i] = b.Upper[i]
		}
	}
}

// Contains reports whether every coordinate of x lies within its interval.
func (b *Bounds) Contains(x []float64) bool {
	for i := range x {
		if x[i] < b.Lower[i] || x[i] > b.Upper[i] {
			return false
		}
	}
	return true
}
