package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// State is an immutable snapshot of one iteration: the objective value at the
// representative point, the representative point itself, and the full set of
// points the algorithm tracks. The first column of XArray always equals X.
//
// A State is produced once per iteration by the concrete algorithm; the
// Solver owns the live state and appends independent clones to the history,
// so retained snapshots never alias further iteration.
type State interface {
	// FVal returns the objective value at the representative point.
	FVal() float64

	// X returns the representative current point.
	X() []float64

	// XArray returns all points tracked by the algorithm as an n×k matrix
	// with one point per column. Single-point algorithms return an n×1
	// matrix identical to X.
	XArray() *mat.Dense

	// Clone returns a deep copy sharing no memory with the receiver.
	Clone() State
}

// PointState is the State of a single-point algorithm.
type PointState struct {
	F     float64
	Point []float64
}

// NewPointState creates a PointState holding a copy of x.
func NewPointState(f float64, x []float64) *PointState {
	return &PointState{F: f, Point: append([]float64(nil), x...)}
}

func (s *PointState) FVal() float64 { return s.F }

func (s *PointState) X() []float64 { return s.Point }

func (s *PointState) XArray() *mat.Dense {
	m := mat.NewDense(len(s.Point), 1, nil)
	m.SetCol(0, s.Point)
	return m
}

func (s *PointState) Clone() State {
	return NewPointState(s.F, s.Point)
}

// SimplexState is the State of an algorithm that maintains several candidate
// points simultaneously. Points holds one point per column, best first, and
// FVals holds the objective value of each column.
type SimplexState struct {
	Points *mat.Dense
	FVals  []float64
}

// NewSimplexState creates a SimplexState taking ownership of points and
// fvals. Column 0 must hold the best point.
func NewSimplexState(points *mat.Dense, fvals []float64) *SimplexState {
	return &SimplexState{Points: points, FVals: fvals}
}

func (s *SimplexState) FVal() float64 { return s.FVals[0] }

func (s *SimplexState) X() []float64 {
	n, _ := s.Points.Dims()
	x := make([]float64, n)
	mat.Col(x, 0, s.Points)
	return x
}

func (s *SimplexState) XArray() *mat.Dense { return s.Points }

func (s *SimplexState) Clone() State {
	return &SimplexState{
		Points: mat.DenseCopyOf(s.Points),
		FVals:  append([]float64(nil), s.FVals...),
	}
}

// FSpread returns the difference between the worst and best objective values
// in the simplex.
func (s *SimplexState) FSpread() float64 {
	best, worst := s.FVals[0], s.FVals[0]
	for _, f := range s.FVals[1:] {
		if f < best {
			best = f
		}
		if f > worst {
			worst = f
		}
	}
	return worst - best
}

// DefaultDivergenceBound is the iterate-norm and function-magnitude bound
// beyond which algorithms classify a run as OutOfControl, unless overridden
// through their setup options.
const DefaultDivergenceBound = 1e10

// Diverged reports whether the pair (f, x) is non-finite or exceeds the
// divergence bound.
func Diverged(f float64, x []float64, bound float64) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > bound {
		return true
	}
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > bound {
			return true
		}
	}
	return false
}
