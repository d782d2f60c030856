// Package neldermead implements the derivative-free Nelder-Mead simplex
// method. The algorithm maintains n+1 candidate points, so its states carry
// the full point matrix with the best point in the first column.
//
// Recognized setup options (unrecognized keys are ignored):
//
//	simplex_size      edge length of the auto-constructed initial simplex (default 0.2)
//	f_tol             simplex function-value spread below which the run converged (default 1e-8)
//	divergence_bound  iterate/function magnitude classified as divergence (default 1e10)
//
// Nelder-Mead carries its own convergence test on the simplex spread, so it
// reports a built-in stopping criterion and external criteria are not
// consulted for it.
package neldermead

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	oerrors "github.com/chandu8542/otkpp/internal/errors"
	"github.com/chandu8542/otkpp/internal/solver"
	"github.com/chandu8542/otkpp/internal/solver/constraints"
	"github.com/chandu8542/otkpp/internal/solver/objective"
)

// Standard simplex transformation coefficients.
const (
	reflection  = 1.0
	expansion   = 2.0
	contraction = 0.5
	shrink      = 0.5
)

const (
	defaultSimplexSize = 0.2
	defaultFTol        = 1e-8

	// Simplex diameter below which no transformation can move the points.
	collapseTol = 1e-13
)

// NelderMead is a multi-point simplex algorithm.
type NelderMead struct {
	obj  *objective.Function
	cons constraints.Constraints
	pool *solver.WorkPool

	fTol  float64
	bound float64
}

// New creates a NelderMead algorithm.
func New() *NelderMead {
	return &NelderMead{pool: solver.NewWorkPool()}
}

// Name implements solver.Algorithm.
func (nm *NelderMead) Name() string {
	return "nelder_mead"
}

// HasBuiltInStoppingCriterion implements solver.Algorithm.
func (nm *NelderMead) HasBuiltInStoppingCriterion() bool {
	return true
}

// Init implements solver.Algorithm. The initial simplex has x0 as its first
// vertex and x0 offset by simplex_size along each coordinate axis as the
// others.
func (nm *NelderMead) Init(obj *objective.Function, x0 []float64, setup solver.Setup, cons constraints.Constraints) (solver.State, error) {
	size := setup.Get("simplex_size", defaultSimplexSize)
	nm.fTol = setup.Get("f_tol", defaultFTol)
	nm.bound = setup.Get("divergence_bound", solver.DefaultDivergenceBound)

	if size <= 0 {
		return nil, oerrors.Errorf("simplex_size must be positive, got %v", size).
			WithKind(oerrors.KindConfig)
	}
	if nm.fTol <= 0 {
		return nil, oerrors.Errorf("f_tol must be positive, got %v", nm.fTol).
			WithKind(oerrors.KindConfig)
	}

	nm.obj = obj
	nm.cons = cons

	n := len(x0)
	vertices := make([][]float64, n+1)
	fvals := make([]float64, n+1)
	for i := range vertices {
		v := append([]float64(nil), x0...)
		if i > 0 {
			v[i-1] += size
		}
		cons.Project(v)
		vertices[i] = v
		fvals[i] = obj.Eval(v)
	}

	return nm.makeState(vertices, fvals), nil
}

// Step implements solver.Algorithm.
func (nm *NelderMead) Step(cur solver.State) (solver.State, solver.IterationStatus) {
	simplex := cur.(*solver.SimplexState)
	n, k := simplex.Points.Dims()

	// Working copy of the (sorted) vertices.
	vertices := make([][]float64, k)
	fvals := append([]float64(nil), simplex.FVals...)
	for j := 0; j < k; j++ {
		v := make([]float64, n)
		mat.Col(v, j, simplex.Points)
		vertices[j] = v
	}

	centroid := nm.pool.GetVec(n)
	trial := nm.pool.GetVec(n)
	defer nm.pool.PutVec(centroid)
	defer nm.pool.PutVec(trial)

	// Centroid of all vertices but the worst.
	for i := range centroid {
		centroid[i] = 0
	}
	for j := 0; j < k-1; j++ {
		floats.Add(centroid, vertices[j])
	}
	floats.Scale(1/float64(k-1), centroid)

	worst := vertices[k-1]
	fBest, fSecondWorst, fWorst := fvals[0], fvals[k-2], fvals[k-1]

	// Reflection.
	for i := range trial {
		trial[i] = centroid[i] + reflection*(centroid[i]-worst[i])
	}
	nm.cons.Project(trial)
	fTrial := nm.obj.Eval(trial)

	switch {
	case fTrial < fBest:
		// Expansion.
		expanded := nm.pool.GetVec(n)
		for i := range expanded {
			expanded[i] = centroid[i] + expansion*(trial[i]-centroid[i])
		}
		nm.cons.Project(expanded)
		fExpanded := nm.obj.Eval(expanded)
		if fExpanded < fTrial {
			copy(trial, expanded)
			fTrial = fExpanded
		}
		nm.pool.PutVec(expanded)
		nm.replaceWorst(vertices, fvals, trial, fTrial)

	case fTrial < fSecondWorst:
		nm.replaceWorst(vertices, fvals, trial, fTrial)

	default:
		// Contraction toward the better of the reflected and worst points.
		ref := worst
		fRef := fWorst
		if fTrial < fWorst {
			ref = trial
			fRef = fTrial
		}
		contracted := nm.pool.GetVec(n)
		for i := range contracted {
			contracted[i] = centroid[i] + contraction*(ref[i]-centroid[i])
		}
		nm.cons.Project(contracted)
		fContracted := nm.obj.Eval(contracted)

		if fContracted < fRef {
			nm.replaceWorst(vertices, fvals, contracted, fContracted)
		} else {
			// Shrink everything toward the best vertex.
			best := vertices[0]
			for j := 1; j < k; j++ {
				for i := range vertices[j] {
					vertices[j][i] = best[i] + shrink*(vertices[j][i]-best[i])
				}
				nm.cons.Project(vertices[j])
				fvals[j] = nm.obj.Eval(vertices[j])
			}
		}
		nm.pool.PutVec(contracted)
	}

	next := nm.makeState(vertices, fvals)
	return next, nm.classify(next)
}

// replaceWorst overwrites the worst vertex with a copy of x.
func (nm *NelderMead) replaceWorst(vertices [][]float64, fvals []float64, x []float64, f float64) {
	k := len(vertices)
	copy(vertices[k-1], x)
	fvals[k-1] = f
}

// makeState sorts the vertices by function value and packs them into a
// SimplexState, best first.
func (nm *NelderMead) makeState(vertices [][]float64, fvals []float64) *solver.SimplexState {
	k := len(vertices)
	order := make([]int, k)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return fvals[order[a]] < fvals[order[b]]
	})

	n := len(vertices[0])
	points := mat.NewDense(n, k, nil)
	sorted := make([]float64, k)
	for j, idx := range order {
		points.SetCol(j, vertices[idx])
		sorted[j] = fvals[idx]
	}

	return solver.NewSimplexState(points, sorted)
}

// classify applies the built-in convergence and divergence tests.
func (nm *NelderMead) classify(st *solver.SimplexState) solver.IterationStatus {
	best := st.X()
	if solver.Diverged(st.FVal(), best, nm.bound) {
		return solver.OutOfControl
	}
	if st.FSpread() < nm.fTol {
		return solver.Success
	}
	if nm.diameter(st) < collapseTol {
		return solver.NoProgress
	}
	return solver.Continue
}

// diameter returns the largest distance from the best vertex to any other.
func (nm *NelderMead) diameter(st *solver.SimplexState) float64 {
	n, k := st.Points.Dims()
	best := st.X()
	other := nm.pool.GetVec(n)
	defer nm.pool.PutVec(other)

	max := 0.0
	for j := 1; j < k; j++ {
		mat.Col(other, j, st.Points)
		if d := floats.Distance(best, other, 2); d > max {
			max = d
		}
	}
	return max
}
