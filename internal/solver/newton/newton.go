// Package newton implements Newton's method with a Cholesky solve of the
// Hessian system and a gradient-descent fallback when the Hessian is not
// positive definite.
//
// Recognized setup options (unrecognized keys are rejected):
//
//	grad_tol          gradient-norm convergence tolerance (default 1e-8)
//	damping           fraction of the Newton step taken per iteration (default 1)
//	divergence_bound  iterate/function magnitude classified as divergence (default 1e10)
package newton

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	oerrors "github.com/chandu8542/otkpp/internal/errors"
	"github.com/chandu8542/otkpp/internal/solver"
	"github.com/chandu8542/otkpp/internal/solver/constraints"
	"github.com/chandu8542/otkpp/internal/solver/objective"
)

const (
	defaultGradTol = 1e-8
	defaultDamping = 1.0

	stagnationEps = 1e-15

	// Step length used when falling back to the gradient direction.
	fallbackStep = 1e-2
)

// Newton is a single-point second-order descent algorithm.
type Newton struct {
	obj  *objective.Function
	cons constraints.Constraints

	gradTol float64
	damping float64
	bound   float64
}

// New creates a Newton algorithm.
func New() *Newton {
	return &Newton{}
}

// Name implements solver.Algorithm.
func (n *Newton) Name() string {
	return "newton"
}

// HasBuiltInStoppingCriterion implements solver.Algorithm.
func (n *Newton) HasBuiltInStoppingCriterion() bool {
	return false
}

// Init implements solver.Algorithm.
func (n *Newton) Init(obj *objective.Function, x0 []float64, setup solver.Setup, cons constraints.Constraints) (solver.State, error) {
	if err := setup.Validate("grad_tol", "damping", "divergence_bound"); err != nil {
		return nil, err
	}

	n.gradTol = setup.Get("grad_tol", defaultGradTol)
	n.damping = setup.Get("damping", defaultDamping)
	n.bound = setup.Get("divergence_bound", solver.DefaultDivergenceBound)

	if n.gradTol <= 0 {
		return nil, oerrors.Errorf("grad_tol must be positive, got %v", n.gradTol).
			WithKind(oerrors.KindConfig)
	}
	if n.damping <= 0 || n.damping > 1 {
		return nil, oerrors.Errorf("damping must be in (0, 1], got %v", n.damping).
			WithKind(oerrors.KindConfig)
	}

	n.obj = obj
	n.cons = cons

	x := append([]float64(nil), x0...)
	cons.Project(x)
	f := obj.Eval(x)

	return solver.NewPointState(f, x), nil
}

// Step implements solver.Algorithm.
func (n *Newton) Step(cur solver.State) (solver.State, solver.IterationStatus) {
	x := cur.X()
	f := cur.FVal()

	grad := n.obj.Gradient(x)
	if floats.Norm(grad, 2) < n.gradTol {
		return cur, solver.Success
	}

	dir := n.direction(x, grad)

	next := make([]float64, len(x))
	for i := range x {
		next[i] = x[i] - n.damping*dir[i]
	}
	n.cons.Project(next)
	fNext := n.obj.Eval(next)

	st := solver.NewPointState(fNext, next)

	if solver.Diverged(fNext, next, n.bound) {
		return st, solver.OutOfControl
	}
	if math.Abs(f-fNext) <= stagnationEps*(1+math.Abs(f)) {
		return st, solver.NoProgress
	}

	return st, solver.Continue
}

// direction solves H d = g for the Newton direction, falling back to a
// short gradient step when the Hessian is not positive definite.
func (n *Newton) direction(x, grad []float64) []float64 {
	hess := n.obj.Hessian(x)

	var chol mat.Cholesky
	if chol.Factorize(hess) {
		var d mat.VecDense
		if err := chol.SolveVecTo(&d, mat.NewVecDense(len(grad), grad)); err == nil {
			return d.RawVector().Data
		}
	}

	dir := make([]float64, len(grad))
	for i, g := range grad {
		dir[i] = fallbackStep * g
	}
	return dir
}
