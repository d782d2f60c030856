// Package steepestdescent implements gradient descent with a fixed step
// size and optional Armijo backtracking.
//
// Recognized setup options (unrecognized keys are rejected):
//
//	step_size         initial step length along the negative gradient (default 1e-2)
//	grad_tol          gradient-norm convergence tolerance (default 1e-8)
//	armijo            nonzero enables backtracking line search (default 0)
//	divergence_bound  iterate/function magnitude classified as divergence (default 1e10)
//
// Status classification: gradient norm under grad_tol reports Success;
// a non-finite trial point or one beyond divergence_bound reports
// OutOfControl; an absolute function-value change below machine-epsilon
// scale reports NoProgress.
package steepestdescent

import (
	"math"

	"gonum.org/v1/gonum/floats"

	oerrors "github.com/chandu8542/otkpp/internal/errors"
	"github.com/chandu8542/otkpp/internal/solver"
	"github.com/chandu8542/otkpp/internal/solver/constraints"
	"github.com/chandu8542/otkpp/internal/solver/objective"
)

const (
	defaultStepSize = 1e-2
	defaultGradTol  = 1e-8

	// Absolute f-change below stagnationEps*(1+|f|) counts as stagnation.
	stagnationEps = 1e-15

	// Armijo sufficient-decrease coefficient and backtracking limit.
	armijoC1      = 1e-4
	maxBacktracks = 30
)

// SteepestDescent is a single-point descent algorithm following the
// negative gradient.
type SteepestDescent struct {
	obj  *objective.Function
	cons constraints.Constraints

	step    float64
	gradTol float64
	armijo  bool
	bound   float64
}

// New creates a SteepestDescent algorithm.
func New() *SteepestDescent {
	return &SteepestDescent{}
}

// Name implements solver.Algorithm.
func (sd *SteepestDescent) Name() string {
	return "steepest_descent"
}

// HasBuiltInStoppingCriterion implements solver.Algorithm. Steepest descent
// accepts external stopping criteria in addition to its own gradient test.
func (sd *SteepestDescent) HasBuiltInStoppingCriterion() bool {
	return false
}

// Init implements solver.Algorithm.
func (sd *SteepestDescent) Init(obj *objective.Function, x0 []float64, setup solver.Setup, cons constraints.Constraints) (solver.State, error) {
	if err := setup.Validate("step_size", "grad_tol", "armijo", "divergence_bound"); err != nil {
		return nil, err
	}

	sd.step = setup.Get("step_size", defaultStepSize)
	sd.gradTol = setup.Get("grad_tol", defaultGradTol)
	sd.armijo = setup.Get("armijo", 0) != 0
	sd.bound = setup.Get("divergence_bound", solver.DefaultDivergenceBound)

	if sd.step <= 0 {
		return nil, oerrors.Errorf("step_size must be positive, got %v", sd.step).
			WithKind(oerrors.KindConfig)
	}
	if sd.gradTol <= 0 {
		return nil, oerrors.Errorf("grad_tol must be positive, got %v", sd.gradTol).
			WithKind(oerrors.KindConfig)
	}

	sd.obj = obj
	sd.cons = cons

	x := append([]float64(nil), x0...)
	cons.Project(x)
	f := obj.Eval(x)

	return solver.NewPointState(f, x), nil
}

// Step implements solver.Algorithm.
func (sd *SteepestDescent) Step(cur solver.State) (solver.State, solver.IterationStatus) {
	x := cur.X()
	f := cur.FVal()

	grad := sd.obj.Gradient(x)
	if floats.Norm(grad, 2) < sd.gradTol {
		return cur, solver.Success
	}

	next := make([]float64, len(x))
	alpha := sd.step

	var fNext float64
	for i := 0; ; i++ {
		for j := range x {
			next[j] = x[j] - alpha*grad[j]
		}
		sd.cons.Project(next)
		fNext = sd.obj.Eval(next)

		if !sd.armijo {
			break
		}
		if fNext <= f-armijoC1*alpha*floats.Dot(grad, grad) || i >= maxBacktracks {
			break
		}
		alpha /= 2
	}

	st := solver.NewPointState(fNext, next)

	if solver.Diverged(fNext, next, sd.bound) {
		return st, solver.OutOfControl
	}
	if math.Abs(f-fNext) <= stagnationEps*(1+math.Abs(f)) {
		return st, solver.NoProgress
	}

	return st, solver.Continue
}
