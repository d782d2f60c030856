package solver_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	oerrors "github.com/chandu8542/otkpp/internal/errors"
	"github.com/chandu8542/otkpp/internal/solver"
	"github.com/chandu8542/otkpp/internal/solver/neldermead"
	"github.com/chandu8542/otkpp/internal/solver/steepestdescent"
	"github.com/chandu8542/otkpp/internal/solver/stopping"
	"github.com/chandu8542/otkpp/internal/solver/testproblems"
)

func TestSolveConvexQuadratic(t *testing.T) {
	s := solver.New(steepestdescent.New())

	res, err := s.Solve(testproblems.Sphere(2), []float64{3, -4},
		stopping.GradNormTest{Eps: 1e-6},
		solver.Setup{"step_size": 0.1}, nil, false)
	require.NoError(t, err)

	assert.Equal(t, solver.Success, res.Status)
	assert.InDelta(t, 0.0, res.FMin, 1e-10)

	gnorm := floats.Norm(testproblems.Sphere(2).Gradient(res.XMin), 2)
	assert.Less(t, gnorm, 1e-6)
}

func TestNumIterEqualsHistoryLength(t *testing.T) {
	s := solver.New(steepestdescent.New())

	res, err := s.Solve(testproblems.Sphere(3), []float64{1, 2, 3},
		stopping.GradNormTest{Eps: 1e-6},
		solver.Setup{"step_size": 0.1}, nil, false)
	require.NoError(t, err)

	assert.Equal(t, int(res.NumIter), len(res.States))
	assert.Greater(t, res.NumIter, uint(1))
}

func TestHistoryIsChronological(t *testing.T) {
	s := solver.New(steepestdescent.New())

	res, err := s.Solve(testproblems.Sphere(2), []float64{5, 5},
		stopping.GradNormTest{Eps: 1e-6},
		solver.Setup{"step_size": 0.1}, nil, false)
	require.NoError(t, err)

	for i := 1; i < len(res.States); i++ {
		assert.LessOrEqual(t, res.States[i].FVal(), res.States[i-1].FVal(),
			"objective must not increase between iterations %d and %d", i-1, i)
	}
	last := res.States[len(res.States)-1]
	assert.Equal(t, res.FMin, last.FVal())
}

func TestCountersMonotonicAndResetOnSetup(t *testing.T) {
	obj := testproblems.Sphere(2)
	s := solver.New(steepestdescent.New())

	require.NoError(t, s.Setup(obj, []float64{1, 1}, solver.Setup{"step_size": 0.1}, nil))

	prevFunc, prevGrad := s.NumFuncEval(), s.NumGradEval()
	for i := 0; i < 5; i++ {
		_, err := s.Iterate()
		require.NoError(t, err)

		assert.GreaterOrEqual(t, s.NumFuncEval(), prevFunc)
		assert.GreaterOrEqual(t, s.NumGradEval(), prevGrad)
		prevFunc, prevGrad = s.NumFuncEval(), s.NumGradEval()
	}
	assert.Equal(t, uint(5), s.NumIter())

	// Setup resets everything.
	require.NoError(t, s.Setup(obj, []float64{1, 1}, solver.Setup{"step_size": 0.1}, nil))
	assert.Equal(t, uint(0), s.NumIter())
	assert.Equal(t, uint(1), s.NumFuncEval(), "only the initial evaluation at x0 is counted")
	assert.Equal(t, uint(0), s.NumGradEval())
}

func TestDimensionMismatchFailsFast(t *testing.T) {
	obj := testproblems.Sphere(3)
	s := solver.New(steepestdescent.New())

	err := s.Setup(obj, []float64{1, 2}, nil, nil)
	require.Error(t, err)
	assert.True(t, oerrors.IsConfig(err))
	assert.Equal(t, uint(0), obj.NumEval(), "no evaluation may happen before validation")

	_, err = s.Solve(obj, []float64{1, 2}, nil, nil, nil, false)
	require.Error(t, err)
	assert.True(t, oerrors.IsConfig(err))
}

func TestUnrecognizedOptionRejected(t *testing.T) {
	s := solver.New(steepestdescent.New())

	err := s.Setup(testproblems.Sphere(1), []float64{1},
		solver.Setup{"trust_radius": 0.5}, nil)
	require.Error(t, err)
	assert.True(t, oerrors.IsConfig(err))
}

func TestIterateBeforeSetup(t *testing.T) {
	s := solver.New(steepestdescent.New())

	_, err := s.Iterate()
	require.Error(t, err)
	assert.ErrorIs(t, err, solver.ErrNotSetUp)
	assert.True(t, oerrors.IsPrecondition(err))
}

func TestAccessorBeforeSetupPanics(t *testing.T) {
	s := solver.New(steepestdescent.New())

	assert.Panics(t, func() { s.FVal() })
	assert.Panics(t, func() { s.X() })
	assert.Panics(t, func() { s.NumIter() })
}

func TestIterateAfterTerminalStatus(t *testing.T) {
	s := solver.New(steepestdescent.New())
	require.NoError(t, s.Setup(testproblems.Paraboloid1D(), []float64{1e-9},
		solver.Setup{"step_size": 0.1, "grad_tol": 1e-6}, nil))

	status, err := s.Iterate()
	require.NoError(t, err)
	require.Equal(t, solver.Success, status)

	_, err = s.Iterate()
	require.Error(t, err)
	assert.ErrorIs(t, err, solver.ErrTerminated)
}

func TestGradientDescentScenario1D(t *testing.T) {
	// f(x) = x^2 from x0 = 10 with step 0.1 contracts by 0.8 per step.
	s := solver.New(steepestdescent.New())
	require.NoError(t, s.Setup(testproblems.Paraboloid1D(), []float64{10},
		solver.Setup{"step_size": 0.1, "grad_tol": 1e-6}, nil))

	prevF := s.FVal()
	var status solver.IterationStatus
	for i := 0; i < 200; i++ {
		var err error
		status, err = s.Iterate()
		require.NoError(t, err)
		if status == solver.Success {
			break
		}
		require.Equal(t, solver.Continue, status)
		assert.Less(t, s.FVal(), prevF, "f must strictly decrease")
		prevF = s.FVal()
	}

	require.Equal(t, solver.Success, status)
	assert.InDelta(t, 0.0, s.X()[0], 1e-3)
}

func TestUnboundedObjectiveGoesOutOfControl(t *testing.T) {
	// f(x) = -x^2 is unbounded below; descent must diverge, not loop or crash.
	s := solver.New(steepestdescent.New())
	require.NoError(t, s.Setup(testproblems.InvertedParabola1D(), []float64{1},
		solver.Setup{"step_size": 0.1}, nil))

	var status solver.IterationStatus
	for i := 0; i < 10000; i++ {
		var err error
		status, err = s.Iterate()
		require.NoError(t, err)
		if status.Terminal() {
			break
		}
	}

	assert.Equal(t, solver.OutOfControl, status)
	assert.True(t, status.Failed())
}

func TestOutOfControlSolvePreservesHistory(t *testing.T) {
	s := solver.New(steepestdescent.New())

	res, err := s.Solve(testproblems.InvertedParabola1D(), []float64{1},
		nil, solver.Setup{"step_size": 0.1}, nil, false)
	require.NoError(t, err, "divergence is a reported status, not an error")

	assert.Equal(t, solver.OutOfControl, res.Status)
	assert.Equal(t, int(res.NumIter), len(res.States))
	assert.NotEmpty(t, res.States)
}

func TestBuiltInCriterionIgnoresExternal(t *testing.T) {
	// Nelder-Mead reports a built-in stopping criterion; an always-stop
	// external criterion must not cut the run short.
	s := solver.New(neldermead.New())

	alwaysStop := stopping.Func(func(*solver.Solver) bool { return true })
	res, err := s.Solve(testproblems.Sphere(2), []float64{2, 2},
		alwaysStop, nil, nil, false)
	require.NoError(t, err)

	assert.Equal(t, solver.Success, res.Status)
	assert.Greater(t, res.NumIter, uint(1),
		"the always-stop external criterion must be ignored")
}

func TestExternalCriterionStopsRun(t *testing.T) {
	s := solver.New(steepestdescent.New())

	res, err := s.Solve(testproblems.Sphere(2), []float64{2, 2},
		stopping.MaxNumIterTest{N: 3},
		solver.Setup{"step_size": 0.1}, nil, false)
	require.NoError(t, err)

	assert.Equal(t, solver.Success, res.Status, "an external stop is reported as Success")
	assert.Equal(t, uint(3), res.NumIter)
}

func TestSolveTimeTest(t *testing.T) {
	s := solver.New(steepestdescent.New())

	res, err := s.Solve(testproblems.Sphere(2), []float64{1, 1},
		stopping.MaxNumIterTest{N: 5},
		solver.Setup{"step_size": 0.1}, nil, true)
	require.NoError(t, err)

	assert.True(t, res.Timed)
	assert.GreaterOrEqual(t, res.Elapsed, time.Duration(0))

	res, err = s.Solve(testproblems.Sphere(2), []float64{1, 1},
		stopping.MaxNumIterTest{N: 5},
		solver.Setup{"step_size": 0.1}, nil, false)
	require.NoError(t, err)
	assert.False(t, res.Timed)
}

func TestHistorySnapshotsAreIndependent(t *testing.T) {
	s := solver.New(steepestdescent.New())

	res, err := s.Solve(testproblems.Sphere(2), []float64{1, 1},
		stopping.MaxNumIterTest{N: 4},
		solver.Setup{"step_size": 0.1}, nil, false)
	require.NoError(t, err)

	first := res.States[0].(*solver.PointState)
	saved := append([]float64(nil), first.Point...)

	// Mutating one snapshot must not leak into any other.
	first.Point[0] = math.Inf(1)
	second := res.States[1]
	assert.False(t, math.IsInf(second.X()[0], 1))
	assert.NotEqual(t, saved[0], first.Point[0])
}

func TestAccessorsDoNotAdvanceIteration(t *testing.T) {
	s := solver.New(steepestdescent.New())
	require.NoError(t, s.Setup(testproblems.Sphere(2), []float64{1, 1},
		solver.Setup{"step_size": 0.1}, nil))

	_, err := s.Iterate()
	require.NoError(t, err)

	before := s.NumIter()
	_ = s.FVal()
	_ = s.X()
	_ = s.XArray()
	_ = s.Gradient()
	_ = s.Hessian()
	assert.Equal(t, before, s.NumIter())

	// Gradient and Hessian queries are themselves counted evaluations.
	assert.Greater(t, s.NumGradEval(), uint(0))
	assert.Greater(t, s.NumHessEval(), uint(0))
}
