package newton_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/chandu8542/otkpp/internal/errors"
	"github.com/chandu8542/otkpp/internal/solver"
	"github.com/chandu8542/otkpp/internal/solver/constraints"
	"github.com/chandu8542/otkpp/internal/solver/newton"
	"github.com/chandu8542/otkpp/internal/solver/objective"
	"github.com/chandu8542/otkpp/internal/solver/stopping"
	"github.com/chandu8542/otkpp/internal/solver/testproblems"
)

func TestName(t *testing.T) {
	n := newton.New()
	assert.Equal(t, "newton", n.Name())
	assert.False(t, n.HasBuiltInStoppingCriterion())
}

func TestRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name  string
		setup solver.Setup
	}{
		{"unrecognized key", solver.Setup{"step_size": 0.1}},
		{"zero damping", solver.Setup{"damping": 0}},
		{"damping above one", solver.Setup{"damping": 1.5}},
		{"non-positive grad_tol", solver.Setup{"grad_tol": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newton.New()
			_, err := n.Init(testproblems.Sphere(1), []float64{1}, tt.setup, constraints.NoConstraints{})
			require.Error(t, err)
			assert.True(t, oerrors.IsConfig(err))
		})
	}
}

func TestQuadraticSolvedInOneStep(t *testing.T) {
	// For a quadratic the full Newton step jumps straight to the minimum.
	n := newton.New()
	st, err := n.Init(testproblems.Sphere(2), []float64{3, -4}, nil, constraints.NoConstraints{})
	require.NoError(t, err)

	next, status := n.Step(st)
	assert.Equal(t, solver.Continue, status)
	assert.InDelta(t, 0.0, next.X()[0], 1e-12)
	assert.InDelta(t, 0.0, next.X()[1], 1e-12)
	assert.InDelta(t, 0.0, next.FVal(), 1e-12)

	_, status = n.Step(next)
	assert.Equal(t, solver.Success, status)
}

func TestSolveQuadratic(t *testing.T) {
	s := solver.New(newton.New())

	res, err := s.Solve(testproblems.Sphere(2), []float64{3, -4},
		stopping.GradNormTest{Eps: 1e-6}, nil, nil, false)
	require.NoError(t, err)

	assert.Equal(t, solver.Success, res.Status)
	assert.LessOrEqual(t, res.NumIter, uint(3))
	assert.InDelta(t, 0.0, res.FMin, 1e-10)
	assert.Greater(t, res.NumHessEval, uint(0))
}

func TestFiniteDifferenceHessianPath(t *testing.T) {
	// A shifted quadratic with only f supplied exercises the FD Hessian.
	obj := objective.New(2, func(x []float64) float64 {
		a := x[0] - 3
		b := x[1] + 1
		return a*a + 2*b*b
	})

	s := solver.New(newton.New())
	res, err := s.Solve(obj, []float64{0, 0},
		stopping.GradNormTest{Eps: 1e-6}, nil, nil, false)
	require.NoError(t, err)

	assert.Equal(t, solver.Success, res.Status)
	assert.InDelta(t, 3.0, res.XMin[0], 1e-4)
	assert.InDelta(t, -1.0, res.XMin[1], 1e-4)
}

func TestIndefiniteHessianFallsBackAndDiverges(t *testing.T) {
	// f(x) = -x^2 has a negative definite Hessian everywhere; the gradient
	// fallback walks downhill without bound.
	s := solver.New(newton.New())
	require.NoError(t, s.Setup(testproblems.InvertedParabola1D(), []float64{1}, nil, nil))

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
}
