package neldermead_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	oerrors "github.com/chandu8542/otkpp/internal/errors"
	"github.com/chandu8542/otkpp/internal/solver"
	"github.com/chandu8542/otkpp/internal/solver/constraints"
	"github.com/chandu8542/otkpp/internal/solver/neldermead"
	"github.com/chandu8542/otkpp/internal/solver/testproblems"
)

func TestName(t *testing.T) {
	nm := neldermead.New()
	assert.Equal(t, "nelder_mead", nm.Name())
	assert.True(t, nm.HasBuiltInStoppingCriterion())
}

func TestRejectsBadOptions(t *testing.T) {
	nm := neldermead.New()

	_, err := nm.Init(testproblems.Sphere(2), []float64{1, 1},
		solver.Setup{"simplex_size": -1}, constraints.NoConstraints{})
	require.Error(t, err)
	assert.True(t, oerrors.IsConfig(err))

	_, err = nm.Init(testproblems.Sphere(2), []float64{1, 1},
		solver.Setup{"f_tol": 0}, constraints.NoConstraints{})
	require.Error(t, err)
	assert.True(t, oerrors.IsConfig(err))
}

func TestIgnoresUnrecognizedOptions(t *testing.T) {
	// Nelder-Mead documents a lenient option policy.
	nm := neldermead.New()

	_, err := nm.Init(testproblems.Sphere(2), []float64{1, 1},
		solver.Setup{"step_size": 0.5}, constraints.NoConstraints{})
	assert.NoError(t, err)
}

func TestInitBuildsSimplex(t *testing.T) {
	nm := neldermead.New()
	obj := testproblems.Sphere(2)

	st, err := nm.Init(obj, []float64{1, 1}, nil, constraints.NoConstraints{})
	require.NoError(t, err)

	simplex, ok := st.(*solver.SimplexState)
	require.True(t, ok)

	n, k := simplex.Points.Dims()
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, k, "a 2-D simplex has n+1 vertices")
	assert.Equal(t, uint(3), obj.NumEval())

	// Vertices are sorted best first and the representative point is the
	// first column.
	for j := 1; j < k; j++ {
		assert.LessOrEqual(t, simplex.FVals[j-1], simplex.FVals[j])
	}
	col := make([]float64, n)
	mat.Col(col, 0, simplex.Points)
	assert.Equal(t, simplex.X(), col)
}

func TestStepKeepsStatesIndependent(t *testing.T) {
	nm := neldermead.New()
	st, err := nm.Init(testproblems.Sphere(2), []float64{2, 2}, nil, constraints.NoConstraints{})
	require.NoError(t, err)

	before := mat.DenseCopyOf(st.(*solver.SimplexState).Points)

	next, status := nm.Step(st)
	require.Equal(t, solver.Continue, status)
	assert.NotSame(t, st, next)
	assert.True(t, mat.Equal(before, st.(*solver.SimplexState).Points),
		"Step must not mutate the current state")
}

func TestSolveSphere(t *testing.T) {
	s := solver.New(neldermead.New())

	res, err := s.Solve(testproblems.Sphere(2), []float64{2, 2}, nil, nil, nil, false)
	require.NoError(t, err)

	assert.Equal(t, solver.Success, res.Status)
	assert.InDelta(t, 0.0, res.XMin[0], 1e-3)
	assert.InDelta(t, 0.0, res.XMin[1], 1e-3)
	assert.Equal(t, uint(0), res.NumGradEval, "Nelder-Mead is derivative-free")
}

func TestSolveHimmelblau(t *testing.T) {
	s := solver.New(neldermead.New())

	res, err := s.Solve(testproblems.Himmelblau(), []float64{3.5, 2.5}, nil, nil, nil, false)
	require.NoError(t, err)

	assert.Equal(t, solver.Success, res.Status)
	assert.InDelta(t, 0.0, res.FMin, 1e-6)
}

func TestSolveWithBounds(t *testing.T) {
	bounds, err := constraints.NewBounds([]float64{0.5, 0.5}, []float64{4, 4})
	require.NoError(t, err)

	s := solver.New(neldermead.New())
	res, err := s.Solve(testproblems.Sphere(2), []float64{2, 2}, nil, nil, bounds, false)
	require.NoError(t, err)

	assert.True(t, res.Status.Terminal())
	assert.True(t, bounds.Contains(res.XMin))
}
