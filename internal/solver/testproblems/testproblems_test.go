package testproblems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSphere(t *testing.T) {
	f := Sphere(3)

	assert.Equal(t, 3, f.Dim())
	assert.Equal(t, 0.0, f.Eval([]float64{0, 0, 0}))
	assert.Equal(t, 14.0, f.Eval([]float64{1, 2, 3}))
	assert.Equal(t, []float64{2, 4, 6}, f.Gradient([]float64{1, 2, 3}))

	hess := f.Hessian([]float64{1, 2, 3})
	assert.Equal(t, 2.0, hess.At(0, 0))
	assert.Equal(t, 0.0, hess.At(0, 1))
}

func TestRosenbrock(t *testing.T) {
	f := Rosenbrock(2)

	assert.Equal(t, 0.0, f.Eval([]float64{1, 1}))
	assert.Equal(t, 1.0, f.Eval([]float64{0, 0}))

	grad := f.Gradient([]float64{1, 1})
	assert.InDelta(t, 0.0, grad[0], 1e-12)
	assert.InDelta(t, 0.0, grad[1], 1e-12)
}

func TestHimmelblau(t *testing.T) {
	f := Himmelblau()

	// All four known minima have value 0.
	minima := [][]float64{
		{3, 2},
		{-2.805118, 3.131312},
		{-3.779310, -3.283186},
		{3.584428, -1.848126},
	}
	for _, m := range minima {
		assert.InDelta(t, 0.0, f.Eval(m), 1e-3)
	}
}

func TestInvertedParabola(t *testing.T) {
	f := InvertedParabola1D()
	assert.Equal(t, -4.0, f.Eval([]float64{2}))
}

func TestLookup(t *testing.T) {
	f, err := Lookup("sphere", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Dim())
	assert.Equal(t, "sphere", f.Name())

	f, err = Lookup("himmelblau", 7)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Dim(), "fixed-dimension problems ignore the requested dimension")

	_, err = Lookup("ackley", 2)
	assert.Error(t, err)

	_, err = Lookup("sphere", 0)
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Contains(t, names, "sphere")
	assert.Contains(t, names, "rosenbrock")
	assert.IsType(t, []string{}, names)
}
