package objective

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func sphere(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum
}

func TestEvalCountsCalls(t *testing.T) {
	f := New(2, sphere)

	assert.Equal(t, uint(0), f.NumEval())

	val := f.Eval([]float64{1, 2})
	assert.Equal(t, 5.0, val)
	assert.Equal(t, uint(1), f.NumEval())

	f.Eval([]float64{3, 4})
	assert.Equal(t, uint(2), f.NumEval())
}

func TestEvalCachesLastPoint(t *testing.T) {
	f := New(2, sphere)

	f.Eval([]float64{1, 2})
	f.Eval([]float64{1, 2})
	f.Eval([]float64{1, 2})

	assert.Equal(t, uint(1), f.NumEval(), "repeated evaluation at the same point should hit the cache")

	f.Eval([]float64{2, 1})
	assert.Equal(t, uint(2), f.NumEval())
}

func TestAnalyticGradient(t *testing.T) {
	f := New(2, sphere, WithGradient(func(grad, x []float64) {
		grad[0] = 2 * x[0]
		grad[1] = 2 * x[1]
	}))

	grad := f.Gradient([]float64{3, -1})
	assert.Equal(t, []float64{6, -2}, grad)
	assert.Equal(t, uint(1), f.NumGradEval())
	assert.Equal(t, uint(0), f.NumEval(), "analytic gradient should not evaluate f")
}

func TestFiniteDifferenceGradient(t *testing.T) {
	f := New(2, sphere)

	grad := f.Gradient([]float64{3, -1})
	require.Len(t, grad, 2)
	assert.InDelta(t, 6.0, grad[0], 1e-6)
	assert.InDelta(t, -2.0, grad[1], 1e-6)
	assert.Equal(t, uint(1), f.NumGradEval())
	assert.Greater(t, f.NumEval(), uint(0), "finite differences should charge probe evaluations")
}

func TestFiniteDifferenceHessian(t *testing.T) {
	f := New(2, sphere)

	hess := f.Hessian([]float64{1, 1})
	require.NotNil(t, hess)
	assert.Equal(t, uint(1), f.NumHessEval())
	assert.InDelta(t, 2.0, hess.At(0, 0), 1e-4)
	assert.InDelta(t, 2.0, hess.At(1, 1), 1e-4)
	assert.InDelta(t, 0.0, hess.At(0, 1), 1e-4)
}

func TestAnalyticHessian(t *testing.T) {
	f := New(1, func(x []float64) float64 { return math.Cos(x[0]) },
		WithHessian(func(hess *mat.SymDense, x []float64) {
			hess.SetSym(0, 0, -math.Cos(x[0]))
		}))

	hess := f.Hessian([]float64{0})
	assert.InDelta(t, -1.0, hess.At(0, 0), 1e-12)
	assert.Equal(t, uint(1), f.NumHessEval())
}

func TestResetCounters(t *testing.T) {
	f := New(2, sphere)

	f.Eval([]float64{1, 2})
	f.Gradient([]float64{1, 2})
	f.Hessian([]float64{1, 2})

	f.ResetCounters()

	assert.Equal(t, uint(0), f.NumEval())
	assert.Equal(t, uint(0), f.NumGradEval())
	assert.Equal(t, uint(0), f.NumHessEval())

	// Cache must be dropped so the next run counts its first evaluation.
	f.Eval([]float64{1, 2})
	assert.Equal(t, uint(1), f.NumEval())
}
