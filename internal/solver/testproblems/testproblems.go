// Package testproblems provides the catalog of named objective functions
// used by tests, the service and the CLI.
package testproblems

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/chandu8542/otkpp/internal/solver/objective"
)

// Sphere returns f(x) = sum x_i^2 in n dimensions, minimum 0 at the origin.
func Sphere(n int) *objective.Function {
	return objective.New(n,
		func(x []float64) float64 {
			sum := 0.0
			for _, v := range x {
				sum += v * v
			}
			return sum
		},
		objective.WithName("sphere"),
		objective.WithGradient(func(grad, x []float64) {
			for i, v := range x {
				grad[i] = 2 * v
			}
		}),
		objective.WithHessian(func(hess *mat.SymDense, x []float64) {
			for i := range x {
				for j := i; j < len(x); j++ {
					if i == j {
						hess.SetSym(i, j, 2)
					} else {
						hess.SetSym(i, j, 0)
					}
				}
			}
		}))
}

// Rosenbrock returns the n-dimensional Rosenbrock function, minimum 0 at
// (1, ..., 1).
func Rosenbrock(n int) *objective.Function {
	return objective.New(n,
		func(x []float64) float64 {
			sum := 0.0
			for i := 0; i < len(x)-1; i++ {
				a := x[i+1] - x[i]*x[i]
				b := 1 - x[i]
				sum += 100*a*a + b*b
			}
			return sum
		},
		objective.WithName("rosenbrock"),
		objective.WithGradient(func(grad, x []float64) {
			for i := range grad {
				grad[i] = 0
			}
			for i := 0; i < len(x)-1; i++ {
				a := x[i+1] - x[i]*x[i]
				grad[i] += -400*x[i]*a - 2*(1-x[i])
				grad[i+1] += 200 * a
			}
		}))
}

// Himmelblau returns the two-dimensional Himmelblau function, with four
// global minima of value 0.
func Himmelblau() *objective.Function {
	return objective.New(2,
		func(x []float64) float64 {
			a := x[0]*x[0] + x[1] - 11
			b := x[0] + x[1]*x[1] - 7
			return a*a + b*b
		},
		objective.WithName("himmelblau"))
}

// Paraboloid1D returns f(x) = x^2, minimum 0 at 0.
func Paraboloid1D() *objective.Function {
	return objective.New(1,
		func(x []float64) float64 { return x[0] * x[0] },
		objective.WithName("paraboloid1d"),
		objective.WithGradient(func(grad, x []float64) {
			grad[0] = 2 * x[0]
		}),
		objective.WithHessian(func(hess *mat.SymDense, x []float64) {
			hess.SetSym(0, 0, 2)
		}))
}

// InvertedParabola1D returns f(x) = -x^2, unbounded below. Descent from any
// nonzero starting point diverges.
func InvertedParabola1D() *objective.Function {
	return objective.New(1,
		func(x []float64) float64 { return -x[0] * x[0] },
		objective.WithName("inverted_parabola1d"),
		objective.WithGradient(func(grad, x []float64) {
			grad[0] = -2 * x[0]
		}))
}

// makers maps problem names to constructors. Fixed-dimension problems
// ignore the requested dimension.
var makers = map[string]func(dim int) *objective.Function{
	"sphere":              Sphere,
	"rosenbrock":          Rosenbrock,
	"himmelblau":          func(int) *objective.Function { return Himmelblau() },
	"paraboloid1d":        func(int) *objective.Function { return Paraboloid1D() },
	"inverted_parabola1d": func(int) *objective.Function { return InvertedParabola1D() },
}

// Lookup returns the named problem instantiated at the given dimension.
func Lookup(name string, dim int) (*objective.Function, error) {
	maker, ok := makers[name]
	if !ok {
		return nil, fmt.Errorf("unknown test problem %q", name)
	}
	if dim < 1 {
		return nil, fmt.Errorf("dimension must be at least 1, got %d", dim)
	}
	return maker(dim), nil
}

// Names returns the sorted catalog of problem names.
func Names() []string {
	names := make([]string, 0, len(makers))
	for name := range makers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
