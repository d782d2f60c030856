// Package objective provides the objective-function abstraction consumed by
// the solver core: lazy evaluation of f, its gradient and its Hessian at a
// point, with per-run evaluation counters and a last-point cache.
package objective

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// Func evaluates the objective at x.
type Func func(x []float64) float64

// GradFunc writes the gradient of the objective at x into grad.
// len(grad) == len(x).
type GradFunc func(grad, x []float64)

// HessFunc writes the Hessian of the objective at x into hess.
type HessFunc func(hess *mat.SymDense, x []float64)

// Function wraps an objective f: R^n -> R together with optional analytic
// derivatives. When no analytic gradient or Hessian is supplied, central
// finite differences are used; the probe evaluations those make are charged
// to the function-evaluation counter like any other call.
//
// A Function is deterministic for a fixed x within one run: the most recent
// evaluation is cached, and repeated evaluation at the identical point
// returns the cached value without incrementing the counter.
//
// Function is not safe for concurrent use; each solver run owns its own
// instance (or resets the counters between runs).
type Function struct {
	name string
	dim  int
	f    Func
	grad GradFunc
	hess HessFunc

	numEval     uint
	numGradEval uint
	numHessEval uint

	cacheX []float64
	cacheF float64
	cached bool
}

// Option configures a Function.
type Option func(*Function)

// WithGradient supplies an analytic gradient.
func WithGradient(g GradFunc) Option {
	return func(f *Function) { f.grad = g }
}

// WithHessian supplies an analytic Hessian.
func WithHessian(h HessFunc) Option {
	return func(f *Function) { f.hess = h }
}

// WithName attaches a display name to the function.
func WithName(name string) Option {
	return func(f *Function) { f.name = name }
}

// New creates a Function of the given domain dimension.
func New(dim int, f Func, opts ...Option) *Function {
	fn := &Function{
		dim: dim,
		f:   f,
	}
	for _, opt := range opts {
		opt(fn)
	}
	return fn
}

// Dim returns the dimension of the function's domain.
func (f *Function) Dim() int {
	return f.dim
}

// Name returns the function's display name, if any.
func (f *Function) Name() string {
	return f.name
}

// Eval evaluates the objective at x and increments the function-evaluation
// counter, unless x is identical to the most recently evaluated point.
func (f *Function) Eval(x []float64) float64 {
	return f.eval(x)
}

// eval is the counted evaluation path shared by Eval and the
// finite-difference probes.
func (f *Function) eval(x []float64) float64 {
	if f.cached && equal(f.cacheX, x) {
		return f.cacheF
	}

	val := f.f(x)
	f.numEval++

	if f.cacheX == nil {
		f.cacheX = make([]float64, len(x))
	}
	copy(f.cacheX, x)
	f.cacheF = val
	f.cached = true

	return val
}

// Gradient computes the gradient of the objective at x and increments the
// gradient-evaluation counter. Without an analytic gradient it falls back to
// central finite differences.
func (f *Function) Gradient(x []float64) []float64 {
	grad := make([]float64, len(x))
	f.numGradEval++

	if f.grad != nil {
		f.grad(grad, x)
		return grad
	}

	fd.Gradient(grad, f.eval, x, &fd.Settings{Formula: fd.Central})
	return grad
}

// Hessian computes the Hessian of the objective at x and increments the
// Hessian-evaluation counter. Without an analytic Hessian it falls back to
// finite differences.
func (f *Function) Hessian(x []float64) *mat.SymDense {
	hess := mat.NewSymDense(len(x), nil)
	f.numHessEval++

	if f.hess != nil {
		f.hess(hess, x)
		return hess
	}

	fd.Hessian(hess, f.eval, x, nil)
	return hess
}

// NumEval returns the number of function evaluations since the last reset.
func (f *Function) NumEval() uint {
	return f.numEval
}

// NumGradEval returns the number of gradient evaluations since the last reset.
func (f *Function) NumGradEval() uint {
	return f.numGradEval
}

// NumHessEval returns the number of Hessian evaluations since the last reset.
func (f *Function) NumHessEval() uint {
	return f.numHessEval
}

// ResetCounters zeroes the evaluation counters and drops the point cache.
func (f *Function) ResetCounters() {
	f.numEval = 0
	f.numGradEval = 0
	f.numHessEval = 0
	f.cached = false
}

func equal(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
