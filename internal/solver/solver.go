// Package solver implements the iteration engine of the local optimization
// framework: it drives a concrete algorithm from an initial point to a
// terminal IterationStatus, keeping the evaluation counters, the state
// history and the final Results record.
package solver

import (
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	oerrors "github.com/chandu8542/otkpp/internal/errors"
	"github.com/chandu8542/otkpp/internal/solver/constraints"
	"github.com/chandu8542/otkpp/internal/solver/objective"
)

// Algorithm is the polymorphic core of a concrete solver variant. Init
// validates the algorithm's options and produces the initial State at x0;
// Step produces the next State from the current one and classifies the
// outcome. An algorithm retains the objective and constraints given to Init
// for the duration of the run.
type Algorithm interface {
	// Name returns the algorithm's identifier.
	Name() string

	// Init validates setup options and constructs the initial state,
	// evaluating the objective at x0 as needed.
	Init(obj *objective.Function, x0 []float64, setup Setup, cons constraints.Constraints) (State, error)

	// Step computes the next state from the current one.
	Step(cur State) (State, IterationStatus)

	// HasBuiltInStoppingCriterion reports whether the algorithm's own Step
	// is solely responsible for returning Success. When false, Solve also
	// consults the externally supplied StoppingCriterion.
	HasBuiltInStoppingCriterion() bool
}

// StoppingCriterion decides when to halt iteration, independently of any
// algorithm-specific built-in convergence check. It is consulted by Solve
// only for algorithms without a built-in criterion.
type StoppingCriterion interface {
	Done(s *Solver) bool
}

// Results is the record handed back across the system boundary after a run.
type Results struct {
	// Status is the terminal iteration status of the run.
	Status IterationStatus
	// FMin is the objective value at the final point.
	FMin float64
	// XMin is the final point.
	XMin []float64
	// NumIter is the number of iterations performed.
	NumIter uint
	// Evaluation counts attributed to the run.
	NumFuncEval uint
	NumGradEval uint
	NumHessEval uint
	// Final is a snapshot of the final state.
	Final State
	// States holds one independent snapshot per completed iteration, in
	// chronological order. len(States) == NumIter.
	States []State
	// Elapsed is the wall-clock duration of the iteration loop. Only set
	// when the run was requested with timing enabled.
	Elapsed time.Duration
	// Timed reports whether Elapsed was recorded.
	Timed bool
}

// ErrNotSetUp is returned by Iterate when Setup has not been called.
var ErrNotSetUp = oerrors.New("solver has not been set up").
	WithComponent("solver").
	WithKind(oerrors.KindPrecondition)

// ErrTerminated is returned by Iterate once the solver reached a terminal
// status; the run must be set up again before further iteration.
var ErrTerminated = oerrors.New("solver already reached a terminal status").
	WithComponent("solver").
	WithKind(oerrors.KindPrecondition)

// Solver drives a single local minimization run. It is not safe for
// concurrent use; run independent minimizations on independent instances.
type Solver struct {
	alg    Algorithm
	logger *zap.Logger

	obj    *objective.Function
	cons   constraints.Constraints
	cur    State
	status IterationStatus
	nIter  uint
	ready  bool
}

// Option configures a Solver.
type Option func(*Solver)

// WithLogger attaches a logger for per-iteration debug output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Solver) { s.logger = l }
}

// New creates a Solver around the given algorithm.
func New(alg Algorithm, opts ...Option) *Solver {
	s := &Solver{
		alg:    alg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Algorithm returns the concrete algorithm driven by this solver.
func (s *Solver) Algorithm() Algorithm {
	return s.alg
}

// Setup prepares the solver for a run: it resets the iteration and
// evaluation counters, validates that x0 matches the objective's domain
// dimension, and constructs the initial state through the algorithm.
// It must be called before Iterate or is called on the caller's behalf by
// Solve. A nil cons means unconstrained.
func (s *Solver) Setup(obj *objective.Function, x0 []float64, setup Setup, cons constraints.Constraints) error {
	if obj == nil {
		return oerrors.New("objective function is required").
			WithComponent("solver").
			WithOperation("setup").
			WithKind(oerrors.KindConfig)
	}
	if len(x0) != obj.Dim() {
		return oerrors.Errorf("x0 has dimension %d, objective domain has dimension %d", len(x0), obj.Dim()).
			WithComponent("solver").
			WithOperation("setup").
			WithKind(oerrors.KindConfig)
	}
	if cons == nil {
		cons = constraints.NoConstraints{}
	}

	obj.ResetCounters()

	st, err := s.alg.Init(obj, x0, setup, cons)
	if err != nil {
		return oerrors.Wrap(err, "algorithm setup failed").
			WithComponent(s.alg.Name()).
			WithOperation("setup")
	}

	s.obj = obj
	s.cons = cons
	s.cur = st
	s.status = Continue
	s.nIter = 0
	s.ready = true

	s.logger.Debug("solver set up",
		zap.String("algorithm", s.alg.Name()),
		zap.Int("dim", obj.Dim()),
		zap.Float64("f0", st.FVal()))

	return nil
}

// Iterate advances the run by one step of the concrete algorithm and returns
// the resulting status. It fails with ErrNotSetUp before Setup, and with
// ErrTerminated once a terminal status has been reached.
func (s *Solver) Iterate() (IterationStatus, error) {
	if !s.ready {
		return Continue, ErrNotSetUp
	}
	if s.status.Terminal() {
		return s.status, ErrTerminated
	}

	next, status := s.alg.Step(s.cur)
	s.cur = next
	s.status = status
	s.nIter++

	s.logger.Debug("iteration complete",
		zap.Uint("iter", s.nIter),
		zap.Float64("f", next.FVal()),
		zap.String("status", status.String()))

	return status, nil
}

// Solve drives a full run from x0 to termination. The external stopCrit is
// consulted after each Continue iteration, but only when the algorithm has
// no built-in stopping criterion; an external stop is reported as Success.
// When timeTest is true the wall-clock duration of the iteration loop is
// recorded in the Results.
//
// Numerical failures terminate the run with OutOfControl and a complete
// Results record; only configuration and precondition errors are returned
// as errors.
func (s *Solver) Solve(obj *objective.Function, x0 []float64, stopCrit StoppingCriterion, setup Setup, cons constraints.Constraints, timeTest bool) (*Results, error) {
	if err := s.Setup(obj, x0, setup, cons); err != nil {
		return nil, err
	}

	res := &Results{}
	useExternal := stopCrit != nil && !s.alg.HasBuiltInStoppingCriterion()

	var start time.Time
	if timeTest {
		start = time.Now()
	}

	for {
		status, err := s.Iterate()
		if err != nil {
			return nil, err
		}

		// Every completed iteration contributes one snapshot, terminal
		// iterations included, so NumIter == len(States) and failed runs
		// keep their partial history.
		res.States = append(res.States, s.cur.Clone())

		if status.Terminal() {
			res.Status = status
			break
		}
		if useExternal && stopCrit.Done(s) {
			s.status = Success
			res.Status = Success
			break
		}
	}

	if timeTest {
		res.Elapsed = time.Since(start)
		res.Timed = true
	}

	res.FMin = s.cur.FVal()
	res.XMin = append([]float64(nil), s.cur.X()...)
	res.Final = s.cur.Clone()
	res.NumIter = s.nIter
	res.NumFuncEval = s.obj.NumEval()
	res.NumGradEval = s.obj.NumGradEval()
	res.NumHessEval = s.obj.NumHessEval()

	s.logger.Info("run finished",
		zap.String("algorithm", s.alg.Name()),
		zap.String("status", res.Status.String()),
		zap.Uint("iterations", res.NumIter),
		zap.Float64("f_min", res.FMin))

	return res, nil
}

// The accessors below are pure queries over the current state: they never
// touch the iteration counter. Gradient and Hessian delegate to the
// objective at the current point, so its evaluation counters advance like
// any other call. All of them panic when the solver has not been set up.

// X returns a copy of the current representative point.
func (s *Solver) X() []float64 {
	s.mustBeReady()
	return append([]float64(nil), s.cur.X()...)
}

// XArray returns the matrix of all points tracked by the algorithm, one
// point per column.
func (s *Solver) XArray() *mat.Dense {
	s.mustBeReady()
	return s.cur.XArray()
}

// FVal returns the objective value at the current point.
func (s *Solver) FVal() float64 {
	s.mustBeReady()
	return s.cur.FVal()
}

// Gradient returns the objective gradient at the current point.
func (s *Solver) Gradient() []float64 {
	s.mustBeReady()
	return s.obj.Gradient(s.cur.X())
}

// Hessian returns the objective Hessian at the current point.
func (s *Solver) Hessian() *mat.SymDense {
	s.mustBeReady()
	return s.obj.Hessian(s.cur.X())
}

// State returns the live current state. It is owned by the Solver and must
// not be retained across a subsequent Iterate call; use Clone for that.
func (s *Solver) State() State {
	s.mustBeReady()
	return s.cur
}

// Status returns the status of the most recent iteration.
func (s *Solver) Status() IterationStatus {
	s.mustBeReady()
	return s.status
}

// ObjectiveFunction returns the objective associated with the current run.
func (s *Solver) ObjectiveFunction() *objective.Function {
	s.mustBeReady()
	return s.obj
}

// NumIter returns the number of iterations since the last Setup.
func (s *Solver) NumIter() uint {
	s.mustBeReady()
	return s.nIter
}

// NumFuncEval returns the number of function evaluations since the last Setup.
func (s *Solver) NumFuncEval() uint {
	s.mustBeReady()
	return s.obj.NumEval()
}

// NumGradEval returns the number of gradient evaluations since the last Setup.
func (s *Solver) NumGradEval() uint {
	s.mustBeReady()
	return s.obj.NumGradEval()
}

// NumHessEval returns the number of Hessian evaluations since the last Setup.
func (s *Solver) NumHessEval() uint {
	s.mustBeReady()
	return s.obj.NumHessEval()
}

func (s *Solver) mustBeReady() {
	if !s.ready {
		panic("solver: accessor called before Setup")
	}
}
