package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chandu8542/otkpp/internal/logging"
	"github.com/chandu8542/otkpp/internal/solver"
	"github.com/chandu8542/otkpp/internal/solver/constraints"
	"github.com/chandu8542/otkpp/internal/solver/neldermead"
	"github.com/chandu8542/otkpp/internal/solver/newton"
	"github.com/chandu8542/otkpp/internal/solver/steepestdescent"
	"github.com/chandu8542/otkpp/internal/solver/stopping"
	"github.com/chandu8542/otkpp/internal/solver/testproblems"
)

var (
	objectiveName string
	algorithmName string
	x0            []float64
	lowerBounds   []float64
	upperBounds   []float64
	stepSize      float64
	gradTol       float64
	fTol          float64
	simplexSize   float64
	armijo        float64
	maxIter       uint
	timed         bool
	showHistory   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one optimization and print the results",
	Long: `Runs the chosen algorithm against a catalog problem from the given
starting point and prints a JSON report with the minimizer, the terminal
status, and the evaluation counters.`,
	RunE: runSolve,
}

func init() {
	runCmd.Flags().StringVar(&objectiveName, "objective", "", "Objective from the problem catalog (required)")
	runCmd.Flags().StringVar(&algorithmName, "algorithm", "steepest_descent", "Algorithm: steepest_descent, newton, nelder_mead")
	runCmd.Flags().Float64SliceVar(&x0, "x0", nil, "Starting point coordinates (required)")
	runCmd.Flags().Float64SliceVar(&lowerBounds, "lower", nil, "Lower box bounds, one per coordinate")
	runCmd.Flags().Float64SliceVar(&upperBounds, "upper", nil, "Upper box bounds, one per coordinate")
	runCmd.Flags().Float64Var(&stepSize, "step-size", 0, "Step length for steepest descent")
	runCmd.Flags().Float64Var(&gradTol, "grad-tol", 1e-8, "Gradient norm tolerance")
	runCmd.Flags().Float64Var(&fTol, "f-tol", 0, "Function spread tolerance for Nelder-Mead")
	runCmd.Flags().Float64Var(&simplexSize, "simplex-size", 0, "Initial simplex edge length for Nelder-Mead")
	runCmd.Flags().Float64Var(&armijo, "armijo", 0, "Enable Armijo backtracking for steepest descent (nonzero = on)")
	runCmd.Flags().UintVar(&maxIter, "max-iter", 10000, "Iteration cap")
	runCmd.Flags().BoolVar(&timed, "time", false, "Measure wall-clock time of the run")
	runCmd.Flags().BoolVar(&showHistory, "history", false, "Include the per-iteration history in the report")

	runCmd.MarkFlagRequired("objective")
	runCmd.MarkFlagRequired("x0")
	rootCmd.AddCommand(runCmd)
}

// buildSetup collects only the options the user actually set, so each
// algorithm's own validation decides what it accepts.
func buildSetup(cmd *cobra.Command) solver.Setup {
	setup := solver.Setup{}
	for flag, key := range map[string]string{
		"step-size":    "step_size",
		"grad-tol":     "grad_tol",
		"f-tol":        "f_tol",
		"simplex-size": "simplex_size",
		"armijo":       "armijo",
	} {
		if cmd.Flags().Changed(flag) {
			v, _ := cmd.Flags().GetFloat64(flag)
			setup[key] = v
		}
	}
	return setup
}

func runSolve(cmd *cobra.Command, args []string) error {
	obj, err := testproblems.Lookup(objectiveName, len(x0))
	if err != nil {
		return err
	}
	if obj.Dim() != len(x0) {
		return fmt.Errorf("objective %q has dimension %d, x0 has dimension %d",
			objectiveName, obj.Dim(), len(x0))
	}

	var alg solver.Algorithm
	switch algorithmName {
	case "steepest_descent":
		alg = steepestdescent.New()
	case "newton":
		alg = newton.New()
	case "nelder_mead":
		alg = neldermead.New()
	default:
		return fmt.Errorf("unknown algorithm %q", algorithmName)
	}

	var cons constraints.Constraints = constraints.NoConstraints{}
	if lowerBounds != nil || upperBounds != nil {
		bounds, err := constraints.NewBounds(lowerBounds, upperBounds)
		if err != nil {
			return err
		}
		if len(lowerBounds) != len(x0) {
			return fmt.Errorf("bounds dimension %d does not match x0 dimension %d",
				len(lowerBounds), len(x0))
		}
		cons = bounds
	}

	stopCrit := stopping.Any{
		stopping.GradNormTest{Eps: gradTol},
		stopping.MaxNumIterTest{N: maxIter},
	}

	logger.Info("Starting run", map[string]interface{}{
		"objective": obj.Name(),
		"algorithm": alg.Name(),
		"dim":       obj.Dim(),
	})

	sv := solver.New(alg, solver.WithLogger(logging.NewZapLogger(logger)))
	res, err := sv.Solve(obj, x0, stopCrit, buildSetup(cmd), cons, timed)
	if err != nil {
		return err
	}

	report := map[string]interface{}{
		"objective":     obj.Name(),
		"algorithm":     alg.Name(),
		"status":        res.Status.String(),
		"f_min":         res.FMin,
		"x_min":         res.XMin,
		"iterations":    res.NumIter,
		"num_func_eval": res.NumFuncEval,
		"num_grad_eval": res.NumGradEval,
		"num_hess_eval": res.NumHessEval,
	}
	if res.Timed {
		report["elapsed_ms"] = float64(res.Elapsed.Microseconds()) / 1000.0
	}
	if showHistory {
		history := make([]map[string]interface{}, len(res.States))
		for i, st := range res.States {
			history[i] = map[string]interface{}{
				"iteration": i + 1,
				"f":         st.FVal(),
				"x":         st.X(),
			}
		}
		report["history"] = history
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
