package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chandu8542/otkpp/internal/config"
	"github.com/chandu8542/otkpp/internal/logging"
	"github.com/chandu8542/otkpp/internal/metrics"
	"github.com/chandu8542/otkpp/internal/solver"
	"github.com/chandu8542/otkpp/internal/solver/constraints"
	"github.com/chandu8542/otkpp/internal/solver/neldermead"
	"github.com/chandu8542/otkpp/internal/solver/newton"
	"github.com/chandu8542/otkpp/internal/solver/objective"
	"github.com/chandu8542/otkpp/internal/solver/steepestdescent"
	"github.com/chandu8542/otkpp/internal/solver/testproblems"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// RunState tracks one solver run from submission to its terminal state.
// Fields are guarded by the server's run mutex.
type RunState struct {
	ID        string
	Algorithm string
	Objective string
	Status    string // "pending", "running", "completed", "failed", "cancelled"

	StartTime   time.Time
	EndTime     *time.Time
	LastUpdated time.Time

	// Iteration progress, refreshed after every completed iteration.
	IterationStatus string
	NumIter         uint
	FVal            float64
	X               []float64
	NumFuncEval     uint
	NumGradEval     uint
	NumHessEval     uint
	Elapsed         time.Duration

	// History holds one snapshot per iteration, capped by the configured
	// history limit.
	History []solver.State

	Error      string
	CancelFunc context.CancelFunc
}

// Server implements the HTTP and JSON-RPC front end for the solver service.
// It manages solver runs and provides endpoints to start, monitor, and
// cancel them.
type Server struct {
	cfg     *config.Config
	logger  Logger
	zapLog  *zap.Logger
	metrics *metrics.Metrics

	runs   map[string]*RunState
	runsMu sync.RWMutex

	// Bounds the number of runs iterating at once.
	sem chan struct{}

	nextID uint64
	idMu   sync.Mutex
}

// NewServer creates a new server instance with the given config and logger.
// A nil metrics registry disables metric recording.
func NewServer(cfg *config.Config, logger Logger, m *metrics.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger,
		zapLog:  logging.NewZapLogger(logger.WithFields(map[string]interface{}{"component": "solver"})),
		metrics: m,
		runs:    make(map[string]*RunState),
		sem:     make(chan struct{}, cfg.Solver.MaxConcurrentRuns),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/solve", s.handleSolve)
		r.Get("/runs/{id}", s.handleRunStatus)
		r.Delete("/runs/{id}", s.handleRunCancel)
		r.Get("/problems", s.handleProblems)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// solveRequest describes a solver run submission.
type solveRequest struct {
	// Objective names a problem from the test problem catalog.
	Objective string `json:"objective"`
	// X0 is the starting point; its length fixes the dimension.
	X0 []float64 `json:"x0"`
	// Algorithm selects the concrete solver variant.
	Algorithm string `json:"algorithm"`
	// Options is the algorithm's named-option bag.
	Options map[string]float64 `json:"options,omitempty"`
	// MaxIterations caps the run; 0 means the service default.
	MaxIterations int `json:"max_iterations,omitempty"`
	// Lower and Upper, when present, impose box constraints.
	Lower []float64 `json:"lower,omitempty"`
	Upper []float64 `json:"upper,omitempty"`
}

// newAlgorithm maps an algorithm name to a fresh instance.
func newAlgorithm(name string) (solver.Algorithm, error) {
	switch name {
	case "steepest_descent", "":
		return steepestdescent.New(), nil
	case "newton":
		return newton.New(), nil
	case "nelder_mead":
		return neldermead.New(), nil
	default:
		return nil, fmt.Errorf("unknown algorithm %q", name)
	}
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      interface{}     `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, -32700, "Parse error", nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" {
		s.respondWithError(w, -32600, "Invalid Request", nil)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "solver.start":
		var req solveRequest
		if err = firstParam(request.Params, &req); err == nil {
			result, err = s.startRun(req)
		}
	case "solver.status":
		var req struct {
			RunID string `json:"run_id"`
		}
		if err = firstParam(request.Params, &req); err == nil {
			result, err = s.runStatus(req.RunID)
		}
	case "solver.cancel":
		var req struct {
			RunID string `json:"run_id"`
		}
		if err = firstParam(request.Params, &req); err == nil {
			err = s.cancelRun(req.RunID)
		}
	default:
		s.respondWithError(w, -32601, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, -32000, err.Error(), request.ID)
		return
	}

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// firstParam decodes either positional params (first element) or a named
// params object into dst.
func firstParam(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing required parameters")
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		if len(arr) == 0 {
			return fmt.Errorf("missing required parameters")
		}
		return json.Unmarshal(arr[0], dst)
	}
	return json.Unmarshal(raw, dst)
}

// startRun validates a submission and launches the run in a goroutine.
func (s *Server) startRun(req solveRequest) (interface{}, error) {
	if len(req.X0) == 0 {
		return nil, fmt.Errorf("x0 is required")
	}

	obj, err := testproblems.Lookup(req.Objective, len(req.X0))
	if err != nil {
		return nil, err
	}
	if obj.Dim() != len(req.X0) {
		return nil, fmt.Errorf("objective %q has dimension %d, x0 has dimension %d",
			req.Objective, obj.Dim(), len(req.X0))
	}

	alg, err := newAlgorithm(req.Algorithm)
	if err != nil {
		return nil, err
	}

	var cons constraints.Constraints = constraints.NoConstraints{}
	if req.Lower != nil || req.Upper != nil {
		bounds, err := constraints.NewBounds(req.Lower, req.Upper)
		if err != nil {
			return nil, err
		}
		if len(req.Lower) != len(req.X0) {
			return nil, fmt.Errorf("bounds dimension %d does not match x0 dimension %d",
				len(req.Lower), len(req.X0))
		}
		cons = bounds
	}

	maxIter := req.MaxIterations
	if maxIter <= 0 {
		maxIter = s.cfg.Solver.MaxIterations
	}

	setup := solver.Setup{}
	for k, v := range req.Options {
		setup[k] = v
	}
	if _, ok := setup["divergence_bound"]; !ok {
		setup["divergence_bound"] = s.cfg.Solver.DivergenceBound
	}

	id := s.newRunID()
	ctx, cancel := context.WithCancel(context.Background())

	run := &RunState{
		ID:          id,
		Algorithm:   alg.Name(),
		Objective:   req.Objective,
		Status:      "pending",
		StartTime:   time.Now(),
		LastUpdated: time.Now(),
		CancelFunc:  cancel,
	}

	s.runsMu.Lock()
	s.runs[id] = run
	s.runsMu.Unlock()

	go s.executeRun(ctx, run, alg, obj, req.X0, setup, cons, maxIter)

	return map[string]interface{}{
		"run_id": id,
		"status": "pending",
	}, nil
}

// executeRun drives the solver iteration loop for one run.
func (s *Server) executeRun(ctx context.Context, run *RunState, alg solver.Algorithm,
	obj *objective.Function, x0 []float64, setup solver.Setup,
	cons constraints.Constraints, maxIter int) {

	// Wait for a slot, honoring cancellation while queued.
	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		s.finishRun(run, "cancelled", nil)
		return
	}

	if s.metrics != nil {
		s.metrics.RunStarted()
	}

	sv := solver.New(alg, solver.WithLogger(s.zapLog.With(zap.String("run_id", run.ID))))
	if err := sv.Setup(obj, x0, setup, cons); err != nil {
		if s.metrics != nil {
			s.metrics.RunFinished(alg.Name(), solver.Continue, 0, 0)
		}
		s.failRun(run, err)
		return
	}

	s.runsMu.Lock()
	run.Status = "running"
	run.LastUpdated = time.Now()
	s.runsMu.Unlock()

	start := time.Now()
	status := solver.Continue
	var err error

	for i := 0; i < maxIter; i++ {
		select {
		case <-ctx.Done():
			s.recordProgress(run, sv, time.Since(start))
			s.finishRun(run, "cancelled", &status)
			if s.metrics != nil {
				s.metrics.RunFinished(alg.Name(), status, sv.NumIter(), sv.NumFuncEval())
			}
			return
		default:
		}

		status, err = sv.Iterate()
		if err != nil {
			s.failRun(run, err)
			if s.metrics != nil {
				s.metrics.RunFinished(alg.Name(), status, sv.NumIter(), sv.NumFuncEval())
			}
			return
		}

		s.recordProgress(run, sv, time.Since(start))

		if status.Terminal() {
			break
		}
	}

	s.finishRun(run, "completed", &status)
	if s.metrics != nil {
		s.metrics.RunFinished(alg.Name(), status, sv.NumIter(), sv.NumFuncEval())
	}
}

// recordProgress copies the solver's current counters and state into the run
// record, including a history snapshot when under the configured cap.
func (s *Server) recordProgress(run *RunState, sv *solver.Solver, elapsed time.Duration) {
	st := sv.State().Clone()

	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	run.IterationStatus = sv.Status().String()
	run.NumIter = sv.NumIter()
	run.FVal = st.FVal()
	run.X = st.X()
	run.NumFuncEval = sv.NumFuncEval()
	run.NumGradEval = sv.NumGradEval()
	run.NumHessEval = sv.NumHessEval()
	run.Elapsed = elapsed
	run.LastUpdated = time.Now()

	if len(run.History) < s.cfg.Solver.HistoryLimit {
		run.History = append(run.History, st)
	}
}

// finishRun moves a run into a terminal service status.
func (s *Server) finishRun(run *RunState, status string, iterStatus *solver.IterationStatus) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	run.Status = status
	if iterStatus != nil {
		run.IterationStatus = iterStatus.String()
	}
	now := time.Now()
	run.EndTime = &now
	run.LastUpdated = now

	s.logger.Info("Run finished", map[string]interface{}{
		"run_id":           run.ID,
		"status":           status,
		"iteration_status": run.IterationStatus,
		"iterations":       run.NumIter,
	})
}

func (s *Server) failRun(run *RunState, err error) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	run.Status = "failed"
	run.Error = err.Error()
	now := time.Now()
	run.EndTime = &now
	run.LastUpdated = now

	s.logger.Error("Run failed", map[string]interface{}{
		"run_id": run.ID,
		"error":  err.Error(),
	})
}

// runStatus builds the status payload for one run.
func (s *Server) runStatus(id string) (interface{}, error) {
	if id == "" {
		return nil, fmt.Errorf("run_id is required")
	}

	s.runsMu.RLock()
	defer s.runsMu.RUnlock()

	run, exists := s.runs[id]
	if !exists {
		return nil, fmt.Errorf("run not found")
	}

	response := map[string]interface{}{
		"run_id":      run.ID,
		"algorithm":   run.Algorithm,
		"objective":   run.Objective,
		"status":      run.Status,
		"start_time":  run.StartTime.Format(time.RFC3339),
		"last_update": run.LastUpdated.Format(time.RFC3339),
	}

	if run.EndTime != nil {
		response["end_time"] = run.EndTime.Format(time.RFC3339)
	}
	if run.Error != "" {
		response["error"] = run.Error
	}

	if run.NumIter > 0 {
		response["iteration_status"] = run.IterationStatus
		response["iterations"] = run.NumIter
		response["f"] = run.FVal
		response["x"] = run.X
		response["num_func_eval"] = run.NumFuncEval
		response["num_grad_eval"] = run.NumGradEval
		response["num_hess_eval"] = run.NumHessEval
		response["elapsed_ms"] = float64(run.Elapsed.Microseconds()) / 1000.0

		history := make([]map[string]interface{}, len(run.History))
		for i, st := range run.History {
			history[i] = map[string]interface{}{
				"iteration": i + 1,
				"f":         st.FVal(),
				"x":         st.X(),
			}
		}
		response["history"] = history
	}

	return response, nil
}

// cancelRun requests cancellation of a running run.
func (s *Server) cancelRun(id string) error {
	if id == "" {
		return fmt.Errorf("run_id is required")
	}

	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	run, exists := s.runs[id]
	if !exists {
		return fmt.Errorf("run not found")
	}

	switch run.Status {
	case "completed", "failed", "cancelled":
		// Already in a terminal state
		return fmt.Errorf("cannot cancel run with status: %s", run.Status)
	}

	if run.CancelFunc != nil {
		run.CancelFunc()
	}

	s.logger.Info("Run cancellation requested", map[string]interface{}{
		"run_id": id,
	})

	return nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Error("Request error", map[string]interface{}{
		"status":  code,
		"message": message,
	})

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func (s *Server) newRunID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	s.nextID++
	return fmt.Sprintf("run_%d_%d", time.Now().UnixNano(), s.nextID)
}

// Close cancels all running solver runs.
func (s *Server) Close() error {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	for _, run := range s.runs {
		if run.CancelFunc != nil {
			run.CancelFunc()
		}
	}
	return nil
}

// handleSolve handles the HTTP POST /api/v1/solve endpoint.
func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req solveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	result, err := s.startRun(req)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(result)
}

// handleRunStatus handles the HTTP GET /api/v1/runs/{id} endpoint.
func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing run ID", http.StatusBadRequest)
		return
	}

	result, err := s.runStatus(id)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

// handleRunCancel handles the HTTP DELETE /api/v1/runs/{id} endpoint.
func (s *Server) handleRunCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing run ID", http.StatusBadRequest)
		return
	}

	err := s.cancelRun(id)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "cancellation requested",
	})
}

// handleProblems lists the objective catalog and available algorithms.
func (s *Server) handleProblems(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"problems":   testproblems.Names(),
		"algorithms": []string{"steepest_descent", "newton", "nelder_mead"},
	})
}
