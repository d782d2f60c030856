package solver

// IterationStatus reports the outcome of a single iteration step.
type IterationStatus int

const (
	// Continue means the iteration made acceptable progress and the loop
	// should keep going.
	Continue IterationStatus = iota
	// Success means a stopping condition, built-in or external, is satisfied.
	Success
	// NoProgress means the algorithm detected stagnation below its numerical
	// tolerance without satisfying a success criterion.
	NoProgress
	// OutOfControl means the iterate diverged, overflowed or became
	// non-finite.
	OutOfControl
)

var statusStrings = map[IterationStatus]string{
	Continue:     "Continue",
	Success:      "Success",
	NoProgress:   "NoProgress",
	OutOfControl: "OutOfControl",
}

func (s IterationStatus) String() string {
	str, ok := statusStrings[s]
	if !ok {
		return "UnknownStatus"
	}
	return str
}

// Terminal reports whether the status ends the iteration loop.
func (s IterationStatus) Terminal() bool {
	return s != Continue
}

// Failed reports whether the status is a failure outcome. NoProgress is a
// distinct reported outcome, not a failure.
func (s IterationStatus) Failed() bool {
	return s == OutOfControl
}
