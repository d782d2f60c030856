package solver

import (
	"sort"

	oerrors "github.com/chandu8542/otkpp/internal/errors"
)

// Setup is the named-option bag handed to a concrete algorithm at setup
// time. The recognized keys, their defaults, and the policy for unrecognized
// keys are documented by each algorithm package.
type Setup map[string]float64

// DefaultSetup returns an empty option bag: every algorithm tunable keeps
// its documented default.
func DefaultSetup() Setup {
	return Setup{}
}

// Get returns the value for key, or def when the key is absent.
func (s Setup) Get(key string, def float64) float64 {
	if s == nil {
		return def
	}
	if v, ok := s[key]; ok {
		return v
	}
	return def
}

// Validate returns a configuration error naming the first option key not in
// recognized. Algorithms with a strict option policy call this from Init.
func (s Setup) Validate(recognized ...string) error {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		known := false
		for _, r := range recognized {
			if k == r {
				known = true
				break
			}
		}
		if !known {
			return oerrors.Errorf("unrecognized option %q", k).
				WithOperation("setup").
				WithKind(oerrors.KindConfig)
		}
	}
	return nil
}
