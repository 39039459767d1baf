// Package explainerr defines the error kinds shared across the certification
// engine (network encoding, bound tightening, MILP solving, explication).
package explainerr

import "errors"

// Sentinel error kinds. Wrap with fmt.Errorf("...: %w", Kind) at the call
// site to attach context; check with errors.Is.
var (
	// ErrShapeMismatch means layer dimensions are inconsistent. Fatal during
	// encoding.
	ErrShapeMismatch = errors.New("explainerr: layer shape mismatch")

	// ErrBoundFailure means an LP during bound tightening was unbounded or
	// infeasible. Recovered locally by falling back to box bounds; never
	// fatal.
	ErrBoundFailure = errors.New("explainerr: bound-tightening LP failed")

	// ErrSolverError means a MILP solve failed unexpectedly (not simply
	// infeasible). Aborts the current explication.
	ErrSolverError = errors.New("explainerr: solver error")

	// ErrInvalidInput means a feature vector's shape disagrees with the
	// network. Fatal.
	ErrInvalidInput = errors.New("explainerr: invalid input")
)

// Infeasible is deliberately NOT an error kind here: a probe returning no
// solution is the irrelevance signal (spec §7), not a failure.
