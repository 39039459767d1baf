package milp

import (
	"fmt"
	"log"

	"explainer/internal/explainerr"
	"explainer/internal/solver"
)

// boundNeuron solves min yVar and max yVar against the model's current
// constraints to obtain the tightest pre-activation bounds the LP
// relaxation can prove (spec §4.2 step 2a). If either LP comes back
// anything other than optimal -- unbounded in the direction solved, or
// (defensively) infeasible -- it falls back to the box bounds already known
// for this neuron and logs a warning; this is the only place BoundFailure
// is recovered rather than surfaced.
func boundNeuron(slv solver.Model, yVar solver.VarHandle, boxLo, boxHi float64, logger *log.Logger, name string) (lo, hi float64) {
	lo, fellBack := solveDirection(slv, yVar, false, boxLo, logger, name, "lower")
	hi, fellBackHi := solveDirection(slv, yVar, true, boxHi, logger, name, "upper")
	_ = fellBack
	_ = fellBackHi
	return lo, hi
}

func solveDirection(slv solver.Model, v solver.VarHandle, maximize bool, boxFallback float64, logger *log.Logger, name, dir string) (float64, bool) {
	slv.SetObjective(solver.Expr{v: 1}, maximize)
	status, err := slv.SolveLP()
	if err != nil {
		wrapped := fmt.Errorf("%w: %s bound-tightening LP errored for %s: %w", explainerr.ErrBoundFailure, dir, name, err)
		logger.Printf("milp: %v, falling back to box bound", wrapped)
		return boxFallback, true
	}
	switch status {
	case solver.StatusOptimal:
		return slv.Value(v), false
	default:
		wrapped := fmt.Errorf("%w: %s bound-tightening LP for %s was %v", explainerr.ErrBoundFailure, dir, name, status)
		logger.Printf("milp: %v, falling back to box bound %.6g", wrapped, boxFallback)
		return boxFallback, true
	}
}
