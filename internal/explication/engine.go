// Package explication implements the feature-elimination loop (spec §4.4):
// given a built base MILP model and a concrete (x, predicted class), it
// iteratively frees each feature and proves -- via the box propagator
// first, falling back to the MILP solver -- whether freeing it, together
// with the features already dropped, can ever flip the prediction.
package explication

import (
	"fmt"
	"log"
	"time"

	"explainer/internal/explainerr"
	"explainer/internal/interval"
	"explainer/internal/metrics"
	"explainer/internal/milp"
	"explainer/internal/network"
	"explainer/internal/solver"
)

// Mask is a boolean vector over features, true meaning "still fixed" when
// used mid-loop, or "relevant" in a final Result (spec's ExplicationMask).
type Mask []bool

// Result is one input's outcome: the minimal-under-this-order relevant
// feature set, and which of those drops (if any) the box alone proved.
type Result struct {
	Relevant     Mask
	DroppedByBox Mask
}

// Engine runs explications against a shared, read-only base model (spec
// §5: "the base MILP model is read-only after construction"). Metrics and
// Logger may be nil.
type Engine struct {
	Base    *milp.Model
	Domains []interval.Interval
	Net     *network.Network
	Metrics *metrics.Metrics
	Logger  *log.Logger
}

// New constructs an Engine over an already-built base model.
func New(base *milp.Model, domains []interval.Interval, net *network.Network, met *metrics.Metrics, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{Base: base, Domains: domains, Net: net, Metrics: met, Logger: logger}
}

// Explain runs the procedure of spec §4.4 for one input: clone the base
// model, fix every input, add the output-disagreement block for predicted,
// then iterate features in column order, dropping each when the box (if
// useBox) or the solver proves no counter-example exists after freeing it.
//
// A solver error aborts this explication only (spec §7): already-confirmed
// drops are not unwound, but no further features are tested, and err is
// non-nil.
func (e *Engine) Explain(x []float64, predicted int, useBox bool) (Result, error) {
	if err := e.Net.ValidateInput(x); err != nil {
		return Result{}, err
	}
	if predicted < 0 || predicted >= e.Net.NOut() {
		return Result{}, fmt.Errorf("%w: predicted class %d out of range [0,%d)", explainerr.ErrInvalidInput, predicted, e.Net.NOut())
	}

	probe := e.Base.Clone()
	n := len(x)

	eqHandles := make([]solver.ConstrHandle, n)
	for i, v := range x {
		eqHandles[i] = probe.FixInput(i, v)
	}
	probe.AddDisagreement(predicted, e.Metrics)

	relevant := make(Mask, n)
	droppedByBox := make(Mask, n)
	for i := range relevant {
		relevant[i] = true
	}

	start := time.Now()
	var boxElapsed time.Duration

	for i := 0; i < n; i++ {
		probe.RemoveConstraint(eqHandles[i])
		relevant[i] = false

		if useBox {
			boxStart := time.Now()
			relaxMask := make([]bool, n)
			for j := range relaxMask {
				relaxMask[j] = !relevant[j]
			}
			bounds := interval.RelaxToBounds(x, e.Domains, relaxMask)
			hasSolution := interval.HasSolution(bounds, e.Net, predicted)
			boxElapsed += time.Since(boxStart)

			if !hasSolution {
				droppedByBox[i] = true
				if e.Metrics != nil {
					e.Metrics.RecordBoxDrop()
				}
				continue
			}
		}

		status, err := probe.Solve()
		if err != nil {
			return Result{}, err
		}
		switch status {
		case solver.StatusInfeasible:
			if e.Metrics != nil {
				e.Metrics.RecordSolverDrop()
			}
			// leave the equality removed: confirmed irrelevant.
		case solver.StatusOptimal:
			eqHandles[i] = probe.FixInput(i, x[i])
			relevant[i] = true
		default:
			return Result{}, fmt.Errorf("%w: probe for feature %d returned status %v", explainerr.ErrSolverError, i, status)
		}
	}

	if e.Metrics != nil {
		e.Metrics.RecordExplication(time.Since(start), boxElapsed, useBox)
	}

	return Result{Relevant: relevant, DroppedByBox: droppedByBox}, nil
}
