package milp

import (
	"fmt"

	"explainer/internal/metrics"
	"explainer/internal/solver"
)

// Disagreement is the output-disagreement block (spec §4.3, §4.4): a probe
// is feasible with this block present iff some non-predicted class can
// still outscore the predicted one under the probe's current fixtures.
type Disagreement struct {
	Predicted   int
	QVars       []solver.VarHandle
	Classes     []int // output class each entry of QVars refers to
	constraints []solver.ConstrHandle
}

// AddDisagreement adds, for every class m != predicted, a binary q_m and
// the constraint o_m - o_c >= eps - (U_m - L_c)(1 - q_m), plus sum(q) >= 1.
// met may be nil.
func (m *Model) AddDisagreement(predicted int, met *metrics.Metrics) *Disagreement {
	lc := m.Bounds.Output[predicted].Lo
	oc := m.OutputVar[predicted]

	d := &Disagreement{Predicted: predicted}
	sum := solver.Expr{}

	for classIdx, oVar := range m.OutputVar {
		if classIdx == predicted {
			continue
		}
		um := m.Bounds.Output[classIdx].Hi
		bigMTerm := um - lc

		q := m.Solver.AddVar(solver.Binary, 0, 1, fmt.Sprintf("q_%d", classIdx))
		addVars(met, 0, 1)

		// o_m - o_c - (U_m - L_c)*q_m >= eps - (U_m - L_c)
		h := m.Solver.AddConstraint(solver.Expr{oVar: 1, oc: -1, q: -bigMTerm}, solver.GE, DisagreementMargin-bigMTerm)
		addConstraints(met, 1)

		d.QVars = append(d.QVars, q)
		d.Classes = append(d.Classes, classIdx)
		d.constraints = append(d.constraints, h)
		sum[q] = 1
	}

	h := m.Solver.AddConstraint(sum, solver.GE, 1)
	addConstraints(met, 1)
	d.constraints = append(d.constraints, h)

	return d
}

// RemoveDisagreement deactivates every constraint the block added. The q
// variables themselves are left declared but unconstrained; they are never
// reused once removed, and the probe is discarded at the end of an
// explication (spec §3's lifecycle), so this is harmless.
func (m *Model) RemoveDisagreement(d *Disagreement) {
	for _, h := range d.constraints {
		m.Solver.RemoveConstraint(h)
	}
}
