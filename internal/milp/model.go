// Package milp builds the tjeng MILP encoding of a ReLU/linear network
// (spec §4.2, §4.3) on top of the narrow solver.Model interface, and
// the output-disagreement block that turns a probe clone into a
// counter-example search (spec §4.3's "added in the probe").
package milp

import (
	"fmt"
	"log"

	"explainer/internal/explainerr"
	"explainer/internal/interval"
	"explainer/internal/metrics"
	"explainer/internal/network"
	"explainer/internal/solver"
)

// bigM is the placeholder bound given to a freshly declared pre-activation
// or output variable before the bounds engine tightens it. It is never
// emitted as a final bound: boundNeuron always replaces it with the LP
// optimum, or with a box bound on LP failure.
const bigM = 1e6

// DisagreementMargin is epsilon in the output-disagreement constraint
// (spec §4.3, §9): the numeric margin forcing strict disagreement on a
// solver that only supports non-strict inequalities.
const DisagreementMargin = 1e-4

// Bounds holds the tightened pre-activation interval for every hidden
// neuron, layer by layer, and the output bound for every class -- the
// products of the bounds engine (spec §4.2), reused unchanged by every
// probe cloned from the Model that produced them.
type Bounds struct {
	Hidden [][]interval.Interval
	Output []interval.Interval
}

// Model is the base MILP encoding (spec's "MilpModel (base)"): input
// variables, one y/a/z triple per hidden neuron, one output variable per
// class, and the structural constraints linking them. It carries no
// per-input fixtures; Clone produces the mutable probe an explication owns.
type Model struct {
	Solver  solver.Model
	Net     *network.Network
	Domains []interval.Interval
	Bounds  *Bounds

	InputVars []solver.VarHandle
	HiddenY   [][]solver.VarHandle
	HiddenA   [][]solver.VarHandle
	HiddenZ   [][]solver.VarHandle
	OutputVar []solver.VarHandle
}

// Build constructs the base model: input variables bounded by domains,
// then layer by layer the tjeng encoding of every hidden neuron with
// bounds tightened by repeated LP solves (falling back to box bounds on
// failure), then the final linear layer's output equalities and bounds.
// met may be nil to skip encoder-size bookkeeping.
func Build(net *network.Network, domains []interval.Interval, slv solver.Model, met *metrics.Metrics, logger *log.Logger) (*Model, error) {
	if logger == nil {
		logger = log.Default()
	}
	if len(domains) != net.NIn() {
		return nil, fmt.Errorf("%w: network expects %d input features, got %d domains", explainerr.ErrInvalidInput, net.NIn(), len(domains))
	}

	m := &Model{Solver: slv, Net: net, Domains: domains, Bounds: &Bounds{}}

	inputVars := make([]solver.VarHandle, len(domains))
	for i, d := range domains {
		inputVars[i] = slv.AddVar(solver.Continuous, d.Lo, d.Hi, fmt.Sprintf("x_%d", i))
	}
	m.InputVars = inputVars
	addVars(met, len(domains), 0)

	prevA := inputVars
	boxBounds := domains

	nHidden := net.NHidden()
	m.HiddenY = make([][]solver.VarHandle, nHidden)
	m.HiddenA = make([][]solver.VarHandle, nHidden)
	m.HiddenZ = make([][]solver.VarHandle, nHidden)

	for k := 0; k < nHidden; k++ {
		l := net.Layers[k]
		boxNext := interval.PropagateLayer(boxBounds, l)

		yVars := make([]solver.VarHandle, l.NOut())
		aVars := make([]solver.VarHandle, l.NOut())
		zVars := make([]solver.VarHandle, l.NOut())
		boundsOut := make([]interval.Interval, l.NOut())

		for j := 0; j < l.NOut(); j++ {
			name := neuronName(k, j)
			yVar := slv.AddVar(solver.Continuous, -bigM, bigM, name+"_y")

			expr := solver.Expr{yVar: 1}
			for c, w := range l.W[j] {
				expr[prevA[c]] -= w
			}
			slv.AddConstraint(expr, solver.EQ, l.B[j])
			addConstraints(met, 1)

			lo, hi := boundNeuron(slv, yVar, boxNext[j].Lo, boxNext[j].Hi, logger, name)
			slv.SetBounds(yVar, lo, hi)

			aVar, zVar, nc := encodeReLU(slv, yVar, lo, hi, name)
			addConstraints(met, nc)
			addVars(met, 2, 1)

			yVars[j], aVars[j], zVars[j] = yVar, aVar, zVar
			boundsOut[j] = interval.Interval{Lo: lo, Hi: hi}
		}

		m.HiddenY[k], m.HiddenA[k], m.HiddenZ[k] = yVars, aVars, zVars
		m.Bounds.Hidden = append(m.Bounds.Hidden, boundsOut)
		prevA = aVars
		boxBounds = boxNext
	}

	outLayer := net.Layers[len(net.Layers)-1]
	boxOut := interval.PropagateLayer(boxBounds, outLayer)
	outVars := make([]solver.VarHandle, outLayer.NOut())
	outBounds := make([]interval.Interval, outLayer.NOut())

	for j := 0; j < outLayer.NOut(); j++ {
		oVar := slv.AddVar(solver.Continuous, -bigM, bigM, fmt.Sprintf("o_%d", j))
		expr := solver.Expr{oVar: 1}
		for c, w := range outLayer.W[j] {
			expr[prevA[c]] -= w
		}
		slv.AddConstraint(expr, solver.EQ, outLayer.B[j])
		addConstraints(met, 1)

		lo, hi := boundNeuron(slv, oVar, boxOut[j].Lo, boxOut[j].Hi, logger, fmt.Sprintf("o_%d", j))
		slv.SetBounds(oVar, lo, hi)
		addVars(met, 1, 0)

		outVars[j] = oVar
		outBounds[j] = interval.Interval{Lo: lo, Hi: hi}
	}
	m.OutputVar = outVars
	m.Bounds.Output = outBounds

	return m, nil
}

// Clone returns an independent probe: a cloned solver.Model plus copies of
// every variable-handle slice (the handle values themselves stay valid
// because Solver.Clone preserves variable/constraint numbering).
func (m *Model) Clone() *Model {
	c := &Model{
		Solver:    m.Solver.Clone(),
		Net:       m.Net,
		Domains:   m.Domains,
		Bounds:    m.Bounds,
		InputVars: append([]solver.VarHandle(nil), m.InputVars...),
		OutputVar: append([]solver.VarHandle(nil), m.OutputVar...),
		HiddenY:   copyHandleGrid(m.HiddenY),
		HiddenA:   copyHandleGrid(m.HiddenA),
		HiddenZ:   copyHandleGrid(m.HiddenZ),
	}
	return c
}

// FixInput adds the equality x_i = v and returns its constraint handle, so
// the caller can later RemoveConstraint it.
func (m *Model) FixInput(i int, v float64) solver.ConstrHandle {
	return m.Solver.AddConstraint(solver.Expr{m.InputVars[i]: 1}, solver.EQ, v)
}

// RemoveConstraint drops a previously added constraint (an input fixture or
// a disagreement-block constraint) from the probe.
func (m *Model) RemoveConstraint(h solver.ConstrHandle) {
	m.Solver.RemoveConstraint(h)
}

// Solve runs the full MILP feasibility query on the probe's current
// constraint set.
func (m *Model) Solve() (solver.Status, error) {
	status, err := m.Solver.SolveMILP()
	if err != nil {
		return status, fmt.Errorf("%w: %v", explainerr.ErrSolverError, err)
	}
	return status, nil
}

func copyHandleGrid(g [][]solver.VarHandle) [][]solver.VarHandle {
	out := make([][]solver.VarHandle, len(g))
	for i, row := range g {
		out[i] = append([]solver.VarHandle(nil), row...)
	}
	return out
}

func addVars(met *metrics.Metrics, continuous, binary int) {
	if met == nil {
		return
	}
	met.AddContinuousVars(continuous)
	met.AddBinaryVars(binary)
}

func addConstraints(met *metrics.Metrics, n int) {
	if met == nil {
		return
	}
	met.AddConstraints(n)
}
