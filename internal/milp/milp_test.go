package milp

import (
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"explainer/internal/interval"
	"explainer/internal/network"
	"explainer/internal/solver"
	"explainer/internal/solver/gonumlp"
)

// tinyNet is the 2-input, 2-hidden-neuron, 2-class network used throughout
// (mirrors the fixture named in the testable-properties scenarios): hidden
// neurons compute x0+x1 and x0-x1, ReLU'd, then pass straight through as
// the two class logits.
func tinyNet(t *testing.T) *network.Network {
	t.Helper()
	n, err := network.New([]network.Layer{
		{W: [][]float64{{1, 1}, {1, -1}}, B: []float64{0, 0}, Act: network.ActReLU},
		{W: [][]float64{{1, 0}, {0, 1}}, B: []float64{0, 0}, Act: network.ActLinear},
	})
	require.NoError(t, err)
	return n
}

func tinyDomains() []interval.Interval {
	return []interval.Interval{{Lo: -1, Hi: 1}, {Lo: -1, Hi: 1}}
}

func buildTiny(t *testing.T) *Model {
	t.Helper()
	net := tinyNet(t)
	m, err := Build(net, tinyDomains(), gonumlp.New(), nil, log.Default())
	require.NoError(t, err)
	return m
}

func TestBuild_BoundsMatchExactAnalyticRange(t *testing.T) {
	m := buildTiny(t)
	require.Len(t, m.Bounds.Hidden, 1)
	assert.InDelta(t, -2, m.Bounds.Hidden[0][0].Lo, 1e-6)
	assert.InDelta(t, 2, m.Bounds.Hidden[0][0].Hi, 1e-6)
	assert.InDelta(t, -2, m.Bounds.Hidden[0][1].Lo, 1e-6)
	assert.InDelta(t, 2, m.Bounds.Hidden[0][1].Hi, 1e-6)
}

func TestBuild_EncodingMatchesForward(t *testing.T) {
	net := tinyNet(t)
	samples := [][]float64{{1, 0.2}, {-0.3, 0.7}, {0, 0}, {-1, -1}, {1, 1}}

	for _, x := range samples {
		m := buildTiny(t)
		var handles []solver.ConstrHandle
		for i, v := range x {
			handles = append(handles, m.FixInput(i, v))
		}
		status, err := m.Solve()
		require.NoError(t, err)
		require.Equal(t, solver.StatusOptimal, status)

		want := net.Forward(x)
		for j, oVar := range m.OutputVar {
			assert.InDelta(t, want[j], m.Solver.Value(oVar), 1e-6)
		}
		_ = handles
	}
}

func TestAddDisagreement_InfeasibleWhenInputFullyPinnedToItsOwnPrediction(t *testing.T) {
	net := tinyNet(t)
	x := []float64{1, 0.2}
	predicted := net.Predict(x)
	require.Equal(t, 0, predicted)

	m := buildTiny(t)
	for i, v := range x {
		m.FixInput(i, v)
	}
	m.AddDisagreement(predicted, nil)

	status, err := m.Solve()
	require.NoError(t, err)
	assert.Equal(t, solver.StatusInfeasible, status)
}

func TestAddDisagreement_FeasibleWhenDomainAdmitsACounterExample(t *testing.T) {
	m := buildTiny(t)
	// No inputs fixed: class 1 can strictly outscore class 0 somewhere in
	// the box (e.g. x = (0, -1) -> hidden (0, 1) -> logits (0, 1)).
	m.AddDisagreement(0, nil)

	status, err := m.Solve()
	require.NoError(t, err)
	assert.Equal(t, solver.StatusOptimal, status)
}

func TestRemoveDisagreement_RestoresPlainFeasibility(t *testing.T) {
	m := buildTiny(t)
	x := []float64{1, 0.2}
	for i, v := range x {
		m.FixInput(i, v)
	}
	d := m.AddDisagreement(0, nil)

	status, err := m.Solve()
	require.NoError(t, err)
	require.Equal(t, solver.StatusInfeasible, status)

	m.RemoveDisagreement(d)
	status, err = m.Solve()
	require.NoError(t, err)
	assert.Equal(t, solver.StatusOptimal, status)
}

func TestClone_ProbesAreIndependent(t *testing.T) {
	base := buildTiny(t)
	probeA := base.Clone()
	probeB := base.Clone()

	hA := probeA.FixInput(0, 1)
	probeA.FixInput(1, 0.2)
	_ = hA
	probeB.FixInput(0, -0.3)
	probeB.FixInput(1, 0.7)

	statusA, err := probeA.Solve()
	require.NoError(t, err)
	require.Equal(t, solver.StatusOptimal, statusA)
	assert.InDelta(t, 1.2, probeA.Solver.Value(probeA.OutputVar[0]), 1e-6)

	statusB, err := probeB.Solve()
	require.NoError(t, err)
	require.Equal(t, solver.StatusOptimal, statusB)
	assert.InDelta(t, 0.4, probeB.Solver.Value(probeB.OutputVar[0]), 1e-6)
}
