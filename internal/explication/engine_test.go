package explication

import (
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"explainer/internal/interval"
	"explainer/internal/metrics"
	"explainer/internal/milp"
	"explainer/internal/network"
	"explainer/internal/solver/gonumlp"
)

// sumDiffNet is the x0+x1 / x0-x1 network used for the metric-accounting,
// cloning-isolation and with/without-box scenarios.
func sumDiffNet(t *testing.T) *network.Network {
	t.Helper()
	n, err := network.New([]network.Layer{
		{W: [][]float64{{1, 1}, {1, -1}}, B: []float64{0, 0}, Act: network.ActReLU},
		{W: [][]float64{{1, 0}, {0, 1}}, B: []float64{0, 0}, Act: network.ActLinear},
	})
	require.NoError(t, err)
	return n
}

// weightedSignNet computes s = wx0*x0 + wx1*x1 via the relu(s)-relu(-s)
// identity trick, then o0 = s, o1 = -s, so the predicted class is
// sign(s): 0 when s >= 0 (ties favor 0), 1 otherwise.
func weightedSignNet(t *testing.T, wx0, wx1 float64) *network.Network {
	t.Helper()
	n, err := network.New([]network.Layer{
		{W: [][]float64{{wx0, wx1}, {-wx0, -wx1}}, B: []float64{0, 0}, Act: network.ActReLU},
		{W: [][]float64{{1, -1}, {-1, 1}}, B: []float64{0, 0}, Act: network.ActLinear},
	})
	require.NoError(t, err)
	return n
}

func domainsPM1(n int) []interval.Interval {
	d := make([]interval.Interval, n)
	for i := range d {
		d[i] = interval.Interval{Lo: -1, Hi: 1}
	}
	return d
}

func newEngine(t *testing.T, net *network.Network, domains []interval.Interval, met *metrics.Metrics) *Engine {
	t.Helper()
	base, err := milp.Build(net, domains, gonumlp.New(), met, log.Default())
	require.NoError(t, err)
	return New(base, domains, net, met, log.Default())
}

// S1: output depends only on x0 (weight 0 on x1) -- x1 is a tautological
// (fully irrelevant) feature.
func TestExplain_S1_TautologicalFeature(t *testing.T) {
	net := weightedSignNet(t, 1, 0)
	domains := domainsPM1(2)
	e := newEngine(t, net, domains, nil)

	x := []float64{0.5, 0.3}
	predicted := net.Predict(x)
	require.Equal(t, 0, predicted)

	res, err := e.Explain(x, predicted, true)
	require.NoError(t, err)
	assert.Equal(t, Mask{true, false}, res.Relevant)
	assert.True(t, res.DroppedByBox[1], "x1 has zero weight; box alone must prove it irrelevant")
}

// S2: near-decision-boundary input on the sign(x0+x1) network -- both
// features matter.
func TestExplain_S2_AllFeaturesRelevant(t *testing.T) {
	net := weightedSignNet(t, 1, 1)
	domains := domainsPM1(2)
	e := newEngine(t, net, domains, nil)

	x := []float64{0.01, 0.01}
	predicted := net.Predict(x)
	require.Equal(t, 0, predicted)

	res, err := e.Explain(x, predicted, true)
	require.NoError(t, err)
	assert.Equal(t, Mask{true, true}, res.Relevant)
}

// S3: box propagation alone proves irrelevance for a zero-weight feature,
// without any solver call recording a drop for it.
func TestExplain_S3_BoxDropsIrrelevantFeatureWithoutSolver(t *testing.T) {
	net := weightedSignNet(t, 1, 0)
	domains := domainsPM1(2)
	met := &metrics.Metrics{}
	e := newEngine(t, net, domains, met)

	x := []float64{0.5, 0.3}
	predicted := net.Predict(x)

	res, err := e.Explain(x, predicted, true)
	require.NoError(t, err)
	assert.True(t, res.DroppedByBox[1])
	assert.Equal(t, 1, met.IrrelevantByBox)
}

// S4: order dependence via two features of very unequal influence -- the
// first (dominant) feature in column order stays relevant, the second
// (whose range cannot flip the sign once the first is fixed) is dropped.
func TestExplain_S4_OrderDependence(t *testing.T) {
	net := weightedSignNet(t, 10, 1)
	domains := domainsPM1(2)
	e := newEngine(t, net, domains, nil)

	x := []float64{0.5, 0.3}
	predicted := net.Predict(x)
	require.Equal(t, 0, predicted)

	res, err := e.Explain(x, predicted, true)
	require.NoError(t, err)
	assert.Equal(t, Mask{true, false}, res.Relevant)
}

// S5: across several inputs, irrelevant_by_box + irrelevant_by_solver
// equals the total number of dropped feature-slots.
func TestExplain_S5_MetricAccounting(t *testing.T) {
	net := sumDiffNet(t)
	domains := domainsPM1(2)
	met := &metrics.Metrics{}
	e := newEngine(t, net, domains, met)

	inputs := [][]float64{{0.01, 0.01}, {1, 0}, {-1, 0}, {0.9, -0.9}}
	totalDropped := 0
	for _, x := range inputs {
		predicted := net.Predict(x)
		res, err := e.Explain(x, predicted, true)
		require.NoError(t, err)
		for _, rel := range res.Relevant {
			if !rel {
				totalDropped++
			}
		}
	}
	assert.Equal(t, totalDropped, met.IrrelevantByBox+met.IrrelevantBySolver)
}

// S6: cloning isolation -- explaining two inputs back to back gives the
// same per-input result regardless of which order they run in, since each
// Explain call clones an untouched base model.
func TestExplain_S6_CloningIsolation(t *testing.T) {
	net := sumDiffNet(t)
	domains := domainsPM1(2)

	a := []float64{0.01, 0.01}
	b := []float64{1, -1}

	e1 := newEngine(t, net, domains, nil)
	resA1, err := e1.Explain(a, net.Predict(a), true)
	require.NoError(t, err)
	resB1, err := e1.Explain(b, net.Predict(b), true)
	require.NoError(t, err)

	e2 := newEngine(t, net, domains, nil)
	resB2, err := e2.Explain(b, net.Predict(b), true)
	require.NoError(t, err)
	resA2, err := e2.Explain(a, net.Predict(a), true)
	require.NoError(t, err)

	assert.Equal(t, resA1.Relevant, resA2.Relevant)
	assert.Equal(t, resB1.Relevant, resB2.Relevant)
}

func TestExplain_InvalidInputShape(t *testing.T) {
	net := sumDiffNet(t)
	domains := domainsPM1(2)
	e := newEngine(t, net, domains, nil)

	_, err := e.Explain([]float64{1}, 0, true)
	assert.Error(t, err)
}

func TestExplain_WithoutBox_MatchesWithBox(t *testing.T) {
	net := sumDiffNet(t)
	domains := domainsPM1(2)
	e := newEngine(t, net, domains, nil)

	x := []float64{0.5, 0.3}
	predicted := net.Predict(x)

	withBox, err := e.Explain(x, predicted, true)
	require.NoError(t, err)
	withoutBox, err := e.Explain(x, predicted, false)
	require.NoError(t, err)

	assert.Equal(t, withBox.Relevant, withoutBox.Relevant)
}
