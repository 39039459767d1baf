package network

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"explainer/internal/explainerr"
)

// tiny2x2 builds a 2-input, 2-hidden-neuron, 2-class network, the same shape
// as the fixtures of the explication test scenarios (S1-S6 in spec.md §8).
func tiny2x2(w0 [][]float64, b0 []float64, w1 [][]float64, b1 []float64) *Network {
	n, err := New([]Layer{
		{W: w0, B: b0, Act: ActReLU},
		{W: w1, B: b1, Act: ActLinear},
	})
	if err != nil {
		panic(err)
	}
	return n
}

func TestNew_ShapeMismatch(t *testing.T) {
	_, err := New([]Layer{
		{W: [][]float64{{1, 2}, {3, 4}}, B: []float64{0, 0}, Act: ActReLU},
		{W: [][]float64{{1, 2, 3}}, B: []float64{0}, Act: ActLinear},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, explainerr.ErrShapeMismatch))
}

func TestNew_FinalLayerMustBeLinear(t *testing.T) {
	_, err := New([]Layer{
		{W: [][]float64{{1}}, B: []float64{0}, Act: ActReLU},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, explainerr.ErrShapeMismatch))
}

func TestForward_ReLUThenLinear(t *testing.T) {
	n := tiny2x2(
		[][]float64{{1, 0}, {0, 1}},
		[]float64{-0.5, -0.5},
		[][]float64{{1, -1}, {-1, 1}},
		[]float64{0, 0},
	)
	out := n.Forward([]float64{1, 0})
	// hidden: relu(1-0.5)=0.5, relu(0-0.5)=0 -> out0 = 0.5, out1 = -0.5
	assert.InDelta(t, 0.5, out[0], 1e-9)
	assert.InDelta(t, -0.5, out[1], 1e-9)
	assert.False(t, math.IsNaN(out[0]))
}

func TestPredict_Argmax(t *testing.T) {
	n := tiny2x2(
		[][]float64{{1, 0}, {0, 1}},
		[]float64{0, 0},
		[][]float64{{1, 0}, {0, 1}},
		[]float64{0, 0},
	)
	assert.Equal(t, 0, n.Predict([]float64{1, 0}))
	assert.Equal(t, 1, n.Predict([]float64{0, 1}))
}

func TestValidateInput(t *testing.T) {
	n := tiny2x2(
		[][]float64{{1, 0}, {0, 1}},
		[]float64{0, 0},
		[][]float64{{1, 0}, {0, 1}},
		[]float64{0, 0},
	)
	assert.NoError(t, n.ValidateInput([]float64{1, 2}))
	err := n.ValidateInput([]float64{1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, explainerr.ErrInvalidInput))
}
