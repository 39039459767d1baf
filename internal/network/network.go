// Package network holds the frozen representation of a trained feed-forward
// classifier: an ordered list of dense layers, each either ReLU or linear,
// with a softmax head inverted into an argmax comparison on the final
// linear layer's logits.
package network

import (
	"fmt"

	"explainer/internal/explainerr"
)

// Act tags a layer's activation function.
type Act int

const (
	// ActReLU is a rectified-linear hidden layer.
	ActReLU Act = iota
	// ActLinear is the final (logit) layer. Softmax is inverted into
	// argmax comparisons, so no activation is applied here.
	ActLinear
)

func (a Act) String() string {
	if a == ActReLU {
		return "relu"
	}
	return "linear"
}

// Layer is one dense layer: W is [nOut][nIn], B has length nOut.
type Layer struct {
	W   [][]float64
	B   []float64
	Act Act
}

// NIn returns the layer's input width.
func (l Layer) NIn() int {
	if len(l.W) == 0 {
		return 0
	}
	return len(l.W[0])
}

// NOut returns the layer's output width.
func (l Layer) NOut() int {
	return len(l.W)
}

// Network is an ordered, immutable stack of layers. The last layer must be
// ActLinear (spec: "softmax is inverted into argmax comparisons").
type Network struct {
	Layers []Layer
}

// New validates layer shape consistency and returns a Network.
// Returns explainerr.ErrShapeMismatch if any layer's output width doesn't
// match the next layer's input width, or if the final layer is not linear.
func New(layers []Layer) (*Network, error) {
	for k := 0; k < len(layers); k++ {
		l := layers[k]
		if len(l.W) != len(l.B) {
			return nil, fmt.Errorf("%w: layer %d has %d output rows but %d biases", explainerr.ErrShapeMismatch, k, len(l.W), len(l.B))
		}
		for _, row := range l.W {
			if len(row) != l.NIn() {
				return nil, fmt.Errorf("%w: layer %d has ragged weight rows", explainerr.ErrShapeMismatch, k)
			}
		}
		if k+1 < len(layers) && l.NOut() != layers[k+1].NIn() {
			return nil, fmt.Errorf("%w: layer %d outputs %d but layer %d expects %d inputs",
				explainerr.ErrShapeMismatch, k, l.NOut(), k+1, layers[k+1].NIn())
		}
	}
	if len(layers) > 0 && layers[len(layers)-1].Act != ActLinear {
		return nil, fmt.Errorf("%w: final layer must be linear", explainerr.ErrShapeMismatch)
	}
	return &Network{Layers: layers}, nil
}

// NIn returns the number of input features the network expects.
func (n *Network) NIn() int {
	if len(n.Layers) == 0 {
		return 0
	}
	return n.Layers[0].NIn()
}

// NOut returns the number of output classes.
func (n *Network) NOut() int {
	if len(n.Layers) == 0 {
		return 0
	}
	return n.Layers[len(n.Layers)-1].NOut()
}

// NHidden returns the number of hidden (non-final) layers.
func (n *Network) NHidden() int {
	if len(n.Layers) == 0 {
		return 0
	}
	return len(n.Layers) - 1
}

// Forward computes the network's pre-softmax logits for a single input.
func (n *Network) Forward(input []float64) []float64 {
	x := input
	for _, l := range n.Layers {
		y := make([]float64, l.NOut())
		for j := 0; j < l.NOut(); j++ {
			sum := l.B[j]
			row := l.W[j]
			for k, w := range row {
				sum += w * x[k]
			}
			y[j] = sum
		}
		if l.Act == ActReLU {
			for j := range y {
				if y[j] < 0 {
					y[j] = 0
				}
			}
		}
		x = y
	}
	return x
}

// Predict returns the argmax class of the network's logits for x.
func (n *Network) Predict(x []float64) int {
	return Argmax(n.Forward(x))
}

// Argmax returns the index of the largest element, breaking ties toward the
// lowest index (matching numpy.argmax, which the original implementation
// relies on for the predicted class).
func Argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// ValidateInput checks that x has the width the network expects.
func (n *Network) ValidateInput(x []float64) error {
	if len(x) != n.NIn() {
		return fmt.Errorf("%w: expected %d features, got %d", explainerr.ErrInvalidInput, n.NIn(), len(x))
	}
	return nil
}
