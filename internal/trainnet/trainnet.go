// Package trainnet trains a dense ReLU/softmax classifier with the same
// He-init + Adam + mini-batch shape as internal/predictor/nn.go, generalized
// from single-output MSE regression to multi-class softmax-cross-entropy
// classification (matching original_source's src/models/utils.py train(),
// which compiles Dense(relu)*+Dense(softmax) with
// SparseCategoricalCrossentropy). Training itself is a peripheral
// collaborator (spec §1): this package exists to hand the certification
// engine a concrete network to certify.
package trainnet

import (
	"encoding/json"
	"math"
	"math/rand/v2"

	"explainer/internal/network"
)

// Layer is one dense layer plus its Adam optimizer state and cached
// forward-pass activations, mirroring internal/predictor/nn.go's Layer.
type Layer struct {
	Weights [][]float64 `json:"weights"` // [out][in]
	Biases  []float64   `json:"biases"`

	mW, vW [][]float64
	mB, vB []float64

	input  []float64
	output []float64
	dW     [][]float64
	dB     []float64
}

// Net is a feedforward network with ReLU hidden layers and a linear (logit)
// output layer, trained against a softmax-cross-entropy objective.
type Net struct {
	Layers []Layer `json:"layers"`
}

// Config holds Adam hyperparameters, mirroring predictor.TrainConfig.
type Config struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	BatchSize    int
	Epochs       int
}

// DefaultConfig returns sensible Adam defaults.
func DefaultConfig() Config {
	return Config{
		LearningRate: 1e-3,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		BatchSize:    32,
		Epochs:       100,
	}
}

// New creates a network with He initialization. sizes is [nIn, hidden..., nClasses].
func New(sizes []int, rng *rand.Rand) *Net {
	n := &Net{Layers: make([]Layer, len(sizes)-1)}
	for i := 0; i < len(sizes)-1; i++ {
		in, out := sizes[i], sizes[i+1]
		stddev := math.Sqrt(2.0 / float64(in))
		l := Layer{
			Weights: make([][]float64, out),
			Biases:  make([]float64, out),
		}
		for j := 0; j < out; j++ {
			l.Weights[j] = make([]float64, in)
			for k := 0; k < in; k++ {
				l.Weights[j][k] = rng.NormFloat64() * stddev
			}
		}
		n.Layers[i] = l
	}
	n.initAdam()
	return n
}

func (n *Net) initAdam() {
	for i := range n.Layers {
		l := &n.Layers[i]
		out := len(l.Weights)
		in := len(l.Weights[0])
		l.mW, l.vW, l.dW = makeMatrix(out, in), makeMatrix(out, in), makeMatrix(out, in)
		l.mB, l.vB, l.dB = make([]float64, out), make([]float64, out), make([]float64, out)
	}
}

// Forward computes the network's logits, caching activations for Backward.
// Hidden layers use ReLU; the last layer is linear (softmax is applied only
// at the loss, matching network.Network's convention of exposing logits).
func (n *Net) Forward(input []float64) []float64 {
	x := input
	for i := range n.Layers {
		l := &n.Layers[i]
		l.input = append([]float64(nil), x...)

		out := len(l.Weights)
		y := make([]float64, out)
		for j := 0; j < out; j++ {
			sum := l.Biases[j]
			for k, w := range l.Weights[j] {
				sum += w * x[k]
			}
			y[j] = sum
		}
		if i < len(n.Layers)-1 {
			for j := range y {
				if y[j] < 0 {
					y[j] = 0
				}
			}
		}
		l.output = y
		x = y
	}
	return x
}

// Backward propagates the softmax-cross-entropy gradient dLogits (softmax
// output minus the one-hot target) back through the network, accumulating
// into each layer's dW/dB. Must follow a Forward call on the same input.
func (n *Net) Backward(dLogits []float64) {
	dx := dLogits
	for i := len(n.Layers) - 1; i >= 0; i-- {
		l := &n.Layers[i]
		out := len(l.Weights)
		in := len(l.Weights[0])

		if i < len(n.Layers)-1 {
			for j := 0; j < out; j++ {
				if l.output[j] <= 0 {
					dx[j] = 0
				}
			}
		}

		for j := 0; j < out; j++ {
			l.dB[j] += dx[j]
			for k := 0; k < in; k++ {
				l.dW[j][k] += dx[j] * l.input[k]
			}
		}

		if i > 0 {
			dInput := make([]float64, in)
			for k := 0; k < in; k++ {
				for j := 0; j < out; j++ {
					dInput[k] += dx[j] * l.Weights[j][k]
				}
			}
			dx = dInput
		}
	}
}

// ZeroGrad resets accumulated gradients.
func (n *Net) ZeroGrad() {
	for i := range n.Layers {
		l := &n.Layers[i]
		for j := range l.dW {
			for k := range l.dW[j] {
				l.dW[j][k] = 0
			}
			l.dB[j] = 0
		}
	}
}

// UpdateAdam applies one Adam update step (1-based global step count).
func (n *Net) UpdateAdam(cfg Config, step int) {
	for i := range n.Layers {
		l := &n.Layers[i]
		for j := range l.Weights {
			for k := range l.Weights[j] {
				l.mW[j][k] = cfg.Beta1*l.mW[j][k] + (1-cfg.Beta1)*l.dW[j][k]
				l.vW[j][k] = cfg.Beta2*l.vW[j][k] + (1-cfg.Beta2)*l.dW[j][k]*l.dW[j][k]
				mHat := l.mW[j][k] / (1 - math.Pow(cfg.Beta1, float64(step)))
				vHat := l.vW[j][k] / (1 - math.Pow(cfg.Beta2, float64(step)))
				l.Weights[j][k] -= cfg.LearningRate * mHat / (math.Sqrt(vHat) + cfg.Epsilon)
			}
		}
		for j := range l.Biases {
			l.mB[j] = cfg.Beta1*l.mB[j] + (1-cfg.Beta1)*l.dB[j]
			l.vB[j] = cfg.Beta2*l.vB[j] + (1-cfg.Beta2)*l.dB[j]*l.dB[j]
			mHat := l.mB[j] / (1 - math.Pow(cfg.Beta1, float64(step)))
			vHat := l.vB[j] / (1 - math.Pow(cfg.Beta2, float64(step)))
			l.Biases[j] -= cfg.LearningRate * mHat / (math.Sqrt(vHat) + cfg.Epsilon)
		}
	}
}

// Softmax returns the normalized exponentials of logits, shifted by the max
// for numerical stability.
func Softmax(logits []float64) []float64 {
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(logits))
	sum := 0.0
	for i, v := range logits {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Train runs mini-batch Adam training against sparse class-index labels and
// returns per-epoch validation cross-entropy loss.
func (n *Net) Train(trainX [][]float64, trainY []int, valX [][]float64, valY []int, cfg Config, rng *rand.Rand) []float64 {
	nTrain := len(trainX)
	indices := make([]int, nTrain)
	for i := range indices {
		indices[i] = i
	}

	step := 0
	epochLosses := make([]float64, cfg.Epochs)

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		rng.Shuffle(nTrain, func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		for batchStart := 0; batchStart < nTrain; batchStart += cfg.BatchSize {
			batchEnd := batchStart + cfg.BatchSize
			if batchEnd > nTrain {
				batchEnd = nTrain
			}
			batchSize := batchEnd - batchStart

			n.ZeroGrad()
			for b := batchStart; b < batchEnd; b++ {
				idx := indices[b]
				logits := n.Forward(trainX[idx])
				probs := Softmax(logits)
				dLogits := make([]float64, len(probs))
				for c := range probs {
					target := 0.0
					if c == trainY[idx] {
						target = 1.0
					}
					dLogits[c] = (probs[c] - target) / float64(batchSize)
				}
				n.Backward(dLogits)
			}
			step++
			n.UpdateAdam(cfg, step)
		}

		epochLosses[epoch] = n.CrossEntropyLoss(valX, valY)
	}

	return epochLosses
}

// CrossEntropyLoss computes mean negative log-likelihood of the true class
// over a dataset.
func (n *Net) CrossEntropyLoss(X [][]float64, Y []int) float64 {
	if len(X) == 0 {
		return 0
	}
	const floor = 1e-12
	sum := 0.0
	for i := range X {
		probs := Softmax(n.Forward(X[i]))
		p := probs[Y[i]]
		if p < floor {
			p = floor
		}
		sum -= math.Log(p)
	}
	return sum / float64(len(X))
}

// Accuracy computes the fraction of X correctly classified by argmax.
func (n *Net) Accuracy(X [][]float64, Y []int) float64 {
	if len(X) == 0 {
		return 0
	}
	correct := 0
	for i := range X {
		if network.Argmax(n.Forward(X[i])) == Y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X))
}

// Export freezes the trained weights into an immutable network.Network
// suitable for the certification engine.
func (n *Net) Export() (*network.Network, error) {
	layers := make([]network.Layer, len(n.Layers))
	for i, l := range n.Layers {
		act := network.ActReLU
		if i == len(n.Layers)-1 {
			act = network.ActLinear
		}
		layers[i] = network.Layer{
			W:   copyMatrix(l.Weights),
			B:   append([]float64(nil), l.Biases...),
			Act: act,
		}
	}
	return network.New(layers)
}

// MarshalJSON serializes weights and biases only.
func (n *Net) MarshalJSON() ([]byte, error) {
	type layerJSON struct {
		Weights [][]float64 `json:"weights"`
		Biases  []float64   `json:"biases"`
	}
	layers := make([]layerJSON, len(n.Layers))
	for i, l := range n.Layers {
		layers[i] = layerJSON{Weights: l.Weights, Biases: l.Biases}
	}
	return json.Marshal(struct {
		Layers []layerJSON `json:"layers"`
	}{Layers: layers})
}

// UnmarshalJSON deserializes weights/biases and reinitializes Adam state.
func (n *Net) UnmarshalJSON(data []byte) error {
	type layerJSON struct {
		Weights [][]float64 `json:"weights"`
		Biases  []float64   `json:"biases"`
	}
	var raw struct {
		Layers []layerJSON `json:"layers"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n.Layers = make([]Layer, len(raw.Layers))
	for i, l := range raw.Layers {
		n.Layers[i] = Layer{Weights: l.Weights, Biases: l.Biases}
	}
	n.initAdam()
	return nil
}

func makeMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

func copyMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
