// Package interval implements the box propagator: a cheap, sound
// interval-arithmetic over-approximation of a network's reachable outputs,
// used as a pre-filter before falling back to the MILP solver (spec §4.1).
package interval

import (
	"explainer/internal/network"
)

// Interval is a closed real interval [Lo, Hi], Lo <= Hi.
type Interval struct {
	Lo, Hi float64
}

// Width returns Hi - Lo.
func (iv Interval) Width() float64 {
	return iv.Hi - iv.Lo
}

// Degenerate reports whether the interval is a single point.
func (iv Interval) Degenerate() bool {
	return iv.Lo == iv.Hi
}

// Propagate pushes input bounds through the network layer by layer using
// interval arithmetic and returns the output bounds per class.
//
// For an affine layer (W, b): lo' = W+ . lo + W- . hi + b,
// hi' = W+ . hi + W- . lo + b, where W+ = max(W, 0) and W- = min(W, 0)
// elementwise. ReLU clamps both ends to >= 0; linear layers pass through.
func Propagate(in []Interval, net *network.Network) []Interval {
	cur := in
	for _, l := range net.Layers {
		cur = PropagateLayer(cur, l)
	}
	return cur
}

// PropagateLayer applies one layer's interval arithmetic: W+/W- split for
// the affine part, then a ReLU clamp or linear pass-through.
func PropagateLayer(in []Interval, l network.Layer) []Interval {
	next := make([]Interval, l.NOut())
	for j := 0; j < l.NOut(); j++ {
		lo, hi := l.B[j], l.B[j]
		row := l.W[j]
		for k, w := range row {
			if w > 0 {
				lo += w * in[k].Lo
				hi += w * in[k].Hi
			} else {
				lo += w * in[k].Hi
				hi += w * in[k].Lo
			}
		}
		if l.Act == network.ActReLU {
			if lo < 0 {
				lo = 0
			}
			if hi < 0 {
				hi = 0
			}
		}
		next[j] = Interval{Lo: lo, Hi: hi}
	}
	return next
}

// HasSolution is the box sufficiency test (spec §4.1). It propagates
// inputBounds through net, then returns true ("a counter-example might
// exist") iff some non-predicted class's upper bound exceeds the predicted
// class's lower bound. Returns false ("provably no counter-example in this
// box") otherwise, in which case the solver need not be consulted.
//
// Soundness: this is an over-approximation. false implies truly no
// counter-example; true is merely inconclusive.
func HasSolution(inputBounds []Interval, net *network.Network, predicted int) bool {
	out := Propagate(inputBounds, net)
	predictedLo := out[predicted].Lo
	for m, iv := range out {
		if m == predicted {
			continue
		}
		if iv.Hi > predictedLo {
			return true
		}
	}
	return false
}

// RelaxToBounds builds per-feature input intervals for x: feature i gets
// domains[i] where relax[i] is true, and the degenerate interval
// [x[i], x[i]] otherwise.
func RelaxToBounds(x []float64, domains []Interval, relax []bool) []Interval {
	out := make([]Interval, len(x))
	for i := range x {
		if relax[i] {
			out[i] = domains[i]
		} else {
			out[i] = Interval{Lo: x[i], Hi: x[i]}
		}
	}
	return out
}
