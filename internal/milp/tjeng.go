package milp

import (
	"fmt"
	"math"

	"explainer/internal/solver"
)

// encodeReLU adds the post-activation variable a, the gate variable z, and
// the tjeng big-M constraints linking them to an already-declared
// pre-activation variable y with bounds [L, U] (spec §4.3's three-case
// table). Returns the new handles and the number of constraints added, for
// encoder-size bookkeeping.
func encodeReLU(slv solver.Model, yVar solver.VarHandle, l, u float64, namePrefix string) (aVar, zVar solver.VarHandle, numConstraints int) {
	switch {
	case l >= 0:
		// Always active: a = y. z fixed to 1 only to preserve variable count.
		aVar = slv.AddVar(solver.Continuous, 0, u, namePrefix+"_a")
		zVar = slv.AddVar(solver.Binary, 1, 1, namePrefix+"_z")
		slv.AddConstraint(solver.Expr{aVar: 1, yVar: -1}, solver.EQ, 0)
		return aVar, zVar, 1

	case u <= 0:
		// Always inactive: a = 0, z fixed to 0.
		aVar = slv.AddVar(solver.Continuous, 0, 0, namePrefix+"_a")
		zVar = slv.AddVar(solver.Binary, 0, 0, namePrefix+"_z")
		slv.AddConstraint(solver.Expr{aVar: 1}, solver.EQ, 0)
		return aVar, zVar, 1

	default:
		// Mixed case: a >= y, a >= 0, a <= y - L(1-z), a <= U*z.
		aVar = slv.AddVar(solver.Continuous, 0, math.Max(0, u), namePrefix+"_a")
		zVar = slv.AddVar(solver.Binary, 0, 1, namePrefix+"_z")

		// a >= y  =>  a - y >= 0
		slv.AddConstraint(solver.Expr{aVar: 1, yVar: -1}, solver.GE, 0)
		// a <= y - L(1-z) = y - L + L*z  =>  a - y - L*z <= -L
		slv.AddConstraint(solver.Expr{aVar: 1, yVar: -1, zVar: -l}, solver.LE, -l)
		// a <= U*z  =>  a - U*z <= 0
		slv.AddConstraint(solver.Expr{aVar: 1, zVar: -u}, solver.LE, 0)
		return aVar, zVar, 3
	}
}

func neuronName(layer, idx int) string {
	return fmt.Sprintf("h%d_%d", layer, idx)
}
