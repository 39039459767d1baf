// Package gonumlp is the one concrete Solver adapter: it wraps
// gonum.org/v1/gonum's dense matrices and simplex LP solver behind the
// solver.Model interface, and drives a depth-first branch-and-bound over
// the binary gate/disagreement variables on top of repeated LP relaxations
// to answer MILP feasibility queries exactly.
//
// Grounded on samuelfneumann-GoLearn's use of gonum.org/v1/gonum for all
// of its numerical linear algebra -- the one dependency in the retrieved
// pack that does numerical optimization.
package gonumlp

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"explainer/internal/solver"
)

// tol is the numerical tolerance used both for LP feasibility checks and
// for deciding whether a relaxed binary value counts as integral.
const tol = 1e-7

// maxBranchNodes bounds the branch-and-bound search; exceeding it is
// reported as solver.StatusError rather than looping forever.
const maxBranchNodes = 200000

type variable struct {
	kind     solver.VarKind
	lo, hi   float64
	name     string
}

type constraint struct {
	expr   solver.Expr
	sense  solver.Sense
	rhs    float64
	active bool
}

// Model is the gonum-backed solver.Model implementation.
type Model struct {
	vars        []variable
	constraints map[solver.ConstrHandle]*constraint
	nextHandle  int
	objective   solver.Expr
	maximize    bool

	solution []float64 // indexed like vars; valid after a StatusOptimal solve
	objValue float64
}

// New returns an empty model.
func New() *Model {
	return &Model{
		constraints: make(map[solver.ConstrHandle]*constraint),
	}
}

func (m *Model) AddVar(kind solver.VarKind, lo, hi float64, name string) solver.VarHandle {
	m.vars = append(m.vars, variable{kind: kind, lo: lo, hi: hi, name: name})
	return solver.VarHandle(len(m.vars) - 1)
}

func (m *Model) SetBounds(v solver.VarHandle, lo, hi float64) {
	m.vars[v].lo = lo
	m.vars[v].hi = hi
}

func (m *Model) AddConstraint(expr solver.Expr, sense solver.Sense, rhs float64) solver.ConstrHandle {
	h := solver.ConstrHandle(m.nextHandle)
	m.nextHandle++
	cp := make(solver.Expr, len(expr))
	for k, v := range expr {
		cp[k] = v
	}
	m.constraints[h] = &constraint{expr: cp, sense: sense, rhs: rhs, active: true}
	return h
}

func (m *Model) RemoveConstraint(h solver.ConstrHandle) {
	delete(m.constraints, h)
}

func (m *Model) SetObjective(expr solver.Expr, maximize bool) {
	cp := make(solver.Expr, len(expr))
	for k, v := range expr {
		cp[k] = v
	}
	m.objective = cp
	m.maximize = maximize
}

func (m *Model) Value(v solver.VarHandle) float64 {
	if int(v) >= len(m.solution) {
		return 0
	}
	return m.solution[v]
}

func (m *Model) ObjectiveValue() float64 {
	return m.objValue
}

// Clone returns an independent copy; mutations to either model after Clone
// do not affect the other.
func (m *Model) Clone() solver.Model {
	c := &Model{
		vars:        append([]variable(nil), m.vars...),
		constraints: make(map[solver.ConstrHandle]*constraint, len(m.constraints)),
		nextHandle:  m.nextHandle,
		maximize:    m.maximize,
		solution:    append([]float64(nil), m.solution...),
		objValue:    m.objValue,
	}
	for h, cons := range m.constraints {
		cp := *cons
		cp.expr = make(solver.Expr, len(cons.expr))
		for k, v := range cons.expr {
			cp.expr[k] = v
		}
		c.constraints[h] = &cp
	}
	if m.objective != nil {
		c.objective = make(solver.Expr, len(m.objective))
		for k, v := range m.objective {
			c.objective[k] = v
		}
	}
	return c
}

// SolveLP solves the continuous relaxation: every variable, including
// binary gates, is treated as continuous within its declared [lo, hi].
func (m *Model) SolveLP() (solver.Status, error) {
	status, x, obj, err := m.solveStandardForm(nil)
	if status == solver.StatusOptimal {
		m.solution = x
		m.objValue = obj
	}
	return status, err
}

// SolveMILP solves the full mixed-integer problem via depth-first
// branch-and-bound on the Binary-kind variables, each node resolved by an
// LP relaxation through solveStandardForm. It returns the first
// integer-feasible point the search reaches; the objective is not
// optimized across integer-feasible points.
func (m *Model) SolveMILP() (solver.Status, error) {
	var integerVars []solver.VarHandle
	for i, v := range m.vars {
		if v.kind == solver.Binary {
			integerVars = append(integerVars, solver.VarHandle(i))
		}
	}

	type node struct {
		overrides map[solver.VarHandle][2]float64
	}
	stack := []node{{overrides: nil}}

	nodes := 0
	for len(stack) > 0 {
		nodes++
		if nodes > maxBranchNodes {
			return solver.StatusError, errors.New("gonumlp: branch-and-bound node limit exceeded")
		}

		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		status, x, obj, err := m.solveStandardForm(top.overrides)
		if err != nil {
			return solver.StatusError, err
		}
		if status != solver.StatusOptimal {
			continue // pruned: infeasible or unbounded subproblem
		}

		branchVar, branchVal, fractional := mostFractional(integerVars, x, tol)
		if !fractional {
			m.solution = x
			m.objValue = obj
			return solver.StatusOptimal, nil
		}

		lo := cloneOverrides(top.overrides)
		lo[branchVar] = [2]float64{0, 0}
		hi := cloneOverrides(top.overrides)
		hi[branchVar] = [2]float64{1, 1}
		_ = branchVal
		// Explore the "gate active" branch first; order has no effect on
		// the final feasibility answer, only on which feasible point (if
		// several exist) is returned first.
		stack = append(stack, lo, hi)
	}

	return solver.StatusInfeasible, nil
}

func cloneOverrides(o map[solver.VarHandle][2]float64) map[solver.VarHandle][2]float64 {
	c := make(map[solver.VarHandle][2]float64, len(o)+1)
	for k, v := range o {
		c[k] = v
	}
	return c
}

func mostFractional(vars []solver.VarHandle, x []float64, tol float64) (solver.VarHandle, float64, bool) {
	best := -1.0
	var bestVar solver.VarHandle
	found := false
	for _, v := range vars {
		val := x[v]
		frac := math.Abs(val - math.Round(val))
		if frac > tol && frac > best {
			best = frac
			bestVar = v
			found = true
		}
	}
	return bestVar, best, found
}

// solveStandardForm builds the equality-standard-form LP (every original
// variable shifted to be nonnegative, every inequality given a slack
// column) for the model's active constraints plus each variable's own
// bounds, with optional per-variable bound overrides (used during
// branch-and-bound), and solves it with gonum's simplex.
func (m *Model) solveStandardForm(overrides map[solver.VarHandle][2]float64) (solver.Status, []float64, float64, error) {
	n := len(m.vars)
	lo := make([]float64, n)
	hi := make([]float64, n)
	for i, v := range m.vars {
		lo[i], hi[i] = v.lo, v.hi
	}
	for vh, bnd := range overrides {
		lo[vh], hi[vh] = bnd[0], bnd[1]
	}
	for i := range lo {
		if lo[i] > hi[i]+tol {
			return solver.StatusInfeasible, nil, 0, nil
		}
	}

	type row struct {
		coeffs map[int]float64
		rhs    float64
	}

	// toRow shifts expr {sense} rhs into either an equality row (EQ) or an
	// LE row (GE is flipped to LE by negation) over the shifted variables
	// v' = v - lo.
	toRow := func(expr solver.Expr, sense solver.Sense, rhs float64) row {
		coeffs := make(map[int]float64, len(expr))
		shiftedRHS := rhs
		for vh, c := range expr {
			coeffs[int(vh)] = c
			shiftedRHS -= c * lo[vh]
		}
		if sense == solver.GE {
			neg := make(map[int]float64, len(coeffs))
			for k, v := range coeffs {
				neg[k] = -v
			}
			return row{coeffs: neg, rhs: -shiftedRHS}
		}
		return row{coeffs: coeffs, rhs: shiftedRHS}
	}

	var eqRows, leRows []row
	for _, cons := range m.constraints {
		if !cons.active {
			continue
		}
		r := toRow(cons.expr, cons.sense, cons.rhs)
		if cons.sense == solver.EQ {
			eqRows = append(eqRows, r)
		} else {
			leRows = append(leRows, r)
		}
	}

	// Each shifted variable v' = v - lo also needs its own upper bound
	// v' <= hi-lo, encoded as a further LE row (becomes equality + slack).
	for i := range m.vars {
		width := hi[i] - lo[i]
		leRows = append(leRows, row{coeffs: map[int]float64{i: 1}, rhs: width})
	}

	numSlack := len(leRows)
	totalCols := n + numSlack
	totalRows := len(eqRows) + len(leRows)

	A := mat.NewDense(totalRows, totalCols, nil)
	b := make([]float64, totalRows)

	r := 0
	for _, eq := range eqRows {
		setRow(A, r, eq.coeffs, nil, 0)
		b[r] = eq.rhs
		if b[r] < 0 {
			negateRow(A, r, totalCols)
			b[r] = -b[r]
		}
		r++
	}
	for i, le := range leRows {
		slackCol := n + i
		setRow(A, r, le.coeffs, []int{slackCol}, 1)
		b[r] = le.rhs
		if b[r] < 0 {
			negateRow(A, r, totalCols)
			b[r] = -b[r]
		}
		r++
	}

	c := make([]float64, totalCols)
	constant := 0.0
	for vh, coeff := range m.objective {
		c[vh] = coeff
		constant += coeff * lo[vh]
	}
	if m.maximize {
		for i := range c {
			c[i] = -c[i]
		}
	}

	optF, x, err := lp.Simplex(c, A, b, tol, nil)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			return solver.StatusInfeasible, nil, 0, nil
		}
		if errors.Is(err, lp.ErrUnbounded) {
			return solver.StatusUnbounded, nil, 0, nil
		}
		return solver.StatusError, nil, 0, err
	}

	result := make([]float64, n)
	for i := 0; i < n; i++ {
		result[i] = x[i] + lo[i]
	}
	objVal := optF
	if m.maximize {
		objVal = -objVal
	}
	objVal += constant
	return solver.StatusOptimal, result, objVal, nil
}

func setRow(A *mat.Dense, r int, coeffs map[int]float64, extraCols []int, extraVal float64) {
	for col, v := range coeffs {
		A.Set(r, col, v)
	}
	for _, col := range extraCols {
		A.Set(r, col, extraVal)
	}
}

func negateRow(A *mat.Dense, r, cols int) {
	for c := 0; c < cols; c++ {
		A.Set(r, c, -A.At(r, c))
	}
}
