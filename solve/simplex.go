// Copyright 2025 The optdiag Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package solve

import (
	"errors"
	"fmt"
	"math"

	log "github.com/golang/glog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/optdiag/optdiag/lpmodel"
)

// SimplexOracle is a pure-Go solver oracle backed by gonum's dense simplex.
//
// It solves the linear relaxation only: integrality restrictions on
// variables are ignored. Inject a MIP-capable Oracle implementation when
// integral feasibility matters.
type SimplexOracle struct{}

// NewSimplexOracle returns a new SimplexOracle.
func NewSimplexOracle() *SimplexOracle {
	return &SimplexOracle{}
}

// Instantiate returns a fresh, empty simplex instance.
func (o *SimplexOracle) Instantiate() (Instance, error) {
	return &simplexInstance{}, nil
}

type simplexVar struct {
	lb float64
	ub float64
}

// simplexRow stores one constraint row of the clone. The expression's
// constant offset is folded into rhs at copy time.
type simplexRow struct {
	terms []lpmodel.Term
	rel   lpmodel.Relation
	rhs   float64
}

type simplexInstance struct {
	vars []simplexVar
	rows []simplexRow

	obj      *lpmodel.LinearExpr
	maximize bool

	loaded  bool
	relaxed bool
	quiet   bool

	lastTerm   lpmodel.TerminationStatus
	lastPrimal lpmodel.PrimalStatus
	point      []float64
}

// CopyModel implements Instance. The clone's constraint indices coincide
// with the source's row enumeration order.
func (s *simplexInstance) CopyModel(src *lpmodel.Builder) (ConstraintMap, error) {
	if s.loaded {
		return ConstraintMap{}, fmt.Errorf("%w: instance already holds a model", ErrOracleContract)
	}
	if err := src.Err(); err != nil {
		return ConstraintMap{}, fmt.Errorf("source model is broken: %w", err)
	}
	cmap := NewConstraintMap()
	relaxedInts := 0
	for i := 0; i < src.NumVars(); i++ {
		v := src.Var(lpmodel.VarIndex(i))
		if v.Kind() != lpmodel.Continuous {
			relaxedInts++
		}
		s.vars = append(s.vars, simplexVar{lb: v.LowerBound(), ub: v.UpperBound()})
	}
	for i := 0; i < src.NumConstraints(); i++ {
		ct := src.Constraint(lpmodel.ConstrIndex(i))
		expr := ct.Expr()
		terms := make([]lpmodel.Term, len(expr.Terms()))
		copy(terms, expr.Terms())
		s.rows = append(s.rows, simplexRow{
			terms: terms,
			rel:   ct.Relation(),
			rhs:   ct.RHS() - expr.Offset(),
		})
		cmap.Put(lpmodel.ConstrIndex(i), lpmodel.ConstrIndex(i))
	}
	s.obj, s.maximize = src.Objective()
	s.loaded = true
	if relaxedInts > 0 && !s.quiet {
		log.V(1).Infof("simplex oracle: relaxing integrality on %d variable(s)", relaxedInts)
	}
	return cmap, nil
}

// Silence implements Instance.
func (s *simplexInstance) Silence() {
	s.quiet = true
}

// RelaxWithElastics implements Instance. Every row gains nonnegative elastic
// columns: `lhs - e <= rhs`, `lhs + e >= rhs`, or `lhs - ePos + eNeg = rhs`.
func (s *simplexInstance) RelaxWithElastics(penalty float64) (map[lpmodel.ConstrIndex]*lpmodel.LinearExpr, error) {
	if !s.loaded {
		return nil, fmt.Errorf("%w: no model loaded", ErrOracleContract)
	}
	if s.relaxed {
		return nil, fmt.Errorf("%w: instance already relaxed", ErrOracleContract)
	}
	// The penalty must worsen the objective, whichever the sense.
	sign := 1.0
	if s.maximize {
		sign = -1
	}
	obj := s.obj.Clone()
	out := make(map[lpmodel.ConstrIndex]*lpmodel.LinearExpr, len(s.rows))
	for i := range s.rows {
		row := &s.rows[i]
		var elastic *lpmodel.LinearExpr
		switch row.rel {
		case lpmodel.LessOrEqual:
			e := s.newElasticVar()
			row.terms = append(row.terms, lpmodel.Term{Var: e, Coeff: -1})
			elastic = lpmodel.ExprFromTerms([]lpmodel.Term{{Var: e, Coeff: 1}}, 0)
		case lpmodel.GreaterOrEqual:
			e := s.newElasticVar()
			row.terms = append(row.terms, lpmodel.Term{Var: e, Coeff: 1})
			elastic = lpmodel.ExprFromTerms([]lpmodel.Term{{Var: e, Coeff: 1}}, 0)
		case lpmodel.Equal:
			ePos := s.newElasticVar()
			eNeg := s.newElasticVar()
			row.terms = append(row.terms,
				lpmodel.Term{Var: ePos, Coeff: -1},
				lpmodel.Term{Var: eNeg, Coeff: 1})
			elastic = lpmodel.ExprFromTerms([]lpmodel.Term{
				{Var: ePos, Coeff: 1},
				{Var: eNeg, Coeff: 1}}, 0)
		}
		obj.AddExpr(elastic, sign*penalty)
		out[lpmodel.ConstrIndex(i)] = elastic
	}
	s.obj = obj
	s.relaxed = true
	return out, nil
}

func (s *simplexInstance) newElasticVar() lpmodel.VarIndex {
	s.vars = append(s.vars, simplexVar{lb: 0, ub: math.Inf(1)})
	return lpmodel.VarIndex(len(s.vars) - 1)
}

// SetObjective implements Instance.
func (s *simplexInstance) SetObjective(expr *lpmodel.LinearExpr, maximize bool) {
	if expr == nil {
		expr = lpmodel.NewLinearExpr()
	}
	s.obj = expr.Clone()
	s.maximize = maximize
}

// Objective implements Instance.
func (s *simplexInstance) Objective() (*lpmodel.LinearExpr, bool) {
	return s.obj.Clone(), s.maximize
}

// FixToZero implements Instance.
func (s *simplexInstance) FixToZero(v lpmodel.VarIndex) (bool, error) {
	if int(v) < 0 || int(v) >= len(s.vars) {
		return false, fmt.Errorf("%w: unknown variable %d", ErrOracleContract, v)
	}
	hadLower := !math.IsInf(s.vars[v].lb, -1)
	s.vars[v].lb = 0
	s.vars[v].ub = 0
	return hadLower, nil
}

// UnfixWithBound implements Instance.
func (s *simplexInstance) UnfixWithBound(v lpmodel.VarIndex, hasLower bool) error {
	if int(v) < 0 || int(v) >= len(s.vars) {
		return fmt.Errorf("%w: unknown variable %d", ErrOracleContract, v)
	}
	if hasLower {
		s.vars[v].lb = 0
	} else {
		s.vars[v].lb = math.Inf(-1)
	}
	s.vars[v].ub = math.Inf(1)
	return nil
}

// TerminationStatus implements Instance.
func (s *simplexInstance) TerminationStatus() lpmodel.TerminationStatus {
	return s.lastTerm
}

// PrimalStatus implements Instance.
func (s *simplexInstance) PrimalStatus() lpmodel.PrimalStatus {
	return s.lastPrimal
}

// VariableValue implements Instance.
func (s *simplexInstance) VariableValue(v lpmodel.VarIndex) (float64, error) {
	if s.point == nil {
		return 0, fmt.Errorf("%w: no primal solution available", ErrOracleContract)
	}
	if int(v) < 0 || int(v) >= len(s.point) {
		return 0, fmt.Errorf("%w: unknown variable %d", ErrOracleContract, v)
	}
	return s.point[v], nil
}

// stdRow is one equality row of the standard-form program, with sparse
// coefficients over standard-form columns and an optional slack column sign.
type stdRow struct {
	coeffs map[int]float64
	rhs    float64
	slack  float64 // 0 for an equality row, else the slack coefficient
}

// Solve implements Instance. It converts the current model state to the
// standard form `min c'x s.t. Ax=b, x>=0` expected by gonum's simplex:
// lower-bounded variables are shifted to zero, free variables are split into
// positive and negative parts, finite upper bounds become rows, and
// inequality rows gain slack columns.
func (s *simplexInstance) Solve() error {
	if !s.loaded {
		return fmt.Errorf("%w: no model loaded", ErrOracleContract)
	}
	s.point = nil
	s.lastTerm = lpmodel.TerminationOther
	s.lastPrimal = lpmodel.PrimalUnknown

	n := len(s.vars)
	colOf := make([]int, n)
	negCol := make([]int, n)
	shift := make([]float64, n)
	ncols := 0
	for i, v := range s.vars {
		colOf[i] = ncols
		ncols++
		if math.IsInf(v.lb, -1) {
			negCol[i] = ncols
			ncols++
		} else {
			negCol[i] = -1
			shift[i] = v.lb
		}
	}

	var stdRows []stdRow
	inconsistent := false
	addRow := func(terms []lpmodel.Term, rel lpmodel.Relation, rhs float64) {
		coeffs := make(map[int]float64)
		b := rhs
		for _, t := range terms {
			if t.Coeff == 0 {
				continue
			}
			coeffs[colOf[t.Var]] += t.Coeff
			if negCol[t.Var] >= 0 {
				coeffs[negCol[t.Var]] -= t.Coeff
			} else {
				b -= t.Coeff * shift[t.Var]
			}
		}
		for c, v := range coeffs {
			if v == 0 {
				delete(coeffs, c)
			}
		}
		if len(coeffs) == 0 {
			// Constant row: decide it right here instead of feeding a zero
			// row to the simplex.
			switch rel {
			case lpmodel.Equal:
				if b != 0 {
					inconsistent = true
				}
			case lpmodel.LessOrEqual:
				if b < 0 {
					inconsistent = true
				}
			case lpmodel.GreaterOrEqual:
				if b > 0 {
					inconsistent = true
				}
			}
			return
		}
		row := stdRow{coeffs: coeffs, rhs: b}
		switch rel {
		case lpmodel.LessOrEqual:
			row.slack = 1
		case lpmodel.GreaterOrEqual:
			row.slack = -1
		}
		stdRows = append(stdRows, row)
	}

	for _, row := range s.rows {
		addRow(row.terms, row.rel, row.rhs)
	}
	for i, v := range s.vars {
		if !math.IsInf(v.ub, 1) {
			addRow([]lpmodel.Term{{Var: lpmodel.VarIndex(i), Coeff: 1}}, lpmodel.LessOrEqual, v.ub)
		}
	}
	if inconsistent {
		s.lastTerm = lpmodel.TerminationInfeasible
		s.lastPrimal = lpmodel.PrimalNoSolution
		return nil
	}

	c := make([]float64, ncols)
	objSign := 1.0
	if s.maximize {
		objSign = -1
	}
	for _, t := range s.obj.Terms() {
		c[colOf[t.Var]] += objSign * t.Coeff
		if negCol[t.Var] >= 0 {
			c[negCol[t.Var]] -= objSign * t.Coeff
		}
	}

	// Columns absent from every row cannot violate anything: drop them, and
	// remember whether any of them carries an improving objective direction,
	// which makes the program unbounded whenever the rest is feasible.
	used := make([]bool, ncols)
	for _, row := range stdRows {
		for col := range row.coeffs {
			used[col] = true
		}
	}
	freeImproving := false
	colMap := make([]int, ncols)
	kept := 0
	for col := 0; col < ncols; col++ {
		if used[col] {
			colMap[col] = kept
			kept++
		} else {
			colMap[col] = -1
			if c[col] < 0 {
				freeImproving = true
			}
		}
	}

	if len(stdRows) == 0 {
		// Nothing constrains the model; every bound shift is a solution.
		s.finishFeasible(freeImproving, shift, colOf, negCol, colMap, nil)
		return nil
	}

	nslack := 0
	for _, row := range stdRows {
		if row.slack != 0 {
			nslack++
		}
	}
	total := kept + nslack
	a := mat.NewDense(len(stdRows), total, nil)
	b := make([]float64, len(stdRows))
	cNew := make([]float64, total)
	for col := 0; col < ncols; col++ {
		if colMap[col] >= 0 {
			cNew[colMap[col]] = c[col]
		}
	}
	slackAt := kept
	for r, row := range stdRows {
		for col, v := range row.coeffs {
			a.Set(r, colMap[col], v)
		}
		if row.slack != 0 {
			a.Set(r, slackAt, row.slack)
			slackAt++
		}
		b[r] = row.rhs
	}

	_, xOut, err := lp.Simplex(cNew, a, b, 0, nil)
	switch {
	case err == nil:
		s.finishFeasible(freeImproving, shift, colOf, negCol, colMap, xOut)
	case errors.Is(err, lp.ErrInfeasible):
		s.lastTerm = lpmodel.TerminationInfeasible
		s.lastPrimal = lpmodel.PrimalNoSolution
	case errors.Is(err, lp.ErrUnbounded):
		s.lastTerm = lpmodel.TerminationUnbounded
		s.lastPrimal = lpmodel.PrimalFeasible
	default:
		if !s.quiet {
			log.Warningf("simplex oracle: solve failed: %v", err)
		}
		s.lastTerm = lpmodel.TerminationOther
		s.lastPrimal = lpmodel.PrimalUnknown
	}
	return nil
}

// finishFeasible records an optimal or unbounded-with-feasible-point outcome
// and reconstructs the model-space point from standard-form columns.
func (s *simplexInstance) finishFeasible(freeImproving bool, shift []float64, colOf, negCol, colMap []int, xOut []float64) {
	colVal := func(col int) float64 {
		if col < 0 || colMap[col] < 0 || xOut == nil {
			return 0
		}
		return xOut[colMap[col]]
	}
	point := make([]float64, len(s.vars))
	for i := range s.vars {
		point[i] = shift[i] + colVal(colOf[i]) - colVal(negCol[i])
	}
	s.point = point
	if freeImproving {
		s.lastTerm = lpmodel.TerminationUnbounded
	} else {
		s.lastTerm = lpmodel.TerminationOptimal
	}
	s.lastPrimal = lpmodel.PrimalFeasible
}
