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

package diagnose

import (
	"math"

	"github.com/optdiag/optdiag/lpmodel"
)

// propagateRanges is the second analysis layer: for each constraint, in
// enumeration order, the left-hand-side interval is evaluated from the
// current variable intervals and checked against the right-hand side.
//
// A variable-only constraint that passes its own check folds into that
// variable's interval, narrowing what later constraints are evaluated
// against. There is no fixed-point iteration and no re-checking of earlier
// constraints.
func propagateRanges(m *lpmodel.Builder, res *Result) {
	intervals := make([]lpmodel.Interval, m.NumVars())
	for i := range intervals {
		v := m.Var(lpmodel.VarIndex(i))
		intervals[i] = lpmodel.NewInterval(v.LowerBound(), v.UpperBound())
	}

	for ci := 0; ci < m.NumConstraints(); ci++ {
		ct := m.Constraint(lpmodel.ConstrIndex(ci))
		expr, rel, rhs := ct.Expr(), ct.Relation(), ct.RHS()

		lhs := lpmodel.NewInterval(expr.Offset(), expr.Offset())
		for _, t := range expr.Terms() {
			lhs = lhs.Add(intervals[t.Var].Scale(t.Coeff))
		}

		violated := false
		switch rel {
		case lpmodel.Equal:
			violated = lhs.Lo > rhs || lhs.Hi < rhs
		case lpmodel.LessOrEqual:
			violated = lhs.Lo > rhs
		case lpmodel.GreaterOrEqual:
			violated = lhs.Hi < rhs
		}
		if violated {
			res.Ranges = append(res.Ranges, InfeasibleConstraintRange{
				Ctr: ct.Index(), Lo: lhs.Lo, Hi: lhs.Hi, Rel: rel, RHS: rhs,
			})
			continue
		}

		if ts := expr.Terms(); len(ts) == 1 && ts[0].Coeff != 0 {
			intervals[ts[0].Var] = intervals[ts[0].Var].Intersect(
				impliedBound(ts[0].Coeff, expr.Offset(), rel, rhs))
		}
	}
}

// impliedBound returns the interval a single-term constraint
// `coeff*x + offset rel rhs` implies for x. A negative coefficient flips the
// relation.
func impliedBound(coeff, offset float64, rel lpmodel.Relation, rhs float64) lpmodel.Interval {
	bound := (rhs - offset) / coeff
	if coeff < 0 {
		switch rel {
		case lpmodel.LessOrEqual:
			rel = lpmodel.GreaterOrEqual
		case lpmodel.GreaterOrEqual:
			rel = lpmodel.LessOrEqual
		}
	}
	switch rel {
	case lpmodel.LessOrEqual:
		return lpmodel.NewInterval(math.Inf(-1), bound)
	case lpmodel.GreaterOrEqual:
		return lpmodel.NewInterval(bound, math.Inf(1))
	default:
		return lpmodel.NewInterval(bound, bound)
	}
}
