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

// checkBounds is the first analysis layer: static bound and integrality
// consistency per variable. The bound check and the integrality check run
// independently, so a variable can contribute one issue of each kind.
func checkBounds(m *lpmodel.Builder, res *Result) {
	for i := 0; i < m.NumVars(); i++ {
		v := m.Var(lpmodel.VarIndex(i))
		lb, ub := v.LowerBound(), v.UpperBound()
		if lb > ub {
			res.Bounds = append(res.Bounds, InfeasibleBounds{Var: v.Index(), LB: lb, UB: ub})
		}
		switch v.Kind() {
		case lpmodel.Integer:
			if ub-lb < 1 && math.Ceil(lb) > math.Floor(ub) {
				res.Integrality = append(res.Integrality, InfeasibleIntegrality{
					Var: v.Index(), LB: lb, UB: ub, Kind: lpmodel.Integer,
				})
			}
		case lpmodel.Binary:
			if lb > 0 && ub < 1 {
				res.Integrality = append(res.Integrality, InfeasibleIntegrality{
					Var: v.Index(), LB: lb, UB: ub, Kind: lpmodel.Binary,
				})
			}
		}
	}
}
