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
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/optdiag/optdiag/lpmodel"
)

func TestPropagateRanges(t *testing.T) {
	testCases := []struct {
		name  string
		build func(mb *lpmodel.Builder)
		want  []InfeasibleConstraintRange
	}{
		{
			name: "SatisfiableModel",
			build: func(mb *lpmodel.Builder) {
				x := mb.NewVar(0, 1)
				y := mb.NewVar(0, 1)
				mb.AddLessOrEqual(lpmodel.NewLinearExpr().Add(x).Add(y), 1)
				mb.AddGreaterOrEqual(lpmodel.NewLinearExpr().Add(x), 0.5)
			},
		},
		{
			name: "EqualityAboveReach",
			build: func(mb *lpmodel.Builder) {
				x := mb.NewVar(0, 1)
				mb.AddEquality(lpmodel.NewLinearExpr().AddTerm(x, 2), 5)
			},
			want: []InfeasibleConstraintRange{
				{Ctr: 0, Lo: 0, Hi: 2, Rel: lpmodel.Equal, RHS: 5},
			},
		},
		{
			name: "EqualityBelowReach",
			build: func(mb *lpmodel.Builder) {
				x := mb.NewVar(0, 3)
				y := mb.NewVar(0, 4)
				mb.AddEquality(lpmodel.NewLinearExpr().Add(x).Add(y), 10)
			},
			want: []InfeasibleConstraintRange{
				{Ctr: 0, Lo: 0, Hi: 7, Rel: lpmodel.Equal, RHS: 10},
			},
		},
		{
			name: "LessOrEqualBelowRange",
			build: func(mb *lpmodel.Builder) {
				x := mb.NewVar(2, 3)
				mb.AddLessOrEqual(lpmodel.NewLinearExpr().Add(x), 1)
			},
			want: []InfeasibleConstraintRange{
				{Ctr: 0, Lo: 2, Hi: 3, Rel: lpmodel.LessOrEqual, RHS: 1},
			},
		},
		{
			name: "GreaterOrEqualAboveRange",
			build: func(mb *lpmodel.Builder) {
				x := mb.NewVar(0, 1)
				y := mb.NewVar(0, 1)
				mb.AddGreaterOrEqual(lpmodel.NewLinearExpr().Add(x).Add(y), 3)
			},
			want: []InfeasibleConstraintRange{
				{Ctr: 0, Lo: 0, Hi: 2, Rel: lpmodel.GreaterOrEqual, RHS: 3},
			},
		},
		{
			name: "PassingBoundRowNarrowsLaterChecks",
			build: func(mb *lpmodel.Builder) {
				x := mb.NewFreeVar()
				mb.AddLessOrEqual(lpmodel.NewLinearExpr().Add(x), 1)
				mb.AddGreaterOrEqual(lpmodel.NewLinearExpr().Add(x), 5)
			},
			want: []InfeasibleConstraintRange{
				{Ctr: 1, Lo: math.Inf(-1), Hi: 1, Rel: lpmodel.GreaterOrEqual, RHS: 5},
			},
		},
		{
			name: "NegativeCoefficientFlipsImpliedBound",
			build: func(mb *lpmodel.Builder) {
				x := mb.NewFreeVar()
				// -x <= -5 pins x >= 5, so x <= 1 has no room left.
				mb.AddLessOrEqual(lpmodel.NewLinearExpr().AddTerm(x, -1), -5)
				mb.AddLessOrEqual(lpmodel.NewLinearExpr().Add(x), 1)
			},
			want: []InfeasibleConstraintRange{
				{Ctr: 1, Lo: 5, Hi: math.Inf(1), Rel: lpmodel.LessOrEqual, RHS: 1},
			},
		},
		{
			name: "OffsetFoldsIntoImpliedBound",
			build: func(mb *lpmodel.Builder) {
				x := mb.NewFreeVar()
				// x + 2 <= 1 pins x <= -1.
				mb.AddLessOrEqual(lpmodel.NewLinearExpr().Add(x).AddConstant(2), 1)
				mb.AddGreaterOrEqual(lpmodel.NewLinearExpr().Add(x), 0)
			},
			want: []InfeasibleConstraintRange{
				{Ctr: 1, Lo: math.Inf(-1), Hi: -1, Rel: lpmodel.GreaterOrEqual, RHS: 0},
			},
		},
		{
			name: "ViolatedBoundRowDoesNotNarrow",
			build: func(mb *lpmodel.Builder) {
				x := mb.NewVar(2, 3)
				// The violated x <= 1 must not shrink x before the next check.
				mb.AddLessOrEqual(lpmodel.NewLinearExpr().Add(x), 1)
				mb.AddGreaterOrEqual(lpmodel.NewLinearExpr().Add(x), 2)
			},
			want: []InfeasibleConstraintRange{
				{Ctr: 0, Lo: 2, Hi: 3, Rel: lpmodel.LessOrEqual, RHS: 1},
			},
		},
		{
			name: "MultiTermRowDoesNotNarrow",
			build: func(mb *lpmodel.Builder) {
				x := mb.NewVar(0, 10)
				y := mb.NewVar(0, 10)
				mb.AddLessOrEqual(lpmodel.NewLinearExpr().Add(x).Add(y), 1)
				mb.AddGreaterOrEqual(lpmodel.NewLinearExpr().Add(x), 5)
			},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			mb := lpmodel.NewBuilder()
			test.build(mb)
			res := &Result{}
			propagateRanges(mb, res)

			if diff := cmp.Diff(test.want, res.Ranges); diff != "" {
				t.Errorf("propagateRanges() returned with unexpected diff (-want+got);\n%s", diff)
			}
		})
	}
}
