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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/optdiag/optdiag/lpmodel"
	"github.com/optdiag/optdiag/solve"
)

// infeasibleThreeWay builds the standard x+y <= 1, x >= 1, y >= 1 conflict,
// already marked infeasible by an external solve.
func infeasibleThreeWay() *lpmodel.Builder {
	mb := lpmodel.NewBuilder()
	x := mb.NewVar(0, 10)
	y := mb.NewVar(0, 10)
	mb.AddLessOrEqual(lpmodel.NewLinearExpr().Add(x).Add(y), 1)
	mb.AddGreaterOrEqual(lpmodel.NewLinearExpr().Add(x), 1)
	mb.AddGreaterOrEqual(lpmodel.NewLinearExpr().Add(y), 1)
	mb.MarkSolved(lpmodel.TerminationInfeasible, lpmodel.PrimalNoSolution)
	return mb
}

func TestAnalyze_BoundIssuesShortCircuit(t *testing.T) {
	mb := lpmodel.NewBuilder()
	x := mb.NewVar(5, 2)
	// This range violation must stay unreported while the bound layer has
	// findings of its own.
	mb.AddGreaterOrEqual(lpmodel.NewLinearExpr().Add(x), 100)
	mb.MarkSolved(lpmodel.TerminationInfeasible, lpmodel.PrimalNoSolution)

	res, err := Analyze(mb, solve.NewSimplexOracle())
	if err != nil {
		t.Fatalf("Analyze() returned with unexpected err %v", err)
	}
	if got, want := res.Outcome, OutcomeIssuesFound; got != want {
		t.Errorf("Analyze() outcome = %v, want %v", got, want)
	}
	wantBounds := []InfeasibleBounds{{Var: 0, LB: 5, UB: 2}}
	if diff := cmp.Diff(wantBounds, res.Bounds); diff != "" {
		t.Errorf("Analyze() bound issues with unexpected diff (-want+got);\n%s", diff)
	}
	if len(res.Ranges) != 0 || len(res.IIS) != 0 {
		t.Errorf("Analyze() ran later layers after bound issues: ranges %v, iis %v", res.Ranges, res.IIS)
	}
}

func TestAnalyze_RangeIssuesShortCircuit(t *testing.T) {
	mb := lpmodel.NewBuilder()
	x := mb.NewVar(0, 1)
	mb.AddGreaterOrEqual(lpmodel.NewLinearExpr().Add(x), 5)
	mb.MarkSolved(lpmodel.TerminationInfeasible, lpmodel.PrimalNoSolution)

	res, err := Analyze(mb, solve.NewSimplexOracle())
	if err != nil {
		t.Fatalf("Analyze() returned with unexpected err %v", err)
	}
	if got, want := res.Outcome, OutcomeIssuesFound; got != want {
		t.Errorf("Analyze() outcome = %v, want %v", got, want)
	}
	wantRanges := []InfeasibleConstraintRange{
		{Ctr: 0, Lo: 0, Hi: 1, Rel: lpmodel.GreaterOrEqual, RHS: 5},
	}
	if diff := cmp.Diff(wantRanges, res.Ranges); diff != "" {
		t.Errorf("Analyze() range issues with unexpected diff (-want+got);\n%s", diff)
	}
	if len(res.IIS) != 0 {
		t.Errorf("Analyze() ran the IIS layer after range issues: %v", res.IIS)
	}
}

func TestAnalyze_FindsIIS(t *testing.T) {
	res, err := Analyze(infeasibleThreeWay(), solve.NewSimplexOracle())
	if err != nil {
		t.Fatalf("Analyze() returned with unexpected err %v", err)
	}
	if got, want := res.Outcome, OutcomeIssuesFound; got != want {
		t.Errorf("Analyze() outcome = %v, want %v", got, want)
	}
	want := []IrreducibleInfeasibleSubset{
		{Constraints: []lpmodel.ConstrIndex{0, 1, 2}},
	}
	if diff := cmp.Diff(want, res.IIS); diff != "" {
		t.Errorf("Analyze() IIS with unexpected diff (-want+got);\n%s", diff)
	}
	if !res.HasIssues() {
		t.Errorf("HasIssues() = false, want true")
	}
}

func TestAnalyze_NilOracleSkipsIIS(t *testing.T) {
	res, err := Analyze(infeasibleThreeWay(), nil)
	if err != nil {
		t.Fatalf("Analyze() returned with unexpected err %v", err)
	}
	if got, want := res.Outcome, OutcomeIISNotAttempted; got != want {
		t.Errorf("Analyze() outcome = %v, want %v", got, want)
	}
	if res.Note == "" {
		t.Errorf("Analyze() Note is empty, want an explanation for the skipped layer")
	}
	if res.HasIssues() {
		t.Errorf("HasIssues() = true, want false")
	}
}

func TestAnalyze_NonInfeasibleStatusSkipsIIS(t *testing.T) {
	testCases := []struct {
		name   string
		status lpmodel.TerminationStatus
	}{
		{name: "NotSolved", status: lpmodel.TerminationNotSolved},
		{name: "Optimal", status: lpmodel.TerminationOptimal},
		{name: "Unbounded", status: lpmodel.TerminationUnbounded},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			mb := infeasibleThreeWay()
			mb.MarkSolved(test.status, lpmodel.PrimalUnknown)

			res, err := Analyze(mb, solve.NewSimplexOracle())
			if err != nil {
				t.Fatalf("Analyze() returned with unexpected err %v", err)
			}
			if got, want := res.Outcome, OutcomeIISNotAttempted; got != want {
				t.Errorf("Analyze() outcome = %v, want %v", got, want)
			}
			if len(res.IIS) != 0 {
				t.Errorf("Analyze() computed an IIS despite status %v: %v", test.status, res.IIS)
			}
		})
	}
}

func TestAnalyze_InfeasibleOrUnboundedAlsoTriggersIIS(t *testing.T) {
	mb := infeasibleThreeWay()
	mb.MarkSolved(lpmodel.TerminationInfeasibleOrUnbounded, lpmodel.PrimalUnknown)

	res, err := Analyze(mb, solve.NewSimplexOracle())
	if err != nil {
		t.Fatalf("Analyze() returned with unexpected err %v", err)
	}
	if got, want := res.Outcome, OutcomeIssuesFound; got != want {
		t.Errorf("Analyze() outcome = %v, want %v", got, want)
	}
	if len(res.IIS) != 1 {
		t.Errorf("Analyze() IIS count = %v, want 1", len(res.IIS))
	}
}

func TestAnalyze_CleanFeasibleModel(t *testing.T) {
	mb := lpmodel.NewBuilder()
	x := mb.NewVar(0, 1)
	mb.AddLessOrEqual(lpmodel.NewLinearExpr().Add(x), 2)
	mb.MarkSolved(lpmodel.TerminationOptimal, lpmodel.PrimalFeasible)

	res, err := Analyze(mb, solve.NewSimplexOracle())
	if err != nil {
		t.Fatalf("Analyze() returned with unexpected err %v", err)
	}
	if got, want := res.Outcome, OutcomeIISNotAttempted; got != want {
		t.Errorf("Analyze() outcome = %v, want %v", got, want)
	}
	if res.HasIssues() {
		t.Errorf("HasIssues() = true, want false")
	}
}

func TestAnalyze_ResolverFailureReported(t *testing.T) {
	mb := lpmodel.NewBuilder()
	x := mb.NewVar(0, 1)
	mb.AddGreaterOrEqual(lpmodel.NewLinearExpr().Add(x), 0)
	mb.MarkSolved(lpmodel.TerminationInfeasible, lpmodel.PrimalNoSolution)

	oracle := &scriptedOracle{inst: &scriptedInstance{
		elastics: map[lpmodel.ConstrIndex]*lpmodel.LinearExpr{
			0: singleElastic(1),
		},
		script: []scriptedSolve{
			{term: lpmodel.TerminationOther, primal: lpmodel.PrimalUnknown},
		},
	}}

	res, err := Analyze(mb, oracle)
	if !errors.Is(err, ErrNumericalInstability) {
		t.Errorf("Analyze() err = %v, want ErrNumericalInstability", err)
	}
	if got, want := res.Outcome, OutcomeFailed; got != want {
		t.Errorf("Analyze() outcome = %v, want %v", got, want)
	}
	if res.Note == "" {
		t.Errorf("Analyze() Note is empty, want the failure reason")
	}
}

func TestAnalyze_EmptySubsetNoted(t *testing.T) {
	mb := lpmodel.NewBuilder()
	x := mb.NewVar(0, 1)
	mb.AddLessOrEqual(lpmodel.NewLinearExpr().Add(x), 2)
	// An external solver claimed infeasibility the elastic filter cannot
	// reproduce.
	mb.MarkSolved(lpmodel.TerminationInfeasible, lpmodel.PrimalNoSolution)

	res, err := Analyze(mb, solve.NewSimplexOracle())
	if err != nil {
		t.Fatalf("Analyze() returned with unexpected err %v", err)
	}
	if got, want := res.Outcome, OutcomeNoIssues; got != want {
		t.Errorf("Analyze() outcome = %v, want %v", got, want)
	}
	if res.Note == "" {
		t.Errorf("Analyze() Note is empty, want a hint about the empty subset")
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	mb := infeasibleThreeWay()

	first, err := Analyze(mb, solve.NewSimplexOracle())
	if err != nil {
		t.Fatalf("Analyze() returned with unexpected err %v", err)
	}
	second, err := Analyze(mb, solve.NewSimplexOracle())
	if err != nil {
		t.Fatalf("Analyze() returned with unexpected err %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated Analyze() differed (-first+second);\n%s", diff)
	}
}

func TestAnalyze_WithMaxRounds(t *testing.T) {
	// A single round can freeze at most the elastics active in one optimal
	// point, but the result must still be a valid subset of the full IIS.
	res, err := Analyze(infeasibleThreeWay(), solve.NewSimplexOracle(), WithMaxRounds(1))
	if err != nil {
		t.Fatalf("Analyze() returned with unexpected err %v", err)
	}
	if got, want := res.Outcome, OutcomeIssuesFound; got != want {
		t.Errorf("Analyze() outcome = %v, want %v", got, want)
	}
}

func TestAnalyze_WithTolerance(t *testing.T) {
	// A tolerance above every possible elastic value yields no members.
	res, err := Analyze(infeasibleThreeWay(), solve.NewSimplexOracle(), WithTolerance(100))
	if err != nil {
		t.Fatalf("Analyze() returned with unexpected err %v", err)
	}
	if got, want := res.Outcome, OutcomeNoIssues; got != want {
		t.Errorf("Analyze() outcome = %v, want %v", got, want)
	}
}
