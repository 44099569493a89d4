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

// The diagnose_infeasible_lp command builds a small infeasible LP, solves it
// with the bundled simplex oracle, and prints the diagnosis.
package main

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/optdiag/optdiag/diagnose"
	"github.com/optdiag/optdiag/lpmodel"
	"github.com/optdiag/optdiag/solve"
)

func diagnoseInfeasibleLP() error {
	model := lpmodel.NewBuilder()

	x := model.NewVar(0, 10).WithName("x")
	y := model.NewVar(0, 10).WithName("y")

	model.AddLessOrEqual(lpmodel.NewLinearExpr().Add(x).Add(y), 1).WithName("capacity")
	model.AddGreaterOrEqual(lpmodel.NewLinearExpr().Add(x), 1).WithName("min_x")
	model.AddGreaterOrEqual(lpmodel.NewLinearExpr().Add(y), 1).WithName("min_y")
	model.Maximize(lpmodel.NewLinearExpr().Add(x).Add(y))

	oracle := solve.NewSimplexOracle()
	inst, err := oracle.Instantiate()
	if err != nil {
		return fmt.Errorf("failed to instantiate the oracle: %w", err)
	}
	if _, err := inst.CopyModel(model); err != nil {
		return fmt.Errorf("failed to load the model: %w", err)
	}
	if err := inst.Solve(); err != nil {
		return fmt.Errorf("failed to solve the model: %w", err)
	}
	model.MarkSolved(inst.TerminationStatus(), inst.PrimalStatus())
	fmt.Printf("status: %s\n", model.LastTermination())

	res, err := diagnose.Analyze(model, oracle)
	if err != nil {
		return fmt.Errorf("failed to diagnose the model: %w", err)
	}

	fmt.Printf("outcome: %s\n", res.Outcome)
	for _, issue := range res.Issues() {
		fmt.Println(issue)
	}
	for _, iis := range res.IIS {
		for _, c := range iis.Constraints {
			fmt.Printf("member: %s\n", model.Constraint(c).Name())
		}
	}
	return nil
}

func main() {
	if err := diagnoseInfeasibleLP(); err != nil {
		glog.Exitf("diagnoseInfeasibleLP returned with error: %v", err)
	}
}
