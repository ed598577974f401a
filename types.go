// Copyright 2024 The University of Queensland
// Copyright 2025 Contriboss
//
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

package selector

import (
	"context"
	"fmt"
)

// Status is the outcome of one engine call.
type Status int

const (
	// StatusUnknown is the zero value and never returned by a well-behaved engine.
	StatusUnknown Status = iota
	// StatusOptimal means the assignment is proven to maximize the objective.
	StatusOptimal
	// StatusFeasible means the assignment satisfies every constraint but the
	// search stopped before proving optimality.
	StatusFeasible
	// StatusInfeasible means no assignment satisfies the constraints.
	StatusInfeasible
	// StatusTimeout means the time budget ran out before any assignment was found.
	StatusTimeout
)

// String returns a human-readable name of the status.
func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// HasSolution reports whether the status carries an assignment.
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// EngineResult is what an Engine reports back for a model.
// Values is indexed by Var and is only set when Status.HasSolution.
type EngineResult struct {
	Status Status
	Values []bool
}

// Engine searches for an assignment of a Model's variables that satisfies
// every constraint and maximizes its objective.
//
// Infeasibility and running out of time are ordinary results reported
// through EngineResult.Status. A non-nil error means the engine itself
// failed, for example on a constraint type it cannot translate.
//
// The engine must return once ctx is done.
//
// Example custom engine:
//
//	type BruteForce struct{}
//
//	func (BruteForce) Solve(ctx context.Context, m *Model) (*EngineResult, error) {
//	    values := make([]bool, m.NumVars())
//	    // ... enumerate assignments, keep the best one that m.Check accepts ...
//	    return &EngineResult{Status: StatusOptimal, Values: values}, nil
//	}
type Engine interface {
	Solve(ctx context.Context, m *Model) (*EngineResult, error)
}
