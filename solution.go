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
	"fmt"
	"iter"
	"strings"
)

// Solution is the outcome of Solver.Solve.
//
// Teams, TeamRegret and Values are only set when Status.HasSolution; an
// infeasible or timed out solve still reports the compilation so callers
// can inspect which rules were added.
//
// Example:
//
//	sol, err := solver.Solve(ctx, problem)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for team, members := range sol.All() {
//	    fmt.Printf("team %d: %v\n", team, members)
//	}
type Solution struct {
	Status Status

	// Teams maps team id to ascending agent ids.
	Teams [][]int

	// TeamRegret is the sum of the members' ranks for each team, and
	// TotalRegret the sum over all teams.
	TeamRegret  []int
	TotalRegret int

	// Objective is the value of the model objective under Values.
	Objective float64

	// Values is the raw assignment of every model variable.
	Values []bool

	Compilation *CompileResult
}

// All returns an iterator over team ids and their members.
// It yields nothing when the solution carries no assignment.
func (s *Solution) All() iter.Seq2[int, []int] {
	return func(yield func(int, []int) bool) {
		for t, members := range s.Teams {
			if !yield(t, members) {
				return
			}
		}
	}
}

// TeamOf returns the team agent was assigned to.
func (s *Solution) TeamOf(agent int) (int, bool) {
	for t, members := range s.Teams {
		for _, a := range members {
			if a == agent {
				return t, true
			}
		}
	}
	return 0, false
}

// String returns the roster, one team per line.
func (s *Solution) String() string {
	if !s.Status.HasSolution() {
		return fmt.Sprintf("no assignment (%s)", s.Status)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s, total regret %d", s.Status, s.TotalRegret)
	for t, members := range s.All() {
		fmt.Fprintf(&b, "\nteam %d (regret %d): %v", t, s.TeamRegret[t], members)
	}
	return b.String()
}
