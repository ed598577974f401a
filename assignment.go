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

import "fmt"

// AssignmentMatrix holds one boolean variable per (agent, team) pair.
// x[a,t] is true when agent a is assigned to team t.
//
// The matrix is created once per compilation and shared read-only by every
// compiler component; only an Engine assigns its variables.
type AssignmentMatrix struct {
	agents int
	teams  int
	vars   []Var // row-major: agent*teams + team
}

// CreateVariables declares agents*teams assignment variables on m, named
// a<agent>_t<team>, in row-major order.
func CreateVariables(m *Model, agents, teams int) *AssignmentMatrix {
	matrix := &AssignmentMatrix{
		agents: agents,
		teams:  teams,
		vars:   make([]Var, 0, agents*teams),
	}
	for a := range agents {
		for t := range teams {
			matrix.vars = append(matrix.vars, m.NewBoolVar(fmt.Sprintf("a%d_t%d", a, t)))
		}
	}
	return matrix
}

// At returns the variable for (agent, team).
func (x *AssignmentMatrix) At(agent, team int) Var {
	return x.vars[agent*x.teams+team]
}

// Agents returns the number of rows.
func (x *AssignmentMatrix) Agents() int {
	return x.agents
}

// Teams returns the number of columns.
func (x *AssignmentMatrix) Teams() int {
	return x.teams
}

// row returns the variables of one agent across all teams.
func (x *AssignmentMatrix) row(agent int) []Var {
	return x.vars[agent*x.teams : (agent+1)*x.teams]
}

// column returns the variables of every agent for one team.
func (x *AssignmentMatrix) column(team int) []Var {
	col := make([]Var, x.agents)
	for a := range x.agents {
		col[a] = x.At(a, team)
	}
	return col
}

// members returns the variables of the given agents for one team.
func (x *AssignmentMatrix) members(team int, agents []int) []Var {
	col := make([]Var, len(agents))
	for i, a := range agents {
		col[i] = x.At(a, team)
	}
	return col
}

// AddStructuralConstraints adds the two families of constraints every
// solution satisfies regardless of declared rules:
//   - each agent's row sums to 1 (exactly one team per agent)
//   - each team's column sums to capacity (exact team size)
//
// If teams*capacity differs from the agent count the model is infeasible by
// construction; Problem.Validate rejects that case before this is called.
// The returned lines describe the added constraints.
func AddStructuralConstraints(m *Model, x *AssignmentMatrix, capacity int) []string {
	lines := make([]string, 0, x.agents+x.teams)
	for a := range x.agents {
		m.AddLinear(Sum(x.row(a)...), Equal, 1)
		lines = append(lines, fmt.Sprintf("agent %d: assigned to exactly one team", a))
	}
	for t := range x.teams {
		m.AddLinear(Sum(x.column(t)...), Equal, int64(capacity))
		lines = append(lines, fmt.Sprintf("team %d: exactly %d members", t, capacity))
	}
	return lines
}

// Decode reads a roster out of an assignment: team -> ascending agent ids.
// An agent with no true variable in its row is left out.
func (x *AssignmentMatrix) Decode(values []bool) [][]int {
	teams := make([][]int, x.teams)
	for t := range teams {
		teams[t] = []int{}
	}
	for a := range x.agents {
		for t := range x.teams {
			if NewLit(x.At(a, t)).SatisfiedBy(values) {
				teams[t] = append(teams[t], a)
				break
			}
		}
	}
	return teams
}
