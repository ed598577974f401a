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

// Agent is a unit being assigned to a team.
//
// ID must equal the agent's position in Problem.Agents. Preferences is a
// permutation of team ids, most preferred first. Attribute values are
// booleans, numbers or strings; an absent key reads as nil.
type Agent struct {
	ID          int            `yaml:"id" validate:"gte=0"`
	Preferences []int          `yaml:"preferences" validate:"dive,gte=0"`
	Attributes  map[string]any `yaml:"attributes"`
}

// Attribute returns the raw value stored under key, or nil.
func (a Agent) Attribute(key string) any {
	if a.Attributes == nil {
		return nil
	}
	return a.Attributes[key]
}

// String returns a short human-readable form of the agent.
func (a Agent) String() string {
	return fmt.Sprintf("agent %d", a.ID)
}

// RegretTable maps (agent, team) to the team's rank in the agent's
// preference list, 0 being the first choice. Teams missing from a list rank
// as the team count, i.e. worse than any listed team.
type RegretTable struct {
	teams int
	ranks [][]int
}

// NewRegretTable derives ranks from every agent's preference list.
// Out-of-range team ids are ignored; duplicates keep their last rank.
func NewRegretTable(agents []Agent, teams int) *RegretTable {
	ranks := make([][]int, len(agents))
	for a, agent := range agents {
		row := make([]int, teams)
		for t := range row {
			row[t] = teams
		}
		for rank, team := range agent.Preferences {
			if team >= 0 && team < teams {
				row[team] = rank
			}
		}
		ranks[a] = row
	}
	return &RegretTable{teams: teams, ranks: ranks}
}

// Rank returns the regret of putting agent into team.
func (r *RegretTable) Rank(agent, team int) int {
	if agent < 0 || agent >= len(r.ranks) || team < 0 || team >= r.teams {
		return r.teams
	}
	return r.ranks[agent][team]
}

// Teams returns the team count the table was built for.
func (r *RegretTable) Teams() int {
	return r.teams
}
