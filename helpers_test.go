package selector

import (
	"context"
	"fmt"
	"slices"
	"testing"
)

// referencePreferences and referenceFlags reproduce testdata/reference.yaml.
var referencePreferences = [][]int{
	{1, 0, 2}, {1, 0, 2}, {2, 1, 0}, {0, 2, 1}, {1, 2, 0},
	{2, 0, 1}, {1, 0, 2}, {1, 0, 2}, {2, 1, 0}, {1, 2, 0},
	{1, 2, 0}, {2, 0, 1}, {0, 1, 2}, {1, 0, 2}, {2, 1, 0},
}

var referenceFlags = []int{0, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}

func referenceProblem() *Problem {
	agents := make([]Agent, len(referencePreferences))
	for i, prefs := range referencePreferences {
		agents[i] = Agent{
			ID:          i,
			Preferences: prefs,
			Attributes:  map[string]any{"attributes": referenceFlags[i]},
		}
	}
	return &Problem{
		Teams:    3,
		Capacity: 5,
		Agents:   agents,
		Rules: []Rule{
			Hard(IncludesBetween("attributes", true, 1, 5)),
			Soft("attributes", ModeAttractive, 0),
		},
	}
}

// agentsWith builds agents 0..n-1 with identity preferences over teams and
// the given values under key.
func agentsWith(key string, teams int, values ...any) []Agent {
	agents := make([]Agent, len(values))
	for i, v := range values {
		prefs := make([]int, teams)
		for t := range prefs {
			prefs[t] = t
		}
		agents[i] = Agent{ID: i, Preferences: prefs, Attributes: map[string]any{key: v}}
	}
	return agents
}

type fixture struct {
	model    *Model
	matrix   *AssignmentMatrix
	compiler *Compiler
}

func newFixture(t testing.TB, agents []Agent, teams, capacity int, opts ...SolverOption) fixture {
	t.Helper()
	m := NewModel()
	x := CreateVariables(m, len(agents), teams)
	AddStructuralConstraints(m, x, capacity)
	return fixture{model: m, matrix: x, compiler: NewCompiler(m, x, agents, opts...)}
}

// assignment returns model values placing each agent of rosters[t] in team
// t. Auxiliary variables are left false.
func (f fixture) assignment(rosters ...[]int) []bool {
	values := make([]bool, f.model.NumVars())
	for t, members := range rosters {
		for _, a := range members {
			values[f.matrix.At(a, t)] = true
		}
	}
	return values
}

// varNamed returns the variable declared with name.
func (f fixture) varNamed(t testing.TB, name string) Var {
	t.Helper()
	for v := range f.model.NumVars() {
		if f.model.VarName(Var(v)) == name {
			return Var(v)
		}
	}
	t.Fatalf("no variable named %s", name)
	return -1
}

// complete sets every product target to the conjunction of its factors, so
// that an assignment of the matrix extends to the pairwise variables.
func (f fixture) complete(values []bool) []bool {
	for _, c := range f.model.Constraints() {
		p, ok := c.(*ProductConstraint)
		if !ok {
			continue
		}
		all := true
		for _, factor := range p.Factors {
			all = all && factor.SatisfiedBy(values)
		}
		values[p.Target.Var] = all == p.Target.Positive
	}
	return values
}

// exhaustiveEngine enumerates every assignment of a small model and keeps
// the first one with the best objective.
type exhaustiveEngine struct {
	maxVars int
}

func (e exhaustiveEngine) Solve(ctx context.Context, m *Model) (*EngineResult, error) {
	n := m.NumVars()
	limit := e.maxVars
	if limit == 0 {
		limit = 20
	}
	if n > limit {
		return nil, fmt.Errorf("model too large for exhaustive search: %d vars", n)
	}

	var best []bool
	bestValue := 0.0
	values := make([]bool, n)
	for mask := 0; mask < 1<<n; mask++ {
		if mask&0xfff == 0 && ctx.Err() != nil {
			return &EngineResult{Status: StatusTimeout}, nil
		}
		for i := range n {
			values[i] = mask&(1<<i) != 0
		}
		if m.Check(values) != nil {
			continue
		}
		if v := m.Objective().Evaluate(values); best == nil || v > bestValue {
			best, bestValue = slices.Clone(values), v
		}
	}
	if best == nil {
		return &EngineResult{Status: StatusInfeasible}, nil
	}
	return &EngineResult{Status: StatusOptimal, Values: best}, nil
}
