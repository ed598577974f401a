package selector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildObjectiveRegret(t *testing.T) {
	agents := agentsWith("lead", 2, 1, 1, 0, 0)

	tests := []struct {
		name    string
		weight  float64
		rosters [][]int
		want    float64
	}{
		{"first choices", 1, [][]int{{0, 1}, {2, 3}}, -2},
		{"weighted", 3, [][]int{{0, 1}, {2, 3}}, -6},
		{"swapped", 1, [][]int{{2, 3}, {0, 1}}, -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, agents, 2, 2, WithRegretWeight(tt.weight))
			obj, err := f.compiler.BuildObjective(NewRegretTable(agents, 2), nil)
			require.NoError(t, err)
			require.NotNil(t, obj)
			assert.Equal(t, tt.want, obj.Evaluate(f.assignment(tt.rosters...)))
		})
	}
}

func TestBuildObjectivePrefersLowerRegret(t *testing.T) {
	p := referenceProblem()
	f := newFixture(t, p.Agents, p.Teams, p.Capacity)
	regret := NewRegretTable(p.Agents, p.Teams)

	obj, err := f.compiler.BuildObjective(regret, nil)
	require.NoError(t, err)

	better := f.assignment(
		[]int{3, 5, 11, 12, 13},
		[]int{0, 1, 6, 7, 9},
		[]int{2, 4, 8, 10, 14},
	)
	worse := f.assignment(
		[]int{0, 1, 2, 3, 4},
		[]int{5, 6, 7, 8, 9},
		[]int{10, 11, 12, 13, 14},
	)
	require.NoError(t, f.model.Check(better))
	require.NoError(t, f.model.Check(worse))
	assert.Greater(t, obj.Evaluate(better), obj.Evaluate(worse))
}

func TestBuildObjectiveSoft(t *testing.T) {
	agents := agentsWith("lead", 2, 1, 1, 0, 0)
	homogeneous := [][]int{{0, 1}, {2, 3}}
	mixed := [][]int{{0, 2}, {1, 3}}

	tests := []struct {
		mode        Mode
		homogeneous float64
		mixed       float64
	}{
		{ModeAttractive, -2, -2002},
		{ModeRepulsive, -2, 1998},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			f := newFixture(t, agents, 2, 2)
			vars := f.model.NumVars()
			obj, err := f.compiler.BuildObjective(NewRegretTable(agents, 2), []SoftRule{{Key: "lead", Mode: tt.mode, Weight: 1}})
			require.NoError(t, err)

			// Four dissimilar pairs per team.
			assert.Equal(t, vars+8, f.model.NumVars())
			f.varNamed(t, "both0_0_2_t0")
			f.varNamed(t, "both0_1_3_t1")

			assert.Equal(t, tt.homogeneous, obj.Evaluate(f.complete(f.assignment(homogeneous...))))
			assert.Equal(t, tt.mixed, obj.Evaluate(f.complete(f.assignment(mixed...))))
			assert.NoError(t, f.model.Check(f.complete(f.assignment(mixed...))))
		})
	}
}

func TestBuildObjectiveSoftOptimum(t *testing.T) {
	agents := agentsWith("lead", 2, 1, 0, 1, 0)

	f := newFixture(t, agents, 2, 2)
	_, err := f.compiler.BuildObjective(NewRegretTable(agents, 2), []SoftRule{{Key: "lead", Mode: ModeAttractive, Weight: 1}})
	require.NoError(t, err)
	sol, err := exhaustiveEngine{}.Solve(context.Background(), f.model)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	teams := f.matrix.Decode(sol.Values)
	assert.ElementsMatch(t, [][]int{{0, 2}, {1, 3}}, teams, "attractive rule groups equal values")

	f = newFixture(t, agents, 2, 2)
	_, err = f.compiler.BuildObjective(NewRegretTable(agents, 2), []SoftRule{{Key: "lead", Mode: ModeRepulsive, Weight: 1}})
	require.NoError(t, err)
	sol, err = exhaustiveEngine{}.Solve(context.Background(), f.model)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	for _, members := range f.matrix.Decode(sol.Values) {
		assert.Len(t, members, 2)
		assert.NotEqual(t, agents[members[0]].Attribute("lead"), agents[members[1]].Attribute("lead"),
			"repulsive rule mixes values, got %v", members)
	}
}

func TestBuildObjectiveSkipsZeroCoefficients(t *testing.T) {
	p := referenceProblem()
	f := newFixture(t, p.Agents, p.Teams, p.Capacity)
	vars := f.model.NumVars()

	// Weight zero, and a weight too small to survive truncation.
	obj, err := f.compiler.BuildObjective(nil, []SoftRule{
		{Key: "attributes", Mode: ModeAttractive, Weight: 0},
		{Key: "attributes", Mode: ModeRepulsive, Weight: 0.0009},
	})
	require.NoError(t, err)
	assert.Nil(t, obj)
	assert.Nil(t, f.model.Objective())
	assert.Equal(t, vars, f.model.NumVars())
}

func TestBuildObjectiveWithoutRegret(t *testing.T) {
	agents := agentsWith("lead", 2, 1, 0)
	f := newFixture(t, agents, 2, 1, WithRegretWeight(0))

	obj, err := f.compiler.BuildObjective(NewRegretTable(agents, 2), nil)
	require.NoError(t, err)
	assert.Nil(t, obj)
}

func TestBuildObjectiveCoercionRollsBack(t *testing.T) {
	agents := []Agent{
		{ID: 0, Attributes: map[string]any{"gpa": 0.2, "name": "alice"}},
		{ID: 1, Attributes: map[string]any{"gpa": 0.8, "name": "bob"}},
	}
	f := newFixture(t, agents, 2, 1)
	vars, constraints := f.model.NumVars(), len(f.model.Constraints())

	_, err := f.compiler.BuildObjective(nil, []SoftRule{
		{Key: "gpa", Mode: ModeRepulsive, Weight: 1},
		{Key: "name", Mode: ModeRepulsive, Weight: 1},
	})
	var coercion *CoercionError
	require.True(t, errors.As(err, &coercion), "expected CoercionError, got %v", err)
	assert.Equal(t, vars, f.model.NumVars())
	assert.Len(t, f.model.Constraints(), constraints)
}
