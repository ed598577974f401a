package selector

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/crillab/gophersat/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// Searches abandoned at a deadline finish in the background.
		goleak.IgnoreAnyFunction("github.com/crillab/gophersat/solver.(*Solver).Optimal"),
		goleak.IgnoreAnyFunction("github.com/front-depiction/project-selector.(*satRun).collect"),
	)
}

func solveWith(t *testing.T, engine Engine, m *Model) *EngineResult {
	t.Helper()
	res, err := engine.Solve(context.Background(), m)
	require.NoError(t, err)
	require.NotNil(t, res)
	if res.Status.HasSolution() {
		require.NoError(t, m.Check(res.Values), "engine returned an assignment that violates the model")
	}
	return res
}

func TestSATEngineStructural(t *testing.T) {
	agents := agentsWith("lead", 2, 1, 1, 0, 0)
	f := newFixture(t, agents, 2, 2)
	_, err := f.compiler.BuildObjective(NewRegretTable(agents, 2), nil)
	require.NoError(t, err)

	res := solveWith(t, NewSATEngine(), f.model)
	assert.Equal(t, StatusOptimal, res.Status)
	assert.Equal(t, -2.0, f.model.Objective().Evaluate(res.Values))
	for _, members := range f.matrix.Decode(res.Values) {
		assert.Len(t, members, 2)
	}
}

func TestSATEngineIncludes(t *testing.T) {
	f := newFixture(t, agentsWith("lead", 2, 1, 1, 0, 0), 2, 2)
	_, err := f.compiler.Compile(Hard(IncludesBetween("lead", 1, 1, 1)))
	require.NoError(t, err)

	res := solveWith(t, NewSATEngine(), f.model)
	require.Equal(t, StatusOptimal, res.Status)
	for _, members := range f.matrix.Decode(res.Values) {
		leads := 0
		for _, a := range members {
			if a < 2 {
				leads++
			}
		}
		assert.Equal(t, 1, leads, "team %v", members)
	}
}

func TestSATEngineSoftModes(t *testing.T) {
	agents := agentsWith("lead", 2, 1, 1, 1, 0, 0, 0)

	mixedPairs := func(teams [][]int) int {
		n := 0
		for _, members := range teams {
			for i, a1 := range members {
				for _, a2 := range members[i+1:] {
					if agents[a1].Attribute("lead") != agents[a2].Attribute("lead") {
						n++
					}
				}
			}
		}
		return n
	}

	tests := []struct {
		mode      Mode
		mixed     int
		objective float64
	}{
		{ModeAttractive, 0, -3},
		{ModeRepulsive, 4, 3997},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			f := newFixture(t, agents, 2, 3)
			_, err := f.compiler.BuildObjective(NewRegretTable(agents, 2), []SoftRule{{Key: "lead", Mode: tt.mode, Weight: 1}})
			require.NoError(t, err)

			res := solveWith(t, NewSATEngine(), f.model)
			require.Equal(t, StatusOptimal, res.Status)
			assert.Equal(t, tt.mixed, mixedPairs(f.matrix.Decode(res.Values)))
			assert.Equal(t, tt.objective, f.model.Objective().Evaluate(res.Values))
		})
	}
}

func TestSATEngineInfeasible(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{"conflicting sums", Hard(&Equals{Key: "lead", Value: 2})},
		{"bound above supply", Hard(IncludesBetween("lead", 1, 3, 3)).ForTeam(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, agentsWith("lead", 2, 1, 1, 0, 0), 2, 2)
			_, err := f.compiler.Compile(tt.rule)
			require.NoError(t, err)

			res := solveWith(t, NewSATEngine(), f.model)
			assert.Equal(t, StatusInfeasible, res.Status)
			assert.Nil(t, res.Values)
		})
	}
}

func TestSATEngineCanceledContext(t *testing.T) {
	f := newFixture(t, agentsWith("lead", 2, 1, 1, 0, 0), 2, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewSATEngine().Solve(ctx, f.model)
	require.NoError(t, err)
	assert.Equal(t, StatusTimeout, res.Status)
}

// pigeonhole builds the unsatisfiable problem of placing pigeons into
// holes-1 holes, one pigeon per hole.
func pigeonhole(pigeons int) *Model {
	m := NewModel()
	holes := pigeons - 1
	x := make([][]Var, pigeons)
	for p := range x {
		x[p] = make([]Var, holes)
		lits := make([]Lit, holes)
		for h := range holes {
			x[p][h] = m.NewBoolVar(fmt.Sprintf("x[%d][%d]", p, h))
			lits[h] = x[p][h].Lit()
		}
		m.AddBoolOr(lits...)
	}
	for h := range holes {
		for p1 := range pigeons {
			for p2 := p1 + 1; p2 < pigeons; p2++ {
				m.AddBoolOr(x[p1][h].Not(), x[p2][h].Not())
			}
		}
	}
	return m
}

func TestSATEngineDeadlineInterruptsSearch(t *testing.T) {
	m := pigeonhole(11)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := NewSATEngine().Solve(ctx, m)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatusTimeout, res.Status)
	assert.Nil(t, res.Values)
}

func TestEngineResult(t *testing.T) {
	m := NewModel()
	for i := range 3 {
		m.NewBoolVar(fmt.Sprintf("v%d", i))
	}
	sat := solver.Result{Status: solver.Sat, Model: []bool{true, false, true}}

	tests := []struct {
		name     string
		res      solver.Result
		finished bool
		want     *EngineResult
	}{
		{"finished search", sat, true, &EngineResult{Status: StatusOptimal, Values: []bool{true, false, true}}},
		{"interrupted with a model", sat, false, &EngineResult{Status: StatusFeasible, Values: []bool{true, false, true}}},
		{"proved unsatisfiable", solver.Result{Status: solver.Unsat}, true, &EngineResult{Status: StatusInfeasible}},
		{"interrupted without a model", solver.Result{}, false, &EngineResult{Status: StatusTimeout}},
		{"indeterminate", solver.Result{Status: solver.Indet}, true, &EngineResult{Status: StatusTimeout}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engineResult(tt.res, m, tt.finished))
		})
	}
}

func TestModelValuesPadsShortModels(t *testing.T) {
	m := NewModel()
	for i := range 4 {
		m.NewBoolVar(fmt.Sprintf("v%d", i))
	}
	got := modelValues(solver.Result{Status: solver.Sat, Model: []bool{true, true}}, m)
	assert.Equal(t, []bool{true, true, false, false}, got)
}

func TestSATEngineUnsupportedComparison(t *testing.T) {
	f := newFixture(t, agentsWith("lead", 2, 1, 0), 2, 1)
	f.model.AddLinear(Sum(f.matrix.At(0, 0)), Comparison(42), 1)

	_, err := NewSATEngine().Solve(context.Background(), f.model)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported comparison")
}

func TestSATEngineFractionalObjective(t *testing.T) {
	agents := []Agent{
		{ID: 0, Preferences: []int{1, 0}},
		{ID: 1, Preferences: []int{0, 1}},
	}
	f := newFixture(t, agents, 2, 1, WithRegretWeight(0.25))
	_, err := f.compiler.BuildObjective(NewRegretTable(agents, 2), nil)
	require.NoError(t, err)

	res := solveWith(t, NewSATEngine(), f.model)
	require.Equal(t, StatusOptimal, res.Status)
	assert.Equal(t, [][]int{{1}, {0}}, f.matrix.Decode(res.Values))
	assert.Equal(t, 0.0, f.model.Objective().Evaluate(res.Values))
}

// The SAT engine and exhaustive search must agree on the optimum of small
// models that exercise every constraint type.
func TestSATEngineAgreesWithExhaustiveSearch(t *testing.T) {
	agents := []Agent{
		{ID: 0, Preferences: []int{0, 1}, Attributes: map[string]any{"lead": 1, "gpa": 0.9, "name": "alice"}},
		{ID: 1, Preferences: []int{0, 1}, Attributes: map[string]any{"lead": 1, "gpa": 0.3, "name": "bob"}},
		{ID: 2, Preferences: []int{1, 0}, Attributes: map[string]any{"lead": 0, "gpa": 0.6, "name": "carol"}},
		{ID: 3, Preferences: []int{0, 1}, Attributes: map[string]any{"lead": 0, "gpa": 0.2, "name": "dave"}},
	}

	tests := []struct {
		name  string
		opts  []SolverOption
		rules []Rule
		soft  []SoftRule
	}{
		{
			name:  "or",
			rules: []Rule{Or(Hard(&Equals{Key: "lead", Value: 2}), Hard(&Range{Key: "gpa", Min: 0.7, Max: 0.9})).ForTeam(0)},
		},
		{
			name:  "not under equivalence",
			opts:  []SolverOption{WithReification(ReifyEquivalence)},
			rules: []Rule{Not(Hard(MustRegex("name", "^[ab]"))).ForTeam(1)},
		},
		{
			name:  "regex with repulsive gpa",
			rules: []Rule{Hard(MustRegex("name", "^(alice|carol)$"))},
			soft:  []SoftRule{{Key: "gpa", Mode: ModeRepulsive, Weight: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			build := func() fixture {
				f := newFixture(t, agents, 2, 2, tt.opts...)
				_, err := f.compiler.Compile(tt.rules...)
				require.NoError(t, err)
				_, err = f.compiler.BuildObjective(NewRegretTable(agents, 2), tt.soft)
				require.NoError(t, err)
				return f
			}

			exact := build()
			want := solveWith(t, exhaustiveEngine{}, exact.model)
			sat := build()
			got := solveWith(t, NewSATEngine(), sat.model)

			require.Equal(t, want.Status, got.Status)
			if want.Status.HasSolution() {
				assert.InDelta(t,
					exact.model.Objective().Evaluate(want.Values),
					sat.model.Objective().Evaluate(got.Values), 1e-9)
			}
		})
	}
}
