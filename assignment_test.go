package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateVariables(t *testing.T) {
	m := NewModel()
	x := CreateVariables(m, 4, 2)

	require.Equal(t, 8, m.NumVars())
	assert.Equal(t, 4, x.Agents())
	assert.Equal(t, 2, x.Teams())
	assert.Equal(t, "a0_t0", m.VarName(x.At(0, 0)))
	assert.Equal(t, "a2_t1", m.VarName(x.At(2, 1)))
	assert.Equal(t, Var(5), x.At(2, 1), "row-major layout")
}

func TestAddStructuralConstraints(t *testing.T) {
	m := NewModel()
	x := CreateVariables(m, 4, 2)
	lines := AddStructuralConstraints(m, x, 2)

	assert.Equal(t, []string{
		"agent 0: assigned to exactly one team",
		"agent 1: assigned to exactly one team",
		"agent 2: assigned to exactly one team",
		"agent 3: assigned to exactly one team",
		"team 0: exactly 2 members",
		"team 1: exactly 2 members",
	}, lines)
	assert.Len(t, m.Constraints(), 6)

	f := fixture{model: m, matrix: x}
	assert.NoError(t, m.Check(f.assignment([]int{0, 3}, []int{1, 2})))
	assert.Error(t, m.Check(f.assignment([]int{0, 1, 3}, []int{2})), "team too large")
	assert.Error(t, m.Check(f.assignment([]int{0, 1}, []int{1, 2})), "agent in two teams")
	assert.Error(t, m.Check(f.assignment([]int{0}, []int{1, 2})), "agent unassigned")
}

func TestDecode(t *testing.T) {
	m := NewModel()
	x := CreateVariables(m, 4, 2)
	f := fixture{model: m, matrix: x}

	teams := x.Decode(f.assignment([]int{3, 0}, []int{2, 1}))
	assert.Equal(t, [][]int{{0, 3}, {1, 2}}, teams)

	empty := x.Decode(make([]bool, m.NumVars()))
	assert.Equal(t, [][]int{{}, {}}, empty)
}

func TestRegretTable(t *testing.T) {
	agents := []Agent{
		{ID: 0, Preferences: []int{2, 0, 1}},
		{ID: 1, Preferences: []int{1}},
		{ID: 2, Preferences: []int{7, 0}},
	}
	r := NewRegretTable(agents, 3)

	assert.Equal(t, 0, r.Rank(0, 2))
	assert.Equal(t, 1, r.Rank(0, 0))
	assert.Equal(t, 2, r.Rank(0, 1))
	assert.Equal(t, 0, r.Rank(1, 1))
	assert.Equal(t, 3, r.Rank(1, 0), "unlisted teams rank as the team count")
	assert.Equal(t, 1, r.Rank(2, 0), "out-of-range preferences are skipped but keep their rank slot")
	assert.Equal(t, 3, r.Rank(9, 0))
	assert.Equal(t, 3, r.Teams())
}
