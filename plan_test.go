package neoframe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Plan(t *testing.T) {
	t.Parallel()

	f := frameOf(t, []string{"person", "city", "since"},
		[]any{1, nil, 3},
		[]any{10, 20, nil},
		[]any{2001, 2002, 2003},
	)
	e := New(f, nil)
	require.NoError(t, e.DeclareNode("Person", "person"))
	require.NoError(t, e.DeclareNode("City", "city"))
	require.NoError(t, e.DeclareRelationship("Person", "City", "LIVES_IN", "since"))

	p := e.Plan()
	require.Len(t, p.Constraints, 2)
	assert.Equal(t, "Person", p.Constraints[0].Label)
	assert.Contains(t, p.Constraints[0].Cypher, "REQUIRE n.`person` IS UNIQUE")

	require.Len(t, p.Nodes, 2)
	assert.Equal(t, PlannedNodeMerge{
		Label:     "Person",
		KeySchema: []string{"person"},
		Records:   2,
		Cypher:    MergeNodesCypher("Person", []string{"person"}),
	}, p.Nodes[0])

	require.Len(t, p.Relationships, 1)
	rel := p.Relationships[0]
	assert.Equal(t, "LIVES_IN", rel.Name)
	assert.Equal(t, 1, rel.Records)
	assert.Equal(t, NodeKey{Label: "City", Column: "city"}, rel.End)
}

func TestEngine_PlanWithoutConstraints(t *testing.T) {
	t.Parallel()

	e := New(peopleCities(t), nil, WithConstraints(false))
	require.NoError(t, e.DeclareNode("Person", "person"))
	assert.Empty(t, e.Plan().Constraints)
}
