package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/engine/pkg/wf"
)

func diamond() *wf.Workflow {
	return &wf.Workflow{
		ID: "w1",
		Nodes: []wf.WorkflowNode{
			{Name: "trigger", Kind: "trigger"},
			{Name: "if", Kind: "conditional"},
			{Name: "set_true", Kind: "set"},
			{Name: "set_false", Kind: "set"},
			{Name: "file_ops", Kind: "file"},
		},
		Connections: map[string]map[wf.PortKind][]wf.Connection{
			"trigger": {wf.PortMain: {{TargetNode: "if", TargetPort: wf.PortMain}}},
			"if": {wf.PortMain: {
				{TargetNode: "set_true", TargetPort: wf.PortMain},
				{TargetNode: "set_false", TargetPort: wf.PortMain},
			}},
			"set_true":  {wf.PortMain: {{TargetNode: "file_ops", TargetPort: wf.PortMain}}},
			"set_false": {wf.PortMain: {{TargetNode: "file_ops", TargetPort: wf.PortMain}}},
		},
	}
}

func TestBuildAcyclic(t *testing.T) {
	g, err := Build(diamond())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"set_true", "set_false"}, g.ParentNames("file_ops"))
}

func TestBuildRejectsCycle(t *testing.T) {
	w := diamond()
	w.Connections["file_ops"] = map[wf.PortKind][]wf.Connection{
		wf.PortMain: {{TargetNode: "trigger", TargetPort: wf.PortMain}},
	}
	_, err := Build(w)
	require.Error(t, err)
	assert.ErrorIs(t, err, wf.ErrCircularDependency)
}

func TestBuildRejectsMissingTarget(t *testing.T) {
	w := diamond()
	w.Connections["file_ops"] = map[wf.PortKind][]wf.Connection{
		wf.PortMain: {{TargetNode: "ghost", TargetPort: wf.PortMain}},
	}
	_, err := Build(w)
	require.Error(t, err)
	assert.ErrorIs(t, err, wf.ErrNodeNotFound)
}

func TestAncestorsDescendants(t *testing.T) {
	g, err := Build(diamond())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"trigger", "if", "set_true", "set_false"}, g.Ancestors("file_ops"))
	assert.ElementsMatch(t, []string{"if", "set_true", "set_false", "file_ops"}, g.Descendants("trigger"))
}
