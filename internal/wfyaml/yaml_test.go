package wfyaml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/engine/pkg/wf"
)

const minimalYAML = `
id: wf1
name: minimal
nodes:
  - name: a
    kind: trigger
  - name: b
    kind: http
    parameters:
      url: https://example.com
      timeout_ms: 5000
connections:
  a:
    - port: Main
      target_node: b
      target_port: Main
`

func TestUnmarshalBuildsWorkflow(t *testing.T) {
	w, err := Unmarshal([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "wf1", w.ID)
	require.Len(t, w.Nodes, 2)
	assert.Equal(t, wf.NodeKind("http"), w.Nodes[1].Kind)

	url, ok := w.Nodes[1].Parameters.Get("url")
	require.True(t, ok)
	assert.Equal(t, "https://example.com", url.AsString())

	conns := w.Connections["a"][wf.PortMain]
	require.Len(t, conns, 1)
	assert.Equal(t, "b", conns[0].TargetNode)
}

func TestUnmarshalRejectsEmptyDocument(t *testing.T) {
	_, err := Unmarshal([]byte("   "))
	assert.Error(t, err)
}

func TestUnmarshalRejectsInvalidWorkflow(t *testing.T) {
	_, err := Unmarshal([]byte("id: \"\"\nname: no-id\nnodes: []\n"))
	assert.Error(t, err)
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	w, err := Unmarshal([]byte(minimalYAML))
	require.NoError(t, err)

	data, err := Marshal(w)
	require.NoError(t, err)

	w2, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, w.ID, w2.ID)
	assert.Equal(t, len(w.Nodes), len(w2.Nodes))
	assert.Equal(t, w.Connections["a"][wf.PortMain][0].TargetNode,
		w2.Connections["a"][wf.PortMain][0].TargetNode)
}
