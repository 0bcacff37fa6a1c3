package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/engine/pkg/wf"
)

func echoFactory() NodeExecutable {
	return NodeExecutableFunc{
		Def: wf.NodeDefinition{Kind: "echo", Version: wf.Version{Major: 1}},
		ExecuteFn: func(ctx context.Context, nctx *NodeExecutionContext) (wf.ExecutionDataMap, error) {
			return nctx.Input, nil
		},
	}
}

func TestRegistryResolveLatest(t *testing.T) {
	r := NewRegistry()
	r.RegisterVersion("echo", wf.Version{Major: 1}, echoFactory)
	r.RegisterVersion("echo", wf.Version{Major: 2}, echoFactory)

	exec, err := r.Resolve("echo", nil)
	require.NoError(t, err)
	assert.Equal(t, wf.NodeKind("echo"), exec.Definition().Kind)
}

func TestRegistryResolveUnknownKind(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("missing", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, wf.ErrUnknownNodeKind)
}

func TestRegistryResolveExactVersionMissing(t *testing.T) {
	r := NewRegistry()
	r.Register("echo", echoFactory)
	want := wf.Version{Major: 9}
	_, err := r.Resolve("echo", &want)
	require.Error(t, err)
	assert.ErrorIs(t, err, wf.ErrUnknownNodeKind)
}

func TestLLMSupplierFlag(t *testing.T) {
	r := NewRegistry()
	r.Register("llm", echoFactory)
	assert.False(t, r.IsLLMSupplier("llm"))
	r.MarkLLMSupplier("llm")
	assert.True(t, r.IsLLMSupplier("llm"))
}
