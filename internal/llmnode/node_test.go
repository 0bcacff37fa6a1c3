package llmnode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/engine/pkg/node"
	"github.com/flowmesh/engine/pkg/value"
	"github.com/flowmesh/engine/pkg/wf"
)

type fakeProvider struct {
	resp    ChatResponse
	err     error
	lastReq ChatRequest
}

func (f *fakeProvider) Execute(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

func newCtx(params, input value.Value, port wf.PortKind) *node.NodeExecutionContext {
	w := &wf.Workflow{
		ID:    "w1",
		Nodes: []wf.WorkflowNode{{Name: "caller", Kind: Kind, Parameters: params}},
	}
	return &node.NodeExecutionContext{
		ExecutionID: "exec-1",
		Workflow:    w,
		NodeName:    "caller",
		Input:       wf.ExecutionDataMap{port: {{Items: []wf.ExecutionData{{JSON: input}}}}},
	}
}

func TestLLMNodeCallsProviderWithComposedMessages(t *testing.T) {
	fp := &fakeProvider{resp: ChatResponse{Content: "hi there", FinishReason: "stop", PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}}
	n := NewWithProvider(fp)

	params := value.NewObject().
		Set("model", value.String("gpt-4o-mini")).
		Set("api_key", value.String("sk-test"))
	input := value.NewObject().
		Set("system_prompt", value.String("be terse")).
		Set("prompt", value.String("say hi"))
	nctx := newCtx(params, input, wf.PortMain)

	out, err := n.Execute(context.Background(), nctx)
	require.NoError(t, err)

	require.Len(t, fp.lastReq.Messages, 2)
	assert.Equal(t, "system", fp.lastReq.Messages[0].Role)
	assert.Equal(t, "user", fp.lastReq.Messages[1].Role)
	assert.Equal(t, "say hi", fp.lastReq.Messages[1].Content)

	main := out.Main()
	require.Len(t, main, 1)
	content, _ := main[0].Get("content")
	assert.Equal(t, "hi there", content.AsString())
	usage, _ := main[0].Get("usage")
	total, _ := usage.Get("total_tokens")
	assert.Equal(t, float64(5), total.AsNumber())
}

func TestLLMNodePrefersAiLMPortOverMain(t *testing.T) {
	fp := &fakeProvider{resp: ChatResponse{Content: "ok"}}
	n := NewWithProvider(fp)

	params := value.NewObject().Set("model", value.String("m")).Set("api_key", value.String("k"))
	w := &wf.Workflow{ID: "w1", Nodes: []wf.WorkflowNode{{Name: "caller", Kind: Kind, Parameters: params}}}
	nctx := &node.NodeExecutionContext{
		ExecutionID: "exec-1",
		Workflow:    w,
		NodeName:    "caller",
		Input: wf.ExecutionDataMap{
			wf.PortMain: {{Items: []wf.ExecutionData{{JSON: value.NewObject().Set("prompt", value.String("main prompt"))}}}},
			wf.PortAiLM: {{Items: []wf.ExecutionData{{JSON: value.NewObject().Set("prompt", value.String("ailm prompt"))}}}},
		},
	}

	_, err := n.Execute(context.Background(), nctx)
	require.NoError(t, err)
	require.Len(t, fp.lastReq.Messages, 1)
	assert.Equal(t, "ailm prompt", fp.lastReq.Messages[0].Content)
}

func TestLLMNodeUsesComposedMessagesArrayFromMemoryInjection(t *testing.T) {
	fp := &fakeProvider{resp: ChatResponse{Content: "ok"}}
	n := NewWithProvider(fp)

	params := value.NewObject().Set("model", value.String("m")).Set("api_key", value.String("k"))
	messages := value.ArrayFrom([]value.Value{
		value.NewObject().Set("role", value.String("user")).Set("content", value.String("earlier turn")),
		value.NewObject().Set("role", value.String("user")).Set("content", value.String("say hi")),
	})
	input := value.NewObject().Set("messages", messages).Set("prompt", value.String("say hi"))
	nctx := newCtx(params, input, wf.PortMain)

	_, err := n.Execute(context.Background(), nctx)
	require.NoError(t, err)
	require.Len(t, fp.lastReq.Messages, 2)
	assert.Equal(t, "earlier turn", fp.lastReq.Messages[0].Content)
}

func TestLLMNodeRequiresModel(t *testing.T) {
	fp := &fakeProvider{}
	n := NewWithProvider(fp)
	nctx := newCtx(value.NewObject().Set("api_key", value.String("k")), value.NewObject().Set("prompt", value.String("hi")), wf.PortMain)
	_, err := n.Execute(context.Background(), nctx)
	assert.Error(t, err)
}

func TestLLMNodeRequiresPromptOrMessages(t *testing.T) {
	fp := &fakeProvider{}
	n := NewWithProvider(fp)
	params := value.NewObject().Set("model", value.String("m")).Set("api_key", value.String("k"))
	nctx := newCtx(params, value.NewObject(), wf.PortMain)
	_, err := n.Execute(context.Background(), nctx)
	assert.Error(t, err)
}

var _ node.NodeExecutable = Node{}
