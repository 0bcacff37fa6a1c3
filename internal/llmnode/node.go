// Package llmnode implements the "llm" node kind: a chat-completion call
// whose input item is shaped (and, when a session is attached, enriched
// with retrieved history) by the engine's memory-injection hook before
// this node ever sees it (spec §4.1, scenario S6).
//
// Grounded on the teacher's pkg/executor/builtin/llm.go: an LLMProvider
// interface decoupling the node from any one backend, with providers
// constructed per-call from the node's own config rather than once at
// registration time.
package llmnode

import (
	"context"
	"fmt"

	"github.com/flowmesh/engine/pkg/node"
	"github.com/flowmesh/engine/pkg/value"
	"github.com/flowmesh/engine/pkg/wf"
)

// Kind is this node's registered NodeKind.
const Kind wf.NodeKind = "llm"

// ChatMessage is one conversation turn, kept independent of any provider
// SDK's own message type so Provider implementations (and tests) don't
// need to import one.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatRequest is assembled from the node's static config (model, token
// limits) and whatever the input item carries (system_prompt, messages,
// prompt) — the latter is exactly what applyMemoryInjection rewrites.
type ChatRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// ChatResponse is what Provider.Execute returns.
type ChatResponse struct {
	Content          string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Provider abstracts the model backend, mirroring the teacher's
// LLMProvider interface.
type Provider interface {
	Execute(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// ProviderFactory builds a Provider from per-node config, mirroring the
// teacher's getOrCreateProvider (providers are not shared across nodes
// since api_key/base_url vary per node).
type ProviderFactory func(apiKey, baseURL string) Provider

// Node implements node.NodeExecutable for Kind.
type Node struct {
	NewProvider ProviderFactory
}

// New is the node.Factory for Kind, wired to the real OpenAI backend.
func New() node.NodeExecutable {
	return Node{NewProvider: newOpenAIProvider}
}

// NewWithProvider builds a Node around an already-constructed Provider,
// bypassing api_key/base_url-based construction. Intended for tests and
// embedders wiring in their own backend.
func NewWithProvider(p Provider) node.NodeExecutable {
	return Node{NewProvider: func(string, string) Provider { return p }}
}

func (Node) Definition() wf.NodeDefinition {
	return wf.NodeDefinition{
		Kind:        Kind,
		Version:     wf.Version{Major: 1},
		Groups:      []string{"ai"},
		DisplayName: "LLM",
		Description: "Calls a chat completion model; memory-injected history is folded into the prompt automatically.",
		Inputs:      []wf.PortConfig{{Kind: wf.PortMain}, {Kind: wf.PortAiLM}},
		Outputs:     []wf.PortConfig{{Kind: wf.PortMain}},
		Properties: []wf.PropertySpec{
			{Name: "model", DisplayName: "Model", Kind: wf.PropertyString, Required: true},
			{Name: "api_key", DisplayName: "API Key", Kind: wf.PropertyString, Required: true},
			{Name: "base_url", DisplayName: "Base URL", Kind: wf.PropertyString},
			{Name: "max_tokens", DisplayName: "Max Tokens", Kind: wf.PropertyNumber, Default: value.Number(0)},
			{Name: "temperature", DisplayName: "Temperature", Kind: wf.PropertyNumber, Default: value.Number(0)},
			{Name: "top_p", DisplayName: "Top P", Kind: wf.PropertyNumber, Default: value.Number(0)},
		},
	}
}

func (n Node) Execute(ctx context.Context, nctx *node.NodeExecutionContext) (wf.ExecutionDataMap, error) {
	model, err := nctx.RequireString("model")
	if err != nil {
		return nil, err
	}
	apiKey, err := nctx.RequireString("api_key")
	if err != nil {
		return nil, err
	}
	baseURL := nctx.GetStringDefault("base_url", "")

	item, ok := inputItem(nctx.Input)
	if !ok {
		return nil, fmt.Errorf("llm: no input item on AiLM or Main")
	}

	req := ChatRequest{
		Model:       model,
		MaxTokens:   int(nctx.GetNumberDefault("max_tokens", 0)),
		Temperature: nctx.GetNumberDefault("temperature", 0),
		TopP:        nctx.GetNumberDefault("top_p", 0),
	}
	if sp, ok := item.Get("system_prompt"); ok && sp.Kind() == value.KindString {
		req.Messages = append(req.Messages, ChatMessage{Role: "system", Content: sp.AsString()})
	}
	if msgs, ok := item.Get("messages"); ok && msgs.Kind() == value.KindArray {
		for _, m := range msgs.AsArray() {
			role, _ := m.Get("role")
			content, _ := m.Get("content")
			req.Messages = append(req.Messages, ChatMessage{Role: role.AsString(), Content: content.AsString()})
		}
	} else if prompt, ok := item.Get("prompt"); ok && prompt.Kind() == value.KindString {
		req.Messages = append(req.Messages, ChatMessage{Role: "user", Content: prompt.AsString()})
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("llm: input item has neither prompt nor messages")
	}

	resp, err := n.NewProvider(apiKey, baseURL).Execute(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}

	out := value.NewObject().
		Set("content", value.String(resp.Content)).
		Set("finish_reason", value.String(resp.FinishReason)).
		Set("usage", value.NewObject().
			Set("prompt_tokens", value.Number(float64(resp.PromptTokens))).
			Set("completion_tokens", value.Number(float64(resp.CompletionTokens))).
			Set("total_tokens", value.Number(float64(resp.TotalTokens))))
	return wf.SingleMain(out), nil
}

// inputItem picks the node's working item, preferring AiLM the same way
// the memory-injection hook does.
func inputItem(input wf.ExecutionDataMap) (value.Value, bool) {
	for _, port := range []wf.PortKind{wf.PortAiLM, wf.PortMain} {
		batches, ok := input[port]
		if !ok || len(batches) == 0 || len(batches[0].Items) == 0 {
			continue
		}
		item := batches[0].Items[0].JSON
		if item.Kind() == value.KindObject {
			return item, true
		}
	}
	return value.Null(), false
}

var _ node.NodeExecutable = Node{}
