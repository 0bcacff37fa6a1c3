package engine

import (
	"fmt"
	"strings"

	"github.com/flowmesh/engine/internal/memory"
	"github.com/flowmesh/engine/pkg/value"
	"github.com/flowmesh/engine/pkg/wf"
)

// applyMemoryInjection implements spec §4.1's memory-injection pre-call
// hook: for a node registered as an "LLM supplier", it inspects the first
// item on AiLM (preferred) or Main for {session_id, history_count}, and
// when both a session and a registered memory supplier are available,
// rewrites that item to carry the retrieved history as a textual block
// appended to system_prompt, a structured messages array, and (if the item
// also carries a prompt field) a trailing user-role message. Scenario S6.
func (e *Engine) applyMemoryInjection(workflowID string, input wf.ExecutionDataMap, defaultHistory int) wf.ExecutionDataMap {
	if e.Memory == nil {
		return input
	}

	port := wf.PortAiLM
	batches, ok := input[port]
	if !ok || len(batches) == 0 || len(batches[0].Items) == 0 {
		port = wf.PortMain
		batches, ok = input[port]
		if !ok || len(batches) == 0 || len(batches[0].Items) == 0 {
			return input
		}
	}

	item := batches[0].Items[0]
	if item.JSON.Kind() != value.KindObject {
		return input
	}
	sessionV, ok := item.JSON.Get("session_id")
	if !ok || sessionV.Kind() != value.KindString || sessionV.AsString() == "" {
		return input
	}

	historyCount := defaultHistory
	if hc, ok := item.JSON.Get("history_count"); ok && hc.Kind() == value.KindNumber {
		historyCount = int(hc.AsNumber())
	}

	recent := e.Memory.Recent(e.Tenant, workflowID, sessionV.AsString(), historyCount)
	transformed := composeMemoryPrompt(item.JSON, recent)

	out := make(wf.ExecutionDataMap, len(input))
	for k, v := range input {
		out[k] = v
	}
	newItems := make([]wf.ExecutionData, len(batches[0].Items))
	copy(newItems, batches[0].Items)
	newItems[0] = wf.ExecutionData{JSON: transformed, Binary: item.Binary, Source: item.Source}

	newBatches := make([]wf.ExecutionDataItems, len(batches))
	copy(newBatches, batches)
	newBatches[0] = wf.ExecutionDataItems{Items: newItems}
	out[port] = newBatches
	return out
}

func composeMemoryPrompt(item value.Value, recent []memory.Message) value.Value {
	var block strings.Builder
	block.WriteString("[History]")
	for _, m := range recent {
		block.WriteString(fmt.Sprintf("\n%s: %s", m.Role, m.Content))
	}

	out := item
	if sp, ok := item.Get("system_prompt"); ok && sp.Kind() == value.KindString {
		out = out.Set("system_prompt", value.String(sp.AsString()+"\n"+block.String()))
	} else {
		out = out.Set("system_prompt", value.String(block.String()))
	}

	msgs := make([]value.Value, 0, len(recent)+1)
	for _, m := range recent {
		msgs = append(msgs, value.NewObject().Set("role", value.String(m.Role)).Set("content", value.String(m.Content)))
	}
	if prompt, ok := item.Get("prompt"); ok && prompt.Kind() == value.KindString {
		msgs = append(msgs, value.NewObject().Set("role", value.String("user")).Set("content", prompt))
	}
	out = out.Set("messages", value.ArrayFrom(msgs))
	out = out.Set("history_length", value.Number(float64(len(recent))))
	return out
}
