package node

import (
	"sort"
	"sync"

	"github.com/flowmesh/engine/pkg/wf"
)

// Factory builds a fresh NodeExecutable instance for one registered
// (kind, version) pair.
type Factory func() NodeExecutable

// Registry maps NodeKind -> registered versions -> factory, resolving the
// highest compatible version when the caller doesn't pin one exactly
// (SPEC_FULL §3.1). Reads (Resolve, Has, List, IsLLMSupplier) take a
// shared read lock, so they are not lock-free; registration takes a brief
// write lock.
type Registry struct {
	mu       sync.RWMutex
	versions map[wf.NodeKind]map[wf.Version]Factory
	llmKinds map[wf.NodeKind]bool
}

func NewRegistry() *Registry {
	return &Registry{
		versions: make(map[wf.NodeKind]map[wf.Version]Factory),
		llmKinds: make(map[wf.NodeKind]bool),
	}
}

// RegisterVersion registers factory for exactly (kind, version).
func (r *Registry) RegisterVersion(kind wf.NodeKind, version wf.Version, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.versions[kind] == nil {
		r.versions[kind] = make(map[wf.Version]Factory)
	}
	r.versions[kind][version] = factory
}

// Register registers factory at version 1.0.0, the common case for node
// kinds with no version history.
func (r *Registry) Register(kind wf.NodeKind, factory Factory) {
	r.RegisterVersion(kind, wf.Version{Major: 1}, factory)
}

// MarkLLMSupplier flags kind as an "LLM supplier" for the engine's memory
// injection pre-call hook (spec §4.1).
func (r *Registry) MarkLLMSupplier(kind wf.NodeKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmKinds[kind] = true
}

// IsLLMSupplier reports whether kind was registered as an LLM supplier.
func (r *Registry) IsLLMSupplier(kind wf.NodeKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.llmKinds[kind]
}

// Has reports whether any version of kind is registered.
func (r *Registry) Has(kind wf.NodeKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.versions[kind]) > 0
}

// Resolve returns a fresh executor instance for kind. If want is non-nil, an
// exact version match is required; otherwise the highest registered version
// is used.
func (r *Registry) Resolve(kind wf.NodeKind, want *wf.Version) (NodeExecutable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.versions[kind]
	if !ok || len(versions) == 0 {
		return nil, wf.NewWorkflowExecutionError("", wf.ErrUnknownNodeKind, string(kind))
	}
	if want != nil {
		factory, ok := versions[*want]
		if !ok {
			return nil, wf.NewWorkflowExecutionError("", wf.ErrUnknownNodeKind,
				string(kind)+"@"+want.String())
		}
		return factory(), nil
	}

	vs := make([]wf.Version, 0, len(versions))
	for v := range versions {
		vs = append(vs, v)
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i].Compare(vs[j]) < 0 })
	best := vs[len(vs)-1]
	return versions[best](), nil
}

// List returns every registered node kind.
func (r *Registry) List() []wf.NodeKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]wf.NodeKind, 0, len(r.versions))
	for k := range r.versions {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
