// Package router implements edge/branch boolean condition evaluation and
// post-node EngineRequest dispatch (C13), grounded directly on the
// teacher's backend/internal/application/engine/condition_cache.go and
// dag_executor.go's evaluateEdgeCondition.
package router

import (
	"container/list"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

const defaultConditionCacheSize = 256

type cacheEntry struct {
	condition string
	program   *vm.Program
}

// ConditionCache compiles and caches boolean edge conditions with an LRU
// eviction policy, exactly mirroring the teacher's ConditionCache: a
// container/list-backed LRU guarded by an RWMutex.
type ConditionCache struct {
	mu       sync.RWMutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

func NewConditionCache(capacity int) *ConditionCache {
	if capacity <= 0 {
		capacity = defaultConditionCacheSize
	}
	return &ConditionCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
	}
}

// CompileAndCache compiles condition against env (a map of variable name to
// value, e.g. {"output": ..., "node": ...}) using expr.AsBool(), caching the
// compiled program keyed by the condition text.
func (c *ConditionCache) CompileAndCache(condition string, env map[string]any) (*vm.Program, error) {
	c.mu.RLock()
	if el, ok := c.items[condition]; ok {
		c.mu.RUnlock()
		c.mu.Lock()
		c.ll.MoveToFront(el)
		c.mu.Unlock()
		return el.Value.(*cacheEntry).program, nil
	}
	c.mu.RUnlock()

	program, err := expr.Compile(condition, expr.Env(env), expr.AsBool())
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[condition]; ok {
		c.ll.MoveToFront(el)
		return el.Value.(*cacheEntry).program, nil
	}
	el := c.ll.PushFront(&cacheEntry{condition: condition, program: program})
	c.items[condition] = el
	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).condition)
		}
	}
	return program, nil
}

// Eval compiles (or reuses a cached compile of) condition and runs it
// against env, returning its boolean result.
func (c *ConditionCache) Eval(condition string, env map[string]any) (bool, error) {
	program, err := c.CompileAndCache(condition, env)
	if err != nil {
		return false, err
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}
	b, _ := out.(bool)
	return b, nil
}
