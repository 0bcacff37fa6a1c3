// Package memory implements the session-scoped conversational memory
// sliding window (C14), distinct in scope from internal/wfcontext's
// per-execution ChatHistory (spec §9: "Keep both; implementers must not
// conflate them").
//
// Grounded on the teacher's LLM executor message-history assembly shape
// (pkg/executor/builtin llm.go), generalized into a standalone,
// session-keyed supplier component.
package memory

import (
	"container/ring"
	"sync"
)

const defaultWindow = 5

// Message is one stored conversational turn.
type Message struct {
	Role    string
	Content string
}

type sessionKey struct {
	Tenant   string
	Workflow string
	Session  string
}

// Supplier keeps a per-(tenant, workflow, session) sliding window in a ring
// buffer of size window: only the most recent window messages are kept, each
// Append beyond that overwriting the oldest, and retrieval returns the most
// recent N of those kept messages.
type Supplier struct {
	mu      sync.RWMutex
	window  int
	buffers map[sessionKey]*ring.Ring
	counts  map[sessionKey]int
}

// New builds a Supplier with the given context window length; 0 selects
// the spec default of 5.
func New(window int) *Supplier {
	if window <= 0 {
		window = defaultWindow
	}
	return &Supplier{
		window:  window,
		buffers: make(map[sessionKey]*ring.Ring),
		counts:  make(map[sessionKey]int),
	}
}

// Append records one message for the given session, evicting the oldest
// entry once the window is full.
func (s *Supplier) Append(tenant, workflow, session string, msg Message) {
	key := sessionKey{tenant, workflow, session}
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.buffers[key]
	if !ok {
		buf = ring.New(s.window)
		s.buffers[key] = buf
	}
	buf.Value = msg
	s.buffers[key] = buf.Next()
	if s.counts[key] < s.window {
		s.counts[key]++
	}
}

// Recent returns up to n most recent messages for the session, oldest
// first. n is clamped to the session's configured window.
func (s *Supplier) Recent(tenant, workflow, session string, n int) []Message {
	key := sessionKey{tenant, workflow, session}
	s.mu.RLock()
	defer s.mu.RUnlock()

	buf, ok := s.buffers[key]
	count := s.counts[key]
	if !ok || count == 0 {
		return nil
	}
	if n <= 0 || n > count {
		n = count
	}

	// buf always points `count` slots ahead of the oldest live entry: walk
	// backward that many steps to find it, then collect forward.
	start := buf
	for i := 0; i < count; i++ {
		start = start.Prev()
	}
	all := make([]Message, 0, count)
	cursor := start
	for i := 0; i < count; i++ {
		all = append(all, cursor.Value.(Message))
		cursor = cursor.Next()
	}
	return all[count-n:]
}

// Clear removes all stored messages for the given session.
func (s *Supplier) Clear(tenant, workflow, session string) {
	key := sessionKey{tenant, workflow, session}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buffers, key)
	delete(s.counts, key)
}
