// Package wfcontext implements the Context object (C10): a thread-safe
// key-value store plus a bounded chat history, shared by every node
// executing within one workflow run. Named wfcontext (not "context") so it
// never shadows the stdlib context package used pervasively alongside it.
//
// Grounded on the teacher's backend ExecutionState (RWMutex-guarded maps in
// internal/application/engine/types.go), generalized from node-keyed result
// maps to the spec's single data map, and backed by xsync's lock-free
// concurrent map for the point reads/writes spec §4.5 requires.
package wfcontext

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/flowmesh/engine/pkg/value"
)

// Role enumerates ChatHistory entry authorship.
type Role string

const (
	RoleUser      Role = "User"
	RoleAssistant Role = "Assistant"
	RoleSystem    Role = "System"
)

// ChatMessage is one entry in the ChatHistory.
type ChatMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

const defaultChatHistoryMax = 1000

// Context is the shared, cheaply-clonable handle many concurrently
// executing nodes hold references to (spec §9: "model it as
// shared_ownership(Context)"). Copying a Context value copies only the
// pointers to the underlying maps, not their contents.
type Context struct {
	data *xsync.MapOf[string, value.Value]

	histMu  sync.RWMutex
	history []ChatMessage
	histMax int
}

// New builds an empty Context with the default chat-history maximum (1000).
func New() *Context {
	return &Context{
		data:    xsync.NewMapOf[string, value.Value](),
		histMax: defaultChatHistoryMax,
	}
}

// NewWithHistoryMax builds an empty Context with a custom chat-history cap.
func NewWithHistoryMax(max int) *Context {
	c := New()
	c.histMax = max
	return c
}

// Get performs a lock-free point read of key (spec §4.5).
func (c *Context) Get(key string) (value.Value, bool) {
	return c.data.Load(key)
}

// GetSync is the synchronous counterpart required for predicate closures
// such as edge conditions evaluated during graph traversal (spec §9:
// "Synchronous counterparts get_sync/set_sync must exist ..."). Since this
// implementation's Get/Set are already non-blocking (xsync.MapOf never
// takes a global lock), GetSync/SetSync are plain aliases — the async shape
// in the source spec exists to keep slow serializers off the hot path, and
// this Value-in/Value-out contract has no serialization step to hide.
func (c *Context) GetSync(key string) (value.Value, bool) { return c.Get(key) }

// Set performs a lock-free point write of key.
func (c *Context) Set(key string, v value.Value) {
	c.data.Store(key, v)
}

// SetSync is the synchronous counterpart of Set; see GetSync.
func (c *Context) SetSync(key string, v value.Value) { c.Set(key, v) }

// SetAny converts in via value.FromAny before storing, matching the
// documented "values are serialized to Value on insert" behavior.
func (c *Context) SetAny(key string, in any) error {
	v, err := value.FromAny(in)
	if err != nil {
		return err
	}
	c.Set(key, v)
	return nil
}

// Delete removes key from data, if present.
func (c *Context) Delete(key string) {
	c.data.Delete(key)
}

// Clear empties the data map only; it must never affect ChatHistory
// (invariant 1, spec §4.5).
func (c *Context) Clear() {
	c.data.Range(func(k string, _ value.Value) bool {
		c.data.Delete(k)
		return true
	})
}

// Snapshot returns a point-in-time copy of the data map.
func (c *Context) Snapshot() map[string]value.Value {
	out := make(map[string]value.Value, c.data.Size())
	c.data.Range(func(k string, v value.Value) bool {
		out[k] = v
		return true
	})
	return out
}

// AppendChatMessage appends one message, evicting the oldest entries if the
// configured maximum is exceeded (invariant 2, spec §4.5).
func (c *Context) AppendChatMessage(role Role, content string) {
	c.histMu.Lock()
	defer c.histMu.Unlock()
	c.history = append(c.history, ChatMessage{Role: role, Content: content, Timestamp: time.Now()})
	if over := len(c.history) - c.histMax; over > 0 {
		c.history = c.history[over:]
	}
}

// ChatHistory returns a clone of the chat history, minimizing lock hold
// time per spec §4.5 ("reads clone").
func (c *Context) ChatHistory() []ChatMessage {
	c.histMu.RLock()
	defer c.histMu.RUnlock()
	out := make([]ChatMessage, len(c.history))
	copy(out, c.history)
	return out
}

// ClearChatHistory empties ChatHistory only; Clear() must not call this and
// vice versa (invariant 1).
func (c *Context) ClearChatHistory() {
	c.histMu.Lock()
	defer c.histMu.Unlock()
	c.history = nil
}

// serialForm is the {data, chat_history} wire shape spec §4.5 mandates.
type serialForm struct {
	Data        map[string]value.Value `json:"data"`
	ChatHistory []ChatMessage          `json:"chat_history"`
}

// Serialize renders the Context as {data, chat_history} JSON.
func (c *Context) Serialize() ([]byte, error) {
	return json.Marshal(serialForm{
		Data:        c.Snapshot(),
		ChatHistory: c.ChatHistory(),
	})
}

// Deserialize rebuilds a Context from bytes produced by Serialize,
// preserving data and chat_history exactly (testable property 4).
func Deserialize(data []byte) (*Context, error) {
	var sf serialForm
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, err
	}
	c := New()
	for k, v := range sf.Data {
		c.data.Store(k, v)
	}
	c.history = append(c.history, sf.ChatHistory...)
	return c, nil
}
