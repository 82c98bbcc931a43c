package bridge

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/rosmcp/ros-mcp-go/internal/observe"
)

// 每类关联请求的 kind 标记，仅用于日志与排错
const (
	kindServiceCall = "service-call"
	kindParamGet    = "param-get"
	kindParamSet    = "param-set"
)

type result struct {
	payload json.RawMessage
	err     error
}

// pending 一次在途的关联请求。ch 缓冲为 1，使 resolve 对已放弃等待的
// 调用方也能无阻塞完成。
type pending struct {
	id   string
	kind string
	ch   chan result
}

// pendingTable maps outstanding request ids to their waiters. The receive
// loop resolves entries; any number of caller goroutines register and wait
// concurrently.
type pendingTable struct {
	mu      sync.Mutex
	entries map[string]*pending
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[string]*pending)}
}

// register allocates a unique id and a single-assignment result slot.
func (t *pendingTable) register(kind string) *pending {
	t.mu.Lock()
	defer t.mu.Unlock()
	var id string
	for {
		id = uuid.New().String()
		if _, exists := t.entries[id]; !exists {
			break
		}
	}
	p := &pending{id: id, kind: kind, ch: make(chan result, 1)}
	t.entries[id] = p
	observe.AddPending(1)
	return p
}

// resolve delivers a payload to the waiter. Unknown ids are a no-op: the
// entry was already resolved, timed out, or belonged to a completed call.
func (t *pendingTable) resolve(id string, payload json.RawMessage) {
	t.mu.Lock()
	p, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
		observe.AddPending(-1)
	}
	t.mu.Unlock()
	if ok {
		p.ch <- result{payload: payload}
	}
}

// fail delivers an error to the waiter. Idempotent like resolve.
func (t *pendingTable) fail(id string, err error) {
	t.mu.Lock()
	p, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
		observe.AddPending(-1)
	}
	t.mu.Unlock()
	if ok {
		p.ch <- result{err: err}
	}
}

// drop removes an entry whose caller stopped waiting. A late resolve for
// the id then hits the unknown-id path and is discarded.
func (t *pendingTable) drop(id string) {
	t.mu.Lock()
	if _, ok := t.entries[id]; ok {
		delete(t.entries, id)
		observe.AddPending(-1)
	}
	t.mu.Unlock()
}

// failAll fails every outstanding entry, used on connection loss.
func (t *pendingTable) failAll(err error) {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[string]*pending)
	observe.AddPending(-float64(len(entries)))
	t.mu.Unlock()
	for _, p := range entries {
		p.ch <- result{err: err}
	}
}
