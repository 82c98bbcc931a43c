package bridge

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rosmcp/ros-mcp-go/internal/observe"
)

// Subscription 一次性的订阅窗口。每个 subscribe_topic 调用独占一个，
// 同一 topic 的并发窗口互不共享，各自收到全部消息。
type Subscription struct {
	ID       string
	Topic    string
	Type     string
	Deadline time.Time

	mu   sync.Mutex
	msgs []json.RawMessage

	done     chan struct{} // closed on connection loss or explicit finalize
	doneOnce sync.Once
}

// deliver appends a message in arrival order. The bytes are copied: the
// receive loop reuses its frame buffer and windows outlive the frame.
func (s *Subscription) deliver(msg json.RawMessage) {
	cp := make(json.RawMessage, len(msg))
	copy(cp, msg)
	s.mu.Lock()
	s.msgs = append(s.msgs, cp)
	s.mu.Unlock()
	observe.IncSubMessage()
}

// finalize ends the window early (connection loss). The waiter returns
// with whatever was collected.
func (s *Subscription) finalize() {
	s.doneOnce.Do(func() { close(s.done) })
}

// Messages returns a snapshot of the collected sequence.
func (s *Subscription) Messages() []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]json.RawMessage, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// subscriptionSet 活跃窗口集合，按订阅 ID 索引
type subscriptionSet struct {
	mu   sync.RWMutex
	byID map[string]*Subscription
}

func newSubscriptionSet() *subscriptionSet {
	return &subscriptionSet{byID: make(map[string]*Subscription)}
}

func (ss *subscriptionSet) open(topic, msgType string, deadline time.Time) *Subscription {
	s := &Subscription{
		ID:       uuid.New().String(),
		Topic:    topic,
		Type:     msgType,
		Deadline: deadline,
		done:     make(chan struct{}),
	}
	ss.mu.Lock()
	ss.byID[s.ID] = s
	ss.mu.Unlock()
	return s
}

func (ss *subscriptionSet) remove(id string) {
	ss.mu.Lock()
	delete(ss.byID, id)
	ss.mu.Unlock()
}

// dispatch fans an incoming publish frame out to every active window on
// the topic.
func (ss *subscriptionSet) dispatch(topic string, msg json.RawMessage) {
	ss.mu.RLock()
	var targets []*Subscription
	for _, s := range ss.byID {
		if s.Topic == topic {
			targets = append(targets, s)
		}
	}
	ss.mu.RUnlock()
	for _, s := range targets {
		s.deliver(msg)
	}
}

// finalizeAll ends every window early, used on connection loss.
func (ss *subscriptionSet) finalizeAll() {
	ss.mu.Lock()
	subs := ss.byID
	ss.byID = make(map[string]*Subscription)
	ss.mu.Unlock()
	for _, s := range subs {
		s.finalize()
	}
}
