package bridge

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

func TestSubscriptionDispatchByTopic(t *testing.T) {
	ss := newSubscriptionSet()
	a := ss.open("/a", "", time.Now().Add(time.Second))
	b := ss.open("/b", "", time.Now().Add(time.Second))

	ss.dispatch("/a", json.RawMessage(`{"n":1}`))
	ss.dispatch("/b", json.RawMessage(`{"n":2}`))
	ss.dispatch("/c", json.RawMessage(`{"n":3}`))

	if got := a.Messages(); len(got) != 1 || string(got[0]) != `{"n":1}` {
		t.Fatalf("sub /a: %v", got)
	}
	if got := b.Messages(); len(got) != 1 || string(got[0]) != `{"n":2}` {
		t.Fatalf("sub /b: %v", got)
	}
}

// Two concurrent windows on the same topic are independent; each receives
// its own copy of every message.
func TestSubscriptionSameTopicIndependent(t *testing.T) {
	ss := newSubscriptionSet()
	a := ss.open("/t", "", time.Now().Add(time.Second))
	b := ss.open("/t", "", time.Now().Add(time.Second))

	for i := 0; i < 3; i++ {
		ss.dispatch("/t", json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)))
	}
	ss.remove(a.ID)
	ss.dispatch("/t", json.RawMessage(`{"n":99}`))

	if len(a.Messages()) != 3 {
		t.Fatalf("removed window must stop receiving: %v", a.Messages())
	}
	got := b.Messages()
	if len(got) != 4 {
		t.Fatalf("live window missed messages: %v", got)
	}
	for i := 0; i < 3; i++ {
		if string(got[i]) != fmt.Sprintf(`{"n":%d}`, i) {
			t.Fatalf("arrival order broken at %d: %s", i, got[i])
		}
	}
}

func TestSubscriptionFinalizeAll(t *testing.T) {
	ss := newSubscriptionSet()
	s := ss.open("/t", "", time.Now().Add(time.Minute))
	ss.finalizeAll()
	select {
	case <-s.done:
	case <-time.After(time.Second):
		t.Fatalf("finalizeAll must close done")
	}
	// double finalize is safe
	s.finalize()
}

func TestSubscriptionDeliverCopies(t *testing.T) {
	ss := newSubscriptionSet()
	s := ss.open("/t", "", time.Now().Add(time.Second))
	buf := json.RawMessage(`{"n":1}`)
	ss.dispatch("/t", buf)
	buf[5] = '9' // receive loop reuses its buffer
	if got := s.Messages(); string(got[0]) != `{"n":1}` {
		t.Fatalf("delivered message aliased the frame buffer: %s", got[0])
	}
}
