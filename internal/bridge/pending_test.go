package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestPendingRegisterResolve(t *testing.T) {
	tbl := newPendingTable()
	p := tbl.register(kindServiceCall)
	if p.id == "" {
		t.Fatalf("empty id")
	}
	tbl.resolve(p.id, json.RawMessage(`{"ok":true}`))
	select {
	case res := <-p.ch:
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		if string(res.payload) != `{"ok":true}` {
			t.Fatalf("wrong payload: %s", res.payload)
		}
	case <-time.After(time.Second):
		t.Fatalf("resolve not delivered")
	}
}

func TestPendingResolveUnknownIsNoop(t *testing.T) {
	tbl := newPendingTable()
	// must not panic or block
	tbl.resolve("no-such-id", nil)
	tbl.fail("no-such-id", errors.New("late"))
}

func TestPendingDoubleResolve(t *testing.T) {
	tbl := newPendingTable()
	p := tbl.register(kindParamGet)
	tbl.resolve(p.id, json.RawMessage(`1`))
	// second resolve for the same id hits the unknown-id path
	tbl.resolve(p.id, json.RawMessage(`2`))
	res := <-p.ch
	if string(res.payload) != `1` {
		t.Fatalf("first resolution must win, got %s", res.payload)
	}
	select {
	case res := <-p.ch:
		t.Fatalf("unexpected second delivery: %+v", res)
	default:
	}
}

func TestPendingDropAllowsLateResolve(t *testing.T) {
	tbl := newPendingTable()
	p := tbl.register(kindServiceCall)
	tbl.drop(p.id)
	tbl.resolve(p.id, json.RawMessage(`{"late":true}`)) // discarded
	select {
	case res := <-p.ch:
		t.Fatalf("dropped entry must not deliver, got %+v", res)
	default:
	}
}

func TestPendingFailAll(t *testing.T) {
	tbl := newPendingTable()
	ps := make([]*pending, 10)
	for i := range ps {
		ps[i] = tbl.register(kindServiceCall)
	}
	tbl.failAll(ErrConnectionLost)
	for i, p := range ps {
		select {
		case res := <-p.ch:
			if !errors.Is(res.err, ErrConnectionLost) {
				t.Fatalf("entry %d: want ErrConnectionLost, got %v", i, res.err)
			}
		case <-time.After(time.Second):
			t.Fatalf("entry %d not failed", i)
		}
	}
}

// Correlation must be identifier-exact under interleaved resolution, never
// order-exact.
func TestPendingConcurrentCorrelation(t *testing.T) {
	tbl := newPendingTable()
	const n = 100

	type reg struct {
		p       *pending
		payload json.RawMessage
	}
	regs := make([]reg, n)
	for i := 0; i < n; i++ {
		p := tbl.register(kindServiceCall)
		regs[i] = reg{p: p, payload: json.RawMessage(fmt.Sprintf(`{"i":%d,"id":%q}`, i, p.id))}
	}

	// resolve in reverse order from several goroutines
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := n - 1 - w; i >= 0; i -= 4 {
				tbl.resolve(regs[i].p.id, regs[i].payload)
			}
		}(w)
	}
	wg.Wait()

	for i, r := range regs {
		select {
		case res := <-r.p.ch:
			if string(res.payload) != string(r.payload) {
				t.Fatalf("caller %d got foreign payload %s", i, res.payload)
			}
		case <-time.After(time.Second):
			t.Fatalf("caller %d never resolved", i)
		}
	}
}
