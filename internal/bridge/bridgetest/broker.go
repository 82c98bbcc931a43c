// Package bridgetest provides an in-process broker stand-in speaking the
// wire protocol over a real websocket, for exercising the bridge client.
package bridgetest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rosmcp/ros-mcp-go/internal/protocol"
)

// ServiceFunc computes one service response. ok=false reports a
// broker-side failure for the call.
type ServiceFunc func(args json.RawMessage) (values json.RawMessage, ok bool)

type brokerConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	// active subscriptions on this connection: sub id -> topic
	subs map[string]string
}

func (bc *brokerConn) send(env *protocol.Envelope) error {
	var buf bytes.Buffer
	if err := (protocol.JSONCodec{}).Encode(&buf, env); err != nil {
		return err
	}
	bc.writeMu.Lock()
	defer bc.writeMu.Unlock()
	return bc.ws.WriteMessage(websocket.TextMessage, buf.Bytes())
}

// Broker accepts any number of client connections and serves services,
// params and subscriptions from in-memory state.
type Broker struct {
	srv *httptest.Server

	mu       sync.Mutex
	conns    map[*brokerConn]struct{}
	services map[string]ServiceFunc
	params   map[string]json.RawMessage
	received []protocol.Envelope // advertise/publish frames from clients
}

func New() *Broker {
	b := &Broker{
		conns:    make(map[*brokerConn]struct{}),
		services: make(map[string]ServiceFunc),
		params:   make(map[string]json.RawMessage),
	}
	upgrader := websocket.Upgrader{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		bc := &brokerConn{ws: ws, subs: make(map[string]string)}
		b.mu.Lock()
		b.conns[bc] = struct{}{}
		b.mu.Unlock()
		b.serve(bc)
		b.mu.Lock()
		delete(b.conns, bc)
		b.mu.Unlock()
		_ = ws.Close()
	}))
	return b
}

// URL returns the ws:// endpoint.
func (b *Broker) URL() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http")
}

func (b *Broker) Close() {
	b.KillConnections()
	b.srv.Close()
}

// SetService registers or replaces one service handler.
func (b *Broker) SetService(name string, fn ServiceFunc) {
	b.mu.Lock()
	b.services[name] = fn
	b.mu.Unlock()
}

// Received returns a snapshot of advertise/publish frames sent by clients.
func (b *Broker) Received() []protocol.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]protocol.Envelope, len(b.received))
	copy(out, b.received)
	return out
}

// KillConnections drops every live connection without closing the
// listener, simulating a mid-flight connection loss.
func (b *Broker) KillConnections() {
	b.mu.Lock()
	conns := make([]*brokerConn, 0, len(b.conns))
	for bc := range b.conns {
		conns = append(conns, bc)
	}
	b.mu.Unlock()
	for _, bc := range conns {
		_ = bc.ws.Close()
	}
}

// WaitSubscribed polls until some connection holds an active subscription
// on topic, or the deadline passes.
func (b *Broker) WaitSubscribed(topic string, deadline time.Duration) bool {
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		if b.subscriberCount(topic) > 0 {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func (b *Broker) subscriberCount(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for bc := range b.conns {
		for _, t := range bc.subs {
			if t == topic {
				n++
			}
		}
	}
	return n
}

// PublishTo delivers one message to every connection subscribed to topic.
func (b *Broker) PublishTo(topic string, msg json.RawMessage) {
	b.mu.Lock()
	conns := make([]*brokerConn, 0, len(b.conns))
	for bc := range b.conns {
		for _, t := range bc.subs {
			if t == topic {
				conns = append(conns, bc)
				break
			}
		}
	}
	b.mu.Unlock()
	for _, bc := range conns {
		_ = bc.send(&protocol.Envelope{Op: protocol.OpPublish, Topic: topic, Msg: msg})
	}
}

func (b *Broker) serve(bc *brokerConn) {
	codec := protocol.JSONCodec{}
	for {
		mt, data, err := bc.ws.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var env protocol.Envelope
		if err := codec.Decode(bytes.NewReader(data), &env, 0); err != nil {
			continue
		}
		switch env.Op {
		case protocol.OpCallService:
			b.mu.Lock()
			fn := b.services[env.Service]
			b.mu.Unlock()
			// respond concurrently so slow services interleave
			go func(env protocol.Envelope) {
				var values json.RawMessage
				ok := false
				if fn != nil {
					values, ok = fn(env.Args)
				} else {
					values = json.RawMessage(`{"error":"unknown service"}`)
				}
				_ = bc.send(&protocol.Envelope{
					Op:      protocol.OpServiceResponse,
					ID:      env.ID,
					Service: env.Service,
					Values:  values,
					Result:  &ok,
				})
			}(env)
		case protocol.OpGetParam:
			b.mu.Lock()
			value, ok := b.params[env.Name]
			b.mu.Unlock()
			if !ok {
				value = json.RawMessage(`null`)
			}
			_ = bc.send(&protocol.Envelope{
				Op:    protocol.OpGetParam,
				ID:    env.ID,
				Name:  env.Name,
				Value: value,
			})
		case protocol.OpSetParam:
			b.mu.Lock()
			b.params[env.Name] = append(json.RawMessage(nil), env.Value...)
			b.mu.Unlock()
			_ = bc.send(&protocol.Envelope{
				Op:   protocol.OpSetParam,
				ID:   env.ID,
				Name: env.Name,
			})
		case protocol.OpSubscribe:
			b.mu.Lock()
			bc.subs[env.ID] = env.Topic
			b.mu.Unlock()
		case protocol.OpUnsubscribe:
			b.mu.Lock()
			delete(bc.subs, env.ID)
			b.mu.Unlock()
		case protocol.OpAdvertise, protocol.OpPublish:
			b.mu.Lock()
			b.received = append(b.received, env)
			b.mu.Unlock()
		}
	}
}
