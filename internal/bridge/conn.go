package bridge

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rosmcp/ros-mcp-go/internal/observe"
	"github.com/rosmcp/ros-mcp-go/internal/protocol"
	"github.com/rosmcp/ros-mcp-go/pkg/logger"
)

// State 连接生命周期状态
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	default:
		return "disconnected"
	}
}

// Options configures the bridge connection.
type Options struct {
	URL          string        // ws://host:port
	DialAttempts int           // connect/reconnect attempt ceiling
	DialTimeout  time.Duration // per-attempt handshake timeout
	BackoffBase  time.Duration // first retry delay, doubled per attempt
	BackoffMax   time.Duration
	MaxFrameSize int
	ReadTimeout  time.Duration // idle read deadline, refreshed by pongs
	WriteTimeout time.Duration
	PingInterval time.Duration
}

func (o *Options) defaults() {
	if o.DialAttempts <= 0 {
		o.DialAttempts = 8
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 5 * time.Second
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 500 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 10 * time.Second
	}
	if o.MaxFrameSize <= 0 {
		o.MaxFrameSize = 1 << 20
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 60 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
}

// Conn owns the single websocket to the broker. It is the sole writer to
// the socket; the background receive loop is the sole reader. Everything
// else reaches the broker through Send.
type Conn struct {
	opt   Options
	codec protocol.JSONCodec
	log   *zap.Logger

	pending *pendingTable
	subs    *subscriptionSet

	state atomic.Int32

	// writeMu serializes outbound writes and guards the ws pointer swap
	// across reconnects.
	writeMu sync.Mutex
	ws      *websocket.Conn

	closed    chan struct{}
	closeOnce sync.Once
}

// Dial connects with bounded exponential backoff. Exhausting the attempt
// ceiling yields ErrConnectionUnavailable.
func Dial(opt Options) (*Conn, error) {
	opt.defaults()
	c := &Conn{
		opt:     opt,
		log:     logger.L(),
		pending: newPendingTable(),
		subs:    newSubscriptionSet(),
		closed:  make(chan struct{}),
	}
	if err := c.connect(false); err != nil {
		return nil, err
	}
	return c, nil
}

// State reports the current lifecycle state.
func (c *Conn) State() State { return State(c.state.Load()) }

// connect runs the dial/backoff loop and starts the receive loop on
// success. reconnecting only switches the error wrapping and metrics.
func (c *Conn) connect(reconnecting bool) error {
	c.state.Store(int32(StateConnecting))
	dialer := websocket.Dialer{HandshakeTimeout: c.opt.DialTimeout}

	var lastErr error
	backoff := c.opt.BackoffBase
	for attempt := 1; attempt <= c.opt.DialAttempts; attempt++ {
		select {
		case <-c.closed:
			return ErrClosed
		default:
		}
		if reconnecting {
			observe.IncReconnect()
		}
		ws, _, err := dialer.Dial(c.opt.URL, nil)
		if err == nil {
			c.writeMu.Lock()
			c.ws = ws
			c.writeMu.Unlock()
			c.state.Store(int32(StateConnected))
			c.log.Sugar().Infow("bridge_connected", "url", c.opt.URL, "attempt", attempt)
			go c.readLoop(ws)
			go c.pingLoop(ws)
			return nil
		}
		lastErr = err
		c.log.Sugar().Warnw("bridge_dial_failed", "url", c.opt.URL, "attempt", attempt, "err", err)
		if attempt < c.opt.DialAttempts {
			select {
			case <-time.After(backoff):
			case <-c.closed:
				return ErrClosed
			}
			backoff *= 2
			if backoff > c.opt.BackoffMax {
				backoff = c.opt.BackoffMax
			}
		}
	}
	c.state.Store(int32(StateDisconnected))
	return fmt.Errorf("%w: %d attempts to %s: %v", ErrConnectionUnavailable, c.opt.DialAttempts, c.opt.URL, lastErr)
}

// Send encodes and writes one envelope. Non-blocking from the caller's
// perspective: it returns once the frame is handed to the socket, with no
// broker acknowledgment.
func (c *Conn) Send(e *protocol.Envelope) error {
	if s := c.State(); s != StateConnected {
		if s == StateClosing {
			return ErrClosed
		}
		return ErrConnectionUnavailable
	}
	var buf bytes.Buffer
	if err := c.codec.Encode(&buf, e); err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ws := c.ws
	if ws == nil {
		return ErrConnectionUnavailable
	}
	_ = ws.SetWriteDeadline(time.Now().Add(c.opt.WriteTimeout))
	if err := ws.WriteMessage(websocket.TextMessage, buf.Bytes()); err != nil {
		// the receive loop observes the broken socket and drives recovery
		_ = ws.Close()
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	return nil
}

// Close tears the connection down. Outstanding waiters fail promptly.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosing))
		close(c.closed)
		c.writeMu.Lock()
		if c.ws != nil {
			_ = c.ws.Close()
		}
		c.writeMu.Unlock()
	})
	return nil
}

func (c *Conn) pingLoop(ws *websocket.Conn) {
	ticker := time.NewTicker(c.opt.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(c.opt.WriteTimeout)); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

// readLoop decodes every inbound frame and dispatches it. It never blocks
// on a waiter: pending result slots are buffered and subscription delivery
// is an append under a short lock.
func (c *Conn) readLoop(ws *websocket.Conn) {
	_ = ws.SetReadDeadline(time.Now().Add(c.opt.ReadTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(c.opt.ReadTimeout))
	})
	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			c.onLoss(err)
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(c.opt.ReadTimeout))
		if mt != websocket.TextMessage {
			continue
		}
		var env protocol.Envelope
		if err := c.codec.Decode(bytes.NewReader(data), &env, c.opt.MaxFrameSize); err != nil {
			observe.IncDecodeError()
			c.log.Sugar().Warnw("bridge_frame_dropped", "err", err)
			continue
		}
		observe.IncFrame(string(env.Op))
		c.dispatch(&env)
	}
}

// dispatch routes one decoded frame to its waiter.
func (c *Conn) dispatch(env *protocol.Envelope) {
	switch env.Op {
	case protocol.OpServiceResponse:
		if env.Result != nil && !*env.Result {
			c.pending.fail(env.ID, fmt.Errorf("%w: %s", ErrServiceCallFailed, string(env.Values)))
			return
		}
		c.pending.resolve(env.ID, env.Values)
	case protocol.OpGetParam:
		c.pending.resolve(env.ID, env.Value)
	case protocol.OpSetParam:
		c.pending.resolve(env.ID, nil)
	case protocol.OpPublish:
		c.subs.dispatch(env.Topic, env.Msg)
	default:
		// advertise/subscribe/unsubscribe are outbound-only; a broker
		// echoing one is harmless
	}
}

// onLoss fails every waiter, finalizes active windows, and drives the
// reconnect unless the connection is being closed on purpose.
func (c *Conn) onLoss(err error) {
	c.pending.failAll(ErrConnectionLost)
	c.subs.finalizeAll()
	if c.State() == StateClosing {
		c.state.Store(int32(StateDisconnected))
		return
	}
	c.log.Sugar().Warnw("bridge_connection_lost", "err", err)
	go func() {
		if err := c.connect(true); err != nil {
			c.log.Sugar().Errorw("bridge_reconnect_failed", "err", err)
		}
	}()
}
