package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rosmcp/ros-mcp-go/internal/protocol"
)

// rosapi 服务名。自省与参数枚举都走 broker 侧的 rosapi 节点。
const (
	svcTopics        = "/rosapi/topics"
	svcTopicType     = "/rosapi/topic_type"
	svcNodes         = "/rosapi/nodes"
	svcNodeDetails   = "/rosapi/node_details"
	svcServices      = "/rosapi/services"
	svcServiceType   = "/rosapi/service_type"
	svcGetParamNames = "/rosapi/get_param_names"
)

// NodeDetails 节点的发布/订阅/服务清单
type NodeDetails struct {
	Publishing  []string `json:"publishing"`
	Subscribing []string `json:"subscribing"`
	Services    []string `json:"services"`
}

// Window 一次订阅窗口的结果
type Window struct {
	Topic    string
	Messages []json.RawMessage // arrival order, complete
	Elapsed  time.Duration
}

// Client offers the typed operation set over one shared Conn. Safe for
// any number of concurrent callers.
type Client struct {
	conn *Conn
}

func NewClient(conn *Conn) *Client { return &Client{conn: conn} }

func (c *Client) Close() error { return c.conn.Close() }

// State exposes the underlying connection state.
func (c *Client) State() State { return c.conn.State() }

// await registers a correlated request, stamps the envelope with its id,
// sends it, and blocks until resolution or ctx cancellation. Abandoning
// the wait drops the entry; a late response is then discarded.
func (c *Client) await(ctx context.Context, kind string, env *protocol.Envelope) (json.RawMessage, error) {
	p := c.conn.pending.register(kind)
	env.ID = p.id
	if err := c.conn.Send(env); err != nil {
		c.conn.pending.drop(p.id)
		return nil, err
	}
	select {
	case res := <-p.ch:
		return res.payload, res.err
	case <-ctx.Done():
		c.conn.pending.drop(p.id)
		return nil, ctx.Err()
	}
}

// CallService invokes a broker-side service and waits for its response.
func (c *Client) CallService(ctx context.Context, service, serviceType string, args json.RawMessage) (json.RawMessage, error) {
	return c.await(ctx, kindServiceCall, &protocol.Envelope{
		Op:      protocol.OpCallService,
		Service: service,
		Type:    serviceType,
		Args:    args,
	})
}

// rosapi issues one introspection exchange and decodes the response into out.
func (c *Client) rosapi(ctx context.Context, service string, args any, out any) error {
	var raw json.RawMessage
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			return err
		}
		raw = b
	}
	values, err := c.CallService(ctx, service, "", raw)
	if err != nil {
		return err
	}
	if out == nil || len(values) == 0 {
		return nil
	}
	if err := json.Unmarshal(values, out); err != nil {
		return fmt.Errorf("%s: unexpected response shape: %w", service, err)
	}
	return nil
}

// Topics lists all known topic names.
func (c *Client) Topics(ctx context.Context) ([]string, error) {
	var resp struct {
		Topics []string `json:"topics"`
	}
	if err := c.rosapi(ctx, svcTopics, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Topics, nil
}

// TopicType resolves the message type of one topic.
func (c *Client) TopicType(ctx context.Context, topic string) (string, error) {
	var resp struct {
		Type string `json:"type"`
	}
	if err := c.rosapi(ctx, svcTopicType, map[string]string{"topic": topic}, &resp); err != nil {
		return "", err
	}
	return resp.Type, nil
}

// Nodes lists all participants in the middleware graph.
func (c *Client) Nodes(ctx context.Context) ([]string, error) {
	var resp struct {
		Nodes []string `json:"nodes"`
	}
	if err := c.rosapi(ctx, svcNodes, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Nodes, nil
}

// NodeDetails resolves one node's publications, subscriptions and services.
func (c *Client) NodeDetails(ctx context.Context, node string) (*NodeDetails, error) {
	var resp NodeDetails
	if err := c.rosapi(ctx, svcNodeDetails, map[string]string{"node": node}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Services lists all known service names.
func (c *Client) Services(ctx context.Context) ([]string, error) {
	var resp struct {
		Services []string `json:"services"`
	}
	if err := c.rosapi(ctx, svcServices, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Services, nil
}

// ServiceType resolves the request/response type of one service.
func (c *Client) ServiceType(ctx context.Context, service string) (string, error) {
	var resp struct {
		Type string `json:"type"`
	}
	if err := c.rosapi(ctx, svcServiceType, map[string]string{"service": service}, &resp); err != nil {
		return "", err
	}
	return resp.Type, nil
}

// ParamNames lists all parameter names.
func (c *Client) ParamNames(ctx context.Context) ([]string, error) {
	var resp struct {
		Names []string `json:"names"`
	}
	if err := c.rosapi(ctx, svcGetParamNames, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Names, nil
}

// GetParam reads one parameter value.
func (c *Client) GetParam(ctx context.Context, name string) (json.RawMessage, error) {
	return c.await(ctx, kindParamGet, &protocol.Envelope{
		Op:   protocol.OpGetParam,
		Name: name,
	})
}

// SetParam writes one parameter value and waits for the broker's echo.
func (c *Client) SetParam(ctx context.Context, name string, value json.RawMessage) error {
	_, err := c.await(ctx, kindParamSet, &protocol.Envelope{
		Op:    protocol.OpSetParam,
		Name:  name,
		Value: value,
	})
	return err
}

// Publish advertises the topic and hands the message to the connection.
// Fire-and-forget: returns once the frames are written, no broker ack.
func (c *Client) Publish(topic, msgType string, msg json.RawMessage) error {
	if err := c.conn.Send(&protocol.Envelope{
		Op:    protocol.OpAdvertise,
		Topic: topic,
		Type:  msgType,
	}); err != nil {
		return err
	}
	return c.conn.Send(&protocol.Envelope{
		Op:    protocol.OpPublish,
		Topic: topic,
		Msg:   msg,
	})
}

// SubscribeWindow opens an ephemeral subscription, collects messages until
// the timeout elapses (or the connection drops), then unsubscribes and
// returns everything received in arrival order. Zero messages is a valid
// outcome, not an error.
func (c *Client) SubscribeWindow(ctx context.Context, topic, msgType string, timeout time.Duration) (*Window, error) {
	start := time.Now()
	sub := c.conn.subs.open(topic, msgType, start.Add(timeout))
	defer c.conn.subs.remove(sub.ID)

	if err := c.conn.Send(&protocol.Envelope{
		Op:    protocol.OpSubscribe,
		ID:    sub.ID,
		Topic: topic,
		Type:  msgType,
	}); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-sub.done:
		// connection lost; keep what was collected
	case <-ctx.Done():
	}

	// broker-side teardown, fire-and-forget; bounded by the write timeout
	_ = c.conn.Send(&protocol.Envelope{
		Op:    protocol.OpUnsubscribe,
		ID:    sub.ID,
		Topic: topic,
	})

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return &Window{
		Topic:    topic,
		Messages: sub.Messages(),
		Elapsed:  time.Since(start),
	}, nil
}
