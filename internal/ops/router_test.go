package ops_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rosmcp/ros-mcp-go/internal/bridge"
	"github.com/rosmcp/ros-mcp-go/internal/bridge/bridgetest"
	"github.com/rosmcp/ros-mcp-go/internal/ops"
)

func newTestRegistry(t *testing.T, b *bridgetest.Broker) *ops.Registry {
	t.Helper()
	conn, err := bridge.Dial(bridge.Options{
		URL:          b.URL(),
		DialAttempts: 2,
		DialTimeout:  time.Second,
		BackoffBase:  20 * time.Millisecond,
		WriteTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	c := bridge.NewClient(conn)
	t.Cleanup(func() { _ = c.Close() })

	reg := ops.NewRegistry()
	if err := ops.Bind(reg, c, ops.BindOptions{DefaultSubTimeout: 200 * time.Millisecond}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	return reg
}

func TestExecuteUnknownOperation(t *testing.T) {
	reg := ops.NewRegistry()
	got := reg.Execute(context.Background(), "warp_drive", nil)
	if got != "Error executing warp_drive: unknown operation" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestExecuteMissingRequiredArgument(t *testing.T) {
	b := bridgetest.New()
	defer b.Close()
	reg := newTestRegistry(t, b)

	got := reg.Execute(context.Background(), "get_topic_info", map[string]any{})
	if !strings.HasPrefix(got, "Error executing get_topic_info:") {
		t.Fatalf("unexpected result: %q", got)
	}
	if !strings.Contains(got, `missing required argument "topic_name"`) {
		t.Fatalf("cause not reported: %q", got)
	}
}

func TestListTopics(t *testing.T) {
	b := bridgetest.New()
	defer b.Close()
	b.SetService("/rosapi/topics", func(json.RawMessage) (json.RawMessage, bool) {
		return json.RawMessage(`{"topics":["/chatter","/tf"],"types":["std_msgs/String","tf2_msgs/TFMessage"]}`), true
	})
	reg := newTestRegistry(t, b)

	got := reg.Execute(context.Background(), "list_topics", nil)
	if got != "Available topics: [/chatter /tf]" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestGetTopicInfoNonexistent(t *testing.T) {
	b := bridgetest.New()
	defer b.Close()
	b.SetService("/rosapi/topic_type", func(json.RawMessage) (json.RawMessage, bool) {
		return json.RawMessage(`{"error":"topic does not exist"}`), false
	})
	reg := newTestRegistry(t, b)

	got := reg.Execute(context.Background(), "get_topic_info", map[string]any{"topic_name": "/nope"})
	if !strings.HasPrefix(got, "Error executing get_topic_info:") {
		t.Fatalf("broker failure must yield an error result, got %q", got)
	}
}

func TestCallServiceResult(t *testing.T) {
	b := bridgetest.New()
	defer b.Close()
	b.SetService("/spawn", func(args json.RawMessage) (json.RawMessage, bool) {
		return json.RawMessage(`{"name":"turtle2"}`), true
	})
	reg := newTestRegistry(t, b)

	got := reg.Execute(context.Background(), "call_service", map[string]any{
		"service_name": "/spawn",
		"service_type": "turtlesim/Spawn",
		"service_args": map[string]any{"x": 1.0, "y": 2.0},
	})
	if got != `Service call result: {"name":"turtle2"}` {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestSetThenGetParam(t *testing.T) {
	b := bridgetest.New()
	defer b.Close()
	reg := newTestRegistry(t, b)
	ctx := context.Background()

	got := reg.Execute(ctx, "set_param", map[string]any{"param_name": "x", "param_value": "5"})
	if got != "Set parameter x to 5" {
		t.Fatalf("unexpected set result: %q", got)
	}
	got = reg.Execute(ctx, "get_param", map[string]any{"param_name": "x"})
	if got != `Parameter x value: "5"` {
		t.Fatalf("unexpected get result: %q", got)
	}
}

func TestSubscribeTopicZeroMessages(t *testing.T) {
	b := bridgetest.New()
	defer b.Close()
	reg := newTestRegistry(t, b)

	got := reg.Execute(context.Background(), "subscribe_topic", map[string]any{
		"topic_name": "/quiet",
		"timeout":    0.3,
	})
	if got != "No messages received from /quiet within 0.3 seconds" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestSubscribeTopicLastFive(t *testing.T) {
	b := bridgetest.New()
	defer b.Close()
	reg := newTestRegistry(t, b)

	resCh := make(chan string, 1)
	go func() {
		resCh <- reg.Execute(context.Background(), "subscribe_topic", map[string]any{
			"topic_name": "/chatter",
			"timeout":    0.6,
		})
	}()
	if !b.WaitSubscribed("/chatter", 2*time.Second) {
		t.Fatalf("broker never saw the subscription")
	}
	for i := 1; i <= 8; i++ {
		b.PublishTo("/chatter", json.RawMessage(fmt.Sprintf(`{"seq":%d}`, i)))
	}

	got := <-resCh
	want := `Received 8 messages from /chatter: [{"seq":4},{"seq":5},{"seq":6},{"seq":7},{"seq":8}]`
	if got != want {
		t.Fatalf("unexpected result:\n got %q\nwant %q", got, want)
	}
}

func TestPublishMessage(t *testing.T) {
	b := bridgetest.New()
	defer b.Close()
	reg := newTestRegistry(t, b)

	got := reg.Execute(context.Background(), "publish_message", map[string]any{
		"topic_name":   "/cmd_vel",
		"message_type": "geometry_msgs/Twist",
		"message_data": map[string]any{"linear": map[string]any{"x": 0.5}},
	})
	if got != "Published message to /cmd_vel" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestInvalidArgumentType(t *testing.T) {
	b := bridgetest.New()
	defer b.Close()
	reg := newTestRegistry(t, b)

	got := reg.Execute(context.Background(), "get_param", map[string]any{"param_name": 42})
	if !strings.Contains(got, "must be a non-empty string") {
		t.Fatalf("type error not surfaced: %q", got)
	}
}
