package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rosmcp/ros-mcp-go/internal/bridge"
	"github.com/rosmcp/ros-mcp-go/internal/history"
	"github.com/rosmcp/ros-mcp-go/pkg/logger"
)

// BindOptions 绑定时的可选项
type BindOptions struct {
	DefaultSubTimeout time.Duration
	Recorder          *history.Recorder // nil disables window recording
}

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%w: missing required argument %q", bridge.ErrInvalidArguments, key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: argument %q must be a non-empty string", bridge.ErrInvalidArguments, key)
	}
	return s, nil
}

func objectArg(args map[string]any, key string) (json.RawMessage, error) {
	v, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing required argument %q", bridge.ErrInvalidArguments, key)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: argument %q is not serializable", bridge.ErrInvalidArguments, key)
	}
	return b, nil
}

func timeoutArg(args map[string]any, def time.Duration) time.Duration {
	v, ok := args["timeout"]
	if !ok {
		return def
	}
	f, ok := v.(float64)
	if !ok || f <= 0 {
		return def
	}
	return time.Duration(f * float64(time.Second))
}

// Bind registers the full operation set against one bridge client.
func Bind(reg *Registry, c *bridge.Client, opt BindOptions) error {
	if opt.DefaultSubTimeout <= 0 {
		opt.DefaultSubTimeout = 5 * time.Second
	}

	operations := []*Operation{
		{
			Name: "list_topics",
			Help: "List all available ROS topics",
			Handler: func(ctx context.Context, _ map[string]any) (string, error) {
				topics, err := c.Topics(ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Available topics: %v", topics), nil
			},
		},
		{
			Name:     "get_topic_info",
			Help:     "Get information about a specific ROS topic",
			Required: []string{"topic_name"},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				topic, err := stringArg(args, "topic_name")
				if err != nil {
					return "", err
				}
				typ, err := c.TopicType(ctx, topic)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Topic %s type: %s", topic, typ), nil
			},
		},
		{
			Name:     "publish_message",
			Help:     "Publish a message to a ROS topic",
			Required: []string{"topic_name", "message_type", "message_data"},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				topic, err := stringArg(args, "topic_name")
				if err != nil {
					return "", err
				}
				msgType, err := stringArg(args, "message_type")
				if err != nil {
					return "", err
				}
				msg, err := objectArg(args, "message_data")
				if err != nil {
					return "", err
				}
				if err := c.Publish(topic, msgType, msg); err != nil {
					return "", err
				}
				return fmt.Sprintf("Published message to %s", topic), nil
			},
		},
		{
			Name: "list_nodes",
			Help: "List all available ROS nodes",
			Handler: func(ctx context.Context, _ map[string]any) (string, error) {
				nodes, err := c.Nodes(ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Available nodes: %v", nodes), nil
			},
		},
		{
			Name:     "get_node_info",
			Help:     "Get information about a specific ROS node",
			Required: []string{"node_name"},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				node, err := stringArg(args, "node_name")
				if err != nil {
					return "", err
				}
				details, err := c.NodeDetails(ctx, node)
				if err != nil {
					return "", err
				}
				b, _ := json.Marshal(details)
				return fmt.Sprintf("Node %s details: %s", node, b), nil
			},
		},
		{
			Name: "list_services",
			Help: "List all available ROS services",
			Handler: func(ctx context.Context, _ map[string]any) (string, error) {
				services, err := c.Services(ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Available services: %v", services), nil
			},
		},
		{
			Name:     "get_service_info",
			Help:     "Get information about a specific ROS service",
			Required: []string{"service_name"},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				service, err := stringArg(args, "service_name")
				if err != nil {
					return "", err
				}
				typ, err := c.ServiceType(ctx, service)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Service %s type: %s", service, typ), nil
			},
		},
		{
			Name:     "call_service",
			Help:     "Call a ROS service",
			Required: []string{"service_name", "service_type", "service_args"},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				service, err := stringArg(args, "service_name")
				if err != nil {
					return "", err
				}
				svcType, err := stringArg(args, "service_type")
				if err != nil {
					return "", err
				}
				svcArgs, err := objectArg(args, "service_args")
				if err != nil {
					return "", err
				}
				values, err := c.CallService(ctx, service, svcType, svcArgs)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Service call result: %s", values), nil
			},
		},
		{
			Name:     "get_param",
			Help:     "Get a ROS parameter value",
			Required: []string{"param_name"},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				name, err := stringArg(args, "param_name")
				if err != nil {
					return "", err
				}
				value, err := c.GetParam(ctx, name)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Parameter %s value: %s", name, value), nil
			},
		},
		{
			Name:     "set_param",
			Help:     "Set a ROS parameter value",
			Required: []string{"param_name", "param_value"},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				name, err := stringArg(args, "param_name")
				if err != nil {
					return "", err
				}
				value, err := stringArg(args, "param_value")
				if err != nil {
					return "", err
				}
				encoded, _ := json.Marshal(value)
				if err := c.SetParam(ctx, name, encoded); err != nil {
					return "", err
				}
				return fmt.Sprintf("Set parameter %s to %s", name, value), nil
			},
		},
		{
			Name: "list_params",
			Help: "List all available ROS parameters",
			Handler: func(ctx context.Context, _ map[string]any) (string, error) {
				names, err := c.ParamNames(ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Available parameters: %v", names), nil
			},
		},
		{
			Name:     "subscribe_topic",
			Help:     "Subscribe to a ROS topic and get recent messages",
			Required: []string{"topic_name"},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				topic, err := stringArg(args, "topic_name")
				if err != nil {
					return "", err
				}
				timeout := timeoutArg(args, opt.DefaultSubTimeout)
				win, err := c.SubscribeWindow(ctx, topic, "", timeout)
				if err != nil {
					return "", err
				}
				if opt.Recorder != nil && len(win.Messages) > 0 {
					if err := opt.Recorder.Record(ctx, topic, win.Messages); err != nil {
						logger.L().Sugar().Warnw("history_record_failed", "topic", topic, "err", err)
					}
				}
				return formatWindow(win, timeout), nil
			},
		},
	}

	for _, op := range operations {
		if err := reg.Register(op); err != nil {
			return err
		}
	}
	return nil
}

// formatWindow reports the total count and the most recent 5 messages,
// oldest of the 5 first. Zero messages is stated explicitly.
func formatWindow(win *bridge.Window, timeout time.Duration) string {
	total := len(win.Messages)
	if total == 0 {
		return fmt.Sprintf("No messages received from %s within %g seconds", win.Topic, timeout.Seconds())
	}
	recent := win.Messages
	if total > 5 {
		recent = recent[total-5:]
	}
	b, _ := json.Marshal(recent)
	return fmt.Sprintf("Received %d messages from %s: %s", total, win.Topic, b)
}
