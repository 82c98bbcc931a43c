package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rosmcp/ros-mcp-go/internal/ops"
)

// Version is stamped into the MCP handshake.
const Version = "v0.1.0"

type emptyInput struct{}

type topicInfoInput struct {
	TopicName string `json:"topic_name"`
}

type publishInput struct {
	TopicName   string         `json:"topic_name"`
	MessageType string         `json:"message_type"`
	MessageData map[string]any `json:"message_data"`
}

type nodeInfoInput struct {
	NodeName string `json:"node_name"`
}

type serviceInfoInput struct {
	ServiceName string `json:"service_name"`
}

type callServiceInput struct {
	ServiceName string         `json:"service_name"`
	ServiceType string         `json:"service_type"`
	ServiceArgs map[string]any `json:"service_args"`
}

type getParamInput struct {
	ParamName string `json:"param_name"`
}

type setParamInput struct {
	ParamName  string `json:"param_name"`
	ParamValue string `json:"param_value"`
}

type subscribeInput struct {
	TopicName string  `json:"topic_name"`
	Timeout   float64 `json:"timeout,omitempty"` // seconds
}

func textResult(s string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: s}},
	}
}

// New builds the MCP server exposing the full operation set. Every tool
// funnels through the registry so results and errors share one shape.
func New(reg *ops.Registry) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "ros-mcp-go",
		Version: Version,
	}, nil)

	run := func(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, any, error) {
		return textResult(reg.Execute(ctx, name, args)), nil, nil
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_topics",
		Description: "List all available ROS topics",
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		return run(ctx, "list_topics", nil)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_topic_info",
		Description: "Get information about a specific ROS topic",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in topicInfoInput) (*mcp.CallToolResult, any, error) {
		return run(ctx, "get_topic_info", map[string]any{"topic_name": in.TopicName})
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "publish_message",
		Description: "Publish a message to a ROS topic",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in publishInput) (*mcp.CallToolResult, any, error) {
		return run(ctx, "publish_message", map[string]any{
			"topic_name":   in.TopicName,
			"message_type": in.MessageType,
			"message_data": in.MessageData,
		})
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_nodes",
		Description: "List all available ROS nodes",
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		return run(ctx, "list_nodes", nil)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_node_info",
		Description: "Get information about a specific ROS node",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in nodeInfoInput) (*mcp.CallToolResult, any, error) {
		return run(ctx, "get_node_info", map[string]any{"node_name": in.NodeName})
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_services",
		Description: "List all available ROS services",
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		return run(ctx, "list_services", nil)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_service_info",
		Description: "Get information about a specific ROS service",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in serviceInfoInput) (*mcp.CallToolResult, any, error) {
		return run(ctx, "get_service_info", map[string]any{"service_name": in.ServiceName})
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "call_service",
		Description: "Call a ROS service",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in callServiceInput) (*mcp.CallToolResult, any, error) {
		return run(ctx, "call_service", map[string]any{
			"service_name": in.ServiceName,
			"service_type": in.ServiceType,
			"service_args": in.ServiceArgs,
		})
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_param",
		Description: "Get a ROS parameter value",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in getParamInput) (*mcp.CallToolResult, any, error) {
		return run(ctx, "get_param", map[string]any{"param_name": in.ParamName})
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_param",
		Description: "Set a ROS parameter value",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in setParamInput) (*mcp.CallToolResult, any, error) {
		return run(ctx, "set_param", map[string]any{
			"param_name":  in.ParamName,
			"param_value": in.ParamValue,
		})
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_params",
		Description: "List all available ROS parameters",
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		return run(ctx, "list_params", nil)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "subscribe_topic",
		Description: "Subscribe to a ROS topic and get recent messages",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in subscribeInput) (*mcp.CallToolResult, any, error) {
		args := map[string]any{"topic_name": in.TopicName}
		if in.Timeout > 0 {
			args["timeout"] = in.Timeout
		}
		return run(ctx, "subscribe_topic", args)
	})

	return server
}
