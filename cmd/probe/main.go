// probe 直接对活动的 rosbridge 执行单个操作并打印文本结果，
// 便于不经 MCP 客户端调试。
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/rosmcp/ros-mcp-go/internal/bridge"
	"github.com/rosmcp/ros-mcp-go/internal/ops"
)

func main() {
	var (
		host    = pflag.String("host", "127.0.0.1", "rosbridge host")
		port    = pflag.Int("port", 9090, "rosbridge port")
		opName  = pflag.String("op", "list_topics", "operation name")
		argsRaw = pflag.String("args", "{}", "operation arguments as JSON object")
		timeout = pflag.Duration("timeout", 30*time.Second, "overall operation deadline")
		listOps = pflag.Bool("list", false, "print supported operations and exit")
	)
	pflag.Parse()

	if *listOps {
		// handlers are never invoked here, so no connection is needed
		reg := ops.NewRegistry()
		_ = ops.Bind(reg, nil, ops.BindOptions{})
		for _, op := range reg.List() {
			fmt.Printf("  %-18s %s\n", op.Name, op.Help)
		}
		return
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(*argsRaw), &args); err != nil {
		fmt.Fprintf(os.Stderr, "invalid --args: %v\n", err)
		os.Exit(2)
	}

	conn, err := bridge.Dial(bridge.Options{
		URL:          fmt.Sprintf("ws://%s:%d", *host, *port),
		DialAttempts: 2,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial error: %v\n", err)
		os.Exit(1)
	}
	client := bridge.NewClient(conn)
	defer client.Close()

	reg := ops.NewRegistry()
	if err := ops.Bind(reg, client, ops.BindOptions{}); err != nil {
		fmt.Fprintf(os.Stderr, "bind error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result := reg.Execute(ctx, *opName, args)
	if strings.HasPrefix(result, "Error executing") {
		color.Red("%s", result)
		os.Exit(1)
	}
	color.Green("%s", result)
}
