package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rosmcp/ros-mcp-go/internal/bridge"
	"github.com/rosmcp/ros-mcp-go/internal/config"
	"github.com/rosmcp/ros-mcp-go/internal/history"
	"github.com/rosmcp/ros-mcp-go/internal/mcpserver"
	"github.com/rosmcp/ros-mcp-go/internal/observe"
	"github.com/rosmcp/ros-mcp-go/internal/ops"
	"github.com/rosmcp/ros-mcp-go/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.L().Sugar()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := observe.StartHTTP(cfg.MetricsAddr); err != nil {
				log.Warnw("metrics_http_exit", "err", err)
			}
		}()
	}

	conn, err := bridge.Dial(bridge.Options{
		URL:          fmt.Sprintf("ws://%s:%d", cfg.BridgeHost, cfg.BridgePort),
		DialAttempts: cfg.DialAttempts,
		DialTimeout:  cfg.DialTimeout,
		MaxFrameSize: cfg.MaxFrameSize,
	})
	if err != nil {
		log.Fatalw("bridge_connect_failed", "host", cfg.BridgeHost, "port", cfg.BridgePort, "err", err)
	}
	client := bridge.NewClient(conn)
	defer client.Close()

	var recorder *history.Recorder
	if cfg.RedisAddr != "" {
		recorder = history.New(cfg.RedisAddr, cfg.RedisStream)
		defer recorder.Close()
		log.Infow("history_recorder_enabled", "addr", cfg.RedisAddr, "stream", cfg.RedisStream)
	}

	reg := ops.NewRegistry()
	if err := ops.Bind(reg, client, ops.BindOptions{
		DefaultSubTimeout: cfg.DefaultSubTimeout,
		Recorder:          recorder,
	}); err != nil {
		log.Fatalw("ops_bind_failed", "err", err)
	}

	server := mcpserver.New(reg)
	log.Infow("mcp_server_start", "bridge", fmt.Sprintf("%s:%d", cfg.BridgeHost, cfg.BridgePort))
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatalw("mcp_server_exit", "err", err)
	}
}
