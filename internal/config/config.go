package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config 进程级配置，启动时解析一次
type Config struct {
	BridgeHost string
	BridgePort int

	DialAttempts int           // initial connect attempt ceiling
	DialTimeout  time.Duration // per-attempt dial timeout

	MaxFrameSize int // inbound frame size guard (bytes)

	DefaultSubTimeout time.Duration // subscribe_topic default window

	MetricsAddr string // empty disables the metrics endpoint
	RedisAddr   string // empty disables the subscription recorder
	RedisStream string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func Load() *Config {
	// .env 可选，缺失不报错
	_ = godotenv.Load()

	port := getEnvInt("ROSMCP_BRIDGE_PORT", 9090)
	subTimeout := time.Duration(getEnvInt("ROSMCP_SUB_TIMEOUT_MS", 5000)) * time.Millisecond

	return &Config{
		BridgeHost:        getEnv("ROSMCP_BRIDGE_HOST", "127.0.0.1"),
		BridgePort:        port,
		DialAttempts:      getEnvInt("ROSMCP_DIAL_ATTEMPTS", 8),
		DialTimeout:       time.Duration(getEnvInt("ROSMCP_DIAL_TIMEOUT_MS", 5000)) * time.Millisecond,
		MaxFrameSize:      getEnvInt("ROSMCP_MAX_FRAME", 1<<20),
		DefaultSubTimeout: subTimeout,
		MetricsAddr:       getEnv("ROSMCP_METRICS_ADDR", ""),
		RedisAddr:         getEnv("ROSMCP_REDIS_ADDR", ""),
		RedisStream:       getEnv("ROSMCP_REDIS_STREAM", "rosmcp:subscriptions"),
	}
}
