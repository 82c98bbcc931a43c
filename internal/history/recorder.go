package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Recorder 把订阅窗口收到的消息追加到 redis stream，便于事后回看。
// 可选组件：未配置 redis 地址时整个功能关闭。
type Recorder struct {
	cli    *redis.Client
	stream string
}

type entry struct {
	Topic string          `json:"topic"`
	When  time.Time       `json:"when"`
	Msg   json.RawMessage `json:"msg"`
}

func New(addr, stream string) *Recorder {
	cli := redis.NewClient(&redis.Options{Addr: addr})
	return &Recorder{cli: cli, stream: stream}
}

// Record appends every message of one window. Best effort: the first
// failed append aborts, callers only log.
func (r *Recorder) Record(ctx context.Context, topic string, msgs []json.RawMessage) error {
	now := time.Now()
	for _, m := range msgs {
		payload, err := json.Marshal(&entry{Topic: topic, When: now, Msg: m})
		if err != nil {
			return err
		}
		if err := r.cli.XAdd(ctx, &redis.XAddArgs{
			Stream: r.stream,
			Values: map[string]any{"data": payload},
		}).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) Close() error { return r.cli.Close() }
