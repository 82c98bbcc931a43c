package bridge

import "errors"

// 错误分类。调用链用 errors.Is 区分，路由层统一转成文本结果。
var (
	// ErrInvalidArguments marks caller input rejected before any network
	// interaction.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrConnectionUnavailable means the connect/reconnect attempt ceiling
	// was exhausted; no operation can be served until a dial succeeds.
	ErrConnectionUnavailable = errors.New("bridge connection unavailable")

	// ErrConnectionLost fails every request that was in flight when the
	// socket dropped. Callers must not retry blindly: the broker may have
	// already applied the side effect.
	ErrConnectionLost = errors.New("bridge connection lost")

	// ErrServiceCallFailed carries a broker-reported failure (unknown
	// service, handler error) for a correlated call.
	ErrServiceCallFailed = errors.New("service call failed")

	// ErrClosed is returned after an explicit Close.
	ErrClosed = errors.New("bridge closed")
)
