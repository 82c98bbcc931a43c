package ops

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rosmcp/ros-mcp-go/internal/bridge"
	"github.com/rosmcp/ros-mcp-go/internal/observe"
)

// HandlerFunc runs one operation over already-present arguments and
// returns the success text.
type HandlerFunc func(ctx context.Context, args map[string]any) (string, error)

// Operation 一个具名操作：必填参数在任何网络交互前校验
type Operation struct {
	Name     string
	Help     string
	Required []string
	Handler  HandlerFunc
}

// Registry maps operation names to handlers. Every outcome — success or
// any fault — leaves Execute as a plain text result; nothing escapes to
// crash the dispatcher above.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Operation
	list   []*Operation
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Operation)}
}

func (r *Registry) Register(op *Operation) error {
	if op == nil {
		return errors.New("operation is nil")
	}
	name := strings.TrimSpace(op.Name)
	if name == "" {
		return errors.New("operation name is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("operation %s already registered", name)
	}
	r.byName[name] = op
	r.list = append(r.list, op)
	return nil
}

func (r *Registry) Get(name string) (*Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.byName[name]
	return op, ok
}

func (r *Registry) List() []*Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Operation, len(r.list))
	copy(out, r.list)
	return out
}

// Execute runs one named operation and always returns a caller-facing
// text result.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) string {
	op, ok := r.Get(name)
	if !ok {
		observe.IncOpError("not_found")
		return fmt.Sprintf("Error executing %s: unknown operation", name)
	}
	if args == nil {
		args = map[string]any{}
	}
	for _, req := range op.Required {
		if _, present := args[req]; !present {
			observe.IncOpError("invalid_args")
			return fmt.Sprintf("Error executing %s: %v", name,
				fmt.Errorf("%w: missing required argument %q", bridge.ErrInvalidArguments, req))
		}
	}
	observe.IncOp(name)
	text, err := op.Handler(ctx, args)
	if err != nil {
		observe.IncOpError(errReason(err))
		return fmt.Sprintf("Error executing %s: %v", name, err)
	}
	return text
}

func errReason(err error) string {
	switch {
	case errors.Is(err, bridge.ErrInvalidArguments):
		return "invalid_args"
	case errors.Is(err, bridge.ErrConnectionLost), errors.Is(err, bridge.ErrConnectionUnavailable):
		return "connection"
	case errors.Is(err, bridge.ErrServiceCallFailed):
		return "broker"
	default:
		return "handler"
	}
}
