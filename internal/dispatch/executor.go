package dispatch

import (
	"context"

	"github.com/ashureev/teamhub/internal/domain"
)

// Command is a write the host must perform on behalf of the user.
type Command struct {
	Action  domain.Action
	Payload map[string]string
	UserID  string
	GroupID string
}

// Executor is the write seam into the host's domain services.
type Executor interface {
	Execute(ctx context.Context, cmd Command) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, cmd Command) error

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, cmd Command) error { return f(ctx, cmd) }

// NopExecutor accepts every command without doing anything.
type NopExecutor struct{}

// Execute implements Executor.
func (NopExecutor) Execute(context.Context, Command) error { return nil }
