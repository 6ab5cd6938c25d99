package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aleung/fsm/internal/logging"
)

// Builtin action names.
const (
	ActionLog  = "log"
	ActionFail = "fail"
)

// NewWithBuiltins returns a registry pre-loaded with the log and fail actions.
// A nil logger discards output.
func NewWithBuiltins(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := NewRegistry()
	r.Register(ActionLog, LogAction(logger))
	r.Register(ActionFail, FailAction)
	return r
}

// LogAction reports every call at INFO level.
func LogAction(logger *slog.Logger) ActionFunc {
	return func(ctx context.Context, call Call) error {
		attrs := []any{"phase", call.Phase, "state", call.State, "peer", call.Peer}
		if call.Event != nil {
			attrs = append(attrs, "event", call.Event.Name)
			if call.Event.Data != nil {
				attrs = append(attrs, "data", call.Event.Data)
			}
		}
		logger.InfoContext(ctx, "action", attrs...)
		return nil
	}
}

// FailAction always fails. The machine still completes the transition.
func FailAction(ctx context.Context, call Call) error {
	return fmt.Errorf("%s action in state %q failed on purpose", call.Phase, call.State)
}
