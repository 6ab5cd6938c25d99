package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aleung/fsm/pkg/adapters/process"
	"github.com/aleung/fsm/pkg/registry"
)

// NewActionRegistry returns the builtin actions plus the process actions
// declared in actionsFile. Commands run from the directory of that file.
// An empty actionsFile yields the builtins only.
func NewActionRegistry(logger *slog.Logger, actionsFile string) (*registry.Registry, error) {
	reg := registry.NewWithBuiltins(logger)
	if actionsFile == "" {
		return reg, nil
	}

	actions, err := process.LoadActions(actionsFile)
	if err != nil {
		return nil, err
	}
	for name := range actions {
		if _, exists := reg.Lookup(name); exists {
			return nil, fmt.Errorf("%s: action %q shadows a builtin", actionsFile, name)
		}
	}

	runner := process.NewRunner(
		process.WithRegistry(actions),
		process.WithBaseDir(filepath.Dir(actionsFile)),
		process.WithLogger(logger),
	)
	runner.RegisterInto(reg)
	logger.Debug("process actions registered", "file", actionsFile, "actions", runner.Names())
	return reg, nil
}
