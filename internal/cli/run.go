package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aleung/fsm"
	"github.com/aleung/fsm/internal/presentation/tui"
	"github.com/aleung/fsm/pkg/adapters/file"
	"github.com/aleung/fsm/pkg/observability"
	"github.com/aleung/fsm/pkg/registry"
)

// RunOptions contains all the configuration for the Run command.
// MaxEventNameSize bounds input event names; 0 uses the default.
type RunOptions struct {
	Path             string
	JSON             bool
	Headless         bool
	Debug            bool
	Concurrency      fsm.ConcurrencyMode
	Actions          string
	MaxEventNameSize int
	Input            io.Reader
	Output           io.Writer
}

// quiet reports whether banners and system messages are suppressed.
func (o RunOptions) quiet() bool {
	return o.JSON || o.Headless
}

// LoadMachine compiles the definition file at path against the builtin
// action registry and creates an uninitialized machine named after it.
func LoadMachine(path string, logger *slog.Logger, opts ...fsm.Option) (*file.Document, *fsm.Machine, error) {
	return loadMachine(path, registry.NewWithBuiltins(logger), logger, opts...)
}

func loadMachine(path string, reg *registry.Registry, logger *slog.Logger, opts ...fsm.Option) (*file.Document, *fsm.Machine, error) {
	doc, def, err := file.Load(path, reg)
	if err != nil {
		return nil, nil, err
	}

	machineOpts := append([]fsm.Option{
		fsm.WithName(doc.Name),
		fsm.WithLogger(logger),
	}, opts...)

	m, err := fsm.Create(def, machineOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating machine: %w", err)
	}
	return doc, m, nil
}

// Execute loads the definition, initializes the machine and drives it from
// opts.Input until EOF or a signal.
func Execute(opts RunOptions) error {
	logger := createLogger(opts.Debug)

	machineOpts := []fsm.Option{fsm.WithConcurrency(opts.Concurrency)}
	if opts.Debug {
		machineOpts = append(machineOpts, fsm.WithLifecycleHooks(observability.LogHooks(logger)))
	}

	reg, err := NewActionRegistry(logger, opts.Actions)
	if err != nil {
		return err
	}

	doc, m, err := loadMachine(opts.Path, reg, logger, machineOpts...)
	if err != nil {
		return err
	}

	if !opts.quiet() {
		tui.PrintBanner(opts.Output, fsm.Version)
		printSystemMessage(opts.Output, "Machine '%s' loaded from %s.", doc.Name, opts.Path)
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	if err := m.Init(sigCtx); err != nil {
		return fmt.Errorf("failed to init machine: %w", err)
	}

	session := NewSession(m, opts.Input, opts.Output, opts.JSON, !opts.quiet()).WithMaxEventNameSize(opts.MaxEventNameSize)
	runErr := session.Run(sigCtx)

	if sigCtx.Err() != nil && runErr == nil {
		runErr = sigCtx.Err()
	}
	logCompletion(opts.Output, m.CurrentState(), runErr, opts.quiet(), sigCtx.Signal())

	return handleExecutionError(runErr)
}
