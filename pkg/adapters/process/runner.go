package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/aleung/fsm/internal/logging"
	"github.com/aleung/fsm/pkg/registry"
)

// DefaultTimeout bounds a single command run.
const DefaultTimeout = 30 * time.Second

// ErrProcessFailed wraps every non-successful command run.
var ErrProcessFailed = errors.New("process action failed")

// Runner executes local commands as named actions.
// It follows a Strict Registry pattern for security (Allow-Listing): only
// registered commands can run, and event data never becomes command-line
// arguments.
type Runner struct {
	registry map[string]ProcessConfig
	baseDir  string
	timeout  time.Duration
	logger   *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(actions map[string]ProcessConfig) RunnerOption {
	return func(r *Runner) {
		for name, action := range actions {
			action.Name = name
			r.registry[name] = action
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithTimeout bounds each run. d <= 0 disables the bound.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithLogger sets the logger that receives command output.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]ProcessConfig),
		timeout:  DefaultTimeout,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.registry[name] = ProcessConfig{Name: name, Command: command, Args: args}
}

// Names returns the registered action names, sorted.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.registry))
	for name := range r.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterInto exposes every command as an action of reg. Existing
// actions with the same name are replaced.
func (r *Runner) RegisterInto(reg *registry.Registry) {
	for _, name := range r.Names() {
		reg.Register(name, r.Execute)
	}
}

// Execute runs the command registered under call.Name.
//
// The call is passed through the environment: FSM_ACTION, FSM_PHASE,
// FSM_STATE, FSM_PEER, FSM_EVENT and FSM_DATA (event data as JSON). A
// non-zero exit status fails the action; stdout is logged at DEBUG.
func (r *Runner) Execute(ctx context.Context, call registry.Call) error {
	proc, ok := r.registry[call.Name]
	if !ok {
		return fmt.Errorf("%w: %s is not registered", ErrProcessFailed, call.Name)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	env, err := callEnv(call)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrProcessFailed, call.Name, err)
	}
	for k, v := range proc.Environment {
		env = append(env, k+"="+v)
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	cmd.Env = append(cmd.Environ(), env...)
	// Do not wait forever for grandchildren holding the pipes.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return fmt.Errorf("%w: %s: %w (stderr: %s)", ErrProcessFailed, call.Name, err, strings.TrimSpace(stderr.String()))
	}

	r.logger.DebugContext(ctx, "process action finished", "action", call.Name, "state", call.State, "stdout", strings.TrimSpace(stdout.String()))
	return nil
}

func callEnv(call registry.Call) ([]string, error) {
	env := []string{
		"FSM_ACTION=" + call.Name,
		"FSM_PHASE=" + string(call.Phase),
		"FSM_STATE=" + call.State,
		"FSM_PEER=" + call.Peer,
	}
	if call.Event == nil {
		return env, nil
	}

	env = append(env, "FSM_EVENT="+call.Event.Name)
	if call.Event.Data != nil {
		data, err := json.Marshal(call.Event.Data)
		if err != nil {
			return nil, fmt.Errorf("event data is not serializable: %w", err)
		}
		env = append(env, "FSM_DATA="+string(data))
	}
	return env, nil
}
