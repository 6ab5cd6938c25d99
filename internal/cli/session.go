package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aleung/fsm"
	"github.com/aleung/fsm/internal/presentation/tui"
	"github.com/aleung/fsm/pkg/domain"
	"github.com/aleung/fsm/pkg/session"
)

// ErrEmptyLine is returned by ParseLine for blank input.
var ErrEmptyLine = errors.New("empty line")

// Reply is one NDJSON output line in JSON mode.
type Reply struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// Session drives a machine from line-oriented input.
//
// In text mode each line is `event [json-data]`; `:state`, `:help` and
// `:quit` (or `exit`/`quit`) are session commands. In JSON mode each line is
// a JSON event object and each reply is a JSON object.
type Session struct {
	machine     *fsm.Machine
	in          io.Reader
	out         io.Writer
	json        bool
	interactive bool
	maxNameSize int
}

// NewSession creates a Session. interactive enables prompts and colors.
func NewSession(m *fsm.Machine, in io.Reader, out io.Writer, jsonMode, interactive bool) *Session {
	return &Session{
		machine:     m,
		in:          in,
		out:         out,
		json:        jsonMode,
		interactive: interactive && !jsonMode,
	}
}

// WithMaxEventNameSize bounds the event names the session accepts.
func (s *Session) WithMaxEventNameSize(n int) *Session {
	s.maxNameSize = n
	return s
}

// ParseLine turns `name [json-data]` into an event. Names longer than
// maxNameSize bytes are rejected; maxNameSize <= 0 uses session.DefaultMaxEventNameSize.
func ParseLine(line string, maxNameSize int) (domain.Event, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return domain.Event{}, ErrEmptyLine
	}

	name, rest, _ := strings.Cut(line, " ")
	name, err := session.SanitizeEventName(name, maxNameSize)
	if err != nil {
		return domain.Event{}, err
	}
	evt := domain.Event{Name: name}
	if rest = strings.TrimSpace(rest); rest != "" {
		if err := json.Unmarshal([]byte(rest), &evt.Data); err != nil {
			return domain.Event{}, fmt.Errorf("event data is not valid JSON: %w", err)
		}
	}
	return evt, nil
}

// Run reads until EOF, a quit command, or ctx cancellation. Failed sends
// are reported and the session continues.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			readErr <- err
			return
		}
		readErr <- io.EOF
	}()

	for {
		s.prompt()

		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				if s.interactive {
					fmt.Fprintln(s.out)
				}
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		case line = <-lines:
		}

		if s.json {
			s.handleJSON(ctx, line)
			continue
		}
		if done := s.handleText(ctx, line); done {
			return nil
		}
	}
}

func (s *Session) prompt() {
	if s.interactive {
		fmt.Fprint(s.out, tui.Prompt(s.machine.CurrentState()))
	}
}

func (s *Session) handleText(ctx context.Context, line string) bool {
	switch strings.TrimSpace(line) {
	case ":quit", ":q", "exit", "quit":
		return true
	case ":state":
		fmt.Fprintln(s.out, s.machine.CurrentState())
		return false
	case ":help":
		s.printHelp()
		return false
	}

	evt, err := ParseLine(line, s.maxNameSize)
	if errors.Is(err, ErrEmptyLine) {
		return false
	}
	if err != nil {
		s.fail(err)
		return false
	}

	from := s.machine.CurrentState()
	if err := s.machine.Send(ctx, evt); err != nil {
		s.fail(err)
		return false
	}

	to := s.machine.CurrentState()
	if s.interactive {
		fmt.Fprintln(s.out, tui.Success(fmt.Sprintf("%s -> %s", from, to)))
	} else {
		fmt.Fprintln(s.out, to)
	}
	return false
}

func (s *Session) handleJSON(ctx context.Context, line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	var evt domain.Event
	err := json.Unmarshal([]byte(line), &evt)
	if err == nil {
		evt.Name, err = session.SanitizeEventName(evt.Name, s.maxNameSize)
	}
	if err == nil {
		err = s.machine.Send(ctx, evt)
	}

	reply := Reply{State: s.machine.CurrentState()}
	if err != nil {
		reply.Error = err.Error()
	}
	_ = json.NewEncoder(s.out).Encode(reply)
}

func (s *Session) fail(err error) {
	if s.interactive {
		fmt.Fprintln(s.out, tui.Failure(err.Error()))
		return
	}
	fmt.Fprintf(s.out, "error: %v\n", err)
}

func (s *Session) printHelp() {
	fmt.Fprintln(s.out, "  <event> [json-data]  send an event")
	fmt.Fprintln(s.out, "  :state               print the current state")
	fmt.Fprintln(s.out, "  :quit                leave the session")
}
