package fsm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleung/fsm"
)

type call struct {
	name string
	arg  any
}

type spy struct {
	calls []call
}

func (s *spy) entry(name string) fsm.EntryAction {
	return func(ctx context.Context, from string, evt *fsm.Event) error {
		s.calls = append(s.calls, call{name, from})
		return nil
	}
}

func (s *spy) exit(name string) fsm.ExitAction {
	return func(ctx context.Context, to string, evt *fsm.Event) error {
		s.calls = append(s.calls, call{name, to})
		return nil
	}
}

func (s *spy) action(name string) fsm.Action {
	return func(ctx context.Context, evt *fsm.Event) error {
		s.calls = append(s.calls, call{name, *evt})
		return nil
	}
}

func TestCreate_InvalidStateReference(t *testing.T) {
	_, err := fsm.Create(fsm.MachineDefinition{
		InitialState: "unknown",
		States: map[string]fsm.StateDefinition{
			"off": {
				Actions: fsm.StateActions{OnEntry: func(ctx context.Context, from string, evt *fsm.Event) error { return nil }},
				Transitions: map[string]fsm.Rule{
					"singleClick": fsm.To("on"),
					"doubleClick": fsm.To("blink"),
				},
			},
			"blink": {Transitions: map[string]fsm.Rule{"singleClick": fsm.To("off")}},
		},
		Default: fsm.Edge("error", nil),
	})

	var defErr *fsm.DefinitionError
	require.ErrorAs(t, err, &defErr)
	assert.Equal(t, []string{"unknown", "on", "error"}, defErr.Missing)
	assert.Contains(t, err.Error(), "unknown, on, error")
}

func TestMustCreate_Panics(t *testing.T) {
	assert.Panics(t, func() {
		fsm.MustCreate(fsm.MachineDefinition{InitialState: "nowhere"})
	})
}

func TestMachine_InitEntersInitialState(t *testing.T) {
	s := &spy{}
	m := fsm.MustCreate(fsm.MachineDefinition{
		InitialState: "firstState",
		States: map[string]fsm.StateDefinition{
			"firstState": {Actions: fsm.StateActions{OnEntry: s.entry("entry")}},
		},
	})
	assert.Equal(t, fsm.InitState, m.CurrentState())

	require.NoError(t, m.Init(context.Background()))

	assert.Equal(t, "firstState", m.CurrentState())
	assert.Equal(t, []call{{"entry", "__init__"}}, s.calls)
}

func TestMachine_TransitionOnEvent(t *testing.T) {
	s := &spy{}
	m := fsm.MustCreate(fsm.MachineDefinition{
		InitialState: "firstState",
		States: map[string]fsm.StateDefinition{
			"firstState": {
				Actions:     fsm.StateActions{OnExit: s.exit("exit")},
				Transitions: map[string]fsm.Rule{"event": fsm.To("secondState")},
			},
			"secondState": {Actions: fsm.StateActions{OnEntry: s.entry("entry")}},
		},
	})
	ctx := context.Background()

	require.NoError(t, m.Init(ctx))
	assert.Equal(t, "firstState", m.CurrentState())
	require.NoError(t, m.Send(ctx, fsm.Event{Name: "event"}))

	assert.Equal(t, "secondState", m.CurrentState())
	assert.Equal(t, []call{{"exit", "secondState"}, {"entry", "firstState"}}, s.calls)
}

func TestMachine_Fallbacks(t *testing.T) {
	tests := []struct {
		name string
		def  fsm.MachineDefinition
	}{
		{
			name: "State Default Before Global Rule",
			def: fsm.MachineDefinition{
				InitialState: "firstState",
				States: map[string]fsm.StateDefinition{
					"firstState": {
						Transitions: map[string]fsm.Rule{"event": fsm.To("firstState")},
						Default:     fsm.To("secondState"),
					},
					"secondState": {},
				},
				Transitions: map[string]fsm.Rule{"otherEvent": fsm.To("firstState")},
			},
		},
		{
			name: "Global Rule When State Has No Match",
			def: fsm.MachineDefinition{
				InitialState: "firstState",
				States: map[string]fsm.StateDefinition{
					"firstState":  {Transitions: map[string]fsm.Rule{"event": fsm.To("firstState")}},
					"secondState": {},
				},
				Transitions: map[string]fsm.Rule{"otherEvent": fsm.To("secondState")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := fsm.MustCreate(tt.def)
			ctx := context.Background()

			require.NoError(t, m.Init(ctx))
			require.NoError(t, m.Send(ctx, fsm.Event{Name: "otherEvent"}))
			assert.Equal(t, "secondState", m.CurrentState())
		})
	}
}

func TestMachine_SelfTransition(t *testing.T) {
	s := &spy{}
	m := fsm.MustCreate(fsm.MachineDefinition{
		InitialState: "firstState",
		States: map[string]fsm.StateDefinition{
			"firstState": {
				Actions: fsm.StateActions{OnEntry: s.entry("entry"), OnExit: s.exit("exit")},
				Transitions: map[string]fsm.Rule{
					"event": fsm.Edge("firstState", s.action("action")),
				},
			},
		},
	})
	ctx := context.Background()

	require.NoError(t, m.Init(ctx))
	require.NoError(t, m.Send(ctx, fsm.Event{Name: "event"}))

	assert.Equal(t, "firstState", m.CurrentState())
	assert.Equal(t, []call{
		{"entry", "__init__"},
		{"exit", "firstState"},
		{"action", fsm.Event{Name: "event"}},
		{"entry", "firstState"},
	}, s.calls)
}

func TestMachine_UnhandledEvent(t *testing.T) {
	m := fsm.MustCreate(fsm.MachineDefinition{
		InitialState: "firstState",
		States: map[string]fsm.StateDefinition{
			"firstState": {Transitions: map[string]fsm.Rule{}},
		},
	})
	ctx := context.Background()
	require.NoError(t, m.Init(ctx))

	err := m.Send(ctx, fsm.Event{Name: "event"})

	var unhandled *fsm.UnhandledEventError
	require.ErrorAs(t, err, &unhandled)
	assert.Contains(t, err.Error(), `event "event" is invalid in state "firstState"`)
	assert.Equal(t, "firstState", m.CurrentState())
}

func TestMachine_SendBeforeInit(t *testing.T) {
	m := fsm.MustCreate(fsm.MachineDefinition{
		InitialState: "a",
		States:       map[string]fsm.StateDefinition{"a": {}},
	})
	assert.ErrorIs(t, m.Send(context.Background(), fsm.Event{Name: "x"}), fsm.ErrNotInitialized)
}

func TestMachine_Options(t *testing.T) {
	var ended []string
	m := fsm.MustCreate(fsm.MachineDefinition{
		InitialState: "a",
		States:       map[string]fsm.StateDefinition{"a": {}},
	},
		fsm.WithName("door"),
		fsm.WithConcurrency(fsm.ConcurrencyFailFast),
		fsm.WithLogger(nil),
		fsm.WithLifecycleHooks(fsm.LifecycleHooks{
			OnTransitionEnd: func(ctx context.Context, e *fsm.TransitionEvent) {
				ended = append(ended, e.Machine+":"+e.To)
			},
		}),
	)

	require.NoError(t, m.Init(context.Background()))
	assert.Equal(t, "door", m.Name())
	assert.Equal(t, "a", m.Definition().InitialState)
	assert.Equal(t, []string{"door:a"}, ended)
}
