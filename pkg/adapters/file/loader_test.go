package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleung/fsm/pkg/domain"
	"github.com/aleung/fsm/pkg/registry"
)

func TestLoad_YAML(t *testing.T) {
	doc, def, err := Load(filepath.Join("testdata", "door.yaml"), registry.NewWithBuiltins(nil))
	require.NoError(t, err)

	assert.Equal(t, "door", doc.Name)
	assert.Equal(t, "closed", def.InitialState)
	require.Len(t, def.States, 4)

	closed := def.States["closed"]
	assert.NotNil(t, closed.Actions.OnEntry)
	assert.Nil(t, closed.Actions.OnExit)
	assert.Equal(t, domain.RuleTarget, closed.Transitions["open"].Kind())
	assert.Equal(t, domain.RuleEdge, closed.Transitions["lock"].Kind())
	assert.Equal(t, "locked", closed.Transitions["lock"].Target())

	opened := def.States["opened"]
	assert.NotNil(t, opened.Actions.OnExit)
	assert.NotContains(t, opened.Transitions, "default")
	assert.Equal(t, "opened", opened.Default.Target())

	assert.Equal(t, "broken", def.Transitions["kick"].Target())
	assert.NotContains(t, def.Transitions, "default")
	assert.Equal(t, domain.RuleEdge, def.Default.Kind())
	assert.Equal(t, "closed", def.Default.Target())
}

func TestLoad_JSON(t *testing.T) {
	doc, def, err := Load(filepath.Join("testdata", "door.json"), registry.NewWithBuiltins(nil))
	require.NoError(t, err)

	assert.Equal(t, "door", doc.Name, "name defaults to the file name")
	assert.Equal(t, domain.RuleEdge, def.States["opened"].Transitions["close"].Kind())
}

func TestLoad_BoundActionsRun(t *testing.T) {
	reg := registry.NewRegistry()
	var calls []registry.Call
	reg.Register("log", func(ctx context.Context, call registry.Call) error {
		calls = append(calls, call)
		return nil
	})

	_, def, err := Load(filepath.Join("testdata", "door.json"), reg)
	require.NoError(t, err)

	evt := &domain.Event{Name: "close"}
	require.NoError(t, def.States["opened"].Transitions["close"].Action()(context.Background(), evt))
	require.Len(t, calls, 1)
	assert.Equal(t, registry.Call{Name: "log", Phase: domain.PhaseTransition, State: "opened", Peer: "closed", Event: evt}, calls[0])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		format  Format
		wantErr string
	}{
		{
			name:    "Unknown Key",
			input:   "initial: a\nstates:\n  a:\n    onEnter: log\n",
			format:  FormatYAML,
			wantErr: "onEnter",
		},
		{
			name:    "Malformed YAML",
			input:   "initial: [",
			format:  FormatYAML,
			wantErr: "failed to parse yaml",
		},
		{
			name:    "Malformed JSON",
			input:   "{",
			format:  FormatJSON,
			wantErr: "failed to parse json",
		},
		{
			name:    "Empty",
			input:   "",
			format:  FormatYAML,
			wantErr: "empty definition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), tt.format)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	t.Run("Unknown Action", func(t *testing.T) {
		doc, err := Parse([]byte("initial: a\nstates:\n  a:\n    entry: missing\n"), FormatYAML)
		require.NoError(t, err)

		_, err = doc.Compile(registry.NewWithBuiltins(nil))
		assert.ErrorIs(t, err, registry.ErrActionNotFound)
		assert.Contains(t, err.Error(), `state "a" entry`)
	})

	t.Run("Nil Registry Rejects Actions", func(t *testing.T) {
		doc, err := Parse([]byte("initial: a\nstates:\n  a:\n    transitions:\n      x: { to: a, action: log }\n"), FormatYAML)
		require.NoError(t, err)

		_, err = doc.Compile(nil)
		assert.ErrorIs(t, err, registry.ErrActionNotFound)
	})

	t.Run("Missing States", func(t *testing.T) {
		doc, err := Parse([]byte("initial: a\nstates:\n  a:\n    transitions:\n      x: b\ntransitions:\n  default: c\n"), FormatYAML)
		require.NoError(t, err)

		_, err = doc.Compile(nil)
		var defErr *domain.DefinitionError
		require.ErrorAs(t, err, &defErr)
		assert.Equal(t, []string{"b", "c"}, defErr.Missing)
	})
}

func TestLoadDocument_MissingFile(t *testing.T) {
	_, err := LoadDocument(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatOf("a/b.JSON"))
	assert.Equal(t, FormatYAML, FormatOf("a/b.yml"))
	assert.Equal(t, FormatYAML, FormatOf("noext"))
}
