package fsm_test

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/aleung/fsm"
)

// ExampleCreate shows a light switch with an entry action and a global reset.
func ExampleCreate() {
	onEntry := func(ctx context.Context, from string, evt *fsm.Event) error {
		fmt.Printf("entered from %s\n", from)
		return nil
	}

	m, err := fsm.Create(fsm.MachineDefinition{
		InitialState: "off",
		States: map[string]fsm.StateDefinition{
			"off": {Transitions: map[string]fsm.Rule{"toggle": fsm.To("on")}},
			"on": {
				Actions:     fsm.StateActions{OnEntry: onEntry},
				Transitions: map[string]fsm.Rule{"toggle": fsm.To("off")},
			},
		},
		Transitions: map[string]fsm.Rule{"reset": fsm.To("off")},
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := m.Init(ctx); err != nil {
		log.Fatal(err)
	}
	fmt.Println(m.CurrentState())

	_ = m.Send(ctx, fsm.Event{Name: "toggle"})
	fmt.Println(m.CurrentState())

	_ = m.Send(ctx, fsm.Event{Name: "reset"})
	fmt.Println(m.CurrentState())

	// Output:
	// off
	// entered from off
	// on
	// off
}

// ExampleMachine_Send_unhandled shows the error returned when no rule matches.
func ExampleMachine_Send_unhandled() {
	m := fsm.MustCreate(fsm.MachineDefinition{
		InitialState: "idle",
		States:       map[string]fsm.StateDefinition{"idle": {}},
	})

	ctx := context.Background()
	_ = m.Init(ctx)

	err := m.Send(ctx, fsm.Event{Name: "jump"})
	var unhandled *fsm.UnhandledEventError
	fmt.Println(errors.As(err, &unhandled), unhandled.State)

	// Output:
	// true idle
}
