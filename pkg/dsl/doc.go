/*
Package dsl provides a fluent builder for constructing machine definitions in Go.

It is an alternative to writing domain.MachineDefinition literals or loading
YAML/JSON files, and validates the result the same way fsm.Create does.

Example usage:

	def, err := dsl.New("off").
		State("off").On("toggle", "on").
		State("on").On("toggle", "off").
		Entry(func(ctx context.Context, from string, evt *domain.Event) error {
			fmt.Println("light on")
			return nil
		}).
		Build()
*/
package dsl
