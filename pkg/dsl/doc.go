/*
Package dsl provides a fluent Go builder for transito machine definitions.

It is an alternative to filling domain.Config by hand or loading a YAML file, and it
offers Typed, which lets entry actions work on structs instead of maps.

Example usage:

	type sub struct {
		Customer *string `json:"customer"`
	}
	type activation struct {
		Customer string `json:"customer"`
	}

	def, err := dsl.New().
		Add("inactive").On("activate", "activating").
		Add("activating").
		Entry(dsl.Typed(func(ctx context.Context, c sub, p activation) (sub, error) {
			c.Customer = &p.Customer
			return c, nil
		})).
		OnSuccess("active").OnError("activation_failed").
		Add("activation_failed").On("retry", "activating").
		Add("active").On("deactivate", "inactive").
		Build()
*/
package dsl
