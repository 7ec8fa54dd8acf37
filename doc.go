/*
Package transito runs durable finite-state-machine actors.

A Definition describes states, the events each state handles, and optional entry
actions whose outcome drives automatic follow-on transitions. Binding a Definition to a
storage Adapter yields a Machine; the Machine creates and loads Actors, and every event
sent to an Actor is applied all-or-nothing and persisted before Send returns.

	def, err := domain.NewDefinition(domain.Config{
		Initial: "inactive",
		States: map[string]domain.StateNode{
			"inactive":   {On: map[string]domain.Transition{"activate": {Target: "activating"}}},
			"activating": {Entry: activate, OnSuccess: &domain.Transition{Target: "active"}, OnError: &domain.Transition{Target: "failed"}},
			"active":     {On: map[string]domain.Transition{"deactivate": {Target: "inactive"}}},
			"failed":     {On: map[string]domain.Transition{"retry": {Target: "activating"}}},
		},
	})

	m, err := transito.Bind(def, memory.NewStore())
	actor, err := m.CreateActor(ctx, "sub_123", map[string]any{"customer": nil})
	actor, err = actor.Send(ctx, "activate", map[string]any{"customer": "cus_42"})

Identity uniqueness and optimistic concurrency are delegated to the Adapter: Create is
atomic per identity and Save is a compare-and-swap on the previous UpdatedAt. A lost race
surfaces as domain.ErrConcurrencyConflict; reload the actor and retry.
*/
package transito
