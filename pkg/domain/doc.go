/*
Package domain contains the core models of the transito engine.

It defines the state graph (Definition, StateNode, Transition, Action), the persisted
Snapshot of an actor, the error taxonomy shared by the engine and its adapters, and the
lifecycle events used for observability. The package is pure: no I/O, no persistence.

# Key Entities

  - Definition: a validated, immutable graph built with NewDefinition.
  - StateNode: the events a state handles plus an optional entry action with success/error branches.
  - Snapshot: the persisted (id, state, context, createdAt, updatedAt) record of one actor.
  - LifecycleHooks: callbacks fired by the executor and the bound machine.
*/
package domain
