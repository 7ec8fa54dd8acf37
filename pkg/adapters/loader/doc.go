// Package loader reads machine definitions from YAML files.
//
// A file declares the initial state, an optional context schema and the states:
//
//	initial: inactive
//	context:
//	  count: int
//	  name: "?string"
//	states:
//	  inactive: { on: { activate: activating } }
//	  activating: { entry: activate, on_success: active, on_error: failed }
//	  active: { on: { deactivate: inactive } }
//	  failed: { on: { retry: activating } }
//
// Entry actions are Go functions, so the file references them by the name they were
// registered under in a registry.Registry. Unknown keys, unknown actions and every
// structural problem are reported together in a *domain.DefinitionError.
package loader
