/*
Package ports defines the driven ports (interfaces) of the transito engine.

The engine only ever talks to storage through Adapter. Every adapter in pkg/adapters
runs RunAdapterContract in its tests.

# Key Interfaces

  - Adapter: Load, Create (atomic per identity) and Save (compare-and-swap on UpdatedAt).
  - Lister: optional enumeration of stored identities, used by the CLI and HTTP API.
  - Deleter: optional removal of a snapshot.
*/
package ports
