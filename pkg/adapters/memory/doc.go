// Package memory provides a process-local ports.Adapter, used by tests and the CLI's default backend.
package memory
