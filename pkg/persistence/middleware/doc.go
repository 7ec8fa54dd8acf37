// Package middleware wraps a ports.Adapter with cross-cutting storage behavior:
// AES-GCM encryption of actor contexts with key rotation, PII masking, and
// Prometheus/slog instrumentation. Wrapped adapters keep List and Delete.
package middleware
