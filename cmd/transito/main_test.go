package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/transito/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const machineYAML = `
initial: inactive
context:
  count: "?int"
  name: "?string"
states:
  inactive: { on: { activate: activating } }
  activating: { entry: merge, on_success: active, on_error: failed }
  active: { on: { deactivate: inactive } }
  failed: { on: { retry: activating } }
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func setup(t *testing.T) (def string, backend []string) {
	t.Helper()
	dir := t.TempDir()
	def = filepath.Join(dir, "machine.yaml")
	require.NoError(t, os.WriteFile(def, []byte(machineYAML), 0o644))
	return def, []string{"--definition", def, "--backend", "file", "--dsn", filepath.Join(dir, "actors"), "--log-level", "off"}
}

func TestValidateAndGraph(t *testing.T) {
	def, _ := setup(t)

	out, err := run(t, "validate", def)
	require.NoError(t, err)
	assert.Contains(t, out, "4 states")

	out, err = run(t, "graph", def)
	require.NoError(t, err)
	assert.Contains(t, out, `activating -. "error" .-> failed`)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("initial: nowhere\nstates:\n  a: {}\n"), 0o644))
	_, err = run(t, "validate", bad)
	assert.ErrorIs(t, err, domain.ErrInvalidDefinition)
}

func TestActorCommands(t *testing.T) {
	_, backend := setup(t)
	with := func(args ...string) []string { return append(args, backend...) }

	out, err := run(t, with("actor", "create", "a1", "--context", `{"count":1}`)...)
	require.NoError(t, err)
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, "inactive", snap.State)

	_, err = run(t, with("actor", "create", "a1", "--context", "")...)
	assert.ErrorIs(t, err, domain.ErrActorAlreadyExists)

	out, err = run(t, with("actor", "send", "a1", "activate", "--payload", `{"name":"Ada"}`)...)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, "active", snap.State)
	assert.Equal(t, "Ada", snap.Context["name"])

	out, err = run(t, with("actor", "get", "a1")...)
	require.NoError(t, err)
	assert.Contains(t, out, `"state":"active"`)

	out, err = run(t, with("graph", "--actor", "a1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "class active current;")

	_, err = run(t, with("actor", "send", "ghost", "activate", "--payload", "")...)
	assert.ErrorIs(t, err, domain.ErrActorNotFound)

	out, err = run(t, with("actor", "ls")...)
	require.NoError(t, err)
	assert.Equal(t, "a1", strings.TrimSpace(out))

	out, err = run(t, with("actor", "rm", "a1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed actor 'a1'")

	_, err = run(t, with("actor", "get", "a1")...)
	assert.ErrorIs(t, err, domain.ErrActorNotFound)

	// Reset the graph-only flag for later tests sharing rootCmd.
	require.NoError(t, graphCmd.Flags().Set("actor", ""))
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "transito version "))
}
