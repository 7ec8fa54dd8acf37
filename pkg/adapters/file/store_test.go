package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/transito/pkg/adapters/file"
	"github.com/aretw0/transito/pkg/ports"
)

var _ ports.Adapter = (*file.Store)(nil)
var _ ports.Lister = (*file.Store)(nil)
var _ ports.Deleter = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunAdapterContract(t, func(t *testing.T) ports.Adapter {
		return file.New(t.TempDir())
	})
}

func TestFileStore_EscapesIdentity(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	_, err := store.Create(ctx, "../tenant/42", "inactive", nil)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "the identity must not escape the base directory")

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"../tenant/42"}, ids)
}

func TestFileStore_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	snap, err := store.Create(ctx, "a", "inactive", map[string]any{"n": 1.0})
	require.NoError(t, err)
	_, err = store.Create(ctx, "a", "inactive", nil)
	require.Error(t, err)

	next := snap.Clone()
	next.State = "active"
	next.UpdatedAt = snap.UpdatedAt.Add(1)
	_, err = store.Save(ctx, next, snap.UpdatedAt)
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, ".tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFileStore_DefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join(".transito", "actors"), file.New("").BasePath)
}

func TestFileStore_WritesReturnDecodedContext(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	created, err := store.Create(ctx, "a", "inactive", map[string]any{"count": 0, "name": nil})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": float64(0), "name": nil}, created.Context)

	loaded, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, created, loaded)

	next := created.Clone()
	next.Context["count"] = 1
	next.UpdatedAt = created.UpdatedAt.Add(time.Millisecond)
	saved, err := store.Save(ctx, next, created.UpdatedAt)
	require.NoError(t, err)
	assert.Equal(t, float64(1), saved.Context["count"])

	loaded, err = store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}
