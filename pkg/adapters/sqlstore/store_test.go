package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/aretw0/transito"
	"github.com/aretw0/transito/internal/testutil"
	"github.com/aretw0/transito/pkg/adapters/sqlstore"
	"github.com/aretw0/transito/pkg/domain"
	"github.com/aretw0/transito/pkg/ports"
	"github.com/aretw0/transito/pkg/schema"
)

var contractSchema = schema.Schema{
	"name":   schema.String(),
	"score":  schema.Float(),
	"count":  schema.Int(),
	"active": schema.Bool(),
	"note":   schema.Nullable(schema.String()),
	"tags":   schema.Slice(schema.String()),
}

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "actors.db") + "?_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteStore_Contract(t *testing.T) {
	ports.RunAdapterContract(t, func(t *testing.T) ports.Adapter {
		store, err := sqlstore.New(context.Background(), openSQLite(t), sqlstore.SQLite, "actors", contractSchema, sqlstore.WithCreateTable())
		require.NoError(t, err)
		return store
	})
}

func TestPostgresStore_Contract(t *testing.T) {
	if testing.Short() {
		t.Skip("container test")
	}
	dsn := testutil.PostgresDSN(t)
	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var n atomic.Int32
	ports.RunAdapterContract(t, func(t *testing.T) ports.Adapter {
		table := fmt.Sprintf("actors_%d", n.Add(1))
		store, err := sqlstore.New(context.Background(), db, sqlstore.Postgres, table, contractSchema, sqlstore.WithCreateTable())
		require.NoError(t, err)
		return store
	})
}

func TestNew_RejectsSystemFieldCollision(t *testing.T) {
	_, err := sqlstore.New(context.Background(), openSQLite(t), sqlstore.SQLite, "actors",
		schema.Schema{"updatedAt": schema.Int()}, sqlstore.WithCreateTable())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNew_RejectsLayoutMismatch(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	_, err := db.ExecContext(ctx, `CREATE TABLE subscriptions (
		id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		count INTEGER NOT NULL,
		name TEXT
	)`)
	require.NoError(t, err)

	_, err = sqlstore.New(ctx, db, sqlstore.SQLite, "subscriptions", schema.Schema{"count": schema.Int()})
	assert.ErrorIs(t, err, domain.ErrConfiguration, "a column without a schema field")

	_, err = sqlstore.New(ctx, db, sqlstore.SQLite, "subscriptions", schema.Schema{
		"count": schema.Int(), "name": schema.Nullable(schema.String()), "plan": schema.String(),
	})
	assert.ErrorIs(t, err, domain.ErrConfiguration, "a schema field without a column")

	_, err = sqlstore.New(ctx, db, sqlstore.SQLite, "subscriptions", schema.Schema{
		"count": schema.Int(), "name": schema.Nullable(schema.String()),
	})
	assert.NoError(t, err, "a hand-written table matching the schema binds")
}

func TestNew_MissingTable(t *testing.T) {
	_, err := sqlstore.New(context.Background(), openSQLite(t), sqlstore.SQLite, "nope", contractSchema)
	assert.Error(t, err)
}

func TestCreate_RejectsUndeclaredField(t *testing.T) {
	store, err := sqlstore.New(context.Background(), openSQLite(t), sqlstore.SQLite, "actors", contractSchema, sqlstore.WithCreateTable())
	require.NoError(t, err)

	c := ports.ContractContext()
	c["extra"] = 1
	_, err = store.Create(context.Background(), "a", "inactive", c)
	assert.Error(t, err)
}

func TestSliceColumnsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := schema.Schema{"tags": schema.Slice(schema.String()), "limits": schema.Nullable(schema.Slice(schema.Int()))}
	store, err := sqlstore.New(ctx, openSQLite(t), sqlstore.SQLite, "tagged", s, sqlstore.WithCreateTable())
	require.NoError(t, err)

	created, err := store.Create(ctx, "a", "inactive", map[string]any{"tags": []string{"x", "y"}, "limits": []int{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "y"}, created.Context["tags"])

	loaded, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "y"}, loaded.Context["tags"])
	assert.Equal(t, []any{int64(1), int64(2)}, loaded.Context["limits"])
}

func TestCreateTableStatement(t *testing.T) {
	ddl, err := sqlstore.CreateTableStatement(sqlstore.Postgres, "subscriptions", schema.Schema{
		"count": schema.Int(),
		"name":  schema.Nullable(schema.String()),
	})
	require.NoError(t, err)
	assert.Contains(t, ddl, `CREATE TABLE IF NOT EXISTS "subscriptions"`)
	assert.Contains(t, ddl, `"count" BIGINT NOT NULL`)
	assert.Contains(t, ddl, `"name" TEXT`)
	assert.NotContains(t, ddl, `"name" TEXT NOT NULL`)

	_, err = sqlstore.CreateTableStatement(sqlstore.SQLite, "t", schema.Schema{
		"any": schema.Custom("any", func(any) error { return nil }),
	})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestParseDialect(t *testing.T) {
	d, err := sqlstore.ParseDialect("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, "pgx", d.Driver)

	d, err = sqlstore.ParseDialect("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Driver)

	_, err = sqlstore.ParseDialect("oracle")
	assert.Error(t, err)
}

// The count/name machine against a flattened SQLite table.
func TestBoundMachineOnSQLite(t *testing.T) {
	ctx := context.Background()
	s := schema.Schema{"count": schema.Int(), "name": schema.Nullable(schema.String())}
	store, err := sqlstore.New(ctx, openSQLite(t), sqlstore.SQLite, "subscriptions", s, sqlstore.WithCreateTable())
	require.NoError(t, err)

	m, err := transito.Bind(testutil.ExampleDefinition(t), store, transito.WithSchema(s))
	require.NoError(t, err)

	created, err := m.CreateActor(ctx, "sub_123", map[string]any{"count": 0, "name": nil})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": int64(0), "name": nil}, created.Context())

	loaded, err := m.GetActor(ctx, "sub_123")
	require.NoError(t, err)
	assert.Equal(t, created.Snapshot(), loaded.Snapshot())

	_, err = m.CreateActor(ctx, "sub_123", map[string]any{"count": 1, "name": nil})
	assert.ErrorIs(t, err, domain.ErrActorAlreadyExists)

	active, err := loaded.Send(ctx, "activate", map[string]any{"name": "X"})
	require.NoError(t, err)
	assert.Equal(t, "active", active.State())

	loaded, err = m.GetActor(ctx, "sub_123")
	require.NoError(t, err)
	assert.Equal(t, "active", loaded.State())
	assert.Equal(t, map[string]any{"count": int64(1), "name": "X"}, loaded.Context())

	_, err = created.Send(ctx, "activate", map[string]any{"name": "stale"})
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
}
