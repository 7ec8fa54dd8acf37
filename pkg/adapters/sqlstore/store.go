package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/transito/pkg/domain"
	"github.com/aretw0/transito/pkg/schema"
)

// System columns. Context fields live in one column each next to them.
const (
	colID        = "id"
	colState     = "state"
	colCreatedAt = "created_at"
	colUpdatedAt = "updated_at"
)

var systemColumns = []string{colID, colState, colCreatedAt, colUpdatedAt}

// Store implements ports.Adapter over database/sql with a flattened table: the system
// columns id, state, created_at and updated_at (unix nanoseconds) plus one column per
// schema field.
//
// Create is a single INSERT ... ON CONFLICT DO NOTHING and Save a single conditional
// UPDATE ... RETURNING, so the store is safe across processes sharing the database.
type Store struct {
	db      *sql.DB
	dialect Dialect
	table   string
	schema  schema.Schema
	fields  []string
	now     func() time.Time

	createTable bool
}

// Option configures the Store.
type Option func(*Store)

// WithClock overrides time.Now for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithCreateTable issues CREATE TABLE IF NOT EXISTS before the layout check.
// Evolving an existing table is left to the application.
func WithCreateTable() Option {
	return func(s *Store) {
		s.createTable = true
	}
}

// New binds table to the context schema s.
//
// The table must have exactly the system columns plus one column per schema field; any
// mismatch, or a schema field named like a system field, fails with domain.ErrConfiguration.
func New(ctx context.Context, db *sql.DB, dialect Dialect, table string, s schema.Schema, opts ...Option) (*Store, error) {
	if err := schema.CheckDisjoint(s); err != nil {
		return nil, err
	}
	store := &Store{
		db:      db,
		dialect: dialect,
		table:   table,
		schema:  s,
		fields:  s.Fields(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}

	if store.createTable {
		ddl, err := CreateTableStatement(dialect, table, s)
		if err != nil {
			return nil, err
		}
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("sqlstore: create table %s: %w", table, err)
		}
	}

	if err := store.checkLayout(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// CreateTableStatement renders the DDL of a table matching s.
func CreateTableStatement(dialect Dialect, table string, s schema.Schema) (string, error) {
	if err := schema.CheckDisjoint(s); err != nil {
		return "", err
	}
	cols := []string{
		quote(colID) + " TEXT PRIMARY KEY",
		quote(colState) + " TEXT NOT NULL",
		quote(colCreatedAt) + " BIGINT NOT NULL",
		quote(colUpdatedAt) + " BIGINT NOT NULL",
	}
	for _, f := range s.Fields() {
		typ, err := dialect.columnType(s[f])
		if err != nil {
			return "", fmt.Errorf("%w: field %q: %v", domain.ErrConfiguration, f, err)
		}
		cols = append(cols, quote(f)+" "+typ)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", quote(table), strings.Join(cols, ",\n\t")), nil
}

func (s *Store) checkLayout(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", quote(s.table)))
	if err != nil {
		return fmt.Errorf("sqlstore: inspect table %s: %w", s.table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("sqlstore: inspect table %s: %w", s.table, err)
	}

	var missingSystem, contextCols []string
	for _, c := range systemColumns {
		if !slices.Contains(cols, c) {
			missingSystem = append(missingSystem, c)
		}
	}
	for _, c := range cols {
		if !slices.Contains(systemColumns, c) {
			contextCols = append(contextCols, c)
		}
	}
	slices.Sort(contextCols)

	if len(missingSystem) > 0 || !slices.Equal(contextCols, s.fields) {
		return fmt.Errorf("%w: table %s has context columns %q (missing system columns %q), schema declares %q",
			domain.ErrConfiguration, s.table, contextCols, missingSystem, s.fields)
	}
	return nil
}

// Load reads the row of id, or returns nil when there is none.
func (s *Store) Load(ctx context.Context, id string) (*domain.Snapshot, error) {
	cols := append(slices.Clone(systemColumns), s.fields...)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		quoteAll(cols), quote(s.table), quote(colID), s.dialect.placeholder(1))

	var (
		snap               domain.Snapshot
		createdAt, updated int64
	)
	raw := make([]any, len(s.fields))
	dest := []any{&snap.ID, &snap.State, &createdAt, &updated}
	for i := range raw {
		dest = append(dest, &raw[i])
	}

	if err := s.db.QueryRowContext(ctx, query, id).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlstore: load actor %q: %w", id, err)
	}

	data, err := s.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: decode actor %q: %w", id, err)
	}
	snap.Context = data
	snap.CreatedAt = time.Unix(0, createdAt).UTC()
	snap.UpdatedAt = time.Unix(0, updated).UTC()
	return &snap, nil
}

// Create inserts the first row of id. It fails with domain.ErrDuplicateIdentity when the
// primary key is taken.
func (s *Store) Create(ctx context.Context, id, state string, data map[string]any) (*domain.Snapshot, error) {
	values, normalized, err := s.encode(data)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: create actor %q: %w", id, err)
	}

	now := domain.Timestamp(s.now())
	cols := append(slices.Clone(systemColumns), s.fields...)
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		quote(s.table), quoteAll(cols), s.dialect.placeholders(1, len(cols)), quote(colID))
	args := append([]any{id, state, now.UnixNano(), now.UnixNano()}, values...)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: create actor %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: create actor %q: %w", id, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("sqlstore: create actor %q: %w", id, domain.ErrDuplicateIdentity)
	}

	return &domain.Snapshot{
		ID:        id,
		State:     state,
		Context:   normalized,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Save updates the row of snapshot.ID if updated_at still equals prevUpdatedAt.
func (s *Store) Save(ctx context.Context, snapshot *domain.Snapshot, prevUpdatedAt time.Time) (*domain.Snapshot, error) {
	values, normalized, err := s.encode(snapshot.Context)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: save actor %q: %w", snapshot.ID, err)
	}

	cols := append([]string{colState, colUpdatedAt}, s.fields...)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s AND %s = %s RETURNING %s",
		quote(s.table), s.dialect.assignments(cols, 1),
		quote(colID), s.dialect.placeholder(len(cols)+1),
		quote(colUpdatedAt), s.dialect.placeholder(len(cols)+2),
		quote(colCreatedAt))
	args := append([]any{snapshot.State, snapshot.UpdatedAt.UnixNano()}, values...)
	args = append(args, snapshot.ID, prevUpdatedAt.UnixNano())

	var createdAt int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&createdAt)
	if err == nil {
		return &domain.Snapshot{
			ID:        snapshot.ID,
			State:     snapshot.State,
			Context:   normalized,
			CreatedAt: time.Unix(0, createdAt).UTC(),
			UpdatedAt: time.Unix(0, snapshot.UpdatedAt.UnixNano()).UTC(),
		}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlstore: save actor %q: %w", snapshot.ID, err)
	}

	var one int
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT 1 FROM %s WHERE %s = %s", quote(s.table), quote(colID), s.dialect.placeholder(1)),
		snapshot.ID).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("sqlstore: save actor %q: %w", snapshot.ID, domain.ErrActorNotFound)
	case err != nil:
		return nil, fmt.Errorf("sqlstore: save actor %q: %w", snapshot.ID, err)
	default:
		return nil, fmt.Errorf("sqlstore: save actor %q: %w", snapshot.ID, domain.ErrConcurrencyConflict)
	}
}

// Delete removes the row of id.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = %s", quote(s.table), quote(colID), s.dialect.placeholder(1)), id)
	if err != nil {
		return fmt.Errorf("sqlstore: delete actor %q: %w", id, err)
	}
	return nil
}

// List returns stored identities in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s", quote(colID), quote(s.table)))
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list actors: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlstore: list actors: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: list actors: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}

// encode validates data and returns the column arguments in field order together with
// the canonical context.
func (s *Store) encode(data map[string]any) ([]any, map[string]any, error) {
	for k := range data {
		if _, ok := s.schema[k]; !ok {
			return nil, nil, fmt.Errorf("%w: context field %q has no column in %s", domain.ErrConfiguration, k, s.table)
		}
	}
	if err := schema.Validate(s.schema, data); err != nil {
		return nil, nil, err
	}
	normalized, err := schema.Normalize(s.schema, data)
	if err != nil {
		return nil, nil, err
	}

	args := make([]any, len(s.fields))
	for i, f := range s.fields {
		v := normalized[f]
		if isJSON(s.schema[f]) && v != nil {
			b, err := json.Marshal(v)
			if err != nil {
				return nil, nil, fmt.Errorf("field %q: %w", f, err)
			}
			v = string(b)
		}
		args[i] = v
	}
	return args, normalized, nil
}

func (s *Store) decode(raw []any) (map[string]any, error) {
	out := make(map[string]any, len(s.fields))
	for i, f := range s.fields {
		v := raw[i]
		if isJSON(s.schema[f]) && v != nil {
			var text []byte
			switch t := v.(type) {
			case string:
				text = []byte(t)
			case []byte:
				text = t
			}
			var items []any
			if err := json.Unmarshal(text, &items); err != nil {
				return nil, fmt.Errorf("field %q: %w", f, err)
			}
			v = items
		}
		n, err := s.schema[f].Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f, err)
		}
		out[f] = n
	}
	return out, nil
}

func isJSON(t schema.Type) bool {
	if n, ok := t.(*schema.NullableType); ok {
		t = n.Inner()
	}
	_, ok := t.(*schema.SliceType)
	return ok
}
