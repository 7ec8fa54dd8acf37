package mongo

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aretw0/transito/pkg/domain"
	"github.com/aretw0/transito/pkg/schema"
)

// Document attribute names of the system fields.
const (
	fieldID        = "_id"
	fieldState     = "state"
	fieldCreatedAt = "createdAt"
	fieldUpdatedAt = "updatedAt"
)

// Store implements ports.Adapter over a MongoDB collection, one flattened document per
// actor: _id, state, createdAt, updatedAt and the context fields as top-level attributes.
//
// Identity uniqueness comes from _id and Save is a FindOneAndReplace filtered on the
// previous updatedAt, so the store is safe across processes.
type Store struct {
	coll   *mongo.Collection
	schema schema.Schema
	now    func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithClock overrides time.Now for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithSchema restricts the context to the schema fields and normalizes decoded values
// (int32 to int64, arrays to []any) through it.
func WithSchema(sc schema.Schema) Option {
	return func(s *Store) {
		s.schema = sc
	}
}

// New binds the collection dbName.collName.
// dbName defaults to "transito" if empty, collName defaults to "actors".
func New(client *mongo.Client, dbName, collName string, opts ...Option) (*Store, error) {
	if dbName == "" {
		dbName = "transito"
	}
	if collName == "" {
		collName = "actors"
	}
	s := &Store{
		coll: client.Database(dbName).Collection(collName),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.schema != nil {
		if err := schema.CheckDisjoint(s.schema); err != nil {
			return nil, err
		}
		if _, clash := s.schema[fieldID]; clash {
			return nil, fmt.Errorf("%w: context field %q is reserved by MongoDB", domain.ErrConfiguration, fieldID)
		}
	}
	return s, nil
}

// Load reads the document of id, or returns nil when there is none.
func (s *Store) Load(ctx context.Context, id string) (*domain.Snapshot, error) {
	var doc bson.M
	err := s.coll.FindOne(ctx, bson.M{fieldID: id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongo: load actor %q: %w", id, err)
	}
	snap, err := s.fromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("mongo: decode actor %q: %w", id, err)
	}
	return snap, nil
}

// Create inserts the first document of id. A duplicate key error maps to
// domain.ErrDuplicateIdentity.
func (s *Store) Create(ctx context.Context, id, state string, data map[string]any) (*domain.Snapshot, error) {
	normalized, err := s.normalize(data)
	if err != nil {
		return nil, fmt.Errorf("mongo: create actor %q: %w", id, err)
	}
	now := domain.Timestamp(s.now())
	snap := &domain.Snapshot{ID: id, State: state, Context: normalized, CreatedAt: now, UpdatedAt: now}

	doc := toDocument(snap)
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("mongo: create actor %q: %w", id, domain.ErrDuplicateIdentity)
		}
		return nil, fmt.Errorf("mongo: create actor %q: %w", id, err)
	}
	return s.stored(id, doc)
}

// Save replaces the document of snapshot.ID if its updatedAt still equals prevUpdatedAt.
func (s *Store) Save(ctx context.Context, snapshot *domain.Snapshot, prevUpdatedAt time.Time) (*domain.Snapshot, error) {
	normalized, err := s.normalize(snapshot.Context)
	if err != nil {
		return nil, fmt.Errorf("mongo: save actor %q: %w", snapshot.ID, err)
	}
	next := snapshot.Clone()
	next.Context = normalized

	filter := bson.M{fieldID: snapshot.ID, fieldUpdatedAt: primitive.NewDateTimeFromTime(prevUpdatedAt)}
	var replaced bson.M
	err = s.coll.FindOneAndReplace(ctx, filter, toDocument(next),
		options.FindOneAndReplace().SetReturnDocument(options.After)).Decode(&replaced)
	if err == nil {
		snap, err := s.fromDocument(replaced)
		if err != nil {
			return nil, fmt.Errorf("mongo: decode actor %q: %w", snapshot.ID, err)
		}
		return snap, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("mongo: save actor %q: %w", snapshot.ID, err)
	}

	n, err := s.coll.CountDocuments(ctx, bson.M{fieldID: snapshot.ID}, options.Count().SetLimit(1))
	switch {
	case err != nil:
		return nil, fmt.Errorf("mongo: save actor %q: %w", snapshot.ID, err)
	case n == 0:
		return nil, fmt.Errorf("mongo: save actor %q: %w", snapshot.ID, domain.ErrActorNotFound)
	default:
		return nil, fmt.Errorf("mongo: save actor %q: %w", snapshot.ID, domain.ErrConcurrencyConflict)
	}
}

// Delete removes the document of id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{fieldID: id}); err != nil {
		return fmt.Errorf("mongo: delete actor %q: %w", id, err)
	}
	return nil
}

// List returns stored identities in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{fieldID: 1}))
	if err != nil {
		return nil, fmt.Errorf("mongo: list actors: %w", err)
	}
	defer cur.Close(ctx)

	ids := []string{}
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: list actors: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo: list actors: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *Store) normalize(data map[string]any) (map[string]any, error) {
	for k := range data {
		if k == fieldID || slices.Contains(schema.SystemFields, k) {
			return nil, fmt.Errorf("%w: context field %q collides with a system field", domain.ErrConfiguration, k)
		}
	}
	if s.schema == nil {
		return domain.CloneContext(data), nil
	}
	if err := schema.Validate(s.schema, data); err != nil {
		return nil, err
	}
	return schema.Normalize(s.schema, data)
}

// stored returns doc the way Load decodes it, by passing it through the BSON codec.
func (s *Store) stored(id string, doc bson.D) (*domain.Snapshot, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("mongo: encode actor %q: %w", id, err)
	}
	var decoded bson.M
	if err := bson.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("mongo: decode actor %q: %w", id, err)
	}
	snap, err := s.fromDocument(decoded)
	if err != nil {
		return nil, fmt.Errorf("mongo: decode actor %q: %w", id, err)
	}
	return snap, nil
}

func toDocument(snap *domain.Snapshot) bson.D {
	doc := bson.D{
		{Key: fieldID, Value: snap.ID},
		{Key: fieldState, Value: snap.State},
		{Key: fieldCreatedAt, Value: primitive.NewDateTimeFromTime(snap.CreatedAt)},
		{Key: fieldUpdatedAt, Value: primitive.NewDateTimeFromTime(snap.UpdatedAt)},
	}
	for _, k := range slices.Sorted(maps.Keys(snap.Context)) {
		doc = append(doc, bson.E{Key: k, Value: snap.Context[k]})
	}
	return doc
}

func (s *Store) fromDocument(doc bson.M) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{Context: map[string]any{}}

	id, ok := doc[fieldID].(string)
	if !ok {
		return nil, fmt.Errorf("_id is %T, want string", doc[fieldID])
	}
	snap.ID = id
	snap.State, _ = doc[fieldState].(string)

	created, ok := doc[fieldCreatedAt].(primitive.DateTime)
	if !ok {
		return nil, fmt.Errorf("%s is %T, want date", fieldCreatedAt, doc[fieldCreatedAt])
	}
	updated, ok := doc[fieldUpdatedAt].(primitive.DateTime)
	if !ok {
		return nil, fmt.Errorf("%s is %T, want date", fieldUpdatedAt, doc[fieldUpdatedAt])
	}
	snap.CreatedAt = created.Time().UTC()
	snap.UpdatedAt = updated.Time().UTC()

	for k, v := range doc {
		switch k {
		case fieldID, fieldState, fieldCreatedAt, fieldUpdatedAt:
			continue
		}
		snap.Context[k] = plain(v)
	}

	if s.schema != nil {
		normalized, err := schema.Normalize(s.schema, snap.Context)
		if err != nil {
			return nil, err
		}
		snap.Context = normalized
	}
	return snap, nil
}

// plain converts BSON container types into the map/slice types the rest of the engine uses.
func plain(v any) any {
	switch t := v.(type) {
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = plain(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = plain(e.Value)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	default:
		return v
	}
}
