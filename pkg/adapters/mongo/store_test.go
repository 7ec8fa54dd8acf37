package mongo_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aretw0/transito"
	"github.com/aretw0/transito/internal/testutil"
	mongostore "github.com/aretw0/transito/pkg/adapters/mongo"
	"github.com/aretw0/transito/pkg/domain"
	"github.com/aretw0/transito/pkg/ports"
	"github.com/aretw0/transito/pkg/schema"
)

type MongoStoreTestSuite struct {
	suite.Suite
	client *mongo.Client
	dbName string
	n      atomic.Int32
}

func TestMongoStoreTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("container test")
	}
	uri := testutil.MongoURI(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	suite.Run(t, &MongoStoreTestSuite{client: client, dbName: "transito_test"})
}

func (m *MongoStoreTestSuite) newStore(opts ...mongostore.Option) *mongostore.Store {
	coll := fmt.Sprintf("actors_%d", m.n.Add(1))
	store, err := mongostore.New(m.client, m.dbName, coll, opts...)
	m.Require().NoError(err)
	return store
}

func (m *MongoStoreTestSuite) TestContract() {
	ports.RunAdapterContract(m.T(), func(t *testing.T) ports.Adapter {
		return m.newStore()
	})
}

func (m *MongoStoreTestSuite) TestContractWithSchema() {
	s := schema.Schema{
		"name":   schema.String(),
		"score":  schema.Float(),
		"count":  schema.Int(),
		"active": schema.Bool(),
		"note":   schema.Nullable(schema.String()),
		"tags":   schema.Slice(schema.String()),
	}
	ports.RunAdapterContract(m.T(), func(t *testing.T) ports.Adapter {
		return m.newStore(mongostore.WithSchema(s))
	})
}

func (m *MongoStoreTestSuite) TestRejectsReservedFields() {
	_, err := mongostore.New(m.client, m.dbName, "reserved", mongostore.WithSchema(schema.Schema{"createdAt": schema.Int()}))
	m.ErrorIs(err, domain.ErrConfiguration)

	store := m.newStore()
	_, err = store.Create(context.Background(), "a", "inactive", map[string]any{"_id": "b"})
	m.ErrorIs(err, domain.ErrConfiguration)
}

func (m *MongoStoreTestSuite) TestBoundMachine() {
	ctx := context.Background()
	s := schema.Schema{"count": schema.Int(), "name": schema.Nullable(schema.String())}
	store := m.newStore(mongostore.WithSchema(s))

	machine, err := transito.Bind(testutil.ExampleDefinition(m.T()), store, transito.WithSchema(s))
	m.Require().NoError(err)

	a, err := machine.CreateActor(ctx, "sub_123", map[string]any{"count": 0, "name": nil})
	m.Require().NoError(err)

	a, err = a.Send(ctx, "activate", map[string]any{"name": "X"})
	m.Require().NoError(err)
	m.Equal("active", a.State())

	loaded, err := machine.GetActor(ctx, "sub_123")
	m.Require().NoError(err)
	m.Equal(map[string]any{"count": int64(1), "name": "X"}, loaded.Context())
	m.True(a.UpdatedAt().Equal(loaded.UpdatedAt()))
}
