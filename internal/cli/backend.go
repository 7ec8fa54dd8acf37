package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/transito/pkg/adapters/file"
	"github.com/aretw0/transito/pkg/adapters/memory"
	mongostore "github.com/aretw0/transito/pkg/adapters/mongo"
	redisstore "github.com/aretw0/transito/pkg/adapters/redis"
	"github.com/aretw0/transito/pkg/adapters/sqlstore"
	"github.com/aretw0/transito/pkg/ports"
	"github.com/aretw0/transito/pkg/schema"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	_ "modernc.org/sqlite"
)

const defaultSQLiteDSN = "transito.db"

// OpenAdapter connects to the backend named in cfg. The returned close func releases
// connections and is never nil. logger may be nil.
func OpenAdapter(ctx context.Context, cfg Config, sch schema.Schema, logger *slog.Logger) (ports.Adapter, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case BackendMemory:
		return memory.NewStore(), noop, nil

	case BackendFile:
		// An empty DSN selects the store's default directory.
		return file.New(cfg.DSN), noop, nil

	case BackendSQLite, BackendPostgres:
		return openSQL(ctx, cfg, sch)

	case BackendRedis:
		if cfg.DSN == "" {
			return nil, noop, fmt.Errorf("redis backend requires --dsn (redis://host:port/db)")
		}
		opts := []redisstore.Option{redisstore.WithLogger(logger)}
		if cfg.Prefix != "" {
			opts = append(opts, redisstore.WithPrefix(cfg.Prefix))
		}
		if cfg.TTL > 0 {
			opts = append(opts, redisstore.WithTTL(cfg.TTL))
		}
		store, err := redisstore.NewFromURL(cfg.DSN, opts...)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil

	case BackendMongo:
		if cfg.DSN == "" {
			return nil, noop, fmt.Errorf("mongo backend requires --dsn (mongodb://host:port)")
		}
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DSN))
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		closeClient := func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return client.Disconnect(ctx)
		}
		store, err := mongostore.New(client, cfg.Database, cfg.Collection, mongostore.WithSchema(sch))
		if err != nil {
			closeClient()
			return nil, noop, err
		}
		return store, closeClient, nil
	}
	return nil, noop, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func openSQL(ctx context.Context, cfg Config, sch schema.Schema) (ports.Adapter, func() error, error) {
	noop := func() error { return nil }

	dialect, err := sqlstore.ParseDialect(cfg.Backend)
	if err != nil {
		return nil, noop, err
	}
	dsn := cfg.DSN
	if dsn == "" {
		if cfg.Backend != BackendSQLite {
			return nil, noop, fmt.Errorf("%s backend requires --dsn", cfg.Backend)
		}
		dsn = defaultSQLiteDSN
	}

	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to open %s: %w", cfg.Backend, err)
	}
	if cfg.Backend == BackendSQLite {
		// SQLite serializes writers; one connection avoids SQLITE_BUSY on concurrent sends.
		db.SetMaxOpenConns(1)
	}
	store, err := sqlstore.New(ctx, db, dialect, cfg.Table, sch, sqlstore.WithCreateTable())
	if err != nil {
		db.Close()
		return nil, noop, err
	}
	return store, db.Close, nil
}
