package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/isethius/Autowebsites-sub001/store"
	bunstore "github.com/isethius/Autowebsites-sub001/store/bun"
	"github.com/isethius/Autowebsites-sub001/store/memory"
	mongostore "github.com/isethius/Autowebsites-sub001/store/mongo"
	"github.com/isethius/Autowebsites-sub001/store/postgres"
	redisstore "github.com/isethius/Autowebsites-sub001/store/redis"
)

// storeDriver reads STORE_DRIVER, defaulting to memory.
func storeDriver() string {
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		return strings.ToLower(v)
	}
	return "memory"
}

// openStore builds the persistence backend named by STORE_DRIVER. The
// returned cleanup closes the underlying client handle; the redis, bun,
// and mongo stores leave that to their caller.
func openStore(ctx context.Context, logger *slog.Logger) (store.Store, func(), error) {
	noop := func() {}
	driver := storeDriver()
	switch driver {
	case "memory":
		logger.Warn("using in-memory store; runs and quotas vanish on restart")
		return memory.New(), noop, nil

	case "postgres":
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return nil, nil, fmt.Errorf("STORE_DRIVER=postgres requires DATABASE_URL")
		}
		s, err := postgres.New(ctx, dsn, postgres.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil

	case "redis":
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", addr, err)
		}
		return redisstore.New(client, redisstore.WithLogger(logger)),
			func() { _ = client.Close() }, nil

	case "sqlite":
		path := os.Getenv("SQLITE_PATH")
		if path == "" {
			path = "autowebsites.db"
		}
		sqldb, err := sql.Open("sqlite3", "file:"+path+"?_journal_mode=WAL&_busy_timeout=5000")
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite %s: %w", path, err)
		}
		db := bun.NewDB(sqldb, sqlitedialect.New())
		return bunstore.New(db, bunstore.WithLogger(logger)),
			func() { _ = db.Close() }, nil

	case "mongo":
		uri := os.Getenv("MONGO_URI")
		if uri == "" {
			uri = "mongodb://localhost:27017"
		}
		name := os.Getenv("MONGO_DATABASE")
		if name == "" {
			name = "autowebsites"
		}
		client, err := mongod.Connect(options.Client().ApplyURI(uri))
		if err != nil {
			return nil, nil, fmt.Errorf("mongo connect: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, fmt.Errorf("mongo ping: %w", err)
		}
		return mongostore.New(client.Database(name), mongostore.WithLogger(logger)),
			func() { _ = client.Disconnect(context.Background()) }, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q (want memory, postgres, redis, sqlite, or mongo)", driver)
	}
}
