// Package bunstore implements store.Store using the Bun ORM with SQLite
// dialect. Suitable for single-instance deployments that want durable runs
// without operating a database server.
//
// The caller owns the *bun.DB lifecycle — bunstore never closes it. Pass the
// db handle through the constructor:
//
//	import (
//	    "database/sql"
//
//	    _ "github.com/mattn/go-sqlite3"
//	    "github.com/uptrace/bun"
//	    "github.com/uptrace/bun/dialect/sqlitedialect"
//	    bunstore "github.com/isethius/Autowebsites-sub001/store/bun"
//	)
//
//	sqldb, _ := sql.Open("sqlite3", "file:autowebsites.db?_journal_mode=WAL")
//	db := bun.NewDB(sqldb, sqlitedialect.New())
//	store := bunstore.New(db)
//	store.Migrate(ctx)
package bunstore
