// Package mongo implements store.Store using the official MongoDB driver.
// Runs, counters, locks, and instances each live in their own collection,
// and every admission race resolves through a single-document atomic
// operation: upserts for leases, $inc for counters.
//
// The caller owns the *mongo.Client lifecycle — this package never
// disconnects it. Pass a database handle through the constructor:
//
//	client, _ := mongod.Connect(options.Client().ApplyURI(uri))
//	s := mongostore.New(client.Database("autowebsites"))
//	if err := s.Migrate(ctx); err != nil { ... }
package mongo
