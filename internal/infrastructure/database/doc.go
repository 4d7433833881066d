// Package database provides the SQLite connection and schema migration
// machinery for the labstation snapshot store.
//
// Opening a database configures WAL mode, a busy timeout and a
// single-writer connection pool, then verifies connectivity. Schema
// changes ship as embedded SQL files applied by Migrate in version
// order, tracked in the schema_migrations table.
//
//	db, err := database.Open(database.Config{
//	    Path:        "data/labstation.db",
//	    WALMode:     true,
//	    BusyTimeout: 5,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
