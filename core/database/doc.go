// Package database handles the connection to the backup index database.
//
// It wraps GORM to configure MySQL for production and SQLite for tests and
// single-host setups, selected by Config.Driver.
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns read the live column set of a table so
// callers can detect a schema that drifted from the model they migrate.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	missing, err := database.MissingColumns(db, "backups", "id", "guild_id")
package database
