// Package sqlite provides the durable stores behind the sync pipeline:
// items keyed by their external id, downloaded media assets, and the
// subscription registry. Everything lives in a single database file.
package sqlite

import (
	_ "embed"
	"fmt"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// DefaultSubscription is seeded into an empty registry so a fresh
// deployment syncs something out of the box.
const (
	DefaultSubscription      = "unixporn"
	DefaultSubscriptionTitle = "r/unixporn - Unix Customization"
)

// Open opens (creating if needed) the database at path and applies the
// schema. WAL mode and a busy timeout let the media workers write item
// updates while ingestion holds the connection; a single connection keeps
// sqlite's writer lock out of the picture entirely.
func Open(path string) (*sqlx.DB, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}

	dsn := "file:" + abs + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := seedDefaultSubscription(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed default subscription: %w", err)
	}

	return db, nil
}

func seedDefaultSubscription(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM subscriptions"); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	_, err := db.Exec(
		"INSERT INTO subscriptions (source_id, title) VALUES (?, ?) ON CONFLICT (source_id) DO NOTHING",
		DefaultSubscription, DefaultSubscriptionTitle,
	)
	return err
}
