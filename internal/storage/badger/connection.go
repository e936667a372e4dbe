// Package badger provides Badger-backed storage for cached collaborator responses.
package badger

import (
	"fmt"
	"os"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// DB manages the Badger database connection.
type DB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	path   string
}

// Open opens the database at path, or an in-memory database when path is empty.
func Open(path string, logger arbor.ILogger) (*DB, error) {
	options := badgerhold.DefaultOptions
	if path == "" {
		options.Options = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		options.Options = badgerdb.DefaultOptions(path)
	}
	// Badger's own logger is noisy; arbor covers lifecycle events.
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("Failed to open Badger database")
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().
		Str("path", path).
		Bool("in_memory", path == "").
		Msg("Badger database opened")

	return &DB{store: store, logger: logger, path: path}, nil
}

// Store returns the underlying badgerhold store.
func (d *DB) Store() *badgerhold.Store {
	return d.store
}

// Close closes the database.
func (d *DB) Close() error {
	if d.store == nil {
		return nil
	}
	d.logger.Debug().Str("path", d.path).Msg("Closing Badger database")
	return d.store.Close()
}
