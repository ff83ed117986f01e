// Package store provides the SQLite persistence layer for site profiles.
package store

import (
	"database/sql"

	"github.com/lumingya/universal-web-api/dbopen"
)

// Store is the site profile database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the profile SQLite database at path, applies
// the standard pragmas and the profile schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}
