package store

import (
	_ "embed"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Schema is the reference DDL for the tables this package queries
//
//go:embed schema.sql
var Schema string

// Postgres implements EntityStore, InvoiceStore and BatchStore on one
// database handle.
type Postgres struct {
	db *sqlx.DB
}

// Open connects to PostgreSQL and verifies the connection
func Open(dsn string) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// NewPostgres wraps an existing database handle
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Close releases the underlying connection pool
func (p *Postgres) Close() error {
	return p.db.Close()
}
