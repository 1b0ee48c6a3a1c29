package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ConnectionError means the database could not be reached.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("error connecting to the database: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SchemaError means the upsert statement could not be prepared.
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("error preparing the inscription upsert: %v", e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// WriteError means a single upsert failed.
type WriteError struct {
	Account string
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to persist inscription %s: %v", e.Account, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// SQLState returns the Postgres error code, or "" when the failure was not reported by the server.
func (e *WriteError) SQLState() string {
	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
