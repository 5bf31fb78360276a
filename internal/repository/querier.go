package repository

import "database/sql"

// Querier is satisfied by both *sql.DB and *sql.Tx so write methods can run
// inside the caller's transaction or standalone.
type Querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}
