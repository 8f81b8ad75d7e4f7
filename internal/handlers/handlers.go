package handlers

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// Handlers holds the dependencies shared by all HTTP handlers.
type Handlers struct {
	DB *sql.DB
}

// Querier is the subset of *sql.DB and *sql.Tx the read helpers need, so
// they can run in or out of a transaction.
type Querier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

// isDuplicateEntry reports whether err is a MySQL unique-key violation
// (error 1062). Insert handlers map it to 409: the pre-insert existence
// checks race, and the unique index is what actually decides.
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
