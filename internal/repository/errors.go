// Package repository holds the data access layer. Each entity gets its own
// repository over *sql.DB. Sentinel errors defined here (and the per-entity
// not-found sentinels next to each repository) let handlers distinguish
// failure scenarios without inspecting driver errors: constraint
// violations raised by MySQL are translated at this boundary and never
// propagate raw to the HTTP layer.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when an operation cannot proceed because of
// dependent state, such as deleting a user who still guides activities.
// Handlers translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert collides with an existing row on
// a unique or composite primary key. Duplicate creation is rejected, never
// silently merged.
var ErrDuplicate = errors.New("duplicate")

// MySQL server error numbers this layer cares about.
const (
	mysqlErrDuplicateEntry  = 1062 // unique or primary key violation
	mysqlErrRowIsReferenced = 1451 // delete blocked by a child row
	mysqlErrNoReferencedRow = 1452 // insert references a missing parent
)

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// isDuplicateEntry reports whether err is a unique-key violation. The
// storage constraint is the authority for racing duplicate inserts; this
// check turns the loser's error into ErrDuplicate.
func isDuplicateEntry(err error) bool {
	return mysqlErrNumber(err) == mysqlErrDuplicateEntry
}

// isRowReferenced reports whether a delete was blocked by dependent rows.
func isRowReferenced(err error) bool {
	return mysqlErrNumber(err) == mysqlErrRowIsReferenced
}

// isMissingParent reports whether an insert referenced a nonexistent row.
// Handlers pre-check foreign keys for clean domain errors; this covers the
// race where the parent disappears between check and insert.
func isMissingParent(err error) bool {
	return mysqlErrNumber(err) == mysqlErrNoReferencedRow
}
