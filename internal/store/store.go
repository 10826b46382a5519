// Package store provides SQLite-backed persistence for all entities.
package store

import (
	"errors"
	"strings"
)

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
// Callers use errors.Is to distinguish "already exists" from other failures.
var ErrDuplicate = errors.New("already exists")

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
// The driver exposes no typed error for this, so match on the message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
