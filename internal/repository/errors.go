// Package repository defines the persistence contracts used by the auth
// engine together with MongoDB and MySQL implementations. The sentinel
// errors below are shared by every implementation so higher layers can
// react to a missing record or a uniqueness violation without knowing
// which driver produced it.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert or update would violate the
// unique index on users.email.
var ErrEmailExists = errors.New("email already exists")
