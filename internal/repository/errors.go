// Package repository defines error values reused across repositories.
// These sentinels let handlers distinguish failure scenarios without
// inspecting driver-specific errors.
package repository

import "errors"

// ErrEmailExists is returned when registration hits the unique email index.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a lookup matches no row.  Repositories map
// sql.ErrNoRows to this so handlers never import database/sql.
var ErrNotFound = errors.New("not found")
