// Package id generates entity identifiers.
package id

import "github.com/google/uuid"

// New returns a UUIDv7 string. UUIDv7 sorts by creation time, so ledger rows
// ordered by id replay in append order.
func New() string {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return v.String()
}
