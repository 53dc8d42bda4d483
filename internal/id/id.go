package id

import "github.com/google/uuid"

// New returns a batch job identifier.
func New() string {
	return uuid.NewString()
}
