// Package uid generates the opaque identifiers the agent hands out:
// client refs stamped on locally created sales and request ids on the
// HTTP surface.
package uid

import "github.com/google/uuid"

// New returns a fresh random identifier.
func New() string {
	return uuid.NewString()
}

// IsValid reports whether id parses as an identifier produced by New.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
