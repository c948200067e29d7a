// Package repository implements the timetable data store over
// database/sql.  These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios.
package repository

import "errors"

var (
	// ErrEventNotFound is returned when an event does not exist or is
	// deleted.  Handlers translate it into an HTTP 404 response.
	ErrEventNotFound = errors.New("event not found")

	// ErrEntryNotFound is returned for unknown timetable entries.
	ErrEntryNotFound = errors.New("timetable entry not found")

	// ErrBlockNotFound is returned for unknown session blocks or blocks of
	// deleted sessions.
	ErrBlockNotFound = errors.New("session block not found")

	// ErrContributionNotFound is returned for unknown or deleted
	// contributions.
	ErrContributionNotFound = errors.New("contribution not found")

	// ErrSessionNotFound is returned for unknown or deleted sessions.
	ErrSessionNotFound = errors.New("session not found")
)

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as scheduling a contribution that already has a
// timetable entry.  Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")
