package timetable

import (
	"errors"

	"github.com/iliyamo/conference-timetable/internal/model"
)

var (
	// ErrValidation is returned when a day, container or change record does
	// not satisfy the scheduling rules.
	ErrValidation = model.ErrValidation

	// ErrInvalidEntry is returned for an entry without a break, contribution
	// or session block payload.
	ErrInvalidEntry = model.ErrInvalidEntry

	// ErrUnsupportedContainer is returned for containers that are neither an
	// event nor a session block.
	ErrUnsupportedContainer = errors.New("unsupported timetable container")

	// ErrNoRoom is returned by Schedule when the duration does not fit and
	// force was not requested.
	ErrNoRoom = errors.New("duration does not fit in container")
)
