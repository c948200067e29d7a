package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrValidation marks input that breaks a scheduling rule: a day given
// where none is allowed, an entry outside its parent, and so on.
var ErrValidation = errors.New("validation failed")

// ErrInvalidEntry marks a timetable entry without a payload where one is
// required.
var ErrInvalidEntry = errors.New("invalid timetable entry")

// EntryType is the kind of payload a timetable entry carries.
type EntryType string

const (
	EntrySessionBlock EntryType = "SESSION_BLOCK"
	EntryContribution EntryType = "CONTRIBUTION"
	EntryBreak        EntryType = "BREAK"
)

// Valid reports whether t is one of the known entry types.
func (t EntryType) Valid() bool {
	switch t {
	case EntrySessionBlock, EntryContribution, EntryBreak:
		return true
	}
	return false
}

// TimetableEntry is the atomic schedulable unit.  Exactly one of
// SessionBlockID, ContributionID and BreakID is set, matching Type.  A
// child entry's parent is always a SESSION_BLOCK entry and the child
// interval lies inside the parent interval.
type TimetableEntry struct {
	ID             uint64    // timetable_entries.id
	EventID        uint64    // timetable_entries.event_id
	ParentID       *uint64   // timetable_entries.parent_id (nullable)
	Type           EntryType // timetable_entries.type
	StartDT        time.Time // timetable_entries.start_dt (UTC millis)
	EndDT          time.Time // timetable_entries.end_dt (UTC millis)
	SessionBlockID *uint64   // timetable_entries.session_block_id
	ContributionID *uint64   // timetable_entries.contribution_id
	BreakID        *uint64   // timetable_entries.break_id

	Parent       *TimetableEntry
	Children     []*TimetableEntry
	SessionBlock *SessionBlock
	Contribution *Contribution
	Break        *Break
}

// Duration is EndDT - StartDT.
func (e *TimetableEntry) Duration() time.Duration { return e.EndDT.Sub(e.StartDT) }

// IsTopLevel reports whether the entry sits directly in the event.
func (e *TimetableEntry) IsTopLevel() bool { return e.ParentID == nil }

// Object returns the loaded payload of the entry.
func (e *TimetableEntry) Object() (Schedulable, error) {
	switch {
	case e.Break != nil:
		return e.Break, nil
	case e.Contribution != nil:
		return e.Contribution, nil
	case e.SessionBlock != nil:
		return e.SessionBlock, nil
	}
	return nil, fmt.Errorf("%w: entry %d has no payload", ErrInvalidEntry, e.ID)
}

// Move sets the entry start to start, keeping its duration.  Children are
// moved by the same delta so they stay inside the entry.
func (e *TimetableEntry) Move(start time.Time) {
	delta := start.Sub(e.StartDT)
	e.shift(delta)
}

func (e *TimetableEntry) shift(delta time.Duration) {
	e.StartDT = e.StartDT.Add(delta)
	e.EndDT = e.EndDT.Add(delta)
	for _, child := range e.Children {
		child.shift(delta)
	}
}

// ValidateBounds checks end >= start and, when the parent is loaded, that
// the entry lies inside it.
func (e *TimetableEntry) ValidateBounds() error {
	if e.EndDT.Before(e.StartDT) {
		return fmt.Errorf("%w: entry %d ends before it starts", ErrValidation, e.ID)
	}
	if e.Parent == nil {
		return nil
	}
	if e.StartDT.Before(e.Parent.StartDT) || e.EndDT.After(e.Parent.EndDT) {
		return fmt.Errorf("%w: entry %d is outside its session block", ErrValidation, e.ID)
	}
	return nil
}

// HasChild reports whether o is a direct child of e.
func (e *TimetableEntry) HasChild(o *TimetableEntry) bool {
	if o == nil {
		return false
	}
	for _, c := range e.Children {
		if c == o || (c.ID != 0 && c.ID == o.ID) {
			return true
		}
	}
	return false
}
