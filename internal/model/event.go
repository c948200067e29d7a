package model

import (
	"sync"
	"time"
)

// Category groups events in a tree.  A root category has a nil ParentID.
type Category struct {
	ID       uint64  // categories.id
	ParentID *uint64 // categories.parent_id (nullable)
	Title    string  // categories.title
}

// Event is the root container of a timetable.  It owns a default
// timezone and a start/end interval; its top-level timetable entries have
// no parent.
//
// Fields:
//  ID            – primary key identifier.
//  CategoryID    – category the event is created in.
//  CategoryChain – category ids from the root down to CategoryID; filled by
//                  the repository.
//  Title         – event title.
//  Timezone      – IANA name used for local days (e.g. "Europe/Zurich").
//  StartDT/EndDT – event span.
//  Visibility    – how far up the category chain the event is listed; nil
//                  means everywhere, 1 means only its own category.
//  IsDeleted     – soft delete flag.
type Event struct {
	ID            uint64       // events.id
	CategoryID    uint64       // events.category_id
	CategoryChain []uint64     // derived from categories.parent_id
	Title         string       // events.title
	Timezone      string       // events.timezone
	StartDT       time.Time    // events.start_dt
	EndDT         time.Time    // events.end_dt
	Visibility    *int         // events.visibility (nullable)
	IsDeleted     bool         // events.is_deleted
	Location      LocationData // events.venue_name/room_name/address
	Protection    Protection   // events.protection_mode + acl rows
}

// locations caches resolved timezones by IANA name.  Unknown names map to
// UTC.
var locations sync.Map

// LoadLocation resolves an IANA timezone name once per process, falling
// back to UTC for empty or unknown names.
func LoadLocation(name string) *time.Location {
	if name == "" || name == "UTC" {
		return time.UTC
	}
	if loc, ok := locations.Load(name); ok {
		return loc.(*time.Location)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc = time.UTC
	}
	actual, _ := locations.LoadOrStore(name, loc)
	return actual.(*time.Location)
}

// Loc returns the event timezone, falling back to UTC for unknown names.
func (e *Event) Loc() *time.Location {
	if e == nil {
		return time.UTC
	}
	return LoadLocation(e.Timezone)
}

// StartDate is the local calendar day the event starts on.
func (e *Event) StartDate() Date { return DateOf(e.StartDT, e.Loc()) }

// EndDate is the local calendar day the event ends on.
func (e *Event) EndDate() Date { return DateOf(e.EndDT, e.Loc()) }

// HappensBetween reports whether the event span overlaps [from, to].
func (e *Event) HappensBetween(from, to time.Time) bool {
	return !e.StartDT.After(to) && !e.EndDT.Before(from)
}

// InCategories reports whether any category in the event chain is one of ids.
func (e *Event) InCategories(ids []uint64) bool {
	for _, c := range e.CategoryChain {
		for _, id := range ids {
			if c == id {
				return true
			}
		}
	}
	return false
}

// IsVisibleIn reports whether the event is listed when browsing category
// categoryID.
func (e *Event) IsVisibleIn(categoryID uint64) bool {
	idx := -1
	for i, c := range e.CategoryChain {
		if c == categoryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	if e.Visibility == nil {
		return true
	}
	depth := len(e.CategoryChain) - 1 - idx
	return depth < *e.Visibility
}
