package timetable

import (
	"context"
	"time"

	"github.com/iliyamo/conference-timetable/internal/access"
	"github.com/iliyamo/conference-timetable/internal/model"
)

// LoadOptions controls which nested associations are loaded with entries.
type LoadOptions struct {
	IncludeNotes bool
}

// SiblingFilter narrows ListFollowingSiblings.
type SiblingFilter struct {
	From      time.Time       // only siblings starting at or after From
	Type      model.EntryType // empty for any type
	SessionID *uint64         // only blocks of this session when set
}

// EventStart is one row of the category event query.  StartDT is nil for
// events selected for their own span because no entry starts in the window.
type EventStart struct {
	EventID uint64
	StartDT *time.Time
}

// EntryStore answers the lookups of the fit resolver.
type EntryStore interface {
	// ListTopLevelEntriesBetween returns top-level entries of the event
	// starting in [from, to).
	ListTopLevelEntriesBetween(ctx context.Context, eventID uint64, from, to time.Time) ([]*model.TimetableEntry, error)
	// ListChildEntries returns the direct children of an entry.
	ListChildEntries(ctx context.Context, parentID uint64) ([]*model.TimetableEntry, error)
}

// ShiftStore is used by the cascade shifter and reschedule.
type ShiftStore interface {
	// ListFollowingSiblings returns entries sharing entry's event and parent,
	// excluding entry itself and matching f.  Children are loaded.
	ListFollowingSiblings(ctx context.Context, entry *model.TimetableEntry, f SiblingFilter) ([]*model.TimetableEntry, error)
	// UpdateEntryTimes saves start/end of the entries and of their
	// children in a single transaction.
	UpdateEntryTimes(ctx context.Context, entries []*model.TimetableEntry) error
}

// ScheduleStore creates new entries.
type ScheduleStore interface {
	EntryStore
	// CreateBreakEntry inserts b and its entry e atomically and assigns
	// both IDs.
	CreateBreakEntry(ctx context.Context, b *model.Break, e *model.TimetableEntry) error
	// CreateEntry inserts e and assigns its ID.
	CreateEntry(ctx context.Context, e *model.TimetableEntry) error
}

// CategoryStore backs the category aggregator.
type CategoryStore interface {
	// QueryCategoryEventStarts returns, ordered by event id then start, one
	// row per distinct entry start in [start, end] for events under the
	// categories, plus one nil-start row for events whose own span overlaps
	// the window but have no entry starting in it.  Deleted events are
	// skipped.
	QueryCategoryEventStarts(ctx context.Context, categoryIDs []uint64, start, end time.Time) ([]EventStart, error)
	ListEventsByIDs(ctx context.Context, ids []uint64) ([]*model.Event, error)
	// ListBlocksStartingBetween returns blocks of non-deleted sessions whose
	// entry starts in [start, end], with Session and TimetableEntry loaded
	// (and entry children when withChildren).
	ListBlocksStartingBetween(ctx context.Context, eventIDs []uint64, start, end time.Time, withChildren bool) ([]*model.SessionBlock, error)
	ListContributionsStartingBetween(ctx context.Context, eventIDs []uint64, start, end time.Time) ([]*model.Contribution, error)
	ListBreaksStartingBetween(ctx context.Context, eventIDs []uint64, start, end time.Time) ([]*model.Break, error)
}

// NestedStore backs the nested builder and the request scope.
type NestedStore interface {
	// ListTopLevelEntries returns the event entries without parent, with
	// children, payloads, sessions, person links, subcontributions,
	// references and (per opts) notes loaded.
	ListTopLevelEntries(ctx context.Context, eventID uint64, opts LoadOptions) ([]*model.TimetableEntry, error)
	// ListNestedEntries returns the event entries that have a parent, with
	// payloads loaded.
	ListNestedEntries(ctx context.Context, eventID uint64) ([]*model.TimetableEntry, error)
}

// Store is the whole data-store collaborator.
type Store interface {
	ScheduleStore
	ShiftStore
	CategoryStore
	NestedStore
}

// Accessor decides visibility of schedulable objects for a viewer.
type Accessor interface {
	CanAccess(v access.Viewer, obj any) bool
}
