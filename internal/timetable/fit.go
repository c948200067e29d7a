// Package timetable is the scheduling and layout engine: it fits new
// entries into events and session blocks, shifts and reschedules entries,
// aggregates timetables across categories, builds the nested timetable of
// an event and assembles the data needed for PDF export.
package timetable

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/conference-timetable/internal/model"
)

// dayStartHour is where an event day begins when the event itself does
// not start on that day.
const dayStartHour = 8

// ContainerKind is the discriminant of Container.
type ContainerKind int

const (
	containerInvalid ContainerKind = iota
	ContainerEvent
	ContainerSessionBlock
)

// Container is something timetable entries are placed into: an event
// (top-level entries) or a session block (its children).  Build one with
// EventContainer or BlockContainer; the zero value is unsupported.
type Container struct {
	Kind  ContainerKind
	Event *model.Event
	Block *model.SessionBlock
}

// EventContainer wraps an event.
func EventContainer(e *model.Event) Container { return Container{Kind: ContainerEvent, Event: e} }

// BlockContainer wraps a session block.  The block's TimetableEntry must
// be loaded.
func BlockContainer(b *model.SessionBlock) Container {
	return Container{Kind: ContainerSessionBlock, Block: b}
}

// checkDay validates day against the container: required and in range
// for events, forbidden for session blocks.
func (c Container) checkDay(day model.Date) error {
	switch c.Kind {
	case ContainerEvent:
		if c.Event == nil {
			return fmt.Errorf("%w: nil event", ErrUnsupportedContainer)
		}
		if day.IsZero() {
			return fmt.Errorf("%w: no day specified for event", ErrValidation)
		}
		if day.Before(c.Event.StartDate()) || day.After(c.Event.EndDate()) {
			return fmt.Errorf("%w: day %s out of event bounds", ErrValidation, day)
		}
		return nil
	case ContainerSessionBlock:
		if c.Block == nil {
			return fmt.Errorf("%w: nil session block", ErrUnsupportedContainer)
		}
		if !day.IsZero() {
			return fmt.Errorf("%w: day specified for session block", ErrValidation)
		}
		if c.Block.TimetableEntry == nil {
			return fmt.Errorf("%w: session block %d is not scheduled", ErrInvalidEntry, c.Block.ID)
		}
		return nil
	}
	return fmt.Errorf("%w: kind %d", ErrUnsupportedContainer, c.Kind)
}

// Bounds returns the earliest and latest instants available in the
// container on day.
func (c Container) Bounds(day model.Date) (time.Time, time.Time, error) {
	if err := c.checkDay(day); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if c.Kind == ContainerSessionBlock {
		entry := c.Block.TimetableEntry
		return entry.StartDT, entry.EndDT, nil
	}
	ev := c.Event
	loc := ev.Loc()
	earliest := day.At(dayStartHour, 0, loc)
	if day == ev.StartDate() {
		earliest = ev.StartDT
	}
	latest := day.At(23, 59, loc)
	if day == ev.EndDate() {
		latest = ev.EndDT
	}
	return earliest, latest, nil
}

// FindLatestEntryEndDT returns the latest end among the container's
// entries: top-level entries starting on day for an event, direct
// children for a session block.  It returns nil when there are none.
func FindLatestEntryEndDT(ctx context.Context, s EntryStore, c Container, day model.Date) (*time.Time, error) {
	if err := c.checkDay(day); err != nil {
		return nil, err
	}
	var (
		entries []*model.TimetableEntry
		err     error
	)
	switch c.Kind {
	case ContainerEvent:
		loc := c.Event.Loc()
		from := day.At(0, 0, loc)
		to := day.AddDays(1).At(0, 0, loc)
		entries, err = s.ListTopLevelEntriesBetween(ctx, c.Event.ID, from, to)
	case ContainerSessionBlock:
		entries, err = s.ListChildEntries(ctx, c.Block.TimetableEntry.ID)
	}
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	latest := entries[0].EndDT
	for _, e := range entries[1:] {
		if e.EndDT.After(latest) {
			latest = e.EndDT
		}
	}
	return &latest, nil
}

// FindNextStartDT finds where an entry of the given duration should start
// in the container.  It starts right after the latest scheduled entry,
// moving back so the entry ends on the container boundary when it would
// overflow.  When the duration is longer than the whole container window
// it returns nil, or the earliest instant if force is set.
func FindNextStartDT(ctx context.Context, s EntryStore, duration time.Duration, c Container, day model.Date, force bool) (*time.Time, error) {
	earliest, latest, err := c.Bounds(day)
	if err != nil {
		return nil, err
	}
	if duration > latest.Sub(earliest) {
		if force {
			return &earliest, nil
		}
		return nil, nil
	}
	start := earliest
	anchor, err := FindLatestEntryEndDT(ctx, s, c, day)
	if err != nil {
		return nil, err
	}
	if anchor != nil {
		start = *anchor
	}
	if start.Add(duration).After(latest) {
		start = latest.Add(-duration)
	}
	return &start, nil
}
