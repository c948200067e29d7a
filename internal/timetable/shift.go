package timetable

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/conference-timetable/internal/model"
)

// followingSiblings loads the siblings of entry that start at or after
// its end and moves them by shift in memory.  When session is set and entry
// is top level, only that session's blocks are considered.
func followingSiblings(ctx context.Context, s ShiftStore, entry *model.TimetableEntry, shift time.Duration, session *model.Session) ([]*model.TimetableEntry, error) {
	f := SiblingFilter{From: entry.EndDT}
	if session != nil && entry.IsTopLevel() {
		f.Type = model.EntrySessionBlock
		id := session.ID
		f.SessionID = &id
	}
	siblings, err := s.ListFollowingSiblings(ctx, entry, f)
	if err != nil {
		return nil, err
	}
	for _, sib := range siblings {
		sib.Move(sib.StartDT.Add(shift))
	}
	return siblings, nil
}

// ShiftFollowingEntries moves every sibling of entry that starts at or
// after entry's end by shift, which may be negative.  Container bounds are
// not checked.  The moved entries are returned; the slice is empty when
// nothing matched.
func ShiftFollowingEntries(ctx context.Context, s ShiftStore, entry *model.TimetableEntry, shift time.Duration, session *model.Session) ([]*model.TimetableEntry, error) {
	moved, err := followingSiblings(ctx, s, entry, shift, session)
	if err != nil {
		return nil, err
	}
	if len(moved) == 0 {
		return []*model.TimetableEntry{}, nil
	}
	if err := s.UpdateEntryTimes(ctx, moved); err != nil {
		return nil, fmt.Errorf("save shifted entries: %w", err)
	}
	return moved, nil
}

// RescheduleEntry moves entry to start, keeping its duration, and checks
// that it still lies inside its parent block.  With shiftLater the
// siblings that followed the entry's old end move by the same delta and
// must stay inside the block as well.  The
// entry comes first in the returned slice, followed by the shifted siblings.
// Nothing is saved when validation fails.
func RescheduleEntry(ctx context.Context, s ShiftStore, entry *model.TimetableEntry, start time.Time, shiftLater bool) ([]*model.TimetableEntry, error) {
	delta := start.Sub(entry.StartDT)
	var siblings []*model.TimetableEntry
	if shiftLater && delta != 0 {
		var err error
		siblings, err = followingSiblings(ctx, s, entry, delta, nil)
		if err != nil {
			return nil, err
		}
	}
	entry.Move(start)
	if err := entry.ValidateBounds(); err != nil {
		return nil, err
	}
	// shifted siblings share the entry's parent, which may not be loaded
	// on them
	if p := entry.Parent; p != nil {
		for _, sib := range siblings {
			if sib.StartDT.Before(p.StartDT) || sib.EndDT.After(p.EndDT) {
				return nil, fmt.Errorf("%w: entry %d is outside its session block", ErrValidation, sib.ID)
			}
		}
	}
	moved := append([]*model.TimetableEntry{entry}, siblings...)
	if err := s.UpdateEntryTimes(ctx, moved); err != nil {
		return nil, fmt.Errorf("save rescheduled entries: %w", err)
	}
	return moved, nil
}
