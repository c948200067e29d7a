package timetable

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/conference-timetable/internal/model"
)

// ScheduleRequest describes a new entry to place in a container.  For a
// CONTRIBUTION entry Contribution must be set and not yet scheduled; for a
// BREAK entry a new break titled Title is created.
type ScheduleRequest struct {
	Type         model.EntryType
	Title        string
	Duration     time.Duration
	Contribution *model.Contribution
	Force        bool
}

// Schedule places a new contribution or break entry at the next free start
// of the container and saves it.  ErrNoRoom is returned when the duration
// does not fit and req.Force is false.
func Schedule(ctx context.Context, s ScheduleStore, c Container, day model.Date, req ScheduleRequest) (*model.TimetableEntry, error) {
	if req.Duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrValidation)
	}
	switch req.Type {
	case model.EntryContribution:
		if req.Contribution == nil {
			return nil, fmt.Errorf("%w: no contribution given", ErrValidation)
		}
		if req.Contribution.TimetableEntry != nil {
			return nil, fmt.Errorf("%w: contribution %d is already scheduled", ErrValidation, req.Contribution.ID)
		}
	case model.EntryBreak:
		if strings.TrimSpace(req.Title) == "" {
			return nil, fmt.Errorf("%w: break title is required", ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: cannot schedule %q entries", ErrValidation, req.Type)
	}

	start, err := FindNextStartDT(ctx, s, req.Duration, c, day, req.Force)
	if err != nil {
		return nil, err
	}
	if start == nil {
		return nil, ErrNoRoom
	}

	entry := &model.TimetableEntry{
		Type:    req.Type,
		StartDT: *start,
		EndDT:   start.Add(req.Duration),
	}
	if c.Kind == ContainerSessionBlock {
		parent := c.Block.TimetableEntry
		pid := parent.ID
		entry.EventID = parent.EventID
		entry.ParentID = &pid
		entry.Parent = parent
	} else {
		entry.EventID = c.Event.ID
	}
	// a forced start can still overflow a session block
	if err := entry.ValidateBounds(); err != nil {
		return nil, err
	}

	if req.Type == model.EntryBreak {
		b := &model.Break{Title: strings.TrimSpace(req.Title), Location: model.LocationData{InheritLocation: true}}
		if err := s.CreateBreakEntry(ctx, b, entry); err != nil {
			return nil, fmt.Errorf("create break: %w", err)
		}
		entry.Break = b
		b.TimetableEntry = entry
	} else {
		id := req.Contribution.ID
		entry.ContributionID = &id
		entry.Contribution = req.Contribution
		if err := s.CreateEntry(ctx, entry); err != nil {
			return nil, fmt.Errorf("create entry: %w", err)
		}
		entry.Contribution.TimetableEntry = entry
	}
	if entry.Parent != nil {
		entry.Parent.Children = append(entry.Parent.Children, entry)
	}
	return entry, nil
}
