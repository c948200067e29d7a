package timetable

import (
	"cmp"
	"context"
	"slices"
	"strconv"

	"github.com/iliyamo/conference-timetable/internal/access"
	"github.com/iliyamo/conference-timetable/internal/model"
)

// ShowAll disables the date or session filter of NestedOptions.
const ShowAll = "all"

// NestedOptions filters GetNestedTimetable.  ShowDate is ShowAll or a local
// YYYY-MM-DD date; ShowSession is ShowAll or a session friendly id.  Empty
// strings mean ShowAll and an empty DetailLevel means DetailAll.
type NestedOptions struct {
	IncludeNotes bool
	ShowDate     string
	ShowSession  string
	DetailLevel  DetailLevel
}

// DefaultNestedOptions shows everything, notes included.
func DefaultNestedOptions() NestedOptions {
	return NestedOptions{IncludeNotes: true, ShowDate: ShowAll, ShowSession: ShowAll, DetailLevel: DetailAll}
}

func (o NestedOptions) normalize() NestedOptions {
	if o.ShowDate == "" {
		o.ShowDate = ShowAll
	}
	if o.ShowSession == "" {
		o.ShowSession = ShowAll
	}
	if o.DetailLevel == "" {
		o.DetailLevel = DetailAll
	}
	return o
}

type titleKey struct {
	code  string
	title string
}

func entryTitleKey(e *model.TimetableEntry) (titleKey, error) {
	obj, err := e.Object()
	if err != nil {
		return titleKey{}, err
	}
	if b, ok := obj.(*model.SessionBlock); ok && e.Type == model.EntrySessionBlock {
		code := ""
		if b.Session != nil {
			code = b.Session.Code
		}
		return titleKey{code: code, title: b.FullTitle()}, nil
	}
	return titleKey{title: obj.GetTitle()}, nil
}

// GetNestedTimetable returns the top-level entries of the event, children
// loaded, that pass the filters and that the viewer may access.  Breaks
// are always kept.  Entries are ordered by start, then session code and
// title, then by end descending.
func GetNestedTimetable(ctx context.Context, s NestedStore, policy Accessor, v access.Viewer, ev *model.Event, opts NestedOptions) ([]*model.TimetableEntry, error) {
	opts = opts.normalize()
	all, err := s.ListTopLevelEntries(ctx, ev.ID, LoadOptions{IncludeNotes: opts.IncludeNotes})
	if err != nil {
		return nil, err
	}
	loc := ev.Loc()
	entries := make([]*model.TimetableEntry, 0, len(all))
	for _, e := range all {
		if opts.ShowDate != ShowAll && model.DateOf(e.StartDT, loc).String() != opts.ShowDate {
			continue
		}
		switch e.Type {
		case model.EntryContribution:
			if !opts.DetailLevel.IncludesContributions() || opts.ShowSession != ShowAll {
				continue
			}
		case model.EntrySessionBlock:
			if opts.ShowSession != ShowAll {
				b := e.SessionBlock
				if b == nil || b.Session == nil || strconv.FormatUint(b.Session.FriendlyID, 10) != opts.ShowSession {
					continue
				}
			}
		}
		if e.Type == model.EntryBreak {
			entries = append(entries, e)
			continue
		}
		obj, err := e.Object()
		if err != nil {
			return nil, err
		}
		if policy.CanAccess(v, obj) {
			entries = append(entries, e)
		}
	}

	keys := make(map[*model.TimetableEntry]titleKey, len(entries))
	for _, e := range entries {
		k, err := entryTitleKey(e)
		if err != nil {
			return nil, err
		}
		keys[e] = k
	}
	slices.SortStableFunc(entries, func(a, b *model.TimetableEntry) int {
		return b.EndDT.Compare(a.EndDT)
	})
	slices.SortStableFunc(entries, func(a, b *model.TimetableEntry) int {
		if c := a.StartDT.Compare(b.StartDT); c != 0 {
			return c
		}
		ka, kb := keys[a], keys[b]
		if c := cmp.Compare(ka.code, kb.code); c != 0 {
			return c
		}
		return cmp.Compare(ka.title, kb.title)
	})
	return entries, nil
}
