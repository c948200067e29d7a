package timetable

import (
	"cmp"
	"context"
	"slices"

	"github.com/iliyamo/conference-timetable/internal/model"
)

// Scope memoizes the top-level and nested entry lookups of events for a
// single request.  It must not outlive the request; write paths call
// Invalidate after changing entries.  A Scope is not safe for concurrent
// use.
type Scope struct {
	store  NestedStore
	top    map[uint64][]*model.TimetableEntry
	nested map[uint64]map[uint64][]*model.TimetableEntry
}

// NewScope returns an empty scope reading from s.
func NewScope(s NestedStore) *Scope {
	return &Scope{
		store:  s,
		top:    map[uint64][]*model.TimetableEntry{},
		nested: map[uint64]map[uint64][]*model.TimetableEntry{},
	}
}

// TopLevelEntries returns the entries of the event without parent.
func (sc *Scope) TopLevelEntries(ctx context.Context, eventID uint64) ([]*model.TimetableEntry, error) {
	if entries, ok := sc.top[eventID]; ok {
		return entries, nil
	}
	entries, err := sc.store.ListTopLevelEntries(ctx, eventID, LoadOptions{})
	if err != nil {
		return nil, err
	}
	sc.top[eventID] = entries
	return entries, nil
}

// NestedEntries returns the entries of the event that have a parent,
// grouped by parent id.
func (sc *Scope) NestedEntries(ctx context.Context, eventID uint64) (map[uint64][]*model.TimetableEntry, error) {
	if byParent, ok := sc.nested[eventID]; ok {
		return byParent, nil
	}
	entries, err := sc.store.ListNestedEntries(ctx, eventID)
	if err != nil {
		return nil, err
	}
	byParent := map[uint64][]*model.TimetableEntry{}
	for _, e := range entries {
		if e.ParentID == nil {
			continue
		}
		byParent[*e.ParentID] = append(byParent[*e.ParentID], e)
	}
	sc.nested[eventID] = byParent
	return byParent, nil
}

// Invalidate drops everything memoized so far.
func (sc *Scope) Invalidate() {
	clear(sc.top)
	clear(sc.nested)
}

type scopeKey struct{}

// WithScope returns a copy of ctx carrying sc.
func WithScope(ctx context.Context, sc *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, sc)
}

// ScopeFrom returns the scope stored in ctx, or nil.
func ScopeFrom(ctx context.Context) *Scope {
	sc, _ := ctx.Value(scopeKey{}).(*Scope)
	return sc
}

// DayView is one local day of a serialized event timetable.
type DayView struct {
	Date    model.Date  `json:"date"`
	Entries []EntryView `json:"entries"`
}

// Serialize returns the event timetable as days of top-level entries, each
// with its nested children, ordered by start time.  Lookups go through the
// scope.
func (sc *Scope) Serialize(ctx context.Context, ev *model.Event) ([]DayView, error) {
	top, err := sc.TopLevelEntries(ctx, ev.ID)
	if err != nil {
		return nil, err
	}
	byParent, err := sc.NestedEntries(ctx, ev.ID)
	if err != nil {
		return nil, err
	}
	byStart := func(a, b *model.TimetableEntry) int {
		if c := a.StartDT.Compare(b.StartDT); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	}
	entries := slices.Clone(top)
	slices.SortFunc(entries, byStart)

	loc := ev.Loc()
	days := []DayView{}
	for _, e := range entries {
		children := slices.Clone(byParent[e.ID])
		slices.SortFunc(children, byStart)
		v := newEntryView(e, nil)
		for _, c := range children {
			v.Children = append(v.Children, newEntryView(c, nil))
		}
		d := model.DateOf(e.StartDT, loc)
		if n := len(days); n > 0 && days[n-1].Date == d {
			days[n-1].Entries = append(days[n-1].Entries, v)
			continue
		}
		days = append(days, DayView{Date: d, Entries: []EntryView{v}})
	}
	return days, nil
}
