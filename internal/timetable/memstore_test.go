package timetable

import (
	"context"
	"slices"
	"time"

	"github.com/iliyamo/conference-timetable/internal/model"
)

// memStore is an in-memory Store used by the engine tests.
type memStore struct {
	events   []*model.Event
	entries  []*model.TimetableEntry
	blocks   []*model.SessionBlock
	contribs []*model.Contribution
	breaks   []*model.Break

	nextID  uint64
	updates [][]*model.TimetableEntry
	created []*model.TimetableEntry

	// createErr fails every entry insert when set
	createErr error

	topCalls    int
	nestedCalls int
}

var _ Store = (*memStore)(nil)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// at returns 2024-01-01 h:m UTC plus days.
func at(days, h, m int) time.Time {
	return day0.AddDate(0, 0, days).Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func newMemStore() *memStore { return &memStore{nextID: 1000} }

func (s *memStore) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) addEvent(ev *model.Event) *model.Event {
	s.events = append(s.events, ev)
	return ev
}

// addEntry registers e and links it under parent when given.
func (s *memStore) addEntry(e *model.TimetableEntry, parent *model.TimetableEntry) *model.TimetableEntry {
	if e.ID == 0 {
		e.ID = s.id()
	}
	if parent != nil {
		pid := parent.ID
		e.ParentID = &pid
		e.Parent = parent
		e.EventID = parent.EventID
		parent.Children = append(parent.Children, e)
	}
	s.entries = append(s.entries, e)
	return e
}

func (s *memStore) addContribution(ev *model.Event, title string, start, end time.Time, parent *model.TimetableEntry) *model.TimetableEntry {
	c := &model.Contribution{ID: s.id(), EventID: ev.ID, Title: title, Event: ev, Duration: end.Sub(start),
		Location: model.LocationData{InheritLocation: true}}
	e := &model.TimetableEntry{EventID: ev.ID, Type: model.EntryContribution, StartDT: start, EndDT: end, Contribution: c}
	id := c.ID
	e.ContributionID = &id
	c.TimetableEntry = e
	if parent != nil && parent.SessionBlock != nil {
		c.Session = parent.SessionBlock.Session
		sid := c.Session.ID
		c.SessionID = &sid
	}
	s.contribs = append(s.contribs, c)
	return s.addEntry(e, parent)
}

func (s *memStore) addBreak(ev *model.Event, title string, start, end time.Time, parent *model.TimetableEntry) *model.TimetableEntry {
	b := &model.Break{ID: s.id(), Title: title, Location: model.LocationData{InheritLocation: true}}
	e := &model.TimetableEntry{EventID: ev.ID, Type: model.EntryBreak, StartDT: start, EndDT: end, Break: b}
	id := b.ID
	e.BreakID = &id
	b.TimetableEntry = e
	s.breaks = append(s.breaks, b)
	return s.addEntry(e, parent)
}

func (s *memStore) addBlock(sess *model.Session, title string, start, end time.Time) *model.TimetableEntry {
	b := &model.SessionBlock{ID: s.id(), SessionID: sess.ID, Title: title, Session: sess,
		Location: model.LocationData{InheritLocation: true}}
	e := &model.TimetableEntry{EventID: sess.EventID, Type: model.EntrySessionBlock, StartDT: start, EndDT: end, SessionBlock: b}
	id := b.ID
	e.SessionBlockID = &id
	b.TimetableEntry = e
	s.blocks = append(s.blocks, b)
	return s.addEntry(e, nil)
}

func sameParent(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func inRange(t, from, to time.Time) bool { return !t.Before(from) && !t.After(to) }

func (s *memStore) ListTopLevelEntriesBetween(_ context.Context, eventID uint64, from, to time.Time) ([]*model.TimetableEntry, error) {
	var out []*model.TimetableEntry
	for _, e := range s.entries {
		if e.EventID == eventID && e.ParentID == nil && !e.StartDT.Before(from) && e.StartDT.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) ListChildEntries(_ context.Context, parentID uint64) ([]*model.TimetableEntry, error) {
	var out []*model.TimetableEntry
	for _, e := range s.entries {
		if e.ParentID != nil && *e.ParentID == parentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) ListFollowingSiblings(_ context.Context, entry *model.TimetableEntry, f SiblingFilter) ([]*model.TimetableEntry, error) {
	var out []*model.TimetableEntry
	for _, e := range s.entries {
		if e == entry || e.ID == entry.ID || e.EventID != entry.EventID || !sameParent(e.ParentID, entry.ParentID) {
			continue
		}
		if e.StartDT.Before(f.From) {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.SessionID != nil && (e.SessionBlock == nil || e.SessionBlock.SessionID != *f.SessionID) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *memStore) UpdateEntryTimes(_ context.Context, entries []*model.TimetableEntry) error {
	s.updates = append(s.updates, slices.Clone(entries))
	return nil
}

func (s *memStore) CreateBreakEntry(ctx context.Context, b *model.Break, e *model.TimetableEntry) error {
	if err := s.CreateEntry(ctx, e); err != nil {
		return err
	}
	b.ID = s.id()
	id := b.ID
	e.BreakID = &id
	s.breaks = append(s.breaks, b)
	return nil
}

func (s *memStore) CreateEntry(_ context.Context, e *model.TimetableEntry) error {
	if s.createErr != nil {
		return s.createErr
	}
	e.ID = s.id()
	s.entries = append(s.entries, e)
	s.created = append(s.created, e)
	return nil
}

func (s *memStore) QueryCategoryEventStarts(_ context.Context, categoryIDs []uint64, start, end time.Time) ([]EventStart, error) {
	var out []EventStart
	for _, ev := range s.events {
		if ev.IsDeleted || !ev.InCategories(categoryIDs) {
			continue
		}
		var starts []time.Time
		for _, e := range s.entries {
			if e.EventID == ev.ID && inRange(e.StartDT, start, end) && !slices.ContainsFunc(starts, e.StartDT.Equal) {
				starts = append(starts, e.StartDT)
			}
		}
		slices.SortFunc(starts, time.Time.Compare)
		for _, t := range starts {
			out = append(out, EventStart{EventID: ev.ID, StartDT: &t})
		}
		if len(starts) == 0 && ev.HappensBetween(start, end) {
			out = append(out, EventStart{EventID: ev.ID})
		}
	}
	return out, nil
}

func (s *memStore) ListEventsByIDs(_ context.Context, ids []uint64) ([]*model.Event, error) {
	var out []*model.Event
	for _, ev := range s.events {
		if slices.Contains(ids, ev.ID) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *memStore) ListBlocksStartingBetween(_ context.Context, eventIDs []uint64, start, end time.Time, _ bool) ([]*model.SessionBlock, error) {
	var out []*model.SessionBlock
	for _, b := range s.blocks {
		if b.Session.IsDeleted || !slices.Contains(eventIDs, b.Session.EventID) {
			continue
		}
		if inRange(b.TimetableEntry.StartDT, start, end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memStore) ListContributionsStartingBetween(_ context.Context, eventIDs []uint64, start, end time.Time) ([]*model.Contribution, error) {
	var out []*model.Contribution
	for _, c := range s.contribs {
		if c.IsDeleted || c.TimetableEntry == nil || !slices.Contains(eventIDs, c.EventID) {
			continue
		}
		if inRange(c.TimetableEntry.StartDT, start, end) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) ListBreaksStartingBetween(_ context.Context, eventIDs []uint64, start, end time.Time) ([]*model.Break, error) {
	var out []*model.Break
	for _, b := range s.breaks {
		e := b.TimetableEntry
		if e == nil || !slices.Contains(eventIDs, e.EventID) {
			continue
		}
		if inRange(e.StartDT, start, end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memStore) ListTopLevelEntries(_ context.Context, eventID uint64, _ LoadOptions) ([]*model.TimetableEntry, error) {
	s.topCalls++
	var out []*model.TimetableEntry
	for _, e := range s.entries {
		if e.EventID == eventID && e.ParentID == nil {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) ListNestedEntries(_ context.Context, eventID uint64) ([]*model.TimetableEntry, error) {
	s.nestedCalls++
	var out []*model.TimetableEntry
	for _, e := range s.entries {
		if e.EventID == eventID && e.ParentID != nil {
			out = append(out, e)
		}
	}
	return out, nil
}
