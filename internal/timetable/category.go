package timetable

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"time"

	"github.com/iliyamo/conference-timetable/internal/model"
)

// CategoryQuery selects what GetCategoryTimetable returns.
type CategoryQuery struct {
	CategoryIDs []uint64
	Start       time.Time
	End         time.Time
	DetailLevel DetailLevel
	// Location is the display timezone used to bucket by day; nil is UTC.
	Location *time.Location
	// FromCategory, when set, drops events not visible in that category.
	FromCategory *uint64
	Grouped      bool
	// Includible filters events further; nil keeps everything.
	Includible func(*model.Event) bool
}

// EventAt is an event listed on a day together with the first timetable
// start of that day, or the event start when it has no timetable.
type EventAt struct {
	Start time.Time
	Event *model.Event
}

// BlockAt pairs a session block with its entry.
type BlockAt struct {
	Entry *model.TimetableEntry
	Block *model.SessionBlock
}

// ContributionAt pairs a contribution with its entry.
type ContributionAt struct {
	Entry        *model.TimetableEntry
	Contribution *model.Contribution
}

// BreakAt pairs a break with its entry.
type BreakAt struct {
	Entry *model.TimetableEntry
	Break *model.Break
}

// EventDetails holds the blocks, contributions and breaks of one event.
// The dated maps are filled in grouped mode, the lists otherwise.
type EventDetails struct {
	Blocks        map[model.Date][]BlockAt
	Contributions map[model.Date][]ContributionAt
	Breaks        map[model.Date][]BreakAt

	BlockList        []*model.SessionBlock
	ContributionList []*model.Contribution
	BreakList        []*model.Break
}

// CategoryTimetable is the result of GetCategoryTimetable.  In grouped
// mode Events and OngoingEvents are set; in flat mode EventList is set and
// OngoingEvents is empty.
type CategoryTimetable struct {
	Grouped       bool
	Events        map[model.Date][]EventAt
	EventList     []*model.Event
	OngoingEvents []*model.Event
	Details       map[uint64]*EventDetails
}

func (t *CategoryTimetable) details(eventID uint64) *EventDetails {
	d, ok := t.Details[eventID]
	if !ok {
		d = &EventDetails{}
		if t.Grouped {
			d.Blocks = map[model.Date][]BlockAt{}
			d.Contributions = map[model.Date][]ContributionAt{}
			d.Breaks = map[model.Date][]BreakAt{}
		}
		t.Details[eventID] = d
	}
	return d
}

// GetCategoryTimetable collects the events of the categories that have
// timetable entries starting in [q.Start, q.End] or whose own span overlaps
// it, and depending on the detail level their blocks, contributions and
// breaks starting in the window.
func GetCategoryTimetable(ctx context.Context, s CategoryStore, q CategoryQuery) (*CategoryTimetable, error) {
	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}
	start, end := q.Start.UTC(), q.End.UTC()

	rows, err := s.QueryCategoryEventStarts(ctx, q.CategoryIDs, start, end)
	if err != nil {
		return nil, err
	}
	// starts per event and local day; nil value means no timetable in view
	starts := map[uint64]map[model.Date][]time.Time{}
	var ids []uint64
	for _, r := range rows {
		byDay, seen := starts[r.EventID]
		if !seen {
			ids = append(ids, r.EventID)
		}
		if r.StartDT == nil {
			if !seen {
				starts[r.EventID] = nil
			}
			continue
		}
		if byDay == nil {
			byDay = map[model.Date][]time.Time{}
			starts[r.EventID] = byDay
		}
		d := model.DateOf(*r.StartDT, loc)
		byDay[d] = append(byDay[d], *r.StartDT)
	}

	var events []*model.Event
	if len(ids) > 0 {
		events, err = s.ListEventsByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
	}
	slices.SortFunc(events, func(a, b *model.Event) int { return cmp.Compare(a.ID, b.ID) })

	result := &CategoryTimetable{Grouped: q.Grouped, Details: map[uint64]*EventDetails{}}
	if q.Grouped {
		result.Events = map[model.Date][]EventAt{}
	} else {
		result.EventList = []*model.Event{}
	}
	result.OngoingEvents = []*model.Event{}

	viewFirst, viewLast := model.DateOf(q.Start, loc), model.DateOf(q.End, loc)
	var kept []uint64
	for _, ev := range events {
		if q.Includible != nil && !q.Includible(ev) {
			continue
		}
		if q.FromCategory != nil && !ev.IsVisibleIn(*q.FromCategory) {
			continue
		}
		kept = append(kept, ev.ID)
		if !q.Grouped {
			result.EventList = append(result.EventList, ev)
			continue
		}
		byDay := starts[ev.ID]
		if byDay == nil {
			// one ongoing record per in-view day the event runs without starting
			first, last := model.DateOf(ev.StartDT, loc), model.DateOf(ev.EndDT, loc)
			for _, day := range model.DaysBetween(maxDate(viewFirst, first), minDate(viewLast, last)) {
				if day == first {
					result.Events[day] = append(result.Events[day], EventAt{Start: ev.StartDT, Event: ev})
				} else {
					result.OngoingEvents = append(result.OngoingEvents, ev)
				}
			}
			continue
		}
		for day, ts := range byDay {
			result.Events[day] = append(result.Events[day], EventAt{Start: ts[0], Event: ev})
		}
	}
	for day := range result.Events {
		slices.SortStableFunc(result.Events[day], func(a, b EventAt) int {
			if c := a.Start.Compare(b.Start); c != 0 {
				return c
			}
			return cmp.Compare(a.Event.ID, b.Event.ID)
		})
	}

	if len(kept) == 0 || !q.DetailLevel.IncludesSessions() {
		return result, nil
	}
	blocks, err := s.ListBlocksStartingBetween(ctx, kept, start, end, q.DetailLevel.IncludesContributions())
	if err != nil {
		return nil, err
	}
	for _, b := range blocks {
		if b.Session == nil || b.TimetableEntry == nil {
			continue
		}
		d := result.details(b.Session.EventID)
		if q.Grouped {
			day := model.DateOf(b.TimetableEntry.StartDT, loc)
			d.Blocks[day] = append(d.Blocks[day], BlockAt{Entry: b.TimetableEntry, Block: b})
		} else {
			d.BlockList = append(d.BlockList, b)
		}
	}

	if !q.DetailLevel.IncludesContributions() {
		return result, nil
	}
	contribs, err := s.ListContributionsStartingBetween(ctx, kept, start, end)
	if err != nil {
		return nil, err
	}
	for _, c := range contribs {
		if c.TimetableEntry == nil {
			continue
		}
		d := result.details(c.EventID)
		if q.Grouped {
			day := model.DateOf(c.TimetableEntry.StartDT, loc)
			d.Contributions[day] = append(d.Contributions[day], ContributionAt{Entry: c.TimetableEntry, Contribution: c})
		} else {
			d.ContributionList = append(d.ContributionList, c)
		}
	}
	breaks, err := s.ListBreaksStartingBetween(ctx, kept, start, end)
	if err != nil {
		return nil, err
	}
	for _, b := range breaks {
		if b.TimetableEntry == nil {
			continue
		}
		d := result.details(b.TimetableEntry.EventID)
		if q.Grouped {
			day := model.DateOf(b.TimetableEntry.StartDT, loc)
			d.Breaks[day] = append(d.Breaks[day], BreakAt{Entry: b.TimetableEntry, Break: b})
		} else {
			d.BreakList = append(d.BreakList, b)
		}
	}
	return result, nil
}

func maxDate(a, b model.Date) model.Date {
	if a.Before(b) {
		return b
	}
	return a
}

func minDate(a, b model.Date) model.Date {
	if a.Before(b) {
		return a
	}
	return b
}

// MarshalJSON encodes the timetable with "events" and "ongoing_events" keys
// plus one key per event id holding its details.  Grouped details use
// "blocks", "contribs" and "breaks", each a date -> [[entry, object]]
// mapping; flat details use "blocks", "contributions" and "breaks" lists.
func (t *CategoryTimetable) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	ongoing := make([]EventView, 0, len(t.OngoingEvents))
	for _, ev := range t.OngoingEvents {
		ongoing = append(ongoing, NewEventView(ev))
	}
	out["ongoing_events"] = ongoing

	if t.Grouped {
		events := map[model.Date][][2]any{}
		for day, list := range t.Events {
			for _, ea := range list {
				events[day] = append(events[day], [2]any{ea.Start, NewEventView(ea.Event)})
			}
		}
		out["events"] = events
	} else {
		events := make([]EventView, 0, len(t.EventList))
		for _, ev := range t.EventList {
			events = append(events, NewEventView(ev))
		}
		out["events"] = events
	}

	for id, d := range t.Details {
		m := map[string]any{}
		if t.Grouped {
			if len(d.Blocks) > 0 {
				blocks := map[model.Date][][2]any{}
				for day, list := range d.Blocks {
					for _, b := range list {
						blocks[day] = append(blocks[day], [2]any{NewEntryView(b.Entry), NewBlockView(b.Block)})
					}
				}
				m["blocks"] = blocks
			}
			if len(d.Contributions) > 0 {
				contribs := map[model.Date][][2]any{}
				for day, list := range d.Contributions {
					for _, c := range list {
						contribs[day] = append(contribs[day], [2]any{NewEntryView(c.Entry), NewContributionView(c.Contribution)})
					}
				}
				m["contribs"] = contribs
			}
			if len(d.Breaks) > 0 {
				breaks := map[model.Date][][2]any{}
				for day, list := range d.Breaks {
					for _, b := range list {
						breaks[day] = append(breaks[day], [2]any{NewEntryView(b.Entry), NewBreakView(b.Break)})
					}
				}
				m["breaks"] = breaks
			}
		} else {
			if len(d.BlockList) > 0 {
				blocks := make([]BlockView, 0, len(d.BlockList))
				for _, b := range d.BlockList {
					blocks = append(blocks, NewBlockView(b))
				}
				m["blocks"] = blocks
			}
			if len(d.ContributionList) > 0 {
				contribs := make([]ContributionView, 0, len(d.ContributionList))
				for _, c := range d.ContributionList {
					contribs = append(contribs, NewContributionView(c))
				}
				m["contributions"] = contribs
			}
			if len(d.BreakList) > 0 {
				breaks := make([]BreakView, 0, len(d.BreakList))
				for _, b := range d.BreakList {
					breaks = append(breaks, NewBreakView(b))
				}
				m["breaks"] = breaks
			}
		}
		out[strconv.FormatUint(id, 10)] = m
	}
	return json.Marshal(out)
}
