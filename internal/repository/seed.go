package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/conference-timetable/internal/model"
)

// SeedDemo creates a category tree with one two-day event starting on the
// local day of start in tz.  It returns the new event.
func (r *TimetableRepo) SeedDemo(ctx context.Context, start time.Time, tz *time.Location) (*model.Event, error) {
	root := &model.Category{Title: "Conferences"}
	if err := r.CreateCategory(ctx, root); err != nil {
		return nil, fmt.Errorf("seed: category: %w", err)
	}
	rootID := root.ID
	physics := &model.Category{ParentID: &rootID, Title: "Physics"}
	if err := r.CreateCategory(ctx, physics); err != nil {
		return nil, fmt.Errorf("seed: category: %w", err)
	}

	y, m, d := start.In(tz).Date()
	dayAt := func(day, h, min int) time.Time {
		return time.Date(y, m, d+day, h, min, 0, 0, tz)
	}
	ev := &model.Event{
		CategoryID: physics.ID,
		Title:      "Demo Summit",
		Timezone:   tz.String(),
		StartDT:    dayAt(0, 9, 0),
		EndDT:      dayAt(1, 18, 0),
		Location:   model.LocationData{VenueName: "Main Building", Address: "1 Campus Road"},
		Protection: model.Protection{Mode: model.ProtectionPublic},
	}
	if err := r.CreateEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("seed: event: %w", err)
	}

	plenary := &model.Session{EventID: ev.ID, Code: "PL", Title: "Plenary", Location: model.LocationData{RoomName: "Aula"}}
	if err := r.CreateSession(ctx, plenary); err != nil {
		return nil, fmt.Errorf("seed: session: %w", err)
	}
	posters := &model.Session{EventID: ev.ID, Code: "PO", Title: "Posters", Location: model.LocationData{InheritLocation: true}}
	if err := r.CreateSession(ctx, posters); err != nil {
		return nil, fmt.Errorf("seed: session: %w", err)
	}

	type blockSpec struct {
		session    *model.Session
		title      string
		day, h, mn int
		hours      int
		talks      []string
	}
	specs := []blockSpec{
		{plenary, "Opening", 0, 9, 0, 2, []string{"Welcome", "Keynote: Dark Matter"}},
		{posters, "", 0, 14, 0, 2, []string{"Poster Flash Talks"}},
		{plenary, "Closing", 1, 9, 0, 2, []string{"Results", "Outlook"}},
	}
	for _, s := range specs {
		block := &model.SessionBlock{SessionID: s.session.ID, Title: s.title, Location: model.LocationData{InheritLocation: true}}
		entry := &model.TimetableEntry{EventID: ev.ID, StartDT: dayAt(s.day, s.h, s.mn), EndDT: dayAt(s.day, s.h+s.hours, s.mn)}
		if err := r.CreateSessionBlock(ctx, block, entry); err != nil {
			return nil, fmt.Errorf("seed: block: %w", err)
		}
		if err := r.AddPersonLink(ctx, ObjectSessionBlock, block.ID, model.PersonLink{Name: "Ada Chair", Affiliation: "CERN"}); err != nil {
			return nil, fmt.Errorf("seed: convener: %w", err)
		}
		next := entry.StartDT
		for _, title := range s.talks {
			sid := s.session.ID
			c := &model.Contribution{EventID: ev.ID, SessionID: &sid, Title: title, Duration: 30 * time.Minute,
				Location: model.LocationData{InheritLocation: true}}
			if err := r.CreateContribution(ctx, c); err != nil {
				return nil, fmt.Errorf("seed: contribution: %w", err)
			}
			if err := r.AddPersonLink(ctx, ObjectContribution, c.ID, model.PersonLink{Name: "Speaker " + title, IsSpeaker: true}); err != nil {
				return nil, fmt.Errorf("seed: speaker: %w", err)
			}
			pid := entry.ID
			ce := &model.TimetableEntry{EventID: ev.ID, ParentID: &pid, Type: model.EntryContribution,
				StartDT: next, EndDT: next.Add(c.Duration), Contribution: c}
			if err := r.CreateEntry(ctx, ce); err != nil {
				return nil, fmt.Errorf("seed: contribution entry: %w", err)
			}
			next = ce.EndDT
		}
	}

	for _, day := range []int{0, 1} {
		b := &model.Break{Title: "Coffee", Location: model.LocationData{VenueName: "Foyer"}}
		e := &model.TimetableEntry{EventID: ev.ID, StartDT: dayAt(day, 11, 0), EndDT: dayAt(day, 11, 30)}
		if err := r.CreateBreakEntry(ctx, b, e); err != nil {
			return nil, fmt.Errorf("seed: break: %w", err)
		}
	}

	unscheduled := &model.Contribution{EventID: ev.ID, Title: "Lightning Talk", Duration: 15 * time.Minute,
		Location: model.LocationData{InheritLocation: true}}
	if err := r.CreateContribution(ctx, unscheduled); err != nil {
		return nil, fmt.Errorf("seed: contribution: %w", err)
	}
	return ev, nil
}
