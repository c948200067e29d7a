package timetable

import (
	"context"
	"testing"

	"github.com/iliyamo/conference-timetable/internal/model"
)

func TestScopeMemoizes(t *testing.T) {
	s := newMemStore()
	ev := newDayEvent(s)
	sess := &model.Session{ID: 5, EventID: ev.ID, Event: ev}
	block := s.addBlock(sess, "", at(0, 10, 0), at(0, 11, 0))
	s.addContribution(ev, "A", at(0, 10, 0), at(0, 10, 30), block)
	ctx := context.Background()
	sc := NewScope(s)

	for i := 0; i < 3; i++ {
		if _, err := sc.TopLevelEntries(ctx, ev.ID); err != nil {
			t.Fatalf("TopLevelEntries: %v", err)
		}
		nested, err := sc.NestedEntries(ctx, ev.ID)
		if err != nil {
			t.Fatalf("NestedEntries: %v", err)
		}
		if len(nested[block.ID]) != 1 {
			t.Fatalf("nested[%d] = %d entries, want 1", block.ID, len(nested[block.ID]))
		}
	}
	if s.topCalls != 1 || s.nestedCalls != 1 {
		t.Fatalf("store calls top = %d nested = %d, want 1 each", s.topCalls, s.nestedCalls)
	}

	sc.Invalidate()
	if _, err := sc.TopLevelEntries(ctx, ev.ID); err != nil {
		t.Fatalf("TopLevelEntries: %v", err)
	}
	if s.topCalls != 2 {
		t.Fatalf("store calls after Invalidate = %d, want 2", s.topCalls)
	}
}

func TestScopeContext(t *testing.T) {
	if ScopeFrom(context.Background()) != nil {
		t.Fatal("empty context carries a scope")
	}
	sc := NewScope(newMemStore())
	if got := ScopeFrom(WithScope(context.Background(), sc)); got != sc {
		t.Fatalf("ScopeFrom = %p, want %p", got, sc)
	}
}

func TestScopeSerialize(t *testing.T) {
	s := newMemStore()
	ev := s.addEvent(&model.Event{ID: 1, Timezone: "UTC", StartDT: at(0, 9, 0), EndDT: at(1, 18, 0)})
	sess := &model.Session{ID: 5, EventID: ev.ID, Title: "Track", Event: ev}
	s.addBreak(ev, "Day two", at(1, 9, 0), at(1, 9, 30), nil)
	block := s.addBlock(sess, "Morning", at(0, 10, 0), at(0, 12, 0))
	s.addContribution(ev, "Second", at(0, 10, 30), at(0, 11, 0), block)
	s.addContribution(ev, "First", at(0, 10, 0), at(0, 10, 30), block)

	days, err := NewScope(s).Serialize(context.Background(), ev)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("days = %d, want 2", len(days))
	}
	first := days[0].Entries[0]
	if first.Title != "Track: Morning" || len(first.Children) != 2 {
		t.Fatalf("first entry = %q with %d children", first.Title, len(first.Children))
	}
	if first.Children[0].Title != "First" || first.Children[1].Title != "Second" {
		t.Fatalf("children order = %q, %q", first.Children[0].Title, first.Children[1].Title)
	}
	if days[1].Date.String() != "2024-01-02" || days[1].Entries[0].Break == nil {
		t.Fatalf("day two = %+v", days[1])
	}
}
