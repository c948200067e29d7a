package timetable

import (
	"cmp"
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/conference-timetable/internal/access"
	"github.com/iliyamo/conference-timetable/internal/model"
)

type nestedFixture struct {
	store   *memStore
	event   *model.Event
	blockA  *model.TimetableEntry // session code "A", friendly id 1
	blockB  *model.TimetableEntry // session code "B", friendly id 2
	contrib *model.TimetableEntry
	brk     *model.TimetableEntry
	secret  *model.TimetableEntry // block of a protected session
	dayTwo  *model.TimetableEntry
}

func newNestedFixture() nestedFixture {
	s := newMemStore()
	ev := s.addEvent(&model.Event{ID: 1, Timezone: "UTC", StartDT: at(0, 9, 0), EndDT: at(1, 18, 0),
		Protection: model.Protection{Managers: []uint64{99}}})
	a := &model.Session{ID: 10, EventID: 1, FriendlyID: 1, Code: "A", Title: "Alpha", Event: ev}
	b := &model.Session{ID: 11, EventID: 1, FriendlyID: 2, Code: "B", Title: "Beta", Event: ev}
	p := &model.Session{ID: 12, EventID: 1, FriendlyID: 3, Code: "C", Title: "Closed", Event: ev,
		Protection: model.Protection{Mode: model.ProtectionProtected}}

	f := nestedFixture{store: s, event: ev}
	f.blockB = s.addBlock(b, "", at(0, 9, 0), at(0, 10, 0))
	f.blockA = s.addBlock(a, "", at(0, 9, 0), at(0, 10, 0))
	f.brk = s.addBreak(ev, "Zeta", at(0, 9, 0), at(0, 9, 15), nil)
	f.contrib = s.addContribution(ev, "Zeta", at(0, 9, 0), at(0, 9, 30), nil)
	f.secret = s.addBlock(p, "", at(0, 11, 0), at(0, 12, 0))
	f.dayTwo = s.addContribution(ev, "Tomorrow", at(1, 9, 0), at(1, 10, 0), nil)
	s.addContribution(ev, "Inside A", at(0, 9, 0), at(0, 9, 20), f.blockA)
	return f
}

func entryIDs(entries []*model.TimetableEntry) []uint64 {
	ids := make([]uint64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestGetNestedTimetableOrder(t *testing.T) {
	f := newNestedFixture()
	got, err := GetNestedTimetable(context.Background(), f.store, access.NewPolicy(), access.Viewer{}, f.event, DefaultNestedOptions())
	if err != nil {
		t.Fatalf("GetNestedTimetable: %v", err)
	}
	// "" sorts before session codes; equal title keys fall back to longest first
	want := []*model.TimetableEntry{f.contrib, f.brk, f.blockA, f.blockB, f.dayTwo}
	if len(got) != len(want) {
		t.Fatalf("entries = %v, want %v", entryIDs(got), entryIDs(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entries = %v, want %v", entryIDs(got), entryIDs(want))
		}
	}
	if len(got[2].Children) != 1 {
		t.Fatalf("block A children = %d, want 1", len(got[2].Children))
	}
}

func TestGetNestedTimetableSortedProperty(t *testing.T) {
	f := newNestedFixture()
	got, err := GetNestedTimetable(context.Background(), f.store, access.NewPolicy(), access.Viewer{UserID: 99}, f.event, DefaultNestedOptions())
	if err != nil {
		t.Fatalf("GetNestedTimetable: %v", err)
	}
	for i := 1; i < len(got); i++ {
		a, b := got[i-1], got[i]
		if a.StartDT.After(b.StartDT) {
			t.Fatalf("entry %d starts after entry %d", a.ID, b.ID)
		}
		if a.StartDT.Equal(b.StartDT) {
			ka, _ := entryTitleKey(a)
			kb, _ := entryTitleKey(b)
			if c := cmp.Or(cmp.Compare(ka.code, kb.code), cmp.Compare(ka.title, kb.title)); c > 0 {
				t.Fatalf("title keys out of order: %v then %v", ka, kb)
			}
		}
	}
}

func TestGetNestedTimetableAccess(t *testing.T) {
	f := newNestedFixture()
	ctx := context.Background()
	policy := access.NewPolicy()

	guest, err := GetNestedTimetable(ctx, f.store, policy, access.Viewer{}, f.event, DefaultNestedOptions())
	if err != nil {
		t.Fatalf("guest: %v", err)
	}
	for _, e := range guest {
		if e == f.secret {
			t.Fatal("guest sees protected session block")
		}
	}
	manager, err := GetNestedTimetable(ctx, f.store, policy, access.Viewer{UserID: 99}, f.event, DefaultNestedOptions())
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	if len(manager) != len(guest)+1 {
		t.Fatalf("manager sees %d entries, guest %d", len(manager), len(guest))
	}
}

func TestGetNestedTimetableFilters(t *testing.T) {
	f := newNestedFixture()
	ctx := context.Background()
	policy := access.NewPolicy()
	viewer := access.Viewer{UserID: 99}

	tests := []struct {
		name string
		opts NestedOptions
		want []*model.TimetableEntry
	}{
		{"day two", NestedOptions{ShowDate: "2024-01-02"}, []*model.TimetableEntry{f.dayTwo}},
		{"one session", NestedOptions{ShowSession: "1"}, []*model.TimetableEntry{f.brk, f.blockA}},
		{"session detail", NestedOptions{ShowDate: "2024-01-01", DetailLevel: DetailSession},
			[]*model.TimetableEntry{f.brk, f.blockA, f.blockB, f.secret}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetNestedTimetable(ctx, f.store, policy, viewer, f.event, tt.opts)
			if err != nil {
				t.Fatalf("GetNestedTimetable: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("entries = %v, want %v", entryIDs(got), entryIDs(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("entries = %v, want %v", entryIDs(got), entryIDs(tt.want))
				}
			}
		})
	}
}

func TestGetNestedTimetableInvalidEntry(t *testing.T) {
	f := newNestedFixture()
	f.store.addEntry(&model.TimetableEntry{EventID: 1, Type: model.EntryContribution, StartDT: at(0, 13, 0), EndDT: at(0, 14, 0)}, nil)

	_, err := GetNestedTimetable(context.Background(), f.store, access.NewPolicy(), access.Viewer{}, f.event, DefaultNestedOptions())
	if !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("err = %v, want ErrInvalidEntry", err)
	}
}
