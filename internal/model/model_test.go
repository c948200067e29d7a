package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateOfUsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	instant := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	if got := DateOf(instant, time.UTC); got.String() != "2024-01-01" {
		t.Fatalf("utc date = %s, want 2024-01-01", got)
	}
	if got := DateOf(instant, tokyo); got.String() != "2024-01-02" {
		t.Fatalf("tokyo date = %s, want 2024-01-02", got)
	}
}

func TestDaysBetween(t *testing.T) {
	first := Date{2024, time.February, 28}
	last := Date{2024, time.March, 1}
	days := DaysBetween(first, last)
	want := []string{"2024-02-28", "2024-02-29", "2024-03-01"}
	if len(days) != len(want) {
		t.Fatalf("days = %v, want %v", days, want)
	}
	for i, d := range days {
		if d.String() != want[i] {
			t.Fatalf("days[%d] = %s, want %s", i, d, want[i])
		}
	}
	if got := DaysBetween(last, first); got != nil {
		t.Fatalf("reversed range = %v, want nil", got)
	}
}

func TestDateAsJSONKey(t *testing.T) {
	m := map[Date]int{{2024, time.January, 5}: 1}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"2024-01-05":1}` {
		t.Fatalf("json = %s", b)
	}
	var back map[Date]int
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back[Date{2024, time.January, 5}] != 1 {
		t.Fatalf("round trip lost key: %v", back)
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	if _, err := ParseDate("2024-13-01"); err == nil {
		t.Fatal("expected error for month 13")
	}
}

func TestEntryMoveCarriesChildren(t *testing.T) {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	parentID := uint64(1)
	block := &TimetableEntry{ID: 1, Type: EntrySessionBlock, StartDT: base, EndDT: base.Add(2 * time.Hour)}
	child := &TimetableEntry{ID: 2, ParentID: &parentID, Parent: block, Type: EntryContribution,
		StartDT: base.Add(30 * time.Minute), EndDT: base.Add(time.Hour)}
	block.Children = []*TimetableEntry{child}

	block.Move(base.Add(time.Hour))

	if !block.StartDT.Equal(base.Add(time.Hour)) || block.Duration() != 2*time.Hour {
		t.Fatalf("block = %v-%v", block.StartDT, block.EndDT)
	}
	if !child.StartDT.Equal(base.Add(90*time.Minute)) || child.Duration() != 30*time.Minute {
		t.Fatalf("child = %v-%v", child.StartDT, child.EndDT)
	}
	if err := child.ValidateBounds(); err != nil {
		t.Fatalf("child bounds: %v", err)
	}
}

func TestEntryValidateBounds(t *testing.T) {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	block := &TimetableEntry{ID: 1, StartDT: base, EndDT: base.Add(time.Hour)}
	tests := []struct {
		name  string
		entry *TimetableEntry
		ok    bool
	}{
		{"inside", &TimetableEntry{Parent: block, StartDT: base, EndDT: base.Add(time.Hour)}, true},
		{"before parent", &TimetableEntry{Parent: block, StartDT: base.Add(-time.Minute), EndDT: base.Add(time.Minute)}, false},
		{"after parent", &TimetableEntry{Parent: block, StartDT: base.Add(50 * time.Minute), EndDT: base.Add(61 * time.Minute)}, false},
		{"reversed", &TimetableEntry{StartDT: base.Add(time.Minute), EndDT: base}, false},
		{"top level", &TimetableEntry{StartDT: base, EndDT: base.Add(10 * time.Hour)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.ValidateBounds()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestEntryObjectWithoutPayload(t *testing.T) {
	_, err := (&TimetableEntry{ID: 7}).Object()
	if !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("err = %v, want ErrInvalidEntry", err)
	}
}

func TestSessionBlockFullTitle(t *testing.T) {
	sess := &Session{Title: "Plenary"}
	if got := (&SessionBlock{Session: sess}).FullTitle(); got != "Plenary" {
		t.Fatalf("full title = %q", got)
	}
	if got := (&SessionBlock{Session: sess, Title: "Morning"}).FullTitle(); got != "Plenary: Morning" {
		t.Fatalf("full title = %q", got)
	}
}

func TestEventVisibility(t *testing.T) {
	one, two := 1, 2
	tests := []struct {
		name       string
		visibility *int
		category   uint64
		want       bool
	}{
		{"unlimited root", nil, 1, true},
		{"own category only", &one, 3, true},
		{"own category hides parent", &one, 2, false},
		{"two levels", &two, 2, true},
		{"two levels hides root", &two, 1, false},
		{"not in chain", nil, 9, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Event{CategoryChain: []uint64{1, 2, 3}, Visibility: tt.visibility}
			if got := e.IsVisibleIn(tt.category); got != tt.want {
				t.Fatalf("IsVisibleIn(%d) = %v, want %v", tt.category, got, tt.want)
			}
		})
	}
}

func TestEventLocIsResolvedOnce(t *testing.T) {
	if _, err := time.LoadLocation("Europe/Zurich"); err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	a := &Event{Timezone: "Europe/Zurich"}
	b := &Event{Timezone: "Europe/Zurich"}
	if a.Loc() != b.Loc() || a.Loc().String() != "Europe/Zurich" {
		t.Fatalf("Loc = %p %p, want one shared Europe/Zurich", a.Loc(), b.Loc())
	}
	a.Timezone = "Asia/Tokyo"
	if a.Loc().String() == "Europe/Zurich" {
		t.Fatal("Loc kept the old timezone after Timezone changed")
	}
	if got := (&Event{Timezone: "Mars/Olympus"}).Loc(); got != time.UTC {
		t.Fatalf("unknown timezone = %v, want UTC", got)
	}
	if got := (*Event)(nil).Loc(); got != time.UTC {
		t.Fatalf("nil event = %v, want UTC", got)
	}
}
