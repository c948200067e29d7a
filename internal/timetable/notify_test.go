package timetable

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/iliyamo/conference-timetable/internal/model"
)

func TestGetTimeChangesNotifications(t *testing.T) {
	s := newMemStore()
	ev := newDayEvent(s)
	sess := &model.Session{ID: 5, EventID: ev.ID, Event: ev}
	block := s.addBlock(sess, "", at(0, 10, 0), at(0, 11, 0))
	other := s.addBlock(sess, "", at(0, 12, 0), at(0, 13, 0))
	contrib := s.addContribution(ev, "A", at(0, 10, 0), at(0, 10, 30), block)

	changes := []Change{
		{Object: ev, Fields: map[string]FieldChange{FieldStartDT: {Old: at(0, 9, 0), New: at(0, 8, 30)}}},
		{Object: other.SessionBlock, Fields: map[string]FieldChange{
			FieldStartDT: {Old: at(0, 12, 0), New: at(0, 12, 15)},
			FieldEndDT:   {Old: at(0, 13, 0), New: at(0, 13, 15)},
		}},
		{Object: block.SessionBlock, Fields: map[string]FieldChange{FieldEndDT: {Old: at(0, 11, 0), New: at(0, 11, 45)}}},
		{Object: contrib.Contribution, Fields: map[string]FieldChange{FieldStartDT: {Old: at(0, 10, 0), New: at(0, 10, 5)}}},
	}
	got, err := GetTimeChangesNotifications(changes, time.UTC, nil)
	if err != nil {
		t.Fatalf("GetTimeChangesNotifications: %v", err)
	}
	want := []string{
		"Event start time changed to 08:30",
		"Session block start time changed to 12:15",
		"Session block end time changed to 11:45",
	}
	if !slices.Equal(got, want) {
		t.Fatalf("notifications = %q, want %q", got, want)
	}
}

func TestGetTimeChangesNotificationsTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	ev := &model.Event{ID: 1}
	got, err := GetTimeChangesNotifications([]Change{
		{Object: ev, Fields: map[string]FieldChange{FieldEndDT: {New: at(0, 9, 0)}}},
	}, loc, nil)
	if err != nil {
		t.Fatalf("GetTimeChangesNotifications: %v", err)
	}
	if len(got) != 1 || got[0] != "Event end time changed to 18:00" {
		t.Fatalf("notifications = %q", got)
	}
}

func TestGetTimeChangesNotificationsSkipsEntry(t *testing.T) {
	s := newMemStore()
	ev := newDayEvent(s)
	sess := &model.Session{ID: 5, EventID: ev.ID, Event: ev}
	block := s.addBlock(sess, "", at(0, 10, 0), at(0, 11, 0))
	child := &model.SessionBlock{ID: 900, Session: sess}
	childEntry := s.addEntry(&model.TimetableEntry{EventID: ev.ID, Type: model.EntrySessionBlock,
		StartDT: at(0, 10, 0), EndDT: at(0, 10, 30), SessionBlock: child}, block)
	child.TimetableEntry = childEntry

	changes := []Change{
		{Object: block.SessionBlock, Fields: map[string]FieldChange{FieldStartDT: {New: at(0, 10, 10)}}},
		{Object: child, Fields: map[string]FieldChange{FieldStartDT: {New: at(0, 10, 10)}}},
	}
	got, err := GetTimeChangesNotifications(changes, time.UTC, block)
	if err != nil {
		t.Fatalf("GetTimeChangesNotifications: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("notifications = %q, want none", got)
	}
}

func TestGetTimeChangesNotificationsInvalid(t *testing.T) {
	tests := []struct {
		name string
		obj  any
	}{
		{"event", &model.Event{ID: 1}},
		{"session block", &model.SessionBlock{ID: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes := []Change{{Object: tt.obj, Fields: map[string]FieldChange{"title": {}}}}
			if _, err := GetTimeChangesNotifications(changes, time.UTC, nil); !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}
