package timetable

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/conference-timetable/internal/model"
)

func TestShiftFollowingEntries(t *testing.T) {
	s := newMemStore()
	ev := newDayEvent(s)
	before := s.addContribution(ev, "Early", at(0, 9, 0), at(0, 9, 30), nil)
	trigger := s.addContribution(ev, "Trigger", at(0, 10, 0), at(0, 10, 30), nil)
	after := s.addContribution(ev, "Later", at(0, 11, 0), at(0, 11, 15), nil)

	moved, err := ShiftFollowingEntries(context.Background(), s, trigger, 30*time.Minute, nil)
	if err != nil {
		t.Fatalf("ShiftFollowingEntries: %v", err)
	}
	if len(moved) != 1 || moved[0] != after {
		t.Fatalf("moved = %v, want only the later sibling", moved)
	}
	if !after.StartDT.Equal(at(0, 11, 30)) || !after.EndDT.Equal(at(0, 11, 45)) {
		t.Fatalf("later sibling = %v-%v, want 11:30-11:45", after.StartDT, after.EndDT)
	}
	if !before.StartDT.Equal(at(0, 9, 0)) || !before.EndDT.Equal(at(0, 9, 30)) {
		t.Fatalf("earlier sibling moved to %v-%v", before.StartDT, before.EndDT)
	}
	if !trigger.StartDT.Equal(at(0, 10, 0)) {
		t.Fatalf("trigger moved to %v", trigger.StartDT)
	}
	if len(s.updates) != 1 || len(s.updates[0]) != 1 {
		t.Fatalf("updates = %v, want one save of one entry", s.updates)
	}
}

func TestShiftFollowingEntriesNegativeMovesChildren(t *testing.T) {
	s := newMemStore()
	ev := newDayEvent(s)
	sess := &model.Session{ID: 5, EventID: ev.ID, Event: ev}
	trigger := s.addBreak(ev, "Coffee", at(0, 10, 0), at(0, 10, 30), nil)
	block := s.addBlock(sess, "", at(0, 12, 0), at(0, 13, 0))
	child := s.addContribution(ev, "Inside", at(0, 12, 10), at(0, 12, 20), block)

	if _, err := ShiftFollowingEntries(context.Background(), s, trigger, -15*time.Minute, nil); err != nil {
		t.Fatalf("ShiftFollowingEntries: %v", err)
	}
	if !block.StartDT.Equal(at(0, 11, 45)) || block.Duration() != time.Hour {
		t.Fatalf("block = %v (%v), want 11:45 for 1h", block.StartDT, block.Duration())
	}
	if !child.StartDT.Equal(at(0, 11, 55)) || !child.EndDT.Equal(at(0, 12, 5)) {
		t.Fatalf("child = %v-%v, want 11:55-12:05", child.StartDT, child.EndDT)
	}
}

func TestShiftFollowingEntriesSessionFilter(t *testing.T) {
	s := newMemStore()
	ev := newDayEvent(s)
	a := &model.Session{ID: 5, EventID: ev.ID, Event: ev}
	b := &model.Session{ID: 6, EventID: ev.ID, Event: ev}
	trigger := s.addBlock(a, "first", at(0, 9, 0), at(0, 10, 0))
	sameSession := s.addBlock(a, "second", at(0, 11, 0), at(0, 12, 0))
	otherSession := s.addBlock(b, "", at(0, 11, 0), at(0, 12, 0))
	brk := s.addBreak(ev, "Lunch", at(0, 12, 0), at(0, 13, 0), nil)

	moved, err := ShiftFollowingEntries(context.Background(), s, trigger, time.Hour, a)
	if err != nil {
		t.Fatalf("ShiftFollowingEntries: %v", err)
	}
	if len(moved) != 1 || moved[0] != sameSession {
		t.Fatalf("moved %d entries, want only the block of the same session", len(moved))
	}
	if !otherSession.StartDT.Equal(at(0, 11, 0)) || !brk.StartDT.Equal(at(0, 12, 0)) {
		t.Fatal("entries outside the session were moved")
	}
}

func TestShiftFollowingEntriesSessionIgnoredForChildren(t *testing.T) {
	s := newMemStore()
	ev := newDayEvent(s)
	sess := &model.Session{ID: 5, EventID: ev.ID, Event: ev}
	block := s.addBlock(sess, "", at(0, 9, 0), at(0, 12, 0))
	trigger := s.addContribution(ev, "A", at(0, 9, 0), at(0, 9, 30), block)
	next := s.addBreak(ev, "Pause", at(0, 9, 30), at(0, 9, 40), block)
	outside := s.addContribution(ev, "Top", at(0, 13, 0), at(0, 13, 30), nil)

	moved, err := ShiftFollowingEntries(context.Background(), s, trigger, 10*time.Minute, sess)
	if err != nil {
		t.Fatalf("ShiftFollowingEntries: %v", err)
	}
	if len(moved) != 1 || moved[0] != next {
		t.Fatalf("moved = %d entries, want the sibling break only", len(moved))
	}
	if !outside.StartDT.Equal(at(0, 13, 0)) {
		t.Fatal("top-level entry moved by a child shift")
	}
}

func TestShiftFollowingEntriesNone(t *testing.T) {
	s := newMemStore()
	ev := newDayEvent(s)
	trigger := s.addContribution(ev, "Last", at(0, 16, 0), at(0, 17, 0), nil)

	moved, err := ShiftFollowingEntries(context.Background(), s, trigger, time.Hour, nil)
	if err != nil {
		t.Fatalf("ShiftFollowingEntries: %v", err)
	}
	if moved == nil || len(moved) != 0 {
		t.Fatalf("moved = %#v, want empty slice", moved)
	}
	if len(s.updates) != 0 {
		t.Fatalf("updates = %d, want none", len(s.updates))
	}
}

func TestRescheduleEntryShiftLater(t *testing.T) {
	s := newMemStore()
	ev := newDayEvent(s)
	sess := &model.Session{ID: 5, EventID: ev.ID, Event: ev}
	block := s.addBlock(sess, "", at(0, 10, 0), at(0, 12, 0))
	first := s.addContribution(ev, "A", at(0, 10, 0), at(0, 10, 30), block)
	second := s.addContribution(ev, "B", at(0, 10, 30), at(0, 11, 0), block)

	moved, err := RescheduleEntry(context.Background(), s, first, at(0, 10, 30), true)
	if err != nil {
		t.Fatalf("RescheduleEntry: %v", err)
	}
	if len(moved) != 2 || moved[0] != first || moved[1] != second {
		t.Fatalf("moved = %d entries, want entry then sibling", len(moved))
	}
	if !first.EndDT.Equal(at(0, 11, 0)) {
		t.Fatalf("first end = %v, want 11:00", first.EndDT)
	}
	if !second.StartDT.Equal(at(0, 11, 0)) || !second.EndDT.Equal(at(0, 11, 30)) {
		t.Fatalf("second = %v-%v, want 11:00-11:30", second.StartDT, second.EndDT)
	}
	if len(s.updates) != 1 || len(s.updates[0]) != 2 {
		t.Fatalf("updates = %v, want one save of both entries", s.updates)
	}
}

func TestRescheduleEntryOutsideParent(t *testing.T) {
	s := newMemStore()
	ev := newDayEvent(s)
	sess := &model.Session{ID: 5, EventID: ev.ID, Event: ev}
	block := s.addBlock(sess, "", at(0, 10, 0), at(0, 12, 0))
	child := s.addContribution(ev, "A", at(0, 10, 0), at(0, 10, 30), block)

	_, err := RescheduleEntry(context.Background(), s, child, at(0, 11, 45), false)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if len(s.updates) != 0 {
		t.Fatalf("updates = %d, want none after validation failure", len(s.updates))
	}
}

func TestRescheduleEntryWithoutShiftKeepsSiblings(t *testing.T) {
	s := newMemStore()
	ev := newDayEvent(s)
	e := s.addContribution(ev, "A", at(0, 10, 0), at(0, 10, 30), nil)
	other := s.addContribution(ev, "B", at(0, 11, 0), at(0, 11, 30), nil)

	moved, err := RescheduleEntry(context.Background(), s, e, at(0, 9, 0), false)
	if err != nil {
		t.Fatalf("RescheduleEntry: %v", err)
	}
	if len(moved) != 1 || !e.StartDT.Equal(at(0, 9, 0)) || e.Duration() != 30*time.Minute {
		t.Fatalf("entry = %v (%v), want 09:00 for 30m", e.StartDT, e.Duration())
	}
	if !other.StartDT.Equal(at(0, 11, 0)) {
		t.Fatal("sibling moved without shiftLater")
	}
}

func TestRescheduleEntryShiftLaterOverflowsParent(t *testing.T) {
	s := newMemStore()
	ev := newDayEvent(s)
	sess := &model.Session{ID: 5, EventID: ev.ID, Event: ev}
	block := s.addBlock(sess, "", at(0, 10, 0), at(0, 12, 0))
	first := s.addContribution(ev, "A", at(0, 10, 0), at(0, 10, 30), block)
	last := s.addContribution(ev, "B", at(0, 11, 30), at(0, 12, 0), block)
	last.Parent = nil

	_, err := RescheduleEntry(context.Background(), s, first, at(0, 11, 0), true)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if len(s.updates) != 0 {
		t.Fatalf("updates = %d, want none when a sibling leaves the block", len(s.updates))
	}
}
