// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

import (
	"fmt"
	"strings"
	"time"
)

// TimetableChangedQueue is the durable queue carrying TimetableChangedEvent.
const TimetableChangedQueue = "timetable.changed"

// Actions carried by TimetableChangedEvent.
const (
	ActionScheduled   = "scheduled"
	ActionRescheduled = "rescheduled"
	ActionShifted     = "shifted"
	ActionDeleted     = "deleted"
)

// TimetableChangedEvent is published after a write to an event timetable.
// Notifications are the human readable time changes shown to managers.
type TimetableChangedEvent struct {
	EventID       uint64   `json:"event_id"`
	Action        string   `json:"action"`
	EntryIDs      []uint64 `json:"entry_ids"`
	Notifications []string `json:"notifications,omitempty"`
	ChangedBy     uint64   `json:"changed_by"`
	ChangedAt     string   `json:"changed_at"`
}

// NewTimetableChangedEvent stamps the event with the current UTC time.
func NewTimetableChangedEvent(eventID uint64, action string, entryIDs []uint64, notifications []string, by uint64) TimetableChangedEvent {
	if entryIDs == nil {
		entryIDs = []uint64{}
	}
	return TimetableChangedEvent{
		EventID:       eventID,
		Action:        action,
		EntryIDs:      entryIDs,
		Notifications: notifications,
		ChangedBy:     by,
		ChangedAt:     time.Now().UTC().Format(time.RFC3339),
	}
}

// LogLine formats the event as one line of timetable.log.
func (ev TimetableChangedEvent) LogLine() string {
	ids := make([]string, len(ev.EntryIDs))
	for i, id := range ev.EntryIDs {
		ids[i] = fmt.Sprint(id)
	}
	line := fmt.Sprintf("[%s] Timetable %s | event_id=%d | user_id=%d | entries=[%s]",
		ev.ChangedAt, ev.Action, ev.EventID, ev.ChangedBy, strings.Join(ids, ","))
	if len(ev.Notifications) > 0 {
		line += fmt.Sprintf(" | notes=%q", strings.Join(ev.Notifications, "; "))
	}
	return line + "\n"
}
