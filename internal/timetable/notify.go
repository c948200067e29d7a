package timetable

import (
	"fmt"
	"time"

	"github.com/iliyamo/conference-timetable/internal/model"
)

// Changed fields recognized by GetTimeChangesNotifications.
const (
	FieldStartDT = "start_dt"
	FieldEndDT   = "end_dt"
)

// FieldChange is the old and new value of a changed time field.
type FieldChange struct {
	Old time.Time
	New time.Time
}

// Change records the time fields changed on one object (an *model.Event,
// *model.SessionBlock, *model.Contribution or *model.Break).
type Change struct {
	Object any
	Fields map[string]FieldChange
}

func entryOf(obj any) *model.TimetableEntry {
	switch o := obj.(type) {
	case *model.SessionBlock:
		return o.TimetableEntry
	case *model.Contribution:
		return o.TimetableEntry
	case *model.Break:
		return o.TimetableEntry
	}
	return nil
}

// GetTimeChangesNotifications turns time changes on events and session
// blocks into messages such as "Event start time changed to 09:30", with
// times shown in loc.  When entry is set, changes of its own object and of
// its children are skipped.  Changes of other object kinds produce nothing.
func GetTimeChangesNotifications(changes []Change, loc *time.Location, entry *model.TimetableEntry) ([]string, error) {
	if loc == nil {
		loc = time.UTC
	}
	var self model.Schedulable
	if entry != nil {
		obj, err := entry.Object()
		if err != nil {
			return nil, err
		}
		self = obj
	}
	notifications := []string{}
	for _, ch := range changes {
		if entry != nil {
			if s, ok := ch.Object.(model.Schedulable); ok && s == self {
				continue
			}
			if e := entryOf(ch.Object); e != nil && entry.HasChild(e) {
				continue
			}
		}
		var kind string
		switch ch.Object.(type) {
		case *model.Event:
			kind = "Event"
		case *model.SessionBlock:
			kind = "Session block"
		default:
			continue
		}
		var msg string
		if fc, ok := ch.Fields[FieldStartDT]; ok {
			msg = fmt.Sprintf("%s start time changed to %s", kind, fc.New.In(loc).Format("15:04"))
		} else if fc, ok := ch.Fields[FieldEndDT]; ok {
			msg = fmt.Sprintf("%s end time changed to %s", kind, fc.New.In(loc).Format("15:04"))
		} else {
			return nil, fmt.Errorf("%w: invalid change in %s", ErrValidation, kind)
		}
		notifications = append(notifications, msg)
	}
	return notifications, nil
}
