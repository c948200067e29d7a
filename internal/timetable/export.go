package timetable

import (
	"context"
	"encoding/json"

	"github.com/iliyamo/conference-timetable/internal/access"
	"github.com/iliyamo/conference-timetable/internal/model"
)

// ExportConfig holds the display toggles of the PDF timetable.  It is a
// value type; copy and change fields to customize.
type ExportConfig struct {
	ShowTitle                bool `json:"show_title"`
	ShowAffiliation          bool `json:"show_affiliation"`
	ShowCoverPage            bool `json:"show_cover_page"`
	ShowTOC                  bool `json:"show_toc"`
	ShowSessionTOC           bool `json:"show_session_toc"`
	ShowAbstract             bool `json:"show_abstract"`
	ShowPosterAbstract       bool `json:"show_poster_abstract"`
	ShowContribs             bool `json:"show_contribs"`
	ShowLengthContribs       bool `json:"show_length_contribs"`
	ShowBreaks               bool `json:"show_breaks"`
	NewPagePerSession        bool `json:"new_page_per_session"`
	ShowSessionDescription   bool `json:"show_session_description"`
	PrintDateCloseToSessions bool `json:"print_date_close_to_sessions"`
}

// DefaultExportConfig returns the default toggles: title, cover page and
// both tables of contents on, everything else off.
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		ShowTitle:      true,
		ShowCoverPage:  true,
		ShowTOC:        true,
		ShowSessionTOC: true,
	}
}

// ProgramConfig tells the renderer where locations must be printed.
// ShowChildrenLocation is keyed by top-level entry id.
type ProgramConfig struct {
	ShowSiblingsLocation bool            `json:"show_siblings_location"`
	ShowChildrenLocation map[uint64]bool `json:"show_children_location"`
}

// LocationConditions computes the location flags of a nested timetable.
// Sibling locations are shown when any entry has its own location, or is a
// block inheriting from a session with its own location.  Children
// locations of an entry are shown unless all its children inherit.
func LocationConditions(entries []*model.TimetableEntry) (bool, map[uint64]bool, error) {
	siblings := false
	children := make(map[uint64]bool, len(entries))
	for _, e := range entries {
		obj, err := e.Object()
		if err != nil {
			return false, nil, err
		}
		if !obj.InheritsLocation() {
			siblings = true
		} else if b, ok := obj.(*model.SessionBlock); ok && e.Type == model.EntrySessionBlock &&
			b.Session != nil && !b.Session.Location.InheritLocation {
			siblings = true
		}
		show := false
		for _, c := range e.Children {
			cobj, err := c.Object()
			if err != nil {
				return false, nil, err
			}
			if !cobj.InheritsLocation() {
				show = true
				break
			}
		}
		children[e.ID] = show
	}
	return siblings, children, nil
}

// ExportDay is the entries of one local day, in timetable order.
type ExportDay struct {
	Date    model.Date
	Entries []*model.TimetableEntry
}

// PDFTimetable is the structure handed to the PDF renderer.
type PDFTimetable struct {
	Event       *model.Event
	Days        []ExportDay
	Config      ExportConfig
	Program     ProgramConfig
	OnlySession *model.Session
}

// BuildPDFTimetable builds the full nested timetable of the event and
// groups consecutive entries by local day.  With onlySession only the
// blocks of that session are kept and sibling locations are always shown.
func BuildPDFTimetable(ctx context.Context, s NestedStore, policy Accessor, v access.Viewer, ev *model.Event, cfg ExportConfig, onlySession *model.Session) (*PDFTimetable, error) {
	entries, err := GetNestedTimetable(ctx, s, policy, v, ev, DefaultNestedOptions())
	if err != nil {
		return nil, err
	}
	if onlySession != nil {
		kept := entries[:0]
		for _, e := range entries {
			if e.Type == model.EntrySessionBlock && e.SessionBlock != nil && e.SessionBlock.SessionID == onlySession.ID {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	loc := ev.Loc()
	var days []ExportDay
	for _, e := range entries {
		d := model.DateOf(e.StartDT, loc)
		if n := len(days); n > 0 && days[n-1].Date == d {
			days[n-1].Entries = append(days[n-1].Entries, e)
			continue
		}
		days = append(days, ExportDay{Date: d, Entries: []*model.TimetableEntry{e}})
	}

	siblings, children, err := LocationConditions(entries)
	if err != nil {
		return nil, err
	}
	return &PDFTimetable{
		Event:  ev,
		Days:   days,
		Config: cfg,
		Program: ProgramConfig{
			ShowSiblingsLocation: siblings || onlySession != nil,
			ShowChildrenLocation: children,
		},
		OnlySession: onlySession,
	}, nil
}

// MarshalJSON encodes the timetable as renderers consume it.
func (t *PDFTimetable) MarshalJSON() ([]byte, error) {
	type day struct {
		Date    model.Date  `json:"date"`
		Entries []EntryView `json:"entries"`
	}
	days := make([]day, 0, len(t.Days))
	for _, d := range t.Days {
		days = append(days, day{Date: d.Date, Entries: NewEntryViews(d.Entries)})
	}
	var only *uint64
	if t.OnlySession != nil {
		id := t.OnlySession.ID
		only = &id
	}
	return json.Marshal(struct {
		Event       EventView     `json:"event"`
		Days        []day         `json:"days"`
		Config      ExportConfig  `json:"config"`
		Program     ProgramConfig `json:"program"`
		OnlySession *uint64       `json:"only_session_id,omitempty"`
	}{NewEventView(t.Event), days, t.Config, t.Program, only})
}
