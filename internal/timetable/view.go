package timetable

import (
	"time"

	"github.com/iliyamo/conference-timetable/internal/model"
)

// The model types link in both directions (entry <-> parent, block <->
// entry) so they are never encoded directly.  These views are the JSON
// shapes handed to renderers.

// EventView is the JSON form of an event.
type EventView struct {
	ID         uint64    `json:"id"`
	CategoryID uint64    `json:"category_id"`
	Title      string    `json:"title"`
	Timezone   string    `json:"timezone"`
	StartDT    time.Time `json:"start_dt"`
	EndDT      time.Time `json:"end_dt"`
}

// NewEventView converts e.
func NewEventView(e *model.Event) EventView {
	return EventView{
		ID:         e.ID,
		CategoryID: e.CategoryID,
		Title:      e.Title,
		Timezone:   e.Timezone,
		StartDT:    e.StartDT,
		EndDT:      e.EndDT,
	}
}

// LocationView is the JSON form of a location.
type LocationView struct {
	Inherit bool   `json:"inherit"`
	Venue   string `json:"venue,omitempty"`
	Room    string `json:"room,omitempty"`
	Address string `json:"address,omitempty"`
}

func newLocationView(l model.LocationData) LocationView {
	return LocationView{Inherit: l.InheritLocation, Venue: l.VenueName, Room: l.RoomName, Address: l.Address}
}

// PersonView is the JSON form of a person link.
type PersonView struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
	IsSpeaker   bool   `json:"is_speaker"`
}

func newPersonViews(links []model.PersonLink) []PersonView {
	out := make([]PersonView, 0, len(links))
	for _, l := range links {
		out = append(out, PersonView{Name: l.Name, Affiliation: l.Affiliation, IsSpeaker: l.IsSpeaker})
	}
	return out
}

// BlockView is the JSON form of a session block.
type BlockView struct {
	ID           uint64       `json:"id"`
	SessionID    uint64       `json:"session_id"`
	SessionCode  string       `json:"session_code,omitempty"`
	FriendlyID   uint64       `json:"session_friendly_id,omitempty"`
	Title        string       `json:"title"`
	FullTitle    string       `json:"full_title"`
	Location     LocationView `json:"location"`
	Conveners    []PersonView `json:"conveners"`
	StartDT      *time.Time   `json:"start_dt,omitempty"`
	EndDT        *time.Time   `json:"end_dt,omitempty"`
	ChildEntries int          `json:"child_entries,omitempty"`
}

// NewBlockView converts b.
func NewBlockView(b *model.SessionBlock) BlockView {
	v := BlockView{
		ID:        b.ID,
		SessionID: b.SessionID,
		Title:     b.Title,
		FullTitle: b.FullTitle(),
		Location:  newLocationView(b.Location),
		Conveners: newPersonViews(b.PersonLinks),
	}
	if b.Session != nil {
		v.SessionCode = b.Session.Code
		v.FriendlyID = b.Session.FriendlyID
	}
	if e := b.TimetableEntry; e != nil {
		start, end := e.StartDT, e.EndDT
		v.StartDT, v.EndDT = &start, &end
		v.ChildEntries = len(e.Children)
	}
	return v
}

// SubContributionView is the JSON form of a subcontribution.
type SubContributionView struct {
	ID          uint64       `json:"id"`
	Title       string       `json:"title"`
	DurationMin int          `json:"duration_min"`
	Speakers    []PersonView `json:"speakers"`
	References  []string     `json:"references,omitempty"`
	Note        *NoteView    `json:"note,omitempty"`
}

// NoteView is the JSON form of a note.
type NoteView struct {
	Source     string `json:"source"`
	RenderMode string `json:"render_mode"`
}

func newNoteView(n *model.Note) *NoteView {
	if n == nil {
		return nil
	}
	return &NoteView{Source: n.Source, RenderMode: n.RenderMode}
}

// ContributionView is the JSON form of a contribution.
type ContributionView struct {
	ID               uint64                `json:"id"`
	FriendlyID       uint64                `json:"friendly_id"`
	SessionID        *uint64               `json:"session_id,omitempty"`
	Title            string                `json:"title"`
	Description      string                `json:"description,omitempty"`
	DurationMin      int                   `json:"duration_min"`
	Location         LocationView          `json:"location"`
	Speakers         []PersonView          `json:"speakers"`
	References       []string              `json:"references,omitempty"`
	SubContributions []SubContributionView `json:"subcontributions,omitempty"`
	Note             *NoteView             `json:"note,omitempty"`
	StartDT          *time.Time            `json:"start_dt,omitempty"`
	EndDT            *time.Time            `json:"end_dt,omitempty"`
}

// NewContributionView converts c.
func NewContributionView(c *model.Contribution) ContributionView {
	v := ContributionView{
		ID:          c.ID,
		FriendlyID:  c.FriendlyID,
		SessionID:   c.SessionID,
		Title:       c.Title,
		Description: c.Description,
		DurationMin: int(c.Duration / time.Minute),
		Location:    newLocationView(c.Location),
		Speakers:    newPersonViews(c.PersonLinks),
		References:  c.References,
		Note:        newNoteView(c.Note),
	}
	for _, sc := range c.SubContributions {
		v.SubContributions = append(v.SubContributions, SubContributionView{
			ID:          sc.ID,
			Title:       sc.Title,
			DurationMin: int(sc.Duration / time.Minute),
			Speakers:    newPersonViews(sc.PersonLinks),
			References:  sc.References,
			Note:        newNoteView(sc.Note),
		})
	}
	if e := c.TimetableEntry; e != nil {
		start, end := e.StartDT, e.EndDT
		v.StartDT, v.EndDT = &start, &end
	}
	return v
}

// BreakView is the JSON form of a break.
type BreakView struct {
	ID          uint64       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Location    LocationView `json:"location"`
	StartDT     *time.Time   `json:"start_dt,omitempty"`
	EndDT       *time.Time   `json:"end_dt,omitempty"`
}

// NewBreakView converts b.
func NewBreakView(b *model.Break) BreakView {
	v := BreakView{ID: b.ID, Title: b.Title, Description: b.Description, Location: newLocationView(b.Location)}
	if e := b.TimetableEntry; e != nil {
		start, end := e.StartDT, e.EndDT
		v.StartDT, v.EndDT = &start, &end
	}
	return v
}

// EntryView is the JSON form of a timetable entry and its children.
type EntryView struct {
	ID           uint64            `json:"id"`
	Type         model.EntryType   `json:"type"`
	ParentID     *uint64           `json:"parent_id,omitempty"`
	StartDT      time.Time         `json:"start_dt"`
	EndDT        time.Time         `json:"end_dt"`
	DurationMin  int               `json:"duration_min"`
	Title        string            `json:"title"`
	SessionBlock *BlockView        `json:"session_block,omitempty"`
	Contribution *ContributionView `json:"contribution,omitempty"`
	Break        *BreakView        `json:"break,omitempty"`
	Children     []EntryView       `json:"children,omitempty"`
}

// NewEntryView converts e with the children currently attached to it.
func NewEntryView(e *model.TimetableEntry) EntryView {
	return newEntryView(e, e.Children)
}

func newEntryView(e *model.TimetableEntry, children []*model.TimetableEntry) EntryView {
	v := EntryView{
		ID:          e.ID,
		Type:        e.Type,
		ParentID:    e.ParentID,
		StartDT:     e.StartDT,
		EndDT:       e.EndDT,
		DurationMin: int(e.Duration() / time.Minute),
	}
	switch {
	case e.SessionBlock != nil:
		b := NewBlockView(e.SessionBlock)
		v.SessionBlock = &b
		v.Title = e.SessionBlock.FullTitle()
	case e.Contribution != nil:
		c := NewContributionView(e.Contribution)
		v.Contribution = &c
		v.Title = e.Contribution.Title
	case e.Break != nil:
		b := NewBreakView(e.Break)
		v.Break = &b
		v.Title = e.Break.Title
	}
	for _, c := range children {
		v.Children = append(v.Children, NewEntryView(c))
	}
	return v
}

// NewEntryViews converts a list of entries.
func NewEntryViews(entries []*model.TimetableEntry) []EntryView {
	out := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, NewEntryView(e))
	}
	return out
}
