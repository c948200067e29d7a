package model

import "time"

// ProtectionMode controls how access to an object is decided.
type ProtectionMode string

const (
	ProtectionInheriting ProtectionMode = "inheriting"
	ProtectionPublic     ProtectionMode = "public"
	ProtectionProtected  ProtectionMode = "protected"
)

// Protection holds the access settings of an event, session or
// contribution.  ACL lists users that may access a protected object;
// Managers may access and manage it regardless of its mode.
type Protection struct {
	Mode     ProtectionMode
	ACL      []uint64
	Managers []uint64
}

// LocationData describes where something takes place.  When
// InheritLocation is set the other fields are ignored and the parent's
// location applies.
type LocationData struct {
	InheritLocation bool
	VenueName       string
	RoomName        string
	Address         string
}

// PersonLink attaches a person (speaker, convener, author) to an object.
type PersonLink struct {
	Name        string
	Affiliation string
	IsSpeaker   bool
}

// Note is the minutes attached to a contribution or subcontribution.
type Note struct {
	ID         uint64
	Source     string
	RenderMode string
}

// Schedulable is the payload of a timetable entry: a session block, a
// contribution or a break.
type Schedulable interface {
	GetTitle() string
	InheritsLocation() bool
}

// Session groups one or more session blocks.  It is not itself scheduled.
type Session struct {
	ID         uint64       // sessions.id
	EventID    uint64       // sessions.event_id
	FriendlyID uint64       // sessions.friendly_id, the per-event human readable id
	Code       string       // sessions.code
	Title      string       // sessions.title
	IsDeleted  bool         // sessions.is_deleted
	Location   LocationData // sessions.venue_name/room_name/address
	Protection Protection   // sessions.protection_mode + acl rows

	Event *Event
}

// SessionBlock is one scheduled occurrence of a session.  It is always
// realized by exactly one SESSION_BLOCK timetable entry, whose children are
// the contributions and breaks inside the block.
type SessionBlock struct {
	ID          uint64       // session_blocks.id
	SessionID   uint64       // session_blocks.session_id
	Title       string       // session_blocks.title
	Location    LocationData // session_blocks.venue_name/room_name/address
	PersonLinks []PersonLink // conveners

	Session        *Session
	TimetableEntry *TimetableEntry
}

// GetTitle returns the block's own title.
func (b *SessionBlock) GetTitle() string { return b.Title }

// InheritsLocation reports whether the block uses its session location.
func (b *SessionBlock) InheritsLocation() bool { return b.Location.InheritLocation }

// FullTitle is the session title, followed by the block title when the
// block has one.
func (b *SessionBlock) FullTitle() string {
	if b.Session == nil {
		return b.Title
	}
	if b.Title == "" {
		return b.Session.Title
	}
	return b.Session.Title + ": " + b.Title
}

// Contribution is a talk or other programme item.
type Contribution struct {
	ID          uint64        // contributions.id
	EventID     uint64        // contributions.event_id
	FriendlyID  uint64        // contributions.friendly_id
	SessionID   *uint64       // contributions.session_id (nullable)
	Title       string        // contributions.title
	Description string        // contributions.description
	Duration    time.Duration // contributions.duration_min
	IsDeleted   bool          // contributions.is_deleted
	Location    LocationData  // contributions.venue_name/room_name/address
	Protection  Protection    // contributions.protection_mode + acl rows

	PersonLinks      []PersonLink
	References       []string
	SubContributions []*SubContribution
	Note             *Note

	Event          *Event
	Session        *Session
	TimetableEntry *TimetableEntry
}

// GetTitle returns the contribution title.
func (c *Contribution) GetTitle() string { return c.Title }

// InheritsLocation reports whether the contribution uses its parent location.
func (c *Contribution) InheritsLocation() bool { return c.Location.InheritLocation }

// SubContribution is a part of a contribution.  It is never scheduled on
// its own.
type SubContribution struct {
	ID             uint64
	ContributionID uint64
	Title          string
	Duration       time.Duration
	PersonLinks    []PersonLink
	References     []string
	Note           *Note
}

// Break is a pause in the programme (coffee, lunch).
type Break struct {
	ID          uint64       // breaks.id
	Title       string       // breaks.title
	Description string       // breaks.description
	Location    LocationData // breaks.venue_name/room_name/address

	TimetableEntry *TimetableEntry
}

// GetTitle returns the break title.
func (b *Break) GetTitle() string { return b.Title }

// InheritsLocation reports whether the break uses its parent location.
func (b *Break) InheritsLocation() bool { return b.Location.InheritLocation }
