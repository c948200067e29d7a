// Package access decides whether a viewer may see or manage events,
// sessions, session blocks and contributions.  Protection is resolved
// along the ownership chain: a contribution inherits from its session
// (when it has one) and then from its event; a session block inherits from
// its session; an inheriting event is public.
package access

import (
	"github.com/iliyamo/conference-timetable/internal/model"
)

// RoleAdmin may access and manage every object.
const RoleAdmin = "ADMIN"

// Viewer is the identity making a request.  The zero Viewer is an
// anonymous guest.
type Viewer struct {
	UserID uint64
	Role   string
}

// IsGuest reports whether no user is authenticated.
func (v Viewer) IsGuest() bool { return v.UserID == 0 }

// Policy implements the access and manage checks.  It holds no state; the
// protection data travels on the objects.
type Policy struct{}

// NewPolicy returns the default policy.
func NewPolicy() Policy { return Policy{} }

// CanAccess reports whether v may see obj.  obj is one of *model.Event,
// *model.Session, *model.SessionBlock, *model.Contribution or *model.Break;
// breaks are always visible.  Unknown types are denied.
func (p Policy) CanAccess(v Viewer, obj any) bool {
	if p.CanManage(v, obj) {
		return true
	}
	switch o := obj.(type) {
	case *model.Break:
		return true
	case *model.Event:
		return o != nil && p.resolve(v, o.Protection, nil)
	case *model.Session:
		return o != nil && p.resolve(v, o.Protection, func() bool { return p.CanAccess(v, o.Event) })
	case *model.SessionBlock:
		return o != nil && p.CanAccess(v, o.Session)
	case *model.Contribution:
		return o != nil && p.resolve(v, o.Protection, func() bool {
			if o.Session != nil {
				return p.CanAccess(v, o.Session)
			}
			return p.CanAccess(v, o.Event)
		})
	}
	return false
}

// CanManage reports whether v manages obj, directly or through one of its
// parents.
func (p Policy) CanManage(v Viewer, obj any) bool {
	if v.Role == RoleAdmin {
		return true
	}
	if v.IsGuest() {
		return false
	}
	switch o := obj.(type) {
	case *model.Event:
		return o != nil && contains(o.Protection.Managers, v.UserID)
	case *model.Session:
		if o == nil {
			return false
		}
		return contains(o.Protection.Managers, v.UserID) || p.CanManage(v, o.Event)
	case *model.SessionBlock:
		return o != nil && p.CanManage(v, o.Session)
	case *model.Contribution:
		if o == nil {
			return false
		}
		if contains(o.Protection.Managers, v.UserID) {
			return true
		}
		if o.Session != nil && p.CanManage(v, o.Session) {
			return true
		}
		return p.CanManage(v, o.Event)
	}
	return false
}

// resolve applies a protection mode; parent is consulted for inheriting
// objects and may be nil for roots.
func (p Policy) resolve(v Viewer, prot model.Protection, parent func() bool) bool {
	switch prot.Mode {
	case model.ProtectionPublic:
		return true
	case model.ProtectionProtected:
		return !v.IsGuest() && (contains(prot.ACL, v.UserID) || contains(prot.Managers, v.UserID))
	default:
		if parent == nil {
			return true
		}
		return parent()
	}
}

func contains(ids []uint64, id uint64) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
