package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/conference-timetable/internal/model"
)

// CreateEvent inserts ev and assigns its ID.
func (r *TimetableRepo) CreateEvent(ctx context.Context, ev *model.Event) error {
	if ev.Timezone == "" {
		ev.Timezone = "UTC"
	}
	if ev.Protection.Mode == "" {
		ev.Protection.Mode = model.ProtectionPublic
	}
	var visibility any
	if ev.Visibility != nil {
		visibility = *ev.Visibility
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO events
		(category_id, title, timezone, start_dt, end_dt, visibility, protection_mode, inherit_location, venue_name, room_name, address)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.CategoryID, ev.Title, ev.Timezone, toMillis(ev.StartDT), toMillis(ev.EndDT), visibility, string(ev.Protection.Mode),
		ev.Location.InheritLocation, ev.Location.VenueName, ev.Location.RoomName, ev.Location.Address)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	return nil
}

// CreateSession inserts s and assigns its ID.  A zero FriendlyID takes the
// next free one in the event.
func (r *TimetableRepo) CreateSession(ctx context.Context, s *model.Session) error {
	if s.Protection.Mode == "" {
		s.Protection.Mode = model.ProtectionInheriting
	}
	if s.FriendlyID == 0 {
		if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(friendly_id), 0) + 1 FROM sessions WHERE event_id = ?`,
			s.EventID).Scan(&s.FriendlyID); err != nil {
			return err
		}
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO sessions
		(event_id, friendly_id, code, title, protection_mode, inherit_location, venue_name, room_name, address)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.EventID, s.FriendlyID, s.Code, s.Title, string(s.Protection.Mode),
		s.Location.InheritLocation, s.Location.VenueName, s.Location.RoomName, s.Location.Address)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// CreateSessionBlock inserts b together with its top-level timetable entry
// e in one transaction.
func (r *TimetableRepo) CreateSessionBlock(ctx context.Context, b *model.SessionBlock, e *model.TimetableEntry) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	res, err := tx.ExecContext(ctx, `INSERT INTO session_blocks (session_id, title, inherit_location, venue_name, room_name, address)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.SessionID, b.Title, b.Location.InheritLocation, b.Location.VenueName, b.Location.RoomName, b.Location.Address)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	bid := b.ID
	e.Type = model.EntrySessionBlock
	e.SessionBlockID = &bid
	res, err = tx.ExecContext(ctx, `INSERT INTO timetable_entries (event_id, parent_id, type, start_dt, end_dt, session_block_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.EventID, idOrNil(e.ParentID), string(e.Type), toMillis(e.StartDT), toMillis(e.EndDT), bid)
	if err != nil {
		return err
	}
	if id, err = res.LastInsertId(); err != nil {
		return err
	}
	e.ID = uint64(id)
	e.SessionBlock, b.TimetableEntry = b, e
	return nil
}

// CreateContribution inserts an unscheduled contribution and assigns its
// ID.  A zero FriendlyID takes the next free one in the event.
func (r *TimetableRepo) CreateContribution(ctx context.Context, c *model.Contribution) error {
	if c.Protection.Mode == "" {
		c.Protection.Mode = model.ProtectionInheriting
	}
	if c.FriendlyID == 0 {
		if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(friendly_id), 0) + 1 FROM contributions WHERE event_id = ?`,
			c.EventID).Scan(&c.FriendlyID); err != nil {
			return err
		}
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO contributions
		(event_id, friendly_id, session_id, title, description, duration_min, protection_mode,
		 inherit_location, venue_name, room_name, address)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.EventID, c.FriendlyID, idOrNil(c.SessionID), c.Title, c.Description, int64(c.Duration.Minutes()),
		string(c.Protection.Mode), c.Location.InheritLocation, c.Location.VenueName, c.Location.RoomName, c.Location.Address)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// CreateSubContribution inserts sc at the end of its contribution.
func (r *TimetableRepo) CreateSubContribution(ctx context.Context, sc *model.SubContribution) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO subcontributions (contribution_id, title, duration_min, position)
		SELECT ?, ?, ?, COALESCE(MAX(position), 0) + 1 FROM subcontributions WHERE contribution_id = ?`,
		sc.ContributionID, sc.Title, int64(sc.Duration.Minutes()), sc.ContributionID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	sc.ID = uint64(id)
	return nil
}

// AddPersonLink appends a person to an object.
func (r *TimetableRepo) AddPersonLink(ctx context.Context, objType string, objID uint64, p model.PersonLink) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO person_links (object_type, object_id, name, affiliation, is_speaker, position)
		SELECT ?, ?, ?, ?, ?, COALESCE(MAX(position), 0) + 1 FROM person_links WHERE object_type = ? AND object_id = ?`,
		objType, objID, p.Name, p.Affiliation, p.IsSpeaker, objType, objID)
	return err
}

// AddReference attaches an external reference to an object.
func (r *TimetableRepo) AddReference(ctx context.Context, objType string, objID uint64, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO object_references (object_type, object_id, value) VALUES (?, ?, ?)`,
		objType, objID, value)
	return err
}

// SetNote creates or replaces the note of an object.
func (r *TimetableRepo) SetNote(ctx context.Context, objType string, objID uint64, n *model.Note) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	if n.RenderMode == "" {
		n.RenderMode = "markdown"
	}
	var id uint64
	err = tx.QueryRowContext(ctx, `SELECT id FROM notes WHERE object_type = ? AND object_id = ?`, objType, objID).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.ExecContext(ctx, `INSERT INTO notes (object_type, object_id, source, render_mode) VALUES (?, ?, ?, ?)`,
			objType, objID, n.Source, n.RenderMode)
		if err != nil {
			return err
		}
		nid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		n.ID = uint64(nid)
		return nil
	case err != nil:
		return err
	}
	n.ID = id
	_, err = tx.ExecContext(ctx, `UPDATE notes SET source = ?, render_mode = ? WHERE id = ?`, n.Source, n.RenderMode, id)
	return err
}

// Grant adds a user to the ACL of an object, as manager when manager is set.
func (r *TimetableRepo) Grant(ctx context.Context, objType string, objID, userID uint64, manager bool) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM acl_entries WHERE object_type = ? AND object_id = ? AND user_id = ?`,
		objType, objID, userID)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO acl_entries (object_type, object_id, user_id, is_manager) VALUES (?, ?, ?, ?)`,
		objType, objID, userID, manager)
	return err
}
