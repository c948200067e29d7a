package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/conference-timetable/internal/model"
	"github.com/iliyamo/conference-timetable/internal/timetable"
)

const eventColumns = `id, category_id, title, timezone, start_dt, end_dt, visibility, is_deleted,
       protection_mode, inherit_location, venue_name, room_name, address`

func scanEvent(row rowScanner) (*model.Event, error) {
	var (
		ev         model.Event
		start, end int64
		visibility sql.NullInt64
		mode       string
	)
	if err := row.Scan(&ev.ID, &ev.CategoryID, &ev.Title, &ev.Timezone, &start, &end, &visibility, &ev.IsDeleted,
		&mode, &ev.Location.InheritLocation, &ev.Location.VenueName, &ev.Location.RoomName, &ev.Location.Address); err != nil {
		return nil, err
	}
	ev.StartDT, ev.EndDT = fromMillis(start), fromMillis(end)
	if visibility.Valid {
		v := int(visibility.Int64)
		ev.Visibility = &v
	}
	ev.Protection.Mode = model.ProtectionMode(mode)
	return &ev, nil
}

// loadEvents makes sure the events are in l.events, with category chain
// and ACL filled.
func (l *loader) loadEvents(ctx context.Context, ids []uint64) error {
	var missing []uint64
	for _, id := range uniq(ids) {
		if _, ok := l.events[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	ph, args := inClause(missing)
	rows, err := l.r.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id IN (`+ph+`)`, args...)
	if err != nil {
		return err
	}
	var loaded []*model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			rows.Close()
			return err
		}
		loaded = append(loaded, ev)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(loaded) == 0 {
		return nil
	}
	cats, err := l.r.categoryParents(ctx)
	if err != nil {
		return err
	}
	for _, ev := range loaded {
		ev.CategoryChain = categoryChain(cats, ev.CategoryID)
		l.events[ev.ID] = ev
	}
	return l.protections(ctx, ObjectEvent, missing, func(id uint64) *model.Protection {
		if ev := l.events[id]; ev != nil {
			return &ev.Protection
		}
		return nil
	})
}

// loadSessions makes sure the sessions and their events are loaded.
func (l *loader) loadSessions(ctx context.Context, ids []uint64) error {
	var missing []uint64
	for _, id := range uniq(ids) {
		if _, ok := l.sessions[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	ph, args := inClause(missing)
	rows, err := l.r.db.QueryContext(ctx, `SELECT id, event_id, friendly_id, code, title, is_deleted,
		protection_mode, inherit_location, venue_name, room_name, address
		FROM sessions WHERE id IN (`+ph+`)`, args...)
	if err != nil {
		return err
	}
	var eventIDs []uint64
	for rows.Next() {
		s := &model.Session{}
		var mode string
		if err := rows.Scan(&s.ID, &s.EventID, &s.FriendlyID, &s.Code, &s.Title, &s.IsDeleted, &mode,
			&s.Location.InheritLocation, &s.Location.VenueName, &s.Location.RoomName, &s.Location.Address); err != nil {
			rows.Close()
			return err
		}
		s.Protection.Mode = model.ProtectionMode(mode)
		l.sessions[s.ID] = s
		eventIDs = append(eventIDs, s.EventID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if err := l.loadEvents(ctx, eventIDs); err != nil {
		return err
	}
	for _, id := range missing {
		if s := l.sessions[id]; s != nil {
			s.Event = l.events[s.EventID]
		}
	}
	return l.protections(ctx, ObjectSession, missing, func(id uint64) *model.Protection {
		if s := l.sessions[id]; s != nil {
			return &s.Protection
		}
		return nil
	})
}

// blocks loads session blocks with session, event and conveners.
func (l *loader) blocks(ctx context.Context, ids []uint64) (map[uint64]*model.SessionBlock, error) {
	out := map[uint64]*model.SessionBlock{}
	if len(ids) == 0 {
		return out, nil
	}
	ids = uniq(ids)
	ph, args := inClause(ids)
	rows, err := l.r.db.QueryContext(ctx, `SELECT id, session_id, title, inherit_location, venue_name, room_name, address
		FROM session_blocks WHERE id IN (`+ph+`)`, args...)
	if err != nil {
		return nil, err
	}
	var sessionIDs []uint64
	for rows.Next() {
		b := &model.SessionBlock{}
		if err := rows.Scan(&b.ID, &b.SessionID, &b.Title, &b.Location.InheritLocation,
			&b.Location.VenueName, &b.Location.RoomName, &b.Location.Address); err != nil {
			rows.Close()
			return nil, err
		}
		out[b.ID] = b
		sessionIDs = append(sessionIDs, b.SessionID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := l.loadSessions(ctx, sessionIDs); err != nil {
		return nil, err
	}
	links, err := l.personLinks(ctx, ObjectSessionBlock, ids)
	if err != nil {
		return nil, err
	}
	for id, b := range out {
		b.Session = l.sessions[b.SessionID]
		b.PersonLinks = links[id]
	}
	return out, nil
}

// contributions loads contributions with event, session, speakers,
// references, subcontributions and, when asked, notes.
func (l *loader) contributions(ctx context.Context, ids []uint64) (map[uint64]*model.Contribution, error) {
	out := map[uint64]*model.Contribution{}
	if len(ids) == 0 {
		return out, nil
	}
	ids = uniq(ids)
	ph, args := inClause(ids)
	rows, err := l.r.db.QueryContext(ctx, `SELECT id, event_id, friendly_id, session_id, title, description, duration_min,
		is_deleted, protection_mode, inherit_location, venue_name, room_name, address
		FROM contributions WHERE id IN (`+ph+`)`, args...)
	if err != nil {
		return nil, err
	}
	var eventIDs, sessionIDs []uint64
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out[c.ID] = c
		eventIDs = append(eventIDs, c.EventID)
		if c.SessionID != nil {
			sessionIDs = append(sessionIDs, *c.SessionID)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := l.loadEvents(ctx, eventIDs); err != nil {
		return nil, err
	}
	if err := l.loadSessions(ctx, sessionIDs); err != nil {
		return nil, err
	}
	links, err := l.personLinks(ctx, ObjectContribution, ids)
	if err != nil {
		return nil, err
	}
	refs, err := l.references(ctx, ObjectContribution, ids)
	if err != nil {
		return nil, err
	}
	subs, err := l.subContributions(ctx, ids)
	if err != nil {
		return nil, err
	}
	notes := map[uint64]*model.Note{}
	if l.notes {
		if notes, err = l.notesOf(ctx, ObjectContribution, ids); err != nil {
			return nil, err
		}
	}
	for id, c := range out {
		c.Event = l.events[c.EventID]
		if c.SessionID != nil {
			c.Session = l.sessions[*c.SessionID]
		}
		c.PersonLinks = links[id]
		c.References = refs[id]
		c.SubContributions = subs[id]
		c.Note = notes[id]
	}
	err = l.protections(ctx, ObjectContribution, ids, func(id uint64) *model.Protection {
		if c := out[id]; c != nil {
			return &c.Protection
		}
		return nil
	})
	return out, err
}

func scanContribution(row rowScanner) (*model.Contribution, error) {
	var (
		c        model.Contribution
		session  sql.NullInt64
		duration int64
		mode     string
	)
	if err := row.Scan(&c.ID, &c.EventID, &c.FriendlyID, &session, &c.Title, &c.Description, &duration,
		&c.IsDeleted, &mode, &c.Location.InheritLocation, &c.Location.VenueName, &c.Location.RoomName, &c.Location.Address); err != nil {
		return nil, err
	}
	c.SessionID = nullID(session)
	c.Duration = time.Duration(duration) * time.Minute
	c.Protection.Mode = model.ProtectionMode(mode)
	return &c, nil
}

// subContributions loads the non-deleted subcontributions of the
// contributions, ordered by position.
func (l *loader) subContributions(ctx context.Context, contribIDs []uint64) (map[uint64][]*model.SubContribution, error) {
	out := map[uint64][]*model.SubContribution{}
	ph, args := inClause(contribIDs)
	rows, err := l.r.db.QueryContext(ctx, `SELECT id, contribution_id, title, duration_min FROM subcontributions
		WHERE is_deleted = 0 AND contribution_id IN (`+ph+`) ORDER BY contribution_id, position, id`, args...)
	if err != nil {
		return nil, err
	}
	var ids []uint64
	var all []*model.SubContribution
	for rows.Next() {
		sc := &model.SubContribution{}
		var duration int64
		if err := rows.Scan(&sc.ID, &sc.ContributionID, &sc.Title, &duration); err != nil {
			rows.Close()
			return nil, err
		}
		sc.Duration = time.Duration(duration) * time.Minute
		out[sc.ContributionID] = append(out[sc.ContributionID], sc)
		ids = append(ids, sc.ID)
		all = append(all, sc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	links, err := l.personLinks(ctx, ObjectSubContribution, ids)
	if err != nil {
		return nil, err
	}
	refs, err := l.references(ctx, ObjectSubContribution, ids)
	if err != nil {
		return nil, err
	}
	notes := map[uint64]*model.Note{}
	if l.notes {
		if notes, err = l.notesOf(ctx, ObjectSubContribution, ids); err != nil {
			return nil, err
		}
	}
	for _, sc := range all {
		sc.PersonLinks = links[sc.ID]
		sc.References = refs[sc.ID]
		sc.Note = notes[sc.ID]
	}
	return out, nil
}

// GetEvent returns a non-deleted event by id.
func (r *TimetableRepo) GetEvent(ctx context.Context, id uint64) (*model.Event, error) {
	l := r.newLoader(timetable.LoadOptions{})
	if err := l.loadEvents(ctx, []uint64{id}); err != nil {
		return nil, err
	}
	ev := l.events[id]
	if ev == nil || ev.IsDeleted {
		return nil, ErrEventNotFound
	}
	return ev, nil
}

// ListEventsByIDs returns the events in id order.  Unknown ids are skipped.
func (r *TimetableRepo) ListEventsByIDs(ctx context.Context, ids []uint64) ([]*model.Event, error) {
	l := r.newLoader(timetable.LoadOptions{})
	if err := l.loadEvents(ctx, ids); err != nil {
		return nil, err
	}
	out := make([]*model.Event, 0, len(ids))
	for _, id := range uniq(ids) {
		if ev := l.events[id]; ev != nil {
			out = append(out, ev)
		}
	}
	return out, nil
}

// GetSession returns a non-deleted session of the event.
func (r *TimetableRepo) GetSession(ctx context.Context, eventID, id uint64) (*model.Session, error) {
	l := r.newLoader(timetable.LoadOptions{})
	if err := l.loadSessions(ctx, []uint64{id}); err != nil {
		return nil, err
	}
	s := l.sessions[id]
	if s == nil || s.IsDeleted || s.EventID != eventID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// GetSessionByFriendlyID returns a non-deleted session by its per-event
// friendly id.
func (r *TimetableRepo) GetSessionByFriendlyID(ctx context.Context, eventID, friendlyID uint64) (*model.Session, error) {
	var id uint64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM sessions WHERE event_id = ? AND friendly_id = ? AND is_deleted = 0`,
		eventID, friendlyID).Scan(&id)
	if err != nil {
		return nil, errNoRows(err, ErrSessionNotFound)
	}
	return r.GetSession(ctx, eventID, id)
}

// GetSessionBlock returns a block of the event with its entry, the entry
// children and the session loaded.
func (r *TimetableRepo) GetSessionBlock(ctx context.Context, eventID, id uint64) (*model.SessionBlock, error) {
	entries, err := r.queryEntries(ctx, "te.event_id = ? AND te.session_block_id = ?", eventID, id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrBlockNotFound
	}
	l := r.newLoader(timetable.LoadOptions{})
	if err := l.hydrate(ctx, entries); err != nil {
		return nil, err
	}
	if err := l.attachChildren(ctx, entries); err != nil {
		return nil, err
	}
	return entries[0].SessionBlock, nil
}

// GetContribution returns a non-deleted contribution of the event.  Its
// TimetableEntry is set when it is scheduled.
func (r *TimetableRepo) GetContribution(ctx context.Context, eventID, id uint64) (*model.Contribution, error) {
	l := r.newLoader(timetable.LoadOptions{})
	contribs, err := l.contributions(ctx, []uint64{id})
	if err != nil {
		return nil, err
	}
	c := contribs[id]
	if c == nil || c.IsDeleted || c.EventID != eventID {
		return nil, ErrContributionNotFound
	}
	entries, err := r.queryEntries(ctx, "te.contribution_id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		entries[0].Contribution = c
		c.TimetableEntry = entries[0]
	}
	return c, nil
}

// SoftDeleteContribution flags a contribution as deleted.  Its entry stays
// but is no longer returned.
func (r *TimetableRepo) SoftDeleteContribution(ctx context.Context, eventID, id uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE contributions SET is_deleted = 1 WHERE id = ? AND event_id = ? AND is_deleted = 0`, id, eventID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrContributionNotFound
	}
	return nil
}
