package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/conference-timetable/internal/model"
	"github.com/iliyamo/conference-timetable/internal/timetable"
)

// entrySelect reads timetable entries whose payload is not soft-deleted.
// Entries of contributions and blocks of a deleted session, and children
// of such blocks, are hidden.
const entrySelect = `SELECT te.id, te.event_id, te.parent_id, te.type, te.start_dt, te.end_dt,
       te.session_block_id, te.contribution_id, te.break_id
  FROM timetable_entries te
  LEFT JOIN contributions c ON c.id = te.contribution_id
  LEFT JOIN session_blocks sb ON sb.id = te.session_block_id
  LEFT JOIN sessions s ON s.id = sb.session_id
  LEFT JOIN timetable_entries pe ON pe.id = te.parent_id
  LEFT JOIN session_blocks psb ON psb.id = pe.session_block_id
  LEFT JOIN sessions ps ON ps.id = psb.session_id
 WHERE (c.id IS NULL OR c.is_deleted = 0)
   AND (s.id IS NULL OR s.is_deleted = 0)
   AND (ps.id IS NULL OR ps.is_deleted = 0)`

// queryEntries runs entrySelect narrowed by cond, ordered by start.
func (r *TimetableRepo) queryEntries(ctx context.Context, cond string, args ...any) ([]*model.TimetableEntry, error) {
	q := entrySelect
	if cond != "" {
		q += " AND " + cond
	}
	q += " ORDER BY te.start_dt, te.id"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.TimetableEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*model.TimetableEntry, error) {
	var (
		e                   model.TimetableEntry
		typ                 string
		start, end          int64
		parent, blk, c, brk sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.EventID, &parent, &typ, &start, &end, &blk, &c, &brk); err != nil {
		return nil, err
	}
	e.Type = model.EntryType(typ)
	e.StartDT, e.EndDT = fromMillis(start), fromMillis(end)
	e.ParentID = nullID(parent)
	e.SessionBlockID = nullID(blk)
	e.ContributionID = nullID(c)
	e.BreakID = nullID(brk)
	return &e, nil
}

// ListTopLevelEntriesBetween returns top-level entries of the event
// starting in [from, to).  Payloads are not loaded.
func (r *TimetableRepo) ListTopLevelEntriesBetween(ctx context.Context, eventID uint64, from, to time.Time) ([]*model.TimetableEntry, error) {
	return r.queryEntries(ctx, "te.event_id = ? AND te.parent_id IS NULL AND te.start_dt >= ? AND te.start_dt < ?",
		eventID, toMillis(from), toMillis(to))
}

// ListChildEntries returns the direct children of an entry.
func (r *TimetableRepo) ListChildEntries(ctx context.Context, parentID uint64) ([]*model.TimetableEntry, error) {
	return r.queryEntries(ctx, "te.parent_id = ?", parentID)
}

// ListFollowingSiblings returns the entries sharing entry's event and
// parent that match f, with payloads and children loaded.
func (r *TimetableRepo) ListFollowingSiblings(ctx context.Context, entry *model.TimetableEntry, f timetable.SiblingFilter) ([]*model.TimetableEntry, error) {
	cond := "te.event_id = ? AND te.id <> ?"
	args := []any{entry.EventID, entry.ID}
	if entry.ParentID == nil {
		cond += " AND te.parent_id IS NULL"
	} else {
		cond += " AND te.parent_id = ?"
		args = append(args, *entry.ParentID)
	}
	if !f.From.IsZero() {
		cond += " AND te.start_dt >= ?"
		args = append(args, toMillis(f.From))
	}
	if f.Type != "" {
		cond += " AND te.type = ?"
		args = append(args, string(f.Type))
	}
	if f.SessionID != nil {
		cond += " AND sb.session_id = ?"
		args = append(args, *f.SessionID)
	}
	entries, err := r.queryEntries(ctx, cond, args...)
	if err != nil {
		return nil, err
	}
	l := r.newLoader(timetable.LoadOptions{})
	if err := l.hydrate(ctx, entries); err != nil {
		return nil, err
	}
	if err := l.attachChildren(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// UpdateEntryTimes saves start and end of entries and of all their loaded
// children in one transaction.  Every stored child of a session block
// entry moves with the block, including children the loaders hide.
func (r *TimetableRepo) UpdateEntryTimes(ctx context.Context, entries []*model.TimetableEntry) (err error) {
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
	// loaded children are saved again below with the same times
	for _, e := range entries {
		if e.Type != model.EntrySessionBlock {
			continue
		}
		var old int64
		if err := tx.QueryRowContext(ctx, `SELECT start_dt FROM timetable_entries WHERE id = ?`, e.ID).Scan(&old); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("update entry %d: %w", e.ID, ErrEntryNotFound)
			}
			return err
		}
		delta := toMillis(e.StartDT) - old
		if delta == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE timetable_entries SET start_dt = start_dt + ?, end_dt = end_dt + ? WHERE parent_id = ?`,
			delta, delta, e.ID); err != nil {
			return fmt.Errorf("move children of entry %d: %w", e.ID, err)
		}
	}
	stmt, err := tx.PrepareContext(ctx, `UPDATE timetable_entries SET start_dt = ?, end_dt = ? WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var save func(es []*model.TimetableEntry) error
	save = func(es []*model.TimetableEntry) error {
		for _, e := range es {
			res, err := stmt.ExecContext(ctx, toMillis(e.StartDT), toMillis(e.EndDT), e.ID)
			if err != nil {
				return fmt.Errorf("update entry %d: %w", e.ID, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("update entry %d: %w", e.ID, ErrEntryNotFound)
			}
			if err := save(e.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return save(entries)
}

// CreateBreakEntry inserts b and its timetable entry e in one transaction
// and assigns both IDs.  Nothing is stored when either insert fails.
func (r *TimetableRepo) CreateBreakEntry(ctx context.Context, b *model.Break, e *model.TimetableEntry) (err error) {
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
	res, err := tx.ExecContext(ctx, `INSERT INTO breaks (title, description, inherit_location, venue_name, room_name, address)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.Title, b.Description, b.Location.InheritLocation, b.Location.VenueName, b.Location.RoomName, b.Location.Address)
	if err != nil {
		return fmt.Errorf("insert break: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	bid := uint64(id)
	e.Type = model.EntryBreak
	e.BreakID = &bid
	res, err = tx.ExecContext(ctx, `INSERT INTO timetable_entries (event_id, parent_id, type, start_dt, end_dt, break_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.EventID, idOrNil(e.ParentID), string(e.Type), toMillis(e.StartDT), toMillis(e.EndDT), bid)
	if err != nil {
		e.BreakID = nil
		return fmt.Errorf("insert break entry: %w", err)
	}
	if id, err = res.LastInsertId(); err != nil {
		return err
	}
	b.ID = bid
	e.ID = uint64(id)
	e.Break, b.TimetableEntry = b, e
	return nil
}

// CreateEntry inserts e and assigns its ID.  A payload that already has an
// entry yields ErrConflict.
func (r *TimetableRepo) CreateEntry(ctx context.Context, e *model.TimetableEntry) error {
	if e.Break != nil && e.BreakID == nil {
		id := e.Break.ID
		e.BreakID = &id
	}
	if e.Contribution != nil && e.ContributionID == nil {
		id := e.Contribution.ID
		e.ContributionID = &id
	}
	if e.SessionBlock != nil && e.SessionBlockID == nil {
		id := e.SessionBlock.ID
		e.SessionBlockID = &id
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO timetable_entries
		(event_id, parent_id, type, start_dt, end_dt, session_block_id, contribution_id, break_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EventID, idOrNil(e.ParentID), string(e.Type), toMillis(e.StartDT), toMillis(e.EndDT),
		idOrNil(e.SessionBlockID), idOrNil(e.ContributionID), idOrNil(e.BreakID))
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
	e.ID = uint64(id)
	return nil
}

// ListTopLevelEntries returns the event entries without parent with their
// payloads and children loaded.
func (r *TimetableRepo) ListTopLevelEntries(ctx context.Context, eventID uint64, opts timetable.LoadOptions) ([]*model.TimetableEntry, error) {
	entries, err := r.queryEntries(ctx, "te.event_id = ? AND te.parent_id IS NULL", eventID)
	if err != nil {
		return nil, err
	}
	l := r.newLoader(opts)
	if err := l.hydrate(ctx, entries); err != nil {
		return nil, err
	}
	if err := l.attachChildren(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListNestedEntries returns the event entries that have a parent, with
// payloads loaded.
func (r *TimetableRepo) ListNestedEntries(ctx context.Context, eventID uint64) ([]*model.TimetableEntry, error) {
	entries, err := r.queryEntries(ctx, "te.event_id = ? AND te.parent_id IS NOT NULL", eventID)
	if err != nil {
		return nil, err
	}
	if err := r.newLoader(timetable.LoadOptions{}).hydrate(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetEntry returns one entry with its payload, its parent and its
// children loaded.
func (r *TimetableRepo) GetEntry(ctx context.Context, id uint64) (*model.TimetableEntry, error) {
	entries, err := r.queryEntries(ctx, "te.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrEntryNotFound
	}
	e := entries[0]
	l := r.newLoader(timetable.LoadOptions{})
	if err := l.hydrate(ctx, entries); err != nil {
		return nil, err
	}
	if err := l.attachChildren(ctx, entries); err != nil {
		return nil, err
	}
	if e.ParentID != nil {
		parents, err := r.queryEntries(ctx, "te.id = ?", *e.ParentID)
		if err != nil {
			return nil, err
		}
		if len(parents) == 0 {
			return nil, ErrEntryNotFound
		}
		if err := l.hydrate(ctx, parents); err != nil {
			return nil, err
		}
		e.Parent = parents[0]
	}
	return e, nil
}

// entriesStartingBetween returns hydrated entries of one type in the events
// starting in [start, end].
func (r *TimetableRepo) entriesStartingBetween(ctx context.Context, l *loader, typ model.EntryType, eventIDs []uint64, start, end time.Time) ([]*model.TimetableEntry, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	ph, args := inClause(uniq(eventIDs))
	cond := "te.type = ? AND te.event_id IN (" + ph + ") AND te.start_dt >= ? AND te.start_dt <= ?"
	all := append([]any{string(typ)}, args...)
	all = append(all, toMillis(start), toMillis(end))
	entries, err := r.queryEntries(ctx, cond, all...)
	if err != nil {
		return nil, err
	}
	if err := l.hydrate(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListBlocksStartingBetween returns the session blocks of the events whose
// entry starts in [start, end].
func (r *TimetableRepo) ListBlocksStartingBetween(ctx context.Context, eventIDs []uint64, start, end time.Time, withChildren bool) ([]*model.SessionBlock, error) {
	l := r.newLoader(timetable.LoadOptions{})
	entries, err := r.entriesStartingBetween(ctx, l, model.EntrySessionBlock, eventIDs, start, end)
	if err != nil {
		return nil, err
	}
	if withChildren {
		if err := l.attachChildren(ctx, entries); err != nil {
			return nil, err
		}
	}
	out := make([]*model.SessionBlock, 0, len(entries))
	for _, e := range entries {
		if e.SessionBlock != nil {
			out = append(out, e.SessionBlock)
		}
	}
	return out, nil
}

// ListContributionsStartingBetween returns the scheduled contributions of
// the events whose entry starts in [start, end].
func (r *TimetableRepo) ListContributionsStartingBetween(ctx context.Context, eventIDs []uint64, start, end time.Time) ([]*model.Contribution, error) {
	entries, err := r.entriesStartingBetween(ctx, r.newLoader(timetable.LoadOptions{}), model.EntryContribution, eventIDs, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Contribution, 0, len(entries))
	for _, e := range entries {
		if e.Contribution != nil {
			out = append(out, e.Contribution)
		}
	}
	return out, nil
}

// ListBreaksStartingBetween returns the breaks of the events whose entry
// starts in [start, end].
func (r *TimetableRepo) ListBreaksStartingBetween(ctx context.Context, eventIDs []uint64, start, end time.Time) ([]*model.Break, error) {
	entries, err := r.entriesStartingBetween(ctx, r.newLoader(timetable.LoadOptions{}), model.EntryBreak, eventIDs, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Break, 0, len(entries))
	for _, e := range entries {
		if e.Break != nil {
			out = append(out, e.Break)
		}
	}
	return out, nil
}

// attachChildren loads the children of the block entries among parents,
// hydrates them and links them both ways.
func (l *loader) attachChildren(ctx context.Context, parents []*model.TimetableEntry) error {
	byID := map[uint64]*model.TimetableEntry{}
	var ids []uint64
	for _, p := range parents {
		if p.Type != model.EntrySessionBlock {
			continue
		}
		byID[p.ID] = p
		ids = append(ids, p.ID)
		p.Children = []*model.TimetableEntry{}
	}
	if len(ids) == 0 {
		return nil
	}
	ph, args := inClause(ids)
	children, err := l.r.queryEntries(ctx, "te.parent_id IN ("+ph+")", args...)
	if err != nil {
		return err
	}
	if err := l.hydrate(ctx, children); err != nil {
		return err
	}
	for _, c := range children {
		p := byID[*c.ParentID]
		c.Parent = p
		p.Children = append(p.Children, c)
	}
	return nil
}

// hydrate loads the payload of each entry.
func (l *loader) hydrate(ctx context.Context, entries []*model.TimetableEntry) error {
	var blockIDs, contribIDs, breakIDs []uint64
	for _, e := range entries {
		switch {
		case e.SessionBlockID != nil:
			blockIDs = append(blockIDs, *e.SessionBlockID)
		case e.ContributionID != nil:
			contribIDs = append(contribIDs, *e.ContributionID)
		case e.BreakID != nil:
			breakIDs = append(breakIDs, *e.BreakID)
		}
	}
	blocks, err := l.blocks(ctx, blockIDs)
	if err != nil {
		return err
	}
	contribs, err := l.contributions(ctx, contribIDs)
	if err != nil {
		return err
	}
	breaks, err := l.breaks(ctx, breakIDs)
	if err != nil {
		return err
	}
	for _, e := range entries {
		switch {
		case e.SessionBlockID != nil:
			if b := blocks[*e.SessionBlockID]; b != nil {
				e.SessionBlock, b.TimetableEntry = b, e
			}
		case e.ContributionID != nil:
			if c := contribs[*e.ContributionID]; c != nil {
				e.Contribution, c.TimetableEntry = c, e
			}
		case e.BreakID != nil:
			if b := breaks[*e.BreakID]; b != nil {
				e.Break, b.TimetableEntry = b, e
			}
		}
		if _, err := e.Object(); err != nil {
			return fmt.Errorf("hydrate: %w", err)
		}
	}
	return nil
}

func (l *loader) breaks(ctx context.Context, ids []uint64) (map[uint64]*model.Break, error) {
	out := map[uint64]*model.Break{}
	if len(ids) == 0 {
		return out, nil
	}
	ph, args := inClause(uniq(ids))
	rows, err := l.r.db.QueryContext(ctx, `SELECT id, title, description, inherit_location, venue_name, room_name, address
		FROM breaks WHERE id IN (`+ph+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		b := &model.Break{}
		if err := rows.Scan(&b.ID, &b.Title, &b.Description, &b.Location.InheritLocation,
			&b.Location.VenueName, &b.Location.RoomName, &b.Location.Address); err != nil {
			return nil, err
		}
		out[b.ID] = b
	}
	return out, rows.Err()
}

// errNoRows maps sql.ErrNoRows to notFound.
func errNoRows(err, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return err
}
