package repository

import (
	"context"
	"database/sql"
	"slices"
	"strings"
	"time"

	"github.com/iliyamo/conference-timetable/internal/model"
	"github.com/iliyamo/conference-timetable/internal/timetable"
)

// Object types used by the polymorphic person_links, object_references,
// notes and acl_entries tables.
const (
	ObjectEvent           = "event"
	ObjectSession         = "session"
	ObjectSessionBlock    = "session_block"
	ObjectContribution    = "contribution"
	ObjectSubContribution = "subcontribution"
)

// TimetableRepo manages persistence for events, their schedulable objects
// and timetable entries.  Instants are stored as UTC unix milliseconds.
type TimetableRepo struct {
	db *sql.DB
}

var _ timetable.Store = (*TimetableRepo)(nil)

// NewTimetableRepo constructs a TimetableRepo with the given DB handle.
func NewTimetableRepo(db *sql.DB) *TimetableRepo {
	return &TimetableRepo{db: db}
}

// DB exposes the underlying sql.DB.
func (r *TimetableRepo) DB() *sql.DB {
	return r.db
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func nullID(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	id := uint64(n.Int64)
	return &id
}

func idOrNil(id *uint64) any {
	if id == nil {
		return nil
	}
	return *id
}

// inClause returns "?,?,..." for ids together with the matching args.
func inClause(ids []uint64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}

// uniq returns the sorted distinct ids.
func uniq(ids []uint64) []uint64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// isUniqueViolation reports whether err is a unique constraint failure in
// SQLite or MySQL.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate entry")
}

// loader loads rows and their associations for one call, sharing event
// and session objects between everything it loads.
type loader struct {
	r        *TimetableRepo
	notes    bool
	events   map[uint64]*model.Event
	sessions map[uint64]*model.Session
}

func (r *TimetableRepo) newLoader(opts timetable.LoadOptions) *loader {
	return &loader{
		r:        r,
		notes:    opts.IncludeNotes,
		events:   map[uint64]*model.Event{},
		sessions: map[uint64]*model.Session{},
	}
}

// personLinks loads the person links of objects of one type.
func (l *loader) personLinks(ctx context.Context, objType string, ids []uint64) (map[uint64][]model.PersonLink, error) {
	out := map[uint64][]model.PersonLink{}
	if len(ids) == 0 {
		return out, nil
	}
	ph, args := inClause(ids)
	q := `SELECT object_id, name, affiliation, is_speaker FROM person_links
	      WHERE object_type = ? AND object_id IN (` + ph + `) ORDER BY object_id, position, id`
	rows, err := l.r.db.QueryContext(ctx, q, append([]any{objType}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var p model.PersonLink
		if err := rows.Scan(&id, &p.Name, &p.Affiliation, &p.IsSpeaker); err != nil {
			return nil, err
		}
		out[id] = append(out[id], p)
	}
	return out, rows.Err()
}

// references loads the external references of objects of one type.
func (l *loader) references(ctx context.Context, objType string, ids []uint64) (map[uint64][]string, error) {
	out := map[uint64][]string{}
	if len(ids) == 0 {
		return out, nil
	}
	ph, args := inClause(ids)
	q := `SELECT object_id, value FROM object_references
	      WHERE object_type = ? AND object_id IN (` + ph + `) ORDER BY object_id, id`
	rows, err := l.r.db.QueryContext(ctx, q, append([]any{objType}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var v string
		if err := rows.Scan(&id, &v); err != nil {
			return nil, err
		}
		out[id] = append(out[id], v)
	}
	return out, rows.Err()
}

// notesOf loads the notes of objects of one type.
func (l *loader) notesOf(ctx context.Context, objType string, ids []uint64) (map[uint64]*model.Note, error) {
	out := map[uint64]*model.Note{}
	if len(ids) == 0 {
		return out, nil
	}
	ph, args := inClause(ids)
	q := `SELECT id, object_id, source, render_mode FROM notes
	      WHERE object_type = ? AND object_id IN (` + ph + `)`
	rows, err := l.r.db.QueryContext(ctx, q, append([]any{objType}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		n := &model.Note{}
		if err := rows.Scan(&n.ID, &id, &n.Source, &n.RenderMode); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

// protections fills ACL and Managers of objects of one type.
func (l *loader) protections(ctx context.Context, objType string, ids []uint64, set func(id uint64) *model.Protection) error {
	if len(ids) == 0 {
		return nil
	}
	ph, args := inClause(ids)
	q := `SELECT object_id, user_id, is_manager FROM acl_entries
	      WHERE object_type = ? AND object_id IN (` + ph + `) ORDER BY object_id, user_id`
	rows, err := l.r.db.QueryContext(ctx, q, append([]any{objType}, args...)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id, user uint64
		var manager bool
		if err := rows.Scan(&id, &user, &manager); err != nil {
			return err
		}
		p := set(id)
		if p == nil {
			continue
		}
		if manager {
			p.Managers = append(p.Managers, user)
		} else {
			p.ACL = append(p.ACL, user)
		}
	}
	return rows.Err()
}
