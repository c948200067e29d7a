package repository

import (
	"cmp"
	"context"
	"database/sql"
	"slices"
	"time"

	"github.com/iliyamo/conference-timetable/internal/model"
	"github.com/iliyamo/conference-timetable/internal/timetable"
)

// categoryParents maps every category id to its parent id (0 for roots).
func (r *TimetableRepo) categoryParents(ctx context.Context) (map[uint64]uint64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, parent_id FROM categories`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[uint64]uint64{}
	for rows.Next() {
		var id uint64
		var parent sql.NullInt64
		if err := rows.Scan(&id, &parent); err != nil {
			return nil, err
		}
		if parent.Valid {
			out[id] = uint64(parent.Int64)
		} else {
			out[id] = 0
		}
	}
	return out, rows.Err()
}

// categoryChain returns the ids from the root down to id.  A cycle in the
// parent links stops the walk.
func categoryChain(parents map[uint64]uint64, id uint64) []uint64 {
	var chain []uint64
	seen := map[uint64]bool{}
	for cur := id; cur != 0 && !seen[cur]; cur = parents[cur] {
		seen[cur] = true
		chain = append(chain, cur)
	}
	slices.Reverse(chain)
	return chain
}

// descendants returns ids and every category below them.
func descendants(parents map[uint64]uint64, ids []uint64) []uint64 {
	children := map[uint64][]uint64{}
	for id, p := range parents {
		children[p] = append(children[p], id)
	}
	seen := map[uint64]bool{}
	queue := slices.Clone(ids)
	var out []uint64
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		queue = append(queue, children[id]...)
	}
	slices.Sort(out)
	return out
}

// QueryCategoryEventStarts returns the distinct entry starts in
// [start, end] of the events under the categories, plus a nil-start row
// for events overlapping the window that have none.
func (r *TimetableRepo) QueryCategoryEventStarts(ctx context.Context, categoryIDs []uint64, start, end time.Time) ([]timetable.EventStart, error) {
	if len(categoryIDs) == 0 {
		return []timetable.EventStart{}, nil
	}
	parents, err := r.categoryParents(ctx)
	if err != nil {
		return nil, err
	}
	ph, catArgs := inClause(descendants(parents, categoryIDs))
	from, to := toMillis(start), toMillis(end)

	q := `SELECT DISTINCT te.event_id, te.start_dt FROM timetable_entries te
	        JOIN events e ON e.id = te.event_id
	        LEFT JOIN contributions c ON c.id = te.contribution_id
	        LEFT JOIN session_blocks sb ON sb.id = te.session_block_id
	        LEFT JOIN sessions s ON s.id = sb.session_id
	       WHERE e.is_deleted = 0 AND e.category_id IN (` + ph + `)
	         AND (c.id IS NULL OR c.is_deleted = 0)
	         AND (s.id IS NULL OR s.is_deleted = 0)
	         AND te.start_dt >= ? AND te.start_dt <= ?`
	rows, err := r.db.QueryContext(ctx, q, append(catArgs, from, to)...)
	if err != nil {
		return nil, err
	}
	out := []timetable.EventStart{}
	withStarts := map[uint64]bool{}
	for rows.Next() {
		var id uint64
		var ms int64
		if err := rows.Scan(&id, &ms); err != nil {
			rows.Close()
			return nil, err
		}
		t := fromMillis(ms)
		out = append(out, timetable.EventStart{EventID: id, StartDT: &t})
		withStarts[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	q = `SELECT id FROM events WHERE is_deleted = 0 AND category_id IN (` + ph + `)
	       AND start_dt <= ? AND end_dt >= ?`
	rows, err = r.db.QueryContext(ctx, q, append(catArgs, to, from)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		if !withStarts[id] {
			out = append(out, timetable.EventStart{EventID: id})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b timetable.EventStart) int {
		if c := cmp.Compare(a.EventID, b.EventID); c != 0 {
			return c
		}
		if a.StartDT == nil || b.StartDT == nil {
			return 0
		}
		return a.StartDT.Compare(*b.StartDT)
	})
	return out, nil
}

// CreateCategory inserts c and assigns its ID.
func (r *TimetableRepo) CreateCategory(ctx context.Context, c *model.Category) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO categories (parent_id, title) VALUES (?, ?)`, idOrNil(c.ParentID), c.Title)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}
