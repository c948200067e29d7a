package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/conference-timetable/internal/middleware"
	"github.com/iliyamo/conference-timetable/internal/model"
	"github.com/iliyamo/conference-timetable/internal/timetable"
)

// GetCategoryTimetable handles GET /v1/categories/timetable.
//
// Query parameters:
//   - ids: comma separated category ids, required
//   - start, end: YYYY-MM-DD or RFC3339; a bare end date covers the whole day
//   - detail: event, session, contribution or all (default event)
//   - tz: IANA timezone used to group by day
//   - from: category the listing is shown in
//   - grouped: group by day (default true)
func (h *TimetableHandler) GetCategoryTimetable(c echo.Context) error {
	ids, err := parseIDList(c.QueryParam("ids"))
	if err != nil || len(ids) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ids"})
	}
	loc := h.Loc
	if tz := strings.TrimSpace(c.QueryParam("tz")); tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tz"})
		}
	}
	start, err := parseInstant(c.QueryParam("start"), loc, false)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start"})
	}
	end, err := parseInstant(c.QueryParam("end"), loc, true)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end"})
	}
	if end.Before(start) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end before start"})
	}
	level, err := timetable.ParseDetailLevel(c.QueryParam("detail"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid detail"})
	}
	grouped, err := queryBool(c, "grouped", true)
	if err != nil {
		return fail(c, err)
	}
	q := timetable.CategoryQuery{
		CategoryIDs: ids,
		Start:       start,
		End:         end,
		DetailLevel: level,
		Location:    loc,
		Grouped:     grouped,
	}
	if raw := strings.TrimSpace(c.QueryParam("from")); raw != "" {
		from, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from"})
		}
		q.FromCategory = &from
	}
	v := middleware.ViewerFrom(c)
	q.Includible = func(ev *model.Event) bool { return h.Policy.CanAccess(v, ev) }

	tt, err := timetable.GetCategoryTimetable(c.Request().Context(), h.Repo, q)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, tt)
}

func parseIDList(raw string) ([]uint64, error) {
	var ids []uint64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseInstant reads an RFC3339 instant or a local date.  A date is the
// start of that day, or its last millisecond when endOfDay is set.
func parseInstant(raw string, loc *time.Location, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	t := d.At(0, 0, loc)
	if endOfDay {
		t = d.AddDays(1).At(0, 0, loc).Add(-time.Millisecond)
	}
	return t, nil
}
