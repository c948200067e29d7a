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

// GetTimetable handles GET /v1/events/:id/timetable and returns the whole
// timetable grouped by local day.
func (h *TimetableHandler) GetTimetable(c echo.Context) error {
	ev, err := h.event(c, false)
	if err != nil {
		return fail(c, err)
	}
	days, err := h.scope(c).Serialize(c.Request().Context(), ev)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event": timetable.NewEventView(ev), "days": days})
}

// GetNestedTimetable handles GET /v1/events/:id/timetable/nested.
// Query: date (YYYY-MM-DD or all), session (friendly id or all), detail
// and notes.
func (h *TimetableHandler) GetNestedTimetable(c echo.Context) error {
	ev, err := h.event(c, false)
	if err != nil {
		return fail(c, err)
	}
	opts := timetable.DefaultNestedOptions()
	if d := strings.TrimSpace(c.QueryParam("date")); d != "" && d != timetable.ShowAll {
		if _, err := model.ParseDate(d); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
		}
		opts.ShowDate = d
	}
	if s := strings.TrimSpace(c.QueryParam("session")); s != "" && s != timetable.ShowAll {
		if _, err := strconv.ParseUint(s, 10, 64); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session"})
		}
		opts.ShowSession = s
	}
	if d := strings.TrimSpace(c.QueryParam("detail")); d != "" {
		level, err := timetable.ParseDetailLevel(d)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid detail"})
		}
		opts.DetailLevel = level
	}
	if opts.IncludeNotes, err = queryBool(c, "notes", true); err != nil {
		return fail(c, err)
	}

	entries, err := timetable.GetNestedTimetable(c.Request().Context(), h.Repo, h.Policy, middleware.ViewerFrom(c), ev, opts)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event": timetable.NewEventView(ev), "entries": timetable.NewEntryViews(entries)})
}

// exportToggles maps query parameter names to ExportConfig fields.
func exportToggles(cfg *timetable.ExportConfig) map[string]*bool {
	return map[string]*bool{
		"show_title":                   &cfg.ShowTitle,
		"show_affiliation":             &cfg.ShowAffiliation,
		"show_cover_page":              &cfg.ShowCoverPage,
		"show_toc":                     &cfg.ShowTOC,
		"show_session_toc":             &cfg.ShowSessionTOC,
		"show_abstract":                &cfg.ShowAbstract,
		"show_poster_abstract":         &cfg.ShowPosterAbstract,
		"show_contribs":                &cfg.ShowContribs,
		"show_length_contribs":         &cfg.ShowLengthContribs,
		"show_breaks":                  &cfg.ShowBreaks,
		"new_page_per_session":         &cfg.NewPagePerSession,
		"show_session_description":     &cfg.ShowSessionDescription,
		"print_date_close_to_sessions": &cfg.PrintDateCloseToSessions,
	}
}

// GetExport handles GET /v1/events/:id/timetable/export.  Every
// ExportConfig toggle can be set by its JSON name; session limits the
// export to one session by friendly id.
func (h *TimetableHandler) GetExport(c echo.Context) error {
	ev, err := h.event(c, false)
	if err != nil {
		return fail(c, err)
	}
	cfg := timetable.DefaultExportConfig()
	for name, field := range exportToggles(&cfg) {
		if *field, err = queryBool(c, name, *field); err != nil {
			return fail(c, err)
		}
	}
	var only *model.Session
	if s := strings.TrimSpace(c.QueryParam("session")); s != "" {
		fid, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session"})
		}
		if only, err = h.Repo.GetSessionByFriendlyID(c.Request().Context(), ev.ID, fid); err != nil {
			return fail(c, err)
		}
	}
	pdf, err := timetable.BuildPDFTimetable(c.Request().Context(), h.Repo, h.Policy, middleware.ViewerFrom(c), ev, cfg, only)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, pdf)
}

// GetNextStart handles GET /v1/events/:id/timetable/next-start and
// reports where an entry of the given duration would be placed.
// Query: duration (minutes or a Go duration), day, block_id and force.
// day is required without block_id.
func (h *TimetableHandler) GetNextStart(c echo.Context) error {
	ev, err := h.event(c, true)
	if err != nil {
		return fail(c, err)
	}
	duration, err := parseDuration(c.QueryParam("duration"))
	if err != nil || duration <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid duration"})
	}
	force, err := queryBool(c, "force", false)
	if err != nil {
		return fail(c, err)
	}
	var blockID uint64
	if raw := strings.TrimSpace(c.QueryParam("block_id")); raw != "" {
		if blockID, err = strconv.ParseUint(raw, 10, 64); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid block_id"})
		}
	}
	day, err := containerDay(c.QueryParam("day"), blockID)
	if err != nil {
		return fail(c, err)
	}
	container, err := h.container(c, ev, blockID)
	if err != nil {
		return fail(c, err)
	}
	start, err := timetable.FindNextStartDT(c.Request().Context(), h.Repo, duration, container, day, force)
	if err != nil {
		return fail(c, err)
	}
	if start == nil {
		return c.JSON(http.StatusOK, echo.Map{"start_dt": nil})
	}
	return c.JSON(http.StatusOK, echo.Map{"start_dt": start.In(ev.Loc()).Format(time.RFC3339)})
}

// container is the event itself, or one of its session blocks when
// blockID is set.
func (h *TimetableHandler) container(c echo.Context, ev *model.Event, blockID uint64) (timetable.Container, error) {
	if blockID == 0 {
		return timetable.EventContainer(ev), nil
	}
	b, err := h.Repo.GetSessionBlock(c.Request().Context(), ev.ID, blockID)
	if err != nil {
		return timetable.Container{}, err
	}
	return timetable.BlockContainer(b), nil
}

// parseDuration accepts whole minutes ("30") or a Go duration ("1h30m").
func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Minute, nil
	}
	return time.ParseDuration(raw)
}
