package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/conference-timetable/internal/middleware"
	"github.com/iliyamo/conference-timetable/internal/model"
	"github.com/iliyamo/conference-timetable/internal/queue"
	"github.com/iliyamo/conference-timetable/internal/timetable"
)

type scheduleBreakRequest struct {
	Title       string `json:"title" validate:"required,max=250"`
	DurationMin int    `json:"duration_min" validate:"required,min=1,max=1440"`
	Day         string `json:"day" validate:"omitempty,datetime=2006-01-02"`
	BlockID     uint64 `json:"block_id"`
	Force       bool   `json:"force"`
}

type scheduleContributionRequest struct {
	Day     string `json:"day" validate:"omitempty,datetime=2006-01-02"`
	BlockID uint64 `json:"block_id"`
	Force   bool   `json:"force"`
}

type rescheduleRequest struct {
	StartDT    string `json:"start_dt" validate:"required"`
	ShiftLater bool   `json:"shift_later"`
}

type shiftRequest struct {
	ShiftMin  int    `json:"shift_min" validate:"required,min=-1440,max=1440"`
	SessionID uint64 `json:"session_id"`
}

// bind decodes and validates the JSON body into req.
func (h *TimetableHandler) bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// containerDay parses the day of an event container.  A session block
// fixes its own day, so raw is ignored when blockID is set.
func containerDay(raw string, blockID uint64) (model.Date, error) {
	if blockID != 0 {
		return model.Date{}, nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.Date{}, echo.NewHTTPError(http.StatusBadRequest, "day is required")
	}
	day, err := model.ParseDate(raw)
	if err != nil {
		return model.Date{}, echo.NewHTTPError(http.StatusBadRequest, "invalid day")
	}
	return day, nil
}

// ScheduleBreak handles POST /v1/events/:id/timetable/breaks.  The break
// goes to the next free slot of the event day, or of block_id.  day is
// required without block_id.
func (h *TimetableHandler) ScheduleBreak(c echo.Context) error {
	ev, err := h.event(c, true)
	if err != nil {
		return fail(c, err)
	}
	var req scheduleBreakRequest
	if err := h.bind(c, &req); err != nil {
		return fail(c, err)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	day, err := containerDay(req.Day, req.BlockID)
	if err != nil {
		return fail(c, err)
	}
	container, err := h.container(c, ev, req.BlockID)
	if err != nil {
		return fail(c, err)
	}
	entry, err := timetable.Schedule(c.Request().Context(), h.Repo, container, day, timetable.ScheduleRequest{
		Type:     model.EntryBreak,
		Title:    title,
		Duration: time.Duration(req.DurationMin) * time.Minute,
		Force:    req.Force,
	})
	if err != nil {
		return fail(c, err)
	}
	h.changed(c, ev, queue.ActionScheduled, []*model.TimetableEntry{entry}, nil)
	return c.JSON(http.StatusCreated, timetable.NewEntryView(entry))
}

// ScheduleContribution handles
// POST /v1/events/:id/timetable/contributions/:contrib_id.
func (h *TimetableHandler) ScheduleContribution(c echo.Context) error {
	ev, err := h.event(c, true)
	if err != nil {
		return fail(c, err)
	}
	contribID, err := parseID(c, "contrib_id")
	if err != nil {
		return fail(c, err)
	}
	var req scheduleContributionRequest
	if err := h.bind(c, &req); err != nil {
		return fail(c, err)
	}
	day, err := containerDay(req.Day, req.BlockID)
	if err != nil {
		return fail(c, err)
	}
	contrib, err := h.Repo.GetContribution(c.Request().Context(), ev.ID, contribID)
	if err != nil {
		return fail(c, err)
	}
	if contrib.TimetableEntry != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "contribution is already scheduled"})
	}
	container, err := h.container(c, ev, req.BlockID)
	if err != nil {
		return fail(c, err)
	}
	entry, err := timetable.Schedule(c.Request().Context(), h.Repo, container, day, timetable.ScheduleRequest{
		Type:         model.EntryContribution,
		Duration:     contrib.Duration,
		Contribution: contrib,
		Force:        req.Force,
	})
	if err != nil {
		return fail(c, err)
	}
	h.changed(c, ev, queue.ActionScheduled, []*model.TimetableEntry{entry}, nil)
	return c.JSON(http.StatusCreated, timetable.NewEntryView(entry))
}

// entry loads :entry_id and checks that it belongs to ev.
func (h *TimetableHandler) entry(c echo.Context, ev *model.Event) (*model.TimetableEntry, error) {
	id, err := parseID(c, "entry_id")
	if err != nil {
		return nil, err
	}
	e, err := h.Repo.GetEntry(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if e.EventID != ev.ID {
		return nil, echo.NewHTTPError(http.StatusNotFound, "timetable entry not found")
	}
	return e, nil
}

// RescheduleEntry handles PATCH /v1/events/:id/timetable/entries/:entry_id.
// The entry keeps its duration; with shift_later the entries that followed
// it move by the same amount.  The response lists the moved entries and the
// notifications for managers.
func (h *TimetableHandler) RescheduleEntry(c echo.Context) error {
	ev, err := h.event(c, true)
	if err != nil {
		return fail(c, err)
	}
	e, err := h.entry(c, ev)
	if err != nil {
		return fail(c, err)
	}
	var req rescheduleRequest
	if err := h.bind(c, &req); err != nil {
		return fail(c, err)
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartDT))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_dt"})
	}
	delta := start.Sub(e.StartDT)
	moved, err := timetable.RescheduleEntry(c.Request().Context(), h.Repo, e, start, req.ShiftLater)
	if err != nil {
		return fail(c, err)
	}
	notes, err := timeChanges(moved, delta, ev.Loc(), e)
	if err != nil {
		return fail(c, err)
	}
	h.changed(c, ev, queue.ActionRescheduled, moved, notes)
	return c.JSON(http.StatusOK, echo.Map{"entries": timetable.NewEntryViews(moved), "notifications": notes})
}

// ShiftFollowing handles
// POST /v1/events/:id/timetable/entries/:entry_id/shift-following and
// moves the siblings after the entry by shift_min minutes.  session_id
// limits the shift to blocks of that session.
func (h *TimetableHandler) ShiftFollowing(c echo.Context) error {
	ev, err := h.event(c, true)
	if err != nil {
		return fail(c, err)
	}
	e, err := h.entry(c, ev)
	if err != nil {
		return fail(c, err)
	}
	var req shiftRequest
	if err := h.bind(c, &req); err != nil {
		return fail(c, err)
	}
	var session *model.Session
	if req.SessionID != 0 {
		if session, err = h.Repo.GetSession(c.Request().Context(), ev.ID, req.SessionID); err != nil {
			return fail(c, err)
		}
	}
	shift := time.Duration(req.ShiftMin) * time.Minute
	moved, err := timetable.ShiftFollowingEntries(c.Request().Context(), h.Repo, e, shift, session)
	if err != nil {
		return fail(c, err)
	}
	notes, err := timeChanges(moved, shift, ev.Loc(), e)
	if err != nil {
		return fail(c, err)
	}
	if len(moved) > 0 {
		h.changed(c, ev, queue.ActionShifted, moved, notes)
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": timetable.NewEntryViews(moved), "notifications": notes})
}

// DeleteContribution handles DELETE /v1/events/:id/contributions/:contrib_id.
// Managers of the contribution or its session may delete it too.
func (h *TimetableHandler) DeleteContribution(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	contribID, err := parseID(c, "contrib_id")
	if err != nil {
		return fail(c, err)
	}
	ctx := c.Request().Context()
	contrib, err := h.Repo.GetContribution(ctx, id, contribID)
	if err != nil {
		return fail(c, err)
	}
	if !h.Policy.CanManage(middleware.ViewerFrom(c), contrib) {
		return fail(c, errForbidden)
	}
	ev, err := h.Repo.GetEvent(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	if err := h.Repo.SoftDeleteContribution(ctx, id, contribID); err != nil {
		return fail(c, err)
	}
	var entries []*model.TimetableEntry
	if contrib.TimetableEntry != nil {
		entries = append(entries, contrib.TimetableEntry)
	}
	h.changed(c, ev, queue.ActionDeleted, entries, nil)
	return c.NoContent(http.StatusNoContent)
}

// timeChanges builds the notifications for entries that all moved by
// delta.  The rescheduled entry itself is skipped.
func timeChanges(moved []*model.TimetableEntry, delta time.Duration, loc *time.Location, self *model.TimetableEntry) ([]string, error) {
	changes := make([]timetable.Change, 0, len(moved))
	for _, e := range moved {
		obj, err := e.Object()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", e.ID, err)
		}
		changes = append(changes, timetable.Change{
			Object: obj,
			Fields: map[string]timetable.FieldChange{
				timetable.FieldStartDT: {Old: e.StartDT.Add(-delta), New: e.StartDT},
				timetable.FieldEndDT:   {Old: e.EndDT.Add(-delta), New: e.EndDT},
			},
		})
	}
	return timetable.GetTimeChangesNotifications(changes, loc, self)
}
