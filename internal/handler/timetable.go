package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/conference-timetable/internal/access"
	"github.com/iliyamo/conference-timetable/internal/middleware"
	"github.com/iliyamo/conference-timetable/internal/model"
	"github.com/iliyamo/conference-timetable/internal/queue"
	"github.com/iliyamo/conference-timetable/internal/repository"
	"github.com/iliyamo/conference-timetable/internal/timetable"
)

// ChangePublisher announces timetable changes.
type ChangePublisher interface {
	PublishTimetableChanged(ctx context.Context, ev queue.TimetableChangedEvent) error
}

// CacheInvalidator drops cached responses of an event.
type CacheInvalidator interface {
	InvalidateEvent(ctx context.Context, eventID uint64) error
}

// TimetableHandler serves the event and category timetables and the
// scheduling operations of managers.  Publisher and Cache may be nil.
type TimetableHandler struct {
	Repo      *repository.TimetableRepo
	Policy    access.Policy
	Publisher ChangePublisher
	Cache     CacheInvalidator
	// Loc is the display timezone of the category timetable when the
	// request has no tz parameter.
	Loc *time.Location

	validate *validator.Validate
}

// NewTimetableHandler panics on a nil repository.
func NewTimetableHandler(repo *repository.TimetableRepo, pub ChangePublisher, cache CacheInvalidator, loc *time.Location) *TimetableHandler {
	if repo == nil {
		panic("nil repository passed to NewTimetableHandler")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &TimetableHandler{
		Repo:      repo,
		Policy:    access.NewPolicy(),
		Publisher: pub,
		Cache:     cache,
		Loc:       loc,
		validate:  validator.New(),
	}
}

var errForbidden = errors.New("forbidden")

func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func queryBool(c echo.Context, name string, def bool) (bool, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return b, nil
}

// fail writes the JSON error response for err.
func fail(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return c.JSON(he.Code, echo.Map{"error": he.Message})
	}
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, errForbidden):
		status, msg = http.StatusForbidden, "forbidden"
	case errors.Is(err, repository.ErrEventNotFound),
		errors.Is(err, repository.ErrEntryNotFound),
		errors.Is(err, repository.ErrBlockNotFound),
		errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, repository.ErrContributionNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, repository.ErrConflict):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, timetable.ErrNoRoom), errors.Is(err, timetable.ErrValidation):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, timetable.ErrUnsupportedContainer):
		status, msg = http.StatusBadRequest, err.Error()
	default:
		log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, echo.Map{"error": msg})
}

// event loads the :id event and checks that the viewer may see it, or
// manage it when manage is set.
func (h *TimetableHandler) event(c echo.Context, manage bool) (*model.Event, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	ev, err := h.Repo.GetEvent(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	v := middleware.ViewerFrom(c)
	if manage && !h.Policy.CanManage(v, ev) {
		return nil, errForbidden
	}
	if !manage && !h.Policy.CanAccess(v, ev) {
		return nil, errForbidden
	}
	return ev, nil
}

// scope returns the request scope, or a new one when the route runs
// without the scope middleware.
func (h *TimetableHandler) scope(c echo.Context) *timetable.Scope {
	if sc := timetable.ScopeFrom(c.Request().Context()); sc != nil {
		return sc
	}
	return timetable.NewScope(h.Repo)
}

// changed runs after a successful write: it drops the request scope and
// the cached responses of the event and announces the change.  Failures
// are logged; the write itself has been committed.
func (h *TimetableHandler) changed(c echo.Context, ev *model.Event, action string, entries []*model.TimetableEntry, notifications []string) {
	ctx := c.Request().Context()
	if sc := timetable.ScopeFrom(ctx); sc != nil {
		sc.Invalidate()
	}
	if h.Cache != nil {
		if err := h.Cache.InvalidateEvent(ctx, ev.ID); err != nil {
			log.Printf("handler: invalidate cache of event %d: %v", ev.ID, err)
		}
	}
	if h.Publisher == nil {
		return
	}
	ids := make([]uint64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	msg := queue.NewTimetableChangedEvent(ev.ID, action, ids, notifications, middleware.ViewerFrom(c).UserID)
	if err := h.Publisher.PublishTimetableChanged(ctx, msg); err != nil {
		log.Printf("handler: publish %s of event %d: %v", action, ev.ID, err)
	}
}
