package timeline

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/carelog/carelog/internal/platform/auth"
	"github.com/carelog/carelog/pkg/recerr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.RoleClinician, auth.RoleStaff))
	readGroup.GET("/patients/:patientId/timeline", h.GetTimeline)
	readGroup.GET("/patients/:patientId/timeline/events", h.GetEvents)

	writeGroup := api.Group("", auth.RequireRole(auth.RoleClinician, auth.RoleStaff))
	writeGroup.POST("/patients/:patientId/timeline/rebuild", h.RebuildTimeline)
}

func httpError(err error) error {
	return echo.NewHTTPError(recerr.HTTPStatus(err), err.Error())
}

func (h *Handler) GetTimeline(c echo.Context) error {
	tl, err := h.svc.Get(c.Request().Context(), c.Param("patientId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tl)
}

func (h *Handler) RebuildTimeline(c echo.Context) error {
	tl, err := h.svc.Rebuild(c.Request().Context(), c.Param("patientId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tl)
}

func (h *Handler) GetEvents(c echo.Context) error {
	var from, to time.Time
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from timestamp")
		}
		from = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to timestamp")
		}
		to = t
	}

	events, err := h.svc.EventsInRange(c.Request().Context(), c.Param("patientId"), from, to)
	if err != nil {
		return httpError(err)
	}

	if kind := c.QueryParam("kind"); kind != "" {
		if !EventKind(kind).Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown event kind")
		}
		filtered := events[:0]
		for _, ev := range events {
			if ev.Kind == EventKind(kind) {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}
	if events == nil {
		events = []TimelineEvent{}
	}
	return c.JSON(http.StatusOK, events)
}
