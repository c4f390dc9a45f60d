package reference

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carelog/carelog/internal/platform/auth"
	"github.com/carelog/carelog/pkg/pagination"
	"github.com/carelog/carelog/pkg/recerr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleClinician, auth.RoleStaff))
	g.GET("/doctors", h.ListDoctors)
	g.GET("/doctors/:id", h.GetDoctor)
	g.GET("/users/:id", h.GetUser)
	g.GET("/diseases", h.ListDiseases)
}

func httpError(err error) error {
	return echo.NewHTTPError(recerr.HTTPStatus(err), err.Error())
}

func (h *Handler) GetDoctor(c echo.Context) error {
	d, err := h.svc.GetDoctor(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDoctors(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	if items == nil {
		items = []*Doctor{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetUser(c echo.Context) error {
	u, err := h.svc.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListDiseases(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDiseases(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	if items == nil {
		items = []*Disease{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
