package labresult

import (
	"fmt"
	"net/http"
	"time"

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
	readGroup := api.Group("", auth.RequireRole(auth.RoleClinician, auth.RoleStaff))
	readGroup.GET("/test-results/:id", h.GetTestResult)
	readGroup.GET("/test-results/:id/file", h.DownloadFile)
	readGroup.GET("/patients/:patientId/test-results", h.ListByPatient)

	writeGroup := api.Group("", auth.RequireRole(auth.RoleClinician, auth.RoleStaff))
	writeGroup.POST("/test-results", h.Upload)
	writeGroup.POST("/test-results/:id/extraction", h.BeginExtraction)
	writeGroup.PUT("/test-results/:id/extraction", h.CompleteExtraction)
	writeGroup.DELETE("/test-results/:id/extraction", h.AbortExtraction)
	writeGroup.PATCH("/test-results/:id/lab-values/:valueId", h.EditLabValue)
	writeGroup.POST("/test-results/:id/lab-values/:valueId/confirmation", h.ConfirmLabValue)

	// Confirmation is clinician-only; the service checks the capability too.
	confirmGroup := api.Group("", auth.RequireRole(auth.RoleClinician))
	confirmGroup.POST("/test-results/:id/confirmation", h.ConfirmExtraction)
}

func httpError(err error) error {
	return echo.NewHTTPError(recerr.HTTPStatus(err), err.Error())
}

func (h *Handler) Upload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer src.Close()

	test := TestInfo{
		TestName:  c.FormValue("test_name"),
		OrderedBy: c.FormValue("ordered_by"),
		LabName:   c.FormValue("lab_name"),
	}
	if v := c.FormValue("test_date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid test_date, expected YYYY-MM-DD")
		}
		test.TestDate = &d
	}

	file := FileInfo{
		Name:        fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
	}

	tr, err := h.svc.Upload(c.Request().Context(), c.FormValue("patient_id"), c.FormValue("doctor_id"), test, file, src)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, tr)
}

func (h *Handler) GetTestResult(c echo.Context) error {
	tr, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tr)
}

func (h *Handler) DownloadFile(c echo.Context) error {
	rc, tr, err := h.svc.OpenFile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	defer rc.Close()

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, tr.File.Name))
	return c.Stream(http.StatusOK, tr.File.ContentType, rc)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), c.Param("patientId"), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	if items == nil {
		items = []*TestResult{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type beginExtractionRequest struct {
	Method string `json:"method"`
}

func (h *Handler) BeginExtraction(c echo.Context) error {
	var req beginExtractionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Method == "" {
		req.Method = "ocr"
	}
	tr, err := h.svc.BeginExtraction(c.Request().Context(), c.Param("id"), req.Method)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tr)
}

type completeExtractionRequest struct {
	RawText    string      `json:"raw_text"`
	Candidates []Candidate `json:"candidates"`
}

func (h *Handler) CompleteExtraction(c echo.Context) error {
	var req completeExtractionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	for i := range req.Candidates {
		if req.Candidates[i].UploadedBy == "" {
			req.Candidates[i].UploadedBy = actor
		}
	}
	tr, err := h.svc.CompleteExtraction(c.Request().Context(), c.Param("id"), req.RawText, req.Candidates)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tr)
}

func (h *Handler) AbortExtraction(c echo.Context) error {
	tr, err := h.svc.AbortExtraction(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tr)
}

func (h *Handler) ConfirmExtraction(c echo.Context) error {
	actor := auth.UserIDFromContext(c.Request().Context())
	tr, err := h.svc.ConfirmExtraction(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tr)
}

func (h *Handler) EditLabValue(c echo.Context) error {
	var patch LabValuePatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	lv, err := h.svc.EditLabValue(c.Request().Context(), c.Param("id"), c.Param("valueId"), patch)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, lv)
}

func (h *Handler) ConfirmLabValue(c echo.Context) error {
	actor := auth.UserIDFromContext(c.Request().Context())
	lv, err := h.svc.ConfirmLabValue(c.Request().Context(), c.Param("id"), c.Param("valueId"), actor)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, lv)
}
