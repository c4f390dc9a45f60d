package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carelog/carelog/internal/platform/auth"
)

func newContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequestIDGenerated(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/")
	handler := RequestID()(func(c echo.Context) error {
		if rid, _ := c.Get("request_id").(string); rid == "" {
			t.Error("expected request_id on context")
		}
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatal(err)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected request id echoed on response")
	}
}

func TestRequestIDPropagated(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/")
	c.Request().Header.Set(RequestIDHeader, "req-abc")
	handler := RequestID()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatal(err)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "req-abc" {
		t.Errorf("expected req-abc, got %q", got)
	}
}

func TestLoggerEmitsRequestLine(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	c, _ := newContext(http.MethodGet, "/api/v1/timeline/p1")
	c.Set("request_id", "req-1")
	handler := Logger(logger)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatal(err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log output not JSON: %v", err)
	}
	if line["path"] != "/api/v1/timeline/p1" {
		t.Errorf("unexpected path: %v", line["path"])
	}
	if line["request_id"] != "req-1" {
		t.Errorf("unexpected request_id: %v", line["request_id"])
	}
}

func TestRecoveryTurnsPanicInto500(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	c, _ := newContext(http.MethodGet, "/")
	handler := Recovery(logger)(func(c echo.Context) error {
		panic("boom")
	})
	err := handler(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", httpErr.Code)
	}
	if !bytes.Contains(buf.Bytes(), []byte("panic recovered")) {
		t.Error("expected panic recovery log line")
	}
}

func TestAuditRecordsAPIAccess(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	var recorded []AuditEntry
	recorder := AuditRecorderFunc(func(e AuditEntry) error {
		recorded = append(recorded, e)
		return nil
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/PAT-1/timeline", nil)
	ctx := context.WithValue(req.Context(), auth.UserIDKey, "doc-1")
	ctx = context.WithValue(ctx, auth.UserRolesKey, []string{auth.RoleClinician})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Audit(logger, recorder)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatal(err)
	}

	if len(recorded) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(recorded))
	}
	entry := recorded[0]
	if entry.UserID != "doc-1" {
		t.Errorf("unexpected user: %q", entry.UserID)
	}
	if entry.PatientID != "PAT-1" {
		t.Errorf("unexpected patient: %q", entry.PatientID)
	}
	if entry.Resource != "patients" {
		t.Errorf("unexpected resource: %q", entry.Resource)
	}
	if entry.Action != "read" {
		t.Errorf("unexpected action: %q", entry.Action)
	}
}

func TestAuditFansOutToAllRecorders(t *testing.T) {
	logger := zerolog.Nop()

	var first, second []AuditEntry
	recordTo := func(dst *[]AuditEntry) AuditRecorder {
		return AuditRecorderFunc(func(e AuditEntry) error {
			*dst = append(*dst, e)
			return nil
		})
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/doctors", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Audit(logger, recordTo(&first), nil, recordTo(&second))(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatal(err)
	}

	if len(first) != 1 || len(second) != 1 {
		t.Errorf("expected every recorder to receive the entry, got %d and %d", len(first), len(second))
	}
}

func TestAuditSkipsNonAPIPaths(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	var recorded []AuditEntry
	recorder := AuditRecorderFunc(func(e AuditEntry) error {
		recorded = append(recorded, e)
		return nil
	})

	c, _ := newContext(http.MethodGet, "/health")
	handler := Audit(logger, recorder)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatal(err)
	}
	if len(recorded) != 0 {
		t.Errorf("expected no audit entries, got %d", len(recorded))
	}
}

func TestPatientIDFromQuery(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/api/v1/test-results?patient_id=PAT-9")
	if got := patientIDFromRequest(c); got != "PAT-9" {
		t.Errorf("expected PAT-9, got %q", got)
	}
}
