package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Roles recognised by the service. Clinician covers doctors and nurse
// practitioners; only clinicians may confirm extracted lab values.
const (
	RoleAdmin     = "admin"
	RoleClinician = "clinician"
	RoleStaff     = "staff"
)

// RequireRole returns middleware that checks if the user has at least one of
// the specified roles. Admin passes every check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range userRoles {
					if has == required || has == RoleAdmin {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// ClinicianChecker reports whether an actor is allowed to confirm clinical
// data. Services take this interface so tests can substitute their own.
type ClinicianChecker interface {
	IsClinician(ctx context.Context, actorID string) bool
}

// RoleClinicianChecker checks the roles carried on the request context.
type RoleClinicianChecker struct{}

func (RoleClinicianChecker) IsClinician(ctx context.Context, actorID string) bool {
	for _, role := range RolesFromContext(ctx) {
		if role == RoleClinician || role == RoleAdmin {
			return true
		}
	}
	return false
}
