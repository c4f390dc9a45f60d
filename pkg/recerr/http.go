package recerr

import "net/http"

// HTTPStatus maps an error from the record core to the status code handlers
// return for it. Unrecognized errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case IsValidation(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	case IsConflict(err):
		return http.StatusConflict
	case IsState(err):
		return http.StatusUnprocessableEntity
	case IsPermission(err):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
