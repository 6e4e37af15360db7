package httpx

import (
	"errors"
	"net/http"
)

// ErrUnauthorized is returned by transport middleware when the host key is
// missing or does not verify. The domain packages carry their own error
// types and map them in their handlers.
var ErrUnauthorized = errors.New("unauthorized")

// RespondError maps transport-level errors to RFC7807 responses.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
