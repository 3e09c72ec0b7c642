package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/backset/backset/kit/errors"
)

// ErrorCodeHeader carries the machine-readable error code of a failed
// request.
const ErrorCodeHeader = "X-Backset-Error-Code"

// ErrorHandler encodes errors with the appropriate status code and
// format and sets the ErrorCodeHeader on the response.
type ErrorHandler int

func (h ErrorHandler) HandleHTTPError(ctx context.Context, err error, w http.ResponseWriter) {
	if err == nil {
		return
	}

	code := errors.ErrorCode(err)
	httpCode, ok := statusCodeForError[code]
	if !ok {
		httpCode = http.StatusBadRequest
	}
	w.Header().Set(ErrorCodeHeader, code)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(httpCode)

	var e struct {
		Error       string             `json:"error"`
		Code        string             `json:"code"`
		FieldErrors errors.FieldErrors `json:"field_errors,omitempty"`
	}
	e.Code = code
	if code == errors.EInternal {
		// storage failures are logged with full detail server-side; the
		// client only gets a generic message
		e.Error = "An internal error has occurred"
	} else {
		e.Error = errors.ErrorMessage(err)
		e.FieldErrors = errors.ErrorFields(err)
	}

	b, _ := json.Marshal(e)
	_, _ = w.Write(b)
}

// statusCodeForError maps error codes to HTTP status codes. Conflicts
// are client faults reported as 400 rather than 409/422 to match the
// resource API contract.
var statusCodeForError = map[string]int{
	errors.EInternal:            http.StatusInternalServerError,
	errors.EInvalid:             http.StatusBadRequest,
	errors.EConflict:            http.StatusBadRequest,
	errors.ENotFound:            http.StatusNotFound,
	errors.EUnprocessableEntity: http.StatusUnprocessableEntity,
}
