// Package http holds transport helpers shared by the resource
// handlers: JSON encoding, error rendering and HTTP middleware.
package http

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/backset/backset/kit/errors"
)

// API is a convenience wrapper for writing JSON responses and
// rendering typed errors.
type API struct {
	log        *zap.Logger
	errHandler ErrorHandler
}

// APIOptFn configures an API.
type APIOptFn func(*API)

func WithLog(log *zap.Logger) APIOptFn {
	return func(a *API) {
		a.log = log
	}
}

func NewAPI(opts ...APIOptFn) *API {
	a := &API{log: zap.NewNop()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// DecodeJSON decodes a request body, reporting malformed input as an
// unprocessable-entity error.
func (a *API) DecodeJSON(r io.Reader, v interface{}) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return &errors.Error{
			Code: errors.EUnprocessableEntity,
			Msg:  err.Error(),
		}
	}
	return nil
}

// Respond writes v as the JSON response body with the given status
// code. A nil v writes only the status code.
func (a *API) Respond(w http.ResponseWriter, r *http.Request, code int, v interface{}) {
	if v == nil {
		w.WriteHeader(code)
		return
	}

	b, err := json.Marshal(v)
	if err != nil {
		a.Err(w, r, &errors.Error{Code: errors.EInternal, Err: err})
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if _, err := w.Write(b); err != nil {
		a.log.Error("unable to write response body", zap.Error(err))
	}
}

// Err renders a typed error on the response.
func (a *API) Err(w http.ResponseWriter, r *http.Request, err error) {
	a.errHandler.HandleHTTPError(r.Context(), err, w)
}
