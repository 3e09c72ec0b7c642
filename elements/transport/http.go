// Package transport exposes the element repository as a CRUD HTTP
// resource scoped under its tenant.
package transport

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"go.uber.org/zap"

	"github.com/backset/backset"
	"github.com/backset/backset/kit/errors"
	kithttp "github.com/backset/backset/kit/transport/http"
	"github.com/backset/backset/query"
)

// ElementHandler serves the element routes, mounted at the router root
// so elements are addressed as /{tenant_id}/{element_id}.
type ElementHandler struct {
	chi.Router

	api *kithttp.API
	log *zap.Logger

	elementService  backset.ElementService
	defaultPageSize int64
}

func NewElementHandler(log *zap.Logger, elementService backset.ElementService, defaultPageSize int64) *ElementHandler {
	h := &ElementHandler{
		log:             log,
		api:             kithttp.NewAPI(kithttp.WithLog(log)),
		elementService:  elementService,
		defaultPageSize: defaultPageSize,
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer,
		middleware.RequestID,
		middleware.RealIP,
	)

	r.Route("/{tid}", func(r chi.Router) {
		r.Post("/", h.handleCreateElement)
		r.Get("/", h.handleListElements)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetElement)
			r.Put("/", h.handleSaveElement)
			r.Delete("/", h.handleDeleteElement)
		})
	})

	h.Router = r

	return h
}

func (h *ElementHandler) handleCreateElement(w http.ResponseWriter, r *http.Request) {
	tid, err := urlParam(r, "tid")
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	var create backset.ElementCreate
	if err := h.api.DecodeJSON(r.Body, &create); err != nil {
		h.api.Err(w, r, err)
		return
	}

	el, err := h.elementService.CreateElement(r.Context(), tid, create)
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	h.api.Respond(w, r, http.StatusCreated, el)
}

func (h *ElementHandler) handleGetElement(w http.ResponseWriter, r *http.Request) {
	tid, id, err := elementParams(r)
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	el, err := h.elementService.FindElementByID(r.Context(), tid, id)
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	h.api.Respond(w, r, http.StatusOK, el)
}

func (h *ElementHandler) handleListElements(w http.ResponseWriter, r *http.Request) {
	tid, err := urlParam(r, "tid")
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	qs, err := query.DecodeQuerySearch(r.URL.Query(), h.defaultPageSize)
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	page, err := h.elementService.ListElements(r.Context(), tid, qs)
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	h.api.Respond(w, r, http.StatusOK, page)
}

func (h *ElementHandler) handleSaveElement(w http.ResponseWriter, r *http.Request) {
	tid, id, err := elementParams(r)
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	var create backset.ElementCreate
	if err := h.api.DecodeJSON(r.Body, &create); err != nil {
		h.api.Err(w, r, err)
		return
	}

	el, err := h.elementService.SaveElement(r.Context(), tid, id, create)
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	h.api.Respond(w, r, http.StatusOK, el)
}

func (h *ElementHandler) handleDeleteElement(w http.ResponseWriter, r *http.Request) {
	tid, id, err := elementParams(r)
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	deleted, err := h.elementService.DeleteElement(r.Context(), tid, id)
	if err != nil {
		h.api.Err(w, r, err)
		return
	}
	if deleted == 0 {
		h.api.Err(w, r, errors.NotFound("element", "id", id))
		return
	}

	h.api.Respond(w, r, http.StatusNoContent, nil)
}

func elementParams(r *http.Request) (string, string, error) {
	tid, err := urlParam(r, "tid")
	if err != nil {
		return "", "", err
	}
	id, err := urlParam(r, "id")
	if err != nil {
		return "", "", err
	}
	return tid, id, nil
}

func urlParam(r *http.Request, param string) (string, error) {
	v := chi.URLParam(r, param)
	if v == "" {
		return "", &errors.Error{
			Code: errors.EInvalid,
			Msg:  fmt.Sprintf("url missing %s", param),
		}
	}
	return v, nil
}
