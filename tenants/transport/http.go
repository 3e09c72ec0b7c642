// Package transport exposes the tenant repository as a CRUD HTTP
// resource.
package transport

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"go.uber.org/zap"

	"github.com/backset/backset"
	"github.com/backset/backset/kit/errors"
	kithttp "github.com/backset/backset/kit/transport/http"
	"github.com/backset/backset/query"
)

const prefixTenants = "/tenants"

// TenantHandler is the handler for the tenant service
type TenantHandler struct {
	chi.Router

	api *kithttp.API
	log *zap.Logger

	tenantService   backset.TenantService
	defaultPageSize int64
}

func NewTenantHandler(log *zap.Logger, tenantService backset.TenantService, defaultPageSize int64) *TenantHandler {
	h := &TenantHandler{
		log:             log,
		api:             kithttp.NewAPI(kithttp.WithLog(log)),
		tenantService:   tenantService,
		defaultPageSize: defaultPageSize,
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer,
		middleware.RequestID,
		middleware.RealIP,
	)

	r.Post("/", h.handleCreateTenant)
	r.Get("/", h.handleListTenants)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGetTenant)
		r.Put("/", h.handleUpdateTenant)
		r.Delete("/", h.handleDeleteTenant)
	})

	h.Router = r

	return h
}

func (h *TenantHandler) Prefix() string {
	return prefixTenants
}

func (h *TenantHandler) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var create backset.TenantCreate
	if err := h.api.DecodeJSON(r.Body, &create); err != nil {
		h.api.Err(w, r, err)
		return
	}

	t, err := h.tenantService.CreateTenant(r.Context(), create)
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	h.api.Respond(w, r, http.StatusCreated, t)
}

func (h *TenantHandler) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	id, err := urlParam(r, "id")
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	t, err := h.tenantService.FindTenantByID(r.Context(), id)
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	h.api.Respond(w, r, http.StatusOK, t)
}

func (h *TenantHandler) handleListTenants(w http.ResponseWriter, r *http.Request) {
	qs, err := query.DecodeQuerySearch(r.URL.Query(), h.defaultPageSize)
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	page, err := h.tenantService.ListTenants(r.Context(), qs)
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	h.api.Respond(w, r, http.StatusOK, page)
}

func (h *TenantHandler) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	id, err := urlParam(r, "id")
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	var update backset.TenantUpdate
	if err := h.api.DecodeJSON(r.Body, &update); err != nil {
		h.api.Err(w, r, err)
		return
	}

	t, err := h.tenantService.UpdateTenant(r.Context(), id, update)
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	h.api.Respond(w, r, http.StatusOK, t)
}

type deletedBody struct {
	Deleted int64 `json:"deleted"`
}

func (h *TenantHandler) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	id, err := urlParam(r, "id")
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	force := false
	if v := r.URL.Query().Get("force"); v != "" {
		force, err = strconv.ParseBool(v)
		if err != nil {
			h.api.Err(w, r, &errors.Error{
				Code: errors.EInvalid,
				Msg:  fmt.Sprintf("url force flag %q is invalid", v),
			})
			return
		}
	}

	deleted, err := h.tenantService.DeleteTenant(r.Context(), id, force)
	if err != nil {
		h.api.Err(w, r, err)
		return
	}
	if deleted == 0 {
		h.api.Err(w, r, errors.NotFound("tenant", "id", id))
		return
	}

	h.api.Respond(w, r, http.StatusOK, deletedBody{Deleted: deleted})
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
