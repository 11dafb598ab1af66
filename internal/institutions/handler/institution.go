package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"blokmap/internal/institutions/service"
	"blokmap/pkg/config"
	httputil "blokmap/pkg/http"
	"blokmap/pkg/logger"
	"blokmap/pkg/model"
)

type InstitutionHandler struct {
	service      service.InstitutionService
	defaultLimit int
	log          *logger.Logger
}

func NewInstitutionHandler(svc service.InstitutionService, log *logger.Logger) *InstitutionHandler {
	return &InstitutionHandler{
		service:      svc,
		defaultLimit: config.DefaultPaginationLimit,
		log:          log,
	}
}

func (h *InstitutionHandler) CreateInstitution(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, err := httputil.ExtractPrincipal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var institution model.Institution
	if err := json.NewDecoder(r.Body).Decode(&institution); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.service.CreateInstitution(r.Context(), principal.ProfileID, principal.IsAdmin, &institution); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, institution)
}

func (h *InstitutionHandler) GetInstitution(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	institution, err := h.service.GetInstitution(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, institution)
}

func (h *InstitutionHandler) ListInstitutions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, err := httputil.ExtractPagination(r, h.defaultLimit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	category := strings.TrimSpace(r.URL.Query().Get("category"))
	result, err := h.service.ListInstitutions(r.Context(), category, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, result.Items, result.Total, result.Truncated, page.Limit, page.Offset)
}

func (h *InstitutionHandler) CreateAuthority(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, err := httputil.ExtractPrincipal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var authority model.Authority
	if err := json.NewDecoder(r.Body).Decode(&authority); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.service.CreateAuthority(r.Context(), principal.ProfileID, principal.IsAdmin, &authority); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, authority)
}

func (h *InstitutionHandler) GetAuthority(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	authority, err := h.service.GetAuthority(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, authority)
}

func (h *InstitutionHandler) DeleteAuthority(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := httputil.ExtractPrincipal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.DeleteAuthority(r.Context(), principal.ProfileID, principal.IsAdmin, ps.ByName("id")); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *InstitutionHandler) ListAuthorities(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	page, err := httputil.ExtractPagination(r, h.defaultLimit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.ListAuthorities(r.Context(), ps.ByName("id"), page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, result.Items, result.Total, result.Truncated, page.Limit, page.Offset)
}

func (h *InstitutionHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/institutions", h.CreateInstitution)
	router.GET("/api/v1/institutions", h.ListInstitutions)
	router.GET("/api/v1/institutions/id/:id", h.GetInstitution)
	router.GET("/api/v1/institutions/id/:id/authorities", h.ListAuthorities)
	router.POST("/api/v1/authorities", h.CreateAuthority)
	router.GET("/api/v1/authorities/id/:id", h.GetAuthority)
	router.DELETE("/api/v1/authorities/id/:id", h.DeleteAuthority)
}
