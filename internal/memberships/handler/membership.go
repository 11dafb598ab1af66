package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"blokmap/internal/memberships/service"
	httputil "blokmap/pkg/http"
	"blokmap/pkg/logger"
	"blokmap/pkg/model"
)

type MembershipHandler struct {
	service service.MembershipService
	log     *logger.Logger
}

func NewMembershipHandler(service service.MembershipService, log *logger.Logger) *MembershipHandler {
	return &MembershipHandler{
		service: service,
		log:     log,
	}
}

// EffectivePermissions returns the caller's resolved capability bitset at one
// scope instance.
func (h *MembershipHandler) EffectivePermissions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, err := httputil.ExtractPrincipal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	query := r.URL.Query()
	scopeKind := strings.TrimSpace(query.Get("scope_kind"))
	scopeID := strings.TrimSpace(query.Get("scope_id"))

	perms, err := h.service.EffectivePermissions(r.Context(), principal.ProfileID, scopeKind, scopeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]any{
		"scope_kind":  scopeKind,
		"scope_id":    scopeID,
		"permissions": perms.Bits(),
	})
}

func (h *MembershipHandler) CreateRole(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, err := httputil.ExtractPrincipal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var role model.Role
	if err := json.NewDecoder(r.Body).Decode(&role); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.service.CreateRole(r.Context(), principal.ProfileID, principal.IsAdmin, &role); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, role)
}

func (h *MembershipHandler) ListRoles(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	scopeKind := strings.TrimSpace(query.Get("scope_kind"))
	scopeID := strings.TrimSpace(query.Get("scope_id"))

	roles, err := h.service.ListRoles(r.Context(), scopeKind, scopeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, roles)
}

func (h *MembershipHandler) AssignRole(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, err := httputil.ExtractPrincipal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var membership model.Membership
	if err := json.NewDecoder(r.Body).Decode(&membership); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.service.AssignRole(r.Context(), principal.ProfileID, principal.IsAdmin, &membership); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, membership)
}

func (h *MembershipHandler) RemoveMember(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := httputil.ExtractPrincipal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	id := ps.ByName("id")
	if id == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "ID parameter is required"})
		return
	}

	if err := h.service.RemoveMember(r.Context(), principal.ProfileID, principal.IsAdmin, id); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *MembershipHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/permissions", h.EffectivePermissions)
	router.POST("/api/v1/roles", h.CreateRole)
	router.GET("/api/v1/roles", h.ListRoles)
	router.POST("/api/v1/memberships", h.AssignRole)
	router.DELETE("/api/v1/memberships/id/:id", h.RemoveMember)
}
