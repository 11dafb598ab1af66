package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"blokmap/internal/locations/service"
	"blokmap/pkg/config"
	httputil "blokmap/pkg/http"
	"blokmap/pkg/logger"
	"blokmap/pkg/model"
	"blokmap/pkg/query"
)

type LocationHandler struct {
	service      service.LocationService
	defaultLimit int
	log          *logger.Logger
}

func NewLocationHandler(svc service.LocationService, log *logger.Logger) *LocationHandler {
	return &LocationHandler{
		service:      svc,
		defaultLimit: config.DefaultPaginationLimit,
		log:          log,
	}
}

func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, err := httputil.ExtractPrincipal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var location model.Location
	if err := json.NewDecoder(r.Body).Decode(&location); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.service.Create(r.Context(), principal.ProfileID, principal.IsAdmin, &location); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, location)
}

func (h *LocationHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	location, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, location)
}

func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := httputil.ExtractPrincipal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), principal.ProfileID, principal.IsAdmin, ps.ByName("id")); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	queryParams := r.URL.Query()
	filters := service.ListFilters{
		City:        strings.TrimSpace(queryParams.Get("city")),
		AuthorityID: strings.TrimSpace(queryParams.Get("authority_id")),
		TagID:       strings.TrimSpace(queryParams.Get("tag_id")),
	}

	includes := query.LocationIncludes{}
	for _, name := range strings.Split(queryParams.Get("include"), ",") {
		switch strings.TrimSpace(name) {
		case "authority":
			includes.Authority = true
		case "tags":
			includes.Tags = true
		}
	}

	page, err := httputil.ExtractPagination(r, h.defaultLimit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.List(r.Context(), filters, includes, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, result.Items, result.Total, result.Truncated, page.Limit, page.Offset)
}

func (h *LocationHandler) CreateTag(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, err := httputil.ExtractPrincipal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var tag model.Tag
	if err := json.NewDecoder(r.Body).Decode(&tag); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.service.CreateTag(r.Context(), principal.ProfileID, principal.IsAdmin, &tag); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, tag)
}

func (h *LocationHandler) ListTags(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	tags, err := h.service.ListTags(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, tags)
}

func (h *LocationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/locations", h.Create)
	router.GET("/api/v1/locations", h.List)
	router.GET("/api/v1/locations/id/:id", h.GetByID)
	router.DELETE("/api/v1/locations/id/:id", h.Delete)
	router.POST("/api/v1/tags", h.CreateTag)
	router.GET("/api/v1/tags", h.ListTags)
}
