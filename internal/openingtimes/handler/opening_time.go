package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"blokmap/internal/openingtimes/service"
	"blokmap/pkg/config"
	apperrors "blokmap/pkg/errors"
	httputil "blokmap/pkg/http"
	"blokmap/pkg/logger"
	"blokmap/pkg/model"
	"blokmap/pkg/query"
)

type OpeningTimeHandler struct {
	service      service.OpeningTimeService
	defaultLimit int
	log          *logger.Logger
}

func NewOpeningTimeHandler(svc service.OpeningTimeService, log *logger.Logger) *OpeningTimeHandler {
	return &OpeningTimeHandler{
		service:      svc,
		defaultLimit: config.DefaultPaginationLimit,
		log:          log,
	}
}

func (h *OpeningTimeHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, err := httputil.ExtractPrincipal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var openingTime model.OpeningTime
	if err := json.NewDecoder(r.Body).Decode(&openingTime); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.service.Create(r.Context(), principal.ProfileID, principal.IsAdmin, &openingTime); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, openingTime)
}

func (h *OpeningTimeHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "ID parameter is required"})
		return
	}

	openingTime, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, openingTime)
}

func (h *OpeningTimeHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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

	var updates model.OpeningTimeUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.service.Update(r.Context(), principal.ProfileID, principal.IsAdmin, id, &updates); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *OpeningTimeHandler) Retire(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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

	if err := h.service.Retire(r.Context(), principal.ProfileID, principal.IsAdmin, id); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *OpeningTimeHandler) ListForLocation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	locationID := ps.ByName("id")
	if locationID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "location ID parameter is required"})
		return
	}

	filters, err := parseListFilters(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := httputil.ExtractPagination(r, h.defaultLimit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.ListForLocation(r.Context(), locationID, filters, parseIncludes(r), page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, result.Items, result.Total, result.Truncated, page.Limit, page.Offset)
}

func parseListFilters(r *http.Request) (service.ListFilters, error) {
	queryParams := r.URL.Query()
	filters := service.ListFilters{
		OpenAt:         strings.TrimSpace(queryParams.Get("open_at")),
		IncludeRetired: queryParams.Get("include_retired") == "true",
	}

	for param, target := range map[string]**time.Time{
		"day":        &filters.Day,
		"start_date": &filters.StartDate,
		"end_date":   &filters.EndDate,
	} {
		value := strings.TrimSpace(queryParams.Get(param))
		if value == "" {
			continue
		}
		parsed, err := time.Parse("2006-01-02", value)
		if err != nil {
			return filters, apperrors.InvalidInput("invalid " + param + " parameter, expected YYYY-MM-DD: " + value)
		}
		*target = &parsed
	}

	return filters, nil
}

func parseIncludes(r *http.Request) query.OpeningTimeIncludes {
	includes := query.OpeningTimeIncludes{}
	for _, name := range strings.Split(r.URL.Query().Get("include"), ",") {
		switch strings.TrimSpace(name) {
		case "creator":
			includes.CreatedBy = true
		case "location":
			includes.Location = true
		}
	}
	return includes
}

func (h *OpeningTimeHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/opening-times", h.Create)
	router.GET("/api/v1/opening-times/id/:id", h.GetByID)
	router.PATCH("/api/v1/opening-times/id/:id", h.Update)
	router.DELETE("/api/v1/opening-times/id/:id", h.Retire)
	router.GET("/api/v1/locations/id/:id/opening-times", h.ListForLocation)
}
