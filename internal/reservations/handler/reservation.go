package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"blokmap/internal/reservations/service"
	"blokmap/pkg/config"
	apperrors "blokmap/pkg/errors"
	httputil "blokmap/pkg/http"
	"blokmap/pkg/logger"
	"blokmap/pkg/model"
	"blokmap/pkg/pagination"
	"blokmap/pkg/query"
)

type ReservationHandler struct {
	service      service.ReservationService
	defaultLimit int
	log          *logger.Logger
}

func NewReservationHandler(svc service.ReservationService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service:      svc,
		defaultLimit: config.DefaultPaginationLimit,
		log:          log,
	}
}

type createReservationRequest struct {
	OpeningTimeID  string `json:"opening_time_id"`
	BaseBlockIndex int    `json:"base_block_index"`
	BlockCount     int    `json:"block_count"`
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, err := httputil.ExtractPrincipal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req createReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "Invalid request body"})
		return
	}

	reservation, err := h.service.Create(r.Context(), principal.ProfileID, req.OpeningTimeID, req.BaseBlockIndex, req.BlockCount)
	if apperrors.IsRetryable(err) {
		// Lock contention and transient transaction aborts get one retry.
		h.log.Warn("Retrying reservation create after transient failure",
			"opening_time_id", req.OpeningTimeID, "error", err)
		reservation, err = h.service.Create(r.Context(), principal.ProfileID, req.OpeningTimeID, req.BaseBlockIndex, req.BlockCount)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, reservation)
}

func (h *ReservationHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := httputil.ExtractPrincipal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	reservation, err := h.service.GetByID(r.Context(), principal.ProfileID, principal.IsAdmin, ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, reservation)
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.applyTransition(w, r, ps, h.service.Cancel)
}

func (h *ReservationHandler) MarkPresent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.applyTransition(w, r, ps, h.service.MarkPresent)
}

func (h *ReservationHandler) MarkAbsent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.applyTransition(w, r, ps, h.service.MarkAbsent)
}

func (h *ReservationHandler) applyTransition(
	w http.ResponseWriter,
	r *http.Request,
	ps httprouter.Params,
	transition func(ctx context.Context, byProfileID string, isAdmin bool, id string) error,
) {
	principal, err := httputil.ExtractPrincipal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := transition(r.Context(), principal.ProfileID, principal.IsAdmin, ps.ByName("id")); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, err := httputil.ExtractPrincipal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	filters, includes, page, err := h.parseListing(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.ListForProfile(r.Context(), principal.ProfileID, filters, includes, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, result.Items, result.Total, result.Truncated, page.Limit, page.Offset)
}

func (h *ReservationHandler) ListForOpeningTime(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := httputil.ExtractPrincipal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	filters, includes, page, err := h.parseListing(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.ListForOpeningTime(r.Context(), principal.ProfileID, principal.IsAdmin, ps.ByName("id"), filters, includes, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, result.Items, result.Total, result.Truncated, page.Limit, page.Offset)
}

func (h *ReservationHandler) ListForLocation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := httputil.ExtractPrincipal(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	filters, includes, page, err := h.parseListing(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.ListForLocation(r.Context(), principal.ProfileID, principal.IsAdmin, ps.ByName("id"), filters, includes, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, result.Items, result.Total, result.Truncated, page.Limit, page.Offset)
}

func (h *ReservationHandler) parseListing(r *http.Request) (service.ListFilters, query.ReservationIncludes, pagination.Config, error) {
	filters, err := parseListFilters(r)
	if err != nil {
		return filters, query.ReservationIncludes{}, pagination.Config{}, err
	}

	page, err := httputil.ExtractPagination(r, h.defaultLimit)
	if err != nil {
		return filters, query.ReservationIncludes{}, pagination.Config{}, err
	}

	return filters, parseIncludes(r), page, nil
}

func parseListFilters(r *http.Request) (service.ListFilters, error) {
	queryParams := r.URL.Query()
	filters := service.ListFilters{}

	for _, state := range strings.Split(queryParams.Get("state"), ",") {
		state = strings.TrimSpace(state)
		if state == "" {
			continue
		}
		switch state {
		case model.ReservationCreated, model.ReservationCancelled, model.ReservationAbsent, model.ReservationPresent:
			filters.States = append(filters.States, state)
		default:
			return filters, apperrors.InvalidInput("unknown reservation state: " + state)
		}
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

func parseIncludes(r *http.Request) query.ReservationIncludes {
	includes := query.ReservationIncludes{}
	for _, name := range strings.Split(r.URL.Query().Get("include"), ",") {
		switch strings.TrimSpace(name) {
		case "profile":
			includes.Profile = true
		case "opening_time":
			includes.OpeningTime = true
		case "location":
			includes.Location = true
		}
	}
	return includes
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/reservations", h.Create)
	router.GET("/api/v1/reservations/id/:id", h.GetByID)
	router.POST("/api/v1/reservations/id/:id/cancel", h.Cancel)
	router.POST("/api/v1/reservations/id/:id/present", h.MarkPresent)
	router.POST("/api/v1/reservations/id/:id/absent", h.MarkAbsent)
	router.GET("/api/v1/profiles/me/reservations", h.ListMine)
	router.GET("/api/v1/opening-times/id/:id/reservations", h.ListForOpeningTime)
	router.GET("/api/v1/locations/id/:id/reservations", h.ListForLocation)
}
