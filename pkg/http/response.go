package http

import (
	"encoding/json"
	"net/http"

	apperrors "blokmap/pkg/errors"
)

type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type SuccessResponse struct {
	Data any `json:"data,omitempty"`
}

// PaginatedResponse is the listing envelope. Total counts the hard-capped
// fetch, not the unbounded result set; Truncated signals the cap was hit.
type PaginatedResponse struct {
	Data      any  `json:"data"`
	Total     int  `json:"total"`
	Truncated bool `json:"truncated"`
	Limit     int  `json:"limit"`
	Offset    int  `json:"offset"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func WriteError(w http.ResponseWriter, err error) {
	appErr := apperrors.AsAppError(err)

	resp := ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	}
	if appErr.Code == apperrors.CodeInternal {
		// Internal causes stay in the logs.
		resp = ErrorResponse{Error: "Internal server error", Code: appErr.Code}
	}

	WriteJSON(w, appErr.HTTPStatus, resp)
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}

func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, SuccessResponse{Data: data})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func WritePaginated(w http.ResponseWriter, data any, total int, truncated bool, limit, offset int) {
	WriteJSON(w, http.StatusOK, PaginatedResponse{
		Data:      data,
		Total:     total,
		Truncated: truncated,
		Limit:     limit,
		Offset:    offset,
	})
}
