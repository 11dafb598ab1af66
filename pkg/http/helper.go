package http

import (
	"net/http"
	"strconv"

	apperrors "blokmap/pkg/errors"
	"blokmap/pkg/pagination"
)

// Headers set by the authentication layer in front of this service. The core
// never authenticates credentials itself.
const (
	HeaderProfileID = "X-Profile-ID"
	HeaderIsAdmin   = "X-Is-Admin"
)

// Principal is the authenticated caller as asserted by the auth layer.
type Principal struct {
	ProfileID string
	IsAdmin   bool
}

func ExtractPrincipal(r *http.Request) (Principal, error) {
	profileID := r.Header.Get(HeaderProfileID)
	if profileID == "" {
		return Principal{}, apperrors.Forbidden("missing authenticated profile")
	}

	return Principal{
		ProfileID: profileID,
		IsAdmin:   r.Header.Get(HeaderIsAdmin) == "true",
	}, nil
}

func ExtractPagination(r *http.Request, defaultLimit int) (pagination.Config, error) {
	query := r.URL.Query()

	cfg := pagination.Config{}

	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return cfg, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		cfg.Limit = v
	}

	if s := query.Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return cfg, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		cfg.Offset = v
	}

	return cfg.Normalize(defaultLimit), nil
}
