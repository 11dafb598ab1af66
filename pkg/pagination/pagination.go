// Package pagination implements the bounded pagination contract shared by
// every listing endpoint. Fetches are hard-capped at QueryHardLimit rows
// before pagination is applied, so Total is the size of the capped fetch,
// not the true unbounded row count; Truncated tells the caller the cap was
// hit and more rows may exist. This trades an exact count for one query per
// list request and is kept deliberately.
package pagination

import apperrors "blokmap/pkg/errors"

// QueryHardLimit is the maximum row count any single listing fetch returns.
const QueryHardLimit = 100

type Config struct {
	Limit  int
	Offset int
}

type Paginated[T any] struct {
	Total     int  `json:"total"`
	Truncated bool `json:"truncated"`
	Items     []T  `json:"items"`
}

// Normalize clamps the config to sane bounds: a non-positive limit falls back
// to the default, a limit above the hard cap is reduced to it, and a negative
// offset becomes zero.
func (c Config) Normalize(defaultLimit int) Config {
	if c.Limit <= 0 {
		c.Limit = defaultLimit
	}
	if c.Limit > QueryHardLimit {
		c.Limit = QueryHardLimit
	}
	if c.Offset < 0 {
		c.Offset = 0
	}
	return c
}

// Paginate slices an already filtered, already hard-capped result set.
// An empty set paginates to an empty page regardless of offset; a non-empty
// set with offset at or past the end is a caller error.
func Paginate[T any](items []T, cfg Config) (Paginated[T], error) {
	total := len(items)

	if total == 0 {
		return Paginated[T]{Total: 0, Truncated: false, Items: []T{}}, nil
	}

	if cfg.Offset >= total {
		return Paginated[T]{}, apperrors.OffsetTooLarge(cfg.Offset, total)
	}

	truncated := total == QueryHardLimit

	limit := cfg.Limit
	if remaining := total - cfg.Offset; limit > remaining {
		limit = remaining
	}

	return Paginated[T]{
		Total:     total,
		Truncated: truncated,
		Items:     items[cfg.Offset : cfg.Offset+limit],
	}, nil
}
