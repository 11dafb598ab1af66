package pagination

import (
	"testing"

	apperrors "blokmap/pkg/errors"
)

func intRange(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return items
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Config
		want Config
	}{
		{"zero limit falls back", Config{Limit: 0, Offset: 3}, Config{Limit: 25, Offset: 3}},
		{"negative limit falls back", Config{Limit: -5, Offset: 0}, Config{Limit: 25, Offset: 0}},
		{"limit above cap is clamped", Config{Limit: 500, Offset: 0}, Config{Limit: QueryHardLimit, Offset: 0}},
		{"negative offset becomes zero", Config{Limit: 10, Offset: -1}, Config{Limit: 10, Offset: 0}},
		{"valid config untouched", Config{Limit: 10, Offset: 20}, Config{Limit: 10, Offset: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Normalize(25); got != tt.want {
				t.Errorf("Normalize(%+v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPaginate_EmptySetIgnoresOffset(t *testing.T) {
	result, err := Paginate([]int{}, Config{Limit: 10, Offset: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 0 || result.Truncated || len(result.Items) != 0 {
		t.Errorf("expected empty page, got %+v", result)
	}
	if result.Items == nil {
		t.Error("items must be an empty slice, not nil")
	}
}

func TestPaginate_OffsetAtEndFails(t *testing.T) {
	_, err := Paginate(intRange(5), Config{Limit: 10, Offset: 5})
	if !apperrors.HasCode(err, apperrors.CodeOffsetTooLarge) {
		t.Fatalf("expected OFFSET_TOO_LARGE at offset == total, got %v", err)
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Details["offset"] != 5 || appErr.Details["total"] != 5 {
		t.Errorf("expected offset/total details, got %v", appErr.Details)
	}
}

func TestPaginate_LastPartialPage(t *testing.T) {
	result, err := Paginate(intRange(7), Config{Limit: 5, Offset: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 7 {
		t.Errorf("expected total 7, got %d", result.Total)
	}
	if len(result.Items) != 2 || result.Items[0] != 5 || result.Items[1] != 6 {
		t.Errorf("expected items [5 6], got %v", result.Items)
	}
	if result.Truncated {
		t.Error("a 7-row set is not truncated")
	}
}

func TestPaginate_TruncatedExactlyAtHardLimit(t *testing.T) {
	result, err := Paginate(intRange(QueryHardLimit), Config{Limit: 10, Offset: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Truncated {
		t.Error("a fetch of exactly QueryHardLimit rows must be flagged truncated")
	}

	result, err = Paginate(intRange(QueryHardLimit-1), Config{Limit: 10, Offset: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Truncated {
		t.Error("a fetch below QueryHardLimit rows must not be flagged truncated")
	}
}

func TestPaginate_FullPageWithinBounds(t *testing.T) {
	result, err := Paginate(intRange(50), Config{Limit: 10, Offset: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Items) != 10 || result.Items[0] != 20 || result.Items[9] != 29 {
		t.Errorf("expected items 20..29, got %v", result.Items)
	}
}
