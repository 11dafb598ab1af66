package service

import (
	"context"
	"testing"
	"time"

	openingtimeserrors "blokmap/internal/openingtimes/errors"
	"blokmap/internal/openingtimes/validator"
	"blokmap/pkg/config"
	apperrors "blokmap/pkg/errors"
	"blokmap/pkg/logger"
	"blokmap/pkg/model"
	"blokmap/pkg/pagination"
	"blokmap/pkg/permissions"
	"blokmap/pkg/query"

	"go.mongodb.org/mongo-driver/bson"
)

type mockOpeningTimeRepository struct {
	createFunc   func(ctx context.Context, openingTime *model.OpeningTime) error
	findByIDFunc func(ctx context.Context, id string) (*model.OpeningTime, error)
	updateFunc   func(ctx context.Context, id string, openingTime *model.OpeningTime) error
	retireFunc   func(ctx context.Context, id string) error
	listFunc     func(ctx context.Context, match bson.M, lookups []query.LookupSpec) ([]model.OpeningTimeRow, error)
}

func (m *mockOpeningTimeRepository) Create(ctx context.Context, openingTime *model.OpeningTime) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, openingTime)
	}
	return nil
}

func (m *mockOpeningTimeRepository) FindByID(ctx context.Context, id string) (*model.OpeningTime, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, openingtimeserrors.ErrNotFound
}

func (m *mockOpeningTimeRepository) Update(ctx context.Context, id string, openingTime *model.OpeningTime) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, openingTime)
	}
	return nil
}

func (m *mockOpeningTimeRepository) Retire(ctx context.Context, id string) error {
	if m.retireFunc != nil {
		return m.retireFunc(ctx, id)
	}
	return nil
}

func (m *mockOpeningTimeRepository) List(ctx context.Context, match bson.M, lookups []query.LookupSpec) ([]model.OpeningTimeRow, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, match, lookups)
	}
	return []model.OpeningTimeRow{}, nil
}

type mockMembershipService struct {
	authorizeFunc func(ctx context.Context, profileID string, isAdmin bool, scopeKind, scopeID string, perms permissions.Set) error
}

func (m *mockMembershipService) EffectivePermissions(ctx context.Context, profileID, scopeKind, scopeID string) (permissions.Set, error) {
	return permissions.Empty, nil
}

func (m *mockMembershipService) HasAny(ctx context.Context, profileID, scopeKind, scopeID string, perms permissions.Set) (bool, error) {
	return false, nil
}

func (m *mockMembershipService) Authorize(ctx context.Context, profileID string, isAdmin bool, scopeKind, scopeID string, perms permissions.Set) error {
	if m.authorizeFunc != nil {
		return m.authorizeFunc(ctx, profileID, isAdmin, scopeKind, scopeID, perms)
	}
	return nil
}

func (m *mockMembershipService) CreateRole(ctx context.Context, byProfileID string, isAdmin bool, role *model.Role) error {
	return nil
}

func (m *mockMembershipService) ListRoles(ctx context.Context, scopeKind, scopeID string) ([]*model.Role, error) {
	return nil, nil
}

func (m *mockMembershipService) AssignRole(ctx context.Context, byProfileID string, isAdmin bool, membership *model.Membership) error {
	return nil
}

func (m *mockMembershipService) RemoveMember(ctx context.Context, byProfileID string, isAdmin bool, membershipID string) error {
	return nil
}

func newTestService(repo *mockOpeningTimeRepository, memberships *mockMembershipService) *openingTimeService {
	cfg := &config.Config{
		Log: logger.New(logger.Config{
			Level:   logger.LevelError,
			Format:  logger.FormatJSON,
			Service: "test",
		}),
	}
	return &openingTimeService{
		repo:        repo,
		memberships: memberships,
		validator:   validator.NewOpeningTimeValidator(cfg.Log),
		cfg:         cfg,
	}
}

func paginationConfig(limit, offset int) pagination.Config {
	return pagination.Config{Limit: limit, Offset: offset}
}

const (
	profileID     = "64f000000000000000000001"
	locationID    = "64f000000000000000000002"
	openingTimeID = "64f000000000000000000003"
)

func validOpeningTime() *model.OpeningTime {
	return &model.OpeningTime{
		LocationID: locationID,
		Day:        time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
		StartTime:  "09:00",
		EndTime:    "10:00",
	}
}

func TestCreate_ValidWindow(t *testing.T) {
	var created *model.OpeningTime
	repo := &mockOpeningTimeRepository{
		createFunc: func(ctx context.Context, ot *model.OpeningTime) error {
			created = ot
			return nil
		},
	}

	svc := newTestService(repo, &mockMembershipService{})

	if err := svc.Create(context.Background(), profileID, true, validOpeningTime()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("expected repository create to be called")
	}
	if created.CreatedBy != profileID {
		t.Errorf("expected created_by %s, got %s", profileID, created.CreatedBy)
	}
}

func TestCreate_WindowNotDivisibleIntoBlocks(t *testing.T) {
	svc := newTestService(&mockOpeningTimeRepository{}, &mockMembershipService{})

	openingTime := validOpeningTime()
	openingTime.EndTime = "10:02"

	err := svc.Create(context.Background(), profileID, true, openingTime)
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for a 62-minute window, got %v", err)
	}
}

func TestCreate_WindowEndsBeforeStart(t *testing.T) {
	svc := newTestService(&mockOpeningTimeRepository{}, &mockMembershipService{})

	openingTime := validOpeningTime()
	openingTime.StartTime = "11:00"
	openingTime.EndTime = "10:00"

	err := svc.Create(context.Background(), profileID, true, openingTime)
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for an inverted window, got %v", err)
	}
}

func TestCreate_MalformedWallClockRejected(t *testing.T) {
	svc := newTestService(&mockOpeningTimeRepository{}, &mockMembershipService{})

	openingTime := validOpeningTime()
	openingTime.StartTime = "9:00" // not zero-padded

	err := svc.Create(context.Background(), profileID, true, openingTime)
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR for non-padded wall clock, got %v", err)
	}
}

func TestCreate_RequiresLocationPermission(t *testing.T) {
	memberships := &mockMembershipService{
		authorizeFunc: func(ctx context.Context, pID string, isAdmin bool, scopeKind, scopeID string, perms permissions.Set) error {
			if scopeKind != model.ScopeLocation || scopeID != locationID {
				t.Errorf("expected authorization at location scope %s, got %s/%s", locationID, scopeKind, scopeID)
			}
			if !perms.Contains(permissions.LocManageOpeningTimes) {
				t.Errorf("expected LocManageOpeningTimes to be required, got %d", perms.Bits())
			}
			return apperrors.Forbidden("insufficient permissions at this scope")
		},
	}

	svc := newTestService(&mockOpeningTimeRepository{}, memberships)

	err := svc.Create(context.Background(), profileID, false, validOpeningTime())
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestUpdate_MergedWindowRevalidated(t *testing.T) {
	repo := &mockOpeningTimeRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.OpeningTime, error) {
			existing := validOpeningTime()
			existing.ID = openingTimeID
			return existing, nil
		},
	}

	svc := newTestService(repo, &mockMembershipService{})

	// Moving the end to 08:30 inverts the merged window.
	updates := &model.OpeningTimeUpdate{EndTime: "08:30"}

	err := svc.Update(context.Background(), profileID, true, openingTimeID, updates)
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for merged inverted window, got %v", err)
	}
}

func TestRetire_AlreadyRetiredConflicts(t *testing.T) {
	repo := &mockOpeningTimeRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.OpeningTime, error) {
			existing := validOpeningTime()
			existing.ID = openingTimeID
			existing.Retired = true
			return existing, nil
		},
	}

	svc := newTestService(repo, &mockMembershipService{})

	err := svc.Retire(context.Background(), profileID, true, openingTimeID)
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected CONFLICT for double retire, got %v", err)
	}
}

func TestListForLocation_OffsetBeyondResults(t *testing.T) {
	repo := &mockOpeningTimeRepository{
		listFunc: func(ctx context.Context, match bson.M, lookups []query.LookupSpec) ([]model.OpeningTimeRow, error) {
			return []model.OpeningTimeRow{{}, {}}, nil
		},
	}

	svc := newTestService(repo, &mockMembershipService{})

	_, err := svc.ListForLocation(context.Background(), locationID, ListFilters{}, query.OpeningTimeIncludes{}, paginationConfig(10, 5))
	if !apperrors.HasCode(err, apperrors.CodeOffsetTooLarge) {
		t.Fatalf("expected OFFSET_TOO_LARGE, got %v", err)
	}
}

func TestListForLocation_EmptyResultIgnoresOffset(t *testing.T) {
	svc := newTestService(&mockOpeningTimeRepository{}, &mockMembershipService{})

	result, err := svc.ListForLocation(context.Background(), locationID, ListFilters{}, query.OpeningTimeIncludes{}, paginationConfig(10, 50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 0 || result.Truncated || len(result.Items) != 0 {
		t.Errorf("expected empty page, got total=%d truncated=%v items=%d", result.Total, result.Truncated, len(result.Items))
	}
}
