package service

import (
	"context"
	"testing"

	locationerrors "blokmap/internal/locations/errors"
	"blokmap/internal/locations/validator"
	"blokmap/pkg/config"
	apperrors "blokmap/pkg/errors"
	"blokmap/pkg/logger"
	"blokmap/pkg/model"
	"blokmap/pkg/pagination"
	"blokmap/pkg/permissions"
	"blokmap/pkg/query"

	"go.mongodb.org/mongo-driver/bson"
)

type mockLocationRepository struct {
	createFunc   func(ctx context.Context, location *model.Location) error
	findByIDFunc func(ctx context.Context, id string) (*model.Location, error)
	deleteFunc   func(ctx context.Context, id string) error
	listFunc     func(ctx context.Context, match bson.M, lookups []query.LookupSpec) ([]model.LocationRow, error)
}

func (m *mockLocationRepository) Create(ctx context.Context, location *model.Location) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, location)
	}
	return nil
}

func (m *mockLocationRepository) FindByID(ctx context.Context, id string) (*model.Location, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, locationerrors.ErrNotFound
}

func (m *mockLocationRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockLocationRepository) List(ctx context.Context, match bson.M, lookups []query.LookupSpec) ([]model.LocationRow, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, match, lookups)
	}
	return []model.LocationRow{}, nil
}

type mockTagRepository struct {
	createFunc func(ctx context.Context, tag *model.Tag) error
	listFunc   func(ctx context.Context) ([]model.Tag, error)
}

func (m *mockTagRepository) Create(ctx context.Context, tag *model.Tag) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, tag)
	}
	return nil
}

func (m *mockTagRepository) List(ctx context.Context) ([]model.Tag, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return []model.Tag{}, nil
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

const (
	profileID   = "64f000000000000000000001"
	locationID  = "64f000000000000000000002"
	authorityID = "64f000000000000000000006"
)

func newTestService(repo *mockLocationRepository, memberships *mockMembershipService) *locationService {
	cfg := &config.Config{
		Log: logger.New(logger.Config{
			Level:   logger.LevelError,
			Format:  logger.FormatJSON,
			Service: "test",
		}),
	}
	return &locationService{
		repo:        repo,
		tags:        &mockTagRepository{},
		memberships: memberships,
		validator:   validator.NewLocationValidator(cfg.Log),
		cfg:         cfg,
	}
}

func validLocation() *model.Location {
	return &model.Location{
		AuthorityID: authorityID,
		Name:        "  Stadsbibliotheek   De Krook ",
		City:        " Ghent ",
		Address:     "Miriam Makebaplein 1",
		SeatCount:   120,
	}
}

func TestCreate_SanitizesBeforePersisting(t *testing.T) {
	var created *model.Location
	repo := &mockLocationRepository{
		createFunc: func(ctx context.Context, location *model.Location) error {
			created = location
			return nil
		},
	}

	svc := newTestService(repo, &mockMembershipService{})

	if err := svc.Create(context.Background(), profileID, true, validLocation()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Name != "Stadsbibliotheek De Krook" {
		t.Errorf("expected normalized name, got %q", created.Name)
	}
	if created.City != "Ghent" {
		t.Errorf("expected trimmed city, got %q", created.City)
	}
}

func TestCreate_RequiresAuthorityPermission(t *testing.T) {
	memberships := &mockMembershipService{
		authorizeFunc: func(ctx context.Context, pID string, isAdmin bool, scopeKind, scopeID string, perms permissions.Set) error {
			if scopeKind != model.ScopeAuthority || scopeID != authorityID {
				t.Errorf("expected authorization at authority scope %s, got %s/%s", authorityID, scopeKind, scopeID)
			}
			if !perms.Contains(permissions.AuthAddLocations) {
				t.Errorf("expected AuthAddLocations to be required, got %d", perms.Bits())
			}
			return apperrors.Forbidden("insufficient permissions at this scope")
		},
	}

	svc := newTestService(&mockLocationRepository{}, memberships)

	err := svc.Create(context.Background(), profileID, false, validLocation())
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestCreate_MissingSeatCountRejected(t *testing.T) {
	svc := newTestService(&mockLocationRepository{}, &mockMembershipService{})

	location := validLocation()
	location.SeatCount = 0

	err := svc.Create(context.Background(), profileID, true, location)
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR without a seat count, got %v", err)
	}
}

func TestDelete_AuthorizedAtOwningAuthority(t *testing.T) {
	repo := &mockLocationRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Location, error) {
			return &model.Location{ID: locationID, AuthorityID: authorityID, SeatCount: 10}, nil
		},
	}

	var gotScope string
	memberships := &mockMembershipService{
		authorizeFunc: func(ctx context.Context, pID string, isAdmin bool, scopeKind, scopeID string, perms permissions.Set) error {
			gotScope = scopeID
			if !perms.Contains(permissions.AuthDeleteLocations) {
				t.Errorf("expected AuthDeleteLocations to be required, got %d", perms.Bits())
			}
			return nil
		},
	}

	svc := newTestService(repo, memberships)

	if err := svc.Delete(context.Background(), profileID, false, locationID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotScope != authorityID {
		t.Errorf("expected authorization against %s, got %s", authorityID, gotScope)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	svc := newTestService(&mockLocationRepository{}, &mockMembershipService{})

	_, err := svc.GetByID(context.Background(), locationID)
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestCreateTag_AdminOnly(t *testing.T) {
	svc := newTestService(&mockLocationRepository{}, &mockMembershipService{})

	tag := &model.Tag{Name: model.Translation{EN: "Silent study"}}
	err := svc.CreateTag(context.Background(), profileID, false, tag)
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN for a non-admin, got %v", err)
	}
}

func TestCreateTag_RequiresTranslatedName(t *testing.T) {
	svc := newTestService(&mockLocationRepository{}, &mockMembershipService{})

	tag := &model.Tag{Name: model.Translation{EN: "   "}}
	err := svc.CreateTag(context.Background(), profileID, true, tag)
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for a nameless tag, got %v", err)
	}
}

func TestCreateTag_SanitizesName(t *testing.T) {
	var created *model.Tag
	svc := newTestService(&mockLocationRepository{}, &mockMembershipService{})
	svc.tags = &mockTagRepository{
		createFunc: func(ctx context.Context, tag *model.Tag) error {
			created = tag
			return nil
		},
	}

	tag := &model.Tag{Name: model.Translation{NL: "  Stille   studie ", EN: "Silent study"}}
	if err := svc.CreateTag(context.Background(), profileID, true, tag); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Name.NL != "Stille studie" {
		t.Errorf("expected normalized tag name, got %q", created.Name.NL)
	}
}

func TestList_TagFilter(t *testing.T) {
	tagID := "64f000000000000000000008"
	var gotMatch bson.M
	var gotLookups []query.LookupSpec
	repo := &mockLocationRepository{
		listFunc: func(ctx context.Context, match bson.M, lookups []query.LookupSpec) ([]model.LocationRow, error) {
			gotMatch = match
			gotLookups = lookups
			return []model.LocationRow{{}}, nil
		},
	}

	svc := newTestService(repo, &mockMembershipService{})

	_, err := svc.List(context.Background(), ListFilters{TagID: tagID}, query.LocationIncludes{Tags: true}, pagination.Config{Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMatch["tag_ids"] != tagID {
		t.Errorf("expected a tag_ids filter, got %v", gotMatch)
	}
	if len(gotLookups) != 1 || gotLookups[0].From != "tags" || !gotLookups[0].Many {
		t.Errorf("expected the tags lookup, got %v", gotLookups)
	}
}

func TestList_CityFilterIsNormalized(t *testing.T) {
	var gotMatch bson.M
	repo := &mockLocationRepository{
		listFunc: func(ctx context.Context, match bson.M, lookups []query.LookupSpec) ([]model.LocationRow, error) {
			gotMatch = match
			return []model.LocationRow{{}}, nil
		},
	}

	svc := newTestService(repo, &mockMembershipService{})

	_, err := svc.List(context.Background(), ListFilters{City: "  Ghent  "}, query.LocationIncludes{}, pagination.Config{Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMatch["city"] != "Ghent" {
		t.Errorf("expected normalized city filter, got %v", gotMatch)
	}
}
