package service

import (
	"context"
	"testing"

	institutionerrors "blokmap/internal/institutions/errors"
	"blokmap/internal/institutions/validator"
	"blokmap/pkg/config"
	apperrors "blokmap/pkg/errors"
	"blokmap/pkg/logger"
	"blokmap/pkg/model"
	"blokmap/pkg/pagination"
	"blokmap/pkg/permissions"

	"go.mongodb.org/mongo-driver/bson"
)

type mockInstitutionRepository struct {
	createFunc   func(ctx context.Context, institution *model.Institution) error
	findByIDFunc func(ctx context.Context, id string) (*model.Institution, error)
	listFunc     func(ctx context.Context, match bson.M) ([]model.Institution, error)
}

func (m *mockInstitutionRepository) Create(ctx context.Context, institution *model.Institution) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, institution)
	}
	return nil
}

func (m *mockInstitutionRepository) FindByID(ctx context.Context, id string) (*model.Institution, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return &model.Institution{ID: institutionID, Name: "Ghent University", Slug: "ghent-university", Category: "education"}, nil
}

func (m *mockInstitutionRepository) List(ctx context.Context, match bson.M) ([]model.Institution, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, match)
	}
	return []model.Institution{}, nil
}

type mockAuthorityRepository struct {
	createFunc   func(ctx context.Context, authority *model.Authority) error
	findByIDFunc func(ctx context.Context, id string) (*model.Authority, error)
	deleteFunc   func(ctx context.Context, id string) error
	listFunc     func(ctx context.Context, match bson.M) ([]model.Authority, error)
}

func (m *mockAuthorityRepository) Create(ctx context.Context, authority *model.Authority) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, authority)
	}
	return nil
}

func (m *mockAuthorityRepository) FindByID(ctx context.Context, id string) (*model.Authority, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, institutionerrors.ErrAuthorityNotFound
}

func (m *mockAuthorityRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockAuthorityRepository) List(ctx context.Context, match bson.M) ([]model.Authority, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, match)
	}
	return []model.Authority{}, nil
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
	profileID     = "64f000000000000000000001"
	institutionID = "64f000000000000000000007"
	authorityID   = "64f000000000000000000006"
)

func newTestService(
	institutions *mockInstitutionRepository,
	authorities *mockAuthorityRepository,
	memberships *mockMembershipService,
) *institutionService {
	cfg := &config.Config{
		Log: logger.New(logger.Config{
			Level:   logger.LevelError,
			Format:  logger.FormatJSON,
			Service: "test",
		}),
	}
	return &institutionService{
		institutions: institutions,
		authorities:  authorities,
		memberships:  memberships,
		validator:    validator.NewInstitutionValidator(cfg.Log),
		cfg:          cfg,
	}
}

func TestCreateInstitution_AdminOnly(t *testing.T) {
	svc := newTestService(&mockInstitutionRepository{}, &mockAuthorityRepository{}, &mockMembershipService{})

	institution := &model.Institution{Name: "Ghent University", Category: "education"}
	err := svc.CreateInstitution(context.Background(), profileID, false, institution)
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN for a non-admin, got %v", err)
	}
}

func TestCreateInstitution_DerivesSlug(t *testing.T) {
	var created *model.Institution
	institutions := &mockInstitutionRepository{
		createFunc: func(ctx context.Context, institution *model.Institution) error {
			created = institution
			return nil
		},
	}

	svc := newTestService(institutions, &mockAuthorityRepository{}, &mockMembershipService{})

	institution := &model.Institution{Name: "  Ghent   University ", Category: "Education"}
	if err := svc.CreateInstitution(context.Background(), profileID, true, institution); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Slug != "ghent-university" {
		t.Errorf("expected derived slug, got %q", created.Slug)
	}
	if created.Category != "education" {
		t.Errorf("expected lowercased category, got %q", created.Category)
	}
}

func TestCreateInstitution_DuplicateSlugConflicts(t *testing.T) {
	institutions := &mockInstitutionRepository{
		createFunc: func(ctx context.Context, institution *model.Institution) error {
			return institutionerrors.ErrDuplicateSlug
		},
	}

	svc := newTestService(institutions, &mockAuthorityRepository{}, &mockMembershipService{})

	institution := &model.Institution{Name: "Ghent University", Category: "education"}
	err := svc.CreateInstitution(context.Background(), profileID, true, institution)
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected CONFLICT on a duplicate slug, got %v", err)
	}
}

func TestCreateAuthority_RequiresInstitutionPermission(t *testing.T) {
	memberships := &mockMembershipService{
		authorizeFunc: func(ctx context.Context, pID string, isAdmin bool, scopeKind, scopeID string, perms permissions.Set) error {
			if scopeKind != model.ScopeInstitution || scopeID != institutionID {
				t.Errorf("expected authorization at institution scope %s, got %s/%s", institutionID, scopeKind, scopeID)
			}
			if !perms.Contains(permissions.InstAddAuthority) {
				t.Errorf("expected InstAddAuthority to be required, got %d", perms.Bits())
			}
			return apperrors.Forbidden("insufficient permissions at this scope")
		},
	}

	svc := newTestService(&mockInstitutionRepository{}, &mockAuthorityRepository{}, memberships)

	authority := &model.Authority{InstitutionID: institutionID, Name: "Faculty of Engineering"}
	err := svc.CreateAuthority(context.Background(), profileID, false, authority)
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestCreateAuthority_UnknownInstitution(t *testing.T) {
	institutions := &mockInstitutionRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Institution, error) {
			return nil, institutionerrors.ErrInstitutionNotFound
		},
	}

	svc := newTestService(institutions, &mockAuthorityRepository{}, &mockMembershipService{})

	authority := &model.Authority{InstitutionID: institutionID, Name: "Faculty of Engineering"}
	err := svc.CreateAuthority(context.Background(), profileID, true, authority)
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for an unknown institution, got %v", err)
	}
}

func TestDeleteAuthority_AuthorizedAtOwningInstitution(t *testing.T) {
	authorities := &mockAuthorityRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Authority, error) {
			return &model.Authority{ID: authorityID, InstitutionID: institutionID, Name: "Faculty of Engineering"}, nil
		},
	}

	var gotScope string
	memberships := &mockMembershipService{
		authorizeFunc: func(ctx context.Context, pID string, isAdmin bool, scopeKind, scopeID string, perms permissions.Set) error {
			gotScope = scopeID
			if !perms.Contains(permissions.InstDeleteAuthority) {
				t.Errorf("expected InstDeleteAuthority to be required, got %d", perms.Bits())
			}
			return nil
		},
	}

	svc := newTestService(&mockInstitutionRepository{}, authorities, memberships)

	if err := svc.DeleteAuthority(context.Background(), profileID, false, authorityID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotScope != institutionID {
		t.Errorf("expected authorization against %s, got %s", institutionID, gotScope)
	}
}

func TestListInstitutions_CategoryFilter(t *testing.T) {
	var gotMatch bson.M
	institutions := &mockInstitutionRepository{
		listFunc: func(ctx context.Context, match bson.M) ([]model.Institution, error) {
			gotMatch = match
			return []model.Institution{{}}, nil
		},
	}

	svc := newTestService(institutions, &mockAuthorityRepository{}, &mockMembershipService{})

	_, err := svc.ListInstitutions(context.Background(), " Education ", pagination.Config{Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMatch["category"] != "education" {
		t.Errorf("expected normalized category filter, got %v", gotMatch)
	}
}
