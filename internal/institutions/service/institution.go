package service

import (
	"context"
	"errors"

	institutionerrors "blokmap/internal/institutions/errors"
	"blokmap/internal/institutions/repository"
	"blokmap/internal/institutions/validator"
	membershipservice "blokmap/internal/memberships/service"
	"blokmap/pkg/config"
	apperrors "blokmap/pkg/errors"
	"blokmap/pkg/model"
	"blokmap/pkg/pagination"
	"blokmap/pkg/permissions"
	"blokmap/pkg/query"
	"blokmap/pkg/sanitizer"
)

type InstitutionService interface {
	// CreateInstitution is reserved for platform administrators; there is no
	// broader scope an institution could be authorized against.
	CreateInstitution(ctx context.Context, byProfileID string, isAdmin bool, institution *model.Institution) error
	GetInstitution(ctx context.Context, id string) (*model.Institution, error)
	ListInstitutions(ctx context.Context, category string, page pagination.Config) (pagination.Paginated[model.Institution], error)
	CreateAuthority(ctx context.Context, byProfileID string, isAdmin bool, authority *model.Authority) error
	GetAuthority(ctx context.Context, id string) (*model.Authority, error)
	DeleteAuthority(ctx context.Context, byProfileID string, isAdmin bool, id string) error
	ListAuthorities(ctx context.Context, institutionID string, page pagination.Config) (pagination.Paginated[model.Authority], error)
}

type institutionService struct {
	institutions repository.InstitutionRepository
	authorities  repository.AuthorityRepository
	memberships  membershipservice.MembershipService
	validator    *validator.InstitutionValidator
	cfg          *config.Config
}

func NewInstitutionService(
	institutions repository.InstitutionRepository,
	authorities repository.AuthorityRepository,
	memberships membershipservice.MembershipService,
	validator *validator.InstitutionValidator,
	cfg *config.Config,
) InstitutionService {
	return &institutionService{
		institutions: institutions,
		authorities:  authorities,
		memberships:  memberships,
		validator:    validator,
		cfg:          cfg,
	}
}

func (s *institutionService) CreateInstitution(ctx context.Context, byProfileID string, isAdmin bool, institution *model.Institution) error {
	if !isAdmin {
		return apperrors.Forbidden("only administrators can create institutions")
	}

	institution.Name = sanitizer.NormalizeName(institution.Name)
	institution.Category = sanitizer.NormalizeCategory(institution.Category)
	if institution.Slug == "" {
		institution.Slug = sanitizer.Slugify(institution.Name)
	}

	if err := s.validator.ValidateInstitution(institution); err != nil {
		s.cfg.Log.Warn("Institution validation failed", "error", err)
		return apperrors.Validation("Institution validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.institutions.Create(ctx, institution); err != nil {
		if errors.Is(err, institutionerrors.ErrDuplicateSlug) {
			return apperrors.Conflict("an institution with this slug already exists")
		}
		s.cfg.Log.Error("Failed to create institution", "error", err)
		return apperrors.Internal("Failed to create institution", err)
	}

	s.cfg.Log.Info("Institution created", "id", institution.ID, "slug", institution.Slug, "by", byProfileID)
	return nil
}

func (s *institutionService) GetInstitution(ctx context.Context, id string) (*model.Institution, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Institution ID cannot be empty")
	}

	institution, err := s.institutions.FindByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, id)
	}

	return institution, nil
}

func (s *institutionService) ListInstitutions(ctx context.Context, category string, page pagination.Config) (pagination.Paginated[model.Institution], error) {
	match := query.And(
		query.CategoryFilter{Category: sanitizer.NormalizeCategory(category)},
	)

	institutions, err := s.institutions.List(ctx, match)
	if err != nil {
		s.cfg.Log.Error("Failed to list institutions", "error", err)
		return pagination.Paginated[model.Institution]{}, apperrors.Internal("Failed to list institutions", err)
	}

	return pagination.Paginate(institutions, page)
}

func (s *institutionService) CreateAuthority(ctx context.Context, byProfileID string, isAdmin bool, authority *model.Authority) error {
	authority.Name = sanitizer.NormalizeName(authority.Name)
	authority.Description = sanitizer.TrimAndNormalize(authority.Description)

	if err := s.validator.ValidateAuthority(authority); err != nil {
		s.cfg.Log.Warn("Authority validation failed", "error", err)
		return apperrors.Validation("Authority validation failed", map[string]any{"error": err.Error()})
	}

	if _, err := s.institutions.FindByID(ctx, authority.InstitutionID); err != nil {
		return translateRepoError(err, authority.InstitutionID)
	}

	if err := s.memberships.Authorize(ctx, byProfileID, isAdmin, model.ScopeInstitution, authority.InstitutionID, permissions.InstAddAuthority); err != nil {
		return err
	}

	if err := s.authorities.Create(ctx, authority); err != nil {
		s.cfg.Log.Error("Failed to create authority", "error", err)
		return apperrors.Internal("Failed to create authority", err)
	}

	s.cfg.Log.Info("Authority created", "id", authority.ID, "institution_id", authority.InstitutionID, "by", byProfileID)
	return nil
}

func (s *institutionService) GetAuthority(ctx context.Context, id string) (*model.Authority, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Authority ID cannot be empty")
	}

	authority, err := s.authorities.FindByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, id)
	}

	return authority, nil
}

func (s *institutionService) DeleteAuthority(ctx context.Context, byProfileID string, isAdmin bool, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Authority ID cannot be empty")
	}

	authority, err := s.authorities.FindByID(ctx, id)
	if err != nil {
		return translateRepoError(err, id)
	}

	if err := s.memberships.Authorize(ctx, byProfileID, isAdmin, model.ScopeInstitution, authority.InstitutionID, permissions.InstDeleteAuthority); err != nil {
		return err
	}

	if err := s.authorities.Delete(ctx, id); err != nil {
		return translateRepoError(err, id)
	}

	s.cfg.Log.Info("Authority deleted", "id", id, "by", byProfileID)
	return nil
}

func (s *institutionService) ListAuthorities(ctx context.Context, institutionID string, page pagination.Config) (pagination.Paginated[model.Authority], error) {
	if institutionID == "" {
		return pagination.Paginated[model.Authority]{}, apperrors.InvalidInput("Institution ID cannot be empty")
	}

	match := query.And(
		query.InstitutionFilter{InstitutionID: institutionID},
	)

	authorities, err := s.authorities.List(ctx, match)
	if err != nil {
		s.cfg.Log.Error("Failed to list authorities", "institution_id", institutionID, "error", err)
		return pagination.Paginated[model.Authority]{}, apperrors.Internal("Failed to list authorities", err)
	}

	return pagination.Paginate(authorities, page)
}

func translateRepoError(err error, id string) error {
	if errors.Is(err, institutionerrors.ErrInstitutionNotFound) {
		return apperrors.NotFoundWithID("Institution", id)
	}
	if errors.Is(err, institutionerrors.ErrAuthorityNotFound) {
		return apperrors.NotFoundWithID("Authority", id)
	}
	if errors.Is(err, institutionerrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid ID format")
	}
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Internal("Institution storage operation failed", err)
}
