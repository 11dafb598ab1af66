package service

import (
	"context"
	"errors"

	locationerrors "blokmap/internal/locations/errors"
	"blokmap/internal/locations/repository"
	"blokmap/internal/locations/validator"
	membershipservice "blokmap/internal/memberships/service"
	"blokmap/pkg/config"
	apperrors "blokmap/pkg/errors"
	"blokmap/pkg/model"
	"blokmap/pkg/pagination"
	"blokmap/pkg/permissions"
	"blokmap/pkg/query"
	"blokmap/pkg/sanitizer"
)

// ListFilters are the supported location listing criteria. Unset fields
// contribute nothing to the query.
type ListFilters struct {
	City        string
	AuthorityID string
	TagID       string
}

type LocationService interface {
	Create(ctx context.Context, byProfileID string, isAdmin bool, location *model.Location) error
	GetByID(ctx context.Context, id string) (*model.Location, error)
	Delete(ctx context.Context, byProfileID string, isAdmin bool, id string) error
	List(ctx context.Context, filters ListFilters, includes query.LocationIncludes, page pagination.Config) (pagination.Paginated[model.LocationRow], error)
	CreateTag(ctx context.Context, byProfileID string, isAdmin bool, tag *model.Tag) error
	ListTags(ctx context.Context) ([]model.Tag, error)
}

type locationService struct {
	repo        repository.LocationRepository
	tags        repository.TagRepository
	memberships membershipservice.MembershipService
	validator   *validator.LocationValidator
	cfg         *config.Config
}

func NewLocationService(
	repo repository.LocationRepository,
	tags repository.TagRepository,
	memberships membershipservice.MembershipService,
	validator *validator.LocationValidator,
	cfg *config.Config,
) LocationService {
	return &locationService{
		repo:        repo,
		tags:        tags,
		memberships: memberships,
		validator:   validator,
		cfg:         cfg,
	}
}

func (s *locationService) Create(ctx context.Context, byProfileID string, isAdmin bool, location *model.Location) error {
	location.Name = sanitizer.NormalizeName(location.Name)
	location.City = sanitizer.NormalizeCity(location.City)
	location.Address = sanitizer.TrimAndNormalize(location.Address)
	sanitizeTranslation(location.Description)
	sanitizeTranslation(location.Excerpt)

	if err := s.validator.Validate(location); err != nil {
		s.cfg.Log.Warn("Location validation failed", "error", err)
		return apperrors.Validation("Location validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.memberships.Authorize(ctx, byProfileID, isAdmin, model.ScopeAuthority, location.AuthorityID, permissions.AuthAddLocations); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, location); err != nil {
		s.cfg.Log.Error("Failed to create location", "error", err)
		return apperrors.Internal("Failed to create location", err)
	}

	s.cfg.Log.Info("Location created",
		"id", location.ID,
		"authority_id", location.AuthorityID,
		"name", location.Name,
		"city", location.City,
	)
	return nil
}

func (s *locationService) GetByID(ctx context.Context, id string) (*model.Location, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Location ID cannot be empty")
	}

	location, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, id)
	}

	return location, nil
}

func (s *locationService) Delete(ctx context.Context, byProfileID string, isAdmin bool, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Location ID cannot be empty")
	}

	location, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return translateRepoError(err, id)
	}

	if err := s.memberships.Authorize(ctx, byProfileID, isAdmin, model.ScopeAuthority, location.AuthorityID, permissions.AuthDeleteLocations); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return translateRepoError(err, id)
	}

	s.cfg.Log.Info("Location deleted", "id", id, "by", byProfileID)
	return nil
}

func (s *locationService) List(ctx context.Context, filters ListFilters, includes query.LocationIncludes, page pagination.Config) (pagination.Paginated[model.LocationRow], error) {
	match := query.And(
		query.CityFilter{City: sanitizer.NormalizeCity(filters.City)},
		query.AuthorityFilter{AuthorityID: filters.AuthorityID},
		query.TagFilter{TagID: filters.TagID},
	)

	rows, err := s.repo.List(ctx, match, includes.Lookups())
	if err != nil {
		s.cfg.Log.Error("Failed to list locations", "error", err)
		return pagination.Paginated[model.LocationRow]{}, apperrors.Internal("Failed to list locations", err)
	}

	return pagination.Paginate(rows, page)
}

// CreateTag registers a discovery tag. Tags span every authority, so only
// administrators manage them.
func (s *locationService) CreateTag(ctx context.Context, byProfileID string, isAdmin bool, tag *model.Tag) error {
	if !isAdmin {
		return apperrors.Forbidden("only administrators can create tags")
	}

	sanitizeTranslation(&tag.Name)
	if tag.Name.IsEmpty() {
		return apperrors.InvalidInput("Tag name needs at least one language")
	}

	if err := s.tags.Create(ctx, tag); err != nil {
		s.cfg.Log.Error("Failed to create tag", "error", err)
		return apperrors.Internal("Failed to create tag", err)
	}

	s.cfg.Log.Info("Tag created", "id", tag.ID, "by", byProfileID)
	return nil
}

func (s *locationService) ListTags(ctx context.Context) ([]model.Tag, error) {
	tags, err := s.tags.List(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list tags", "error", err)
		return nil, apperrors.Internal("Failed to list tags", err)
	}
	return tags, nil
}

func sanitizeTranslation(t *model.Translation) {
	if t == nil {
		return
	}
	t.NL = sanitizer.TrimAndNormalize(t.NL)
	t.EN = sanitizer.TrimAndNormalize(t.EN)
	t.FR = sanitizer.TrimAndNormalize(t.FR)
	t.DE = sanitizer.TrimAndNormalize(t.DE)
}

func translateRepoError(err error, id string) error {
	if errors.Is(err, locationerrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Location", id)
	}
	if errors.Is(err, locationerrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid location ID format")
	}
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Internal("Location storage operation failed", err)
}
