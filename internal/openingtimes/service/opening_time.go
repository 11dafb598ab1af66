package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	membershipservice "blokmap/internal/memberships/service"
	openingtimeserrors "blokmap/internal/openingtimes/errors"
	"blokmap/internal/openingtimes/repository"
	"blokmap/internal/openingtimes/validator"
	"blokmap/pkg/config"
	apperrors "blokmap/pkg/errors"
	"blokmap/pkg/model"
	"blokmap/pkg/pagination"
	"blokmap/pkg/permissions"
	"blokmap/pkg/query"
)

// ListFilters are the supported opening-time listing criteria. Unset fields
// contribute nothing to the query.
type ListFilters struct {
	Day            *time.Time
	StartDate      *time.Time
	EndDate        *time.Time
	OpenAt         string
	IncludeRetired bool
}

type OpeningTimeService interface {
	Create(ctx context.Context, byProfileID string, isAdmin bool, openingTime *model.OpeningTime) error
	GetByID(ctx context.Context, id string) (*model.OpeningTime, error)
	Update(ctx context.Context, byProfileID string, isAdmin bool, id string, updates *model.OpeningTimeUpdate) error
	Retire(ctx context.Context, byProfileID string, isAdmin bool, id string) error
	ListForLocation(ctx context.Context, locationID string, filters ListFilters, includes query.OpeningTimeIncludes, page pagination.Config) (pagination.Paginated[model.OpeningTimeRow], error)
}

type openingTimeService struct {
	repo        repository.OpeningTimeRepository
	memberships membershipservice.MembershipService
	validator   *validator.OpeningTimeValidator
	cfg         *config.Config
}

func NewOpeningTimeService(
	repo repository.OpeningTimeRepository,
	memberships membershipservice.MembershipService,
	validator *validator.OpeningTimeValidator,
	cfg *config.Config,
) OpeningTimeService {
	return &openingTimeService{
		repo:        repo,
		memberships: memberships,
		validator:   validator,
		cfg:         cfg,
	}
}

func (s *openingTimeService) Create(ctx context.Context, byProfileID string, isAdmin bool, openingTime *model.OpeningTime) error {
	openingTime.CreatedBy = byProfileID
	openingTime.Retired = false

	if err := s.validate(openingTime); err != nil {
		return err
	}

	if err := s.memberships.Authorize(ctx, byProfileID, isAdmin, model.ScopeLocation, openingTime.LocationID, permissions.LocManageOpeningTimes); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, openingTime); err != nil {
		s.cfg.Log.Error("Failed to create opening time", "error", err)
		return apperrors.Internal("Failed to create opening time", err)
	}

	s.cfg.Log.Info("Opening time created",
		"id", openingTime.ID,
		"location_id", openingTime.LocationID,
		"day", openingTime.Day,
		"start_time", openingTime.StartTime,
		"end_time", openingTime.EndTime,
	)
	return nil
}

func (s *openingTimeService) GetByID(ctx context.Context, id string) (*model.OpeningTime, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Opening time ID cannot be empty")
	}

	openingTime, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, id)
	}

	return openingTime, nil
}

func (s *openingTimeService) Update(ctx context.Context, byProfileID string, isAdmin bool, id string, updates *model.OpeningTimeUpdate) error {
	if id == "" {
		return apperrors.InvalidInput("Opening time ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return translateRepoError(err, id)
	}

	if err := s.memberships.Authorize(ctx, byProfileID, isAdmin, model.ScopeLocation, existing.LocationID, permissions.LocManageOpeningTimes); err != nil {
		return err
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Opening time update validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := s.mergeUpdates(existing, updates)
	if err := s.validate(merged); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, id, merged); err != nil {
		s.cfg.Log.Error("Failed to update opening time", "id", id, "error", err)
		return translateRepoError(err, id)
	}

	s.cfg.Log.Info("Opening time updated", "id", id)
	return nil
}

func (s *openingTimeService) Retire(ctx context.Context, byProfileID string, isAdmin bool, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Opening time ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return translateRepoError(err, id)
	}

	if err := s.memberships.Authorize(ctx, byProfileID, isAdmin, model.ScopeLocation, existing.LocationID, permissions.LocManageOpeningTimes); err != nil {
		return err
	}

	if existing.Retired {
		return apperrors.Conflict("opening time is already retired")
	}

	if err := s.repo.Retire(ctx, id); err != nil {
		return translateRepoError(err, id)
	}

	s.cfg.Log.Info("Opening time retired", "id", id)
	return nil
}

func (s *openingTimeService) ListForLocation(ctx context.Context, locationID string, filters ListFilters, includes query.OpeningTimeIncludes, page pagination.Config) (pagination.Paginated[model.OpeningTimeRow], error) {
	if locationID == "" {
		return pagination.Paginated[model.OpeningTimeRow]{}, apperrors.InvalidInput("Location ID cannot be empty")
	}

	match := query.And(
		query.LocationFilter{LocationID: locationID},
		query.DayFilter{Day: filters.Day},
		query.DateBoundsFilter{StartDate: filters.StartDate, EndDate: filters.EndDate},
		query.WallClockFilter{OpenAt: filters.OpenAt},
		query.RetiredFilter{IncludeRetired: filters.IncludeRetired},
	)

	rows, err := s.repo.List(ctx, match, includes.Lookups())
	if err != nil {
		s.cfg.Log.Error("Failed to list opening times", "location_id", locationID, "error", err)
		return pagination.Paginated[model.OpeningTimeRow]{}, apperrors.Internal("Failed to list opening times", err)
	}

	return pagination.Paginate(rows, page)
}

func (s *openingTimeService) validate(openingTime *model.OpeningTime) error {
	if err := s.validator.Validate(openingTime); err != nil {
		s.cfg.Log.Warn("Opening time validation failed", "error", err)
		return apperrors.Validation("Opening time validation failed", map[string]any{"error": err.Error()})
	}

	if _, err := openingTime.WindowBlockCount(); err != nil {
		return apperrors.InvalidInput(fmt.Sprintf(
			"opening window must start before it ends and divide into whole %d-minute blocks", model.BlockSizeMinutes))
	}

	return nil
}

func (s *openingTimeService) mergeUpdates(existing *model.OpeningTime, updates *model.OpeningTimeUpdate) *model.OpeningTime {
	merged := *existing

	if updates.Day != nil {
		merged.Day = *updates.Day
	}
	if updates.StartTime != "" {
		merged.StartTime = updates.StartTime
	}
	if updates.EndTime != "" {
		merged.EndTime = updates.EndTime
	}
	if updates.SeatCount != nil {
		merged.SeatCount = updates.SeatCount
	}
	if updates.ReservableFrom != nil {
		merged.ReservableFrom = updates.ReservableFrom
	}
	if updates.ReservableUntil != nil {
		merged.ReservableUntil = updates.ReservableUntil
	}

	return &merged
}

func translateRepoError(err error, id string) error {
	if errors.Is(err, openingtimeserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Opening time", id)
	}
	if errors.Is(err, openingtimeserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid opening time ID format")
	}
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Internal("Opening time storage operation failed", err)
}
