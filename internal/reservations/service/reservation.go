package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	membershipservice "blokmap/internal/memberships/service"
	openingtimeserrors "blokmap/internal/openingtimes/errors"
	reservationerrors "blokmap/internal/reservations/errors"
	"blokmap/internal/reservations/repository"
	"blokmap/internal/reservations/validator"
	"blokmap/pkg/config"
	apperrors "blokmap/pkg/errors"
	"blokmap/pkg/model"
	"blokmap/pkg/pagination"
	"blokmap/pkg/permissions"
	"blokmap/pkg/query"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// OpeningTimeReader is the slice of the opening-time repository the service
// needs to resolve windows and check reservability.
type OpeningTimeReader interface {
	FindByID(ctx context.Context, id string) (*model.OpeningTime, error)
}

// LocationReader resolves the owning location for capacity and block caps.
type LocationReader interface {
	FindByID(ctx context.Context, id string) (*model.Location, error)
}

// ListFilters are the supported reservation listing criteria. Unset fields
// contribute nothing to the query.
type ListFilters struct {
	States    []string
	Day       *time.Time
	StartDate *time.Time
	EndDate   *time.Time
}

type ReservationService interface {
	Create(ctx context.Context, profileID, openingTimeID string, baseBlockIndex, blockCount int) (*model.Reservation, error)
	GetByID(ctx context.Context, byProfileID string, isAdmin bool, id string) (*model.Reservation, error)
	Cancel(ctx context.Context, byProfileID string, isAdmin bool, id string) error
	MarkPresent(ctx context.Context, byProfileID string, isAdmin bool, id string) error
	MarkAbsent(ctx context.Context, byProfileID string, isAdmin bool, id string) error
	ListForProfile(ctx context.Context, profileID string, filters ListFilters, includes query.ReservationIncludes, page pagination.Config) (pagination.Paginated[model.ReservationRow], error)
	ListForOpeningTime(ctx context.Context, byProfileID string, isAdmin bool, openingTimeID string, filters ListFilters, includes query.ReservationIncludes, page pagination.Config) (pagination.Paginated[model.ReservationRow], error)
	ListForLocation(ctx context.Context, byProfileID string, isAdmin bool, locationID string, filters ListFilters, includes query.ReservationIncludes, page pagination.Config) (pagination.Paginated[model.ReservationRow], error)
}

type reservationService struct {
	repo         repository.ReservationRepository
	locks        repository.ReservationLockRepository
	openingTimes OpeningTimeReader
	locations    LocationReader
	memberships  membershipservice.MembershipService
	publisher    EventPublisher
	validator    *validator.ReservationValidator
	cfg          *config.Config
	now          func() time.Time
}

func NewReservationService(
	repo repository.ReservationRepository,
	locks repository.ReservationLockRepository,
	openingTimes OpeningTimeReader,
	locations LocationReader,
	memberships membershipservice.MembershipService,
	publisher EventPublisher,
	validator *validator.ReservationValidator,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		repo:         repo,
		locks:        locks,
		openingTimes: openingTimes,
		locations:    locations,
		memberships:  memberships,
		publisher:    publisher,
		validator:    validator,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (s *reservationService) Create(ctx context.Context, profileID, openingTimeID string, baseBlockIndex, blockCount int) (*model.Reservation, error) {
	if profileID == "" {
		return nil, apperrors.InvalidInput("Profile ID cannot be empty")
	}
	if openingTimeID == "" {
		return nil, apperrors.InvalidInput("Opening time ID cannot be empty")
	}

	openingTime, err := s.openingTimes.FindByID(ctx, openingTimeID)
	if err != nil {
		return nil, translateOpeningTimeError(err, openingTimeID)
	}
	if openingTime.Retired {
		return nil, apperrors.Conflict("opening time is retired and cannot be reserved")
	}

	if err := s.checkReservableWindow(openingTime); err != nil {
		return nil, err
	}

	windowBlocks, err := openingTime.WindowBlockCount()
	if err != nil {
		s.cfg.Log.Error("Stored opening time has an invalid window",
			"opening_time_id", openingTimeID, "error", err)
		return nil, apperrors.Internal("Opening time window is invalid", err)
	}

	if blockCount < 1 || baseBlockIndex < 0 || baseBlockIndex+blockCount > windowBlocks {
		return nil, apperrors.InvalidInput("requested blocks fall outside the opening window").WithDetails(map[string]any{
			"base_block_index": baseBlockIndex,
			"block_count":      blockCount,
			"window_blocks":    windowBlocks,
		})
	}

	location, err := s.locations.FindByID(ctx, openingTime.LocationID)
	if err != nil {
		s.cfg.Log.Error("Failed to load location for reservation",
			"location_id", openingTime.LocationID, "error", err)
		return nil, apperrors.Internal("Failed to load location", err)
	}

	if location.MaxReservationBlocks != nil && blockCount > *location.MaxReservationBlocks {
		return nil, apperrors.InvalidInput(fmt.Sprintf(
			"reservation exceeds the location's maximum of %d blocks", *location.MaxReservationBlocks))
	}

	seats := openingTime.EffectiveSeatCount(location)

	reservation := &model.Reservation{
		ProfileID:      profileID,
		OpeningTimeID:  openingTimeID,
		LocationID:     openingTime.LocationID,
		Day:            openingTime.Day.UTC().Truncate(24 * time.Hour),
		BaseBlockIndex: baseBlockIndex,
		BlockCount:     blockCount,
		State:          model.ReservationCreated,
	}

	if err := s.validator.Validate(reservation); err != nil {
		s.cfg.Log.Warn("Reservation validation failed", "error", err)
		return nil, apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()})
	}

	// The advisory lock serializes creators per opening time; the transaction
	// makes the occupancy read and the insert atomic against anything that
	// slipped past an expired lock.
	lock, err := s.locks.Acquire(ctx, openingTimeID, s.cfg.ReservationLockTTL)
	if err != nil {
		if errors.Is(err, reservationerrors.ErrLockHeld) {
			conflict := apperrors.Conflict("opening time is being reserved by another request")
			conflict.Retryable = true
			return nil, conflict
		}
		return nil, apperrors.Internal("Failed to acquire reservation lock", err)
	}
	defer func() {
		if releaseErr := s.locks.Release(ctx, lock); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release reservation lock",
				"opening_time_id", openingTimeID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		spans, err := s.repo.SpansForOpeningTime(sessCtx, openingTimeID)
		if err != nil {
			return apperrors.Internal("Failed to load reservation occupancy", err)
		}

		if full := fullBlocks(spans, baseBlockIndex, blockCount, seats); len(full) > 0 {
			return apperrors.CapacityExceeded(full)
		}

		if err := s.repo.Create(sessCtx, reservation); err != nil {
			return apperrors.Internal("Failed to create reservation", err)
		}
		return nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Internal("Reservation transaction failed", err)
	}

	s.cfg.Log.Info("Reservation created",
		"id", reservation.ID,
		"opening_time_id", openingTimeID,
		"profile_id", profileID,
		"base_block_index", baseBlockIndex,
		"block_count", blockCount,
	)
	s.publishEvent(ctx, EventReservationCreated, reservation)

	return reservation, nil
}

func (s *reservationService) GetByID(ctx context.Context, byProfileID string, isAdmin bool, id string) (*model.Reservation, error) {
	reservation, err := s.findReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeActor(ctx, byProfileID, isAdmin, reservation, staffPermissions(), true); err != nil {
		return nil, err
	}

	return reservation, nil
}

func (s *reservationService) Cancel(ctx context.Context, byProfileID string, isAdmin bool, id string) error {
	reservation, err := s.findReservation(ctx, id)
	if err != nil {
		return err
	}

	// The owner may always cancel; otherwise location staff or an admin.
	if err := s.authorizeActor(ctx, byProfileID, isAdmin, reservation, staffPermissions(), true); err != nil {
		return err
	}

	if reservation.State != model.ReservationCreated {
		return apperrors.InvalidTransition(reservation.State, model.ReservationCancelled)
	}

	if err := s.transition(ctx, reservation, model.ReservationCancelled, nil); err != nil {
		return err
	}

	s.cfg.Log.Info("Reservation cancelled", "id", id, "by", byProfileID)
	s.publishEvent(ctx, EventReservationCancelled, reservation)
	return nil
}

func (s *reservationService) MarkPresent(ctx context.Context, byProfileID string, isAdmin bool, id string) error {
	return s.recordAttendance(ctx, byProfileID, isAdmin, id, model.ReservationPresent)
}

func (s *reservationService) MarkAbsent(ctx context.Context, byProfileID string, isAdmin bool, id string) error {
	return s.recordAttendance(ctx, byProfileID, isAdmin, id, model.ReservationAbsent)
}

// recordAttendance moves a created reservation to present or absent. Only
// location staff may record attendance, and only while the check-in window is
// open: from the first reserved block's start until the last block's end plus
// the configured grace period.
func (s *reservationService) recordAttendance(ctx context.Context, byProfileID string, isAdmin bool, id, toState string) error {
	reservation, err := s.findReservation(ctx, id)
	if err != nil {
		return err
	}

	if err := s.authorizeActor(ctx, byProfileID, isAdmin, reservation, permissions.LocConfirmReservations, false); err != nil {
		return err
	}

	if reservation.State != model.ReservationCreated {
		return apperrors.InvalidTransition(reservation.State, toState)
	}

	openingTime, err := s.openingTimes.FindByID(ctx, reservation.OpeningTimeID)
	if err != nil {
		return translateOpeningTimeError(err, reservation.OpeningTimeID)
	}

	start, err := openingTime.BlockStart(reservation.BaseBlockIndex)
	if err != nil {
		return apperrors.Internal("Opening time window is invalid", err)
	}
	end, err := openingTime.BlockStart(reservation.BaseBlockIndex + reservation.BlockCount)
	if err != nil {
		return apperrors.Internal("Opening time window is invalid", err)
	}

	now := s.now().UTC()
	if now.Before(start) || now.After(end.Add(s.cfg.CheckInGrace)) {
		return apperrors.InvalidTransition(reservation.State, toState).WithDetails(map[string]any{
			"from":            reservation.State,
			"to":              toState,
			"check_in_opens":  start,
			"check_in_closes": end.Add(s.cfg.CheckInGrace),
		})
	}

	var confirmedAt *time.Time
	if toState == model.ReservationPresent {
		confirmedAt = &now
	}

	if err := s.transition(ctx, reservation, toState, confirmedAt); err != nil {
		return err
	}

	s.cfg.Log.Info("Reservation attendance recorded", "id", id, "state", toState, "by", byProfileID)
	if toState == model.ReservationPresent {
		s.publishEvent(ctx, EventReservationPresent, reservation)
	} else {
		s.publishEvent(ctx, EventReservationAbsent, reservation)
	}
	return nil
}

func (s *reservationService) ListForProfile(ctx context.Context, profileID string, filters ListFilters, includes query.ReservationIncludes, page pagination.Config) (pagination.Paginated[model.ReservationRow], error) {
	if profileID == "" {
		return pagination.Paginated[model.ReservationRow]{}, apperrors.InvalidInput("Profile ID cannot be empty")
	}

	match := query.And(
		query.ProfileFilter{ProfileID: profileID},
		query.StateFilter{States: filters.States},
		query.DayFilter{Day: filters.Day},
		query.DateBoundsFilter{StartDate: filters.StartDate, EndDate: filters.EndDate},
	)

	return s.list(ctx, match, includes, page)
}

func (s *reservationService) ListForOpeningTime(ctx context.Context, byProfileID string, isAdmin bool, openingTimeID string, filters ListFilters, includes query.ReservationIncludes, page pagination.Config) (pagination.Paginated[model.ReservationRow], error) {
	if openingTimeID == "" {
		return pagination.Paginated[model.ReservationRow]{}, apperrors.InvalidInput("Opening time ID cannot be empty")
	}

	openingTime, err := s.openingTimes.FindByID(ctx, openingTimeID)
	if err != nil {
		return pagination.Paginated[model.ReservationRow]{}, translateOpeningTimeError(err, openingTimeID)
	}

	if err := s.memberships.Authorize(ctx, byProfileID, isAdmin, model.ScopeLocation, openingTime.LocationID, staffPermissions()); err != nil {
		return pagination.Paginated[model.ReservationRow]{}, err
	}

	match := query.And(
		query.OpeningTimeFilter{OpeningTimeID: openingTimeID},
		query.StateFilter{States: filters.States},
	)

	return s.list(ctx, match, includes, page)
}

func (s *reservationService) ListForLocation(ctx context.Context, byProfileID string, isAdmin bool, locationID string, filters ListFilters, includes query.ReservationIncludes, page pagination.Config) (pagination.Paginated[model.ReservationRow], error) {
	if locationID == "" {
		return pagination.Paginated[model.ReservationRow]{}, apperrors.InvalidInput("Location ID cannot be empty")
	}

	if err := s.memberships.Authorize(ctx, byProfileID, isAdmin, model.ScopeLocation, locationID, staffPermissions()); err != nil {
		return pagination.Paginated[model.ReservationRow]{}, err
	}

	match := query.And(
		query.LocationFilter{LocationID: locationID},
		query.StateFilter{States: filters.States},
		query.DayFilter{Day: filters.Day},
		query.DateBoundsFilter{StartDate: filters.StartDate, EndDate: filters.EndDate},
	)

	return s.list(ctx, match, includes, page)
}

func (s *reservationService) list(ctx context.Context, match bson.M, includes query.ReservationIncludes, page pagination.Config) (pagination.Paginated[model.ReservationRow], error) {
	rows, err := s.repo.List(ctx, match, includes.Lookups())
	if err != nil {
		s.cfg.Log.Error("Failed to list reservations", "error", err)
		return pagination.Paginated[model.ReservationRow]{}, apperrors.Internal("Failed to list reservations", err)
	}

	return pagination.Paginate(rows, page)
}

func (s *reservationService) findReservation(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, id)
	}

	return reservation, nil
}

// authorizeActor grants access to the reservation owner (when ownerAllowed),
// admins, or holders of the given location-scope capabilities.
func (s *reservationService) authorizeActor(ctx context.Context, byProfileID string, isAdmin bool, reservation *model.Reservation, perms permissions.Set, ownerAllowed bool) error {
	if ownerAllowed && byProfileID == reservation.ProfileID {
		return nil
	}
	return s.memberships.Authorize(ctx, byProfileID, isAdmin, model.ScopeLocation, reservation.LocationID, perms)
}

func (s *reservationService) checkReservableWindow(openingTime *model.OpeningTime) error {
	now := s.now().UTC()
	if openingTime.ReservableFrom != nil && now.Before(*openingTime.ReservableFrom) {
		return apperrors.OutsideReservationWindow("opening time is not yet open for reservations")
	}
	if openingTime.ReservableUntil != nil && now.After(*openingTime.ReservableUntil) {
		return apperrors.OutsideReservationWindow("opening time is no longer open for reservations")
	}
	return nil
}

func (s *reservationService) transition(ctx context.Context, reservation *model.Reservation, toState string, confirmedAt *time.Time) error {
	err := s.repo.UpdateState(ctx, reservation.ID, reservation.State, toState, confirmedAt)
	if err != nil {
		if errors.Is(err, reservationerrors.ErrStateChanged) {
			return apperrors.Conflict("reservation state changed concurrently, reload and retry")
		}
		return translateRepoError(err, reservation.ID)
	}

	reservation.State = toState
	reservation.ConfirmedAt = confirmedAt
	return nil
}

// staffPermissions are the location-scope capabilities that grant access to
// reservations the actor does not own.
func staffPermissions() permissions.Set {
	return permissions.LocManageMembers.Union(permissions.LocConfirmReservations)
}

// fullBlocks returns the blocks of the requested range that have no free seat
// left, given the spans of every seat-holding reservation on the window.
func fullBlocks(spans []model.BlockSpan, base, count, seats int) []int {
	var full []int
	for block := base; block < base+count; block++ {
		occupied := 0
		for _, span := range spans {
			if span.Covers(block) {
				occupied++
			}
		}
		if occupied+1 > seats {
			full = append(full, block)
		}
	}
	return full
}

func translateRepoError(err error, id string) error {
	if errors.Is(err, reservationerrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Reservation", id)
	}
	if errors.Is(err, reservationerrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid reservation ID format")
	}
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Internal("Reservation storage operation failed", err)
}

func translateOpeningTimeError(err error, id string) error {
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
