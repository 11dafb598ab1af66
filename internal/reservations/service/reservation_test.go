package service

import (
	"context"
	"sync"
	"testing"
	"time"

	reservationerrors "blokmap/internal/reservations/errors"
	"blokmap/internal/reservations/validator"
	"blokmap/pkg/config"
	mongotx "blokmap/pkg/db/mongo"
	apperrors "blokmap/pkg/errors"
	"blokmap/pkg/kafka"
	"blokmap/pkg/logger"
	"blokmap/pkg/model"
	"blokmap/pkg/permissions"
	"blokmap/pkg/query"

	"go.mongodb.org/mongo-driver/bson"
)

type mockReservationRepository struct {
	createFunc      func(ctx context.Context, reservation *model.Reservation) error
	findByIDFunc    func(ctx context.Context, id string) (*model.Reservation, error)
	updateStateFunc func(ctx context.Context, id, fromState, toState string, confirmedAt *time.Time) error
	spansFunc       func(ctx context.Context, openingTimeID string) ([]model.BlockSpan, error)
	listFunc        func(ctx context.Context, match bson.M, lookups []query.LookupSpec) ([]model.ReservationRow, error)
}

func (m *mockReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, reservation)
	}
	reservation.ID = reservationID
	return nil
}

func (m *mockReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, reservationerrors.ErrNotFound
}

func (m *mockReservationRepository) UpdateState(ctx context.Context, id, fromState, toState string, confirmedAt *time.Time) error {
	if m.updateStateFunc != nil {
		return m.updateStateFunc(ctx, id, fromState, toState, confirmedAt)
	}
	return nil
}

func (m *mockReservationRepository) SpansForOpeningTime(ctx context.Context, openingTimeID string) ([]model.BlockSpan, error) {
	if m.spansFunc != nil {
		return m.spansFunc(ctx, openingTimeID)
	}
	return nil, nil
}

func (m *mockReservationRepository) List(ctx context.Context, match bson.M, lookups []query.LookupSpec) ([]model.ReservationRow, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, match, lookups)
	}
	return []model.ReservationRow{}, nil
}

func (m *mockReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockLockRepository struct {
	acquireFunc func(ctx context.Context, openingTimeID string, ttl time.Duration) (*model.ReservationLock, error)
	releaseFunc func(ctx context.Context, lock *model.ReservationLock) error
}

func (m *mockLockRepository) Acquire(ctx context.Context, openingTimeID string, ttl time.Duration) (*model.ReservationLock, error) {
	if m.acquireFunc != nil {
		return m.acquireFunc(ctx, openingTimeID, ttl)
	}
	return &model.ReservationLock{ID: "opening_time:" + openingTimeID, Token: "token"}, nil
}

func (m *mockLockRepository) Release(ctx context.Context, lock *model.ReservationLock) error {
	if m.releaseFunc != nil {
		return m.releaseFunc(ctx, lock)
	}
	return nil
}

type mockOpeningTimeReader struct {
	findByIDFunc func(ctx context.Context, id string) (*model.OpeningTime, error)
}

func (m *mockOpeningTimeReader) FindByID(ctx context.Context, id string) (*model.OpeningTime, error) {
	return m.findByIDFunc(ctx, id)
}

type mockLocationReader struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Location, error)
}

func (m *mockLocationReader) FindByID(ctx context.Context, id string) (*model.Location, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return &model.Location{ID: locationID, SeatCount: 10}, nil
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

type mockPublisher struct {
	mu        sync.Mutex
	published []kafka.Message
}

func (m *mockPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, msg)
	return nil
}

const (
	profileID     = "64f000000000000000000001"
	locationID    = "64f000000000000000000002"
	openingTimeID = "64f000000000000000000003"
	reservationID = "64f000000000000000000004"
	staffID       = "64f000000000000000000005"
)

var reservationDay = time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

type serviceDeps struct {
	repo         *mockReservationRepository
	locks        *mockLockRepository
	openingTimes *mockOpeningTimeReader
	locations    *mockLocationReader
	memberships  *mockMembershipService
	publisher    *mockPublisher
}

func defaultDeps() *serviceDeps {
	return &serviceDeps{
		repo:  &mockReservationRepository{},
		locks: &mockLockRepository{},
		openingTimes: &mockOpeningTimeReader{
			findByIDFunc: func(ctx context.Context, id string) (*model.OpeningTime, error) {
				return validOpeningTime(), nil
			},
		},
		locations:   &mockLocationReader{},
		memberships: &mockMembershipService{},
		publisher:   &mockPublisher{},
	}
}

func newTestService(deps *serviceDeps) *reservationService {
	cfg := &config.Config{
		ReservationLockTTL: 10 * time.Second,
		CheckInGrace:       30 * time.Minute,
		Log: logger.New(logger.Config{
			Level:   logger.LevelError,
			Format:  logger.FormatJSON,
			Service: "test",
		}),
	}
	return &reservationService{
		repo:         deps.repo,
		locks:        deps.locks,
		openingTimes: deps.openingTimes,
		locations:    deps.locations,
		memberships:  deps.memberships,
		publisher:    deps.publisher,
		validator:    validator.NewReservationValidator(cfg.Log),
		cfg:          cfg,
		now:          time.Now,
	}
}

// validOpeningTime is a 09:00-10:00 window, twelve 5-minute blocks.
func validOpeningTime() *model.OpeningTime {
	return &model.OpeningTime{
		ID:         openingTimeID,
		LocationID: locationID,
		Day:        reservationDay,
		StartTime:  "09:00",
		EndTime:    "10:00",
	}
}

func createdReservation() *model.Reservation {
	return &model.Reservation{
		ID:             reservationID,
		ProfileID:      profileID,
		OpeningTimeID:  openingTimeID,
		LocationID:     locationID,
		Day:            reservationDay,
		BaseBlockIndex: 0,
		BlockCount:     2,
		State:          model.ReservationCreated,
	}
}

func TestCreate_SeatsExhaustAcrossFullWindow(t *testing.T) {
	var spans []model.BlockSpan
	deps := defaultDeps()
	deps.repo.spansFunc = func(ctx context.Context, id string) ([]model.BlockSpan, error) {
		return spans, nil
	}
	deps.repo.createFunc = func(ctx context.Context, r *model.Reservation) error {
		r.ID = reservationID
		spans = append(spans, model.BlockSpan{BaseBlockIndex: r.BaseBlockIndex, BlockCount: r.BlockCount})
		return nil
	}

	svc := newTestService(deps)

	// Ten seats and twelve blocks: exactly ten full-window reservations fit.
	for i := 0; i < 10; i++ {
		if _, err := svc.Create(context.Background(), profileID, openingTimeID, 0, 12); err != nil {
			t.Fatalf("reservation %d should have fit: %v", i+1, err)
		}
	}

	_, err := svc.Create(context.Background(), profileID, openingTimeID, 0, 12)
	if !apperrors.HasCode(err, apperrors.CodeCapacityExceeded) {
		t.Fatalf("expected CAPACITY_EXCEEDED for the eleventh reservation, got %v", err)
	}

	appErr := apperrors.AsAppError(err)
	full, ok := appErr.Details["full_blocks"].([]int)
	if !ok || len(full) != 12 {
		t.Errorf("expected all 12 blocks reported full, got %v", appErr.Details["full_blocks"])
	}
}

func TestCreate_ConcurrentRequestsRespectCapacity(t *testing.T) {
	var storeMu sync.Mutex
	var spans []model.BlockSpan

	deps := defaultDeps()
	deps.repo.spansFunc = func(ctx context.Context, id string) ([]model.BlockSpan, error) {
		storeMu.Lock()
		defer storeMu.Unlock()
		return append([]model.BlockSpan(nil), spans...), nil
	}
	deps.repo.createFunc = func(ctx context.Context, r *model.Reservation) error {
		storeMu.Lock()
		defer storeMu.Unlock()
		r.ID = reservationID
		spans = append(spans, model.BlockSpan{BaseBlockIndex: r.BaseBlockIndex, BlockCount: r.BlockCount})
		return nil
	}

	// The lock repository mirrors the unique-insert semantics of the real
	// advisory lock: one holder per opening time, contenders get ErrLockHeld.
	var lockMu sync.Mutex
	held := make(map[string]bool)
	deps.locks.acquireFunc = func(ctx context.Context, id string, ttl time.Duration) (*model.ReservationLock, error) {
		lockMu.Lock()
		defer lockMu.Unlock()
		lockID := "opening_time:" + id
		if held[lockID] {
			return nil, reservationerrors.ErrLockHeld
		}
		held[lockID] = true
		return &model.ReservationLock{ID: lockID, Token: "token"}, nil
	}
	deps.locks.releaseFunc = func(ctx context.Context, lock *model.ReservationLock) error {
		lockMu.Lock()
		defer lockMu.Unlock()
		delete(held, lock.ID)
		return nil
	}

	svc := newTestService(deps)

	// 25 competing full-window requests against 10 seats. Each caller retries
	// on lock contention the way the create handler does.
	const requests = 25
	results := make(chan error, requests)
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				_, err := svc.Create(context.Background(), profileID, openingTimeID, 0, 12)
				if apperrors.IsRetryable(err) {
					continue
				}
				results <- err
				return
			}
		}()
	}
	wg.Wait()
	close(results)

	var created, exhausted int
	for err := range results {
		switch {
		case err == nil:
			created++
		case apperrors.HasCode(err, apperrors.CodeCapacityExceeded):
			exhausted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if created != 10 || exhausted != 15 {
		t.Fatalf("expected exactly 10 creates and 15 capacity failures, got %d and %d", created, exhausted)
	}
}

func TestCreate_PartialOverlapReportsOnlyFullBlocks(t *testing.T) {
	deps := defaultDeps()
	deps.repo.spansFunc = func(ctx context.Context, id string) ([]model.BlockSpan, error) {
		return []model.BlockSpan{{BaseBlockIndex: 0, BlockCount: 6}}, nil
	}
	deps.locations.findByIDFunc = func(ctx context.Context, id string) (*model.Location, error) {
		return &model.Location{ID: locationID, SeatCount: 1}, nil
	}

	svc := newTestService(deps)

	// Blocks 4 and 5 overlap the existing span; 6 and 7 are free.
	_, err := svc.Create(context.Background(), profileID, openingTimeID, 4, 4)
	if !apperrors.HasCode(err, apperrors.CodeCapacityExceeded) {
		t.Fatalf("expected CAPACITY_EXCEEDED, got %v", err)
	}

	full, _ := apperrors.AsAppError(err).Details["full_blocks"].([]int)
	if len(full) != 2 || full[0] != 4 || full[1] != 5 {
		t.Errorf("expected full blocks [4 5], got %v", full)
	}
}

func TestCreate_BlockRangeOutsideWindow(t *testing.T) {
	svc := newTestService(defaultDeps())

	_, err := svc.Create(context.Background(), profileID, openingTimeID, 10, 4)
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for blocks past the window, got %v", err)
	}

	_, err = svc.Create(context.Background(), profileID, openingTimeID, 0, 0)
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for a zero-block reservation, got %v", err)
	}
}

func TestCreate_ExceedsLocationBlockCap(t *testing.T) {
	deps := defaultDeps()
	maxBlocks := 2
	deps.locations.findByIDFunc = func(ctx context.Context, id string) (*model.Location, error) {
		return &model.Location{ID: locationID, SeatCount: 10, MaxReservationBlocks: &maxBlocks}, nil
	}

	svc := newTestService(deps)

	_, err := svc.Create(context.Background(), profileID, openingTimeID, 0, 3)
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT above the location block cap, got %v", err)
	}
}

func TestCreate_RetiredOpeningTimeConflicts(t *testing.T) {
	deps := defaultDeps()
	deps.openingTimes.findByIDFunc = func(ctx context.Context, id string) (*model.OpeningTime, error) {
		openingTime := validOpeningTime()
		openingTime.Retired = true
		return openingTime, nil
	}

	svc := newTestService(deps)

	_, err := svc.Create(context.Background(), profileID, openingTimeID, 0, 1)
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected CONFLICT for a retired opening time, got %v", err)
	}
}

func TestCreate_BeforeReservableFrom(t *testing.T) {
	deps := defaultDeps()
	deps.openingTimes.findByIDFunc = func(ctx context.Context, id string) (*model.OpeningTime, error) {
		openingTime := validOpeningTime()
		from := time.Now().UTC().Add(time.Hour)
		openingTime.ReservableFrom = &from
		return openingTime, nil
	}

	svc := newTestService(deps)

	_, err := svc.Create(context.Background(), profileID, openingTimeID, 0, 1)
	if !apperrors.HasCode(err, apperrors.CodeOutsideWindow) {
		t.Fatalf("expected OUTSIDE_RESERVATION_WINDOW before reservable_from, got %v", err)
	}
}

func TestCreate_LockContentionIsRetryable(t *testing.T) {
	deps := defaultDeps()
	deps.locks.acquireFunc = func(ctx context.Context, id string, ttl time.Duration) (*model.ReservationLock, error) {
		return nil, reservationerrors.ErrLockHeld
	}

	svc := newTestService(deps)

	_, err := svc.Create(context.Background(), profileID, openingTimeID, 0, 1)
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected CONFLICT on lock contention, got %v", err)
	}
	if !apperrors.IsRetryable(err) {
		t.Error("lock contention should be retryable")
	}
}

func TestCreate_ReleasesLockOnCapacityFailure(t *testing.T) {
	released := false
	deps := defaultDeps()
	deps.locks.releaseFunc = func(ctx context.Context, lock *model.ReservationLock) error {
		released = true
		return nil
	}
	deps.repo.spansFunc = func(ctx context.Context, id string) ([]model.BlockSpan, error) {
		return []model.BlockSpan{{BaseBlockIndex: 0, BlockCount: 12}}, nil
	}
	deps.locations.findByIDFunc = func(ctx context.Context, id string) (*model.Location, error) {
		return &model.Location{ID: locationID, SeatCount: 1}, nil
	}

	svc := newTestService(deps)

	if _, err := svc.Create(context.Background(), profileID, openingTimeID, 0, 1); err == nil {
		t.Fatal("expected capacity failure")
	}
	if !released {
		t.Error("lock must be released after a failed create")
	}
}

func TestCreate_PublishesCreatedEvent(t *testing.T) {
	deps := defaultDeps()
	svc := newTestService(deps)

	if _, err := svc.Create(context.Background(), profileID, openingTimeID, 0, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(deps.publisher.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(deps.publisher.published))
	}
	msg := deps.publisher.published[0]
	if msg.GetEventType() != EventReservationCreated {
		t.Errorf("expected event type %s, got %s", EventReservationCreated, msg.GetEventType())
	}
	if msg.Key != openingTimeID {
		t.Errorf("expected partition key %s, got %s", openingTimeID, msg.Key)
	}
}

func TestCancel_OwnerCanCancel(t *testing.T) {
	deps := defaultDeps()
	deps.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Reservation, error) {
		return createdReservation(), nil
	}
	deps.memberships.authorizeFunc = func(ctx context.Context, pID string, isAdmin bool, scopeKind, scopeID string, perms permissions.Set) error {
		t.Fatal("owner cancellation must not consult memberships")
		return nil
	}

	svc := newTestService(deps)

	if err := svc.Cancel(context.Background(), profileID, false, reservationID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deps.publisher.published) != 1 || deps.publisher.published[0].GetEventType() != EventReservationCancelled {
		t.Error("expected a reservation.cancelled event")
	}
}

func TestCancel_AlreadyCancelledIsInvalidTransition(t *testing.T) {
	deps := defaultDeps()
	deps.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Reservation, error) {
		reservation := createdReservation()
		reservation.State = model.ReservationCancelled
		return reservation, nil
	}

	svc := newTestService(deps)

	err := svc.Cancel(context.Background(), profileID, false, reservationID)
	if !apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION on double cancel, got %v", err)
	}
}

func TestMarkPresent_WithinWindowSetsConfirmedAt(t *testing.T) {
	var gotConfirmedAt *time.Time
	deps := defaultDeps()
	deps.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Reservation, error) {
		return createdReservation(), nil
	}
	deps.repo.updateStateFunc = func(ctx context.Context, id, fromState, toState string, confirmedAt *time.Time) error {
		gotConfirmedAt = confirmedAt
		return nil
	}

	svc := newTestService(deps)
	// Reservation covers blocks 0-1, 09:00-09:10 on the window's day.
	svc.now = func() time.Time {
		return time.Date(2026, 9, 14, 9, 5, 0, 0, time.UTC)
	}

	if err := svc.MarkPresent(context.Background(), staffID, false, reservationID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotConfirmedAt == nil {
		t.Error("expected confirmed_at to be set on present")
	}
	if len(deps.publisher.published) != 1 || deps.publisher.published[0].GetEventType() != EventReservationPresent {
		t.Error("expected a reservation.present event")
	}
}

func TestMarkPresent_BeforeBlocksStartRejected(t *testing.T) {
	deps := defaultDeps()
	deps.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Reservation, error) {
		return createdReservation(), nil
	}

	svc := newTestService(deps)
	svc.now = func() time.Time {
		return time.Date(2026, 9, 14, 8, 0, 0, 0, time.UTC)
	}

	err := svc.MarkPresent(context.Background(), staffID, false, reservationID)
	if !apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION before the blocks start, got %v", err)
	}

	details := apperrors.AsAppError(err).Details
	opens, ok := details["check_in_opens"].(time.Time)
	if !ok || !opens.Equal(time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("expected the check-in window in the details, got %v", details)
	}
}

func TestMarkAbsent_AfterGraceRejected(t *testing.T) {
	deps := defaultDeps()
	deps.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Reservation, error) {
		return createdReservation(), nil
	}

	svc := newTestService(deps)
	// Blocks end 09:10, grace 30m; 09:41 is past the deadline.
	svc.now = func() time.Time {
		return time.Date(2026, 9, 14, 9, 41, 0, 0, time.UTC)
	}

	err := svc.MarkAbsent(context.Background(), staffID, false, reservationID)
	if !apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION after the grace period, got %v", err)
	}
}

func TestMarkPresent_OwnerCannotSelfConfirm(t *testing.T) {
	deps := defaultDeps()
	deps.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Reservation, error) {
		return createdReservation(), nil
	}
	deps.memberships.authorizeFunc = func(ctx context.Context, pID string, isAdmin bool, scopeKind, scopeID string, perms permissions.Set) error {
		if scopeKind != model.ScopeLocation || scopeID != locationID {
			t.Errorf("expected authorization at location scope %s, got %s/%s", locationID, scopeKind, scopeID)
		}
		if !perms.Contains(permissions.LocConfirmReservations) {
			t.Errorf("expected LocConfirmReservations to be required, got %d", perms.Bits())
		}
		return apperrors.Forbidden("insufficient permissions at this scope")
	}

	svc := newTestService(deps)
	svc.now = func() time.Time {
		return time.Date(2026, 9, 14, 9, 5, 0, 0, time.UTC)
	}

	// The owner holds no staff role; attendance stays staff-only.
	err := svc.MarkPresent(context.Background(), profileID, false, reservationID)
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}
