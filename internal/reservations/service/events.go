package service

import (
	"context"
	"time"

	"blokmap/pkg/kafka"
	"blokmap/pkg/model"
)

// Event types published on every reservation lifecycle change.
const (
	EventReservationCreated   = "reservation.created"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationPresent   = "reservation.present"
	EventReservationAbsent    = "reservation.absent"
)

const eventSchemaVersion = "1.0"

// ReservationEvent is the payload of every reservation lifecycle event.
type ReservationEvent struct {
	ReservationID string    `json:"reservation_id"`
	OpeningTimeID string    `json:"opening_time_id"`
	LocationID    string    `json:"location_id"`
	ProfileID     string    `json:"profile_id"`
	State         string    `json:"state"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// EventPublisher is the slice of the Kafka producer the service needs.
type EventPublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// publishEvent emits a lifecycle event keyed by the opening time so consumers
// observe all events of one opening time in order. Publish failures are
// logged, not surfaced; the state change already committed.
func (s *reservationService) publishEvent(ctx context.Context, eventType string, reservation *model.Reservation) {
	if s.publisher == nil {
		return
	}

	msg := kafka.NewMessage().
		WithKey(reservation.OpeningTimeID).
		WithEventType(eventType).
		WithSchemaVersion(eventSchemaVersion).
		WithSource("blokmap").
		WithValue(ReservationEvent{
			ReservationID: reservation.ID,
			OpeningTimeID: reservation.OpeningTimeID,
			LocationID:    reservation.LocationID,
			ProfileID:     reservation.ProfileID,
			State:         reservation.State,
			OccurredAt:    time.Now().UTC(),
		}).
		Build()

	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.cfg.Log.Error("Failed to publish reservation event",
			"event_type", eventType,
			"reservation_id", reservation.ID,
			"error", err,
		)
	}
}
