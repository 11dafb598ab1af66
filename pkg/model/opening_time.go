package model

import (
	"errors"
	"fmt"
	"time"
)

// BlockSizeMinutes is the atomic reservable time unit. An opening-time window
// must divide evenly into blocks of this size; the value is fixed system-wide.
const BlockSizeMinutes = 5

// OpeningTime is one published availability window for a location. Start and
// end are wall-clock "HH:MM" values local to the location. Opening times are
// never hard-deleted while reservations reference them; they are retired.
type OpeningTime struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	LocationID string    `json:"location_id" bson:"location_id" validate:"required,mongodb"`
	Day        time.Time `json:"day" bson:"day" validate:"required"`
	StartTime  string    `json:"start_time" bson:"start_time" validate:"required,wallclock"`
	EndTime    string    `json:"end_time" bson:"end_time" validate:"required,wallclock"`
	// SeatCount overrides the location's base capacity when set.
	SeatCount       *int       `json:"seat_count,omitempty" bson:"seat_count,omitempty" validate:"omitempty,min=1,max=1000"`
	ReservableFrom  *time.Time `json:"reservable_from,omitempty" bson:"reservable_from,omitempty" validate:"omitempty"`
	ReservableUntil *time.Time `json:"reservable_until,omitempty" bson:"reservable_until,omitempty" validate:"omitempty,gtfield=ReservableFrom"`
	Retired         bool       `json:"retired" bson:"retired"`
	CreatedBy       string     `json:"created_by,omitempty" bson:"created_by,omitempty" validate:"omitempty,mongodb"`
	CreatedAt       time.Time  `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt       time.Time  `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

type OpeningTimeUpdate struct {
	Day             *time.Time `json:"day,omitempty" validate:"omitempty"`
	StartTime       string     `json:"start_time,omitempty" validate:"omitempty,wallclock"`
	EndTime         string     `json:"end_time,omitempty" validate:"omitempty,wallclock"`
	SeatCount       *int       `json:"seat_count,omitempty" validate:"omitempty,min=1,max=1000"`
	ReservableFrom  *time.Time `json:"reservable_from,omitempty" validate:"omitempty"`
	ReservableUntil *time.Time `json:"reservable_until,omitempty" validate:"omitempty"`
}

// EffectiveSeatCount resolves the capacity ceiling for this window given the
// owning location's base capacity.
func (t *OpeningTime) EffectiveSeatCount(location *Location) int {
	if t.SeatCount != nil {
		return *t.SeatCount
	}
	return location.SeatCount
}

// ErrInvalidWindow marks a window that cannot be divided into whole blocks.
var ErrInvalidWindow = errors.New("window must be a positive whole number of blocks")

// ParseWallClock converts an "HH:MM" value to minutes since midnight.
func ParseWallClock(s string) (int, error) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid wall-clock value %q: %w", s, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// WindowBlockCount returns the number of blocks the window divides into.
// The window must start before it ends and span a whole number of blocks.
func (t *OpeningTime) WindowBlockCount() (int, error) {
	start, err := ParseWallClock(t.StartTime)
	if err != nil {
		return 0, err
	}
	end, err := ParseWallClock(t.EndTime)
	if err != nil {
		return 0, err
	}

	duration := end - start
	if duration <= 0 || duration%BlockSizeMinutes != 0 {
		return 0, ErrInvalidWindow
	}

	return duration / BlockSizeMinutes, nil
}

// BlockStart returns the instant the given block index begins on the window's
// day. The day's date and the wall-clock offset combine in UTC.
func (t *OpeningTime) BlockStart(block int) (time.Time, error) {
	start, err := ParseWallClock(t.StartTime)
	if err != nil {
		return time.Time{}, err
	}

	day := t.Day.UTC().Truncate(24 * time.Hour)
	return day.Add(time.Duration(start+block*BlockSizeMinutes) * time.Minute), nil
}
