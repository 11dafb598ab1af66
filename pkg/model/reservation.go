package model

import "time"

// Reservation lifecycle states. Created is the only non-terminal state; no
// transition ever re-enters it.
const (
	ReservationCreated   = "created"
	ReservationCancelled = "cancelled"
	ReservationAbsent    = "absent"
	ReservationPresent   = "present"
)

// Reservation books the half-open block range
// [BaseBlockIndex, BaseBlockIndex+BlockCount) within one opening-time window.
type Reservation struct {
	ID            string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ProfileID     string `json:"profile_id" bson:"profile_id" validate:"required,mongodb"`
	OpeningTimeID string `json:"opening_time_id" bson:"opening_time_id" validate:"required,mongodb"`
	// LocationID and Day are denormalized from the opening time at creation
	// so location and date listings need no nested joins.
	LocationID     string     `json:"location_id,omitempty" bson:"location_id,omitempty" validate:"omitempty,mongodb"`
	Day            time.Time  `json:"day,omitempty" bson:"day,omitempty"`
	BaseBlockIndex int        `json:"base_block_index" bson:"base_block_index" validate:"min=0"`
	BlockCount     int        `json:"block_count" bson:"block_count" validate:"required,min=1"`
	State          string     `json:"state" bson:"state" validate:"required,oneof=created cancelled absent present"`
	CreatedAt      time.Time  `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt      time.Time  `json:"updated_at" bson:"updated_at" validate:"omitempty"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty" bson:"confirmed_at,omitempty" validate:"omitempty"`
}

// BlockSpan is the (base, count) pair of one reservation, used for the
// per-block occupancy computation.
type BlockSpan struct {
	BaseBlockIndex int `bson:"base_block_index"`
	BlockCount     int `bson:"block_count"`
}

// Covers reports whether the span occupies the given block index.
func (s BlockSpan) Covers(block int) bool {
	return s.BaseBlockIndex <= block && block < s.BaseBlockIndex+s.BlockCount
}

// ActiveStates are the states that hold seats against an opening time's
// capacity. Cancelled and absent reservations free their blocks.
func ActiveStates() []string {
	return []string{ReservationCreated, ReservationPresent}
}

// IsTerminalState reports whether a reservation can no longer change state.
func IsTerminalState(state string) bool {
	return state == ReservationCancelled || state == ReservationAbsent || state == ReservationPresent
}
