package model

import "time"

type Location struct {
	ID          string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	AuthorityID string `json:"authority_id" bson:"authority_id" validate:"required,mongodb"`
	Name        string `json:"name" bson:"name" validate:"required,min=2,max=100"`
	City        string `json:"city" bson:"city" validate:"required,min=2,max=50"`
	Address     string `json:"address" bson:"address" validate:"required,min=2,max=200"`
	// SeatCount is the base capacity applied to every opening time that does
	// not carry its own override.
	SeatCount            int  `json:"seat_count" bson:"seat_count" validate:"required,min=1,max=1000"`
	MaxReservationBlocks *int `json:"max_reservation_blocks,omitempty" bson:"max_reservation_blocks,omitempty" validate:"omitempty,min=1"`
	// Description and Excerpt are embedded translations; TagIDs reference the
	// tags collection and back the tag listing filter.
	Description *Translation `json:"description,omitempty" bson:"description,omitempty"`
	Excerpt     *Translation `json:"excerpt,omitempty" bson:"excerpt,omitempty"`
	TagIDs      []string     `json:"tag_ids,omitempty" bson:"tag_ids,omitempty" validate:"omitempty,dive,mongodb"`
	CreatedAt   time.Time    `json:"created_at" bson:"created_at" validate:"omitempty"`
}
