package model

import "time"

// Tag labels locations for discovery. The name is an embedded translation so
// tag listings and lookups return the text directly without a second join.
type Tag struct {
	ID        string      `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name      Translation `json:"name" bson:"name"`
	CreatedAt time.Time   `json:"created_at" bson:"created_at" validate:"omitempty"`
}
