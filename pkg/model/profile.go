package model

import "time"

// Profile is the account record owned by the external auth layer. The
// authenticated profile id and admin flag arrive with every request; this
// record is only read for display joins.
type Profile struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Username  string    `json:"username" bson:"username" validate:"required,min=2,max=50"`
	Email     string    `json:"email" bson:"email" validate:"required,email"`
	IsAdmin   bool      `json:"is_admin" bson:"is_admin"`
	State     string    `json:"state" bson:"state" validate:"required,oneof=pending_email_verification active disabled"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}
