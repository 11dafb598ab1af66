package model

import "time"

// ReservationLock is an ephemeral advisory lock scoped to one opening time.
// The _id doubles as the lock key; a unique-index violation on insert means
// another creator holds the slot. ExpiresAt backs a TTL index so abandoned
// locks cannot wedge an opening time.
type ReservationLock struct {
	ID        string    `bson:"_id"`
	Token     string    `bson:"token"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}
