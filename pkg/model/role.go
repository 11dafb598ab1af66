package model

import "time"

// Scope kinds at which roles and memberships apply. Each scope kind has its
// own capability vocabulary; there is no inheritance between scopes.
const (
	ScopeInstitution = "institution"
	ScopeAuthority   = "authority"
	ScopeLocation    = "location"
)

// Role names a permission bitset at one scope instance.
type Role struct {
	ID        string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ScopeKind string `json:"scope_kind" bson:"scope_kind" validate:"required,oneof=institution authority location"`
	ScopeID   string `json:"scope_id" bson:"scope_id" validate:"required,mongodb"`
	Name      string `json:"name" bson:"name" validate:"required,min=2,max=100"`
	// Permissions is stored as a raw bit pattern; unknown bits are dropped
	// when the role is resolved, never rejected.
	Permissions int64     `json:"permissions" bson:"permissions" validate:"min=0"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// Membership assigns exactly one role to one profile at one scope instance.
type Membership struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ProfileID string    `json:"profile_id" bson:"profile_id" validate:"required,mongodb"`
	ScopeKind string    `json:"scope_kind" bson:"scope_kind" validate:"required,oneof=institution authority location"`
	ScopeID   string    `json:"scope_id" bson:"scope_id" validate:"required,mongodb"`
	RoleID    string    `json:"role_id" bson:"role_id" validate:"required,mongodb"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}
