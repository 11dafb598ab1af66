// Package permissions defines the fixed-width capability bitset shared by
// institution, authority and location roles. The type carries no policy:
// deciding that an administrator bit implies everything, or which scopes to
// consult, belongs to the call site.
package permissions

import "blokmap/pkg/model"

// Set is a capability bitset. Roles persist the raw int64; unknown bits are
// dropped on resolution so stored values written by newer deployments do not
// break older readers.
type Set int64

// Institution-scope capabilities.
const (
	InstAdministrator Set = 1 << iota
	InstAddAuthority
	InstDeleteAuthority
	InstManageMembers
)

// Authority-scope capabilities.
const (
	AuthAdministrator Set = 1 << (iota + 4)
	AuthAddLocations
	AuthApproveLocations
	AuthDeleteLocations
	AuthManageMembers
)

// Location-scope capabilities.
const (
	LocAdministrator Set = 1 << (iota + 9)
	LocManageImages
	LocManageOpeningTimes
	LocManageMembers
	LocConfirmReservations
)

const knownBits = InstAdministrator | InstAddAuthority | InstDeleteAuthority |
	InstManageMembers | AuthAdministrator | AuthAddLocations |
	AuthApproveLocations | AuthDeleteLocations | AuthManageMembers |
	LocAdministrator | LocManageImages | LocManageOpeningTimes |
	LocManageMembers | LocConfirmReservations

// Empty is the zero capability set, the effective permission of any profile
// with no membership at a scope.
const Empty Set = 0

// FromBits truncates a stored bit pattern to the recognized capabilities.
func FromBits(bits int64) Set {
	return Set(bits) & knownBits
}

func (s Set) Bits() int64 {
	return int64(s)
}

func (s Set) Contains(capability Set) bool {
	return s&capability == capability
}

// Intersects reports whether the set holds at least one of the given
// capabilities.
func (s Set) Intersects(other Set) bool {
	return s&other != 0
}

func (s Set) Union(other Set) Set {
	return s | other
}

func (s Set) Intersect(other Set) Set {
	return s & other
}

func (s Set) IsEmpty() bool {
	return s == 0
}

// AdministratorFor returns the administrator capability of the given scope
// kind, or the empty set for an unknown kind.
func AdministratorFor(scopeKind string) Set {
	switch scopeKind {
	case model.ScopeInstitution:
		return InstAdministrator
	case model.ScopeAuthority:
		return AuthAdministrator
	case model.ScopeLocation:
		return LocAdministrator
	}
	return Empty
}

// ManageMembersFor returns the member-management capability of the given
// scope kind, or the empty set for an unknown kind.
func ManageMembersFor(scopeKind string) Set {
	switch scopeKind {
	case model.ScopeInstitution:
		return InstManageMembers
	case model.ScopeAuthority:
		return AuthManageMembers
	case model.ScopeLocation:
		return LocManageMembers
	}
	return Empty
}
