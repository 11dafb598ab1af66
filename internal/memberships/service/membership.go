package service

import (
	"context"
	"errors"

	membershipserrors "blokmap/internal/memberships/errors"
	"blokmap/internal/memberships/repository"
	"blokmap/internal/memberships/validator"
	"blokmap/pkg/config"
	apperrors "blokmap/pkg/errors"
	"blokmap/pkg/model"
	"blokmap/pkg/permissions"
	"blokmap/pkg/sanitizer"
)

// MembershipService resolves effective permissions and manages role
// assignments. Resolution is scope-local: a bit held at an institution says
// nothing about any authority or location underneath it.
type MembershipService interface {
	EffectivePermissions(ctx context.Context, profileID, scopeKind, scopeID string) (permissions.Set, error)
	HasAny(ctx context.Context, profileID, scopeKind, scopeID string, perms permissions.Set) (bool, error)
	// Authorize passes when the caller is a global admin, holds the scope's
	// administrator bit, or holds at least one of the given capabilities.
	Authorize(ctx context.Context, profileID string, isAdmin bool, scopeKind, scopeID string, perms permissions.Set) error

	CreateRole(ctx context.Context, byProfileID string, isAdmin bool, role *model.Role) error
	ListRoles(ctx context.Context, scopeKind, scopeID string) ([]*model.Role, error)
	AssignRole(ctx context.Context, byProfileID string, isAdmin bool, membership *model.Membership) error
	RemoveMember(ctx context.Context, byProfileID string, isAdmin bool, membershipID string) error
}

type membershipService struct {
	roleRepo       repository.RoleRepository
	membershipRepo repository.MembershipRepository
	validator      *validator.MembershipValidator
	cfg            *config.Config
}

func NewMembershipService(
	roleRepo repository.RoleRepository,
	membershipRepo repository.MembershipRepository,
	validator *validator.MembershipValidator,
	cfg *config.Config,
) MembershipService {
	return &membershipService{
		roleRepo:       roleRepo,
		membershipRepo: membershipRepo,
		validator:      validator,
		cfg:            cfg,
	}
}

// EffectivePermissions returns the capability set a profile holds at one scope
// instance. A missing membership or dangling role resolves to the empty set,
// never an error; stored bit patterns are truncated to the known capabilities.
func (s *membershipService) EffectivePermissions(ctx context.Context, profileID, scopeKind, scopeID string) (permissions.Set, error) {
	if profileID == "" || scopeKind == "" || scopeID == "" {
		return permissions.Empty, apperrors.InvalidInput("profile ID, scope kind and scope ID are required")
	}

	membership, err := s.membershipRepo.FindByProfileAndScope(ctx, profileID, scopeKind, scopeID)
	if err != nil {
		if errors.Is(err, membershipserrors.ErrMembershipNotFound) {
			return permissions.Empty, nil
		}
		return permissions.Empty, apperrors.Internal("Failed to resolve membership", err)
	}

	role, err := s.roleRepo.FindByID(ctx, membership.RoleID)
	if err != nil {
		if errors.Is(err, membershipserrors.ErrRoleNotFound) {
			// Membership pointing at a deleted role resolves closed.
			return permissions.Empty, nil
		}
		return permissions.Empty, apperrors.Internal("Failed to resolve role", err)
	}

	return permissions.FromBits(role.Permissions), nil
}

func (s *membershipService) HasAny(ctx context.Context, profileID, scopeKind, scopeID string, perms permissions.Set) (bool, error) {
	effective, err := s.EffectivePermissions(ctx, profileID, scopeKind, scopeID)
	if err != nil {
		return false, err
	}
	return effective.Intersects(perms), nil
}

func (s *membershipService) Authorize(ctx context.Context, profileID string, isAdmin bool, scopeKind, scopeID string, perms permissions.Set) error {
	if isAdmin {
		return nil
	}

	ok, err := s.HasAny(ctx, profileID, scopeKind, scopeID, perms.Union(permissions.AdministratorFor(scopeKind)))
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Forbidden("insufficient permissions at this scope")
	}
	return nil
}

func (s *membershipService) CreateRole(ctx context.Context, byProfileID string, isAdmin bool, role *model.Role) error {
	role.Name = sanitizer.NormalizeName(role.Name)
	if err := s.validator.ValidateRole(role); err != nil {
		s.cfg.Log.Warn("Role validation failed", "error", err)
		return apperrors.Validation("Role validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.Authorize(ctx, byProfileID, isAdmin, role.ScopeKind, role.ScopeID, permissions.ManageMembersFor(role.ScopeKind)); err != nil {
		return err
	}

	if err := s.roleRepo.Create(ctx, role); err != nil {
		return apperrors.Internal("Failed to create role", err)
	}

	s.cfg.Log.Info("Role created",
		"id", role.ID,
		"scope_kind", role.ScopeKind,
		"scope_id", role.ScopeID,
		"permissions", role.Permissions,
	)
	return nil
}

func (s *membershipService) ListRoles(ctx context.Context, scopeKind, scopeID string) ([]*model.Role, error) {
	if scopeKind == "" || scopeID == "" {
		return nil, apperrors.InvalidInput("scope kind and scope ID are required")
	}

	roles, err := s.roleRepo.FindByScope(ctx, scopeKind, scopeID)
	if err != nil {
		return nil, apperrors.Internal("Failed to list roles", err)
	}
	return roles, nil
}

func (s *membershipService) AssignRole(ctx context.Context, byProfileID string, isAdmin bool, membership *model.Membership) error {
	if err := s.validator.ValidateMembership(membership); err != nil {
		s.cfg.Log.Warn("Membership validation failed", "error", err)
		return apperrors.Validation("Membership validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.Authorize(ctx, byProfileID, isAdmin, membership.ScopeKind, membership.ScopeID, permissions.ManageMembersFor(membership.ScopeKind)); err != nil {
		return err
	}

	role, err := s.roleRepo.FindByID(ctx, membership.RoleID)
	if err != nil {
		if errors.Is(err, membershipserrors.ErrRoleNotFound) {
			return apperrors.NotFoundWithID("Role", membership.RoleID)
		}
		if errors.Is(err, membershipserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid role ID format")
		}
		return apperrors.Internal("Failed to load role", err)
	}
	if role.ScopeKind != membership.ScopeKind || role.ScopeID != membership.ScopeID {
		return apperrors.InvalidInput("role belongs to a different scope")
	}

	existing, err := s.membershipRepo.FindByProfileAndScope(ctx, membership.ProfileID, membership.ScopeKind, membership.ScopeID)
	if err != nil && !errors.Is(err, membershipserrors.ErrMembershipNotFound) {
		return apperrors.Internal("Failed to check existing membership", err)
	}
	if existing != nil {
		return apperrors.Conflict("profile already holds a role at this scope")
	}

	if err := s.membershipRepo.Create(ctx, membership); err != nil {
		return apperrors.Internal("Failed to create membership", err)
	}

	s.cfg.Log.Info("Membership assigned",
		"id", membership.ID,
		"profile_id", membership.ProfileID,
		"scope_kind", membership.ScopeKind,
		"scope_id", membership.ScopeID,
		"role_id", membership.RoleID,
	)
	return nil
}

func (s *membershipService) RemoveMember(ctx context.Context, byProfileID string, isAdmin bool, membershipID string) error {
	if membershipID == "" {
		return apperrors.InvalidInput("Membership ID cannot be empty")
	}

	membership, err := s.membershipRepo.FindByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, membershipserrors.ErrMembershipNotFound) {
			return apperrors.NotFoundWithID("Membership", membershipID)
		}
		if errors.Is(err, membershipserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid membership ID format")
		}
		return apperrors.Internal("Failed to load membership", err)
	}

	if err := s.Authorize(ctx, byProfileID, isAdmin, membership.ScopeKind, membership.ScopeID, permissions.ManageMembersFor(membership.ScopeKind)); err != nil {
		return err
	}

	if err := s.membershipRepo.Delete(ctx, membershipID); err != nil {
		if errors.Is(err, membershipserrors.ErrMembershipNotFound) {
			return apperrors.NotFoundWithID("Membership", membershipID)
		}
		return apperrors.Internal("Failed to delete membership", err)
	}

	s.cfg.Log.Info("Membership removed", "id", membershipID)
	return nil
}
