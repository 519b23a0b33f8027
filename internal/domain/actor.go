package domain

import (
	"slices"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin               Role = "ADMIN"
	RoleProjectGroupManager Role = "PROJECT_GROUP_MANAGER"
	RoleProjectManager      Role = "PROJECT_MANAGER"
	RoleTeamLeader          Role = "TEAM_LEADER"
	RoleTeamMember          Role = "TEAM_MEMBER"
)

// ValidRoles is the canonical set of known roles.
var ValidRoles = []Role{ //nolint:gochecknoglobals // canonical enum list
	RoleAdmin,
	RoleProjectGroupManager,
	RoleProjectManager,
	RoleTeamLeader,
	RoleTeamMember,
}

// ValidateRole returns true if the given role is known.
func ValidateRole(r Role) bool {
	return slices.Contains(ValidRoles, r)
}

// IsBypass reports whether the role skips department scoping.
func (r Role) IsBypass() bool {
	return r == RoleAdmin || r == RoleProjectGroupManager
}

// Actor is an immutable snapshot of the authenticated principal.
// DepartmentID is nil for actors not tied to a department.
type Actor struct {
	ID           uuid.UUID
	Roles        []Role
	DepartmentID *uuid.UUID
}

// NewActor copies roles and department so later mutation of the inputs does
// not leak into the snapshot.
func NewActor(id uuid.UUID, roles []Role, departmentID *uuid.UUID) Actor {
	a := Actor{ID: id, Roles: slices.Clone(roles)}
	if departmentID != nil {
		dep := *departmentID
		a.DepartmentID = &dep
	}
	return a
}

func (a Actor) HasRole(r Role) bool {
	return slices.Contains(a.Roles, r)
}

func (a Actor) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if a.HasRole(r) {
			return true
		}
	}
	return false
}

// IsBypass reports whether the actor holds ADMIN or PROJECT_GROUP_MANAGER.
func (a Actor) IsBypass() bool {
	return slices.ContainsFunc(a.Roles, Role.IsBypass)
}

// InDepartment reports whether the actor belongs to the given department.
// An actor without a department never matches.
func (a Actor) InDepartment(departmentID uuid.UUID) bool {
	return a.DepartmentID != nil && *a.DepartmentID == departmentID
}
